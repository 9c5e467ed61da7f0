package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/fourinarow/internal/api/request"
	"github.com/mcoot/fourinarow/internal/api/response"
	"github.com/mcoot/fourinarow/internal/model"
)

// PlayerHandler handles per-player history endpoints
type PlayerHandler struct {
	archive GameArchive
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(archive GameArchive) *PlayerHandler {
	return &PlayerHandler{archive: archive}
}

// Games handles GET /api/v1/players/{name}/games
func (h *PlayerHandler) Games(w http.ResponseWriter, r *http.Request) {
	name, ok := playerName(w, r)
	if !ok {
		return
	}

	limit, err := request.ParseLimit(r)
	if err != nil {
		WriteError(w, NewInvalidRequestError(err.Error()))
		return
	}

	records, err := h.archive.ListGames(r.Context(), name, limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	games := make([]response.GameSummary, len(records))
	for i, rec := range records {
		games[i] = response.GameSummaryFromModel(rec, name)
	}
	response.JSON(w, http.StatusOK, response.GameList{Player: string(name), Games: games})
}

// Stats handles GET /api/v1/players/{name}/stats
func (h *PlayerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	name, ok := playerName(w, r)
	if !ok {
		return
	}

	stats, err := h.archive.GetStats(r.Context(), name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerStatsFromModel(stats))
}

func playerName(w http.ResponseWriter, r *http.Request) (model.PlayerID, bool) {
	name := strings.TrimSpace(mux.Vars(r)["name"])
	if name == "" || len(name) > model.MaxPlayerIDLength {
		WriteError(w, model.ErrInvalidPlayerID)
		return "", false
	}
	return model.PlayerID(name), true
}
