package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/fourinarow/internal/api/response"
	"github.com/mcoot/fourinarow/internal/model"
)

// GameArchive reads finished games
type GameArchive interface {
	GetGame(ctx context.Context, id model.SessionID) (*model.GameRecord, error)
	ListGames(ctx context.Context, player model.PlayerID, limit int) ([]*model.GameRecord, error)
	GetStats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error)
}

// GameHandler handles finished-game endpoints
type GameHandler struct {
	archive GameArchive
}

// NewGameHandler creates a new game handler
func NewGameHandler(archive GameArchive) *GameHandler {
	return &GameHandler{archive: archive}
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		WriteError(w, NewInvalidRequestError("game id is required"))
		return
	}

	rec, err := h.archive.GetGame(r.Context(), model.SessionID(id))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameRecordFromModel(rec))
}
