package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/mcoot/fourinarow/internal/api/request"
	"github.com/mcoot/fourinarow/internal/api/response"
	"github.com/mcoot/fourinarow/internal/model"
)

// QR image size bounds in pixels
const (
	DefaultQRSize = 256
	MinQRSize     = 64
	MaxQRSize     = 1024
)

// RoomLookup finds open private rooms
type RoomLookup interface {
	Get(code string) (*model.Room, error)
}

// RoomHandler serves share links for private rooms
type RoomHandler struct {
	rooms     RoomLookup
	publicURL string
}

// NewRoomHandler creates a new room handler. publicURL is the base URL of a
// web client that serves /play?room=CODE; this server does not serve that
// page. Leave it empty to share the bare room code.
func NewRoomHandler(rooms RoomLookup, publicURL string) *RoomHandler {
	return &RoomHandler{
		rooms:     rooms,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// JoinLink returns what the room QR code encodes: a client join link, or the
// code itself when no public URL is configured
func (h *RoomHandler) JoinLink(code model.RoomCode) string {
	if h.publicURL == "" {
		return string(code)
	}
	return h.publicURL + "/play?room=" + url.QueryEscape(string(code))
}

// QR handles GET /api/v1/rooms/{code}/qr.png
func (h *RoomHandler) QR(w http.ResponseWriter, r *http.Request) {
	size, err := request.ParseSize(r, DefaultQRSize, MinQRSize, MaxQRSize)
	if err != nil {
		WriteError(w, NewInvalidRequestError(err.Error()))
		return
	}

	room, err := h.rooms.Get(mux.Vars(r)["code"])
	if err != nil {
		WriteError(w, err)
		return
	}

	png, err := qrcode.Encode(h.JoinLink(room.Code), qrcode.Medium, size)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.PNG(w, png)
}
