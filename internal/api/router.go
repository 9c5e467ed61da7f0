package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/fourinarow/internal/api/apierr"
	"github.com/mcoot/fourinarow/internal/api/handler"
	"github.com/mcoot/fourinarow/internal/middleware"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Archive handler.GameArchive
	Rooms   handler.RoomLookup
	Health  handler.HealthSources
	// WebSocket serves /ws. If nil the route is not registered.
	WebSocket http.Handler
	// PublicURL is the web client that room join links point at. Empty
	// means QR codes carry the bare room code.
	PublicURL string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	gameHandler := handler.NewGameHandler(cfg.Archive)
	playerHandler := handler.NewPlayerHandler(cfg.Archive)
	roomHandler := handler.NewRoomHandler(cfg.Rooms, cfg.PublicURL)
	healthHandler := handler.NewHealthHandler(cfg.Health)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, apierr.PanicHandler)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/players/{name}/games", playerHandler.Games).Methods(http.MethodGet)
	api.HandleFunc("/players/{name}/stats", playerHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/qr.png", roomHandler.QR).Methods(http.MethodGet)

	// Recovery sits inside logging here so it can tell an upgraded connection apart
	if cfg.WebSocket != nil {
		wsRecovery := middleware.Recovery(cfg.Logger, middleware.PlainPanicHandler)
		r.Handle("/ws", loggingMiddleware(wsRecovery(cfg.WebSocket))).Methods(http.MethodGet)
	}

	return r
}
