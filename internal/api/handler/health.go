package handler

import (
	"net/http"

	"github.com/mcoot/fourinarow/internal/api/response"
)

// Counter reports a live gauge for the health endpoint
type Counter func() int

// HealthSources supplies the gauges reported by the health endpoint.
// Nil sources report zero.
type HealthSources struct {
	ActiveSessions   Counter
	QueueSize        Counter
	OpenRooms        Counter
	ConnectedPlayers Counter
	ConnectedClients Counter
}

// HealthHandler reports server liveness and load
type HealthHandler struct {
	sources HealthSources
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sources HealthSources) *HealthHandler {
	return &HealthHandler{sources: sources}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status:           "ok",
		ActiveSessions:   h.sources.ActiveSessions.value(),
		QueueSize:        h.sources.QueueSize.value(),
		OpenRooms:        h.sources.OpenRooms.value(),
		ConnectedPlayers: h.sources.ConnectedPlayers.value(),
		ConnectedClients: h.sources.ConnectedClients.value(),
	})
}

func (c Counter) value() int {
	if c == nil {
		return 0
	}
	return c()
}
