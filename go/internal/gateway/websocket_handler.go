package gateway

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades clients onto a session's live event stream.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	stateManager      *SessionStateManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, sm *SessionStateManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		stateManager:      sm,
	}
}

// HandleSessionConnection handles GET /ws/session?session_id=...&candidate=...
// The candidate label distinguishes the answering client from interviewer
// console connections in logs and targeted broadcasts.
func (h *WebSocketHandler) HandleSessionConnection(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.URL.Query().Get("session_id"))
	if err != nil {
		http.Error(w, "valid session_id is required", http.StatusBadRequest)
		return
	}

	// A finished session has no further events to stream; reconnecting
	// clients fetch the state snapshot instead.
	if state := h.stateManager.GetState(sessionID); state != nil && state.Status != "IN_PROGRESS" {
		http.Error(w, "session already finished", http.StatusConflict)
		return
	}

	candidate := r.URL.Query().Get("candidate")
	if candidate == "" {
		candidate = "observer"
	}

	if err := h.connectionManager.UpgradeConnection(w, r, candidate, sessionID); err != nil {
		// Upgrade already wrote the error response.
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Str("candidate", candidate).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/session", h.HandleSessionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
