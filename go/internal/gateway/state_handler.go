package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StateHandler serves session state snapshots over HTTP. Clients that
// reconnect mid-session fetch the snapshot first, then follow live events
// over the WebSocket.
type StateHandler struct {
	stateManager *SessionStateManager
}

// NewStateHandler creates a new state handler
func NewStateHandler(sm *SessionStateManager) *StateHandler {
	return &StateHandler{
		stateManager: sm,
	}
}

// HandleGetSessionState handles GET /api/sessions/{id}/state
func (h *StateHandler) HandleGetSessionState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionIDStr := extractSessionIDFromPath(r.URL.Path)
	if sessionIDStr == "" {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		http.Error(w, "Invalid session ID format", http.StatusBadRequest)
		return
	}

	state := h.stateManager.GetState(sessionID)
	if state == nil {
		http.Error(w, "Session state not found", http.StatusNotFound)
		return
	}

	// Countdown fields are computed at read time so the snapshot is fresh.
	if state.CurrentPhase != nil {
		state.CurrentPhase.TimeRemainingSec = state.CurrentPhase.CalculateTimeRemaining(time.Now())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode session state response")
	}
}

// HandleGetActiveSessions handles GET /api/sessions/active
func (h *StateHandler) HandleGetActiveSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.stateManager.ListActive()); err != nil {
		log.Error().Err(err).Msg("failed to encode active sessions response")
	}
}

// extractSessionIDFromPath extracts session ID from path like /api/sessions/{id}/state
func extractSessionIDFromPath(path string) string {
	const prefix = "/api/sessions/"
	const suffix = "/state"

	if len(path) <= len(prefix)+len(suffix) {
		return ""
	}

	if path[:len(prefix)] != prefix || path[len(path)-len(suffix):] != suffix {
		return ""
	}

	return path[len(prefix) : len(path)-len(suffix)]
}
