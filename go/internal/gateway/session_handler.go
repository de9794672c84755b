package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/candidly/interviewd/go/internal/interview"
	"github.com/candidly/interviewd/go/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionService is the slice of the interview app the HTTP handlers use.
type SessionService interface {
	CreateSession(ctx context.Context, req interview.CreateSessionRequest) (*models.Session, error)
	StartSession(ctx context.Context, id uuid.UUID) (*models.Session, *models.Question, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	CancelSession(ctx context.Context, id uuid.UUID) error
	ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]models.Answer, error)
}

// SessionEngine is the slice of the engine the HTTP handlers use. Answer
// start/stop are also reachable over the WebSocket; the HTTP routes exist
// for the interviewer console.
type SessionEngine interface {
	StartSession(ctx context.Context, sessionID uuid.UUID) error
	StartAnswer(sessionID uuid.UUID) error
	StopAnswer(sessionID uuid.UUID) error
	StopSession(sessionID uuid.UUID)
}

// SessionHandler handles the HTTP control API for sessions.
type SessionHandler struct {
	service SessionService
	engine  SessionEngine
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service SessionService, engine SessionEngine) *SessionHandler {
	return &SessionHandler{
		service: service,
		engine:  engine,
	}
}

// HandleCreateSession handles POST /api/sessions
func (h *SessionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req interview.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.service.CreateSession(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// HandleStartSession handles POST /api/sessions/{id}/start. It transitions
// the session and spawns its runner.
func (h *SessionHandler) HandleStartSession(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	session, question, err := h.service.StartSession(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.engine.StartSession(r.Context(), sessionID); err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Msg("failed to start session runner")
		http.Error(w, "Failed to start session runner", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":  session,
		"question": question,
	})
}

// HandleCancelSession handles POST /api/sessions/{id}/cancel
func (h *SessionHandler) HandleCancelSession(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	h.engine.StopSession(sessionID)

	if err := h.service.CancelSession(r.Context(), sessionID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleStartAnswer handles POST /api/sessions/{id}/answer/start
func (h *SessionHandler) HandleStartAnswer(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	if err := h.engine.StartAnswer(sessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleStopAnswer handles POST /api/sessions/{id}/answer/stop
func (h *SessionHandler) HandleStopAnswer(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	if err := h.engine.StopAnswer(sessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleGetSession handles GET /api/sessions/{id}
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleListAnswers handles GET /api/sessions/{id}/answers
func (h *SessionHandler) HandleListAnswers(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	answers, err := h.service.ListAnswers(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

// RegisterSessionRoutes registers the session control routes. State routes
// under the same prefix are registered by the StateHandler; this dispatcher
// forwards /state to it so both can share the /api/sessions/ subtree.
func (h *SessionHandler) RegisterSessionRoutes(mux *http.ServeMux, stateHandler *StateHandler) {
	mux.HandleFunc("/api/sessions", h.HandleCreateSession)
	mux.HandleFunc("/api/sessions/active", stateHandler.HandleGetActiveSessions)

	mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
		parts := strings.Split(rest, "/")

		sessionID, err := uuid.Parse(parts[0])
		if err != nil {
			http.Error(w, "Invalid session ID format", http.StatusBadRequest)
			return
		}

		action := strings.Join(parts[1:], "/")
		switch {
		case action == "" && r.Method == http.MethodGet:
			h.HandleGetSession(w, r, sessionID)
		case action == "state" && r.Method == http.MethodGet:
			stateHandler.HandleGetSessionState(w, r)
		case action == "answers" && r.Method == http.MethodGet:
			h.HandleListAnswers(w, r, sessionID)
		case action == "start" && r.Method == http.MethodPost:
			h.HandleStartSession(w, r, sessionID)
		case action == "cancel" && r.Method == http.MethodPost:
			h.HandleCancelSession(w, r, sessionID)
		case action == "answer/start" && r.Method == http.MethodPost:
			h.HandleStartAnswer(w, r, sessionID)
		case action == "answer/stop" && r.Method == http.MethodPost:
			h.HandleStopAnswer(w, r, sessionID)
		default:
			http.NotFound(w, r)
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeServiceError maps well-known service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interview.ErrSessionNotFound),
		errors.Is(err, interview.ErrQuestionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, interview.ErrSessionNotStartable),
		errors.Is(err, interview.ErrSessionNotActive),
		errors.Is(err, interview.ErrSessionFinished):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
