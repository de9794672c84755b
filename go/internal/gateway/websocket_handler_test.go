package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/candidly/interviewd/go/internal/interview/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type nopSink struct{}

func (nopSink) StartAnswer(uuid.UUID) error                { return nil }
func (nopSink) StopAnswer(uuid.UUID) error                 { return nil }
func (nopSink) TranscriptUpdate(uuid.UUID, string) error   { return nil }
func (nopSink) TranscriptComplete(uuid.UUID, string) error { return nil }
func (nopSink) VoiceActivity(uuid.UUID, bool) error        { return nil }

func newTestWebSocketHandler() (*WebSocketHandler, *SessionStateManager) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nopSink{})
	sm := NewSessionStateManager()
	return NewWebSocketHandler(cm, sm), sm
}

func TestSessionConnectionRequiresValidSessionID(t *testing.T) {
	h, _ := newTestWebSocketHandler()

	for _, target := range []string{"/ws/session", "/ws/session?session_id=nope"} {
		rec := httptest.NewRecorder()
		h.HandleSessionConnection(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestSessionConnectionRejectsFinishedSession(t *testing.T) {
	h, sm := newTestWebSocketHandler()
	sessionID := uuid.New()

	require.NoError(t, sm.ProcessEvent(makeEvent(t, sessionID, EventTypeSessionCompleted, events.SessionCompletedPayload{
		SessionID:   sessionID.String(),
		CompletedAt: time.Now(),
	})))

	rec := httptest.NewRecorder()
	h.HandleSessionConnection(rec, httptest.NewRequest(http.MethodGet, "/ws/session?session_id="+sessionID.String(), nil))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestConnectionStatsEncodesJSON(t *testing.T) {
	h, _ := newTestWebSocketHandler()

	rec := httptest.NewRecorder()
	h.HandleConnectionStats(rec, httptest.NewRequest(http.MethodGet, "/ws/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.EqualValues(t, 0, stats["total_connections"])
	require.EqualValues(t, 0, stats["active_sessions"])
}
