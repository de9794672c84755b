package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/candidly/interviewd/go/internal/interview/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func makeEvent(t *testing.T, sessionID uuid.UUID, eventType EventType, payload interface{}) *SessionEvent {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &SessionEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID.String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func TestStateManagerTracksSessionLifecycle(t *testing.T) {
	sm := NewSessionStateManager()
	sessionID := uuid.New()
	startedAt := time.Now()

	require.NoError(t, sm.ProcessEvent(makeEvent(t, sessionID, EventTypeSessionStarted, events.SessionStartedPayload{
		SessionID:      sessionID.String(),
		TotalQuestions: 3,
		StartedAt:      startedAt,
	})))

	state := sm.GetState(sessionID)
	require.NotNil(t, state)
	require.Equal(t, "IN_PROGRESS", state.Status)
	require.Equal(t, 3, state.TotalQuestions)
	require.Nil(t, state.CurrentPhase)

	phaseStart := time.Now()
	require.NoError(t, sm.ProcessEvent(makeEvent(t, sessionID, EventTypePhaseStarted, events.PhaseStartedPayload{
		SessionID:     sessionID.String(),
		QuestionIndex: 0,
		Phase:         "ANSWERING",
		Prompt:        "Tell me about yourself",
		StartedAt:     phaseStart,
		Deadline:      phaseStart.Add(30 * time.Second),
		DurationSec:   30,
	})))

	state = sm.GetState(sessionID)
	require.NotNil(t, state.CurrentPhase)
	require.Equal(t, "ANSWERING", state.CurrentPhase.Phase)
	require.Equal(t, 0, state.CurrentPhase.QuestionIndex)
	require.Greater(t, state.CurrentPhase.TimeRemainingSec, 0)

	require.NoError(t, sm.ProcessEvent(makeEvent(t, sessionID, EventTypeAnswerSubmitted, events.AnswerSubmittedPayload{
		SessionID:     sessionID.String(),
		QuestionIndex: 0,
		Reason:        "USER",
		SubmittedAt:   time.Now(),
	})))

	state = sm.GetState(sessionID)
	require.Equal(t, 1, state.AnsweredCount)
	require.Nil(t, state.CurrentPhase)

	require.NoError(t, sm.ProcessEvent(makeEvent(t, sessionID, EventTypeSessionCompleted, events.SessionCompletedPayload{
		SessionID:   sessionID.String(),
		CompletedAt: time.Now(),
	})))

	state = sm.GetState(sessionID)
	require.Equal(t, "COMPLETED", state.Status)
	require.NotNil(t, state.CompletedAt)
}

func TestStateManagerMarksFailedSessions(t *testing.T) {
	sm := NewSessionStateManager()
	sessionID := uuid.New()

	require.NoError(t, sm.ProcessEvent(makeEvent(t, sessionID, EventTypeSessionFailed, events.SessionFailedPayload{
		SessionID: sessionID.String(),
		Reason:    "storage unavailable",
		FailedAt:  time.Now(),
	})))

	state := sm.GetState(sessionID)
	require.Equal(t, "FAILED", state.Status)
	require.Nil(t, state.CurrentPhase)
}

func TestStateManagerReturnsCopies(t *testing.T) {
	sm := NewSessionStateManager()
	sessionID := uuid.New()
	now := time.Now()

	require.NoError(t, sm.ProcessEvent(makeEvent(t, sessionID, EventTypePhaseStarted, events.PhaseStartedPayload{
		SessionID:   sessionID.String(),
		Phase:       "PREPARATION",
		StartedAt:   now,
		Deadline:    now.Add(30 * time.Second),
		DurationSec: 30,
	})))

	first := sm.GetState(sessionID)
	first.Status = "MUTATED"
	first.CurrentPhase.Phase = "MUTATED"

	second := sm.GetState(sessionID)
	require.Equal(t, "IN_PROGRESS", second.Status)
	require.Equal(t, "PREPARATION", second.CurrentPhase.Phase)
}

func TestStateManagerRejectsBadSessionID(t *testing.T) {
	sm := NewSessionStateManager()
	err := sm.ProcessEvent(&SessionEvent{
		ID:        uuid.New().String(),
		SessionID: "not-a-uuid",
		Type:      EventTypeSessionStarted,
		Data:      json.RawMessage(`{}`),
	})
	require.Error(t, err)
}

func TestCalculateTimeRemaining(t *testing.T) {
	now := time.Now()
	phase := &PhaseState{
		StartedAt: now,
		Deadline:  now.Add(30 * time.Second),
	}

	require.Equal(t, 30, phase.CalculateTimeRemaining(now))
	require.Equal(t, 15, phase.CalculateTimeRemaining(now.Add(15*time.Second)))
	require.Equal(t, 0, phase.CalculateTimeRemaining(now.Add(45*time.Second)))

	var zero PhaseState
	require.Equal(t, 0, zero.CalculateTimeRemaining(now))
}

func TestListActiveFiltersAndCopies(t *testing.T) {
	sm := NewSessionStateManager()
	liveID := uuid.New()
	doneID := uuid.New()
	now := time.Now()

	require.NoError(t, sm.ProcessEvent(makeEvent(t, liveID, EventTypeSessionStarted, events.SessionStartedPayload{
		SessionID: liveID.String(),
		StartedAt: now,
	})))
	require.NoError(t, sm.ProcessEvent(makeEvent(t, liveID, EventTypePhaseStarted, events.PhaseStartedPayload{
		SessionID:   liveID.String(),
		Phase:       "ANSWERING",
		StartedAt:   now,
		Deadline:    now.Add(30 * time.Second),
		DurationSec: 30,
	})))
	require.NoError(t, sm.ProcessEvent(makeEvent(t, doneID, EventTypeSessionCompleted, events.SessionCompletedPayload{
		SessionID:   doneID.String(),
		CompletedAt: now,
	})))

	active := sm.ListActive()
	require.Len(t, active, 1)
	require.Equal(t, liveID.String(), active[0].SessionID)
	require.Greater(t, active[0].CurrentPhase.TimeRemainingSec, 0)

	// Mutating a listed state must not touch the stored one.
	active[0].CurrentPhase.Phase = "MUTATED"
	require.Equal(t, "ANSWERING", sm.GetState(liveID).CurrentPhase.Phase)
}

func TestRemoveState(t *testing.T) {
	sm := NewSessionStateManager()
	sessionID := uuid.New()

	require.NoError(t, sm.ProcessEvent(makeEvent(t, sessionID, EventTypeSessionStarted, events.SessionStartedPayload{
		SessionID: sessionID.String(),
		StartedAt: time.Now(),
	})))
	require.NotNil(t, sm.GetState(sessionID))

	sm.RemoveState(sessionID)
	require.Nil(t, sm.GetState(sessionID))
}
