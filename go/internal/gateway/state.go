package gateway

import (
	"sync"
	"time"

	"github.com/candidly/interviewd/go/internal/interview/events"
	"github.com/google/uuid"
)

// SessionState represents the current state of a session for reconnect
// synchronization.
type SessionState struct {
	SessionID      string      `json:"session_id"`
	Status         string      `json:"status"`
	CurrentPhase   *PhaseState `json:"current_phase,omitempty"`
	TotalQuestions int         `json:"total_questions"`
	AnsweredCount  int         `json:"answered_count"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

// PhaseState represents the phase currently on the clock.
type PhaseState struct {
	Phase            string    `json:"phase"`
	QuestionIndex    int       `json:"question_index"`
	Prompt           string    `json:"prompt,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	Deadline         time.Time `json:"deadline"`
	DurationSec      int       `json:"duration_sec"`
	TimeRemainingSec int       `json:"time_remaining_sec"`
}

// CalculateTimeRemaining calculates the remaining time for the phase.
func (p *PhaseState) CalculateTimeRemaining(now time.Time) int {
	if p.Deadline.IsZero() {
		return 0
	}
	remaining := int(p.Deadline.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// UpdateTimeRemaining refreshes the time remaining field.
func (p *PhaseState) UpdateTimeRemaining() {
	p.TimeRemainingSec = p.CalculateTimeRemaining(time.Now())
}

// SessionStateManager keeps the live state of sessions in memory, fed by
// events from the bus. It serves reconnecting clients that missed events.
type SessionStateManager struct {
	mu     sync.RWMutex
	states map[uuid.UUID]*SessionState
}

// NewSessionStateManager creates a new state manager
func NewSessionStateManager() *SessionStateManager {
	return &SessionStateManager{
		states: make(map[uuid.UUID]*SessionState),
	}
}

// GetState returns a copy of the current state for a session, or nil.
func (sm *SessionStateManager) GetState(sessionID uuid.UUID) *SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	state, ok := sm.states[sessionID]
	if !ok {
		return nil
	}
	copied := *state
	if state.CurrentPhase != nil {
		phase := *state.CurrentPhase
		copied.CurrentPhase = &phase
	}
	return &copied
}

// ListActive returns copies of all in-progress session states with the
// countdown fields recomputed for now.
func (sm *SessionStateManager) ListActive() []*SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	now := time.Now()
	active := make([]*SessionState, 0)
	for _, state := range sm.states {
		if state.Status != "IN_PROGRESS" {
			continue
		}
		copied := *state
		if state.CurrentPhase != nil {
			phase := *state.CurrentPhase
			phase.TimeRemainingSec = phase.CalculateTimeRemaining(now)
			copied.CurrentPhase = &phase
		}
		active = append(active, &copied)
	}
	return active
}

// RemoveState removes the state for a session (e.g. when completed).
func (sm *SessionStateManager) RemoveState(sessionID uuid.UUID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.states, sessionID)
}

// ProcessEvent updates the session state based on an incoming event
func (sm *SessionStateManager) ProcessEvent(event *SessionEvent) error {
	sessionID, err := uuid.Parse(event.SessionID)
	if err != nil {
		return err
	}

	payload, err := ParseEventPayload(event)
	if err != nil {
		return err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	state, ok := sm.states[sessionID]
	if !ok {
		state = &SessionState{
			SessionID: event.SessionID,
		}
		sm.states[sessionID] = state
	}

	switch event.Type {
	case EventTypeSessionStarted:
		p := payload.(events.SessionStartedPayload)
		state.Status = "IN_PROGRESS"
		state.TotalQuestions = p.TotalQuestions
		state.StartedAt = &p.StartedAt

	case EventTypePhaseStarted:
		p := payload.(events.PhaseStartedPayload)
		state.Status = "IN_PROGRESS"
		state.CurrentPhase = &PhaseState{
			Phase:         p.Phase,
			QuestionIndex: p.QuestionIndex,
			Prompt:        p.Prompt,
			StartedAt:     p.StartedAt,
			Deadline:      p.Deadline,
			DurationSec:   p.DurationSec,
		}
		state.CurrentPhase.UpdateTimeRemaining()

	case EventTypeAnswerSubmitted:
		state.AnsweredCount++
		state.CurrentPhase = nil

	case EventTypeSessionCompleted:
		p := payload.(events.SessionCompletedPayload)
		state.Status = "COMPLETED"
		state.CompletedAt = &p.CompletedAt
		state.CurrentPhase = nil

	case EventTypeSessionFailed:
		state.Status = "FAILED"
		state.CurrentPhase = nil
	}

	return nil
}
