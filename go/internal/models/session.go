package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus defines the lifecycle status of an interview session.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "PENDING"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusFailed     SessionStatus = "FAILED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
)

// Phase is the timed sub-period the session is currently in for the
// active question.
type Phase string

const (
	PhaseIdle        Phase = "IDLE"
	PhasePreparation Phase = "PREPARATION"
	PhaseAnswering   Phase = "ANSWERING"
	PhaseFinalizing  Phase = "FINALIZING"
	PhaseCompleted   Phase = "COMPLETED"
)

// SessionSettings holds JSONB configuration for a session.
type SessionSettings struct {
	PrepSec    int `json:"prep_sec"`                // 0 disables the preparation phase
	AnswerSec  int `json:"answer_sec"`              // maximum answer duration per question
	SilenceSec int `json:"silence_sec,omitempty"`   // 0 disables silence finalization
	// FinalizeOnUtteranceEnd finalizes the answer as soon as the
	// transcription collaborator reports the utterance complete.
	FinalizeOnUtteranceEnd bool `json:"finalize_on_utterance_end,omitempty"`
}

// PrepDuration returns the preparation phase duration.
func (s SessionSettings) PrepDuration() time.Duration {
	return time.Duration(s.PrepSec) * time.Second
}

// AnswerDuration returns the maximum answer duration.
func (s SessionSettings) AnswerDuration() time.Duration {
	return time.Duration(s.AnswerSec) * time.Second
}

// SilenceDuration returns the quiet period after which an answer is
// finalized automatically.
func (s SessionSettings) SilenceDuration() time.Duration {
	return time.Duration(s.SilenceSec) * time.Second
}

// Session represents an interview session owned by an organization.
type Session struct {
	ID            uuid.UUID       `json:"id"`
	OrgID         uuid.UUID       `json:"org_id"`
	CandidateName string          `json:"candidate_name"`
	Status        SessionStatus   `json:"status"`
	Settings      SessionSettings `json:"settings"`
	// QuestionIndex points at the question currently being asked.
	// It only ever advances.
	QuestionIndex int        `json:"question_index"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
