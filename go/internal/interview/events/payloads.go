package events

import (
	"time"
)

// Event payload types that are shared between the interview, engine and
// gateway packages.

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	SessionID      string    `json:"session_id"`
	OrgID          string    `json:"org_id"`
	CandidateName  string    `json:"candidate_name"`
	TotalQuestions int       `json:"total_questions"`
	StartedAt      time.Time `json:"started_at"`
}

// PhaseStartedPayload is the payload for a PhaseStarted event.
// Deadline and DurationSec let clients run their own countdown; the
// server-side timer stays authoritative.
type PhaseStartedPayload struct {
	SessionID     string    `json:"session_id"`
	QuestionIndex int       `json:"question_index"`
	Phase         string    `json:"phase"`
	Prompt        string    `json:"prompt,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	Deadline      time.Time `json:"deadline"`
	DurationSec   int       `json:"duration_sec"`
}

// AnswerSubmittedPayload is the payload for an AnswerSubmitted event
type AnswerSubmittedPayload struct {
	SessionID     string    `json:"session_id"`
	QuestionIndex int       `json:"question_index"`
	Transcript    string    `json:"transcript"`
	Reason        string    `json:"reason"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// SessionCompletedPayload is the payload for a SessionCompleted event
type SessionCompletedPayload struct {
	SessionID    string    `json:"session_id"`
	CompletedAt  time.Time `json:"completed_at"`
	Duration     string    `json:"duration"`
	TotalAnswers int       `json:"total_answers"`
}

// SessionFailedPayload is the payload for a SessionFailed event
type SessionFailedPayload struct {
	SessionID     string    `json:"session_id"`
	QuestionIndex int       `json:"question_index"`
	Reason        string    `json:"reason"`
	FailedAt      time.Time `json:"failed_at"`
}
