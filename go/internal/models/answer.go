package models

import (
	"time"

	"github.com/google/uuid"
)

// FinalizeReason records what triggered the finalization of an answer.
type FinalizeReason string

const (
	FinalizeReasonTimer     FinalizeReason = "TIMER"
	FinalizeReasonUser      FinalizeReason = "USER"
	FinalizeReasonSilence   FinalizeReason = "SILENCE"
	FinalizeReasonUtterance FinalizeReason = "UTTERANCE"
)

// Answer is the finalized transcript for one question of a session.
type Answer struct {
	ID            uuid.UUID      `json:"id"`
	SessionID     uuid.UUID      `json:"session_id"`
	QuestionIndex int            `json:"question_index"`
	Transcript    string         `json:"transcript"`
	Reason        FinalizeReason `json:"reason"`
	StartedAt     time.Time      `json:"started_at"`
	SubmittedAt   time.Time      `json:"submitted_at"`
}
