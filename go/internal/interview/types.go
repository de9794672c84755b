package interview

import (
	"time"

	"github.com/candidly/interviewd/go/internal/models"
	"github.com/google/uuid"
)

// CreateSessionRequest carries everything needed to set up a session and its
// question sequence.
type CreateSessionRequest struct {
	OrgID         uuid.UUID              `json:"org_id"`
	CandidateName string                 `json:"candidate_name"`
	Settings      models.SessionSettings `json:"settings"`
	Prompts       []string               `json:"questions"`
}

// SubmitAnswerRequest carries a finalized transcript for one question.
type SubmitAnswerRequest struct {
	SessionID     uuid.UUID
	QuestionIndex int
	Transcript    string
	Reason        models.FinalizeReason
	StartedAt     time.Time
	SubmittedAt   time.Time
}
