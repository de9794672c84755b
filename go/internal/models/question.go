package models

import (
	"time"

	"github.com/google/uuid"
)

// Question is one entry in a session's server-delivered question sequence.
type Question struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Index     int       `json:"index"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}
