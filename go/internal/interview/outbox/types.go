package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent represents an outbox event for the application layer
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// Event type names as stored in the outbox table and published on the bus.
const (
	EventTypeSessionStarted   = "SessionStarted"
	EventTypePhaseStarted     = "PhaseStarted"
	EventTypeAnswerSubmitted  = "AnswerSubmitted"
	EventTypeSessionCompleted = "SessionCompleted"
	EventTypeSessionFailed    = "SessionFailed"
)
