package gateway

import (
	"encoding/json"
	"time"

	"github.com/candidly/interviewd/go/internal/interview/events"
)

// SessionEvent represents the base structure for all session events sent to
// WebSocket clients.
type SessionEvent struct {
	ID        string          `json:"id"`         // Event UUID
	SessionID string          `json:"session_id"` // Session UUID
	Type      EventType       `json:"type"`       // Event type
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// EventType represents the type of session event
type EventType string

const (
	EventTypeSessionStarted   EventType = "SessionStarted"
	EventTypePhaseStarted     EventType = "PhaseStarted"
	EventTypeAnswerSubmitted  EventType = "AnswerSubmitted"
	EventTypeSessionCompleted EventType = "SessionCompleted"
	EventTypeSessionFailed    EventType = "SessionFailed"
)

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *SessionEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeSessionStarted:
		var payload events.SessionStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePhaseStarted:
		var payload events.PhaseStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAnswerSubmitted:
		var payload events.AnswerSubmittedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionCompleted:
		var payload events.SessionCompletedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionFailed:
		var payload events.SessionFailedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}

// ClientFrame is a message received from a connected client. The client is
// the transcription collaborator here: it streams transcript text and
// voice-activity samples, and carries the candidate's explicit actions.
type ClientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client frame types.
const (
	FrameTranscriptUpdate   = "transcript.update"
	FrameTranscriptComplete = "transcript.complete"
	FrameVoiceActivity      = "vad.tick"
	FrameAnswerStart        = "answer.start"
	FrameAnswerStop         = "answer.stop"
)

// TranscriptFrameData carries transcript text from the client.
type TranscriptFrameData struct {
	Text string `json:"text"`
}

// VoiceActivityFrameData carries one voice-activity sample.
type VoiceActivityFrameData struct {
	HasSpeech bool `json:"has_speech"`
}
