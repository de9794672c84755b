package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	InsertEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error
}

// App handles outbox business logic
type App struct {
	repo OutboxRepository
}

// NewApp creates a new outbox App
func NewApp(repo OutboxRepository) *App {
	return &App{
		repo: repo,
	}
}

func (a *App) insertEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	if err := a.validateEventPayload(payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", eventType, err)
	}

	if err := a.repo.InsertEvent(ctx, sessionID, eventType, payload); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("event_type", eventType).
		Msg("outbox event inserted")

	return nil
}

// InsertSessionStarted inserts a SessionStarted event into the outbox
func (a *App) InsertSessionStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, EventTypeSessionStarted, payload)
}

// InsertPhaseStarted inserts a PhaseStarted event into the outbox
func (a *App) InsertPhaseStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, EventTypePhaseStarted, payload)
}

// InsertAnswerSubmitted inserts an AnswerSubmitted event into the outbox
func (a *App) InsertAnswerSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, EventTypeAnswerSubmitted, payload)
}

// InsertSessionCompleted inserts a SessionCompleted event into the outbox
func (a *App) InsertSessionCompleted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, EventTypeSessionCompleted, payload)
}

// InsertSessionFailed inserts a SessionFailed event into the outbox
func (a *App) InsertSessionFailed(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, sessionID, EventTypeSessionFailed, payload)
}

// validateEventPayload validates that the event payload is not empty
func (a *App) validateEventPayload(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("event payload cannot be empty")
	}
	return nil
}
