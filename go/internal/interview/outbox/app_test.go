package outbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	sessionID uuid.UUID
	eventType string
	payload   []byte
}

type fakeOutboxRepo struct {
	events []recordedEvent
}

func (r *fakeOutboxRepo) InsertEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	r.events = append(r.events, recordedEvent{sessionID, eventType, payload})
	return nil
}

func TestAppInsertsTypedEvents(t *testing.T) {
	repo := &fakeOutboxRepo{}
	app := NewApp(repo)
	ctx := context.Background()
	sessionID := uuid.New()
	payload := []byte(`{"session_id":"x"}`)

	require.NoError(t, app.InsertSessionStarted(ctx, sessionID, payload))
	require.NoError(t, app.InsertPhaseStarted(ctx, sessionID, payload))
	require.NoError(t, app.InsertAnswerSubmitted(ctx, sessionID, payload))
	require.NoError(t, app.InsertSessionCompleted(ctx, sessionID, payload))
	require.NoError(t, app.InsertSessionFailed(ctx, sessionID, payload))

	require.Len(t, repo.events, 5)
	require.Equal(t, EventTypeSessionStarted, repo.events[0].eventType)
	require.Equal(t, EventTypePhaseStarted, repo.events[1].eventType)
	require.Equal(t, EventTypeAnswerSubmitted, repo.events[2].eventType)
	require.Equal(t, EventTypeSessionCompleted, repo.events[3].eventType)
	require.Equal(t, EventTypeSessionFailed, repo.events[4].eventType)
}

func TestAppRejectsEmptyPayload(t *testing.T) {
	repo := &fakeOutboxRepo{}
	app := NewApp(repo)

	err := app.InsertSessionStarted(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	require.Empty(t, repo.events)
}

func TestMockPublisherRecordsEvents(t *testing.T) {
	pub := NewMockPublisher()
	event := OutboxEvent{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		EventType: EventTypePhaseStarted,
		Payload:   []byte(`{}`),
	}

	require.NoError(t, pub.Publish(context.Background(), event))
	require.Len(t, pub.Events, 1)
	require.Equal(t, event.ID, pub.Events[0].ID)
}
