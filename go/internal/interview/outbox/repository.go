package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

// Repository implements outbox persistence on database/sql.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new outbox repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) insert(ctx context.Context, execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, sessionID uuid.UUID, eventType string, payload []byte, metadata pqtype.NullRawMessage) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO interview_outbox (id, session_id, event_type, payload, metadata)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), sessionID, eventType, payload, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

// InsertEvent inserts an event of the given type into the outbox.
func (r *Repository) InsertEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	return r.insert(ctx, r.db, sessionID, eventType, payload, pqtype.NullRawMessage{})
}

// InsertEventWithMetadata inserts an event carrying optional metadata
// (producer instance, trace IDs) alongside the payload.
func (r *Repository) InsertEventWithMetadata(ctx context.Context, sessionID uuid.UUID, eventType string, payload, metadata []byte) error {
	meta := pqtype.NullRawMessage{}
	if len(metadata) > 0 {
		meta = pqtype.NullRawMessage{RawMessage: metadata, Valid: true}
	}
	return r.insert(ctx, r.db, sessionID, eventType, payload, meta)
}

// FetchUnsentTx fetches a batch of unsent events inside tx, locking the rows
// so concurrent workers skip them.
func (r *Repository) FetchUnsentTx(ctx context.Context, tx *sql.Tx, limit int32) ([]OutboxEvent, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, session_id, event_type, payload, metadata, created_at
		FROM interview_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		var metadata pqtype.NullRawMessage
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.Payload, &metadata, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if metadata.Valid {
			ev.Metadata = metadata.RawMessage
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkSentTx marks the given events as sent inside tx.
func (r *Repository) MarkSentTx(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE interview_outbox
		SET sent_at = now()
		WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox events as sent: %w", err)
	}
	return nil
}

// FetchByID fetches a single unsent outbox event by ID.
func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	var ev OutboxEvent
	var metadata pqtype.NullRawMessage
	err := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, event_type, payload, metadata, created_at
		FROM interview_outbox
		WHERE id = $1 AND sent_at IS NULL`,
		id,
	).Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.Payload, &metadata, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox event not found or already sent")
		}
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	if metadata.Valid {
		ev.Metadata = metadata.RawMessage
	}
	return &ev, nil
}

// CountPending returns the number of unsent events.
func (r *Repository) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM interview_outbox WHERE sent_at IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending outbox events: %w", err)
	}
	return count, nil
}
