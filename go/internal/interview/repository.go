package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/candidly/interviewd/go/internal/models"
	"github.com/candidly/interviewd/go/internal/sqlutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository implements session data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new interview repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const sessionColumns = `id, org_id, candidate_name, status, settings, question_index, started_at, completed_at, created_at, updated_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	var settings []byte
	err := row.Scan(
		&s.ID, &s.OrgID, &s.CandidateName, &s.Status, &settings,
		&s.QuestionIndex, &s.StartedAt, &s.CompletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(settings, &s.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode session settings: %w", err)
	}
	return &s, nil
}

// CreateSession inserts a session and its question sequence in one transaction.
func (r *Repository) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	settings, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session settings: %w", err)
	}

	var session *models.Session
	err = sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO interview_sessions (id, org_id, candidate_name, status, settings, question_index)
			VALUES ($1, $2, $3, $4, $5, 0)
			RETURNING `+sessionColumns,
			uuid.New(), req.OrgID, req.CandidateName, models.SessionStatusPending, settings,
		)
		s, err := scanSession(row)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		for i, prompt := range req.Prompts {
			_, err := tx.Exec(ctx, `
				INSERT INTO interview_questions (id, session_id, idx, prompt)
				VALUES ($1, $2, $3, $4)`,
				uuid.New(), s.ID, i, prompt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert question %d: %w", i, err)
			}
		}

		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession retrieves a session by ID
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// MarkSessionStarted moves a pending session to in progress.
func (r *Repository) MarkSessionStarted(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE interview_sessions
		SET status = $2, started_at = $3, updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+sessionColumns,
		id, models.SessionStatusInProgress, at, models.SessionStatusPending,
	)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// Either missing or not pending; disambiguate for the caller.
			if _, getErr := r.GetSession(ctx, id); getErr == nil {
				return nil, ErrSessionNotStartable
			}
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// MarkSessionCompleted marks a session as completed.
func (r *Repository) MarkSessionCompleted(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	return r.markTerminal(ctx, id, models.SessionStatusCompleted, at)
}

// MarkSessionFailed marks a session as failed.
func (r *Repository) MarkSessionFailed(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	return r.markTerminal(ctx, id, models.SessionStatusFailed, at)
}

// MarkSessionCancelled marks a session as cancelled.
func (r *Repository) MarkSessionCancelled(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	return r.markTerminal(ctx, id, models.SessionStatusCancelled, at)
}

// markTerminal moves a pending or in-progress session to a terminal state.
// Terminal states are final: a completed session cannot be cancelled or
// failed afterwards.
func (r *Repository) markTerminal(ctx context.Context, id uuid.UUID, status models.SessionStatus, at time.Time) (*models.Session, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE interview_sessions
		SET status = $2, completed_at = $3, updated_at = now()
		WHERE id = $1 AND status IN ($4, $5)
		RETURNING `+sessionColumns,
		id, status, at, models.SessionStatusPending, models.SessionStatusInProgress,
	)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// Either missing or already terminal; disambiguate for the caller.
			if _, getErr := r.GetSession(ctx, id); getErr == nil {
				return nil, ErrSessionFinished
			}
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListActiveSessions returns all in-progress sessions.
func (r *Repository) ListActiveSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM interview_sessions
		WHERE status = $1
		ORDER BY started_at`,
		models.SessionStatusInProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// GetQuestion retrieves the question at a given index for a session.
func (r *Repository) GetQuestion(ctx context.Context, sessionID uuid.UUID, index int) (*models.Question, error) {
	var q models.Question
	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, idx, prompt, created_at
		FROM interview_questions
		WHERE session_id = $1 AND idx = $2`,
		sessionID, index,
	).Scan(&q.ID, &q.SessionID, &q.Index, &q.Prompt, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &q, nil
}

// CountQuestions returns the size of a session's question sequence.
func (r *Repository) CountQuestions(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM interview_questions WHERE session_id = $1`,
		sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// SubmitAnswer inserts the answer and advances the session's question index
// in one transaction. The unique constraint on (session_id, question_index)
// and the guarded UPDATE together enforce at-most-once submission per index.
func (r *Repository) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) error {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO interview_answers (id, session_id, question_index, transcript, reason, started_at, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), req.SessionID, req.QuestionIndex, req.Transcript, req.Reason, req.StartedAt, req.SubmittedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrAnswerExists
			}
			return fmt.Errorf("failed to insert answer: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE interview_sessions
			SET question_index = $2 + 1, updated_at = now()
			WHERE id = $1 AND question_index = $2`,
			req.SessionID, req.QuestionIndex,
		)
		if err != nil {
			return fmt.Errorf("failed to advance question index: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrStaleQuestionIndex
		}
		return nil
	})
}

// ListAnswers returns all answers for a session ordered by question index.
func (r *Repository) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]models.Answer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, question_index, transcript, reason, started_at, submitted_at
		FROM interview_answers
		WHERE session_id = $1
		ORDER BY question_index`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionIndex, &a.Transcript, &a.Reason, &a.StartedAt, &a.SubmittedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
