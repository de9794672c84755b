package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/candidly/interviewd/go/internal/interview/events"
	"github.com/candidly/interviewd/go/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionRepository defines what the app layer needs from the repository
type SessionRepository interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	MarkSessionStarted(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error)
	MarkSessionCompleted(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error)
	MarkSessionFailed(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error)
	MarkSessionCancelled(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error)
	ListActiveSessions(ctx context.Context) ([]models.Session, error)
	GetQuestion(ctx context.Context, sessionID uuid.UUID, index int) (*models.Question, error)
	CountQuestions(ctx context.Context, sessionID uuid.UUID) (int, error)
	SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) error
	ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]models.Answer, error)
}

// OutboxApp defines what the app layer needs from the outbox app
type OutboxApp interface {
	InsertSessionStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertAnswerSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertSessionCompleted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertSessionFailed(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// App handles interview session business logic
type App struct {
	repo   SessionRepository
	outbox OutboxApp
}

// NewApp creates a new interview App
func NewApp(repo SessionRepository, outbox OutboxApp) *App {
	return &App{
		repo:   repo,
		outbox: outbox,
	}
}

// CreateSession creates a pending session with its question sequence.
func (a *App) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	if err := a.validateCreateSessionRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	session, err := a.repo.CreateSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("org_id", session.OrgID.String()).
		Int("questions", len(req.Prompts)).
		Msg("session created")

	return session, nil
}

// StartSession moves a pending session to in progress and returns it along
// with the question at the current index. Emits a SessionStarted event.
func (a *App) StartSession(ctx context.Context, id uuid.UUID) (*models.Session, *models.Question, error) {
	now := time.Now()

	session, err := a.repo.MarkSessionStarted(ctx, id, now)
	if err != nil {
		return nil, nil, err
	}

	question, err := a.repo.GetQuestion(ctx, id, session.QuestionIndex)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get first question: %w", err)
	}

	total, err := a.repo.CountQuestions(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count questions: %w", err)
	}

	payload := events.SessionStartedPayload{
		SessionID:      session.ID.String(),
		OrgID:          session.OrgID.String(),
		CandidateName:  session.CandidateName,
		TotalQuestions: total,
		StartedAt:      now,
	}
	a.emit(ctx, session.ID, "SessionStarted", payload, a.outbox.InsertSessionStarted)

	log.Info().
		Str("session_id", session.ID.String()).
		Int("total_questions", total).
		Msg("session started")

	return session, question, nil
}

// GetSession retrieves a session by ID
func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return a.repo.GetSession(ctx, id)
}

// GetQuestion retrieves a session's question at an index
func (a *App) GetQuestion(ctx context.Context, sessionID uuid.UUID, index int) (*models.Question, error) {
	return a.repo.GetQuestion(ctx, sessionID, index)
}

// ListActiveSessions returns all in-progress sessions
func (a *App) ListActiveSessions(ctx context.Context) ([]models.Session, error) {
	return a.repo.ListActiveSessions(ctx)
}

// ListAnswers returns all answers submitted for a session
func (a *App) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]models.Answer, error) {
	return a.repo.ListAnswers(ctx, sessionID)
}

// SubmitAnswer persists a finalized transcript, advances the question index
// and returns the next question. done is true when the question supply is
// exhausted, in which case the session is marked completed.
func (a *App) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*models.Question, bool, error) {
	session, err := a.repo.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, false, err
	}
	if session.Status != models.SessionStatusInProgress {
		return nil, false, ErrSessionNotActive
	}

	if err := a.repo.SubmitAnswer(ctx, req); err != nil {
		return nil, false, err
	}

	payload := events.AnswerSubmittedPayload{
		SessionID:     req.SessionID.String(),
		QuestionIndex: req.QuestionIndex,
		Transcript:    req.Transcript,
		Reason:        string(req.Reason),
		SubmittedAt:   req.SubmittedAt,
	}
	a.emit(ctx, req.SessionID, "AnswerSubmitted", payload, a.outbox.InsertAnswerSubmitted)

	log.Info().
		Str("session_id", req.SessionID.String()).
		Int("question_index", req.QuestionIndex).
		Str("reason", string(req.Reason)).
		Int("transcript_len", len(req.Transcript)).
		Msg("answer submitted")

	total, err := a.repo.CountQuestions(ctx, req.SessionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to count questions: %w", err)
	}

	nextIndex := req.QuestionIndex + 1
	if nextIndex >= total {
		if err := a.completeSession(ctx, session, total); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	next, err := a.repo.GetQuestion(ctx, req.SessionID, nextIndex)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get next question: %w", err)
	}
	return next, false, nil
}

func (a *App) completeSession(ctx context.Context, session *models.Session, totalAnswers int) error {
	now := time.Now()

	updated, err := a.repo.MarkSessionCompleted(ctx, session.ID, now)
	if err != nil {
		return fmt.Errorf("failed to mark session completed: %w", err)
	}

	duration := ""
	if updated.StartedAt != nil {
		duration = now.Sub(*updated.StartedAt).String()
	}
	payload := events.SessionCompletedPayload{
		SessionID:    session.ID.String(),
		CompletedAt:  now,
		Duration:     duration,
		TotalAnswers: totalAnswers,
	}
	a.emit(ctx, session.ID, "SessionCompleted", payload, a.outbox.InsertSessionCompleted)

	log.Info().
		Str("session_id", session.ID.String()).
		Str("duration", duration).
		Msg("session completed")

	return nil
}

// FailSession marks a session failed and emits a SessionFailed event.
func (a *App) FailSession(ctx context.Context, id uuid.UUID, questionIndex int, reason string) error {
	now := time.Now()

	if _, err := a.repo.MarkSessionFailed(ctx, id, now); err != nil {
		return fmt.Errorf("failed to mark session failed: %w", err)
	}

	payload := events.SessionFailedPayload{
		SessionID:     id.String(),
		QuestionIndex: questionIndex,
		Reason:        reason,
		FailedAt:      now,
	}
	a.emit(ctx, id, "SessionFailed", payload, a.outbox.InsertSessionFailed)

	log.Warn().
		Str("session_id", id.String()).
		Int("question_index", questionIndex).
		Str("reason", reason).
		Msg("session failed")

	return nil
}

// CancelSession marks a session cancelled.
func (a *App) CancelSession(ctx context.Context, id uuid.UUID) error {
	if _, err := a.repo.MarkSessionCancelled(ctx, id, time.Now()); err != nil {
		return fmt.Errorf("failed to cancel session: %w", err)
	}
	log.Info().Str("session_id", id.String()).Msg("session cancelled")
	return nil
}

// emit marshals an event payload and inserts it into the outbox. Outbox
// failures are logged, not propagated: the state change already committed.
func (a *App) emit(ctx context.Context, sessionID uuid.UUID, eventType string, payload interface{}, insert func(context.Context, uuid.UUID, []byte) error) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		return
	}
	if err := insert(ctx, sessionID, data); err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Str("event_type", eventType).
			Msg("failed to insert outbox event")
	}
}

func (a *App) validateCreateSessionRequest(req CreateSessionRequest) error {
	if req.OrgID == uuid.Nil {
		return fmt.Errorf("org_id is required")
	}
	if req.CandidateName == "" {
		return fmt.Errorf("candidate_name is required")
	}
	if len(req.Prompts) == 0 {
		return fmt.Errorf("at least one question is required")
	}
	if req.Settings.AnswerSec <= 0 {
		return fmt.Errorf("answer_sec must be positive")
	}
	if req.Settings.PrepSec < 0 {
		return fmt.Errorf("prep_sec must not be negative")
	}
	if req.Settings.SilenceSec < 0 {
		return fmt.Errorf("silence_sec must not be negative")
	}
	return nil
}
