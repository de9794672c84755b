package interview

import (
	"context"
	"testing"
	"time"

	"github.com/candidly/interviewd/go/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory SessionRepository.
type fakeRepo struct {
	sessions  map[uuid.UUID]*models.Session
	questions map[uuid.UUID][]models.Question
	answers   map[uuid.UUID][]models.Answer
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sessions:  make(map[uuid.UUID]*models.Session),
		questions: make(map[uuid.UUID][]models.Question),
		answers:   make(map[uuid.UUID][]models.Answer),
	}
}

func (r *fakeRepo) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	session := &models.Session{
		ID:            uuid.New(),
		OrgID:         req.OrgID,
		CandidateName: req.CandidateName,
		Status:        models.SessionStatusPending,
		Settings:      req.Settings,
		CreatedAt:     time.Now(),
	}
	r.sessions[session.ID] = session
	for i, prompt := range req.Prompts {
		r.questions[session.ID] = append(r.questions[session.ID], models.Question{
			ID:        uuid.New(),
			SessionID: session.ID,
			Index:     i,
			Prompt:    prompt,
		})
	}
	return session, nil
}

func (r *fakeRepo) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *fakeRepo) MarkSessionStarted(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Status != models.SessionStatusPending {
		return nil, ErrSessionNotStartable
	}
	session.Status = models.SessionStatusInProgress
	session.StartedAt = &at
	copied := *session
	return &copied, nil
}

func (r *fakeRepo) markTerminal(id uuid.UUID, status models.SessionStatus, at time.Time) (*models.Session, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Status != models.SessionStatusPending && session.Status != models.SessionStatusInProgress {
		return nil, ErrSessionFinished
	}
	session.Status = status
	session.CompletedAt = &at
	copied := *session
	return &copied, nil
}

func (r *fakeRepo) MarkSessionCompleted(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	return r.markTerminal(id, models.SessionStatusCompleted, at)
}

func (r *fakeRepo) MarkSessionFailed(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	return r.markTerminal(id, models.SessionStatusFailed, at)
}

func (r *fakeRepo) MarkSessionCancelled(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	return r.markTerminal(id, models.SessionStatusCancelled, at)
}

func (r *fakeRepo) ListActiveSessions(ctx context.Context) ([]models.Session, error) {
	var active []models.Session
	for _, session := range r.sessions {
		if session.Status == models.SessionStatusInProgress {
			active = append(active, *session)
		}
	}
	return active, nil
}

func (r *fakeRepo) GetQuestion(ctx context.Context, sessionID uuid.UUID, index int) (*models.Question, error) {
	questions := r.questions[sessionID]
	if index < 0 || index >= len(questions) {
		return nil, ErrQuestionNotFound
	}
	q := questions[index]
	return &q, nil
}

func (r *fakeRepo) CountQuestions(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return len(r.questions[sessionID]), nil
}

func (r *fakeRepo) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) error {
	session, ok := r.sessions[req.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	for _, a := range r.answers[req.SessionID] {
		if a.QuestionIndex == req.QuestionIndex {
			return ErrAnswerExists
		}
	}
	if session.QuestionIndex != req.QuestionIndex {
		return ErrStaleQuestionIndex
	}
	r.answers[req.SessionID] = append(r.answers[req.SessionID], models.Answer{
		ID:            uuid.New(),
		SessionID:     req.SessionID,
		QuestionIndex: req.QuestionIndex,
		Transcript:    req.Transcript,
		Reason:        req.Reason,
		StartedAt:     req.StartedAt,
		SubmittedAt:   req.SubmittedAt,
	})
	session.QuestionIndex = req.QuestionIndex + 1
	return nil
}

func (r *fakeRepo) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]models.Answer, error) {
	return r.answers[sessionID], nil
}

// recordingOutbox records event types as they are inserted.
type recordingOutbox struct {
	events []string
}

func (o *recordingOutbox) record(eventType string, payload []byte) error {
	o.events = append(o.events, eventType)
	return nil
}

func (o *recordingOutbox) InsertSessionStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return o.record("SessionStarted", payload)
}

func (o *recordingOutbox) InsertAnswerSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return o.record("AnswerSubmitted", payload)
}

func (o *recordingOutbox) InsertSessionCompleted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return o.record("SessionCompleted", payload)
}

func (o *recordingOutbox) InsertSessionFailed(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return o.record("SessionFailed", payload)
}

func newTestApp() (*App, *fakeRepo, *recordingOutbox) {
	repo := newFakeRepo()
	outbox := &recordingOutbox{}
	return NewApp(repo, outbox), repo, outbox
}

func validCreateRequest() CreateSessionRequest {
	return CreateSessionRequest{
		OrgID:         uuid.New(),
		CandidateName: "Jordan",
		Settings:      models.SessionSettings{PrepSec: 30, AnswerSec: 30},
		Prompts:       []string{"First question", "Second question"},
	}
}

func TestCreateSessionValidation(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateSessionRequest)
	}{
		{"missing org", func(r *CreateSessionRequest) { r.OrgID = uuid.Nil }},
		{"missing candidate", func(r *CreateSessionRequest) { r.CandidateName = "" }},
		{"no questions", func(r *CreateSessionRequest) { r.Prompts = nil }},
		{"zero answer duration", func(r *CreateSessionRequest) { r.Settings.AnswerSec = 0 }},
		{"negative prep", func(r *CreateSessionRequest) { r.Settings.PrepSec = -1 }},
		{"negative silence", func(r *CreateSessionRequest) { r.Settings.SilenceSec = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)
			_, err := app.CreateSession(ctx, req)
			require.Error(t, err)
		})
	}
}

func TestStartSessionEmitsEventAndReturnsFirstQuestion(t *testing.T) {
	app, _, outbox := newTestApp()
	ctx := context.Background()

	created, err := app.CreateSession(ctx, validCreateRequest())
	require.NoError(t, err)

	session, question, err := app.StartSession(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusInProgress, session.Status)
	require.Equal(t, 0, question.Index)
	require.Equal(t, "First question", question.Prompt)
	require.Equal(t, []string{"SessionStarted"}, outbox.events)
}

func TestStartSessionTwiceFails(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()

	created, err := app.CreateSession(ctx, validCreateRequest())
	require.NoError(t, err)

	_, _, err = app.StartSession(ctx, created.ID)
	require.NoError(t, err)

	_, _, err = app.StartSession(ctx, created.ID)
	require.ErrorIs(t, err, ErrSessionNotStartable)
}

func TestSubmitAnswerAdvancesAndCompletes(t *testing.T) {
	app, repo, outbox := newTestApp()
	ctx := context.Background()

	created, err := app.CreateSession(ctx, validCreateRequest())
	require.NoError(t, err)
	_, _, err = app.StartSession(ctx, created.ID)
	require.NoError(t, err)

	now := time.Now()
	next, done, err := app.SubmitAnswer(ctx, SubmitAnswerRequest{
		SessionID:     created.ID,
		QuestionIndex: 0,
		Transcript:    "answer one",
		Reason:        models.FinalizeReasonUser,
		StartedAt:     now,
		SubmittedAt:   now.Add(20 * time.Second),
	})
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, 1, next.Index)

	next, done, err = app.SubmitAnswer(ctx, SubmitAnswerRequest{
		SessionID:     created.ID,
		QuestionIndex: 1,
		Transcript:    "answer two",
		Reason:        models.FinalizeReasonTimer,
		StartedAt:     now,
		SubmittedAt:   now.Add(time.Minute),
	})
	require.NoError(t, err)
	require.True(t, done)
	require.Nil(t, next)

	session, err := app.GetSession(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusCompleted, session.Status)

	answers, err := app.ListAnswers(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	require.Equal(t, 2, repo.sessions[created.ID].QuestionIndex)

	require.Equal(t, []string{
		"SessionStarted",
		"AnswerSubmitted",
		"AnswerSubmitted",
		"SessionCompleted",
	}, outbox.events)
}

func TestSubmitAnswerRejectsDuplicateIndex(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()

	created, err := app.CreateSession(ctx, validCreateRequest())
	require.NoError(t, err)
	_, _, err = app.StartSession(ctx, created.ID)
	require.NoError(t, err)

	req := SubmitAnswerRequest{
		SessionID:     created.ID,
		QuestionIndex: 0,
		Transcript:    "only once",
		Reason:        models.FinalizeReasonUser,
		SubmittedAt:   time.Now(),
	}
	_, _, err = app.SubmitAnswer(ctx, req)
	require.NoError(t, err)

	_, _, err = app.SubmitAnswer(ctx, req)
	require.ErrorIs(t, err, ErrAnswerExists)
}

func TestSubmitAnswerRequiresActiveSession(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()

	created, err := app.CreateSession(ctx, validCreateRequest())
	require.NoError(t, err)

	_, _, err = app.SubmitAnswer(ctx, SubmitAnswerRequest{
		SessionID:     created.ID,
		QuestionIndex: 0,
		SubmittedAt:   time.Now(),
	})
	require.ErrorIs(t, err, ErrSessionNotActive)
}

func TestFailSessionEmitsEvent(t *testing.T) {
	app, _, outbox := newTestApp()
	ctx := context.Background()

	created, err := app.CreateSession(ctx, validCreateRequest())
	require.NoError(t, err)
	_, _, err = app.StartSession(ctx, created.ID)
	require.NoError(t, err)

	require.NoError(t, app.FailSession(ctx, created.ID, 0, "submit retries exhausted"))

	session, err := app.GetSession(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusFailed, session.Status)
	require.Contains(t, outbox.events, "SessionFailed")
}

func TestCancelSession(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()

	created, err := app.CreateSession(ctx, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, app.CancelSession(ctx, created.ID))

	session, err := app.GetSession(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusCancelled, session.Status)
}

func TestCancelSessionAfterCompletionIsRejected(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()

	created, err := app.CreateSession(ctx, validCreateRequest())
	require.NoError(t, err)
	_, _, err = app.StartSession(ctx, created.ID)
	require.NoError(t, err)

	now := time.Now()
	for i := 0; i < 2; i++ {
		_, _, err = app.SubmitAnswer(ctx, SubmitAnswerRequest{
			SessionID:     created.ID,
			QuestionIndex: i,
			Transcript:    "answer",
			Reason:        models.FinalizeReasonUser,
			StartedAt:     now,
			SubmittedAt:   now,
		})
		require.NoError(t, err)
	}

	completed, err := app.GetSession(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusCompleted, completed.Status)
	completedAt := completed.CompletedAt
	require.NotNil(t, completedAt)

	err = app.CancelSession(ctx, created.ID)
	require.ErrorIs(t, err, ErrSessionFinished)

	// The terminal state and its timestamp are untouched.
	session, err := app.GetSession(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusCompleted, session.Status)
	require.Equal(t, completedAt, session.CompletedAt)
}
