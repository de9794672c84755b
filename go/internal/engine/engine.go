package engine

import (
	"context"
	"sync"
	"time"

	"github.com/candidly/interviewd/go/internal/interview"
	"github.com/candidly/interviewd/go/internal/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// InterviewApp defines what the engine needs from the interview app layer.
type InterviewApp interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetQuestion(ctx context.Context, sessionID uuid.UUID, index int) (*models.Question, error)
	SubmitAnswer(ctx context.Context, req interview.SubmitAnswerRequest) (*models.Question, bool, error)
	FailSession(ctx context.Context, id uuid.UUID, questionIndex int, reason string) error
}

// OutboxApp defines what the engine needs from the outbox app
type OutboxApp interface {
	InsertPhaseStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// Config holds engine tuning knobs.
type Config struct {
	// SubmitRetries is the total number of submit attempts per finalize.
	SubmitRetries int
	RetryDelay    time.Duration
	CommandBuffer int
}

// DefaultConfig returns default engine configuration
func DefaultConfig() Config {
	return Config{
		SubmitRetries: 3,
		RetryDelay:    time.Second,
		CommandBuffer: 64,
	}
}

// Engine runs one actor goroutine per live interview session. Each runner
// owns its session's phase state, question index, transcript buffer and
// timers; commands from transports are delivered over the runner's channel,
// so there is exactly one writer for all of it.
type Engine struct {
	app    InterviewApp
	outbox OutboxApp
	clock  clockwork.Clock
	config Config

	mu      sync.Mutex
	runners map[uuid.UUID]*runner
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates a new session engine. In production pass
// clockwork.NewRealClock(); tests use a FakeClock.
func NewEngine(app InterviewApp, outbox OutboxApp, clock clockwork.Clock, cfg Config) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		app:     app,
		outbox:  outbox,
		clock:   clock,
		config:  cfg,
		runners: make(map[uuid.UUID]*runner),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// StartSession spawns a runner for an in-progress session, beginning with
// the question at the session's current index.
func (e *Engine) StartSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := e.app.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != models.SessionStatusInProgress {
		return interview.ErrSessionNotActive
	}

	question, err := e.app.GetQuestion(ctx, sessionID, session.QuestionIndex)
	if err != nil {
		return err
	}

	r := &runner{
		engine:   e,
		session:  session,
		question: question,
		cmdCh:    make(chan command, e.config.CommandBuffer),
		done:     make(chan struct{}),
		phase:    models.PhaseIdle,
	}

	e.mu.Lock()
	if _, exists := e.runners[sessionID]; exists {
		e.mu.Unlock()
		return ErrSessionAlreadyRunning
	}
	e.runners[sessionID] = r
	e.wg.Add(1)
	e.mu.Unlock()

	go r.run(e.ctx)

	log.Info().
		Str("session_id", sessionID.String()).
		Int("question_index", session.QuestionIndex).
		Msg("session runner started")

	return nil
}

// StartAnswer skips the rest of the preparation phase ("start answer now").
func (e *Engine) StartAnswer(sessionID uuid.UUID) error {
	return e.send(sessionID, command{kind: cmdStartAnswer})
}

// StopAnswer finalizes the current answer ("stop and next").
func (e *Engine) StopAnswer(sessionID uuid.UUID) error {
	return e.send(sessionID, command{kind: cmdStopAnswer})
}

// TranscriptUpdate appends transcription output to the active answer and
// resets the silence clock.
func (e *Engine) TranscriptUpdate(sessionID uuid.UUID, text string) error {
	return e.send(sessionID, command{kind: cmdTranscriptUpdate, text: text})
}

// TranscriptComplete records a finished utterance; depending on session
// settings this finalizes the answer immediately.
func (e *Engine) TranscriptComplete(sessionID uuid.UUID, text string) error {
	return e.send(sessionID, command{kind: cmdTranscriptComplete, text: text})
}

// VoiceActivity feeds one voice-activity sample to the session's speech
// monitor.
func (e *Engine) VoiceActivity(sessionID uuid.UUID, hasSpeech bool) error {
	return e.send(sessionID, command{kind: cmdVoiceActivity, hasSpeech: hasSpeech})
}

// StopSession detaches the runner without changing session state. Safe to
// call for sessions that are not running.
func (e *Engine) StopSession(sessionID uuid.UUID) {
	if err := e.send(sessionID, command{kind: cmdStop}); err != nil {
		log.Debug().Str("session_id", sessionID.String()).Msg("stop for session that is not running")
	}
}

// Running reports whether a runner exists for the session.
func (e *Engine) Running(sessionID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.runners[sessionID]
	return ok
}

// ActiveSessions returns the IDs of all sessions with live runners.
func (e *Engine) ActiveSessions() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(e.runners))
	for id := range e.runners {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown stops all runners and waits for them to exit. After Shutdown no
// timer callback can mutate any session state.
func (e *Engine) Shutdown() {
	e.cancel()
	e.wg.Wait()
	log.Info().Msg("engine shut down")
}

func (e *Engine) send(sessionID uuid.UUID, cmd command) error {
	e.mu.Lock()
	r, ok := e.runners[sessionID]
	e.mu.Unlock()
	if !ok {
		return ErrSessionNotRunning
	}

	select {
	case r.cmdCh <- cmd:
		return nil
	case <-r.done:
		return ErrSessionNotRunning
	}
}

func (e *Engine) remove(sessionID uuid.UUID) {
	e.mu.Lock()
	delete(e.runners, sessionID)
	e.mu.Unlock()
}
