package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/candidly/interviewd/go/internal/interview"
	"github.com/candidly/interviewd/go/internal/interview/events"
	"github.com/candidly/interviewd/go/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type commandKind int

const (
	cmdStartAnswer commandKind = iota
	cmdStopAnswer
	cmdTranscriptUpdate
	cmdTranscriptComplete
	cmdVoiceActivity
	cmdStop
)

type command struct {
	kind      commandKind
	text      string
	hasSpeech bool
}

// runner is the single owner of one session's live state. Everything below
// is mutated only from the run goroutine.
type runner struct {
	engine   *Engine
	session  *models.Session
	question *models.Question

	cmdCh chan command
	done  chan struct{}

	phase      models.Phase
	buf        strings.Builder
	finalizing bool
	stopped    bool

	prepTimer    clockwork.Timer
	answerTimer  clockwork.Timer
	silenceTimer clockwork.Timer
	// silenceDeadline is a monotonic deadline pushed forward on every
	// transcript update; the silence timer re-arms against it instead of
	// accumulating per-tick deltas.
	silenceDeadline time.Time
	answerStartedAt time.Time
	vad             *speechMonitor
}

func (r *runner) run(ctx context.Context) {
	defer r.engine.wg.Done()
	defer close(r.done)
	defer r.stopTimers()
	defer r.engine.remove(r.session.ID)

	r.enterQuestion(ctx)

	for {
		if r.stopped {
			return
		}

		// nil timers leave their case blocked forever.
		var prepC, answerC, silenceC <-chan time.Time
		if r.prepTimer != nil {
			prepC = r.prepTimer.Chan()
		}
		if r.answerTimer != nil {
			answerC = r.answerTimer.Chan()
		}
		if r.silenceTimer != nil {
			silenceC = r.silenceTimer.Chan()
		}

		select {
		case <-ctx.Done():
			log.Debug().Str("session_id", r.session.ID.String()).Msg("runner shutting down")
			return

		case cmd := <-r.cmdCh:
			switch cmd.kind {
			case cmdStop:
				return
			case cmdStartAnswer:
				if r.phase == models.PhasePreparation {
					r.enterAnswering(ctx)
				}
			case cmdStopAnswer:
				r.finalize(ctx, models.FinalizeReasonUser)
			case cmdTranscriptUpdate:
				r.handleTranscriptUpdate(cmd.text)
			case cmdTranscriptComplete:
				r.handleTranscriptComplete(ctx, cmd.text)
			case cmdVoiceActivity:
				r.handleVoiceActivity(ctx, cmd.hasSpeech)
			}

		case <-prepC:
			r.prepTimer = nil
			if r.phase == models.PhasePreparation {
				r.enterAnswering(ctx)
			}

		case <-answerC:
			r.answerTimer = nil
			r.finalize(ctx, models.FinalizeReasonTimer)

		case <-silenceC:
			r.silenceTimer = nil
			r.handleSilenceExpiry(ctx)
		}
	}
}

// enterQuestion begins the cycle for the current question: preparation when
// the session has a prep phase, otherwise straight to answering.
func (r *runner) enterQuestion(ctx context.Context) {
	if r.session.Settings.PrepSec > 0 {
		r.enterPreparation(ctx)
	} else {
		r.enterAnswering(ctx)
	}
}

func (r *runner) enterPreparation(ctx context.Context) {
	r.phase = models.PhasePreparation

	now := r.engine.clock.Now()
	d := r.session.Settings.PrepDuration()
	r.prepTimer = r.engine.clock.NewTimer(d)

	r.emitPhaseStarted(ctx, now, d)

	log.Info().
		Str("session_id", r.session.ID.String()).
		Int("question_index", r.session.QuestionIndex).
		Dur("duration", d).
		Msg("preparation phase started")
}

func (r *runner) enterAnswering(ctx context.Context) {
	if r.prepTimer != nil {
		stopAndDrainTimer(r.prepTimer)
		r.prepTimer = nil
	}

	r.phase = models.PhaseAnswering
	r.buf.Reset()

	now := r.engine.clock.Now()
	r.answerStartedAt = now
	d := r.session.Settings.AnswerDuration()
	r.answerTimer = r.engine.clock.NewTimer(d)

	if silence := r.session.Settings.SilenceDuration(); silence > 0 {
		r.silenceDeadline = now.Add(silence)
		r.silenceTimer = r.engine.clock.NewTimer(silence)
		r.vad = newSpeechMonitor(silence)
	}

	r.emitPhaseStarted(ctx, now, d)

	log.Info().
		Str("session_id", r.session.ID.String()).
		Int("question_index", r.session.QuestionIndex).
		Dur("duration", d).
		Msg("answer phase started")
}

func (r *runner) handleTranscriptUpdate(text string) {
	if r.phase != models.PhaseAnswering || text == "" {
		return
	}
	r.appendTranscript(text)
	r.touchSilenceClock()
}

func (r *runner) handleTranscriptComplete(ctx context.Context, text string) {
	if r.phase != models.PhaseAnswering {
		return
	}
	r.appendTranscript(text)
	if r.session.Settings.FinalizeOnUtteranceEnd {
		r.finalize(ctx, models.FinalizeReasonUtterance)
		return
	}
	r.touchSilenceClock()
}

func (r *runner) handleVoiceActivity(ctx context.Context, hasSpeech bool) {
	if r.phase != models.PhaseAnswering || r.vad == nil {
		return
	}
	switch r.vad.Tick(hasSpeech) {
	case speechWarn:
		log.Warn().
			Str("session_id", r.session.ID.String()).
			Int("question_index", r.session.QuestionIndex).
			Msg("no speech detected")
	case speechWarnClear:
		log.Info().
			Str("session_id", r.session.ID.String()).
			Msg("speech resumed")
	case speechAutoFinalize:
		r.finalize(ctx, models.FinalizeReasonSilence)
	}
	if hasSpeech {
		r.touchSilenceClock()
	}
}

func (r *runner) appendTranscript(text string) {
	if text == "" {
		return
	}
	if r.buf.Len() > 0 {
		r.buf.WriteByte(' ')
	}
	r.buf.WriteString(strings.TrimSpace(text))
}

// touchSilenceClock pushes the silence deadline forward without touching
// the running timer; the expiry handler re-arms against the deadline.
func (r *runner) touchSilenceClock() {
	if silence := r.session.Settings.SilenceDuration(); silence > 0 {
		r.silenceDeadline = r.engine.clock.Now().Add(silence)
	}
}

func (r *runner) handleSilenceExpiry(ctx context.Context) {
	if r.phase != models.PhaseAnswering {
		return
	}
	remaining := r.silenceDeadline.Sub(r.engine.clock.Now())
	if remaining > 0 {
		// Deadline moved since the timer was armed.
		r.silenceTimer = r.engine.clock.NewTimer(remaining)
		return
	}
	r.finalize(ctx, models.FinalizeReasonSilence)
}

// finalize takes the accumulated transcript and submits it exactly once for
// the current question. The guard absorbs the race between the answer
// timer, the silence clock and explicit user actions.
func (r *runner) finalize(ctx context.Context, reason models.FinalizeReason) {
	if r.phase != models.PhaseAnswering || r.finalizing {
		log.Debug().
			Str("session_id", r.session.ID.String()).
			Str("phase", string(r.phase)).
			Str("reason", string(reason)).
			Msg("ignoring finalize")
		return
	}
	r.finalizing = true
	r.phase = models.PhaseFinalizing
	r.stopTimers()

	transcript := r.buf.String()
	r.buf.Reset()

	req := interview.SubmitAnswerRequest{
		SessionID:     r.session.ID,
		QuestionIndex: r.session.QuestionIndex,
		Transcript:    transcript,
		Reason:        reason,
		StartedAt:     r.answerStartedAt,
		SubmittedAt:   r.engine.clock.Now(),
	}

	next, done, err := r.submitWithRetry(ctx, req)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", r.session.ID.String()).
			Int("question_index", r.session.QuestionIndex).
			Msg("finalize failed")
		if failErr := r.engine.app.FailSession(ctx, r.session.ID, r.session.QuestionIndex, err.Error()); failErr != nil {
			log.Error().Err(failErr).Str("session_id", r.session.ID.String()).Msg("failed to mark session failed")
		}
		r.stopped = true
		return
	}

	if done {
		r.phase = models.PhaseCompleted
		r.stopped = true
		log.Info().
			Str("session_id", r.session.ID.String()).
			Msg("question supply exhausted, runner exiting")
		return
	}

	r.session.QuestionIndex++
	r.question = next
	r.finalizing = false
	r.enterQuestion(ctx)
}

func (r *runner) submitWithRetry(ctx context.Context, req interview.SubmitAnswerRequest) (*models.Question, bool, error) {
	var lastErr error

	for attempt := 0; attempt < r.engine.config.SubmitRetries; attempt++ {
		if attempt > 0 {
			backoff := r.engine.clock.NewTimer(r.engine.config.RetryDelay * time.Duration(attempt))
			select {
			case <-backoff.Chan():
			case <-ctx.Done():
				stopAndDrainTimer(backoff)
				return nil, false, ctx.Err()
			}
		}

		next, done, err := r.engine.app.SubmitAnswer(ctx, req)
		if err == nil {
			return next, done, nil
		}
		if !retryable(err) {
			return nil, false, err
		}
		lastErr = err
		log.Warn().
			Err(err).
			Str("session_id", req.SessionID.String()).
			Int("attempt", attempt+1).
			Msg("submit answer failed, retrying")
	}

	return nil, false, fmt.Errorf("submit answer failed after %d attempts: %w", r.engine.config.SubmitRetries, lastErr)
}

// retryable reports whether a submit error is worth another attempt.
// Conflicts mean the question index already moved; retrying can only make
// that worse.
func retryable(err error) bool {
	return !errors.Is(err, interview.ErrAnswerExists) &&
		!errors.Is(err, interview.ErrStaleQuestionIndex) &&
		!errors.Is(err, interview.ErrSessionNotActive) &&
		!errors.Is(err, interview.ErrSessionNotFound)
}

func (r *runner) emitPhaseStarted(ctx context.Context, startedAt time.Time, d time.Duration) {
	payload := events.PhaseStartedPayload{
		SessionID:     r.session.ID.String(),
		QuestionIndex: r.session.QuestionIndex,
		Phase:         string(r.phase),
		Prompt:        r.question.Prompt,
		StartedAt:     startedAt,
		Deadline:      startedAt.Add(d),
		DurationSec:   int(d / time.Second),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal PhaseStarted payload")
		return
	}
	if err := r.engine.outbox.InsertPhaseStarted(ctx, r.session.ID, data); err != nil {
		// Don't fail the transition, just log the error.
		log.Error().
			Err(err).
			Str("session_id", r.session.ID.String()).
			Msg("failed to emit PhaseStarted event")
	}
}

func (r *runner) stopTimers() {
	if r.prepTimer != nil {
		stopAndDrainTimer(r.prepTimer)
		r.prepTimer = nil
	}
	if r.answerTimer != nil {
		stopAndDrainTimer(r.answerTimer)
		r.answerTimer = nil
	}
	if r.silenceTimer != nil {
		stopAndDrainTimer(r.silenceTimer)
		r.silenceTimer = nil
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel so a fire
// that raced the Stop cannot be observed later.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
