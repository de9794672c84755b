package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/candidly/interviewd/go/internal/engine"
	"github.com/candidly/interviewd/go/internal/gateway"
	"github.com/candidly/interviewd/go/internal/interview"
	"github.com/candidly/interviewd/go/internal/interview/outbox"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Interview    *interview.App
	Outbox       *outbox.App
	Engine       *engine.Engine
	Gateway      *gateway.Service
	OutboxWorker *outbox.Worker
	Publisher    *outbox.NATSPublisher
}

func setupServices(ctx context.Context, config *Config, pool *pgxpool.Pool, database *sql.DB) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Engine/Gateway layer

	// Outbox
	outboxRepo := outbox.NewRepository(database)
	outboxApp := outbox.NewApp(outboxRepo)

	// Interview sessions
	sessionRepo := interview.NewRepository(pool)
	interviewApp := interview.NewApp(sessionRepo, outboxApp)

	// Session engine
	engineCfg := engine.Config{
		SubmitRetries: config.Engine.SubmitRetries,
		RetryDelay:    config.engineRetryDelay(),
		CommandBuffer: engine.DefaultConfig().CommandBuffer,
	}
	sessionEngine := engine.NewEngine(interviewApp, outboxApp, clockwork.NewRealClock(), engineCfg)

	// Outbox publisher and relay worker
	publisher, err := outbox.NewNATSPublisher(ctx, outbox.NATSPublisherConfig{
		URL:           config.NATS.URL,
		StreamName:    config.NATS.StreamName,
		SubjectPrefix: config.NATS.SubjectPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	workerCfg := outbox.DefaultConfig()
	workerCfg.PollInterval = config.outboxPollInterval()
	workerCfg.BatchSize = int32(config.Outbox.BatchSize)
	outboxWorker := outbox.NewWorker(database, outboxRepo, publisher, workerCfg)

	// Gateway
	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig.URL = config.NATS.URL
	gatewayConfig.JetStreamConfig.StreamName = config.NATS.StreamName
	gatewayConfig.JetStreamConfig.SubjectFilter = config.NATS.SubjectPrefix + ".>"

	gatewayService, err := gateway.NewService(gatewayConfig, interviewApp, sessionEngine, sessionEngine)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create gateway service: %w", err)
	}

	return &Services{
		Interview:    interviewApp,
		Outbox:       outboxApp,
		Engine:       sessionEngine,
		Gateway:      gatewayService,
		OutboxWorker: outboxWorker,
		Publisher:    publisher,
	}, nil
}

// resumeActiveSessions restarts runners for sessions that were in progress
// when the previous process exited. Their phase clocks restart at the
// current question.
func resumeActiveSessions(ctx context.Context, services *Services) {
	sessions, err := services.Interview.ListActiveSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active sessions")
		return
	}

	for _, session := range sessions {
		if err := services.Engine.StartSession(ctx, session.ID); err != nil {
			log.Error().
				Err(err).
				Str("session_id", session.ID.String()).
				Msg("failed to resume session")
			continue
		}
		log.Info().
			Str("session_id", session.ID.String()).
			Int("question_index", session.QuestionIndex).
			Msg("resumed in-progress session")
	}
}

// shutdownServices stops everything in dependency order.
func shutdownServices(services *Services) {
	services.Engine.Shutdown()

	if err := services.OutboxWorker.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop outbox worker")
	}
	services.Publisher.Close()

	// Give the gateway consumer time to drain in-flight messages.
	time.Sleep(100 * time.Millisecond)
}
