// Package app wires the campaign execution engine from configuration.
// The server and the worker share it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/unclebandit/dialer-backend/internal/config"
	"github.com/unclebandit/dialer-backend/internal/db"
	"github.com/unclebandit/dialer-backend/internal/gateway"
	"github.com/unclebandit/dialer-backend/internal/queue"
	"github.com/unclebandit/dialer-backend/internal/repository"
	"github.com/unclebandit/dialer-backend/internal/service"
	"github.com/unclebandit/dialer-backend/internal/store"
	"github.com/unclebandit/dialer-backend/internal/telemetry"
)

type Engine struct {
	DB        *sql.DB
	Lifecycle *service.LifecycleController
	Campaigns *service.CampaignService
	Events    queue.Publisher

	closers []func(ctx context.Context) error
}

// New connects every backing service selected by cfg.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Engine, error) {
	e := &Engine{}

	shutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	e.closers = append(e.closers, shutdown)

	conn, err := db.Open(ctx, cfg.DSN())
	if err != nil {
		e.Close(ctx)
		return nil, err
	}
	e.DB = conn
	e.closers = append(e.closers, func(context.Context) error { return conn.Close() })
	log.Info("✅ connected to Postgres")

	states, err := newStateStore(ctx, cfg, log)
	if err != nil {
		e.Close(ctx)
		return nil, err
	}
	events, err := newPublisher(cfg, log)
	if err != nil {
		e.Close(ctx)
		return nil, err
	}
	e.Events = events
	e.closers = append(e.closers, func(context.Context) error { return events.Close() })

	metrics, err := telemetry.NewCallMetrics()
	if err != nil {
		e.Close(ctx)
		return nil, err
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	agentRepo := &repository.AgentRepository{DB: conn}
	recordRepo := &repository.CallRecordRepository{DB: conn}

	dispatcher := &service.BatchDispatcher{
		Records:  recordRepo,
		Gateway:  gateway.New(newProvider(cfg, log)),
		Recorder: service.NewCallResultRecorder(recordRepo, log),
		Pacer:    rate.NewLimiter(rate.Limit(cfg.PlacementRate), cfg.PlacementBurst),
		Metrics:  metrics,
		Log:      log,
	}

	e.Lifecycle = &service.LifecycleController{
		Campaigns:  campaignRepo,
		Agents:     agentRepo,
		Records:    recordRepo,
		Dispatcher: dispatcher,
		States:     states,
		Events:     events,
		BatchSize:  cfg.BatchSize,
		LeaseTTL:   cfg.LeaseTTL,
		Log:        log,
	}
	e.Campaigns = &service.CampaignService{Campaigns: campaignRepo, Records: recordRepo}
	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

func newProvider(cfg *config.Config, log *zap.Logger) gateway.VoiceProvider {
	if cfg.ProviderBaseURL == "" {
		log.Warn("⚠️ PROVIDER_BASE_URL not set, using the mock voice provider",
			zap.Float64("failure_ratio", cfg.MockFailureRatio))
		return &gateway.MockProvider{FailureRatio: cfg.MockFailureRatio}
	}
	return gateway.NewHTTPProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
}

func newStateStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.ExecutionStateStore, error) {
	if cfg.SharedState() {
		return store.NewDynamoExecutionStore(ctx, cfg.AWSRegion, cfg.DynamoTable, cfg.DynamoEndpoint, cfg.DynamoStateTTL)
	}
	log.Warn("⚠️ execution state is kept in process memory, not shared with other server or worker processes",
		zap.String("state_backend", cfg.StateBackend))
	return service.NewMemoryExecutionStore(), nil
}

func newPublisher(cfg *config.Config, log *zap.Logger) (queue.Publisher, error) {
	switch cfg.EventsBackend {
	case "amqp":
		return queue.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	case "kafka":
		return queue.NewKafkaPublisher(cfg.KafkaBrokerList(), cfg.KafkaTopic), nil
	default:
		q := queue.NewInMemoryQueue(log)
		queue.LogSubscriber(q, log)
		return q, nil
	}
}
