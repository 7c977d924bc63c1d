package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/observability"
	"github.com/bsg-enterprise/ticketing/internal/service"
)

const (
	escalationJobName    = "sla-escalation"
	escalationJobTimeout = 10 * time.Minute
)

// Escalator runs one escalation pass.
type Escalator interface {
	RunOnce(ctx context.Context) (service.EscalationResult, error)
}

// EscalationScheduler triggers SLA escalation on a cron schedule. A pass that is still running when the next
// tick fires causes that tick to be skipped.
type EscalationScheduler struct {
	scheduler gocron.Scheduler
	escalator Escalator
	metrics   *observability.Metrics
	logger    *zap.Logger
	schedule  string

	startedMu sync.RWMutex
	started   bool
}

// NewEscalationScheduler builds a scheduler in UTC. The schedule is a standard five-field cron expression.
func NewEscalationScheduler(schedule string, escalator Escalator, metrics *observability.Metrics, logger *zap.Logger) (*EscalationScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	es := &EscalationScheduler{
		scheduler: s,
		escalator: escalator,
		metrics:   metrics,
		logger:    logger,
		schedule:  schedule,
	}
	if err := es.registerJob(); err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	return es, nil
}

func (es *EscalationScheduler) registerJob() error {
	_, err := es.scheduler.NewJob(
		gocron.CronJob(es.schedule, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), escalationJobTimeout)
			defer cancel()
			es.Run(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("escalation"),
		gocron.WithName(escalationJobName),
	)
	if err != nil {
		return fmt.Errorf("failed to register escalation job %q: %w", es.schedule, err)
	}
	return nil
}

// Start begins executing scheduled jobs. Calling it twice is a no-op.
func (es *EscalationScheduler) Start() {
	es.startedMu.Lock()
	defer es.startedMu.Unlock()
	if es.started {
		return
	}
	es.scheduler.Start()
	es.started = true
	es.logger.Info("escalation scheduler started", zap.String("schedule", es.schedule))
}

// Stop waits for a running pass to finish and shuts the scheduler down.
func (es *EscalationScheduler) Stop() error {
	es.startedMu.Lock()
	defer es.startedMu.Unlock()
	if !es.started {
		return nil
	}
	es.started = false
	if err := es.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop escalation scheduler: %w", err)
	}
	es.logger.Info("escalation scheduler stopped")
	return nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (es *EscalationScheduler) IsRunning() bool {
	es.startedMu.RLock()
	defer es.startedMu.RUnlock()
	return es.started
}

// Run executes a single pass and records its outcome.
func (es *EscalationScheduler) Run(ctx context.Context) service.EscalationResult {
	start := time.Now()
	es.logger.Info("starting sla escalation")

	result, err := es.escalator.RunOnce(ctx)
	es.metrics.RecordJob(escalationJobName, result.Escalated, err)
	if err != nil {
		es.logger.Error("sla escalation failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return result
	}

	es.logger.Info("sla escalation completed",
		zap.Int("scanned", result.Scanned),
		zap.Int("escalated", result.Escalated),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)))
	return result
}
