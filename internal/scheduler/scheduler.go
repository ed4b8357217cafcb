// Package scheduler re-triggers recurring charges for due
// subscriptions on a fixed cadence.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/payflow/internal/observability/metrics"
	"github.com/wolfman30/payflow/internal/payments"
	"github.com/wolfman30/payflow/internal/subscriptions"
	"github.com/wolfman30/payflow/pkg/logging"
)

var schedulerTracer = otel.Tracer("payflow/scheduler")

const (
	defaultInterval = time.Minute
	defaultWorkers  = 4
)

// Scheduler scans for due subscriptions each tick and charges each one
// through its own command invoker. Per-subscription failures are
// isolated; one declined or errored charge never aborts the tick.
type Scheduler struct {
	subs     subscriptions.Store
	payments payments.Store
	gateway  payments.Gateway
	tracker  Tracker
	logger   *logging.Logger
	metrics  *metrics.PaymentMetrics
	interval time.Duration
	workers  int
	nowFn    func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the tick cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWorkers bounds per-tick fan-out. 1 processes sequentially.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.nowFn = now }
}

// WithMetrics attaches payment metrics.
func WithMetrics(m *metrics.PaymentMetrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a scheduler over the given stores and gateway.
func New(subs subscriptions.Store, paymentStore payments.Store, gateway payments.Gateway, tracker Tracker, logger *logging.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if tracker == nil {
		tracker = NewMemoryTracker()
	}
	s := &Scheduler{
		subs:     subs,
		payments: paymentStore,
		gateway:  gateway,
		tracker:  tracker,
		logger:   logger,
		interval: defaultInterval,
		workers:  defaultWorkers,
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the ticking loop. It processes one scan immediately, then
// on every tick, and blocks until ctx is cancelled. In-flight work is
// allowed to finish before Start returns.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting recurring payment scheduler",
		"interval", s.interval.String(),
		"workers", s.workers,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("recurring payment scheduler shutting down")
			return
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	processed, errs := s.RunOnce(ctx, s.nowFn())
	if len(errs) > 0 {
		s.logger.Warn("scheduler tick finished with failures",
			"processed", len(processed),
			"failures", len(errs),
		)
	}
}

// RunOnce performs a single due-scan at now. It returns the payments
// produced this tick (completed and failed alike) and the per-item
// errors. The two slices are independent summaries, not index-aligned.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) ([]*payments.Payment, []error) {
	ctx, span := schedulerTracer.Start(ctx, "scheduler.run_once")
	defer span.End()

	due, err := s.subs.ListDue(ctx, now)
	if err != nil {
		s.logger.Error("failed to list due subscriptions", "error", err)
		return nil, []error{err}
	}
	span.SetAttributes(attribute.Int("payflow.due_count", len(due)))
	s.metrics.ObserveTick(len(due))

	if len(due) == 0 {
		s.logger.Debug("no subscriptions due")
		return nil, nil
	}

	s.logger.Info("processing due subscriptions", "count", len(due))

	// Per-index result slots keep output order aligned with the stable
	// ListDue order even when items fan out.
	results := make([]*payments.Payment, len(due))
	failures := make([]error, len(due))

	workers := s.workers
	if workers > len(due) {
		workers = len(due)
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, sub := range due {
		acquired, err := s.tracker.TryAcquire(ctx, sub.ID)
		if err != nil {
			failures[i] = err
			continue
		}
		if !acquired {
			// Still being processed by an earlier tick or another instance.
			s.logger.Debug("skipping in-flight subscription", "subscription_id", sub.ID)
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sub *subscriptions.Subscription) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				// Release must survive tick cancellation, or the marker
				// lingers until its TTL and locks the subscription out.
				if err := s.tracker.Release(context.WithoutCancel(ctx), sub.ID); err != nil {
					s.logger.Error("release failed", "subscription_id", sub.ID, "error", err)
				}
			}()
			results[i], failures[i] = s.processOne(ctx, sub)
		}(i, sub)
	}
	wg.Wait()

	var processed []*payments.Payment
	var errs []error
	for i := range due {
		if results[i] != nil {
			processed = append(processed, results[i])
		}
		if failures[i] != nil {
			errs = append(errs, failures[i])
		}
	}

	s.logger.Info("recurring payment scan complete",
		"due", len(due),
		"processed", len(processed),
		"failures", len(errs),
	)
	return processed, errs
}

// processOne charges a single subscription through a fresh invoker, so
// concurrent items never contend on shared undo state.
func (s *Scheduler) processOne(ctx context.Context, sub *subscriptions.Subscription) (*payments.Payment, error) {
	invoker := payments.NewInvoker(s.logger)
	cmd := payments.NewRecurringPaymentCommand(sub, s.subs, s.gateway, s.payments, s.logger).
		WithClock(s.nowFn)

	p, err := invoker.Execute(ctx, cmd)
	if p != nil {
		s.metrics.ObserveRecurringCharge(string(p.Status))
	}
	if err != nil {
		s.logger.Warn("recurring charge failed",
			"subscription_id", sub.ID,
			"error", err,
		)
		return p, err
	}
	return p, nil
}
