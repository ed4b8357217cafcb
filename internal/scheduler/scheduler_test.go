package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/payflow/internal/memory"
	"github.com/wolfman30/payflow/internal/payments"
	"github.com/wolfman30/payflow/internal/subscriptions"
	"github.com/wolfman30/payflow/pkg/logging"
)

func alwaysSucceed() float64 { return 0 }

func newSchedulerFixture(t *testing.T, roll func() float64) (*Scheduler, *memory.SubscriptionStore, *memory.PaymentStore) {
	t.Helper()
	logger := logging.New("error")
	subStore := memory.NewSubscriptionStore()
	payStore := memory.NewPaymentStore()
	gateway := payments.NewSimulatedGateway(logger, payments.WithRoll(roll))
	sched := New(subStore, payStore, gateway, NewMemoryTracker(), logger)
	return sched, subStore, payStore
}

func mustCreateSubscription(t *testing.T, store *memory.SubscriptionStore, due time.Time) *subscriptions.Subscription {
	t.Helper()
	sub, err := subscriptions.New(decimal.NewFromFloat(19.99), "USD", "cus_1", subscriptions.IntervalMonthly, due, due.AddDate(0, -1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Create(context.Background(), sub); err != nil {
		t.Fatal(err)
	}
	return sub
}

func TestRunOnceChargesDueSubscriptionOnce(t *testing.T) {
	sched, subStore, payStore := newSchedulerFixture(t, alwaysSucceed)
	ctx := context.Background()

	due := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	sub := mustCreateSubscription(t, subStore, due)

	now := due.Add(2 * time.Hour)
	processed, errs := sched.RunOnce(ctx, now)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(processed) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(processed))
	}
	p := processed[0]
	if p.Status != payments.StatusCompleted {
		t.Fatalf("expected completed payment, got %s", p.Status)
	}
	if p.SubscriptionID != sub.ID {
		t.Fatal("payment not linked to subscription")
	}

	// The next due date advances from the previous due date, not from
	// now, and clamps to the end of February.
	got, err := subStore.GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)
	if !got.NextPaymentDate.Equal(want) {
		t.Fatalf("next payment date = %v, want %v", got.NextPaymentDate, want)
	}

	// The subscription is no longer due, so a second tick is a no-op.
	again, errs := sched.RunOnce(ctx, now)
	if len(again) != 0 || len(errs) != 0 {
		t.Fatalf("second tick should be a no-op, got %d payments %d errors", len(again), len(errs))
	}
	all, err := payStore.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly 1 stored payment, got %d", len(all))
	}
}

func TestRunOnceSkipsPausedAndCancelled(t *testing.T) {
	sched, subStore, payStore := newSchedulerFixture(t, alwaysSucceed)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	paused := mustCreateSubscription(t, subStore, now.AddDate(0, 0, -1))
	if err := paused.Pause(); err != nil {
		t.Fatal(err)
	}
	if err := subStore.Update(ctx, paused); err != nil {
		t.Fatal(err)
	}

	cancelled := mustCreateSubscription(t, subStore, now.AddDate(0, 0, -1))
	if err := cancelled.Cancel(); err != nil {
		t.Fatal(err)
	}
	if err := subStore.Update(ctx, cancelled); err != nil {
		t.Fatal(err)
	}

	processed, errs := sched.RunOnce(ctx, now)
	if len(processed) != 0 || len(errs) != 0 {
		t.Fatalf("inactive subscriptions were charged: %d payments %d errors", len(processed), len(errs))
	}
	all, err := payStore.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no payments, got %d", len(all))
	}
}

func TestRunOnceIsolatesDeclines(t *testing.T) {
	// Alternate rolls: first charge declines, second succeeds.
	var mu sync.Mutex
	calls := 0
	roll := func() float64 {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return 0.9999
		}
		return 0
	}

	logger := logging.New("error")
	subStore := memory.NewSubscriptionStore()
	payStore := memory.NewPaymentStore()
	gateway := payments.NewSimulatedGateway(logger, payments.WithRoll(roll))
	// One worker keeps the charge order stable for the roll sequence.
	sched := New(subStore, payStore, gateway, NewMemoryTracker(), logger, WithWorkers(1))

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := mustCreateSubscription(t, subStore, now.AddDate(0, 0, -2))
	second := mustCreateSubscription(t, subStore, now.AddDate(0, 0, -1))

	processed, errs := sched.RunOnce(ctx, now)
	if len(processed) != 2 {
		t.Fatalf("expected both payments recorded, got %d", len(processed))
	}
	if len(errs) != 1 || !errors.Is(errs[0], payments.ErrGatewayDeclined) {
		t.Fatalf("expected one decline error, got %v", errs)
	}
	if processed[0].Status != payments.StatusFailed || processed[1].Status != payments.StatusCompleted {
		t.Fatalf("unexpected statuses: %s, %s", processed[0].Status, processed[1].Status)
	}

	// Both subscriptions advance regardless of charge outcome.
	for _, sub := range []*subscriptions.Subscription{first, second} {
		got, err := subStore.GetByID(ctx, sub.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.NextPaymentDate.After(now) {
			t.Fatalf("subscription %s did not advance", sub.ID)
		}
		if got.Status != subscriptions.StatusActive {
			t.Fatalf("decline must not change status, got %s", got.Status)
		}
	}
}

func TestOverlappingTicksChargeOnce(t *testing.T) {
	logger := logging.New("error")
	subStore := memory.NewSubscriptionStore()
	payStore := memory.NewPaymentStore()

	// Hold every charge until both ticks have scanned, so the second
	// tick observes the first one's in-flight marker.
	release := make(chan struct{})
	gateway := payments.NewSimulatedGateway(logger,
		payments.WithRoll(func() float64 {
			<-release
			return 0
		}),
	)
	sched := New(subStore, payStore, gateway, NewMemoryTracker(), logger)

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mustCreateSubscription(t, subStore, now.AddDate(0, 0, -1))

	type tickResult struct {
		processed []*payments.Payment
		errs      []error
	}
	resultCh := make(chan tickResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, e := sched.RunOnce(ctx, now)
			resultCh <- tickResult{p, e}
		}()
	}

	// Let both scans reach the tracker before any charge completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(resultCh)

	total := 0
	for res := range resultCh {
		if len(res.errs) != 0 {
			t.Fatalf("unexpected errors: %v", res.errs)
		}
		total += len(res.processed)
	}
	if total != 1 {
		t.Fatalf("expected exactly one charge across overlapping ticks, got %d", total)
	}
	all, err := payStore.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one stored payment, got %d", len(all))
	}
}

// recordingTracker captures the context state seen by Release.
type recordingTracker struct {
	mu            sync.Mutex
	releases      int
	releaseCtxErr error
}

func (t *recordingTracker) TryAcquire(ctx context.Context, id uuid.UUID) (bool, error) {
	return true, nil
}

func (t *recordingTracker) Release(ctx context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releases++
	t.releaseCtxErr = ctx.Err()
	return nil
}

func TestRunOnceReleasesAfterCancellation(t *testing.T) {
	logger := logging.New("error")
	subStore := memory.NewSubscriptionStore()
	payStore := memory.NewPaymentStore()
	tracker := &recordingTracker{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the tick while the charge is in flight; the marker must
	// still be released with a live context.
	gateway := payments.NewSimulatedGateway(logger, payments.WithRoll(func() float64 {
		cancel()
		return 0
	}))
	sched := New(subStore, payStore, gateway, tracker, logger)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mustCreateSubscription(t, subStore, now.AddDate(0, 0, -1))

	sched.RunOnce(ctx, now)

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if tracker.releases != 1 {
		t.Fatalf("expected 1 release, got %d", tracker.releases)
	}
	if tracker.releaseCtxErr != nil {
		t.Fatalf("release ran with a cancelled context: %v", tracker.releaseCtxErr)
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	sched, subStore, _ := newSchedulerFixture(t, alwaysSucceed)
	sched.interval = 10 * time.Millisecond
	mustCreateSubscription(t, subStore, time.Now().AddDate(0, 0, -1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
