package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestInvokerUndoExactlyOnce(t *testing.T) {
	store := newStubStore()
	gateway := NewSimulatedGateway(nil, WithRoll(alwaysSucceed))
	inv := NewInvoker(nil)
	ctx := context.Background()

	cmd := NewProcessPaymentCommand(gateway, store, nil, decimal.NewFromFloat(10), "USD", "cus_1")
	p, err := inv.Execute(ctx, cmd)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if err := inv.UndoLast(ctx); err != nil {
		t.Fatalf("first UndoLast: %v", err)
	}
	if p.Status != StatusRefunded {
		t.Fatalf("expected refunded, got %s", p.Status)
	}

	if err := inv.UndoLast(ctx); !errors.Is(err, ErrNoCommandToUndo) {
		t.Fatalf("second UndoLast must fail with ErrNoCommandToUndo, got %v", err)
	}
	if last, _ := inv.Last(); last != nil {
		t.Fatal("slot must be empty after a successful undo")
	}
}

func TestInvokerUndoWithoutExecute(t *testing.T) {
	inv := NewInvoker(nil)
	if err := inv.UndoLast(context.Background()); !errors.Is(err, ErrNoCommandToUndo) {
		t.Fatalf("expected ErrNoCommandToUndo, got %v", err)
	}
}

func TestInvokerUndoAfterFailedExecute(t *testing.T) {
	store := newStubStore()
	callCount := 0
	gateway := NewSimulatedGateway(nil, WithRoll(func() float64 {
		callCount++
		return 0.9999
	}))
	inv := NewInvoker(nil)
	ctx := context.Background()

	cmd := NewProcessPaymentCommand(gateway, store, nil, decimal.NewFromFloat(10), "USD", "cus_1")
	if _, err := inv.Execute(ctx, cmd); !errors.Is(err, ErrGatewayDeclined) {
		t.Fatal("expected decline")
	}

	callsBefore := callCount
	if err := inv.UndoLast(ctx); !errors.Is(err, ErrCommandNotSuccessful) {
		t.Fatalf("expected ErrCommandNotSuccessful, got %v", err)
	}
	if callCount != callsBefore {
		t.Fatal("undo of a failed command must not touch the gateway")
	}
}

func TestInvokerFailedExecuteOverwritesSlot(t *testing.T) {
	store := newStubStore()
	rolls := []float64{0, 0.9999} // first charge succeeds, second declines
	i := 0
	gateway := NewSimulatedGateway(nil, WithRoll(func() float64 {
		r := rolls[i%len(rolls)]
		i++
		return r
	}))
	inv := NewInvoker(nil)
	ctx := context.Background()

	ok := NewProcessPaymentCommand(gateway, store, nil, decimal.NewFromFloat(10), "USD", "cus_1")
	if _, err := inv.Execute(ctx, ok); err != nil {
		t.Fatal(err)
	}

	declined := NewProcessPaymentCommand(gateway, store, nil, decimal.NewFromFloat(20), "USD", "cus_2")
	if _, err := inv.Execute(ctx, declined); !errors.Is(err, ErrGatewayDeclined) {
		t.Fatal("expected decline")
	}

	// The failed attempt now occupies the slot, so the earlier success
	// is no longer reachable for undo.
	if last, succeeded := inv.Last(); last != declined || succeeded {
		t.Fatal("slot must hold the failed command")
	}
	if err := inv.UndoLast(ctx); !errors.Is(err, ErrCommandNotSuccessful) {
		t.Fatalf("expected ErrCommandNotSuccessful, got %v", err)
	}
}

func TestInvokerUndoLastFor(t *testing.T) {
	store := newStubStore()
	gateway := NewSimulatedGateway(nil, WithRoll(alwaysSucceed))
	inv := NewInvoker(nil)
	ctx := context.Background()

	first := NewProcessPaymentCommand(gateway, store, nil, decimal.NewFromFloat(10), "USD", "cus_1")
	firstPayment, err := inv.Execute(ctx, first)
	if err != nil {
		t.Fatal(err)
	}

	second := NewProcessPaymentCommand(gateway, store, nil, decimal.NewFromFloat(20), "USD", "cus_2")
	secondPayment, err := inv.Execute(ctx, second)
	if err != nil {
		t.Fatal(err)
	}

	// Matching happens under the undo lock: asking for the overwritten
	// payment must not refund the one occupying the slot.
	if err := inv.UndoLastFor(ctx, firstPayment.ID); !errors.Is(err, ErrNoCommandToUndo) {
		t.Fatalf("expected ErrNoCommandToUndo for stale payment, got %v", err)
	}
	if secondPayment.Status != StatusCompleted {
		t.Fatalf("mismatched undo must not touch the slot, got %s", secondPayment.Status)
	}

	if err := inv.UndoLastFor(ctx, secondPayment.ID); err != nil {
		t.Fatalf("UndoLastFor: %v", err)
	}
	if secondPayment.Status != StatusRefunded {
		t.Fatalf("expected refunded, got %s", secondPayment.Status)
	}

	if err := inv.UndoLastFor(ctx, secondPayment.ID); !errors.Is(err, ErrNoCommandToUndo) {
		t.Fatalf("slot must be cleared after undo, got %v", err)
	}
}

func TestInvokerUndoLastForEmptySlot(t *testing.T) {
	inv := NewInvoker(nil)
	p := NewPayment(decimal.NewFromFloat(10), "USD", "cus_1", testClock()())
	if err := inv.UndoLastFor(context.Background(), p.ID); !errors.Is(err, ErrNoCommandToUndo) {
		t.Fatalf("expected ErrNoCommandToUndo, got %v", err)
	}
}

func TestInvokerSlotHoldsOnlyMostRecent(t *testing.T) {
	store := newStubStore()
	gateway := NewSimulatedGateway(nil, WithRoll(alwaysSucceed))
	inv := NewInvoker(nil)
	ctx := context.Background()

	first := NewProcessPaymentCommand(gateway, store, nil, decimal.NewFromFloat(10), "USD", "cus_1")
	firstPayment, err := inv.Execute(ctx, first)
	if err != nil {
		t.Fatal(err)
	}

	second := NewProcessPaymentCommand(gateway, store, nil, decimal.NewFromFloat(20), "USD", "cus_2")
	if _, err := inv.Execute(ctx, second); err != nil {
		t.Fatal(err)
	}

	if err := inv.UndoLast(ctx); err != nil {
		t.Fatal(err)
	}
	if firstPayment.Status != StatusCompleted {
		t.Fatalf("undo must only touch the most recent command, first payment is %s", firstPayment.Status)
	}
}
