package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wolfman30/payflow/pkg/logging"
)

// Invoker executes commands and keeps a single last-executed slot for
// undo. There is no history stack: every Execute overwrites the slot,
// whatever the outcome, so at most the single most recent execution is
// undoable, and each successful execution is undoable at most once.
type Invoker struct {
	logger *logging.Logger

	mu            sync.Mutex
	last          Command
	lastSucceeded bool
}

// NewInvoker creates an empty invoker.
func NewInvoker(logger *logging.Logger) *Invoker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Invoker{logger: logger}
}

// Execute runs the command, records it as last-executed regardless of
// outcome, and returns the command's own result and error unchanged.
func (inv *Invoker) Execute(ctx context.Context, cmd Command) (*Payment, error) {
	p, err := cmd.Execute(ctx)

	inv.mu.Lock()
	inv.last = cmd
	inv.lastSucceeded = err == nil
	inv.mu.Unlock()

	return p, err
}

// UndoLast undoes the most recently executed command. It fails with
// ErrNoCommandToUndo when the slot is empty and ErrCommandNotSuccessful
// when the last execution failed. The slot is cleared only after a
// successful undo, so a second immediate undo is rejected.
func (inv *Invoker) UndoLast(ctx context.Context) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.last == nil {
		return ErrNoCommandToUndo
	}
	if !inv.lastSucceeded {
		return ErrCommandNotSuccessful
	}

	if err := inv.last.Undo(ctx); err != nil {
		return err
	}

	inv.last = nil
	inv.lastSucceeded = false
	return nil
}

// UndoLastFor undoes the slot only when its command produced the
// payment with the given id. The match and the undo happen under one
// lock, so a charge completing in between cannot swap in a different
// payment.
func (inv *Invoker) UndoLastFor(ctx context.Context, paymentID uuid.UUID) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	cmd, ok := inv.last.(undoable)
	if !ok {
		return fmt.Errorf("%w: no executed command for payment %s", ErrNoCommandToUndo, paymentID)
	}
	if p := cmd.Payment(); p == nil || p.ID != paymentID {
		return fmt.Errorf("%w: payment %s is not the most recent execution", ErrNoCommandToUndo, paymentID)
	}
	if !inv.lastSucceeded {
		return ErrCommandNotSuccessful
	}

	if err := inv.last.Undo(ctx); err != nil {
		return err
	}

	inv.last = nil
	inv.lastSucceeded = false
	return nil
}

// Last returns the command currently occupying the slot and whether its
// execution succeeded.
func (inv *Invoker) Last() (Command, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.last, inv.lastSucceeded
}
