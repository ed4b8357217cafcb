package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/payflow/internal/subscriptions"
	"github.com/wolfman30/payflow/pkg/logging"
)

var commandTracer = otel.Tracer("payflow/commands")

// Command encapsulates one payment intent. Execute performs the charge
// and Undo compensates it with a refund. Undo is only meaningful after
// a successful Execute.
type Command interface {
	Execute(ctx context.Context) (*Payment, error)
	Undo(ctx context.Context) error
}

// undoable lets the invoker and service inspect the payment a command
// produced without knowing the concrete command kind.
type undoable interface {
	Command
	Payment() *Payment
}

// ProcessPaymentCommand charges a customer once and records the outcome
// as a Payment.
type ProcessPaymentCommand struct {
	gateway    Gateway
	store      Store
	logger     *logging.Logger
	amount     decimal.Decimal
	currency   string
	customerID string
	payment    *Payment
	nowFn      func() time.Time
}

// NewProcessPaymentCommand builds a one-off charge command.
func NewProcessPaymentCommand(gateway Gateway, store Store, logger *logging.Logger, amount decimal.Decimal, currency, customerID string) *ProcessPaymentCommand {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProcessPaymentCommand{
		gateway:    gateway,
		store:      store,
		logger:     logger,
		amount:     amount,
		currency:   currency,
		customerID: customerID,
		nowFn:      time.Now,
	}
}

// WithClock injects the time source. Tests use this to pin CreatedAt.
func (c *ProcessPaymentCommand) WithClock(now func() time.Time) *ProcessPaymentCommand {
	c.nowFn = now
	return c
}

// Payment returns the record produced by the last Execute, or nil.
func (c *ProcessPaymentCommand) Payment() *Payment {
	return c.payment
}

// Execute validates the intent, creates a pending Payment, and charges
// the gateway. A declined charge still produces a Payment (status
// failed) returned together with the decline error; validation errors
// produce no Payment and no gateway call.
func (c *ProcessPaymentCommand) Execute(ctx context.Context) (*Payment, error) {
	ctx, span := commandTracer.Start(ctx, "command.process_payment")
	defer span.End()
	span.SetAttributes(
		attribute.String("payflow.amount", c.amount.String()),
		attribute.String("payflow.currency", c.currency),
	)

	if !c.amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidArgument, c.amount)
	}
	if !ValidCurrency(c.currency) {
		return nil, fmt.Errorf("%w: unrecognized currency %q", ErrInvalidArgument, c.currency)
	}

	p := NewPayment(c.amount, c.currency, c.customerID, c.nowFn())
	if err := c.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("payments: create payment: %w", err)
	}
	c.payment = p

	ref, chargeErr := c.gateway.Charge(ctx, c.amount, c.currency, c.customerID)
	if chargeErr != nil {
		if err := p.MarkFailed(); err != nil {
			return p, err
		}
		if err := c.store.Update(ctx, p); err != nil {
			return p, fmt.Errorf("payments: record failed charge: %w", err)
		}
		c.logger.Warn("payment failed",
			"payment_id", p.ID,
			"amount", p.Amount.String(),
			"currency", p.Currency,
			"error", chargeErr,
		)
		return p, chargeErr
	}

	if err := p.MarkCompleted(ref); err != nil {
		return p, err
	}
	if err := c.store.Update(ctx, p); err != nil {
		return p, fmt.Errorf("payments: record completed charge: %w", err)
	}
	c.logger.Info("payment completed",
		"payment_id", p.ID,
		"transaction_ref", ref,
		"amount", p.Amount.String(),
		"currency", p.Currency,
	)
	return p, nil
}

// Undo refunds the payment produced by Execute. The payment must be
// completed; on gateway failure it stays completed and the error is
// returned without retry.
func (c *ProcessPaymentCommand) Undo(ctx context.Context) error {
	ctx, span := commandTracer.Start(ctx, "command.process_payment.undo")
	defer span.End()

	if c.payment == nil {
		return fmt.Errorf("%w: command never executed", ErrCommandNotSuccessful)
	}
	if c.payment.Status != StatusCompleted {
		return fmt.Errorf("%w: payment %s is %s", ErrCommandNotSuccessful, c.payment.ID, c.payment.Status)
	}

	if err := c.gateway.Refund(ctx, c.payment.TransactionRef); err != nil {
		c.logger.Error("refund failed",
			"payment_id", c.payment.ID,
			"transaction_ref", c.payment.TransactionRef,
			"error", err,
		)
		return err
	}

	if err := c.payment.MarkRefunded(); err != nil {
		return err
	}
	if err := c.store.Update(ctx, c.payment); err != nil {
		return fmt.Errorf("payments: record refund: %w", err)
	}
	c.logger.Info("payment refunded",
		"payment_id", c.payment.ID,
		"transaction_ref", c.payment.TransactionRef,
	)
	return nil
}

// RecurringPaymentCommand charges one billing cycle of a subscription.
// Each invocation produces a fresh Payment; the subscription's next due
// date advances one interval from the previous due date on success and
// on decline alike. A declined charge never pauses the subscription.
type RecurringPaymentCommand struct {
	sub      *subscriptions.Subscription
	subStore subscriptions.Store
	gateway  Gateway
	store    Store
	logger   *logging.Logger
	inner    *ProcessPaymentCommand
	nowFn    func() time.Time
}

// NewRecurringPaymentCommand builds a recurring charge command for one
// subscription.
func NewRecurringPaymentCommand(sub *subscriptions.Subscription, subStore subscriptions.Store, gateway Gateway, store Store, logger *logging.Logger) *RecurringPaymentCommand {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecurringPaymentCommand{
		sub:      sub,
		subStore: subStore,
		gateway:  gateway,
		store:    store,
		logger:   logger,
		nowFn:    time.Now,
	}
}

// WithClock injects the time source.
func (c *RecurringPaymentCommand) WithClock(now func() time.Time) *RecurringPaymentCommand {
	c.nowFn = now
	return c
}

// Payment returns the record produced by the last Execute, or nil.
func (c *RecurringPaymentCommand) Payment() *Payment {
	if c.inner == nil {
		return nil
	}
	return c.inner.Payment()
}

// Execute charges the subscription's amount and advances the next due
// date. The advance and the charge outcome are persisted together: the
// payment row first, then the subscription in one atomic update.
func (c *RecurringPaymentCommand) Execute(ctx context.Context) (*Payment, error) {
	ctx, span := commandTracer.Start(ctx, "command.recurring_payment")
	defer span.End()
	span.SetAttributes(attribute.String("payflow.subscription_id", c.sub.ID.String()))

	if c.sub.Status != subscriptions.StatusActive {
		return nil, fmt.Errorf("%w: subscription %s is %s", ErrSubscriptionNotActive, c.sub.ID, c.sub.Status)
	}

	c.inner = NewProcessPaymentCommand(c.gateway, c.store, c.logger, c.sub.Amount, c.sub.Currency, c.sub.CustomerID).
		WithClock(c.nowFn)

	p, chargeErr := c.inner.Execute(ctx)
	if p == nil {
		return nil, chargeErr
	}
	p.SubscriptionID = c.sub.ID
	if err := c.store.Update(ctx, p); err != nil {
		return p, fmt.Errorf("payments: link payment to subscription: %w", err)
	}

	previousDue := c.sub.NextPaymentDate
	c.sub.AdvanceNextPaymentDate()
	if err := c.subStore.Update(ctx, c.sub); err != nil {
		return p, fmt.Errorf("payments: advance subscription %s: %w", c.sub.ID, err)
	}

	c.logger.Info("recurring charge processed",
		"subscription_id", c.sub.ID,
		"payment_id", p.ID,
		"status", p.Status,
		"previous_due", previousDue,
		"next_due", c.sub.NextPaymentDate,
	)
	return p, chargeErr
}

// Undo refunds the payment most recently produced by this command.
func (c *RecurringPaymentCommand) Undo(ctx context.Context) error {
	if c.inner == nil {
		return fmt.Errorf("%w: command never executed", ErrCommandNotSuccessful)
	}
	return c.inner.Undo(ctx)
}
