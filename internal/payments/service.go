package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/payflow/internal/observability/metrics"
	"github.com/wolfman30/payflow/pkg/logging"
)

// Service is the payment engine surface exposed to the API layer. It
// owns the command invoker, so the single-slot undo semantics apply
// across all charges executed through it.
type Service struct {
	gateway Gateway
	store   Store
	invoker *Invoker
	logger  *logging.Logger
	metrics *metrics.PaymentMetrics
	nowFn   func() time.Time
}

// NewService wires the engine surface. metrics may be nil.
func NewService(gateway Gateway, store Store, logger *logging.Logger, m *metrics.PaymentMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		gateway: gateway,
		store:   store,
		invoker: NewInvoker(logger),
		logger:  logger,
		metrics: m,
		nowFn:   time.Now,
	}
}

// WithClock injects the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.nowFn = now
	return s
}

// Invoker exposes the service's command invoker.
func (s *Service) Invoker() *Invoker {
	return s.invoker
}

// ExecuteProcessPayment charges amount/currency for customerRef through
// a ProcessPaymentCommand. A declined charge returns the failed Payment
// together with ErrGatewayDeclined.
func (s *Service) ExecuteProcessPayment(ctx context.Context, amount decimal.Decimal, currency, customerRef string) (*Payment, error) {
	cmd := NewProcessPaymentCommand(s.gateway, s.store, s.logger, amount, currency, customerRef).
		WithClock(s.nowFn)

	start := s.nowFn()
	p, err := s.invoker.Execute(ctx, cmd)
	elapsed := s.nowFn().Sub(start).Seconds()

	switch {
	case p != nil:
		s.metrics.ObserveCharge(string(p.Status), elapsed)
	case errors.Is(err, ErrInvalidArgument):
		s.metrics.ObserveCharge("rejected", elapsed)
	}
	return p, err
}

// ExecuteRefund undoes the invoker's slot if and only if it holds the
// command that produced paymentID. Any other payment, or an empty
// slot, is rejected with ErrNoCommandToUndo.
func (s *Service) ExecuteRefund(ctx context.Context, paymentID uuid.UUID) (*Payment, error) {
	if err := s.invoker.UndoLastFor(ctx, paymentID); err != nil {
		if !errors.Is(err, ErrNoCommandToUndo) {
			s.metrics.ObserveRefund("failed")
		}
		return nil, err
	}
	s.metrics.ObserveRefund("refunded")

	p, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("payments: reload refunded payment: %w", err)
	}
	return p, nil
}

// GetPayment loads a payment by id.
func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.store.GetByID(ctx, id)
}

// ListPayments returns all payments.
func (s *Service) ListPayments(ctx context.Context) ([]*Payment, error) {
	return s.store.List(ctx)
}
