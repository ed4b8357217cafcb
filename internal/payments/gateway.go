package payments

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/payflow/pkg/logging"
)

var gatewayTracer = otel.Tracer("payflow/gateway")

// Gateway is the payment processor contract. Charge returns an opaque
// transaction reference on success; Refund compensates a previous
// charge by reference.
type Gateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, currency, customerRef string) (string, error)
	Refund(ctx context.Context, transactionRef string) error
}

const (
	defaultChargeSuccessRate = 0.90
	defaultRefundSuccessRate = 0.90
)

// SimulatedGateway models an external processor without network I/O.
// Charges and refunds succeed probabilistically; the randomness source
// is injectable so tests are deterministic.
type SimulatedGateway struct {
	chargeRate float64
	refundRate float64
	latency    time.Duration
	roll       func() float64
	logger     *logging.Logger

	mu       sync.Mutex
	issued   map[string]bool // transaction refs this gateway handed out
	refunded map[string]bool
}

// GatewayOption configures a SimulatedGateway.
type GatewayOption func(*SimulatedGateway)

// WithChargeSuccessRate sets the probability of a charge succeeding.
func WithChargeSuccessRate(rate float64) GatewayOption {
	return func(g *SimulatedGateway) { g.chargeRate = rate }
}

// WithRefundSuccessRate sets the probability of a refund succeeding.
func WithRefundSuccessRate(rate float64) GatewayOption {
	return func(g *SimulatedGateway) { g.refundRate = rate }
}

// WithRoll injects the randomness source. The function must return a
// value in [0, 1); an outcome succeeds when roll() < rate.
func WithRoll(roll func() float64) GatewayOption {
	return func(g *SimulatedGateway) { g.roll = roll }
}

// WithSeed derives the randomness source from a fixed seed for
// reproducible success/failure sequences.
func WithSeed(seed int64) GatewayOption {
	return func(g *SimulatedGateway) {
		r := rand.New(rand.NewSource(seed))
		var mu sync.Mutex
		g.roll = func() float64 {
			mu.Lock()
			defer mu.Unlock()
			return r.Float64()
		}
	}
}

// WithLatency adds simulated processing delay to each gateway call.
// The delay respects context cancellation.
func WithLatency(d time.Duration) GatewayOption {
	return func(g *SimulatedGateway) { g.latency = d }
}

// NewSimulatedGateway creates a gateway with a 90% charge and refund
// success rate unless configured otherwise.
func NewSimulatedGateway(logger *logging.Logger, opts ...GatewayOption) *SimulatedGateway {
	if logger == nil {
		logger = logging.Default()
	}
	g := &SimulatedGateway{
		chargeRate: defaultChargeSuccessRate,
		refundRate: defaultRefundSuccessRate,
		roll:       rand.Float64,
		logger:     logger,
		issued:     make(map[string]bool),
		refunded:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Charge simulates charging a customer. On success it returns a fresh
// unique transaction reference; on decline it returns ErrGatewayDeclined
// and no reference.
func (g *SimulatedGateway) Charge(ctx context.Context, amount decimal.Decimal, currency, customerRef string) (string, error) {
	ctx, span := gatewayTracer.Start(ctx, "gateway.charge")
	defer span.End()
	span.SetAttributes(
		attribute.String("payflow.amount", amount.String()),
		attribute.String("payflow.currency", currency),
	)

	if err := g.sleep(ctx); err != nil {
		return "", err
	}

	if g.roll() >= g.chargeRate {
		g.logger.Warn("gateway declined charge",
			"amount", amount.String(),
			"currency", currency,
			"customer", customerRef,
		)
		return "", fmt.Errorf("%w: card declined or insufficient funds", ErrGatewayDeclined)
	}

	ref := newTransactionRef()
	g.mu.Lock()
	g.issued[ref] = true
	g.mu.Unlock()

	g.logger.Info("gateway charge approved",
		"transaction_ref", ref,
		"amount", amount.String(),
		"currency", currency,
	)
	return ref, nil
}

// Refund simulates refunding a previous charge. Unknown or already
// refunded references fail with ErrInvalidReference; known references
// may still fail probabilistically, and that failure is surfaced.
func (g *SimulatedGateway) Refund(ctx context.Context, transactionRef string) error {
	ctx, span := gatewayTracer.Start(ctx, "gateway.refund")
	defer span.End()
	span.SetAttributes(attribute.String("payflow.transaction_ref", transactionRef))

	if err := g.sleep(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	known := g.issued[transactionRef]
	alreadyRefunded := g.refunded[transactionRef]
	g.mu.Unlock()

	if !known || alreadyRefunded {
		return fmt.Errorf("%w: %s", ErrInvalidReference, transactionRef)
	}

	if g.roll() >= g.refundRate {
		g.logger.Warn("gateway refund failed", "transaction_ref", transactionRef)
		return fmt.Errorf("%w: refund rejected by processor", ErrGatewayDeclined)
	}

	g.mu.Lock()
	g.refunded[transactionRef] = true
	g.mu.Unlock()

	g.logger.Info("gateway refund approved", "transaction_ref", transactionRef)
	return nil
}

// VerifyTransaction reports whether the gateway issued the reference
// and it has not been refunded.
func (g *SimulatedGateway) VerifyTransaction(transactionRef string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issued[transactionRef] && !g.refunded[transactionRef]
}

func (g *SimulatedGateway) sleep(ctx context.Context) error {
	if g.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(g.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newTransactionRef() string {
	return "txn_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
