// Package postgres implements the payment and subscription stores on
// pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/payflow/internal/payments"
)

// db is the subset of pgxpool.Pool the stores use. pgxmock satisfies
// it in tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PaymentStore persists payments in the payments table.
type PaymentStore struct {
	db db
}

// NewPaymentStore creates a store backed by pool.
func NewPaymentStore(pool db) *PaymentStore {
	if pool == nil {
		panic("postgres: pool required")
	}
	return &PaymentStore{db: pool}
}

// Create inserts a new payment row.
func (s *PaymentStore) Create(ctx context.Context, p *payments.Payment) error {
	query := `
		INSERT INTO payments (id, amount, currency, status, transaction_ref, customer_id, subscription_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.Exec(ctx, query,
		p.ID,
		p.Amount.String(),
		p.Currency,
		string(p.Status),
		toPGText(p.TransactionRef),
		p.CustomerID,
		toPGUUID(p.SubscriptionID),
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert payment: %w", err)
	}
	return nil
}

// Update rewrites status, transaction reference and subscription link.
func (s *PaymentStore) Update(ctx context.Context, p *payments.Payment) error {
	query := `
		UPDATE payments
		SET status = $2, transaction_ref = $3, subscription_id = $4
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query,
		p.ID,
		string(p.Status),
		toPGText(p.TransactionRef),
		toPGUUID(p.SubscriptionID),
	)
	if err != nil {
		return fmt.Errorf("postgres: update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payments.ErrNotFound
	}
	return nil
}

// GetByID fetches a payment row.
func (s *PaymentStore) GetByID(ctx context.Context, id uuid.UUID) (*payments.Payment, error) {
	query := `
		SELECT id, amount::text, currency, status, transaction_ref, customer_id, subscription_id, created_at
		FROM payments
		WHERE id = $1
	`
	p, err := scanPayment(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payments.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: load payment: %w", err)
	}
	return p, nil
}

// List returns all payments ordered by creation time then id.
func (s *PaymentStore) List(ctx context.Context) ([]*payments.Payment, error) {
	query := `
		SELECT id, amount::text, currency, status, transaction_ref, customer_id, subscription_id, created_at
		FROM payments
		ORDER BY created_at, id
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list payments: %w", err)
	}
	defer rows.Close()

	var out []*payments.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list payments: %w", err)
	}
	return out, nil
}

func scanPayment(row pgx.Row) (*payments.Payment, error) {
	var (
		p        payments.Payment
		amount   string
		status   string
		txnRef   pgtype.Text
		subID    pgtype.UUID
	)
	if err := row.Scan(&p.ID, &amount, &p.Currency, &status, &txnRef, &p.CustomerID, &subID, &p.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	p.Amount = parsed
	p.Status = payments.Status(status)
	if txnRef.Valid {
		p.TransactionRef = txnRef.String
	}
	if subID.Valid {
		p.SubscriptionID = uuid.UUID(subID.Bytes)
	}
	return &p, nil
}

func toPGText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toPGUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: [16]byte(id), Valid: true}
}
