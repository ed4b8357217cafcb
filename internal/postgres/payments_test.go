package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/payflow/internal/payments"
)

var paymentColumns = []string{"id", "amount", "currency", "status", "transaction_ref", "customer_id", "subscription_id", "created_at"}

func TestPaymentStoreCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewPaymentStore(mock)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := payments.NewPayment(decimal.NewFromFloat(42.50), "USD", "cus_1", now)

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(p.ID, "42.5", "USD", "pending", pgtype.Text{}, "cus_1", pgtype.UUID{}, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.Create(context.Background(), p); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPaymentStoreUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewPaymentStore(mock)
	p := payments.NewPayment(decimal.NewFromFloat(10), "USD", "cus_1", time.Now())
	if err := p.MarkCompleted("txn_abc"); err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("UPDATE payments").
		WithArgs(p.ID, "completed", pgtype.Text{String: "txn_abc", Valid: true}, pgtype.UUID{}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := store.Update(context.Background(), p); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	mock.ExpectExec("UPDATE payments").
		WithArgs(p.ID, "completed", pgtype.Text{String: "txn_abc", Valid: true}, pgtype.UUID{}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.Update(context.Background(), p); !errors.Is(err, payments.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPaymentStoreGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewPaymentStore(mock)
	id := uuid.New()
	subID := uuid.New()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(paymentColumns).AddRow(
		id, "19.99", "USD", "completed",
		pgtype.Text{String: "txn_abc", Valid: true},
		"cus_1",
		pgtype.UUID{Bytes: subID, Valid: true},
		now,
	)
	mock.ExpectQuery("SELECT id").WithArgs(id).WillReturnRows(rows)

	p, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !p.Amount.Equal(decimal.NewFromFloat(19.99)) {
		t.Fatalf("amount = %s", p.Amount)
	}
	if p.Status != payments.StatusCompleted || p.TransactionRef != "txn_abc" {
		t.Fatalf("unexpected payment: %+v", p)
	}
	if p.SubscriptionID != subID {
		t.Fatal("subscription id not decoded")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPaymentStoreGetByIDMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewPaymentStore(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT id").WithArgs(id).WillReturnRows(pgxmock.NewRows(paymentColumns))

	if _, err := store.GetByID(context.Background(), id); !errors.Is(err, payments.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPaymentStoreList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewPaymentStore(mock)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(paymentColumns).
		AddRow(uuid.New(), "5", "USD", "pending", pgtype.Text{}, "cus_1", pgtype.UUID{}, now).
		AddRow(uuid.New(), "7.25", "EUR", "failed", pgtype.Text{}, "cus_2", pgtype.UUID{}, now.Add(time.Minute))
	mock.ExpectQuery("SELECT id").WillReturnRows(rows)

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(all))
	}
	if all[0].TransactionRef != "" || all[0].SubscriptionID != uuid.Nil {
		t.Fatalf("null columns should decode to zero values: %+v", all[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
