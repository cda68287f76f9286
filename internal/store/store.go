package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coralbank/backend/internal/models"
)

// LedgerStore is the durability contract the bank service runs on. Each call
// is individually atomic and durable; the store is not assumed to offer
// multi-statement transactions, so the service's per-account locks are the
// only correctness mechanism across a read-compute-write sequence.
type LedgerStore interface {
	// CreateAccount persists a new account. It fails if the number is taken.
	CreateAccount(ctx context.Context, number models.AccountNumber, balance decimal.Decimal, ts time.Time) (models.Account, error)

	// GetAccount returns the current account state, or ErrAccountNotFound.
	GetAccount(ctx context.Context, number models.AccountNumber) (models.Account, error)

	// UpdateBalance overwrites the account's balance and updatedAt in one
	// write and returns the updated record.
	UpdateBalance(ctx context.Context, number models.AccountNumber, newBalance decimal.Decimal, ts time.Time) (models.Account, error)

	// AppendTransaction appends one immutable journal record.
	AppendTransaction(ctx context.Context, tx models.Transaction) error

	// ListTransactions returns all records of the given kind involving the
	// account, in insertion order.
	ListTransactions(ctx context.Context, number models.AccountNumber, kind models.TransactionKind) ([]models.Transaction, error)
}
