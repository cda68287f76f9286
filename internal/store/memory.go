package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coralbank/backend/internal/models"
)

// MemoryStore keeps the ledger in process memory. It is the default store
// when no database is configured and the substrate for the concurrency
// tests. All methods are safe for concurrent use.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[models.AccountNumber]models.Account
	transactions []models.Transaction
	ids          map[models.TransactionID]struct{}
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[models.AccountNumber]models.Account),
		ids:      make(map[models.TransactionID]struct{}),
	}
}

// CreateAccount persists a new account with the given opening balance.
func (s *MemoryStore) CreateAccount(ctx context.Context, number models.AccountNumber, balance decimal.Decimal, ts time.Time) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[number]; exists {
		return models.Account{}, fmt.Errorf("account %s already exists", number)
	}
	account := models.Account{
		Number:    number,
		Balance:   balance,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	s.accounts[number] = account
	return account, nil
}

// GetAccount returns the latest committed state of the account.
func (s *MemoryStore) GetAccount(ctx context.Context, number models.AccountNumber) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[number]
	if !ok {
		return models.Account{}, models.NotFoundError(number)
	}
	return account, nil
}

// UpdateBalance overwrites the balance and updatedAt in one write.
func (s *MemoryStore) UpdateBalance(ctx context.Context, number models.AccountNumber, newBalance decimal.Decimal, ts time.Time) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[number]
	if !ok {
		return models.Account{}, models.NotFoundError(number)
	}
	account.Balance = newBalance
	account.UpdatedAt = ts
	s.accounts[number] = account
	return account, nil
}

// AppendTransaction appends one journal record. Records are never mutated or
// deleted afterwards.
func (s *MemoryStore) AppendTransaction(ctx context.Context, tx models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.ids[tx.ID]; seen {
		return fmt.Errorf("%w: %s", models.ErrDuplicateTransaction, tx.ID)
	}
	s.ids[tx.ID] = struct{}{}
	s.transactions = append(s.transactions, tx)
	return nil
}

// ListTransactions returns records of the given kind involving the account,
// in insertion order.
func (s *MemoryStore) ListTransactions(ctx context.Context, number models.AccountNumber, kind models.TransactionKind) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []models.Transaction
	for _, tx := range s.transactions {
		if tx.Kind == kind && tx.Involves(number) {
			result = append(result, tx)
		}
	}
	return result, nil
}

var _ LedgerStore = (*MemoryStore)(nil)
