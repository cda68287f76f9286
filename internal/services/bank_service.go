package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/coralbank/backend/internal/audit"
	"github.com/coralbank/backend/internal/models"
	"github.com/coralbank/backend/internal/store"
)

// accountCacheTTL bounds the lifetime of cached account reads; every
// committed mutation rewrites the entry before the lock is released.
const accountCacheTTL = 5 * time.Minute

// BankService is the account ledger core. It serializes all mutations of an
// account behind that account's lock, keeps balances non-negative, and
// appends one immutable journal record per operation, stamped with the same
// timestamp as the balance write it belongs to.
//
// Reads (GetAccount, the list operations) take no lock and observe the
// latest committed state; mutation is read-compute-write entirely inside the
// locked section, so a reader never sees a half-applied operation.
type BankService struct {
	store store.LedgerStore
	locks *LockManager
	redis *redis.Client // nil disables caching
	audit *audit.Logger
	now   func() time.Time
}

// NewBankService wires the service. redisClient may be nil; the service then
// reads straight from the store.
func NewBankService(ledgerStore store.LedgerStore, redisClient *redis.Client) *BankService {
	return &BankService{
		store: ledgerStore,
		locks: NewLockManager(),
		redis: redisClient,
		audit: audit.NewLogger(),
		now:   time.Now,
	}
}

// GetAccount returns the current state of the account, going through the
// cache when one is configured. Lock-free. The read path never writes the
// cache: only the mutation paths populate it, inside the account's lock, so
// a slow reader can never clobber the entry with a balance that predates a
// committed mutation.
func (s *BankService) GetAccount(ctx context.Context, number models.AccountNumber) (models.Account, error) {
	if account, ok := s.cachedAccount(ctx, number); ok {
		return account, nil
	}
	return s.store.GetAccount(ctx, number)
}

// Deposit adds amount to the account's balance, lazily creating the account
// on first deposit. This is the only implicit account-creation path besides
// the receiving side of a transfer. Returns the updated account.
func (s *BankService) Deposit(ctx context.Context, number models.AccountNumber, amount decimal.Decimal) (models.Account, error) {
	if err := validateMutationParams(number, amount); err != nil {
		return models.Account{}, err
	}

	l := s.locks.Obtain(number)
	l.Lock()
	defer l.Unlock()

	account, err := s.getOrCreateAccount(ctx, number)
	if err != nil {
		return models.Account{}, err
	}

	ts := s.now()
	record := models.NewDeposit(number, amount, ts.UnixMilli())
	if err := s.store.AppendTransaction(ctx, record); err != nil {
		return models.Account{}, err
	}
	updated, err := s.store.UpdateBalance(ctx, number, account.Balance.Add(amount), ts)
	if err != nil {
		s.invalidateAccount(ctx, number)
		return models.Account{}, s.inconsistent("deposit", record.ID, err)
	}

	s.cacheAccount(ctx, updated)
	s.audit.LogDeposit(record.ID.String(), number.String(), amount.String())
	return updated, nil
}

// Withdraw subtracts amount from the account's balance. It never creates an
// account and performs no writes when the balance would go negative.
func (s *BankService) Withdraw(ctx context.Context, number models.AccountNumber, amount decimal.Decimal) (models.Account, error) {
	if err := validateMutationParams(number, amount); err != nil {
		return models.Account{}, err
	}

	l := s.locks.Obtain(number)
	l.Lock()
	defer l.Unlock()

	account, err := s.store.GetAccount(ctx, number)
	if err != nil {
		return models.Account{}, err
	}
	remaining := account.Balance.Sub(amount)
	if remaining.IsNegative() {
		return models.Account{}, fmt.Errorf("%w: account %s holds %s, requested %s",
			models.ErrInsufficientBalance, number, account.Balance, amount)
	}

	ts := s.now()
	record := models.NewWithdrawal(number, amount, ts.UnixMilli())
	if err := s.store.AppendTransaction(ctx, record); err != nil {
		return models.Account{}, err
	}
	updated, err := s.store.UpdateBalance(ctx, number, remaining, ts)
	if err != nil {
		s.invalidateAccount(ctx, number)
		return models.Account{}, s.inconsistent("withdrawal", record.ID, err)
	}

	s.cacheAccount(ctx, updated)
	s.audit.LogWithdrawal(record.ID.String(), number.String(), amount.String())
	return updated, nil
}

// Transfer atomically moves amount from one account to another and appends
// exactly one Transfer record covering both sides. Both account locks are
// held for the whole critical section, always acquired in ascending numeric
// order so that opposite-direction transfers cannot deadlock. The receiving
// account is lazily created; the sending account must exist and cover the
// amount. A store failure after the first write leaves the ledger
// inconsistent and is surfaced as such; there is no automatic rollback.
func (s *BankService) Transfer(ctx context.Context, from, to models.AccountNumber, amount decimal.Decimal) (models.Transaction, error) {
	if err := validateMutationParams(from, amount); err != nil {
		return models.Transaction{}, err
	}
	if to.IsZero() {
		return models.Transaction{}, fmt.Errorf("%w: target account is required", models.ErrInvalidArgument)
	}
	if from == to {
		return models.Transaction{}, fmt.Errorf("%w: cannot transfer from account %s to itself", models.ErrInvalidArgument, from)
	}

	first, second := s.locks.ObtainOrdered(from, to)
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()

	source, err := s.store.GetAccount(ctx, from)
	if err != nil {
		return models.Transaction{}, err
	}
	remaining := source.Balance.Sub(amount)
	if remaining.IsNegative() {
		return models.Transaction{}, fmt.Errorf("%w: account %s holds %s, requested %s",
			models.ErrInsufficientBalance, from, source.Balance, amount)
	}
	target, err := s.getOrCreateAccount(ctx, to)
	if err != nil {
		return models.Transaction{}, err
	}

	ts := s.now()
	record := models.NewTransfer(from, to, amount, ts.UnixMilli())
	if err := s.store.AppendTransaction(ctx, record); err != nil {
		return models.Transaction{}, err
	}
	sourceUpdated, err := s.store.UpdateBalance(ctx, from, remaining, ts)
	if err != nil {
		s.invalidateAccount(ctx, from)
		s.invalidateAccount(ctx, to)
		return models.Transaction{}, s.inconsistent("transfer", record.ID, err)
	}
	targetUpdated, err := s.store.UpdateBalance(ctx, to, target.Balance.Add(amount), ts)
	if err != nil {
		s.invalidateAccount(ctx, from)
		s.invalidateAccount(ctx, to)
		return models.Transaction{}, s.inconsistent("transfer", record.ID, err)
	}

	s.cacheAccount(ctx, sourceUpdated)
	s.cacheAccount(ctx, targetUpdated)
	s.audit.LogTransfer(record.ID.String(), from.String(), to.String(), amount.String())
	return record, nil
}

// ListDeposits returns the account's deposits, newest first. Records with
// equal timestamps keep their insertion order.
func (s *BankService) ListDeposits(ctx context.Context, number models.AccountNumber) ([]models.Transaction, error) {
	return s.listByKind(ctx, number, models.KindDeposit)
}

// ListWithdrawals returns the account's withdrawals, newest first.
func (s *BankService) ListWithdrawals(ctx context.Context, number models.AccountNumber) ([]models.Transaction, error) {
	return s.listByKind(ctx, number, models.KindWithdrawal)
}

// ListTransfers returns transfers involving the account on either side,
// newest first.
func (s *BankService) ListTransfers(ctx context.Context, number models.AccountNumber) ([]models.Transaction, error) {
	return s.listByKind(ctx, number, models.KindTransfer)
}

// ListTransactions returns the account's full history across all three
// kinds, merged newest first.
func (s *BankService) ListTransactions(ctx context.Context, number models.AccountNumber) ([]models.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, number); err != nil {
		return nil, err
	}
	var result []models.Transaction
	for _, kind := range []models.TransactionKind{models.KindDeposit, models.KindWithdrawal, models.KindTransfer} {
		txs, err := s.store.ListTransactions(ctx, number, kind)
		if err != nil {
			return nil, err
		}
		result = append(result, txs...)
	}
	sortNewestFirst(result)
	return result, nil
}

func (s *BankService) listByKind(ctx context.Context, number models.AccountNumber, kind models.TransactionKind) ([]models.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, number); err != nil {
		return nil, err
	}
	result, err := s.store.ListTransactions(ctx, number, kind)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(result)
	return result, nil
}

// getOrCreateAccount must run under the account's lock.
func (s *BankService) getOrCreateAccount(ctx context.Context, number models.AccountNumber) (models.Account, error) {
	account, err := s.store.GetAccount(ctx, number)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, models.ErrAccountNotFound) {
		return models.Account{}, err
	}
	account, err = s.store.CreateAccount(ctx, number, decimal.Zero, s.now())
	if err != nil {
		return models.Account{}, err
	}
	log.Printf("[BANK] created account %s", number)
	return account, nil
}

// inconsistent marks a failure that happened after the first durable write
// of an operation. The ledger now disagrees with itself and needs external
// reconciliation, so the error is flagged as non-recoverable.
func (s *BankService) inconsistent(op string, id models.TransactionID, err error) error {
	s.audit.LogError(id.String(), op, err)
	log.Printf("[BANK] FATAL: partial %s write for transaction %s: %v", op, id, err)
	return fmt.Errorf("%w: partial %s write for transaction %s: %v", models.ErrLedgerInconsistent, op, id, err)
}

func (s *BankService) cachedAccount(ctx context.Context, number models.AccountNumber) (models.Account, bool) {
	if s.redis == nil {
		return models.Account{}, false
	}
	raw, err := s.redis.Get(ctx, accountCacheKey(number)).Bytes()
	if err != nil {
		return models.Account{}, false
	}
	var account models.Account
	if err := json.Unmarshal(raw, &account); err != nil {
		return models.Account{}, false
	}
	return account, true
}

// cacheAccount writes the committed state through to the cache. It must run
// inside the account's lock so entries are written in commit order.
func (s *BankService) cacheAccount(ctx context.Context, account models.Account) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(account)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, accountCacheKey(account.Number), raw, accountCacheTTL).Err(); err != nil {
		log.Printf("[BANK] failed to cache account %s: %v", account.Number, err)
	}
}

// invalidateAccount drops the entry on error paths, where the store's state
// is no longer known.
func (s *BankService) invalidateAccount(ctx context.Context, number models.AccountNumber) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, accountCacheKey(number)).Err(); err != nil {
		log.Printf("[BANK] failed to invalidate cache for account %s: %v", number, err)
	}
}

func accountCacheKey(number models.AccountNumber) string {
	return "account:" + number.String()
}

// validateMutationParams rejects bad input before any lock is taken. It has
// no side effects.
func validateMutationParams(number models.AccountNumber, amount decimal.Decimal) error {
	if number.IsZero() {
		return fmt.Errorf("%w: account number is required", models.ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: transaction amount must be greater than zero, got %s", models.ErrInvalidArgument, amount)
	}
	return nil
}

// sortNewestFirst orders by timestamp descending. The sort is stable, so
// records sharing a timestamp keep the store's insertion order.
func sortNewestFirst(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp > txs[j].Timestamp
	})
}
