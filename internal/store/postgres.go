package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coralbank/backend/internal/models"
)

// PostgresStore persists the ledger in Postgres. Balances and amounts live
// in NUMERIC columns and travel as strings so no precision is lost on the
// way in or out. Every method is a single statement, matching the one-call
// atomicity the service relies on.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateAccount inserts a new account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, number models.AccountNumber, balance decimal.Decimal, ts time.Time) (models.Account, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (number, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $3)`,
		number.Int64(), balance.String(), ts)
	if err != nil {
		return models.Account{}, fmt.Errorf("creating account %s: %w", number, err)
	}
	return models.Account{
		Number:    number,
		Balance:   balance,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// GetAccount reads the current account row.
func (s *PostgresStore) GetAccount(ctx context.Context, number models.AccountNumber) (models.Account, error) {
	var (
		balance   string
		createdAt time.Time
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT balance, created_at, updated_at FROM accounts WHERE number = $1`,
		number.Int64()).Scan(&balance, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, models.NotFoundError(number)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("reading account %s: %w", number, err)
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return models.Account{}, fmt.Errorf("corrupt balance for account %s: %w", number, err)
	}
	return models.Account{
		Number:    number,
		Balance:   amount,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// UpdateBalance overwrites balance and updated_at in one statement.
func (s *PostgresStore) UpdateBalance(ctx context.Context, number models.AccountNumber, newBalance decimal.Decimal, ts time.Time) (models.Account, error) {
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, `
		UPDATE accounts SET balance = $1, updated_at = $2 WHERE number = $3
		RETURNING created_at`,
		newBalance.String(), ts, number.Int64()).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, models.NotFoundError(number)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("updating balance for account %s: %w", number, err)
	}
	return models.Account{
		Number:    number,
		Balance:   newBalance,
		CreatedAt: createdAt,
		UpdatedAt: ts,
	}, nil
}

// AppendTransaction inserts one journal row. The id column is the primary
// key, so a duplicate id fails the insert rather than rewriting history.
func (s *PostgresStore) AppendTransaction(ctx context.Context, tx models.Transaction) error {
	var account, from, to sql.NullInt64
	if tx.Kind == models.KindTransfer {
		from = sql.NullInt64{Int64: tx.From.Int64(), Valid: true}
		to = sql.NullInt64{Int64: tx.To.Int64(), Valid: true}
	} else {
		account = sql.NullInt64{Int64: tx.Account.Int64(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, kind, account_number, from_number, to_number, amount, ts_millis)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID.String(), string(tx.Kind), account, from, to, tx.Amount.String(), tx.Timestamp)
	if err != nil {
		return fmt.Errorf("appending %s transaction %s: %w", tx.Kind, tx.ID, err)
	}
	return nil
}

// ListTransactions returns all rows of the given kind involving the account,
// in insertion (seq) order.
func (s *PostgresStore) ListTransactions(ctx context.Context, number models.AccountNumber, kind models.TransactionKind) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, account_number, from_number, to_number, amount, ts_millis
		FROM transactions
		WHERE kind = $2 AND (account_number = $1 OR from_number = $1 OR to_number = $1)
		ORDER BY seq`,
		number.Int64(), string(kind))
	if err != nil {
		return nil, fmt.Errorf("listing %s transactions for account %s: %w", kind, number, err)
	}
	defer rows.Close()

	var result []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func scanTransaction(rows *sql.Rows) (models.Transaction, error) {
	var (
		rawID             string
		kind              string
		account, from, to sql.NullInt64
		rawAmount         string
		tsMillis          int64
	)
	if err := rows.Scan(&rawID, &kind, &account, &from, &to, &rawAmount, &tsMillis); err != nil {
		return models.Transaction{}, fmt.Errorf("scanning transaction row: %w", err)
	}
	id, err := models.ParseTransactionID(rawID)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("corrupt transaction id %q: %w", rawID, err)
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("corrupt amount for transaction %s: %w", rawID, err)
	}
	tx := models.Transaction{
		ID:        id,
		Kind:      models.TransactionKind(kind),
		Amount:    amount,
		Timestamp: tsMillis,
	}
	if account.Valid {
		if tx.Account, err = models.ParseAccountNumber(account.Int64); err != nil {
			return models.Transaction{}, fmt.Errorf("corrupt account number on transaction %s: %w", rawID, err)
		}
	}
	if from.Valid {
		if tx.From, err = models.ParseAccountNumber(from.Int64); err != nil {
			return models.Transaction{}, fmt.Errorf("corrupt from-account on transaction %s: %w", rawID, err)
		}
	}
	if to.Valid {
		if tx.To, err = models.ParseAccountNumber(to.Int64); err != nil {
			return models.Transaction{}, fmt.Errorf("corrupt to-account on transaction %s: %w", rawID, err)
		}
	}
	return tx, nil
}

var _ LedgerStore = (*PostgresStore)(nil)
