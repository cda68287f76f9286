package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind tags a journal record as one of the three operations.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
	KindTransfer   TransactionKind = "TRANSFER"
)

// TransactionID is the globally unique identifier of a journal record,
// minted once per record and immutable afterwards.
type TransactionID struct {
	id uuid.UUID
}

// NewTransactionID mints a fresh random id.
func NewTransactionID() TransactionID {
	return TransactionID{id: uuid.New()}
}

// ParseTransactionID parses the canonical string form.
func ParseTransactionID(raw string) (TransactionID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return TransactionID{}, err
	}
	return TransactionID{id: id}, nil
}

func (t TransactionID) String() string {
	return t.id.String()
}

func (t TransactionID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.id.String() + `"`), nil
}

func (t *TransactionID) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTransactionID(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Transaction is one immutable record of the append-only journal. Account is
// set for deposits and withdrawals; From and To are set for transfers. A
// record never changes a balance retroactively: the balance mutation happens
// exactly once, inside the same critical section that appends the record.
type Transaction struct {
	ID        TransactionID   `json:"id"`
	Kind      TransactionKind `json:"type"`
	Account   AccountNumber   `json:"account,omitzero"`
	From      AccountNumber   `json:"fromAccount,omitzero"`
	To        AccountNumber   `json:"toAccount,omitzero"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"` // ms since epoch
}

// NewDeposit builds a deposit record for the given account.
func NewDeposit(account AccountNumber, amount decimal.Decimal, timestampMillis int64) Transaction {
	return Transaction{
		ID:        NewTransactionID(),
		Kind:      KindDeposit,
		Account:   account,
		Amount:    amount,
		Timestamp: timestampMillis,
	}
}

// NewWithdrawal builds a withdrawal record for the given account.
func NewWithdrawal(account AccountNumber, amount decimal.Decimal, timestampMillis int64) Transaction {
	return Transaction{
		ID:        NewTransactionID(),
		Kind:      KindWithdrawal,
		Account:   account,
		Amount:    amount,
		Timestamp: timestampMillis,
	}
}

// NewTransfer builds the single record covering both sides of a transfer.
func NewTransfer(from, to AccountNumber, amount decimal.Decimal, timestampMillis int64) Transaction {
	return Transaction{
		ID:        NewTransactionID(),
		Kind:      KindTransfer,
		From:      from,
		To:        to,
		Amount:    amount,
		Timestamp: timestampMillis,
	}
}

// Involves reports whether the record belongs to the given account's history.
func (t Transaction) Involves(n AccountNumber) bool {
	if t.Kind == KindTransfer {
		return t.From == n || t.To == n
	}
	return t.Account == n
}
