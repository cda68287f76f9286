package models

import (
	"errors"
	"fmt"
	"strconv"
)

// Sentinel errors returned by the bank service and the ledger store. Callers
// branch on them with errors.Is; the HTTP layer maps them to status codes.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidAmountFormat  = errors.New("invalid amount format")
	ErrLedgerInconsistent   = errors.New("ledger inconsistent")
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
)

// InvalidAccountNumberError reports a number outside the 10-digit range.
// NotNumeric is set when the input could not be parsed as an integer at all,
// in which case Raw is meaningless.
type InvalidAccountNumberError struct {
	Raw        int64
	NotNumeric bool
}

func (e *InvalidAccountNumberError) Error() string {
	if e.NotNumeric {
		return "invalid account number: not a number"
	}
	return "invalid account number: " + strconv.FormatInt(e.Raw, 10)
}

// NotFoundError wraps ErrAccountNotFound with the account number that missed.
func NotFoundError(n AccountNumber) error {
	return fmt.Errorf("%w: %s", ErrAccountNotFound, n)
}
