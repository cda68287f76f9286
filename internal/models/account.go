package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Account numbers are 10 digits long for this service.
const (
	AccountNumberMin int64 = 1_000_000_000
	AccountNumberMax int64 = 9_999_999_999
)

// AccountNumber is a validated bank account identifier. The zero value is
// invalid; instances are obtained through ParseAccountNumber only, so a live
// AccountNumber is always in range. It is comparable and safe as a map or
// lock key.
type AccountNumber struct {
	number int64
}

// ParseAccountNumber validates raw and wraps it into an AccountNumber.
func ParseAccountNumber(raw int64) (AccountNumber, error) {
	if raw < AccountNumberMin || raw > AccountNumberMax {
		return AccountNumber{}, &InvalidAccountNumberError{Raw: raw}
	}
	return AccountNumber{number: raw}, nil
}

// ParseAccountNumberString parses the decimal string form, as received on the
// HTTP path.
func ParseAccountNumberString(raw string) (AccountNumber, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return AccountNumber{}, &InvalidAccountNumberError{NotNumeric: true}
	}
	return ParseAccountNumber(n)
}

// Int64 returns the numeric value.
func (n AccountNumber) Int64() int64 {
	return n.number
}

// IsZero reports whether n is the invalid zero value.
func (n AccountNumber) IsZero() bool {
	return n.number == 0
}

func (n AccountNumber) String() string {
	return strconv.FormatInt(n.number, 10)
}

// MarshalJSON renders the account number as a bare JSON number, its canonical
// wire form.
func (n AccountNumber) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(n.number, 10)), nil
}

// UnmarshalJSON parses the canonical wire form, re-validating the range so a
// deserialized AccountNumber is as trustworthy as a constructed one.
func (n *AccountNumber) UnmarshalJSON(data []byte) error {
	parsed, err := ParseAccountNumberString(string(data))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Account is the balance-bearing record for one account number. The balance
// is mutated only by the bank service inside a locked critical section and is
// never negative.
type Account struct {
	Number    AccountNumber   `json:"number"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
