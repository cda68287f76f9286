package audit

import (
	"encoding/json"
	"log"
	"time"
)

// Event is one structured audit-trail entry. Events are emitted for every
// ledger mutation and every inconsistency, as JSON on the process log.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	Account       string    `json:"account,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogDeposit(transactionID, account, amount string) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "DEPOSIT",
		TransactionID: transactionID,
		Account:       account,
		Amount:        amount,
		Status:        "SUCCESS",
	})
}

func (a *Logger) LogWithdrawal(transactionID, account, amount string) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "WITHDRAWAL",
		TransactionID: transactionID,
		Account:       account,
		Amount:        amount,
		Status:        "SUCCESS",
	})
}

func (a *Logger) LogTransfer(transactionID, fromAccount, toAccount, amount string) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "TRANSFER",
		TransactionID: transactionID,
		Amount:        amount,
		Status:        "SUCCESS",
		Details: map[string]string{
			"from_account": fromAccount,
			"to_account":   toAccount,
		},
	})
}

func (a *Logger) LogError(transactionID, operation string, err error) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "ERROR",
		TransactionID: transactionID,
		Status:        "FAILED",
		Details: map[string]string{
			"operation": operation,
			"error":     err.Error(),
		},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
