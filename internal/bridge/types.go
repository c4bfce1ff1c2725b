// Package bridge submits native-asset transfers that stand in for a bridge
// operation and keeps the resulting transaction history.
package bridge

import (
	"errors"
	"time"
)

var (
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrInsufficientBalance = errors.New("amount exceeds balance")
	ErrInvalidRecipient    = errors.New("invalid recipient address")
	ErrNoRecipient         = errors.New("no recipient and no bridge contract configured")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// TransferIntent lives for one Submit call. An empty Recipient falls back
// to the bridge contract address.
type TransferIntent struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type Transaction struct {
	ID          string    `json:"id"`
	Hash        string    `json:"hash"`
	Amount      string    `json:"amount"`
	Symbol      string    `json:"symbol"`
	From        string    `json:"from"`
	Recipient   string    `json:"recipient"`
	FromNetwork string    `json:"fromNetwork"`
	ToNetwork   string    `json:"toNetwork"`
	FromChainID string    `json:"fromChainId"`
	ToChainID   string    `json:"toChainId"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	ExplorerURL string    `json:"explorerUrl,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Notifier receives the lifecycle of a submitted transfer. Failed is called
// for failures after the transaction hash is known.
type Notifier interface {
	Submitted(tx Transaction)
	Confirmed(tx Transaction)
	Failed(tx Transaction, err error)
}

type nopNotifier struct{}

func (nopNotifier) Submitted(Transaction)     {}
func (nopNotifier) Confirmed(Transaction)     {}
func (nopNotifier) Failed(Transaction, error) {}

// NotifierFunc adapts a single callback to Notifier.
type NotifierFunc func(tx Transaction)

func (f NotifierFunc) Submitted(tx Transaction)       { f(tx) }
func (f NotifierFunc) Confirmed(tx Transaction)       { f(tx) }
func (f NotifierFunc) Failed(tx Transaction, _ error) { f(tx) }
