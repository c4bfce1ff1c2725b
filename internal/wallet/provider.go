// Package wallet defines the capability the bridge client consumes from a
// wallet: account and chain lookups, balance, chain switching and
// transaction submission, plus account/chain change notifications.
package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
)

type TxRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Gas   uint64
}

type Provider interface {
	// RequestAccounts asks the wallet to expose its accounts, prompting if needed.
	RequestAccounts(ctx context.Context) ([]string, error)
	// Accounts returns the already exposed accounts without prompting.
	Accounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (string, error)
	Balance(ctx context.Context, address string) (*big.Int, error)

	SwitchChain(ctx context.Context, chainIdHex string) error
	AddChain(ctx context.Context, n networks.NetworkDescriptor) error

	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	SubscribeAccountsChanged(ch chan<- []string) event.Subscription
	SubscribeChainChanged(ch chan<- string) event.Subscription
}

// Notifier is embedded by providers to fan out account and chain changes.
type Notifier struct {
	accountsFeed event.Feed
	chainFeed    event.Feed
}

func (n *Notifier) SubscribeAccountsChanged(ch chan<- []string) event.Subscription {
	return n.accountsFeed.Subscribe(ch)
}

func (n *Notifier) SubscribeChainChanged(ch chan<- string) event.Subscription {
	return n.chainFeed.Subscribe(ch)
}

func (n *Notifier) NotifyAccounts(accounts []string) int {
	return n.accountsFeed.Send(accounts)
}

func (n *Notifier) NotifyChain(chainIdHex string) int {
	return n.chainFeed.Send(chainIdHex)
}
