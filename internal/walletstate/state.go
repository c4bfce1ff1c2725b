// Package walletstate keeps the wallet connection state: which account is
// connected, on which chain, and with what balance. All changes go through
// Reduce; the Store adds wallet calls, persistence and notifications on top.
package walletstate

import (
	"math/big"
	"strings"

	"github.com/quantumauth-io/quantum-bridge-client/internal/units"
)

// ConnectionState is the connection record. Connected is true iff Address
// is set; Balance is in wei and only meaningful when connected.
type ConnectionState struct {
	Connected bool
	Address   string
	ChainID   string
	Balance   *big.Int
}

// BalanceEther renders the balance in native units, "" when unknown.
func (c ConnectionState) BalanceEther() string {
	if c.Balance == nil {
		return ""
	}
	return units.FormatEther(c.Balance)
}

type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseConnected    Phase = "connected"
)

type State struct {
	Wallet ConnectionState
	// Loading is set while Connect is in flight.
	Loading bool
	// Verifying is set while a restored session is being checked against the wallet.
	Verifying bool
}

func (s State) Phase() Phase {
	switch {
	case s.Loading || s.Verifying:
		return PhaseConnecting
	case s.Wallet.Connected:
		return PhaseConnected
	default:
		return PhaseDisconnected
	}
}

func sameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
