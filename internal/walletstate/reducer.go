package walletstate

import (
	"math/big"

	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
)

// Action is the closed set of state transitions.
type Action interface {
	Kind() string
	isAction()
}

type SetLoading struct{ Loading bool }

type SetConnected struct {
	Address string
	ChainID string
	Balance *big.Int
}

type SetDisconnected struct{}

type UpdateBalance struct{ Balance *big.Int }

type UpdateChain struct{ ChainID string }

// RestoreState puts a persisted record back in place pending verification.
type RestoreState struct{ Wallet ConnectionState }

func (SetLoading) Kind() string      { return "SET_LOADING" }
func (SetConnected) Kind() string    { return "SET_CONNECTED" }
func (SetDisconnected) Kind() string { return "SET_DISCONNECTED" }
func (UpdateBalance) Kind() string   { return "UPDATE_BALANCE" }
func (UpdateChain) Kind() string     { return "UPDATE_CHAIN" }
func (RestoreState) Kind() string    { return "RESTORE_STATE" }

func (SetLoading) isAction()      {}
func (SetConnected) isAction()    {}
func (SetDisconnected) isAction() {}
func (UpdateBalance) isAction()   {}
func (UpdateChain) isAction()     {}
func (RestoreState) isAction()    {}

// Reduce returns the state that follows s after a. It has no side effects.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetLoading:
		s.Loading = a.Loading

	case SetConnected:
		if a.Address == "" {
			s.Wallet = ConnectionState{}
			s.Verifying = false
			break
		}
		s.Wallet = ConnectionState{
			Connected: true,
			Address:   a.Address,
			ChainID:   networks.NormalizeChainIDHex(a.ChainID),
			Balance:   copyBig(a.Balance),
		}
		s.Verifying = false

	case SetDisconnected:
		s.Wallet = ConnectionState{}
		s.Verifying = false

	case UpdateBalance:
		if s.Wallet.Connected {
			s.Wallet.Balance = copyBig(a.Balance)
		}

	case UpdateChain:
		s.Wallet.ChainID = networks.NormalizeChainIDHex(a.ChainID)

	case RestoreState:
		if !a.Wallet.Connected || a.Wallet.Address == "" {
			break
		}
		s.Wallet = ConnectionState{
			Connected: true,
			Address:   a.Wallet.Address,
			ChainID:   networks.NormalizeChainIDHex(a.Wallet.ChainID),
			Balance:   copyBig(a.Wallet.Balance),
		}
		s.Verifying = true
	}
	return s
}

type persistOp int

const (
	persistNone persistOp = iota
	persistSave
	persistClear
)

// persistEffect says what a reduced action means for the persisted record.
// Saves only happen for connected states.
func persistEffect(a Action, next State) persistOp {
	switch a.(type) {
	case SetConnected, UpdateBalance, UpdateChain:
		if next.Wallet.Connected {
			return persistSave
		}
		if _, ok := a.(SetConnected); ok {
			return persistClear
		}
	case SetDisconnected:
		return persistClear
	}
	return persistNone
}
