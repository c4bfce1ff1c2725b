package walletstate

import (
	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/units"
)

// Snapshot is the presentation view of the store.
type Snapshot struct {
	Connected        bool                        `json:"connected"`
	Address          *string                     `json:"address"`
	ChainID          *string                     `json:"chainId"`
	Balance          *string                     `json:"balance"`
	BalanceWei       *string                     `json:"balanceWei"`
	BalanceDisplay   string                      `json:"balanceDisplay"`
	Phase            Phase                       `json:"phase"`
	Loading          bool                        `json:"loading"`
	Network          *networks.NetworkDescriptor `json:"network"`
	UnsupportedChain bool                        `json:"unsupportedChain"`
}

func (s *Store) Snapshot() Snapshot {
	return s.snapshotOf(s.State())
}

func (s *Store) snapshotOf(st State) Snapshot {
	rec := RecordFrom(st.Wallet)
	out := Snapshot{
		Connected: rec.Connected,
		Address:   rec.Address,
		ChainID:   rec.ChainID,
		Balance:   rec.Balance,
		Phase:     st.Phase(),
		Loading:   st.Loading,
	}

	if st.Wallet.Balance != nil {
		wei := st.Wallet.Balance.String()
		out.BalanceWei = &wei
		out.BalanceDisplay = units.FormatUnitsTrim(st.Wallet.Balance, constants.NativeDecimals, constants.BalanceDisplayDecimals)
	}

	if st.Wallet.ChainID != "" {
		if n, ok := networks.Lookup(st.Wallet.ChainID, s.known...); ok {
			out.Network = &n
		} else {
			out.UnsupportedChain = true
		}
	}
	return out
}

// SubscribeSnapshots is Subscribe with the presentation view.
func (s *Store) SubscribeSnapshots(fn func(Snapshot)) (unsubscribe func()) {
	return s.Subscribe(func(st State) { fn(s.snapshotOf(st)) })
}
