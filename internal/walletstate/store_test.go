package walletstate

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet/wallettest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oneEther() *big.Int {
	v, _ := new(big.Int).SetString("1000000000000000000", 10)
	return v
}

func strPtr(s string) *string { return &s }

func newStore(p *wallettest.Provider, persist Persistence) *Store {
	return NewStore(p, persist, networks.Sepolia(), networks.Pruv("", ""))
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	fake := wallettest.New("0xAA")
	fake.Chain = networks.SepoliaChainID
	fake.SetBalance("0xAA", oneEther())
	persist := NewMemoryPersistence()
	s := newStore(fake, persist)

	var phases []Phase
	s.Subscribe(func(st State) { phases = append(phases, st.Phase()) })

	require.NoError(t, s.Connect(ctx))

	st := s.State()
	assert.True(t, st.Wallet.Connected)
	assert.Equal(t, "0xAA", st.Wallet.Address)
	assert.Equal(t, "0xaa36a7", st.Wallet.ChainID)
	assert.Equal(t, "1", st.Wallet.BalanceEther())
	assert.False(t, st.Loading)
	assert.Equal(t, []Phase{PhaseConnecting, PhaseConnecting, PhaseConnected}, phases)

	rec, ok := persist.Load()
	require.True(t, ok)
	assert.True(t, rec.Connected)
	assert.Equal(t, "0xAA", *rec.Address)
	assert.Equal(t, "1", *rec.Balance)
}

func TestConnectWithoutWallet(t *testing.T) {
	s := NewStore(nil, nil)
	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, wallet.ErrWalletUnavailable)
	assert.Equal(t, State{}, s.State())
}

func TestConnectFailuresLeaveStateUnchanged(t *testing.T) {
	ctx := context.Background()

	t.Run("user rejected", func(t *testing.T) {
		fake := wallettest.New("0xAA")
		fake.RequestErr = wallet.NewProviderError(4001, "User rejected the request.")
		s := newStore(fake, nil)

		err := s.Connect(ctx)
		assert.ErrorIs(t, err, wallet.ErrUserRejected)
		assert.Equal(t, State{}, s.State())
	})

	t.Run("no accounts", func(t *testing.T) {
		s := newStore(wallettest.New(), nil)
		assert.ErrorIs(t, s.Connect(ctx), wallet.ErrNoAccounts)
		assert.Equal(t, PhaseDisconnected, s.State().Phase())
	})

	t.Run("chain lookup fails", func(t *testing.T) {
		fake := wallettest.New("0xAA")
		fake.ChainErr = errors.New("boom")
		s := newStore(fake, nil)
		assert.Error(t, s.Connect(ctx))
		assert.False(t, s.State().Wallet.Connected)
		assert.False(t, s.State().Loading)
	})
}

func TestConnectDegradesBalanceFailure(t *testing.T) {
	fake := wallettest.New("0xAA")
	fake.BalanceErr = errors.New("rpc down")
	s := newStore(fake, nil)

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, "0", s.State().Wallet.BalanceEther())
}

func TestRefreshBalance(t *testing.T) {
	ctx := context.Background()
	fake := wallettest.New("0xAA")
	fake.SetBalance("0xAA", oneEther())
	persist := NewMemoryPersistence()
	s := newStore(fake, persist)

	t.Run("noop when disconnected", func(t *testing.T) {
		s.RefreshBalance(ctx)
		assert.Nil(t, s.State().Wallet.Balance)
		saves, _ := persist.Counts()
		assert.Zero(t, saves)
	})

	require.NoError(t, s.Connect(ctx))

	t.Run("updates and persists", func(t *testing.T) {
		fake.SetBalance("0xAA", big.NewInt(5e17))
		s.RefreshBalance(ctx)
		assert.Equal(t, "0.5", s.State().Wallet.BalanceEther())
		rec, _ := persist.Load()
		assert.Equal(t, "0.5", *rec.Balance)
	})

	t.Run("lookup failure becomes zero", func(t *testing.T) {
		fake.BalanceErr = errors.New("rpc down")
		s.RefreshBalance(ctx)
		assert.Equal(t, "0", s.State().Wallet.BalanceEther())
		assert.True(t, s.State().Wallet.Connected)
	})
}

func TestDisconnectClearsRecord(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wallet_state.json")
	fake := wallettest.New("0xAA")

	s := newStore(fake, NewFilePersistence(path, nil))
	require.NoError(t, s.Connect(ctx))
	_, ok := NewFilePersistence(path, nil).Load()
	require.True(t, ok)

	s.Disconnect()
	assert.Equal(t, ConnectionState{}, s.State().Wallet)
	_, ok = NewFilePersistence(path, nil).Load()
	assert.False(t, ok)

	// a fresh start with no wallet interaction is disconnected
	fresh := newStore(fake, NewFilePersistence(path, nil))
	assert.Equal(t, PhaseDisconnected, fresh.Restore(ctx).Phase())
}

func TestSwitchNetwork(t *testing.T) {
	ctx := context.Background()
	pruv := networks.Pruv("", "")

	t.Run("known chain", func(t *testing.T) {
		fake := wallettest.New("0xAA")
		s := newStore(fake, nil)
		require.NoError(t, s.SwitchNetwork(ctx, pruv))
		assert.Equal(t, 1, fake.SwitchCallCount())
		assert.Empty(t, fake.AddCallList())
		assert.Empty(t, s.State().Wallet.ChainID, "state follows chainChanged only")
	})

	t.Run("unregistered chain adds it once with the full descriptor", func(t *testing.T) {
		fake := wallettest.New("0xAA")
		fake.Known = map[string]bool{networks.SepoliaChainID: true}
		s := newStore(fake, nil)

		require.NoError(t, s.SwitchNetwork(ctx, pruv))
		added := fake.AddCallList()
		require.Len(t, added, 1)
		assert.Equal(t, pruv, added[0])
	})

	t.Run("add failure is a switch failure", func(t *testing.T) {
		fake := wallettest.New("0xAA")
		fake.Known = map[string]bool{}
		fake.AddErr = wallet.NewProviderError(4001, "User rejected the request.")
		s := newStore(fake, nil)

		err := s.SwitchNetwork(ctx, pruv)
		assert.ErrorIs(t, err, wallet.ErrNetworkSwitchFailed)
		assert.ErrorIs(t, err, wallet.ErrUserRejected)
	})

	t.Run("other failure", func(t *testing.T) {
		fake := wallettest.New("0xAA")
		fake.SwitchErr = wallet.NewProviderError(-32603, "internal")
		s := newStore(fake, nil)

		err := s.SwitchNetwork(ctx, pruv)
		assert.ErrorIs(t, err, wallet.ErrNetworkSwitchFailed)
		assert.Empty(t, fake.AddCallList())
	})

	t.Run("no wallet", func(t *testing.T) {
		s := NewStore(nil, nil)
		assert.ErrorIs(t, s.SwitchNetwork(ctx, pruv), wallet.ErrWalletUnavailable)
	})
}

func TestCurrentNetwork(t *testing.T) {
	s := newStore(wallettest.New(), nil)

	s.Dispatch(UpdateChain{ChainID: "0x267"})
	n, ok := s.CurrentNetwork()
	require.True(t, ok)
	assert.Equal(t, "Pruv Testnet", n.Name)

	s.Dispatch(UpdateChain{ChainID: "0x1"})
	_, ok = s.CurrentNetwork()
	assert.False(t, ok)

	snap := s.Snapshot()
	assert.True(t, snap.UnsupportedChain)
	assert.Nil(t, snap.Network)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	stale := Record{
		Connected: true,
		Address:   strPtr("0xAA"),
		ChainID:   strPtr("0xaa36a7"),
		Balance:   strPtr("1.0"),
	}

	t.Run("stale session is invalidated", func(t *testing.T) {
		persist := NewMemoryPersistence()
		persist.Seed(stale)
		fake := wallettest.New("0xBB")
		s := newStore(fake, persist)

		var phases []Phase
		s.Subscribe(func(st State) { phases = append(phases, st.Phase()) })

		st := s.Restore(ctx)
		assert.Equal(t, PhaseDisconnected, st.Phase())
		assert.Equal(t, []Phase{PhaseConnecting, PhaseDisconnected}, phases)
		_, ok := persist.Load()
		assert.False(t, ok, "record cleared")
	})

	t.Run("matching session is refreshed", func(t *testing.T) {
		persist := NewMemoryPersistence()
		persist.Seed(stale)
		fake := wallettest.New("0xaa")
		fake.Chain = "0x267"
		fake.SetBalance("0xAA", big.NewInt(5e17))
		s := newStore(fake, persist)

		st := s.Restore(ctx)
		assert.Equal(t, PhaseConnected, st.Phase())
		assert.Equal(t, "0x267", st.Wallet.ChainID)
		assert.Equal(t, "0.5", st.Wallet.BalanceEther())

		rec, ok := persist.Load()
		require.True(t, ok)
		assert.Equal(t, "0x267", *rec.ChainID)
		assert.Equal(t, "0.5", *rec.Balance)
	})

	t.Run("empty account list", func(t *testing.T) {
		persist := NewMemoryPersistence()
		persist.Seed(stale)
		s := newStore(wallettest.New(), persist)
		assert.Equal(t, PhaseDisconnected, s.Restore(ctx).Phase())
	})

	t.Run("verification error", func(t *testing.T) {
		persist := NewMemoryPersistence()
		persist.Seed(stale)
		fake := wallettest.New("0xAA")
		fake.AccountsErr = errors.New("locked")
		s := newStore(fake, persist)
		assert.Equal(t, PhaseDisconnected, s.Restore(ctx).Phase())
		_, ok := persist.Load()
		assert.False(t, ok)
	})

	t.Run("no wallet", func(t *testing.T) {
		persist := NewMemoryPersistence()
		persist.Seed(stale)
		s := NewStore(nil, persist)
		assert.Equal(t, PhaseDisconnected, s.Restore(ctx).Phase())
	})

	t.Run("nothing persisted", func(t *testing.T) {
		persist := NewMemoryPersistence()
		s := newStore(wallettest.New("0xAA"), persist)
		assert.Equal(t, PhaseDisconnected, s.Restore(ctx).Phase())
		saves, clears := persist.Counts()
		assert.Zero(t, saves)
		assert.Zero(t, clears)
	})

	t.Run("disconnected record is left alone", func(t *testing.T) {
		persist := NewMemoryPersistence()
		persist.Seed(Record{Connected: false})
		s := newStore(wallettest.New("0xAA"), persist)
		assert.Equal(t, PhaseDisconnected, s.Restore(ctx).Phase())
		_, clears := persist.Counts()
		assert.Zero(t, clears)
	})
}
