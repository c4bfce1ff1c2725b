package walletstate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Store owns the connection state. A nil provider means no wallet is
// available; every wallet operation then fails with wallet.ErrWalletUnavailable.
type Store struct {
	provider wallet.Provider
	persist  Persistence
	known    []networks.NetworkDescriptor

	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func NewStore(provider wallet.Provider, persist Persistence, known ...networks.NetworkDescriptor) *Store {
	if persist == nil {
		persist = NewMemoryPersistence()
	}
	return &Store{
		provider:  provider,
		persist:   persist,
		known:     known,
		listeners: map[int]func(State){},
	}
}

func (s *Store) Provider() wallet.Provider { return s.provider }

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every state change. fn runs under the store
// lock: it must not block or call back into the store.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Dispatch applies a, syncs persistence and notifies listeners, atomically
// with respect to other dispatches.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Reduce(s.state, a)
	s.state = next

	switch persistEffect(a, next) {
	case persistSave:
		s.persist.Save(RecordFrom(next.Wallet))
	case persistClear:
		s.persist.Clear()
	}

	for _, fn := range s.listeners {
		fn(next)
	}
	return next
}

// Connect asks the wallet for its accounts and connects the first one.
// Failures leave the state unchanged.
func (s *Store) Connect(ctx context.Context) error {
	if s.provider == nil {
		return wallet.ErrWalletUnavailable
	}

	s.Dispatch(SetLoading{Loading: true})
	defer s.Dispatch(SetLoading{Loading: false})

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		log.Error("failed to connect wallet", "error", err)
		return fmt.Errorf("request accounts: %w", err)
	}
	if len(accounts) == 0 {
		return wallet.ErrNoAccounts
	}

	return s.connectAs(ctx, accounts[0])
}

func (s *Store) connectAs(ctx context.Context, address string) error {
	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	balance := s.fetchBalance(ctx, address)

	s.Dispatch(SetConnected{Address: address, ChainID: chainID, Balance: balance})
	log.Info("wallet connected", "address", address, "chainId", chainID)
	return nil
}

// Disconnect clears the state and the persisted record.
func (s *Store) Disconnect() {
	s.Dispatch(SetDisconnected{})
	log.Info("wallet disconnected")
}

// RefreshBalance re-reads the balance of the connected account. Lookup
// failures degrade to a zero balance and are not returned.
func (s *Store) RefreshBalance(ctx context.Context) {
	st := s.State()
	if !st.Wallet.Connected || s.provider == nil {
		return
	}
	s.Dispatch(UpdateBalance{Balance: s.fetchBalance(ctx, st.Wallet.Address)})
}

// fetchBalance reports a failed lookup as zero. A failure is indistinguishable
// from an empty wallet to callers.
func (s *Store) fetchBalance(ctx context.Context, address string) *big.Int {
	balance, err := s.provider.Balance(ctx, address)
	if err != nil || balance == nil {
		if err == nil {
			err = errors.New("empty balance response")
		}
		log.Warn("balance lookup failed, reporting zero",
			"address", address,
			"error", fmt.Errorf("%w: %w", wallet.ErrBalanceLookupFailed, err),
		)
		return big.NewInt(0)
	}
	return balance
}

// SwitchNetwork asks the wallet to switch to target, adding the chain first
// when the wallet does not know it. State is left to the wallet's
// chainChanged notification.
func (s *Store) SwitchNetwork(ctx context.Context, target networks.NetworkDescriptor) error {
	if s.provider == nil {
		return wallet.ErrWalletUnavailable
	}

	err := s.provider.SwitchChain(ctx, target.ChainID)
	if err == nil {
		return nil
	}

	if errors.Is(err, wallet.ErrChainUnregistered) {
		log.Info("chain not registered in wallet, adding it", "chainId", target.ChainID, "name", target.Name)
		if addErr := s.provider.AddChain(ctx, target); addErr != nil {
			log.Error("failed to add network", "chainId", target.ChainID, "error", addErr)
			return fmt.Errorf("%w: add chain %s: %w", wallet.ErrNetworkSwitchFailed, target.ChainID, addErr)
		}
		return nil
	}

	log.Error("failed to switch network", "chainId", target.ChainID, "error", err)
	return fmt.Errorf("%w: %w", wallet.ErrNetworkSwitchFailed, err)
}

// CurrentNetwork looks the active chain up among the configured networks.
// ok is false on an unsupported chain.
func (s *Store) CurrentNetwork() (networks.NetworkDescriptor, bool) {
	return networks.Lookup(s.State().Wallet.ChainID, s.known...)
}

// Restore loads the persisted record and, when it claims a connection,
// verifies it against the wallet. A missing or different live account
// disconnects and clears the record; otherwise chain and balance are refreshed.
func (s *Store) Restore(ctx context.Context) State {
	rec, ok := s.persist.Load()
	if !ok || !rec.Connected {
		return s.State()
	}

	saved := rec.ConnectionState()
	if !saved.Connected {
		s.Dispatch(SetDisconnected{})
		return s.State()
	}

	s.Dispatch(RestoreState{Wallet: saved})

	if s.provider == nil {
		log.Warn("no wallet available, dropping saved session", "address", saved.Address)
		return s.Dispatch(SetDisconnected{})
	}

	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		log.Error("failed to verify saved session", "error", err)
		return s.Dispatch(SetDisconnected{})
	}
	if len(accounts) == 0 || !sameAddress(accounts[0], saved.Address) {
		log.Info("saved session is stale, disconnecting", "saved", saved.Address, "accounts", accounts)
		return s.Dispatch(SetDisconnected{})
	}

	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		log.Error("failed to verify saved session", "error", err)
		return s.Dispatch(SetDisconnected{})
	}
	balance := s.fetchBalance(ctx, saved.Address)

	log.Info("wallet session restored", "address", saved.Address, "chainId", chainID)
	return s.Dispatch(SetConnected{Address: saved.Address, ChainID: chainID, Balance: balance})
}
