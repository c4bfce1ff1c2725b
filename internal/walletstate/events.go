package walletstate

import (
	"context"

	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// HandleAccountsChanged reacts to the wallet's accountsChanged notification.
func (s *Store) HandleAccountsChanged(ctx context.Context, accounts []string) {
	if len(accounts) == 0 {
		log.Info("wallet reported no accounts")
		s.Disconnect()
		return
	}
	if s.provider == nil {
		return
	}

	if sameAddress(accounts[0], s.State().Wallet.Address) {
		return
	}
	if err := s.connectAs(ctx, accounts[0]); err != nil {
		log.Error("failed to handle account change", "address", accounts[0], "error", err)
	}
}

// HandleChainChanged records the new chain and refreshes the balance, which
// is chain scoped.
func (s *Store) HandleChainChanged(ctx context.Context, chainIdHex string) {
	next := s.Dispatch(UpdateChain{ChainID: chainIdHex})
	log.Info("wallet chain changed", "chainId", next.Wallet.ChainID)
	if next.Wallet.Connected {
		s.RefreshBalance(ctx)
	}
}

// Run forwards wallet notifications to the handlers one at a time until ctx
// ends or the subscription fails.
func (s *Store) Run(ctx context.Context) error {
	if s.provider == nil {
		return wallet.ErrWalletUnavailable
	}

	accountsCh := make(chan []string, 8)
	chainCh := make(chan string, 8)

	accountsSub := s.provider.SubscribeAccountsChanged(accountsCh)
	defer accountsSub.Unsubscribe()
	chainSub := s.provider.SubscribeChainChanged(chainCh)
	defer chainSub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case accounts := <-accountsCh:
			s.HandleAccountsChanged(ctx, accounts)
		case chainID := <-chainCh:
			s.HandleChainChanged(ctx, chainID)
		case err := <-accountsSub.Err():
			return err
		case err := <-chainSub.Err():
			return err
		}
	}
}
