package bridge

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/units"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
	"github.com/quantumauth-io/quantum-bridge-client/internal/walletstate"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

type Config struct {
	// ContractAddress receives transfers that name no recipient.
	ContractAddress string
	// GasLimit defaults to constants.BridgeGasLimit.
	GasLimit uint64
}

type Service struct {
	store     *walletstate.Store
	selection *networks.Selection
	history   *History
	contract  common.Address
	gasLimit  uint64
}

func NewService(store *walletstate.Store, selection *networks.Selection, history *History, cfg Config) (*Service, error) {
	s := &Service{
		store:     store,
		selection: selection,
		history:   history,
		gasLimit:  cfg.GasLimit,
	}
	if s.history == nil {
		s.history = NewHistoryAt("")
	}
	if s.gasLimit == 0 {
		s.gasLimit = constants.BridgeGasLimit
	}

	if addr := strings.TrimSpace(cfg.ContractAddress); addr != "" {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("bridge contract address %q: %w", addr, ErrInvalidRecipient)
		}
		s.contract = common.HexToAddress(addr)
	}
	return s, nil
}

func (s *Service) History() *History { return s.history }

func (s *Service) Selection() *networks.Selection { return s.selection }

// ContractAddress returns the fallback recipient, or "" when none is configured.
func (s *Service) ContractAddress() string {
	if s.contract == (common.Address{}) {
		return ""
	}
	return s.contract.Hex()
}

type prepared struct {
	from        common.Address
	to          common.Address
	value       *big.Int
	source      networks.NetworkDescriptor
	dest        networks.NetworkDescriptor
	needsSwitch bool
}

// Validate checks intent against the current state without touching the wallet.
func (s *Service) Validate(intent TransferIntent) error {
	_, err := s.prepare(intent)
	return err
}

func (s *Service) prepare(intent TransferIntent) (prepared, error) {
	st := s.store.State()
	if !st.Wallet.Connected {
		return prepared{}, wallet.ErrNotConnected
	}

	source, dest := s.selection.Pair()

	value, err := units.ParseUnits(intent.Amount, source.Decimals())
	if err != nil {
		return prepared{}, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if value.Sign() <= 0 {
		return prepared{}, ErrInvalidAmount
	}

	// the balance belongs to the active chain, only meaningful on the source
	if source.Is(st.Wallet.ChainID) {
		if st.Wallet.Balance == nil || value.Cmp(st.Wallet.Balance) > 0 {
			return prepared{}, ErrInsufficientBalance
		}
	}

	to, err := s.recipient(intent.Recipient)
	if err != nil {
		return prepared{}, err
	}

	return prepared{
		from:        common.HexToAddress(st.Wallet.Address),
		to:          to,
		value:       value,
		source:      source,
		dest:        dest,
		needsSwitch: !source.Is(st.Wallet.ChainID),
	}, nil
}

func (s *Service) recipient(raw string) (common.Address, error) {
	r := strings.TrimSpace(raw)
	if r == "" {
		if s.contract == (common.Address{}) {
			return common.Address{}, ErrNoRecipient
		}
		return s.contract, nil
	}
	if !common.IsHexAddress(r) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidRecipient, raw)
	}
	return common.HexToAddress(r), nil
}

// Submit sends the transfer on the selected source network, switching the
// wallet there first when needed, and blocks until the receipt is known.
// Every failure after validation wraps wallet.ErrTransferFailed.
func (s *Service) Submit(ctx context.Context, intent TransferIntent, n Notifier) (Transaction, error) {
	if n == nil {
		n = nopNotifier{}
	}
	provider := s.store.Provider()
	if provider == nil {
		return Transaction{}, wallet.ErrWalletUnavailable
	}

	p, err := s.prepare(intent)
	if err != nil {
		return Transaction{}, err
	}

	if p.needsSwitch {
		log.Info("switching to source network before transfer", "chainId", p.source.ChainID, "name", p.source.Name)
		if err := s.store.SwitchNetwork(ctx, p.source); err != nil {
			return Transaction{}, fmt.Errorf("%w: %w", wallet.ErrTransferFailed, err)
		}
	}

	hash, err := provider.SendTransaction(ctx, wallet.TxRequest{
		From:  p.from,
		To:    p.to,
		Value: p.value,
		Gas:   s.gasLimit,
	})
	if err != nil {
		log.Error("failed to send transfer", "to", p.to.Hex(), "error", err)
		return Transaction{}, fmt.Errorf("%w: send: %w", wallet.ErrTransferFailed, err)
	}

	now := time.Now().UTC()
	tx := Transaction{
		ID:          uuid.NewString(),
		Hash:        hash.Hex(),
		Amount:      units.FormatUnits(p.value, p.source.Decimals()),
		Symbol:      p.source.NativeCurrency.Symbol,
		From:        p.from.Hex(),
		Recipient:   p.to.Hex(),
		FromNetwork: p.source.Name,
		ToNetwork:   p.dest.Name,
		FromChainID: p.source.ChainID,
		ToChainID:   p.dest.ChainID,
		Status:      StatusPending,
		ExplorerURL: p.source.TxURL(hash.Hex()),
		Timestamp:   now,
		UpdatedAt:   now,
	}
	if err := s.history.Add(tx); err != nil {
		log.Error("failed to record transaction", "hash", tx.Hash, "error", err)
	}
	log.Info("transfer submitted", "hash", tx.Hash, "amount", tx.Amount, "to", tx.Recipient)
	n.Submitted(tx)

	receipt, err := provider.WaitForReceipt(ctx, hash)
	if err != nil {
		err = fmt.Errorf("%w: wait for receipt: %w", wallet.ErrTransferFailed, err)
		return s.fail(tx, err, n), err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		err = fmt.Errorf("%w: transaction %s reverted", wallet.ErrTransferFailed, tx.Hash)
		return s.fail(tx, err, n), err
	}

	tx = s.setStatus(tx, StatusConfirmed, "")
	log.Info("transfer confirmed", "hash", tx.Hash, "block", receipt.BlockNumber)
	n.Confirmed(tx)

	s.store.RefreshBalance(ctx)
	return tx, nil
}

func (s *Service) fail(tx Transaction, err error, n Notifier) Transaction {
	log.Error("transfer failed", "hash", tx.Hash, "error", err)
	tx = s.setStatus(tx, StatusFailed, err.Error())
	n.Failed(tx, err)
	return tx
}

func (s *Service) setStatus(tx Transaction, status Status, msg string) Transaction {
	updated, err := s.history.Update(tx.ID, func(t *Transaction) {
		t.Status = status
		t.Error = msg
	})
	if err != nil {
		log.Error("failed to update transaction", "hash", tx.Hash, "error", err)
		tx.Status = status
		tx.Error = msg
		tx.UpdatedAt = time.Now().UTC()
		return tx
	}
	return updated
}
