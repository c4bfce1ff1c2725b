// Package keywallet is a wallet.Provider backed by a local keystore key. It
// keeps an active chain, resolves chains through the network registry, and
// signs native transfers itself.
package keywallet

import (
	"context"
	"crypto/ecdsa"
	stderrors "errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Backend is the subset of ethclient.Client the wallet needs per chain.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

type DialFunc func(ctx context.Context, rpcURL string) (Backend, error)

// Registry resolves and registers networks. *networks.Manager implements it.
type Registry interface {
	FindByChainID(ctx context.Context, chainIdHex string) (networks.NetworkDescriptor, bool, error)
	AddNetwork(ctx context.Context, key string, n networks.NetworkDescriptor) (networks.NetworkDescriptor, error)
}

type Config struct {
	InitialChainID      string
	ReceiptPollInterval time.Duration
	Dial                DialFunc
}

type Wallet struct {
	wallet.Notifier

	cfg      Config
	registry Registry

	mu       sync.Mutex
	key      *ecdsa.PrivateKey
	address  common.Address
	active   networks.NetworkDescriptor
	backends map[string]Backend // key = chain id hex
	sentOn   map[common.Hash]networks.NetworkDescriptor
}

var _ wallet.Provider = (*Wallet)(nil)

func dialEthClient(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to blockchain at %s", rpcURL)
	}
	return client, nil
}

// LoadKey decrypts a go-ethereum keystore file.
func LoadKey(path string, password []byte) (*ecdsa.PrivateKey, error) {
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	k, err := keystore.DecryptKey(keyJSON, string(password))
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return k.PrivateKey, nil
}

// New builds a wallet for key. The initial chain must be in the registry.
func New(ctx context.Context, key *ecdsa.PrivateKey, registry Registry, cfg Config) (*Wallet, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: no key loaded", wallet.ErrWalletUnavailable)
	}
	if registry == nil {
		return nil, errors.New("network registry is nil")
	}
	if cfg.Dial == nil {
		cfg.Dial = dialEthClient
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = 1500 * time.Millisecond
	}

	active, ok, err := registry.FindByChainID(ctx, cfg.InitialChainID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("initial chain %s is not registered", cfg.InitialChainID)
	}

	return &Wallet{
		cfg:      cfg,
		registry: registry,
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		active:   active,
		backends: map[string]Backend{},
		sentOn:   map[common.Hash]networks.NetworkDescriptor{},
	}, nil
}

func (w *Wallet) Address() common.Address {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address
}

func (w *Wallet) accounts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.key == nil {
		return []string{}
	}
	return []string{strings.ToLower(w.address.Hex())}
}

func (w *Wallet) RequestAccounts(context.Context) ([]string, error) {
	accounts := w.accounts()
	if len(accounts) == 0 {
		return nil, wallet.NewProviderError(constants.ProviderCodeUnauthorized, "wallet is locked")
	}
	return accounts, nil
}

func (w *Wallet) Accounts(context.Context) ([]string, error) {
	return w.accounts(), nil
}

func (w *Wallet) ChainID(context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active.ChainID, nil
}

// Active returns the descriptor of the active chain.
func (w *Wallet) Active() networks.NetworkDescriptor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *Wallet) Balance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	backend, _, err := w.activeBackend(ctx)
	if err != nil {
		return nil, err
	}
	return backend.BalanceAt(ctx, common.HexToAddress(address), nil)
}

// SwitchChain activates a registered chain. Unknown chains fail with code 4902.
func (w *Wallet) SwitchChain(ctx context.Context, chainIdHex string) error {
	want := networks.NormalizeChainIDHex(chainIdHex)

	n, ok, err := w.registry.FindByChainID(ctx, want)
	if err != nil {
		return err
	}
	if !ok {
		return wallet.NewProviderError(constants.ProviderCodeUnrecognizedChain, "Unrecognized chain ID "+want)
	}

	w.mu.Lock()
	changed := !w.active.Is(want)
	w.active = n
	w.mu.Unlock()

	if changed {
		log.Info("wallet chain switched", "chainId", want, "name", n.Name)
		w.NotifyChain(want)
	}
	return nil
}

// AddChain registers n and switches to it, the way browser wallets do after
// the user approves an add request.
func (w *Wallet) AddChain(ctx context.Context, n networks.NetworkDescriptor) error {
	if _, err := w.registry.AddNetwork(ctx, "", n); err != nil && !stderrors.Is(err, networks.ErrNetworkExists) {
		return errors.Wrapf(err, "add chain %s", n.ChainID)
	}
	return w.SwitchChain(ctx, n.ChainID)
}

func (w *Wallet) SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	w.mu.Lock()
	key, from := w.key, w.address
	w.mu.Unlock()

	if key == nil {
		return common.Hash{}, wallet.NewProviderError(constants.ProviderCodeUnauthorized, "wallet is locked")
	}
	if req.From != (common.Address{}) && req.From != from {
		return common.Hash{}, wallet.NewProviderError(constants.ProviderCodeUnauthorized, "unknown sender "+req.From.Hex())
	}

	backend, active, err := w.activeBackend(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	chainID, err := active.ChainIDBig()
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "pending nonce")
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "suggest gas price")
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      req.Gas,
		To:       &to,
		Value:    value,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "sign transaction")
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, errors.Wrap(err, "send transaction")
	}

	w.mu.Lock()
	w.sentOn[signed.Hash()] = active
	w.mu.Unlock()

	log.Info("transaction submitted", "hash", signed.Hash().Hex(), "chainId", active.ChainID, "nonce", nonce)
	return signed.Hash(), nil
}

// WaitForReceipt polls the chain hash was sent on, which need not be the
// active one. Unknown hashes are looked up on the active chain.
func (w *Wallet) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	w.mu.Lock()
	n, ok := w.sentOn[hash]
	if !ok {
		n = w.active
	}
	w.mu.Unlock()

	backend, err := w.backendFor(ctx, n)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(w.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil {
			w.mu.Lock()
			delete(w.sentOn, hash)
			w.mu.Unlock()
			return receipt, nil
		}
		if !stderrors.Is(err, ethereum.NotFound) {
			return nil, errors.Wrap(err, "transaction receipt")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Lock forgets the key and reports an empty account list.
func (w *Wallet) Lock() {
	w.mu.Lock()
	w.key = nil
	w.mu.Unlock()
	w.NotifyAccounts([]string{})
}

// Close closes all cached chain clients.
func (w *Wallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k, b := range w.backends {
		b.Close()
		delete(w.backends, k)
	}
}

// activeBackend returns the client for the active chain.
func (w *Wallet) activeBackend(ctx context.Context) (Backend, networks.NetworkDescriptor, error) {
	w.mu.Lock()
	active := w.active
	w.mu.Unlock()

	b, err := w.backendFor(ctx, active)
	return b, active, err
}

// backendFor returns (and caches) the client for n.
func (w *Wallet) backendFor(ctx context.Context, n networks.NetworkDescriptor) (Backend, error) {
	w.mu.Lock()
	if b := w.backends[n.ChainID]; b != nil {
		w.mu.Unlock()
		return b, nil
	}
	w.mu.Unlock()

	if strings.TrimSpace(n.RPCURL) == "" {
		return nil, fmt.Errorf("network %q has no rpcUrl", n.Name)
	}

	// dial outside the lock
	dialed, err := w.cfg.Dial(ctx, n.RPCURL)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing := w.backends[n.ChainID]; existing != nil {
		dialed.Close()
		return existing, nil
	}
	w.backends[n.ChainID] = dialed
	return dialed, nil
}
