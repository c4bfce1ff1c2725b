// Package rpcwallet talks to an external wallet that exposes the EIP-1193
// request methods over JSON-RPC, such as a desktop wallet's local endpoint.
package rpcwallet

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
)

type Config struct {
	URL                 string
	PollInterval        time.Duration
	ReceiptPollInterval time.Duration
}

const (
	defaultPollInterval        = 2 * time.Second
	defaultReceiptPollInterval = 1500 * time.Millisecond
)

type Wallet struct {
	wallet.Notifier

	cfg    Config
	client *rpc.Client
	eth    *ethclient.Client
}

var _ wallet.Provider = (*Wallet)(nil)

// Dial connects to the wallet endpoint and checks that it answers eth_chainId.
// An unreachable endpoint is reported as wallet.ErrWalletUnavailable.
func Dial(ctx context.Context, cfg Config) (*Wallet, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: no wallet endpoint configured", wallet.ErrWalletUnavailable)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = defaultReceiptPollInterval
	}

	client, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", wallet.ErrWalletUnavailable, errors.Wrapf(err, "dial wallet at %s", cfg.URL))
	}

	w := &Wallet{
		cfg:    cfg,
		client: client,
		eth:    ethclient.NewClient(client),
	}

	if _, err := w.ChainID(ctx); err != nil {
		client.Close()
		if stderrors.Is(err, wallet.ErrWalletUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", wallet.ErrWalletUnavailable, err)
	}

	return w, nil
}

func (w *Wallet) Close() {
	w.client.Close()
}

func (w *Wallet) RequestAccounts(ctx context.Context) ([]string, error) {
	var out []string
	if err := w.call(ctx, &out, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *Wallet) Accounts(ctx context.Context) ([]string, error) {
	var out []string
	if err := w.call(ctx, &out, "eth_accounts"); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *Wallet) ChainID(ctx context.Context) (string, error) {
	var out hexutil.Big
	if err := w.call(ctx, &out, "eth_chainId"); err != nil {
		return "", err
	}
	return networks.NormalizeChainIDHex(out.String()), nil
}

func (w *Wallet) Balance(ctx context.Context, address string) (*big.Int, error) {
	var out hexutil.Big
	if err := w.call(ctx, &out, "eth_getBalance", address, "latest"); err != nil {
		return nil, err
	}
	return out.ToInt(), nil
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

func (w *Wallet) SwitchChain(ctx context.Context, chainIdHex string) error {
	params := switchChainParams{ChainID: networks.NormalizeChainIDHex(chainIdHex)}
	return w.call(ctx, nil, "wallet_switchEthereumChain", params)
}

type addChainParams struct {
	ChainID           string                  `json:"chainId"`
	ChainName         string                  `json:"chainName"`
	RPCURLs           []string                `json:"rpcUrls"`
	NativeCurrency    networks.NativeCurrency `json:"nativeCurrency"`
	BlockExplorerURLs []string                `json:"blockExplorerUrls,omitempty"`
}

func (w *Wallet) AddChain(ctx context.Context, n networks.NetworkDescriptor) error {
	params := addChainParams{
		ChainID:           networks.NormalizeChainIDHex(n.ChainID),
		ChainName:         n.Name,
		RPCURLs:           []string{n.RPCURL},
		NativeCurrency:    n.NativeCurrency,
		BlockExplorerURLs: n.BlockExplorerURLs,
	}
	return w.call(ctx, nil, "wallet_addEthereumChain", params)
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
	Gas   hexutil.Uint64  `json:"gas"`
}

func (w *Wallet) SendTransaction(ctx context.Context, tx wallet.TxRequest) (common.Hash, error) {
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	to := tx.To
	args := sendTxArgs{
		From:  tx.From,
		To:    &to,
		Value: (*hexutil.Big)(value),
		Gas:   hexutil.Uint64(tx.Gas),
	}

	var hash common.Hash
	if err := w.call(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// WaitForReceipt polls until the transaction is included or ctx ends.
func (w *Wallet) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(w.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !stderrors.Is(err, ethereum.NotFound) {
			return nil, w.translate("eth_getTransactionReceipt", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Wallet) call(ctx context.Context, result any, method string, args ...any) error {
	if err := w.client.CallContext(ctx, result, method, args...); err != nil {
		return w.translate(method, err)
	}
	return nil
}

// translate keeps wallet error codes as *wallet.ProviderError and reports
// transport failures as wallet.ErrWalletUnavailable.
func (w *Wallet) translate(method string, err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rpcErr rpc.Error
	if stderrors.As(err, &rpcErr) {
		return errors.Wrap(wallet.NewProviderError(rpcErr.ErrorCode(), rpcErr.Error()), method)
	}

	return fmt.Errorf("%w: %w", wallet.ErrWalletUnavailable, errors.Wrap(err, method))
}
