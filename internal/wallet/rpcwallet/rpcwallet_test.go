package rpcwallet

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fakeEndpoint is a minimal EIP-1193-over-JSON-RPC wallet.
type fakeEndpoint struct {
	mu          sync.Mutex
	accounts    []string
	chainID     string
	known       map[string]bool
	rejectNext  bool
	receiptMiss int

	added []map[string]any
	sent  []map[string]any
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{
		accounts: []string{"0x00000000000000000000000000000000000000aa"},
		chainID:  "0xaa36a7",
		known:    map[string]bool{"0xaa36a7": true},
	}
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, rerr := f.handle(req.Method, req.Params)

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rerr != nil {
		resp["error"] = rerr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeEndpoint) handle(method string, params []json.RawMessage) (any, *rpcError) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch method {
	case "eth_chainId":
		return f.chainID, nil
	case "eth_accounts":
		return f.accounts, nil
	case "eth_requestAccounts":
		if f.rejectNext {
			f.rejectNext = false
			return nil, &rpcError{Code: 4001, Message: "User rejected the request."}
		}
		return f.accounts, nil
	case "eth_getBalance":
		return "0xde0b6b3a7640000", nil // 1 ether
	case "wallet_switchEthereumChain":
		var p struct {
			ChainID string `json:"chainId"`
		}
		_ = json.Unmarshal(params[0], &p)
		if !f.known[p.ChainID] {
			return nil, &rpcError{Code: 4902, Message: "Unrecognized chain ID " + p.ChainID}
		}
		f.chainID = p.ChainID
		return nil, nil
	case "wallet_addEthereumChain":
		var p map[string]any
		_ = json.Unmarshal(params[0], &p)
		f.added = append(f.added, p)
		f.known[p["chainId"].(string)] = true
		return nil, nil
	case "eth_sendTransaction":
		var p map[string]any
		_ = json.Unmarshal(params[0], &p)
		f.sent = append(f.sent, p)
		return "0x" + strings.Repeat("ab", 32), nil
	case "eth_getTransactionReceipt":
		if f.receiptMiss > 0 {
			f.receiptMiss--
			return nil, nil
		}
		return map[string]any{
			"type":              "0x0",
			"status":            "0x1",
			"cumulativeGasUsed": "0x5208",
			"gasUsed":           "0x5208",
			"logsBloom":         "0x" + strings.Repeat("0", 512),
			"logs":              []any{},
			"transactionHash":   "0x" + strings.Repeat("ab", 32),
			"blockHash":         "0x" + strings.Repeat("01", 32),
			"blockNumber":       "0x10",
			"transactionIndex":  "0x0",
		}, nil
	}
	return nil, &rpcError{Code: -32601, Message: "method not found"}
}

func (f *fakeEndpoint) snapshot(get func() []map[string]any) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), get()...)
}

func dialFake(t *testing.T, f *fakeEndpoint) *Wallet {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	w, err := Dial(context.Background(), Config{
		URL:                 srv.URL,
		PollInterval:        20 * time.Millisecond,
		ReceiptPollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestDialUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Dial(context.Background(), Config{URL: url})
	assert.ErrorIs(t, err, wallet.ErrWalletUnavailable)

	_, err = Dial(context.Background(), Config{})
	assert.ErrorIs(t, err, wallet.ErrWalletUnavailable)
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	w := dialFake(t, newFakeEndpoint())

	accounts, err := w.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x00000000000000000000000000000000000000aa"}, accounts)

	chain, err := w.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0xaa36a7", chain)

	bal, err := w.Balance(ctx, accounts[0])
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", bal.String())
}

func TestUserRejection(t *testing.T) {
	f := newFakeEndpoint()
	f.rejectNext = true
	w := dialFake(t, f)

	_, err := w.RequestAccounts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, wallet.ErrUserRejected)
	assert.Equal(t, 4001, wallet.Code(err))
}

func TestSwitchUnknownChainCarriesCode(t *testing.T) {
	ctx := context.Background()
	f := newFakeEndpoint()
	w := dialFake(t, f)

	err := w.SwitchChain(ctx, networks.PruvChainID)
	require.Error(t, err)
	assert.ErrorIs(t, err, wallet.ErrChainUnregistered)

	require.NoError(t, w.AddChain(ctx, networks.Pruv("", "")))
	added := f.snapshot(func() []map[string]any { return f.added })
	require.Len(t, added, 1)
	assert.Equal(t, "Pruv Testnet", added[0]["chainName"])
	assert.Equal(t, []any{"http://localhost:8545"}, added[0]["rpcUrls"])

	require.NoError(t, w.SwitchChain(ctx, "0X267"))
	chain, err := w.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0x267", chain)
}

func TestSendAndWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f := newFakeEndpoint()
	f.receiptMiss = 2
	w := dialFake(t, f)

	hash, err := w.SendTransaction(ctx, wallet.TxRequest{
		From:  common.HexToAddress("0xaa"),
		To:    common.HexToAddress("0xbb"),
		Value: big.NewInt(1_000),
		Gas:   100_000,
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x"+strings.Repeat("ab", 32)), hash)

	sent := f.snapshot(func() []map[string]any { return f.sent })
	require.Len(t, sent, 1)
	assert.Equal(t, "0x3e8", sent[0]["value"])
	assert.Equal(t, "0x186a0", sent[0]["gas"])
	assert.Equal(t, strings.ToLower(common.HexToAddress("0xbb").Hex()), strings.ToLower(sent[0]["to"].(string)))

	receipt, err := w.WaitForReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, uint64(16), receipt.BlockNumber.Uint64())
}

func TestWaitForReceiptHonoursContext(t *testing.T) {
	f := newFakeEndpoint()
	f.receiptMiss = 1_000_000
	w := dialFake(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := w.WaitForReceipt(ctx, common.Hash{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatchFiresNotifications(t *testing.T) {
	f := newFakeEndpoint()
	w := dialFake(t, f)

	accountsCh := make(chan []string, 4)
	chainCh := make(chan string, 4)
	subA := w.SubscribeAccountsChanged(accountsCh)
	defer subA.Unsubscribe()
	subC := w.SubscribeChainChanged(chainCh)
	defer subC.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)

	// let the baseline poll happen
	time.Sleep(60 * time.Millisecond)

	f.mu.Lock()
	f.accounts = []string{"0x00000000000000000000000000000000000000BB"}
	f.chainID = "0x267"
	f.mu.Unlock()

	select {
	case got := <-accountsCh:
		assert.Equal(t, []string{"0x00000000000000000000000000000000000000bb"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no accountsChanged notification")
	}

	select {
	case got := <-chainCh:
		assert.Equal(t, "0x267", got)
	case <-time.After(2 * time.Second):
		t.Fatal("no chainChanged notification")
	}
}
