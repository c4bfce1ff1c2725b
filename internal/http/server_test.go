package http

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-bridge-client/internal/bridge"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet/wallettest"
	"github.com/quantumauth-io/quantum-bridge-client/internal/walletstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccount   = "0x1111111111111111111111111111111111111111"
	testRecipient = "0x2222222222222222222222222222222222222222"
	testOrigin    = "http://localhost:5173"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	server *Server
	fake   *wallettest.Provider
	store  *walletstate.Store
	svc    *bridge.Service
}

func newTestEnv(t *testing.T, withWallet bool) testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sepolia, pruv := networks.Sepolia(), networks.Pruv("", "")

	var (
		fake     *wallettest.Provider
		provider wallet.Provider
	)
	if withWallet {
		fake = wallettest.New(testAccount)
		fake.Chain = sepolia.ChainID
		fake.SetBalance(testAccount, big.NewInt(3e18))
		provider = fake
	}
	store := walletstate.NewStore(provider, nil, sepolia, pruv)

	sel, err := networks.NewSelection(sepolia, pruv)
	require.NoError(t, err)
	svc, err := bridge.NewService(store, sel, bridge.NewHistoryAt(""), bridge.Config{})
	require.NoError(t, err)

	registry := networks.NewManagerAt(filepath.Join(t.TempDir(), "networks.json"))
	require.NoError(t, registry.EnsureFromConfig(ctx, networks.Defaults()))

	s := NewServer(ctx, store, svc, registry, Config{AllowedOrigins: []string{testOrigin}, Version: "test"})
	return testEnv{server: s, fake: fake, store: store, svc: svc}
}

func (e testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "http://127.0.0.1:7777"+path, &buf)
	req.RemoteAddr = "127.0.0.1:50000"
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func dataAs[T any](t *testing.T, env envelope) T {
	t.Helper()
	b, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, true)
	rec, env := e.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.OK)
	assert.Equal(t, "test", dataAs[healthRes](t, env).Version)
}

func TestGuards(t *testing.T) {
	e := newTestEnv(t, true)

	t.Run("remote address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1/api/health", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rec := httptest.NewRecorder()
		e.server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rebinding host", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://evil.example/api/health", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1/api/health", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		e.server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1/api/health", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		req.Header.Set("Origin", testOrigin)
		rec := httptest.NewRecorder()
		e.server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestDashboard(t *testing.T) {
	e := newTestEnv(t, true)
	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:7777"+path, nil)
		req.RemoteAddr = "127.0.0.1:50000"
		rec := httptest.NewRecorder()
		e.server.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Quantum Bridge")

	rec = get("/history")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Quantum Bridge")

	rec = get("/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")

	assert.Equal(t, http.StatusNotFound, get("/api/nope").Code)
}

func TestConnectAndDisconnect(t *testing.T) {
	e := newTestEnv(t, true)

	rec, env := e.do(t, http.MethodPost, "/api/wallet/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := dataAs[walletStateRes](t, env)
	assert.True(t, st.Connected)
	assert.Equal(t, "3", *st.Balance)
	assert.Equal(t, "3", st.BalanceDisplay)
	require.NotNil(t, st.Network)
	assert.Equal(t, "Sepolia", st.Network.Name)
	assert.Equal(t, "https://sepolia.etherscan.io/address/"+testAccount, st.AddressURL)

	rec, env = e.do(t, http.MethodPost, "/api/wallet/disconnect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, dataAs[walletStateRes](t, env).Connected)
}

func TestConnectErrors(t *testing.T) {
	t.Run("no wallet", func(t *testing.T) {
		e := newTestEnv(t, false)
		rec, env := e.do(t, http.MethodPost, "/api/wallet/connect", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.False(t, env.OK)
		assert.NotEmpty(t, env.Error)
	})

	t.Run("rejected", func(t *testing.T) {
		e := newTestEnv(t, true)
		e.fake.RequestErr = wallet.NewProviderError(4001, "User rejected the request.")
		rec, _ := e.do(t, http.MethodPost, "/api/wallet/connect", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestSwitchNetwork(t *testing.T) {
	e := newTestEnv(t, true)

	rec, _ := e.do(t, http.MethodPost, "/api/wallet/network", switchNetworkReq{ChainIDHex: "0x1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/wallet/network", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := e.do(t, http.MethodPost, "/api/wallet/network", switchNetworkReq{ChainIDHex: "0x267"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pruv Testnet", dataAs[networks.NetworkDescriptor](t, env).Name)
	assert.Equal(t, 1, e.fake.SwitchCallCount())
}

func TestNetworksAndSwap(t *testing.T) {
	e := newTestEnv(t, true)

	rec, env := e.do(t, http.MethodGet, "/api/networks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := dataAs[networksRes](t, env)
	assert.Equal(t, "Sepolia", res.Source.Name)
	assert.Equal(t, "Pruv Testnet", res.Destination.Name)
	assert.Len(t, res.Networks, 2)
	assert.Nil(t, res.Current)

	rec, env = e.do(t, http.MethodPost, "/api/bridge/swap", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sel := dataAs[selectionRes](t, env)
	assert.Equal(t, "Pruv Testnet", sel.Source.Name)
	assert.Equal(t, "Sepolia", sel.Destination.Name)
}

func TestTransfer(t *testing.T) {
	e := newTestEnv(t, true)

	rec, _ := e.do(t, http.MethodPost, "/api/bridge/transfer", transferReq{Recipient: testRecipient, Amount: "1"})
	assert.Equal(t, http.StatusConflict, rec.Code, "not connected")

	_, _ = e.do(t, http.MethodPost, "/api/wallet/connect", nil)

	rec, _ = e.do(t, http.MethodPost, "/api/bridge/transfer", transferReq{Recipient: testRecipient, Amount: "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/bridge/transfer", transferReq{Amount: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no recipient and no contract")

	rec, env := e.do(t, http.MethodPost, "/api/bridge/transfer", transferReq{Recipient: testRecipient, Amount: "1.5"})
	require.Contains(t, []int{http.StatusOK, http.StatusAccepted}, rec.Code)
	tx := dataAs[bridge.Transaction](t, env)
	assert.Equal(t, "1.5", tx.Amount)
	assert.Equal(t, "Sepolia", tx.FromNetwork)

	require.Eventually(t, func() bool {
		list, err := e.svc.History().List()
		return err == nil && len(list) == 1 && list[0].Status == bridge.StatusConfirmed
	}, time.Second, 10*time.Millisecond)

	rec, env = e.do(t, http.MethodGet, "/api/bridge/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, dataAs[[]bridge.Transaction](t, env), 1)
}

func TestTransferSendRejected(t *testing.T) {
	e := newTestEnv(t, true)
	_, _ = e.do(t, http.MethodPost, "/api/wallet/connect", nil)
	e.fake.SendErr = wallet.NewProviderError(4001, "User denied transaction signature.")

	rec, env := e.do(t, http.MethodPost, "/api/bridge/transfer", transferReq{Recipient: testRecipient, Amount: "1"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, env.OK)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(wallet.ErrWalletUnavailable))
	assert.Equal(t, http.StatusConflict, statusFor(wallet.ErrNotConnected))
	assert.Equal(t, http.StatusBadRequest, statusFor(bridge.ErrInsufficientBalance))
	assert.Equal(t, http.StatusBadRequest, statusFor(networks.ErrSameNetwork))
	assert.Equal(t, http.StatusBadGateway, statusFor(wallet.NewProviderError(-32603, "internal")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
