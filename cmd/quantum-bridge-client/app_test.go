package main

import (
	"context"
	"testing"

	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/walletstate"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(context.Background(), viper.New(), false)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestStoreSupportsOnlyTheBridgePair(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	reg, err := networks.NewManager()
	require.NoError(t, err)
	_, err = reg.AddNetwork(ctx, "mainnet", networks.NetworkDescriptor{
		ChainID:        "0x1",
		Name:           "Ethereum",
		RPCURL:         "https://eth.example",
		NativeCurrency: networks.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
	})
	require.NoError(t, err)

	a := openApp(t)
	n, ok, err := a.registry.FindByChainID(ctx, "0x1")
	require.NoError(t, err)
	require.True(t, ok, "registered networks stay in the registry")
	assert.Equal(t, "Ethereum", n.Name)

	a.store.Dispatch(walletstate.UpdateChain{ChainID: "0x1"})
	_, ok = a.store.CurrentNetwork()
	assert.False(t, ok)
	assert.True(t, a.store.Snapshot().UnsupportedChain)

	a.store.Dispatch(walletstate.UpdateChain{ChainID: networks.PruvChainID})
	cur, ok := a.store.CurrentNetwork()
	require.True(t, ok)
	assert.Equal(t, "Pruv Testnet", cur.Name)

	a.selection.Swap()
	_, ok = a.store.CurrentNetwork()
	assert.True(t, ok, "a swap keeps both networks supported")
}

func TestEnvNetworkSettingsWinOverRegistry(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	// first run seeds networks.json with the defaults and saves a swap
	_, err := run(t, "networks", "swap")
	require.NoError(t, err)

	t.Setenv("BRIDGE_RPC_URL", "http://pruv.example:8545")
	t.Setenv("BRIDGE_BLOCK_EXPLORER_URL", "https://explorer.pruv.example")

	a := openApp(t)
	pruv, ok, err := a.registry.FindByChainID(ctx, networks.PruvChainID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "http://pruv.example:8545", pruv.RPCURL)
	assert.Equal(t, []string{"https://explorer.pruv.example"}, pruv.BlockExplorerURLs)

	src := a.selection.Source()
	assert.Equal(t, networks.PruvChainID, src.ChainID, "saved swap is restored")
	assert.Equal(t, "http://pruv.example:8545", src.RPCURL)
	assert.Equal(t, "https://explorer.pruv.example/tx/0xab", src.TxURL("0xab"))
}
