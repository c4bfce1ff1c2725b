package networks

const (
	SepoliaKey = "sepolia"
	PruvKey    = "pruv"

	SepoliaChainID = "0xaa36a7"
	PruvChainID    = "0x267"

	DefaultPruvRPCURL   = "http://localhost:8545"
	DefaultPruvExplorer = "http://localhost:8545"

	sepoliaRPCURL = "https://sepolia.infura.io/v3/9aa3d95b3bc440fa88ea12eaa4456161"
)

func Sepolia() NetworkDescriptor {
	return NetworkDescriptor{
		ChainID: SepoliaChainID,
		Name:    "Sepolia",
		RPCURL:  sepoliaRPCURL,
		NativeCurrency: NativeCurrency{
			Name:     "Ethereum",
			Symbol:   "ETH",
			Decimals: 18,
		},
		BlockExplorerURLs: []string{"https://sepolia.etherscan.io"},
	}
}

// Pruv returns the Pruv testnet descriptor. Empty arguments fall back to the
// local node defaults.
func Pruv(rpcURL, explorer string) NetworkDescriptor {
	if rpcURL == "" {
		rpcURL = DefaultPruvRPCURL
	}
	if explorer == "" {
		explorer = DefaultPruvExplorer
	}
	return NetworkDescriptor{
		ChainID: PruvChainID,
		Name:    "Pruv Testnet",
		RPCURL:  rpcURL,
		NativeCurrency: NativeCurrency{
			Name:     "Pruv",
			Symbol:   "PRUV",
			Decimals: 18,
		},
		BlockExplorerURLs: []string{explorer},
	}
}

func Defaults() map[string]NetworkDescriptor {
	return map[string]NetworkDescriptor{
		SepoliaKey: Sepolia(),
		PruvKey:    Pruv("", ""),
	}
}
