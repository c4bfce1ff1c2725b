package constants

const (
	AppName          = "quantum-bridge"
	NetworksFile     = "networks.json"
	WalletStateFile  = "wallet_state.json"
	TransactionsFile = "transactions.json"
	SelectionFile    = "selection.json"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	// AAD for the encrypted wallet state envelope.
	WalletStateAAD = "quantumbridge:walletstate:v1"

	// EnvFolderVar selects the state sub folder (local, develop or prod).
	EnvFolderVar = "BRIDGE_ENV"
)

// EIP-1193 / EIP-3326 provider error codes.
const (
	ProviderCodeUserRejected      = 4001
	ProviderCodeUnauthorized      = 4100
	ProviderCodeUnsupported       = 4200
	ProviderCodeDisconnected      = 4900
	ProviderCodeChainUnavailable  = 4901
	ProviderCodeUnrecognizedChain = 4902
)

const (
	// BridgeGasLimit is the fixed gas limit hint used for every transfer.
	BridgeGasLimit = 100_000

	NativeDecimals         = 18
	BalanceDisplayDecimals = 4
)
