package http

import "time"

// Generic HTTP / JSON strings
const (
	HTTPErrorInvalidJSONText = "invalid JSON"
	HTTPErrorForbiddenText   = "forbidden"
	HTTPErrorForbiddenHost   = "forbidden host"
	HTTPErrorForbiddenOrigin = "forbidden origin"
)

// Wallet / bridge messages
const (
	WalletMissingChainIDHexText  = "missing chainIdHex"
	WalletUnsupportedNetworkText = "unsupported network"
	BridgeHistoryLoadFailedText  = "failed to load transactions"
)

// Websocket message types
const (
	WSMessageState       = "state"
	WSMessageTransaction = "transaction"
	WSMessageSelection   = "selection"
)

// Websocket timing, from the gorilla chat example.
const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsMaxMessageSize = 4096
	wsSendBuffer     = 64
	wsBroadcastQueue = 256
)

const (
	corsMaxAge      = 10 * time.Minute
	shutdownTimeout = 5 * time.Second
)
