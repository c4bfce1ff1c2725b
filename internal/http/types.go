package http

import (
	"github.com/quantumauth-io/quantum-bridge-client/internal/bridge"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/walletstate"
)

type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type healthRes struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type switchNetworkReq struct {
	ChainIDHex string `json:"chainIdHex" binding:"required"`
}

type transferReq struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount" binding:"required"`
}

type selectionRes struct {
	Source      networks.NetworkDescriptor `json:"source"`
	Destination networks.NetworkDescriptor `json:"destination"`
	Contract    string                     `json:"contractAddress,omitempty"`
}

type networksRes struct {
	selectionRes
	Current  *networks.NetworkDescriptor `json:"current"`
	Networks []networks.Entry            `json:"networks"`
}

type walletStateRes struct {
	walletstate.Snapshot
	AddressURL string `json:"addressUrl,omitempty"`
}

type wsMessage struct {
	Type        string                `json:"type"`
	State       *walletstate.Snapshot `json:"state,omitempty"`
	Transaction *bridge.Transaction   `json:"transaction,omitempty"`
	Selection   *selectionRes         `json:"selection,omitempty"`
}
