package networks

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
)

type NativeCurrency struct {
	Name     string `json:"name" mapstructure:"name"`
	Symbol   string `json:"symbol" mapstructure:"symbol"`
	Decimals uint8  `json:"decimals" mapstructure:"decimals"`
}

// NetworkDescriptor is the EIP-3085 shaped description of a chain.
type NetworkDescriptor struct {
	ChainID           string         `json:"chainId" mapstructure:"chainId"`
	Name              string         `json:"name" mapstructure:"name"`
	RPCURL            string         `json:"rpcUrl" mapstructure:"rpcUrl"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency" mapstructure:"nativeCurrency"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls" mapstructure:"blockExplorerUrls"`
}

type Store struct {
	Schema   int                          `json:"schema"`
	Networks map[string]NetworkDescriptor `json:"networks"` // key = normalized key
}

func NewEmptyStore() Store {
	return Store{
		Schema:   constants.SchemaV1,
		Networks: map[string]NetworkDescriptor{},
	}
}

// ChainIDBig parses the hex chain id.
func (n NetworkDescriptor) ChainIDBig() (*big.Int, error) {
	h := strings.TrimPrefix(NormalizeChainIDHex(n.ChainID), "0x")
	if h == "" {
		return nil, errors.New("missing chainId")
	}
	v, ok := new(big.Int).SetString(h, 16)
	if !ok {
		return nil, fmt.Errorf("invalid chainId %q", n.ChainID)
	}
	return v, nil
}

// Is reports whether the descriptor describes chainIdHex.
func (n NetworkDescriptor) Is(chainIdHex string) bool {
	want := NormalizeChainIDHex(chainIdHex)
	return want != "" && NormalizeChainIDHex(n.ChainID) == want
}

func (n NetworkDescriptor) Explorer() string {
	if len(n.BlockExplorerURLs) == 0 {
		return ""
	}
	return strings.TrimRight(n.BlockExplorerURLs[0], "/")
}

func (n NetworkDescriptor) TxURL(hash string) string {
	if e := n.Explorer(); e != "" {
		return e + "/tx/" + hash
	}
	return ""
}

func (n NetworkDescriptor) AddressURL(address string) string {
	if e := n.Explorer(); e != "" {
		return e + "/address/" + address
	}
	return ""
}

func (n NetworkDescriptor) Decimals() uint8 {
	if n.NativeCurrency.Decimals == 0 {
		return constants.NativeDecimals
	}
	return n.NativeCurrency.Decimals
}

func NormalizeChainIDHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return s
}

// NormalizeKey lowercases a network key and replaces whitespace with dashes.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

func normalizeDescriptor(n NetworkDescriptor) (NetworkDescriptor, error) {
	n.ChainID = NormalizeChainIDHex(n.ChainID)
	n.Name = strings.TrimSpace(n.Name)
	n.RPCURL = strings.TrimSpace(n.RPCURL)
	n.NativeCurrency.Name = strings.TrimSpace(n.NativeCurrency.Name)
	n.NativeCurrency.Symbol = strings.TrimSpace(n.NativeCurrency.Symbol)

	explorers := make([]string, 0, len(n.BlockExplorerURLs))
	seen := map[string]struct{}{}
	for _, u := range n.BlockExplorerURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(u)]; ok {
			continue
		}
		seen[strings.ToLower(u)] = struct{}{}
		explorers = append(explorers, u)
	}
	n.BlockExplorerURLs = explorers

	if n.Name == "" {
		return NetworkDescriptor{}, errors.New("network.name is required")
	}
	if _, err := n.ChainIDBig(); err != nil {
		return NetworkDescriptor{}, fmt.Errorf("network %q: %w", n.Name, err)
	}
	if n.NativeCurrency.Decimals == 0 {
		n.NativeCurrency.Decimals = constants.NativeDecimals
	}
	return n, nil
}
