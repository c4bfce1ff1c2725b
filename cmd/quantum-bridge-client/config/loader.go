package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	utilsconfig "github.com/quantumauth-io/quantum-go-utils/config"
)

//go:embed config.yaml
var EmbeddedConfigYAML []byte

const (
	WalletModeRPC      = "rpc"
	WalletModeKeystore = "keystore"
)

// Environment overrides, applied after the yaml files.
const (
	EnvRPCURL          = "BRIDGE_RPC_URL"
	EnvBlockExplorer   = "BRIDGE_BLOCK_EXPLORER_URL"
	EnvContractAddress = "BRIDGE_CONTRACT_ADDRESS"
	EnvWalletURL       = "BRIDGE_WALLET_URL"
	EnvKeystorePath    = "BRIDGE_KEYSTORE"
	EnvPort            = "BRIDGE_PORT"
)

type ClientSettings struct {
	LocalHost      string
	Port           string
	AllowedOrigins []string
}

type WalletSettings struct {
	Mode                string
	RPCURL              string
	PollInterval        time.Duration
	ReceiptPollInterval time.Duration
	KeystorePath        string
	InitialChainID      string
	EncryptState        bool
}

type BridgeSettings struct {
	ContractAddress string
	GasLimit        uint64
	Source          string
	Destination     string
}

type Config struct {
	ClientSettings *ClientSettings
	Wallet         *WalletSettings
	Bridge         *BridgeSettings
	Networks       map[string]networks.NetworkDescriptor `mapstructure:"Networks"`

	// EnvNetworks holds the network fields set from the environment. They win
	// over values already stored in the network registry.
	EnvNetworks map[string]networks.NetworkDescriptor `mapstructure:"-"`
}

func Load() (*Config, error) {
	home, _ := os.UserHomeDir()
	paths := []string{
		filepath.Join(home, ".config", "quantum-bridge-client"),
		"config",
		".",
	}

	cfg, err := utilsconfig.ParseConfigWithEmbedded[Config](paths, EmbeddedConfigYAML)
	if err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	if c.ClientSettings == nil {
		c.ClientSettings = &ClientSettings{}
	}
	if c.ClientSettings.LocalHost == "" {
		c.ClientSettings.LocalHost = "127.0.0.1"
	}
	if c.Wallet == nil {
		c.Wallet = &WalletSettings{}
	}
	if c.Wallet.Mode == "" {
		c.Wallet.Mode = WalletModeRPC
	}
	if c.Bridge == nil {
		c.Bridge = &BridgeSettings{}
	}
	if c.Bridge.GasLimit == 0 {
		c.Bridge.GasLimit = constants.BridgeGasLimit
	}
	if c.Bridge.Source == "" {
		c.Bridge.Source = networks.SepoliaKey
	}
	if c.Bridge.Destination == "" {
		c.Bridge.Destination = networks.PruvKey
	}

	// viper lower-cases map keys; configured networks override the built-ins
	merged := networks.Defaults()
	for k, n := range c.Networks {
		merged[networks.NormalizeKey(k)] = n
	}
	c.Networks = merged
}

// ApplyEnv overlays the BRIDGE_* variables. The RPC and explorer URLs
// configure the Pruv network.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	env := func(k string) string { return strings.TrimSpace(getenv(k)) }

	if v := env(EnvRPCURL); v != "" || env(EnvBlockExplorer) != "" {
		pruv := c.Networks[networks.PruvKey]
		forced := networks.NetworkDescriptor{
			ChainID:        pruv.ChainID,
			Name:           pruv.Name,
			NativeCurrency: pruv.NativeCurrency,
		}
		if v != "" {
			pruv.RPCURL = v
			forced.RPCURL = v
		}
		if e := env(EnvBlockExplorer); e != "" {
			pruv.BlockExplorerURLs = []string{e}
			forced.BlockExplorerURLs = []string{e}
		}
		c.Networks[networks.PruvKey] = pruv

		if c.EnvNetworks == nil {
			c.EnvNetworks = map[string]networks.NetworkDescriptor{}
		}
		c.EnvNetworks[networks.PruvKey] = forced
	}

	if v := env(EnvContractAddress); v != "" {
		if !common.IsHexAddress(v) {
			return fmt.Errorf("invalid %s %q", EnvContractAddress, v)
		}
		c.Bridge.ContractAddress = v
	}
	if v := env(EnvWalletURL); v != "" {
		c.Wallet.RPCURL = v
	}
	if v := env(EnvKeystorePath); v != "" {
		c.Wallet.KeystorePath = v
		c.Wallet.Mode = WalletModeKeystore
	}
	if v := env(EnvPort); v != "" {
		c.ClientSettings.Port = v
	}
	return nil
}

func (c *Config) Validate() error {
	if len(c.Networks) == 0 {
		return errors.New("no networks configured")
	}
	if c.Bridge.GasLimit == 0 {
		return errors.New("Bridge.GasLimit must be > 0")
	}
	if a := strings.TrimSpace(c.Bridge.ContractAddress); a != "" && !common.IsHexAddress(a) {
		return fmt.Errorf("Bridge.ContractAddress %q is not a hex address", a)
	}

	switch c.Wallet.Mode {
	case WalletModeRPC:
		if strings.TrimSpace(c.Wallet.RPCURL) == "" {
			return errors.New("Wallet.RPCURL is required in rpc mode")
		}
	case WalletModeKeystore:
		if strings.TrimSpace(c.Wallet.KeystorePath) == "" {
			return errors.New("Wallet.KeystorePath is required in keystore mode")
		}
	default:
		return fmt.Errorf("invalid Wallet.Mode %q (allowed: %s, %s)", c.Wallet.Mode, WalletModeRPC, WalletModeKeystore)
	}

	_, _, err := c.SourceAndDestination()
	return err
}

// SourceAndDestination resolves the configured bridge direction.
func (c *Config) SourceAndDestination() (networks.NetworkDescriptor, networks.NetworkDescriptor, error) {
	src, ok := c.Networks[networks.NormalizeKey(c.Bridge.Source)]
	if !ok {
		return networks.NetworkDescriptor{}, networks.NetworkDescriptor{}, fmt.Errorf("unknown Bridge.Source %q", c.Bridge.Source)
	}
	dst, ok := c.Networks[networks.NormalizeKey(c.Bridge.Destination)]
	if !ok {
		return networks.NetworkDescriptor{}, networks.NetworkDescriptor{}, fmt.Errorf("unknown Bridge.Destination %q", c.Bridge.Destination)
	}
	if src.Is(dst.ChainID) {
		return networks.NetworkDescriptor{}, networks.NetworkDescriptor{}, networks.ErrSameNetwork
	}
	return src, dst, nil
}

func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.ClientSettings.LocalHost, c.ClientSettings.Port)
}

// Origins is AllowedOrigins plus the API's own origin, which the embedded
// dashboard uses.
func (c *Config) Origins() []string {
	out := append([]string{}, c.ClientSettings.AllowedOrigins...)
	out = append(out, "http://"+c.ListenAddr())
	if ip := net.ParseIP(c.ClientSettings.LocalHost); ip != nil && ip.IsLoopback() {
		out = append(out, "http://"+net.JoinHostPort("localhost", c.ClientSettings.Port))
	}
	return out
}
