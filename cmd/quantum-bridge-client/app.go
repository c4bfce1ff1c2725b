package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	clientconfig "github.com/quantumauth-io/quantum-bridge-client/cmd/quantum-bridge-client/config"
	"github.com/quantumauth-io/quantum-bridge-client/internal/bridge"
	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
	"github.com/quantumauth-io/quantum-bridge-client/internal/helpers"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/securefile"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet/keywallet"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet/rpcwallet"
	"github.com/quantumauth-io/quantum-bridge-client/internal/walletstate"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/viper"
)

type app struct {
	cfg       *clientconfig.Config
	ephemeral bool

	registry  *networks.Manager
	selection *networks.Selection
	provider  wallet.Provider
	watch     func(ctx context.Context)
	store     *walletstate.Store
	bridge    *bridge.Service

	closers []func()
}

// savedSelection is selection.json: the bridge direction chosen with
// `networks swap`, stored as chain ids.
type savedSelection struct {
	Schema      int    `json:"schema"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

func loadConfig(v *viper.Viper) (*clientconfig.Config, error) {
	cfg, err := clientconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if s := v.GetString(flagWalletURL); s != "" {
		cfg.Wallet.RPCURL = s
	}
	if s := v.GetString(flagKeystore); s != "" {
		cfg.Wallet.KeystorePath = s
		cfg.Wallet.Mode = clientconfig.WalletModeKeystore
	}
	if s := v.GetString(flagChain); s != "" {
		cfg.Wallet.InitialChainID = s
	}
	if v.GetBool(flagEncryptState) {
		cfg.Wallet.EncryptState = true
	}
	if s := v.GetString(flagHost); s != "" {
		cfg.ClientSettings.LocalHost = s
	}
	if s := v.GetString(flagPort); s != "" {
		cfg.ClientSettings.Port = s
	}
	if s := v.GetString(flagContract); s != "" {
		cfg.Bridge.ContractAddress = s
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp builds the registry, wallet, store and bridge service. Without
// withWallet, or when the rpc wallet is unreachable, the store has no
// provider and reports wallet.ErrWalletUnavailable on use.
func newApp(ctx context.Context, v *viper.Viper, withWallet bool) (*app, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, ephemeral: v.GetBool(flagEphemeral)}

	if err := a.initRegistry(ctx); err != nil {
		return nil, err
	}
	if err := a.initSelection(ctx); err != nil {
		return nil, err
	}
	if withWallet {
		if err := a.initWallet(ctx, v); err != nil {
			a.Close()
			return nil, err
		}
	}

	persist, err := a.persistence(v)
	if err != nil {
		a.Close()
		return nil, err
	}

	// only the bridge pair counts as supported; swaps keep the same two
	a.store = walletstate.NewStore(a.provider, persist, a.selection.Source(), a.selection.Destination())

	history := bridge.NewHistoryAt("")
	if !a.ephemeral {
		if history, err = bridge.NewHistory(); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.bridge, err = bridge.NewService(a.store, a.selection, history, bridge.Config{
		ContractAddress: cfg.Bridge.ContractAddress,
		GasLimit:        cfg.Bridge.GasLimit,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) initRegistry(ctx context.Context) error {
	a.registry = networks.NewManagerAt("")
	if !a.ephemeral {
		m, err := networks.NewManager()
		if err != nil {
			return err
		}
		a.registry = m
	}
	if err := a.registry.EnsureFromConfig(ctx, a.cfg.Networks); err != nil {
		return fmt.Errorf("failed to sync networks: %w", err)
	}
	if err := a.registry.Override(ctx, a.cfg.EnvNetworks); err != nil {
		return fmt.Errorf("failed to apply network environment: %w", err)
	}
	return nil
}

func (a *app) initSelection(ctx context.Context) error {
	src, dst, err := a.cfg.SourceAndDestination()
	if err != nil {
		return err
	}

	if a.selection, err = networks.NewSelection(src, dst); err != nil {
		return err
	}

	p, ok := a.selectionPath()
	if !ok || !securefile.Exists(p) {
		return nil
	}
	saved, err := securefile.ReadJSON[savedSelection](p)
	if err != nil {
		log.Warn("ignoring unreadable selection file", "path", p, "error", err)
		return nil
	}
	s, sErr := a.registry.Resolve(ctx, saved.Source)
	d, dErr := a.registry.Resolve(ctx, saved.Destination)
	if sErr != nil || dErr != nil {
		log.Warn("ignoring selection with unknown networks", "source", saved.Source, "destination", saved.Destination)
		return nil
	}
	if err := a.selection.Set(s, d); err != nil {
		log.Warn("ignoring saved selection", "error", err)
	}
	return nil
}

func (a *app) selectionPath() (string, bool) {
	if a.ephemeral {
		return "", false
	}
	p, err := securefile.ResolvePath(constants.AppName, constants.SelectionFile)
	if err != nil {
		log.Warn("no path for selection file", "error", err)
		return "", false
	}
	return p, true
}

func (a *app) saveSelection() error {
	p, ok := a.selectionPath()
	if !ok {
		return nil
	}
	src, dst := a.selection.Pair()
	return securefile.WriteJSON(p, savedSelection{
		Schema:      constants.SchemaV1,
		Source:      src.ChainID,
		Destination: dst.ChainID,
	}, constants.FilePerm, constants.DirectoryPerm)
}

func (a *app) initWallet(ctx context.Context, v *viper.Viper) error {
	switch a.cfg.Wallet.Mode {
	case clientconfig.WalletModeKeystore:
		pw, err := password(v, keyKeystorePassword, "Keystore password: ")
		if err != nil {
			return err
		}
		key, err := keywallet.LoadKey(a.cfg.Wallet.KeystorePath, pw)
		helpers.ZeroBytes(pw)
		if err != nil {
			return err
		}

		chain := a.cfg.Wallet.InitialChainID
		if n, err := a.registry.Resolve(ctx, chain); err == nil {
			chain = n.ChainID
		}
		w, err := keywallet.New(ctx, key, a.registry, keywallet.Config{
			InitialChainID:      chain,
			ReceiptPollInterval: a.cfg.Wallet.ReceiptPollInterval,
		})
		if err != nil {
			return err
		}
		a.provider = w
		// Lock drops the key; its empty-accounts notification is best effort
		// since no event loop usually remains to receive it
		a.closers = append(a.closers, func() {
			w.Lock()
			w.Close()
		})
		log.Info("using keystore wallet", "address", w.Address().Hex(), "chainId", chain)

	default:
		w, err := rpcwallet.Dial(ctx, rpcwallet.Config{
			URL:                 a.cfg.Wallet.RPCURL,
			PollInterval:        a.cfg.Wallet.PollInterval,
			ReceiptPollInterval: a.cfg.Wallet.ReceiptPollInterval,
		})
		if err != nil {
			if errors.Is(err, wallet.ErrWalletUnavailable) {
				log.Warn("wallet not reachable", "url", a.cfg.Wallet.RPCURL, "error", err)
				return nil
			}
			return err
		}
		a.provider = w
		a.watch = w.Watch
		a.closers = append(a.closers, w.Close)
		log.Info("using rpc wallet", "url", a.cfg.Wallet.RPCURL)
	}
	return nil
}

func (a *app) persistence(v *viper.Viper) (walletstate.Persistence, error) {
	if a.ephemeral {
		return walletstate.NewMemoryPersistence(), nil
	}

	var pw []byte
	if a.cfg.Wallet.EncryptState {
		var err error
		if pw, err = password(v, keyStatePassword, "Wallet state password: "); err != nil {
			return nil, err
		}
	}
	return walletstate.DefaultFilePersistence(pw)
}

// password reads key from the environment, falling back to a terminal prompt.
func password(v *viper.Viper, key, prompt string) ([]byte, error) {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		pw := []byte(s)
		if err := helpers.ValidatePassword(pw); err != nil {
			return nil, err
		}
		return pw, nil
	}
	pw, err := helpers.PromptPassword(prompt)
	if errors.Is(err, helpers.ErrNotATerminal) {
		envName := "BRIDGE_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		return nil, fmt.Errorf("%w: set %s", err, envName)
	}
	return pw, err
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) restore(ctx context.Context) walletstate.State {
	st := a.store.Restore(ctx)
	log.Info("wallet state restored", "connected", st.Wallet.Connected, "address", st.Wallet.Address)
	return st
}
