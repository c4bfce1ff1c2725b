package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/quantumauth-io/quantum-bridge-client/internal/bridge"
	"github.com/quantumauth-io/quantum-bridge-client/internal/helpers"
	clienthttp "github.com/quantumauth-io/quantum-bridge-client/internal/http"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the loopback API and websocket feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log.Info("quantum-bridge-client",
				"version", Version,
				"commit", Commit,
				"build_date", BuildDate,
			)

			a, err := newApp(ctx, v, true)
			if err != nil {
				return err
			}
			defer a.Close()

			a.restore(ctx)

			if a.watch != nil {
				go a.watch(ctx)
			}
			if a.provider != nil {
				go func() {
					if err := a.store.Run(ctx); err != nil && ctx.Err() == nil {
						log.Error("wallet event loop stopped", "error", err)
					}
				}()
			}

			srv := clienthttp.NewServer(ctx, a.store, a.bridge, a.registry, clienthttp.Config{
				AllowedOrigins: a.cfg.Origins(),
				Version:        Version,
			})
			return srv.ListenAndServe(ctx, a.cfg.ListenAddr())
		},
	}
}

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved wallet connection, verified against the wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), v, true)
			if err != nil {
				return err
			}
			defer a.Close()

			a.restore(cmd.Context())
			return printJSON(cmd.OutOrStdout(), a.store.Snapshot())
		},
	}
}

func newConnectCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Request wallet access and save the connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, true)
			if err != nil {
				return err
			}
			defer a.Close()

			a.restore(ctx)
			if err := a.store.Connect(ctx); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.store.Snapshot())
		},
	}
}

func newDisconnectCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the saved wallet connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), v, false)
			if err != nil {
				return err
			}
			defer a.Close()

			a.store.Disconnect()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "disconnected")
			return err
		},
	}
}

func newSwitchCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <network>",
		Short: "Ask the wallet to switch to a network (registry key or chain id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, true)
			if err != nil {
				return err
			}
			defer a.Close()

			a.restore(ctx)

			target, err := a.registry.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.store.SwitchNetwork(ctx, target); err != nil {
				return err
			}

			// no event loop runs here, so apply the wallet's chain directly
			if chain, err := a.provider.ChainID(ctx); err == nil {
				a.store.HandleChainChanged(ctx, chain)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "switched to %s (%s)\n", target.Name, target.ChainID)
			return err
		},
	}
}

// cliNotifier prints the transfer lifecycle.
type cliNotifier struct{ out io.Writer }

func (n cliNotifier) Submitted(tx bridge.Transaction) {
	_, _ = fmt.Fprintf(n.out, "submitted %s\n", tx.Hash)
	if tx.ExplorerURL != "" {
		_, _ = fmt.Fprintf(n.out, "  %s\n", tx.ExplorerURL)
	}
}

func (n cliNotifier) Confirmed(tx bridge.Transaction) {
	_, _ = fmt.Fprintf(n.out, "confirmed %s\n", tx.Hash)
}

func (n cliNotifier) Failed(tx bridge.Transaction, err error) {
	_, _ = fmt.Fprintf(n.out, "failed %s: %v\n", tx.Hash, err)
}

func newSendCmd(v *viper.Viper) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "send <amount> [recipient]",
		Short: "Transfer native currency on the source network toward the destination",
		Long: "Transfer native currency on the source network. Without a recipient the\n" +
			"bridge contract address is used. The wallet is switched to the source\n" +
			"network first when needed.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, true)
			if err != nil {
				return err
			}
			defer a.Close()

			a.restore(ctx)

			intent := bridge.TransferIntent{Amount: args[0]}
			if len(args) == 2 {
				intent.Recipient = args[1]
			}
			if err := a.bridge.Validate(intent); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			src, dst := a.selection.Pair()
			recipient := intent.Recipient
			if recipient == "" {
				recipient = a.bridge.ContractAddress()
			}
			_, _ = fmt.Fprintf(out, "Send %s %s on %s to %s (bridging to %s)\n",
				strings.TrimSpace(intent.Amount), src.NativeCurrency.Symbol, src.Name, recipient, dst.Name)
			if !yes && !helpers.Confirm("Proceed?") {
				return errors.New("aborted")
			}

			tx, err := a.bridge.Submit(ctx, intent, cliNotifier{out: out})
			if err != nil {
				return err
			}
			return printJSON(out, tx)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newNetworksCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List and manage known networks and the bridge direction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), v, false)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.registry.List(cmd.Context())
			if err != nil {
				return err
			}
			src, dst := a.selection.Pair()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"source":      src,
				"destination": dst,
				"contract":    a.bridge.ContractAddress(),
				"networks":    entries,
			})
		},
	}

	cmd.AddCommand(newNetworksAddCmd(v), newNetworksRemoveCmd(v), newNetworksProbeCmd(), newNetworksSwapCmd(v))
	return cmd
}

func newNetworksAddCmd(v *viper.Viper) *cobra.Command {
	var (
		key      string
		name     string
		symbol   string
		currency string
		explorer string
		decimals uint8
	)

	cmd := &cobra.Command{
		Use:   "add <rpc-url>",
		Short: "Probe an RPC endpoint and register its chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, false)
			if err != nil {
				return err
			}
			defer a.Close()

			probe, err := networks.ProbeRPC(ctx, args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				name = helpers.PromptLineWithDefault("Network name", "Chain "+probe.ChainIDHex)
			}
			if currency == "" {
				currency = symbol
			}

			n := networks.NetworkDescriptor{
				ChainID: probe.ChainIDHex,
				Name:    name,
				RPCURL:  probe.RPCURL,
				NativeCurrency: networks.NativeCurrency{
					Name:     currency,
					Symbol:   symbol,
					Decimals: decimals,
				},
			}
			if explorer != "" {
				n.BlockExplorerURLs = []string{explorer}
			}

			added, err := a.registry.AddNetwork(ctx, key, n)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), added)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "registry key (defaults to the name)")
	cmd.Flags().StringVar(&name, "name", "", "display name (prompted when empty)")
	cmd.Flags().StringVar(&symbol, "symbol", "ETH", "native currency symbol")
	cmd.Flags().StringVar(&currency, "currency", "", "native currency name (defaults to the symbol)")
	cmd.Flags().StringVar(&explorer, "explorer", "", "block explorer base URL")
	cmd.Flags().Uint8Var(&decimals, "decimals", 18, "native currency decimals")
	return cmd
}

func newNetworksRemoveCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <network>",
		Short: "Remove a network from the registry (key or chain id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, false)
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := a.registry.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			src, dst := a.selection.Pair()
			if src.Is(target.ChainID) || dst.Is(target.ChainID) {
				return fmt.Errorf("%s is part of the bridge selection; swap or reconfigure first", target.Name)
			}
			if err := a.registry.RemoveByChainID(ctx, target.ChainID); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%s)\n", target.Name, target.ChainID)
			return err
		},
	}
}

func newNetworksProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <rpc-url>",
		Short: "Show which chain an RPC endpoint serves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := networks.ProbeRPC(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newNetworksSwapCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "swap",
		Short: "Swap the bridge source and destination and remember the choice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), v, false)
			if err != nil {
				return err
			}
			defer a.Close()

			a.selection.Swap()
			if err := a.saveSelection(); err != nil {
				return fmt.Errorf("save selection: %w", err)
			}
			src, dst := a.selection.Pair()
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", src.Name, dst.Name)
			return err
		},
	}
}

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "history [id]",
		Short: "List submitted transfers, newest first, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), v, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				tx, ok, err := a.bridge.History().Get(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s", bridge.ErrTransactionNotFound, args[0])
				}
				return printJSON(cmd.OutOrStdout(), tx)
			}

			list, err := a.bridge.History().List()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
}
