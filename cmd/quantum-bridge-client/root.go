package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag names double as viper keys; BRIDGE_<NAME> with dashes as underscores
// sets the same value from the environment.
const (
	flagWalletURL    = "wallet-url"
	flagKeystore     = "keystore"
	flagChain        = "chain"
	flagEphemeral    = "ephemeral"
	flagEncryptState = "encrypt-state"
	flagHost         = "host"
	flagPort         = "port"
	flagContract     = "contract"

	// env only
	keyKeystorePassword = "keystore-password"
	keyStatePassword    = "state-password"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "quantum-bridge-client",
		Short:         "Wallet connection and native asset bridge client",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	pf := root.PersistentFlags()
	pf.String(flagWalletURL, "", "JSON-RPC endpoint of an EIP-1193 wallet (overrides Wallet.RPCURL)")
	pf.String(flagKeystore, "", "sign locally with this go-ethereum keystore file")
	pf.String(flagChain, "", "initial chain for keystore mode (key or chain id)")
	pf.Bool(flagEphemeral, false, "keep wallet state, networks and history in memory")
	pf.Bool(flagEncryptState, false, "encrypt the saved wallet state with a password")
	pf.String(flagHost, "", "API listen host (overrides ClientSettings.LocalHost)")
	pf.String(flagPort, "", "API listen port (overrides ClientSettings.Port)")
	pf.String(flagContract, "", "bridge contract address (overrides Bridge.ContractAddress)")

	root.AddCommand(
		newServeCmd(v),
		newStatusCmd(v),
		newConnectCmd(v),
		newDisconnectCmd(v),
		newSwitchCmd(v),
		newSendCmd(v),
		newNetworksCmd(v),
		newHistoryCmd(v),
	)
	return root
}
