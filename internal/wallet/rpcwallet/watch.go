package rpcwallet

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Watch polls the wallet for account and chain changes and fires the
// accountsChanged and chainChanged notifications until ctx ends. The first
// poll only records a baseline.
func (w *Wallet) Watch(ctx context.Context) {
	var (
		lastAccounts []string
		lastChain    string
		lastErr      string
		primed       bool
	)

	poll := func() {
		accounts, err := w.Accounts(ctx)
		if err == nil {
			var chain string
			chain, err = w.ChainID(ctx)
			if err == nil {
				lastErr = ""
				accounts = lowerAll(accounts)

				if primed && !slices.Equal(accounts, lastAccounts) {
					w.NotifyAccounts(accounts)
				}
				if primed && chain != lastChain {
					w.NotifyChain(chain)
				}
				lastAccounts, lastChain, primed = accounts, chain, true
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
		if msg := err.Error(); msg != lastErr {
			log.Warn("wallet watch poll failed", "url", w.cfg.URL, "error", err)
			lastErr = msg
		}
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	poll()
	for {
		select {
		case <-ctx.Done():
			log.Info("wallet watcher exiting", "url", w.cfg.URL)
			return
		case <-ticker.C:
			poll()
		}
	}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
