package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-bridge-client/internal/bridge"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// GET /api/health
func (s *Server) Health(c *gin.Context) {
	respondOK(c, http.StatusOK, healthRes{Status: "ok", Version: s.version})
}

// GET /api/wallet/state
func (s *Server) WalletState(c *gin.Context) {
	respondOK(c, http.StatusOK, s.walletState())
}

func (s *Server) walletState() walletStateRes {
	res := walletStateRes{Snapshot: s.store.Snapshot()}
	if res.Network != nil && res.Address != nil {
		res.AddressURL = res.Network.AddressURL(*res.Address)
	}
	return res
}

// POST /api/wallet/connect
func (s *Server) Connect(c *gin.Context) {
	if err := s.store.Connect(c.Request.Context()); err != nil {
		respondErr(c, err, nil)
		return
	}
	respondOK(c, http.StatusOK, s.walletState())
}

// POST /api/wallet/disconnect
func (s *Server) Disconnect(c *gin.Context) {
	s.store.Disconnect()
	respondOK(c, http.StatusOK, s.walletState())
}

// POST /api/wallet/balance/refresh
func (s *Server) RefreshBalance(c *gin.Context) {
	s.store.RefreshBalance(c.Request.Context())
	respondOK(c, http.StatusOK, s.walletState())
}

// POST /api/wallet/network
func (s *Server) SwitchNetwork(c *gin.Context) {
	var req switchNetworkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, WalletMissingChainIDHexText)
		return
	}

	target, ok := s.findNetwork(c, req.ChainIDHex)
	if !ok {
		respondError(c, http.StatusBadRequest, WalletUnsupportedNetworkText)
		return
	}

	if err := s.store.SwitchNetwork(c.Request.Context(), target); err != nil {
		respondErr(c, err, nil)
		return
	}
	respondOK(c, http.StatusOK, target)
}

// findNetwork looks chainIdHex up in the current selection, then in the
// registry.
func (s *Server) findNetwork(c *gin.Context, chainIdHex string) (networks.NetworkDescriptor, bool) {
	src, dst := s.bridge.Selection().Pair()
	if n, ok := networks.Lookup(chainIdHex, src, dst); ok {
		return n, true
	}
	if s.registry == nil {
		return networks.NetworkDescriptor{}, false
	}
	n, ok, err := s.registry.FindByChainID(c.Request.Context(), chainIdHex)
	if err != nil {
		log.Warn("network registry lookup failed", "chainId", chainIdHex, "error", err)
		return networks.NetworkDescriptor{}, false
	}
	return n, ok
}

// GET /api/networks
func (s *Server) Networks(c *gin.Context) {
	res := networksRes{selectionRes: s.selection(), Networks: []networks.Entry{}}
	if n, ok := s.store.CurrentNetwork(); ok {
		res.Current = &n
	}
	if s.registry != nil {
		entries, err := s.registry.List(c.Request.Context())
		if err != nil {
			log.Warn("failed to list networks", "error", err)
		} else {
			res.Networks = entries
		}
	}
	respondOK(c, http.StatusOK, res)
}

// POST /api/bridge/swap
func (s *Server) SwapNetworks(c *gin.Context) {
	s.bridge.Selection().Swap()
	sel := s.selection()
	log.Info("bridge direction swapped", "source", sel.Source.Name, "destination", sel.Destination.Name)
	s.hub.Broadcast(wsMessage{Type: WSMessageSelection, Selection: &sel})
	respondOK(c, http.StatusOK, sel)
}

type transferResult struct {
	tx  bridge.Transaction
	err error
}

// POST /api/bridge/transfer
//
// Responds once the wallet returns a transaction hash (202, status pending)
// or the transfer fails. The receipt wait continues in the background and
// its outcome is pushed over the websocket.
func (s *Server) Transfer(c *gin.Context) {
	var req transferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, HTTPErrorInvalidJSONText)
		return
	}
	intent := bridge.TransferIntent{Recipient: req.Recipient, Amount: req.Amount}

	if err := s.bridge.Validate(intent); err != nil {
		respondErr(c, err, nil)
		return
	}

	n := &transferNotifier{hub: s.hub, submitted: make(chan bridge.Transaction, 1)}
	done := make(chan transferResult, 1)
	go func() {
		tx, err := s.bridge.Submit(s.ctx, intent, n)
		done <- transferResult{tx: tx, err: err}
	}()

	select {
	case tx := <-n.submitted:
		respondOK(c, http.StatusAccepted, tx)
	case res := <-done:
		if res.err != nil {
			var data any
			if res.tx.ID != "" {
				data = res.tx
			}
			respondErr(c, res.err, data)
			return
		}
		respondOK(c, http.StatusOK, res.tx)
	case <-c.Request.Context().Done():
		log.Warn("client left before transfer was submitted")
	}
}

// GET /api/bridge/transactions
func (s *Server) Transactions(c *gin.Context) {
	list, err := s.bridge.History().List()
	if err != nil {
		log.Error("failed to list transactions", "error", err)
		respondError(c, http.StatusInternalServerError, BridgeHistoryLoadFailedText)
		return
	}
	respondOK(c, http.StatusOK, list)
}
