// Package http serves the loopback API and websocket feed that front the
// wallet connection store and the bridge service.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-bridge-client/internal/bridge"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/walletstate"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

type Config struct {
	AllowedOrigins []string
	Version        string
}

type Server struct {
	ctx      context.Context
	store    *walletstate.Store
	bridge   *bridge.Service
	registry *networks.Manager
	hub      *Hub

	allowedOrigins []string
	version        string
	engine         *gin.Engine
	unsubscribe    func()
}

// NewServer wires the API onto store and svc. registry may be nil, in which
// case only the selected source and destination networks are known. ctx
// bounds background work: the websocket hub and transfers that outlive
// their request.
func NewServer(ctx context.Context, store *walletstate.Store, svc *bridge.Service, registry *networks.Manager, cfg Config) *Server {
	s := &Server{
		ctx:            ctx,
		store:          store,
		bridge:         svc,
		registry:       registry,
		allowedOrigins: normalizeOrigins(cfg.AllowedOrigins),
		version:        cfg.Version,
	}

	s.hub = NewHub(func() any {
		snap := s.store.Snapshot()
		return wsMessage{Type: WSMessageState, State: &snap}
	}, s.checkWSOrigin)
	go s.hub.Run(ctx)

	s.unsubscribe = store.SubscribeSnapshots(func(snap walletstate.Snapshot) {
		s.hub.Broadcast(wsMessage{Type: WSMessageState, State: &snap})
	})
	go func() {
		<-ctx.Done()
		s.unsubscribe()
	}()

	s.engine = NewRouter(s)
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	log.Info("HTTP server gracefully stopped")
	return nil
}

func (s *Server) checkWSOrigin(r *http.Request) bool {
	raw := r.Header.Get("Origin")
	if raw == "" {
		return true
	}
	o := normalizeOrigin(raw)
	for _, allowed := range s.allowedOrigins {
		if o == allowed {
			return true
		}
	}
	return false
}

func (s *Server) selection() selectionRes {
	src, dst := s.bridge.Selection().Pair()
	return selectionRes{Source: src, Destination: dst, Contract: s.bridge.ContractAddress()}
}

// transferNotifier pushes transfer lifecycle events to websocket clients and
// hands the first pending record back to the waiting request.
type transferNotifier struct {
	hub       *Hub
	submitted chan bridge.Transaction
}

func (n *transferNotifier) push(tx bridge.Transaction) {
	n.hub.Broadcast(wsMessage{Type: WSMessageTransaction, Transaction: &tx})
}

func (n *transferNotifier) Submitted(tx bridge.Transaction) {
	n.push(tx)
	select {
	case n.submitted <- tx:
	default:
	}
}

func (n *transferNotifier) Confirmed(tx bridge.Transaction) { n.push(tx) }

func (n *transferNotifier) Failed(tx bridge.Transaction, _ error) { n.push(tx) }
