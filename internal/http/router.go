package http

import (
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-bridge-client/internal/httpui"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(loopbackOnly())
	r.Use(corsMiddleware(s.allowedOrigins), originGuard(s.allowedOrigins))

	api := r.Group("/api")
	{
		api.GET("/health", s.Health)

		api.GET("/wallet/state", s.WalletState)
		api.POST("/wallet/connect", s.Connect)
		api.POST("/wallet/disconnect", s.Disconnect)
		api.POST("/wallet/balance/refresh", s.RefreshBalance)
		api.POST("/wallet/network", s.SwitchNetwork)

		api.GET("/networks", s.Networks)

		api.POST("/bridge/swap", s.SwapNetworks)
		api.POST("/bridge/transfer", s.Transfer)
		api.GET("/bridge/transactions", s.Transactions)
	}

	r.GET("/ws", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})

	// everything else is the dashboard
	if ui, err := httpui.Handler(); err != nil {
		log.Warn("dashboard unavailable", "error", err)
	} else {
		r.NoRoute(gin.WrapH(ui))
	}

	return r
}
