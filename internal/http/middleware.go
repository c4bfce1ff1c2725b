package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// loopbackOnly rejects requests that do not come from and target the local
// machine.
func loopbackOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isLoopbackRequest(c.Request) {
			respondError(c, http.StatusForbidden, HTTPErrorForbiddenText)
			return
		}
		if !isSafeLocalHost(c.Request.Host) {
			respondError(c, http.StatusForbidden, HTTPErrorForbiddenHost)
			return
		}
		c.Next()
	}
}

// originGuard rejects browser requests from origins outside allowed. Requests
// without an Origin header (CLI, scripts) pass.
func originGuard(allowed []string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(c *gin.Context) {
		raw := c.GetHeader("Origin")
		if raw == "" {
			c.Next()
			return
		}
		if _, ok := set[normalizeOrigin(raw)]; !ok {
			respondError(c, http.StatusForbidden, HTTPErrorForbiddenOrigin)
			return
		}
		c.Next()
	}
}

func corsMiddleware(allowed []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			n := normalizeOrigin(origin)
			for _, o := range allowed {
				if o == n {
					return true
				}
			}
			return false
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start).String(),
		}
		if status >= http.StatusInternalServerError {
			log.Error("http request", fields...)
			return
		}
		log.Info("http request", fields...)
	}
}
