package http

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-bridge-client/internal/bridge"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
)

func isLoopbackRequest(r *http.Request) bool {
	ra := r.RemoteAddr

	h, _, err := net.SplitHostPort(ra)
	if err != nil {
		ip := net.ParseIP(ra)
		return ip != nil && ip.IsLoopback()
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

func isSafeLocalHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(strings.ToLower(host), "[]")
	return host == "127.0.0.1" || host == "localhost" || host == "::1"
}

func normalizeOrigin(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	u, err := url.Parse(in)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s", strings.ToLower(u.Scheme), strings.ToLower(u.Host))
}

func normalizeOrigins(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, o := range in {
		n := normalizeOrigin(o)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{OK: true, Data: data})
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{OK: false, Error: msg})
}

// respondErr maps err onto a status with statusFor and writes it. data, if
// set, is returned alongside the error.
func respondErr(c *gin.Context, err error, data any) {
	c.AbortWithStatusJSON(statusFor(err), envelope{OK: false, Data: data, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, wallet.ErrWalletUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, wallet.ErrNotConnected),
		errors.Is(err, wallet.ErrNoAccounts):
		return http.StatusConflict
	case errors.Is(err, bridge.ErrInvalidAmount),
		errors.Is(err, bridge.ErrInsufficientBalance),
		errors.Is(err, bridge.ErrInvalidRecipient),
		errors.Is(err, bridge.ErrNoRecipient),
		errors.Is(err, networks.ErrSameNetwork):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrUserRejected),
		errors.Is(err, wallet.ErrNetworkSwitchFailed),
		errors.Is(err, wallet.ErrTransferFailed),
		wallet.Code(err) != 0:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
