package wallet

import (
	"errors"
	"fmt"

	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
)

var (
	ErrWalletUnavailable   = errors.New("wallet unavailable")
	ErrUserRejected        = errors.New("request rejected by user")
	ErrChainUnregistered   = errors.New("chain not registered in wallet")
	ErrNetworkSwitchFailed = errors.New("network switch failed")
	ErrBalanceLookupFailed = errors.New("balance lookup failed")
	ErrTransferFailed      = errors.New("transfer failed")

	ErrNoAccounts   = errors.New("wallet returned no accounts")
	ErrNotConnected = errors.New("wallet not connected")
)

// ProviderError is an error reported by the wallet itself, carrying the
// EIP-1193 code.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) Is(target error) bool {
	switch e.Code {
	case constants.ProviderCodeUserRejected:
		return target == ErrUserRejected
	case constants.ProviderCodeUnrecognizedChain:
		return target == ErrChainUnregistered
	case constants.ProviderCodeDisconnected:
		return target == ErrWalletUnavailable
	}
	return false
}

func NewProviderError(code int, msg string) *ProviderError {
	return &ProviderError{Code: code, Message: msg}
}

// Code extracts the provider error code from err, or 0.
func Code(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}
