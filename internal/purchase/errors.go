package purchase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"mocha-tree/investor-portal/investor-portal-backend/internal/chain"
)

// Code classifies why a purchase attempt was refused or failed. Validation
// codes are resolved locally before any network call; transaction codes are
// classified from the chain client's terminal error.
type Code string

const (
	CodeNoFarmSelected    Code = "NO_FARM_SELECTED"
	CodeFarmInactive      Code = "FARM_INACTIVE"
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeCapExceeded       Code = "CAP_EXCEEDED"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeAlreadyInProgress Code = "ALREADY_IN_PROGRESS"

	CodeUserRejected     Code = "USER_REJECTED"
	CodeNetworkError     Code = "NETWORK_ERROR"
	CodeContractReverted Code = "CONTRACT_REVERTED"
	CodeTimeout          Code = "TIMEOUT"
	CodeUnknown          Code = "UNKNOWN"
)

// Rejection is a refused purchase with a human-readable reason and, where
// applicable, a corrective hint. Exactly one code is reported per attempt:
// the first failing check wins.
type Rejection struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
	// Remaining is set for CAP_EXCEEDED: how many bonds the investor may
	// still buy.
	Remaining *uint64 `json:"remaining,omitempty"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func reject(code Code, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}

func rejectCapExceeded(maxBonds, held uint64) *Rejection {
	remaining := uint64(0)
	if held < maxBonds {
		remaining = maxBonds - held
	}
	return &Rejection{
		Code:      CodeCapExceeded,
		Message:   fmt.Sprintf("cannot exceed %d bonds per investor", maxBonds),
		Hint:      fmt.Sprintf("reduce amount to %d", remaining),
		Remaining: &remaining,
	}
}

// AsRejection unwraps a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}

// ClassifyTxError maps a chain-layer error onto the failure taxonomy. Raw
// provider text is kept as detail, never surfaced as the user message.
func ClassifyTxError(err error) (Code, string) {
	if err == nil {
		return CodeUnknown, "no error"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout, "transaction not confirmed in time; it may still be mined"
	}
	if errors.Is(err, chain.ErrReverted) {
		return CodeContractReverted, err.Error()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CodeNetworkError, err.Error()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"):
		return CodeUserRejected, err.Error()
	case strings.Contains(msg, "execution reverted"), strings.Contains(msg, "revert"):
		return CodeContractReverted, err.Error()
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "eof"):
		return CodeNetworkError, err.Error()
	}
	return CodeUnknown, err.Error()
}

// userMessageFor renders the classified failure for display.
func userMessageFor(code Code) string {
	switch code {
	case CodeUserRejected:
		return "transaction was rejected in the wallet"
	case CodeNetworkError:
		return "network error while submitting the transaction"
	case CodeContractReverted:
		return "the contract rejected the transaction"
	case CodeTimeout:
		return "transaction confirmation timed out"
	default:
		return "transaction failed"
	}
}
