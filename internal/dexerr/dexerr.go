// Package dexerr is the shared failure taxonomy for quote sources and swap
// executors. Every backend failure is tagged with the source it came from
// and a kind that decides whether a retry makes sense.
package dexerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindBackend is the generic bucket for unclassified backend failures.
	KindBackend Kind = iota
	// KindValidation marks a malformed token or non-positive amount.
	// Always a caller bug, never retried.
	KindValidation
	// KindConfig marks a missing backend address or endpoint. Never retried.
	KindConfig
	// KindNetwork marks transient transport failures and timeouts.
	KindNetwork
	// KindRateLimited marks HTTP 429-style throttling. Retried with a
	// longer initial backoff.
	KindRateLimited
	// KindNoLiquidity marks a pair or fee tier without a pool or route.
	// Permanent for that pair/tier; other tiers may still be tried.
	KindNoLiquidity
	// KindExecution marks approval failures, on-chain reverts and order
	// expiry. Surfaced via SwapResult, never retried here.
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate_limited"
	case KindNoLiquidity:
		return "no_liquidity"
	case KindExecution:
		return "execution"
	default:
		return "backend"
	}
}

// Error carries the classification plus the originating source name so a
// failure stays traceable after it crosses the aggregator boundary.
type Error struct {
	Source string
	Kind   Kind
	Hint   string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(source string, kind Kind, err error) *Error {
	return &Error{Source: source, Kind: kind, Err: err}
}

func Newf(source string, kind Kind, format string, args ...any) *Error {
	return &Error{Source: source, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WithHint attaches an operator-facing hint, e.g. "use an authenticated
// API tier" after repeated rate limiting.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// KindOf extracts the classification from err, defaulting to KindBackend
// for errors that never passed through a source.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindBackend
}

// SourceOf returns the tagged source name, or "" for untagged errors.
func SourceOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Source
	}
	return ""
}

// Retryable reports whether err is worth another attempt. Only transient
// transport failures and rate limits qualify.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindRateLimited:
		return true
	default:
		return false
	}
}
