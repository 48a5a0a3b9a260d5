// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package chat

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultInitialBackoff is the first reconnect delay.
	DefaultInitialBackoff = 500 * time.Millisecond

	// DefaultMaxBackoff caps the reconnect delay.
	DefaultMaxBackoff = 30 * time.Second
)

// Strategy is the retry posture a taxonomy variant calls for.
type Strategy int

const (
	// NoRetry means the failure requires app or user remediation;
	// reattempting cannot help.
	NoRetry Strategy = iota

	// RetryAfterHint means the server provided a minimum wait; callers
	// are obligated to wait at least that long before reattempting.
	RetryAfterHint

	// RetryWithBackoff means the failure is transient; reattempt under
	// exponential backoff.
	RetryWithBackoff
)

// strategyNames provides the string form for each strategy.
var strategyNames = map[Strategy]string{
	NoRetry:          "no_retry",
	RetryAfterHint:   "retry_after_hint",
	RetryWithBackoff: "retry_with_backoff",
}

// String returns the strategy name.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// RetryDecision is the result of applying retry policy to a taxonomy
// value.
type RetryDecision struct {
	// Strategy is the retry posture.
	Strategy Strategy

	// Hint is the server-obligated minimum wait for RetryAfterHint.
	Hint time.Duration
}

// kindStrategies is the exhaustive mapping from taxonomy kind to retry
// strategy, kept separate from classification so policy can evolve
// independently. Fatal-for-session variants never retry; transient
// variants back off; the retry-later variant carries the server's hint.
var kindStrategies = map[Kind]Strategy{
	KindWebSocket:                        RetryWithBackoff,
	KindAppExpired:                       NoRetry,
	KindDeviceDeregistered:               NoRetry,
	KindUnexpectedFrameReceived:          RetryWithBackoff,
	KindServerRequestMissingID:           RetryWithBackoff,
	KindIncomingDataInvalid:              RetryWithBackoff,
	KindRequestHasInvalidHeader:          NoRetry,
	KindTimeout:                          RetryWithBackoff,
	KindTimeoutEstablishingConnection:    RetryWithBackoff,
	KindAllConnectionRoutesFailed:        RetryWithBackoff,
	KindServiceInactive:                  NoRetry,
	KindServiceUnavailable:               RetryWithBackoff,
	KindServiceIntentionallyDisconnected: NoRetry,
	KindRetryLater:                       RetryAfterHint,
}

// Decide maps a taxonomy value onto a retry decision. It is a pure
// function of the error's kind; a nil error means success and yields
// NoRetry.
func Decide(err *ServiceError) RetryDecision {
	if err == nil {
		return RetryDecision{Strategy: NoRetry}
	}
	strategy, ok := kindStrategies[err.Kind]
	if !ok {
		strategy = RetryWithBackoff
	}
	if strategy == RetryAfterHint {
		return RetryDecision{
			Strategy: RetryAfterHint,
			Hint:     time.Duration(err.RetryAfterSeconds) * time.Second,
		}
	}
	return RetryDecision{Strategy: strategy}
}

// NewBackoff builds the exponential backoff strategy used for
// RetryWithBackoff decisions.
func NewBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultInitialBackoff
	b.MaxInterval = DefaultMaxBackoff
	b.Reset()
	return b
}
