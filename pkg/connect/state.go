// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package connect

import "fmt"

// AttemptState is the lifecycle state of a single route attempt:
//
//	Idle → Connecting → TLSHandshaking → Established
//	                  ↘ Rejected | Failed   (also from TLSHandshaking)
//
// Established, Rejected, and Failed are terminal; terminal states feed
// the classifiers.
type AttemptState int

const (
	// StateIdle is the initial state before any I/O.
	StateIdle AttemptState = iota

	// StateConnecting covers route dialing up to the TLS handshake.
	StateConnecting

	// StateTLSHandshaking covers the TLS handshake and upgrade exchange.
	StateTLSHandshaking

	// StateEstablished is the terminal success state.
	StateEstablished

	// StateRejected is the terminal state for a server-refused upgrade.
	StateRejected

	// StateFailed is the terminal state for transport, TLS, timeout, and
	// protocol failures.
	StateFailed
)

// stateNames provides the string form for each state.
var stateNames = map[AttemptState]string{
	StateIdle:           "idle",
	StateConnecting:     "connecting",
	StateTLSHandshaking: "tls_handshaking",
	StateEstablished:    "established",
	StateRejected:       "rejected",
	StateFailed:         "failed",
}

// String returns the state name.
func (s AttemptState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the state ends the attempt.
func (s AttemptState) Terminal() bool {
	switch s {
	case StateEstablished, StateRejected, StateFailed:
		return true
	default:
		return false
	}
}

// stateTransitions is the exhaustive set of legal transitions.
var stateTransitions = map[AttemptState][]AttemptState{
	StateIdle:           {StateConnecting},
	StateConnecting:     {StateTLSHandshaking, StateRejected, StateFailed},
	StateTLSHandshaking: {StateEstablished, StateRejected, StateFailed},
	StateEstablished:    {},
	StateRejected:       {},
	StateFailed:         {},
}

// CanTransition reports whether moving from one state to another is
// legal.
func CanTransition(from, to AttemptState) bool {
	for _, next := range stateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Attempt tracks the state of one route attempt. It is owned by a
// single goroutine; no synchronization is provided.
type Attempt struct {
	route Route
	state AttemptState
}

// NewAttempt creates an attempt in StateIdle for the given route.
func NewAttempt(route Route) *Attempt {
	return &Attempt{route: route, state: StateIdle}
}

// Route returns the candidate this attempt targets.
func (a *Attempt) Route() Route {
	return a.route
}

// State returns the current state.
func (a *Attempt) State() AttemptState {
	return a.state
}

// To advances the attempt to the next state, rejecting illegal
// transitions.
func (a *Attempt) To(next AttemptState) error {
	if !CanTransition(a.state, next) {
		return fmt.Errorf("%w: illegal transition %s -> %s", ErrInvalidConfig, a.state, next)
	}
	a.state = next
	return nil
}
