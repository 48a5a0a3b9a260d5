// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package connect establishes the WebSocket connection to the chat
// service. It resolves candidate routes, attempts them in order under a
// per-attempt timeout, and reduces every way an attempt can fail
// (transport, TLS, timeout, server rejection) into a small error
// vocabulary that the chat package classifies into the caller-facing
// taxonomy.
package connect

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResolvedRoutes indicates route resolution produced zero
	// candidates, so no connection was even tried.
	ErrNoResolvedRoutes = errors.New("connect: no resolved routes")

	// ErrAllAttemptsFailed indicates every candidate route was tried and
	// none produced a connection.
	ErrAllAttemptsFailed = errors.New("connect: all attempts failed")

	// ErrOverallTimeout indicates the overall deadline elapsed before
	// any attempt resolved.
	ErrOverallTimeout = errors.New("connect: overall timeout")

	// ErrHandshakeTimeout indicates the handshake deadline elapsed
	// during a single attempt.
	ErrHandshakeTimeout = errors.New("connect: handshake timeout")

	// ErrInvalidConfig indicates the connector configuration is invalid
	// or missing required fields.
	ErrInvalidConfig = errors.New("connect: invalid configuration")

	// ErrInvalidHostname indicates the hostname passed to route
	// resolution is empty or malformed.
	ErrInvalidHostname = errors.New("connect: invalid hostname")

	// ErrResolverConfig indicates the route resolver configuration is
	// invalid.
	ErrResolverConfig = errors.New("connect: invalid resolver configuration")

	// ErrDNSLookupFailed indicates the DNS query for candidate routes
	// failed.
	ErrDNSLookupFailed = errors.New("connect: dns lookup failed")
)

// TransportErrorKind classifies a transport-level connection failure.
// The set is closed; classification into caller-facing text is an
// explicit table in the chat package.
type TransportErrorKind int

const (
	// TransportInvalidConfiguration indicates the connector was
	// misconfigured (bad trust policy input, bad hostname).
	TransportInvalidConfiguration TransportErrorKind = iota

	// TransportTCPConnectionFailed indicates the TCP dial failed.
	TransportTCPConnectionFailed

	// TransportDNSError indicates name resolution failed during the dial.
	TransportDNSError

	// TransportTLSError indicates a TLS-level failure.
	TransportTLSError

	// TransportTLSHandshakeFailed indicates the TLS handshake itself
	// failed, including certificate rejection.
	TransportTLSHandshakeFailed

	// TransportCertificateLoad indicates trust anchors could not be
	// loaded.
	TransportCertificateLoad

	// TransportProxyProtocol indicates a proxy protocol failure.
	TransportProxyProtocol

	// TransportClientAbort indicates the client side aborted the attempt.
	TransportClientAbort
)

// transportKindNames provides the string form for each kind.
var transportKindNames = map[TransportErrorKind]string{
	TransportInvalidConfiguration: "invalid configuration",
	TransportTCPConnectionFailed:  "tcp connection failed",
	TransportDNSError:             "dns error",
	TransportTLSError:             "tls error",
	TransportTLSHandshakeFailed:   "tls handshake failed",
	TransportCertificateLoad:      "certificate load failed",
	TransportProxyProtocol:        "proxy protocol error",
	TransportClientAbort:          "client abort",
}

// String returns the kind name.
func (k TransportErrorKind) String() string {
	if name, ok := transportKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// TransportError is a transport-level failure of a single attempt.
type TransportError struct {
	// Kind classifies the failure.
	Kind TransportErrorKind

	// Err is the underlying error, if any.
	Err error
}

// Error returns the kind name and the underlying error.
func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connect: transport: %s", e.Kind)
	}
	return fmt.Sprintf("connect: transport: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a WebSocket-protocol-level failure of an attempt,
// below the transport layer's concern. It passes through classification
// unchanged.
type ProtocolError struct {
	// Err is the underlying protocol error.
	Err error
}

// Error returns the underlying error message.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("connect: websocket protocol: %v", e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// FatalConnectError wraps an attempt failure that makes further route
// attempts pointless: a configuration error, a handshake-level timeout,
// a server rejection of the upgrade, or a protocol violation.
type FatalConnectError struct {
	// Err is the fatal per-attempt error.
	Err error
}

// Error returns the underlying error message.
func (e *FatalConnectError) Error() string {
	return fmt.Sprintf("connect: fatal: %v", e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *FatalConnectError) Unwrap() error {
	return e.Err
}

// AttemptError records the failure of a single route attempt.
type AttemptError struct {
	// Route is the candidate that failed.
	Route Route

	// Err is the per-attempt error.
	Err error
}

// Error returns a formatted message including the route endpoint.
func (e *AttemptError) Error() string {
	return fmt.Sprintf("connect: route %s: %v", e.Route.Endpoint(), e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *AttemptError) Unwrap() error {
	return e.Err
}

// AggregateError collects the failures of every attempted route. It is
// returned when all candidates fail and unwraps to ErrAllAttemptsFailed.
type AggregateError struct {
	// Attempts contains the individual route failure records.
	Attempts []AttemptError
}

// Error returns a formatted message listing all failed routes.
func (e *AggregateError) Error() string {
	msg := "connect: all attempts failed: ["
	for i, a := range e.Attempts {
		if i > 0 {
			msg += ", "
		}
		msg += fmt.Sprintf("%s: %v", a.Route.Endpoint(), a.Err)
	}
	return msg + "]"
}

// Unwrap returns ErrAllAttemptsFailed for use with errors.Is.
func (e *AggregateError) Unwrap() error {
	return ErrAllAttemptsFailed
}
