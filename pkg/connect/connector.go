// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package connect

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jeremyhahn/go-chatconn/pkg/roottrust"
)

const (
	// DefaultAttemptTimeout is the default deadline for a single route
	// attempt, covering dial, TLS handshake, and upgrade.
	DefaultAttemptTimeout = 30 * time.Second

	// DefaultHandshakeTimeout is the default WebSocket handshake timeout.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultUpgradePath is the request path for the connection upgrade.
	DefaultUpgradePath = "/v1/websocket/"
)

// ConnectorConfig configures a Connector.
type ConnectorConfig struct {
	// Trust is the root-of-trust policy applied before dialing.
	Trust roottrust.Policy

	// Resolver yields candidate routes for the target hostname.
	Resolver RouteResolver

	// Path is the upgrade request path. Default: DefaultUpgradePath.
	Path string

	// Port is the service port. Default: DefaultServicePort.
	Port uint16

	// Header holds extra headers sent with the upgrade request.
	Header http.Header

	// AttemptTimeout is the per-route deadline. Default: 30s.
	AttemptTimeout time.Duration

	// HandshakeTimeout is the WebSocket handshake timeout. Default: 10s.
	HandshakeTimeout time.Duration

	// Logger for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Connector establishes a WebSocket connection to the chat service by
// trying candidate routes in order. It is safe for concurrent use; each
// Connect call works on its own attempt state and the trust policy is
// shared read-only.
type Connector struct {
	trust            roottrust.Policy
	resolver         RouteResolver
	path             string
	port             uint16
	header           http.Header
	attemptTimeout   time.Duration
	handshakeTimeout time.Duration
	logger           *slog.Logger
}

// NewConnector creates a Connector from the given config, applying
// defaults for unset fields.
func NewConnector(cfg *ConnectorConfig) (*Connector, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("%w: resolver is required", ErrInvalidConfig)
	}

	path := cfg.Path
	if path == "" {
		path = DefaultUpgradePath
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultServicePort
	}
	attemptTimeout := cfg.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	handshakeTimeout := cfg.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Connector{
		trust:            cfg.Trust,
		resolver:         cfg.Resolver,
		path:             path,
		port:             port,
		header:           cfg.Header,
		attemptTimeout:   attemptTimeout,
		handshakeTimeout: handshakeTimeout,
		logger:           logger.With("component", "connector"),
	}, nil
}

// Connect resolves candidate routes for hostname and attempts them in
// order until one produces an established connection. The trust policy
// is applied once per call, before any dialing. Failure modes:
//
//   - zero candidates: ErrNoResolvedRoutes, no network I/O attempted
//   - every candidate failed: *AggregateError (ErrAllAttemptsFailed)
//   - overall deadline elapsed: ErrOverallTimeout
//   - configuration error, server rejection of the upgrade, or protocol
//     violation: *FatalConnectError, no further routes tried
func (c *Connector) Connect(ctx context.Context, hostname string) (*websocket.Conn, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if err := c.trust.Apply(tlsConfig, hostname); err != nil {
		kind := TransportCertificateLoad
		if errors.Is(err, roottrust.ErrBadHostname) {
			kind = TransportInvalidConfiguration
		}
		return nil, &FatalConnectError{Err: &TransportError{Kind: kind, Err: err}}
	}

	routes, err := c.resolver.ResolveRoutes(ctx, hostname, c.port)
	if err != nil {
		return nil, &FatalConnectError{Err: &TransportError{Kind: TransportDNSError, Err: err}}
	}
	if len(routes) == 0 {
		return nil, ErrNoResolvedRoutes
	}

	attempts := make([]AttemptError, 0, len(routes))

	for _, route := range routes {
		// Check deadline and cancellation between attempts. An attempt
		// already underway always runs to completion.
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", ErrOverallTimeout, ctxErr)
			}
			return nil, &FatalConnectError{Err: &TransportError{Kind: TransportClientAbort, Err: ctxErr}}
		}

		c.logger.Info("attempting route", "route", route.Endpoint(), "hostname", hostname)

		conn, attemptErr := c.tryRoute(ctx, route, tlsConfig)
		if attemptErr == nil {
			c.logger.Info("connection established", "route", route.Endpoint())
			return conn, nil
		}

		var fatal *FatalConnectError
		if errors.As(attemptErr, &fatal) {
			return nil, attemptErr
		}

		c.logger.Warn("route attempt failed", "route", route.Endpoint(), "error", attemptErr)
		attempts = append(attempts, AttemptError{Route: route, Err: attemptErr})
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %w", ErrOverallTimeout, ctx.Err())
	}
	return nil, &AggregateError{Attempts: attempts}
}

// tryRoute runs a single attempt against one route under the per-route
// deadline, driving the attempt state machine through its lifecycle.
func (c *Connector) tryRoute(ctx context.Context, route Route, tlsConfig *tls.Config) (*websocket.Conn, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	attempt := NewAttempt(route)
	if err := attempt.To(StateConnecting); err != nil {
		return nil, &FatalConnectError{Err: err}
	}

	dialer := &websocket.Dialer{
		TLSClientConfig:  tlsConfig.Clone(),
		HandshakeTimeout: c.handshakeTimeout,
		NetDialContext: func(dialCtx context.Context, network, _ string) (net.Conn, error) {
			// The upgrade URL names the service host; the TCP dial goes
			// to the resolved route address.
			conn, dialErr := (&net.Dialer{}).DialContext(dialCtx, network, route.Endpoint())
			if dialErr != nil {
				return nil, dialErr
			}
			_ = attempt.To(StateTLSHandshaking)
			return conn, nil
		},
	}

	conn, resp, err := dialer.DialContext(attemptCtx, c.upgradeURL(route.Hostname), c.header)
	if err == nil {
		if stateErr := attempt.To(StateEstablished); stateErr != nil {
			conn.Close()
			return nil, &FatalConnectError{Err: stateErr}
		}
		return conn, nil
	}

	if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
		_ = attempt.To(StateRejected)
		rejection := newRejectionResponse(resp)
		c.logger.Warn("upgrade rejected by server", "route", route.Endpoint(), "status", rejection.Status)
		return nil, &FatalConnectError{Err: &RejectedError{Response: rejection}}
	}

	_ = attempt.To(StateFailed)
	return nil, classifyDialError(err)
}

// upgradeURL builds the wss URL for the upgrade request. The host part
// carries the service name so SNI and certificate validation see the
// hostname rather than the dialed address.
func (c *Connector) upgradeURL(hostname string) string {
	u := url.URL{
		Scheme: "wss",
		Host:   net.JoinHostPort(hostname, strconv.Itoa(int(c.port))),
		Path:   c.path,
	}
	return u.String()
}

// classifyDialError reduces a raw dial error into the per-attempt
// vocabulary: a TransportError by kind, ErrHandshakeTimeout, or a
// ProtocolError for WebSocket-level failures.
func classifyDialError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{Kind: TransportDNSError, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrHandshakeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrHandshakeTimeout
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return &TransportError{Kind: TransportTLSHandshakeFailed, Err: err}
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return &TransportError{Kind: TransportTLSError, Err: err}
	}

	if errors.Is(err, context.Canceled) {
		return &TransportError{Kind: TransportClientAbort, Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return &TransportError{Kind: TransportTCPConnectionFailed, Err: err}
		}
		// Post-dial network failures during the handshake, including
		// remote TLS alerts.
		return &TransportError{Kind: TransportTLSError, Err: err}
	}

	return &ProtocolError{Err: err}
}
