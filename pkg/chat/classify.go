// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package chat

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jeremyhahn/go-chatconn/pkg/connect"
)

// retryAfterHeader is the response header carrying the minimum wait
// before reattempting, in whole seconds.
const retryAfterHeader = "Retry-After"

// appExpiredStatus is the status the server uses to reject clients
// whose app version is too old.
const appExpiredStatus = 499

// transportDescriptions is the exhaustive mapping from transport
// failure kind to the generic, non-sensitive text surfaced under the
// WebSocket-error umbrella.
var transportDescriptions = map[connect.TransportErrorKind]string{
	connect.TransportInvalidConfiguration: "invalid configuration",
	connect.TransportTCPConnectionFailed:  "TCP connection failed",
	connect.TransportDNSError:             "DNS error",
	connect.TransportTLSError:             "TLS failure",
	connect.TransportTLSHandshakeFailed:   "TLS failure",
	connect.TransportCertificateLoad:      "failed to load certificates",
	connect.TransportProxyProtocol:        "proxy protocol error",
	connect.TransportClientAbort:          "client abort error",
}

// ClassifySingleAttempt maps the resolved outcome of one logical
// connection attempt onto the taxonomy. A nil error means the attempt
// succeeded and nil is returned.
//
// Zero resolved routes and all-routes-failed both become
// AllConnectionRoutesFailed, distinguished by the attempt count (0 vs
// 1) so callers can choose between immediate fallback and exponential
// backoff. The overall deadline elapsing becomes
// TimeoutEstablishingConnection. A fatal per-attempt error is
// decomposed by sub-kind.
func ClassifySingleAttempt(err error) *ServiceError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, connect.ErrNoResolvedRoutes):
		return &ServiceError{Kind: KindAllConnectionRoutesFailed, Attempts: 0, cause: err}
	case errors.Is(err, connect.ErrAllAttemptsFailed):
		return &ServiceError{Kind: KindAllConnectionRoutesFailed, Attempts: 1, cause: err}
	case errors.Is(err, connect.ErrOverallTimeout):
		return &ServiceError{Kind: KindTimeoutEstablishingConnection, Attempts: 1, cause: err}
	}

	var fatal *connect.FatalConnectError
	if errors.As(err, &fatal) {
		return classifyFatal(fatal.Err)
	}
	return classifyFatal(err)
}

// classifyFatal decomposes a fatal per-attempt error: server rejections
// go through ClassifyRejection, a handshake-level timeout becomes the
// dedicated Timeout variant, transport failures map to their generic
// descriptions, and WebSocket protocol errors pass through unchanged
// under the umbrella variant.
func classifyFatal(err error) *ServiceError {
	var rejected *connect.RejectedError
	if errors.As(err, &rejected) {
		return ClassifyRejection(rejected.Response)
	}

	if errors.Is(err, connect.ErrHandshakeTimeout) {
		return &ServiceError{Kind: KindTimeout, cause: err}
	}

	var transport *connect.TransportError
	if errors.As(err, &transport) {
		return &ServiceError{
			Kind:  KindWebSocket,
			Text:  transportDescriptions[transport.Kind],
			cause: err,
		}
	}

	var protocol *connect.ProtocolError
	if errors.As(err, &protocol) {
		return &ServiceError{Kind: KindWebSocket, cause: protocol.Err}
	}

	return &ServiceError{Kind: KindWebSocket, cause: err}
}

// ClassifyRejection maps a server's rejection of the connection upgrade
// onto the taxonomy, in strict precedence order:
//
//  1. A Retry-After header parsing as a non-negative integer number of
//     seconds wins over everything, including the special status codes.
//  2. Status 499 means the app version is too old.
//  3. Status 403 means the device was deregistered. The server is
//     assumed never to issue 403 on this connection for any other
//     reason; the classification is logged distinctly so a server-side
//     change of that assumption stays visible.
//  4. Anything else is wrapped generically with the full response for
//     caller-level inspection.
//
// A malformed Retry-After value is treated as absent, not as an error.
func ClassifyRejection(resp *connect.RejectionResponse) *ServiceError {
	if seconds, ok := RetryAfterSeconds(resp.Header); ok {
		return &ServiceError{Kind: KindRetryLater, RetryAfterSeconds: seconds}
	}

	switch resp.Status {
	case appExpiredStatus:
		return &ServiceError{Kind: KindAppExpired}
	case http.StatusForbidden:
		slog.Warn("connection upgrade rejected with 403, treating as device deregistered",
			"status", resp.Status)
		return &ServiceError{Kind: KindDeviceDeregistered}
	default:
		return &ServiceError{Kind: KindWebSocket, Response: resp}
	}
}

// RetryAfterSeconds extracts a valid Retry-After value from the given
// headers. It returns false when the header is absent or does not parse
// as a non-negative integer number of seconds.
func RetryAfterSeconds(header http.Header) (uint32, bool) {
	value := header.Get(retryAfterHeader)
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(seconds), true
}
