// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package chat defines the closed error taxonomy for the chat service
// connection and the pure classifiers that map resolved connection
// outcomes and server rejections onto it. Callers inspect exactly one
// taxonomy value per failure to decide retry, backoff, and user-facing
// behavior.
package chat

import (
	"fmt"

	"github.com/jeremyhahn/go-chatconn/pkg/connect"
)

// Kind identifies one variant of the closed ServiceError taxonomy.
type Kind int

const (
	// KindWebSocket is a WebSocket-umbrella error: a generic transport
	// classification, a protocol failure, or an HTTP-wrapped rejection.
	KindWebSocket Kind = iota

	// KindAppExpired indicates the app version is too old (status 499).
	KindAppExpired

	// KindDeviceDeregistered indicates the device was deregistered or
	// delinked (status 403).
	KindDeviceDeregistered

	// KindUnexpectedFrameReceived indicates an unexpected text frame was
	// received.
	KindUnexpectedFrameReceived

	// KindServerRequestMissingID indicates a server request was missing
	// its id field.
	KindServerRequestMissingID

	// KindIncomingDataInvalid indicates data received from the server
	// failed to decode.
	KindIncomingDataInvalid

	// KindRequestHasInvalidHeader indicates a request carried non-ASCII
	// header names or values.
	KindRequestHasInvalidHeader

	// KindTimeout indicates a handshake-level timeout.
	KindTimeout

	// KindTimeoutEstablishingConnection indicates the overall connection
	// deadline elapsed.
	KindTimeoutEstablishingConnection

	// KindAllConnectionRoutesFailed indicates every candidate route
	// failed or timed out.
	KindAllConnectionRoutesFailed

	// KindServiceInactive indicates the service is not active.
	KindServiceInactive

	// KindServiceUnavailable indicates the service is unavailable due to
	// a lost connection.
	KindServiceUnavailable

	// KindServiceIntentionallyDisconnected indicates an intentional
	// local disconnect.
	KindServiceIntentionallyDisconnected

	// KindRetryLater indicates the server asked for a minimum wait
	// before reattempting.
	KindRetryLater
)

// kindNames provides the string form for each kind.
var kindNames = map[Kind]string{
	KindWebSocket:                        "websocket",
	KindAppExpired:                       "app_expired",
	KindDeviceDeregistered:               "device_deregistered",
	KindUnexpectedFrameReceived:          "unexpected_frame_received",
	KindServerRequestMissingID:           "server_request_missing_id",
	KindIncomingDataInvalid:              "incoming_data_invalid",
	KindRequestHasInvalidHeader:          "request_has_invalid_header",
	KindTimeout:                          "timeout",
	KindTimeoutEstablishingConnection:    "timeout_establishing_connection",
	KindAllConnectionRoutesFailed:        "all_connection_routes_failed",
	KindServiceInactive:                  "service_inactive",
	KindServiceUnavailable:               "service_unavailable",
	KindServiceIntentionallyDisconnected: "service_intentionally_disconnected",
	KindRetryLater:                       "retry_later",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ServiceError is one value of the closed chat-service error taxonomy.
// Every failure path ends in exactly one ServiceError. All variants are
// safe to log verbatim except the HTTP-wrapped rejection, which carries
// the full response; use LogSafe for logging.
type ServiceError struct {
	// Kind discriminates the variant.
	Kind Kind

	// Attempts is the attempt count for the timeout and routes-failed
	// variants.
	Attempts uint16

	// RetryAfterSeconds is the server-provided minimum wait for the
	// retry-later variant.
	RetryAfterSeconds uint32

	// Response is the full rejection response for the HTTP-wrapped
	// variant. Its body may contain server-controlled content.
	Response *connect.RejectionResponse

	// Text is the non-sensitive description for the WebSocket-umbrella
	// variant.
	Text string

	cause error
}

// Error renders the variant message.
func (e *ServiceError) Error() string {
	switch e.Kind {
	case KindWebSocket:
		if e.Response != nil {
			return fmt.Sprintf("chat: websocket error: HTTP %d", e.Response.Status)
		}
		if e.cause != nil && e.Text == "" {
			return fmt.Sprintf("chat: websocket error: %v", e.cause)
		}
		return fmt.Sprintf("chat: websocket error: %s", e.Text)
	case KindAppExpired:
		return "chat: app version too old"
	case KindDeviceDeregistered:
		return "chat: device deregistered or delinked"
	case KindUnexpectedFrameReceived:
		return "chat: unexpected text frame received"
	case KindServerRequestMissingID:
		return "chat: server request is missing the id field"
	case KindIncomingDataInvalid:
		return "chat: failed to decode data received from the server"
	case KindRequestHasInvalidHeader:
		return "chat: request must contain only ASCII header names and values"
	case KindTimeout:
		return "chat: timeout"
	case KindTimeoutEstablishingConnection:
		return fmt.Sprintf("chat: timed out while establishing connection after %d attempts", e.Attempts)
	case KindAllConnectionRoutesFailed:
		return fmt.Sprintf("chat: all connection routes failed or timed out, %d attempts made", e.Attempts)
	case KindServiceInactive:
		return "chat: service is inactive"
	case KindServiceUnavailable:
		return "chat: service is unavailable due to the lost connection"
	case KindServiceIntentionallyDisconnected:
		return "chat: service was disconnected by an intentional local call"
	case KindRetryLater:
		return fmt.Sprintf("chat: service is unavailable now, try again after %ds", e.RetryAfterSeconds)
	default:
		return "chat: unknown error"
	}
}

// LogSafe returns a rendering safe to log verbatim. It is identical to
// Error for every variant; the HTTP-wrapped variant already elides the
// response body, so the distinction exists for callers that inspect
// Response directly.
func (e *ServiceError) LogSafe() string {
	return e.Error()
}

// Unwrap returns the underlying cause for use with errors.Is/As.
func (e *ServiceError) Unwrap() error {
	return e.cause
}
