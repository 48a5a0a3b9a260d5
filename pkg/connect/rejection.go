// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package connect

import (
	"fmt"
	"io"
	"net/http"
)

// maxRejectionBodySize caps how much of a rejection response body is
// retained for caller-level inspection.
const maxRejectionBodySize = 1 << 16

// RejectionResponse is the HTTP-like response a server returns when it
// refuses the connection upgrade. It is captured once from the dial
// attempt and consumed by classification; header lookup is
// case-insensitive via http.Header. The body is opaque and may contain
// server-controlled content, so callers must redact it before logging.
type RejectionResponse struct {
	// Status is the HTTP status code of the rejection.
	Status int

	// Header holds the response headers.
	Header http.Header

	// Body is the response body, truncated to a bounded size.
	Body []byte
}

// newRejectionResponse captures the relevant parts of an upgrade
// rejection. The body is read to a bounded size and the response body
// is closed.
func newRejectionResponse(resp *http.Response) *RejectionResponse {
	rejection := &RejectionResponse{
		Status: resp.StatusCode,
		Header: resp.Header,
	}
	if resp.Body != nil {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxRejectionBodySize))
		if err == nil {
			rejection.Body = body
		}
		resp.Body.Close()
	}
	return rejection
}

// RejectedError indicates the server refused the connection upgrade
// with an HTTP-like response. It is fatal for the connection attempt;
// no further routes are tried.
type RejectedError struct {
	// Response is the captured rejection.
	Response *RejectionResponse
}

// Error returns the rejection status. The body is deliberately omitted
// since it may contain server-controlled content.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("connect: rejected by server: status %d", e.Response.Status)
}
