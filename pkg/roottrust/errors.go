// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package roottrust selects and applies a root-of-trust policy to a TLS
// client configuration before dialing. Three policies are supported:
// the platform's native certificate store (via a handshake-time
// verification bridge), the build-embedded pinned service root, and a
// caller-supplied DER certificate. A policy is immutable once
// constructed and may be shared read-only across any number of
// concurrent connection attempts.
package roottrust

import "errors"

var (
	// ErrBadCertificate indicates the trust anchor bytes could not be
	// parsed as exactly one DER-encoded certificate, or the platform
	// certificate store could not be loaded.
	ErrBadCertificate = errors.New("roottrust: bad certificate")

	// ErrBadHostname indicates the target hostname is not a
	// syntactically valid DNS name or IP literal.
	ErrBadHostname = errors.New("roottrust: bad hostname")
)
