// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package verify

import "errors"

var (
	// ErrInvalidIdentity indicates the server identity string is not a
	// syntactically valid DNS name or IP literal.
	ErrInvalidIdentity = errors.New("verify: invalid server identity")

	// ErrNilVerifier indicates a nil ChainVerifier was supplied where one
	// is required.
	ErrNilVerifier = errors.New("verify: nil chain verifier")

	// ErrNoRoots indicates no trusted roots were available to build a
	// verification chain against.
	ErrNoRoots = errors.New("verify: no trusted roots configured")
)
