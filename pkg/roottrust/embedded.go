// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package roottrust

import (
	_ "embed"
	"slices"
)

// pinnedRootDER is the service's pinned root certificate, embedded at
// build time. An exact match to the operator's published root is a
// deployment invariant; this package only consumes the bytes.
//
//go:embed res/chat-root.cer
var pinnedRootDER []byte

// PinnedRootDER returns a copy of the embedded pinned root certificate
// in DER form. Callers receive a fresh slice so the embedded resource
// stays immutable.
func PinnedRootDER() []byte {
	return slices.Clone(pinnedRootDER)
}
