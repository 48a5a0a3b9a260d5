// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package verify

import (
	"fmt"
	"net/netip"
	"strings"
)

const (
	// maxDNSNameLength is the maximum total length of a DNS name.
	maxDNSNameLength = 253

	// maxDNSLabelLength is the maximum length of a single DNS label.
	maxDNSLabelLength = 63
)

// ServerIdentity is the canonical identity a peer certificate must
// cover: either a DNS name or an IP address literal. It is produced by
// ParseServerIdentity before any I/O takes place, so configuration
// errors surface ahead of dialing.
type ServerIdentity struct {
	name string
	ip   netip.Addr
	isIP bool
}

// ParseServerIdentity validates and canonicalizes a hostname string.
// IP literals (v4 and v6) are accepted as address identities. Anything
// else must be a syntactically valid DNS name: non-empty, at most 253
// characters, dot-separated labels of 1-63 letters, digits, or hyphens
// with no leading or trailing hyphen. A single trailing dot is allowed.
func ParseServerIdentity(host string) (ServerIdentity, error) {
	if host == "" {
		return ServerIdentity{}, fmt.Errorf("%w: empty hostname", ErrInvalidIdentity)
	}

	// Bracketed IPv6 literals are accepted in their unbracketed form.
	trimmed := host
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	if addr, err := netip.ParseAddr(trimmed); err == nil {
		return ServerIdentity{name: addr.String(), ip: addr, isIP: true}, nil
	}

	// Not an IP literal: anything containing a colon is a malformed
	// literal, not a DNS name.
	if strings.ContainsRune(host, ':') {
		return ServerIdentity{}, fmt.Errorf("%w: malformed literal %q", ErrInvalidIdentity, host)
	}

	name := strings.TrimSuffix(host, ".")
	if name == "" || len(name) > maxDNSNameLength {
		return ServerIdentity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, host)
	}

	for _, label := range strings.Split(name, ".") {
		if !validDNSLabel(label) {
			return ServerIdentity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, host)
		}
	}

	return ServerIdentity{name: strings.ToLower(name)}, nil
}

// validDNSLabel reports whether a single DNS label is syntactically
// valid: 1-63 characters of letters, digits, and hyphens, not starting
// or ending with a hyphen.
func validDNSLabel(label string) bool {
	if len(label) == 0 || len(label) > maxDNSLabelLength {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}

// IsIP reports whether the identity is an IP address literal.
func (s ServerIdentity) IsIP() bool {
	return s.isIP
}

// Addr returns the parsed address for IP identities. The zero Addr is
// returned for DNS-name identities.
func (s ServerIdentity) Addr() netip.Addr {
	return s.ip
}

// String returns the canonical form: the lowercased DNS name, or the
// normalized IP address text.
func (s ServerIdentity) String() string {
	return s.name
}
