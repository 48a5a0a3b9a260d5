// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package roottrust

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jeremyhahn/go-chatconn/pkg/verify"
)

// policyKind discriminates the three root-of-trust policies.
type policyKind int

const (
	kindNative policyKind = iota
	kindPinned
	kindFromDER
)

// policyNames provides the string form for each policy kind.
var policyNames = map[policyKind]string{
	kindNative:  "native",
	kindPinned:  "pinned",
	kindFromDER: "from-der",
}

// Policy is a root-of-trust selection. Exactly one policy is active per
// TLS configuration; the value is immutable after construction and safe
// to share across concurrent connections.
type Policy struct {
	kind     policyKind
	der      []byte
	verifier verify.ChainVerifier
	logger   *slog.Logger
}

// Native selects the platform's native certificate store. Verification
// runs at handshake time through a custom peer-verification callback
// backed by the system root pool.
func Native() Policy {
	return Policy{kind: kindNative}
}

// NativeWithVerifier selects the native policy with a caller-supplied
// chain verifier in place of the system-store default. This is how
// tests and embedders substitute their own trust evaluation.
func NativeWithVerifier(v verify.ChainVerifier) Policy {
	return Policy{kind: kindNative, verifier: v}
}

// Pinned selects the build-embedded pinned service root as the sole
// trust anchor.
func Pinned() Policy {
	return Policy{kind: kindPinned, der: pinnedRootDER}
}

// FromDER selects a caller-supplied DER-encoded certificate as the sole
// trust anchor. The bytes are copied so later mutation by the caller
// cannot affect the policy.
func FromDER(der []byte) Policy {
	return Policy{kind: kindFromDER, der: slices.Clone(der)}
}

// WithLogger returns a copy of the policy that logs handshake-time
// verification failures through the given logger instead of
// slog.Default().
func (p Policy) WithLogger(logger *slog.Logger) Policy {
	p.logger = logger
	return p
}

// String returns the policy kind name.
func (p Policy) String() string {
	return policyNames[p.kind]
}

// Apply installs the policy on a TLS client configuration for a
// connection to hostname. It must be called once per configuration
// before dialing; calling it again replaces the previous policy
// entirely (last call wins).
//
// For the native policy the hostname is parsed into a canonical server
// identity before any I/O; syntactically invalid input fails with
// ErrBadHostname. The verification bridge is installed as the
// configuration's custom peer-verification callback and runs at
// handshake time.
//
// For the pinned and from-DER policies the anchor bytes must parse as
// exactly one DER certificate (ErrBadCertificate otherwise); a minimal
// pool holding only that certificate becomes the sole trust anchor and
// standard chain validation applies, with no custom callback.
func (p Policy) Apply(cfg *tls.Config, hostname string) error {
	if p.kind == kindNative {
		return p.applyNative(cfg, hostname)
	}

	cert, err := x509.ParseCertificate(p.der)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadCertificate, err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(cert)

	cfg.RootCAs = pool
	cfg.InsecureSkipVerify = false
	cfg.VerifyPeerCertificate = nil
	return nil
}

// applyNative validates the hostname, resolves the chain verifier, and
// installs the handshake-time bridge. Standard chain validation is
// disabled because the bridge owns the accept/reject decision; any
// bridge error aborts the handshake.
func (p Policy) applyNative(cfg *tls.Config, hostname string) error {
	identity, err := verify.ParseServerIdentity(hostname)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadHostname, err)
	}

	verifier := p.verifier
	if verifier == nil {
		verifier, err = verify.NewSystemVerifier()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadCertificate, err)
		}
	}

	peerVerifier, err := verify.NewPeerVerifier(verifier, identity, p.logger)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadCertificate, err)
	}

	cfg.RootCAs = nil
	cfg.InsecureSkipVerify = true //nolint:gosec // Verification happens in the peer verifier callback.
	cfg.VerifyPeerCertificate = peerVerifier
	return nil
}
