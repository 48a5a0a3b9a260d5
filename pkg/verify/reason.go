// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package verify bridges a platform-style certificate verifier into the
// TLS stack's peer-verification callback. It defines the closed set of
// verification failure reasons, the closed set of handshake alerts used
// for diagnostics, and the deterministic mapping between them.
//
// The bridge is fail-closed: an empty peer chain, an undecodable chain
// element, or any verifier failure always aborts the handshake. Alert
// selection only affects what gets reported, never the reject decision.
package verify

import "fmt"

// Reason identifies why certificate verification failed. The set is
// closed; verifiers that produce a reason outside it must use
// ReasonOther so that alert mapping stays total.
type Reason int

const (
	// ReasonBadEncoding indicates a certificate could not be decoded.
	ReasonBadEncoding Reason = iota

	// ReasonExpired indicates the certificate's validity period has ended.
	ReasonExpired

	// ReasonNotYetValid indicates the certificate's validity period has
	// not yet begun.
	ReasonNotYetValid

	// ReasonRevoked indicates the certificate was revoked by its signer.
	ReasonRevoked

	// ReasonUnhandledCriticalExtension indicates the certificate carries
	// a critical extension the verifier does not understand.
	ReasonUnhandledCriticalExtension

	// ReasonUnknownIssuer indicates no chain to a trusted root could be
	// built.
	ReasonUnknownIssuer

	// ReasonUnknownRevocationStatus indicates revocation status could
	// not be determined from the supplied responses.
	ReasonUnknownRevocationStatus

	// ReasonBadSignature indicates a signature in the chain did not
	// verify.
	ReasonBadSignature

	// ReasonNotValidForName indicates the certificate does not cover the
	// requested server identity.
	ReasonNotValidForName

	// ReasonInvalidPurpose indicates the certificate is not valid for
	// server authentication.
	ReasonInvalidPurpose

	// ReasonAppVerificationFailure indicates an internal failure in the
	// verifier itself, unrelated to the peer.
	ReasonAppVerificationFailure

	// ReasonOther covers any failure that fits none of the specific
	// reasons above.
	ReasonOther
)

// reasonNames provides the string form for each known reason.
var reasonNames = map[Reason]string{
	ReasonBadEncoding:                "bad encoding",
	ReasonExpired:                    "expired",
	ReasonNotYetValid:                "not yet valid",
	ReasonRevoked:                    "revoked",
	ReasonUnhandledCriticalExtension: "unhandled critical extension",
	ReasonUnknownIssuer:              "unknown issuer",
	ReasonUnknownRevocationStatus:    "unknown revocation status",
	ReasonBadSignature:               "bad signature",
	ReasonNotValidForName:            "not valid for name",
	ReasonInvalidPurpose:             "invalid purpose",
	ReasonAppVerificationFailure:     "application verification failure",
	ReasonOther:                      "other",
}

// String returns the human-readable name of the reason. Reasons outside
// the known set render as "unknown".
func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// VerificationError is the failure outcome of certificate verification.
// A nil error from a ChainVerifier means the chain was accepted.
type VerificationError struct {
	// Reason classifies the failure within the closed reason set.
	Reason Reason

	// Detail carries optional non-sensitive context for logs. It must
	// never contain raw certificate bytes.
	Detail string
}

// Error returns the reason name, with detail appended when present.
func (e *VerificationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("verify: certificate verification failed: %s", e.Reason)
	}
	return fmt.Sprintf("verify: certificate verification failed: %s: %s", e.Reason, e.Detail)
}
