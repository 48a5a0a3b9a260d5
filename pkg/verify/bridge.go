// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package verify

import (
	"crypto/x509"
	"errors"
	"log/slog"
	"time"
)

// ChainVerifier is the platform-style certificate verifier the bridge
// adapts into the TLS stack. A nil return accepts the chain; a non-nil
// return rejects it. Implementations should return *VerificationError
// so the failure reason can be mapped to a handshake alert; any other
// error is treated as ReasonOther.
//
// Implementations must be safe for concurrent use across independent
// connections and must not retain the certificate slices.
type ChainVerifier interface {
	// VerifyServerCert verifies a DER-encoded leaf certificate and its
	// DER-encoded intermediates against the given server identity at
	// the given time. ocspResponses carries stapled OCSP responses;
	// an empty list means no stapled revocation evidence is available,
	// which must not be interpreted as proof of non-revocation.
	VerifyServerCert(leaf []byte, intermediates [][]byte, identity ServerIdentity, ocspResponses [][]byte, now time.Time) error
}

// PeerVerifier is the handshake-time callback shape expected by
// tls.Config.VerifyPeerCertificate.
type PeerVerifier func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error

// NewPeerVerifier adapts a ChainVerifier into a TLS peer-verification
// callback. The callback runs synchronously at most once per handshake
// when the peer's chain becomes available, touches only the captured
// immutable state, and is fail-closed: an empty chain, an undecodable
// chain element, or a verifier failure always rejects the handshake.
//
// On verifier failure a non-sensitive summary (identity and high-level
// reason, never certificate bytes) is logged and the reason is mapped
// to a handshake alert for diagnostics.
func NewPeerVerifier(verifier ChainVerifier, identity ServerIdentity, logger *slog.Logger) (PeerVerifier, error) {
	if verifier == nil {
		return nil, ErrNilVerifier
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "peer_verifier")

	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			logger.Debug("peer presented no certificate", "identity", identity.String())
			return &AlertError{Alert: AlertNoCertificate, Reason: ReasonOther}
		}

		// The head of the chain must be a decodable leaf certificate.
		leaf := rawCerts[0]
		if _, err := x509.ParseCertificate(leaf); err != nil {
			logger.Debug("peer leaf certificate undecodable", "identity", identity.String())
			return &AlertError{Alert: AlertBadCertificate, Reason: ReasonBadEncoding}
		}

		// The rest of the chain must be decodable intermediates.
		intermediates := rawCerts[1:]
		for _, der := range intermediates {
			if _, err := x509.ParseCertificate(der); err != nil {
				logger.Debug("peer intermediate certificate undecodable", "identity", identity.String())
				return &AlertError{Alert: AlertBadCertificate, Reason: ReasonBadEncoding}
			}
		}

		// No OCSP stapling is validated here. Either the verifier does
		// its own checks or it does not; an empty list must not read as
		// proof of non-revocation.
		var ocspResponses [][]byte

		err := verifier.VerifyServerCert(leaf, intermediates, identity, ocspResponses, time.Now())
		if err == nil {
			return nil
		}

		// Rejecting the certificate is what matters; mapping the reason
		// onto an alert only affects what gets reported.
		reason := ReasonOther
		var verr *VerificationError
		if errors.As(err, &verr) {
			reason = verr.Reason
		}
		logger.Debug("TLS certificate failed verification",
			"identity", identity.String(), "reason", reason.String())
		return &AlertError{Alert: AlertForReason(reason), Reason: reason}
	}, nil
}
