// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package verify

import (
	"crypto/x509"
	"errors"
	"time"

	"golang.org/x/crypto/ocsp"
)

// WebPKIVerifier is a ChainVerifier that builds and validates a
// certificate chain against a fixed root pool using standard Web PKI
// rules. It holds no mutable state after construction and may be shared
// across any number of concurrent handshakes.
type WebPKIVerifier struct {
	roots *x509.CertPool
}

// NewWebPKIVerifier creates a verifier that trusts exactly the given
// root pool.
func NewWebPKIVerifier(roots *x509.CertPool) (*WebPKIVerifier, error) {
	if roots == nil {
		return nil, ErrNoRoots
	}
	return &WebPKIVerifier{roots: roots}, nil
}

// NewSystemVerifier creates a verifier backed by the platform's native
// certificate store. The store is loaded once at construction.
func NewSystemVerifier() (*WebPKIVerifier, error) {
	roots, err := x509.SystemCertPool()
	if err != nil {
		return nil, &VerificationError{
			Reason: ReasonAppVerificationFailure,
			Detail: "loading system roots: " + err.Error(),
		}
	}
	return &WebPKIVerifier{roots: roots}, nil
}

// VerifyServerCert verifies the DER-encoded leaf and intermediates
// against the verifier's roots for the given identity at the given
// time. Stapled OCSP responses, when supplied, are decoded and a
// revoked status rejects the chain; an empty list is not evidence
// either way and chain validation proceeds without it.
func (v *WebPKIVerifier) VerifyServerCert(leaf []byte, intermediates [][]byte, identity ServerIdentity, ocspResponses [][]byte, now time.Time) error {
	leafCert, err := x509.ParseCertificate(leaf)
	if err != nil {
		return &VerificationError{Reason: ReasonBadEncoding, Detail: "leaf"}
	}

	pool := x509.NewCertPool()
	for _, der := range intermediates {
		cert, parseErr := x509.ParseCertificate(der)
		if parseErr != nil {
			return &VerificationError{Reason: ReasonBadEncoding, Detail: "intermediate"}
		}
		pool.AddCert(cert)
	}

	if err := checkStapledOCSP(leafCert, ocspResponses); err != nil {
		return err
	}

	opts := x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: pool,
		DNSName:       identity.String(),
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if _, err := leafCert.Verify(opts); err != nil {
		return &VerificationError{
			Reason: reasonForX509Error(err, leafCert, now),
			Detail: identity.String(),
		}
	}
	return nil
}

// checkStapledOCSP decodes stapled OCSP responses for the leaf. A
// revoked status fails the chain; an undecodable response means the
// revocation status cannot be determined and the chain is rejected
// rather than assumed good.
func checkStapledOCSP(leaf *x509.Certificate, responses [][]byte) error {
	for _, raw := range responses {
		resp, err := ocsp.ParseResponseForCert(raw, leaf, nil)
		if err != nil {
			return &VerificationError{Reason: ReasonUnknownRevocationStatus, Detail: "undecodable stapled response"}
		}
		switch resp.Status {
		case ocsp.Revoked:
			return &VerificationError{Reason: ReasonRevoked}
		case ocsp.Unknown:
			return &VerificationError{Reason: ReasonUnknownRevocationStatus}
		}
	}
	return nil
}

// reasonForX509Error maps a crypto/x509 verification error onto the
// closed Reason set.
func reasonForX509Error(err error, leaf *x509.Certificate, now time.Time) Reason {
	var invalidErr x509.CertificateInvalidError
	var hostnameErr x509.HostnameError
	var authorityErr x509.UnknownAuthorityError
	var criticalErr x509.UnhandledCriticalExtension
	var systemErr x509.SystemRootsError

	switch {
	case errors.As(err, &criticalErr):
		return ReasonUnhandledCriticalExtension
	case errors.As(err, &authorityErr):
		return ReasonUnknownIssuer
	case errors.As(err, &hostnameErr):
		return ReasonNotValidForName
	case errors.As(err, &systemErr):
		return ReasonAppVerificationFailure
	case errors.As(err, &invalidErr):
		switch invalidErr.Reason {
		case x509.Expired:
			if now.Before(leaf.NotBefore) {
				return ReasonNotYetValid
			}
			return ReasonExpired
		case x509.IncompatibleUsage:
			return ReasonInvalidPurpose
		case x509.CANotAuthorizedForThisName:
			return ReasonNotValidForName
		case x509.NotAuthorizedToSign:
			return ReasonInvalidPurpose
		default:
			return ReasonOther
		}
	default:
		return ReasonOther
	}
}
