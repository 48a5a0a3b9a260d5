// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package verify

import "fmt"

// Alert is the handshake-level diagnostic reported when a peer
// certificate is rejected. The vocabulary follows the TLS alert
// descriptions from RFC 5246:
//
//   - bad_certificate: a certificate was corrupt, contained signatures
//     that did not verify correctly, etc.
//   - certificate_expired: a certificate has expired or is not
//     currently valid.
//   - certificate_unknown: some other (unspecified) issue arose in
//     processing the certificate, rendering it unacceptable.
//   - certificate_revoked: a certificate was revoked by its signer.
//   - unknown_ca: a valid chain or partial chain was received, but the
//     CA certificate could not be located or matched with a known,
//     trusted CA.
//   - internal_error: an internal error unrelated to the peer makes it
//     impossible to continue.
type Alert int

const (
	// AlertNoCertificate indicates the peer presented no certificate at all.
	AlertNoCertificate Alert = iota

	// AlertBadCertificate indicates a corrupt certificate or bad signature.
	AlertBadCertificate

	// AlertCertificateExpired indicates the certificate is outside its
	// validity period.
	AlertCertificateExpired

	// AlertCertificateUnknown indicates an unspecified certificate problem.
	AlertCertificateUnknown

	// AlertCertificateRevoked indicates the certificate was revoked.
	AlertCertificateRevoked

	// AlertUnknownCA indicates the issuing CA is not trusted.
	AlertUnknownCA

	// AlertInternalError indicates a failure in the verifier itself.
	AlertInternalError
)

// alertNames provides the wire-style name for each alert.
var alertNames = map[Alert]string{
	AlertNoCertificate:      "no_certificate",
	AlertBadCertificate:     "bad_certificate",
	AlertCertificateExpired: "certificate_expired",
	AlertCertificateUnknown: "certificate_unknown",
	AlertCertificateRevoked: "certificate_revoked",
	AlertUnknownCA:          "unknown_ca",
	AlertInternalError:      "internal_error",
}

// String returns the wire-style alert name.
func (a Alert) String() string {
	if name, ok := alertNames[a]; ok {
		return name
	}
	return "certificate_unknown"
}

// reasonAlerts is the exhaustive mapping from verification failure
// reason to handshake alert. The mapping affects diagnostics only; the
// certificate is rejected regardless of which alert is chosen.
var reasonAlerts = map[Reason]Alert{
	ReasonBadEncoding:                AlertBadCertificate,
	ReasonExpired:                    AlertCertificateExpired,
	ReasonNotYetValid:                AlertCertificateUnknown,
	ReasonRevoked:                    AlertCertificateRevoked,
	ReasonUnhandledCriticalExtension: AlertCertificateUnknown,
	ReasonUnknownIssuer:              AlertUnknownCA,
	ReasonUnknownRevocationStatus:    AlertCertificateUnknown,
	ReasonBadSignature:               AlertBadCertificate,
	ReasonNotValidForName:            AlertCertificateUnknown,
	ReasonInvalidPurpose:             AlertCertificateUnknown,
	ReasonAppVerificationFailure:     AlertInternalError,
	ReasonOther:                      AlertCertificateUnknown,
}

// AlertForReason maps a verification failure reason to its handshake
// alert. Reasons outside the known set map to AlertCertificateUnknown
// so the mapping stays total as the reason vocabulary grows.
func AlertForReason(r Reason) Alert {
	if alert, ok := reasonAlerts[r]; ok {
		return alert
	}
	return AlertCertificateUnknown
}

// AlertError aborts a TLS handshake from inside the peer-verification
// callback. Returning it (or any error) from the callback rejects the
// certificate; Alert and Reason exist for diagnostics.
type AlertError struct {
	// Alert is the handshake-level diagnostic.
	Alert Alert

	// Reason is the verification failure that produced the alert.
	Reason Reason
}

// Error returns the alert and reason names.
func (e *AlertError) Error() string {
	return fmt.Sprintf("verify: handshake rejected: alert %s (%s)", e.Alert, e.Reason)
}
