// Copyright 2025 The open-brski Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package voucher

import (
	"fmt"
	"time"
)

// ConstraintError reports a claim-set invariant broken at Build time,
// identifying the offending field. The cross-field invariants can only be
// checked once all fields are set, so setters never fail; Build does.
type ConstraintError struct {
	// Field is the RFC 8366 leaf name of the offending field.
	Field string

	// Reason describes the violated invariant.
	Reason string
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violation on %q: %s", e.Field, e.Reason)
}

// Builder accumulates claim values and validates all invariants in one
// finalize step. Setters copy binary inputs, so the caller's buffers are
// never aliased by the built Voucher. A Builder is single-use; Build does
// not reset it.
type Builder struct {
	v      Voucher
	strict bool
}

// NewBuilder creates an empty voucher builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Strict enables the strict presence profile: a voucher must carry exactly
// one of nonce and expires-on (a nonced voucher is one-time-use and need
// not expire; an expiry-bearing voucher is reusable and must expire).
func (b *Builder) Strict() *Builder {
	b.strict = true
	return b
}

// Assertion sets the trust-establishment method.
func (b *Builder) Assertion(a Assertion) *Builder {
	b.v.assertion = a
	return b
}

// CreatedOn sets the issuance timestamp.
func (b *Builder) CreatedOn(t time.Time) *Builder {
	b.v.createdOn = canonicalTime(t)
	return b
}

// ExpiresOn sets the absolute expiry instant.
func (b *Builder) ExpiresOn(t time.Time) *Builder {
	b.v.expiresOn = canonicalTime(t)
	return b
}

// SerialNumber sets the pledge device identifier.
func (b *Builder) SerialNumber(s string) *Builder {
	b.v.serialNumber = s
	return b
}

// IdevidIssuer sets the IDevID issuer identifier.
func (b *Builder) IdevidIssuer(data []byte) *Builder {
	b.v.idevidIssuer = cloneBytes(data)
	return b
}

// PinnedDomainCert sets the DER-encoded pinned domain certificate.
func (b *Builder) PinnedDomainCert(der []byte) *Builder {
	b.v.pinnedDomainCert = cloneBytes(der)
	return b
}

// PinnedDomainSubjectPublicKeyInfo sets the pinned raw key material, the
// alternative to pinning a full certificate.
func (b *Builder) PinnedDomainSubjectPublicKeyInfo(spki []byte) *Builder {
	b.v.pinnedDomainSPKI = cloneBytes(spki)
	return b
}

// DomainCertRevocationChecks sets the revocation-check policy flag.
func (b *Builder) DomainCertRevocationChecks(enabled bool) *Builder {
	b.v.domainCertRevocationChecks = &enabled
	return b
}

// Nonce sets the replay-defense nonce.
func (b *Builder) Nonce(nonce []byte) *Builder {
	b.v.nonce = cloneBytes(nonce)
	return b
}

// LastRenewalDate sets the renewal timestamp for reusable vouchers.
func (b *Builder) LastRenewalDate(t time.Time) *Builder {
	b.v.lastRenewalDate = canonicalTime(t)
	return b
}

// PriorSignedVoucherRequest embeds an earlier signed request for
// voucher-request chaining.
func (b *Builder) PriorSignedVoucherRequest(data []byte) *Builder {
	b.v.priorSignedVoucherRequest = cloneBytes(data)
	return b
}

// ProximityRegistrarCert sets the registrar certificate observed by the
// pledge during a proximity assertion.
func (b *Builder) ProximityRegistrarCert(der []byte) *Builder {
	b.v.proximityRegistrarCert = cloneBytes(der)
	return b
}

// Build validates all invariants and returns the immutable Voucher, or a
// *ConstraintError naming the first offending field. No side effects beyond
// validation.
func (b *Builder) Build() (*Voucher, error) {
	v := b.v

	if v.assertion == AssertionUnset {
		return nil, &ConstraintError{Field: "assertion", Reason: "must be one of verified, logged, proximity"}
	}
	if v.serialNumber == "" {
		return nil, &ConstraintError{Field: "serial-number", Reason: "must be non-empty"}
	}

	hasCert := len(v.pinnedDomainCert) > 0
	hasSPKI := len(v.pinnedDomainSPKI) > 0
	if !hasCert && !hasSPKI {
		return nil, &ConstraintError{
			Field:  "pinned-domain-cert",
			Reason: "either pinned-domain-cert or pinned-domain-subject-public-key-info must be present",
		}
	}
	if hasCert && hasSPKI {
		return nil, &ConstraintError{
			Field:  "pinned-domain-subject-public-key-info",
			Reason: "mutually exclusive with pinned-domain-cert",
		}
	}

	hasNonce := len(v.nonce) > 0
	hasExpiry := !v.expiresOn.IsZero()
	if !hasNonce && !hasExpiry {
		return nil, &ConstraintError{
			Field:  "expires-on",
			Reason: "either nonce or expires-on must be present",
		}
	}
	if b.strict && hasNonce && hasExpiry {
		return nil, &ConstraintError{
			Field:  "nonce",
			Reason: "mutually exclusive with expires-on in strict profile",
		}
	}

	if hasExpiry && !v.createdOn.IsZero() && !v.expiresOn.After(v.createdOn) {
		return nil, &ConstraintError{Field: "expires-on", Reason: "must be after created-on"}
	}

	if len(v.priorSignedVoucherRequest) > 0 &&
		v.assertion == AssertionProximity && len(v.proximityRegistrarCert) == 0 {
		return nil, &ConstraintError{
			Field:  "proximity-registrar-cert",
			Reason: "required for proximity voucher-request chaining",
		}
	}

	// The builder's value is copied out, so the returned Voucher is
	// detached from any further use of the Builder.
	return &v, nil
}

// canonicalTime normalizes a timestamp to the canonical encoding precision:
// UTC, whole seconds. Zero times stay zero (absent).
func canonicalTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Second)
}
