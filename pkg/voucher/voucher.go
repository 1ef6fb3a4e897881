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

// Package voucher implements the RFC 8366 voucher claim-set: the typed
// payload of a BRSKI trust-transfer artifact, its construction-time
// invariants, and its canonical JSON encoding.
//
// A Voucher is an immutable value type. Construction goes through a Builder
// that validates all field-level and cross-field invariants in one finalize
// step; decoding a wire document goes through the same validation. Binary
// fields are stored as raw byte sequences with no implicit trust — trust is
// established only by the verification pipeline in pkg/verify.
package voucher

import (
	"bytes"
	"time"
)

// Assertion records how the issuer established trust in the registrar
// before issuing the voucher (RFC 8366, section 5.3).
type Assertion int

const (
	// AssertionUnset is the zero value; a built Voucher never carries it.
	AssertionUnset Assertion = iota

	// AssertionVerified indicates the issuer cryptographically verified
	// the registrar's ownership claim.
	AssertionVerified

	// AssertionLogged indicates issuance was merely logged for audit.
	AssertionLogged

	// AssertionProximity indicates the pledge observed the registrar on a
	// directly connected link during bootstrap.
	AssertionProximity
)

// String returns the RFC 8366 identity name of the assertion.
func (a Assertion) String() string {
	switch a {
	case AssertionVerified:
		return "verified"
	case AssertionLogged:
		return "logged"
	case AssertionProximity:
		return "proximity"
	default:
		return "unset"
	}
}

// ParseAssertion parses an RFC 8366 assertion name. The boolean reports
// whether the name was recognized.
func ParseAssertion(s string) (Assertion, bool) {
	switch s {
	case "verified":
		return AssertionVerified, true
	case "logged":
		return AssertionLogged, true
	case "proximity":
		return AssertionProximity, true
	default:
		return AssertionUnset, false
	}
}

// Voucher is an immutable RFC 8366 claim-set. Fields are set once through a
// Builder and never mutated; accessors return defensive copies of binary
// fields so no caller can alias the voucher's internal state.
type Voucher struct {
	assertion                  Assertion
	createdOn                  time.Time
	expiresOn                  time.Time
	serialNumber               string
	idevidIssuer               []byte
	pinnedDomainCert           []byte
	pinnedDomainSPKI           []byte
	domainCertRevocationChecks *bool
	nonce                      []byte
	lastRenewalDate            time.Time
	priorSignedVoucherRequest  []byte
	proximityRegistrarCert     []byte
}

// Assertion returns the trust-establishment method.
func (v *Voucher) Assertion() Assertion {
	return v.assertion
}

// CreatedOn returns the issuance timestamp. The boolean reports presence.
func (v *Voucher) CreatedOn() (time.Time, bool) {
	return v.createdOn, !v.createdOn.IsZero()
}

// ExpiresOn returns the absolute expiry instant. The boolean reports
// presence; nonced one-time-use vouchers commonly omit it.
func (v *Voucher) ExpiresOn() (time.Time, bool) {
	return v.expiresOn, !v.expiresOn.IsZero()
}

// SerialNumber returns the pledge device identifier.
func (v *Voucher) SerialNumber() string {
	return v.serialNumber
}

// IdevidIssuer returns the issuer identifier of the pledge's
// manufacturer-installed credential, or nil if absent.
func (v *Voucher) IdevidIssuer() []byte {
	return cloneBytes(v.idevidIssuer)
}

// PinnedDomainCert returns the DER certificate the pledge must trust as its
// new domain identity, or nil if the voucher pins raw key material instead.
func (v *Voucher) PinnedDomainCert() []byte {
	return cloneBytes(v.pinnedDomainCert)
}

// PinnedDomainSubjectPublicKeyInfo returns the pinned raw key material, or
// nil if the voucher pins a certificate instead.
func (v *Voucher) PinnedDomainSubjectPublicKeyInfo() []byte {
	return cloneBytes(v.pinnedDomainSPKI)
}

// DomainCertRevocationChecks returns the revocation-check policy flag.
// The second boolean reports presence.
func (v *Voucher) DomainCertRevocationChecks() (value, present bool) {
	if v.domainCertRevocationChecks == nil {
		return false, false
	}
	return *v.domainCertRevocationChecks, true
}

// Nonce returns the replay-defense nonce, or nil if absent.
func (v *Voucher) Nonce() []byte {
	return cloneBytes(v.nonce)
}

// LastRenewalDate returns the renewal timestamp for reusable vouchers.
// The boolean reports presence.
func (v *Voucher) LastRenewalDate() (time.Time, bool) {
	return v.lastRenewalDate, !v.lastRenewalDate.IsZero()
}

// PriorSignedVoucherRequest returns the earlier signed request embedded for
// voucher-request chaining, or nil if absent.
func (v *Voucher) PriorSignedVoucherRequest() []byte {
	return cloneBytes(v.priorSignedVoucherRequest)
}

// ProximityRegistrarCert returns the registrar certificate the pledge
// observed during a proximity assertion, or nil if absent.
func (v *Voucher) ProximityRegistrarCert() []byte {
	return cloneBytes(v.proximityRegistrarCert)
}

// Equal reports whether two vouchers carry identical claims.
func (v *Voucher) Equal(o *Voucher) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.assertion != o.assertion ||
		!v.createdOn.Equal(o.createdOn) ||
		!v.expiresOn.Equal(o.expiresOn) ||
		v.serialNumber != o.serialNumber ||
		!v.lastRenewalDate.Equal(o.lastRenewalDate) {
		return false
	}
	if (v.domainCertRevocationChecks == nil) != (o.domainCertRevocationChecks == nil) {
		return false
	}
	if v.domainCertRevocationChecks != nil && *v.domainCertRevocationChecks != *o.domainCertRevocationChecks {
		return false
	}
	return bytes.Equal(v.idevidIssuer, o.idevidIssuer) &&
		bytes.Equal(v.pinnedDomainCert, o.pinnedDomainCert) &&
		bytes.Equal(v.pinnedDomainSPKI, o.pinnedDomainSPKI) &&
		bytes.Equal(v.nonce, o.nonce) &&
		bytes.Equal(v.priorSignedVoucherRequest, o.priorSignedVoucherRequest) &&
		bytes.Equal(v.proximityRegistrarCert, o.proximityRegistrarCert)
}

// cloneBytes returns a copy of b, preserving nil.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
