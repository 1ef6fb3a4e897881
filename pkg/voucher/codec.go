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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// WrapperKey is the fixed top-level member wrapping the claim object in the
// RFC 8366 JSON representation.
const WrapperKey = "ietf-voucher:voucher"

// timeLayout is the canonical timestamp profile: RFC 3339, UTC, whole
// seconds (yang:date-and-time as emitted by this codec).
const timeLayout = "2006-01-02T15:04:05Z"

// DecodeError reports a structurally unusable wire document (not valid
// JSON, wrong wrapper, unknown members, or broken cross-field invariants).
type DecodeError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("voucher decode: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("voucher decode: %s", e.Message)
}

// Unwrap returns the underlying cause for error chain unwrapping.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// MalformedFieldError reports the first offending claim field found during
// a source-order scan of the wire document.
type MalformedFieldError struct {
	// Name is the RFC 8366 leaf name of the field.
	Name string

	// Reason describes why the value was rejected.
	Reason string
}

// Error implements the error interface.
func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed field %q: %s", e.Name, e.Reason)
}

// wireVoucher is the external JSON shape of the claim set. The struct's
// field order fixes both the canonical encoding order and the scan order
// used for decode error attribution, so it must not be reordered.
type wireVoucher struct {
	Assertion                  string `json:"assertion"`
	CreatedOn                  string `json:"created-on,omitempty"`
	ExpiresOn                  string `json:"expires-on,omitempty"`
	SerialNumber               string `json:"serial-number"`
	IdevidIssuer               string `json:"idevid-issuer,omitempty"`
	PinnedDomainCert           string `json:"pinned-domain-cert,omitempty"`
	PinnedDomainSPKI           string `json:"pinned-domain-subject-public-key-info,omitempty"`
	DomainCertRevocationChecks *bool  `json:"domain-cert-revocation-checks,omitempty"`
	Nonce                      string `json:"nonce,omitempty"`
	LastRenewalDate            string `json:"last-renewal-date,omitempty"`
	PriorSignedVoucherRequest  string `json:"prior-signed-voucher-request,omitempty"`
	ProximityRegistrarCert     string `json:"proximity-registrar-cert,omitempty"`
}

// wireDocument is the top-level wrapper object.
type wireDocument struct {
	Voucher wireVoucher `json:"ietf-voucher:voucher"`
}

// Encode produces the canonical byte form of a voucher: fixed field order,
// std base64 for binary fields, RFC 3339 UTC second-precision timestamps.
// Signatures are computed over exactly these bytes, so the encoding is
// deterministic by construction (struct-ordered JSON, single base64
// variant, no whitespace variance).
func Encode(v *Voucher) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("voucher is nil")
	}

	w := wireVoucher{
		Assertion:                  v.assertion.String(),
		SerialNumber:               v.serialNumber,
		IdevidIssuer:               encodeBinary(v.idevidIssuer),
		PinnedDomainCert:           encodeBinary(v.pinnedDomainCert),
		PinnedDomainSPKI:           encodeBinary(v.pinnedDomainSPKI),
		DomainCertRevocationChecks: v.domainCertRevocationChecks,
		Nonce:                      encodeBinary(v.nonce),
		PriorSignedVoucherRequest:  encodeBinary(v.priorSignedVoucherRequest),
		ProximityRegistrarCert:     encodeBinary(v.proximityRegistrarCert),
	}
	if !v.createdOn.IsZero() {
		w.CreatedOn = v.createdOn.UTC().Format(timeLayout)
	}
	if !v.expiresOn.IsZero() {
		w.ExpiresOn = v.expiresOn.UTC().Format(timeLayout)
	}
	if !v.lastRenewalDate.IsZero() {
		w.LastRenewalDate = v.lastRenewalDate.UTC().Format(timeLayout)
	}

	out, err := json.Marshal(wireDocument{Voucher: w})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal voucher: %w", err)
	}
	return out, nil
}

// Decode parses a canonical wire document back into a Voucher.
//
// The claim fields are validated in a stable, source-order scan; the first
// offending field is reported as a *MalformedFieldError. Structural
// problems (bad JSON, missing wrapper, broken cross-field invariants)
// yield a *DecodeError. For every valid voucher v,
// Decode(Encode(v)) equals v.
func Decode(data []byte) (*Voucher, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &DecodeError{Message: "not a JSON object", Cause: err}
	}

	raw, ok := top[WrapperKey]
	if !ok {
		return nil, &DecodeError{Message: fmt.Sprintf("missing %q wrapper", WrapperKey)}
	}

	var w wireVoucher
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &DecodeError{Message: "claim object is not decodable", Cause: err}
	}

	b := NewBuilder()

	// Source-order scan: checks run in wire field order so the first
	// offending field is deterministic across runs and implementations.
	assertion, ok := ParseAssertion(w.Assertion)
	if !ok {
		if w.Assertion == "" {
			return nil, &MalformedFieldError{Name: "assertion", Reason: "mandatory field absent"}
		}
		return nil, &MalformedFieldError{Name: "assertion", Reason: fmt.Sprintf("unknown value %q", w.Assertion)}
	}
	b.Assertion(assertion)

	if t, err := decodeTime("created-on", w.CreatedOn); err != nil {
		return nil, err
	} else if !t.IsZero() {
		b.CreatedOn(t)
	}
	if t, err := decodeTime("expires-on", w.ExpiresOn); err != nil {
		return nil, err
	} else if !t.IsZero() {
		b.ExpiresOn(t)
	}

	if w.SerialNumber == "" {
		return nil, &MalformedFieldError{Name: "serial-number", Reason: "mandatory field absent"}
	}
	b.SerialNumber(w.SerialNumber)

	if v, err := decodeBinary("idevid-issuer", w.IdevidIssuer); err != nil {
		return nil, err
	} else if v != nil {
		b.IdevidIssuer(v)
	}
	if v, err := decodeBinary("pinned-domain-cert", w.PinnedDomainCert); err != nil {
		return nil, err
	} else if v != nil {
		b.PinnedDomainCert(v)
	}
	if v, err := decodeBinary("pinned-domain-subject-public-key-info", w.PinnedDomainSPKI); err != nil {
		return nil, err
	} else if v != nil {
		b.PinnedDomainSubjectPublicKeyInfo(v)
	}

	if w.DomainCertRevocationChecks != nil {
		b.DomainCertRevocationChecks(*w.DomainCertRevocationChecks)
	}

	if v, err := decodeBinary("nonce", w.Nonce); err != nil {
		return nil, err
	} else if v != nil {
		b.Nonce(v)
	}

	if t, err := decodeTime("last-renewal-date", w.LastRenewalDate); err != nil {
		return nil, err
	} else if !t.IsZero() {
		b.LastRenewalDate(t)
	}

	if v, err := decodeBinary("prior-signed-voucher-request", w.PriorSignedVoucherRequest); err != nil {
		return nil, err
	} else if v != nil {
		b.PriorSignedVoucherRequest(v)
	}
	if v, err := decodeBinary("proximity-registrar-cert", w.ProximityRegistrarCert); err != nil {
		return nil, err
	} else if v != nil {
		b.ProximityRegistrarCert(v)
	}

	built, err := b.Build()
	if err != nil {
		return nil, &DecodeError{Message: "claim invariants violated", Cause: err}
	}
	return built, nil
}

// encodeBinary encodes a binary field as std base64, empty for absent.
func encodeBinary(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// decodeBinary decodes a std-base64 field value, nil for absent.
func decodeBinary(name, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	out, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, &MalformedFieldError{Name: name, Reason: "invalid base64"}
	}
	return out, nil
}

// decodeTime parses a timestamp field. The accepted profile is RFC 3339;
// offsets are normalized to UTC at build time.
func decodeTime(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &MalformedFieldError{Name: name, Reason: "timestamp does not match RFC 3339 profile"}
	}
	return t, nil
}
