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

// Package envelope implements the signed voucher artifact: a DSSE envelope
// (go-securesystemslib) carrying the canonical voucher JSON as payload,
// plus verification material naming the signature algorithm and optionally
// embedding the signer's certificate chain for self-contained verification.
//
// Parsing is structural only and never verifies the signature; callers can
// inspect the embedded material (for example to decide trust-anchor
// sourcing) before explicitly invoking signature verification.
package envelope

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"

	dsselib "github.com/secure-systems-lab/go-securesystemslib/dsse"

	"github.com/hm-edu/open-brski/pkg/providers"
)

// PayloadType is the DSSE payload type of a signed voucher artifact.
const PayloadType = "application/voucher+dsse"

// ParseError reports a structurally unusable artifact. It is never used for
// signature mismatch, which is an expected verification outcome.
type ParseError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("envelope parse: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("envelope parse: %s", e.Message)
}

// Unwrap returns the underlying cause for error chain unwrapping.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// verificationMaterial is the wire member carrying signer metadata.
type verificationMaterial struct {
	// Algorithm is the wire identifier of the signature algorithm.
	Algorithm string `json:"algorithm"`

	// CertificateChain holds base64 DER certificates, leaf first.
	CertificateChain []string `json:"x509CertificateChain,omitempty"`
}

// wireEnvelope is the artifact's JSON shape: a DSSE envelope with the
// verification material alongside.
type wireEnvelope struct {
	dsselib.Envelope
	VerificationMaterial *verificationMaterial `json:"verificationMaterial,omitempty"`
}

// Envelope is an immutable signed voucher artifact. It exclusively owns its
// payload, signature, and certificate bytes; accessors return copies.
type Envelope struct {
	payload   []byte
	signature []byte
	algorithm providers.Algorithm
	certChain [][]byte
}

// New assembles an envelope from its parts. The payload must be the
// canonical voucher encoding; chain, when present, holds DER certificates
// leaf first. All inputs are copied.
func New(payload, signature []byte, alg providers.Algorithm, chain [][]byte) (*Envelope, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("payload is required")
	}
	if len(signature) == 0 {
		return nil, fmt.Errorf("signature is required")
	}
	if alg == providers.AlgorithmUnknown {
		return nil, fmt.Errorf("signature algorithm is required")
	}

	e := &Envelope{
		payload:   append([]byte(nil), payload...),
		signature: append([]byte(nil), signature...),
		algorithm: alg,
	}
	for _, cert := range chain {
		e.certChain = append(e.certChain, append([]byte(nil), cert...))
	}
	return e, nil
}

// Parse performs a structural-only parse of a wire artifact: it separates
// the payload, signature, and verification material and checks that each
// segment is decodable. It does NOT verify the signature.
func Parse(raw []byte) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &ParseError{Message: "not a JSON envelope", Cause: err}
	}

	if w.PayloadType != PayloadType {
		return nil, &ParseError{Message: fmt.Sprintf("payload type %q, expected %q", w.PayloadType, PayloadType)}
	}
	if len(w.Signatures) != 1 {
		return nil, &ParseError{Message: fmt.Sprintf("expected exactly one signature, got %d", len(w.Signatures))}
	}
	if w.Payload == "" {
		return nil, &ParseError{Message: "payload is empty"}
	}

	payload, err := base64.StdEncoding.DecodeString(w.Payload)
	if err != nil {
		return nil, &ParseError{Message: "payload is not valid base64", Cause: err}
	}

	sig, err := base64.StdEncoding.DecodeString(w.Signatures[0].Sig)
	if err != nil {
		return nil, &ParseError{Message: "signature is not valid base64", Cause: err}
	}
	if len(sig) == 0 {
		return nil, &ParseError{Message: "signature is empty"}
	}

	if w.VerificationMaterial == nil {
		return nil, &ParseError{Message: "verification material is missing"}
	}
	alg, err := providers.ParseAlgorithm(w.VerificationMaterial.Algorithm)
	if err != nil {
		return nil, &ParseError{Message: "unknown signature algorithm", Cause: err}
	}

	var chain [][]byte
	for i, entry := range w.VerificationMaterial.CertificateChain {
		der, err := base64.StdEncoding.DecodeString(entry)
		if err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("certificate %d is not valid base64", i), Cause: err}
		}
		chain = append(chain, der)
	}

	return &Envelope{
		payload:   payload,
		signature: sig,
		algorithm: alg,
		certChain: chain,
	}, nil
}

// Marshal serializes the envelope to its wire form.
func (e *Envelope) Marshal() ([]byte, error) {
	w := wireEnvelope{
		Envelope: dsselib.Envelope{
			PayloadType: PayloadType,
			Payload:     base64.StdEncoding.EncodeToString(e.payload),
			Signatures: []dsselib.Signature{
				{Sig: base64.StdEncoding.EncodeToString(e.signature)},
			},
		},
		VerificationMaterial: &verificationMaterial{
			Algorithm: e.algorithm.String(),
		},
	}
	for _, der := range e.certChain {
		w.VerificationMaterial.CertificateChain = append(
			w.VerificationMaterial.CertificateChain, base64.StdEncoding.EncodeToString(der))
	}

	out, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return out, nil
}

// Payload returns a copy of the canonical claim bytes the signature covers.
func (e *Envelope) Payload() []byte {
	return append([]byte(nil), e.payload...)
}

// Signature returns a copy of the raw signature bytes.
func (e *Envelope) Signature() []byte {
	return append([]byte(nil), e.signature...)
}

// Algorithm returns the signature algorithm identifier.
func (e *Envelope) Algorithm() providers.Algorithm {
	return e.algorithm
}

// CertificateChain returns a copy of the embedded DER chain, leaf first.
// Nil when the artifact carries no signer certificate.
func (e *Envelope) CertificateChain() [][]byte {
	if e.certChain == nil {
		return nil
	}
	out := make([][]byte, 0, len(e.certChain))
	for _, der := range e.certChain {
		out = append(out, append([]byte(nil), der...))
	}
	return out
}

// PAE returns the DSSE pre-authentication encoding the signature is
// computed over.
func (e *Envelope) PAE() []byte {
	return dsselib.PAE(PayloadType, e.payload)
}

// VerifySignature checks the envelope's signature against a candidate
// public key via the given provider. A structurally valid but
// cryptographically invalid signature returns (false, nil) — mismatch is an
// expected outcome, not a fault. When an embedded certificate supplied the
// key, trust in that certificate must be established separately.
func VerifySignature(e *Envelope, p providers.Provider, pub crypto.PublicKey) (bool, error) {
	if e == nil {
		return false, fmt.Errorf("envelope is nil")
	}
	if p == nil {
		return false, fmt.Errorf("crypto provider is required")
	}
	return p.Verify(pub, e.algorithm, e.PAE(), e.signature)
}
