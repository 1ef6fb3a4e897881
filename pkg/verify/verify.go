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

// Package verify implements the voucher verification pipeline.
//
// Verification is a pure, idempotent function of (artifact bytes, trust
// anchors, expected nonce, expected serial, injected current time). The
// stages run in strict sequence — structural parse, signature, trust
// chain, claim decode, policy — and the first failing stage halts the
// pipeline with a stage-tagged error. No stage performs I/O, reads the
// wall clock, or mutates its inputs.
package verify

import (
	"crypto"
	"crypto/subtle"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/hm-edu/open-brski/pkg/envelope"
	"github.com/hm-edu/open-brski/pkg/logging"
	"github.com/hm-edu/open-brski/pkg/providers"
	"github.com/hm-edu/open-brski/pkg/providers/certutil"
	"github.com/hm-edu/open-brski/pkg/voucher"
)

// Options carries the caller-supplied context of a verification call. The
// trust-anchor slice is treated as read-only for the duration of the call;
// callers updating anchors concurrently must hand in a snapshot.
type Options struct {
	// Provider performs signature and certificate operations.
	Provider providers.Provider

	// TrustAnchors are the certificates the caller unconditionally
	// trusts as chain roots. Required when the artifact embeds a
	// certificate chain.
	TrustAnchors []*x509.Certificate

	// VerifyingKey verifies artifacts that carry no embedded
	// certificate. Ignored when the artifact embeds a chain.
	VerifyingKey crypto.PublicKey

	// ExpectedNonce is the nonce the pledge generated for this bootstrap
	// attempt. Checked whenever either side carries a nonce.
	ExpectedNonce []byte

	// ExpectedSerial is the pledge's own serial number. Checked when
	// non-empty.
	ExpectedSerial string

	// CurrentTime is the injected verification instant. Never defaulted
	// to the wall clock inside the pipeline; the CLI boundary supplies
	// time.Now() when the operator does not override it.
	CurrentTime time.Time

	// Logger receives stage-level debug output. Optional.
	Logger logging.Logger
}

// Verify runs the full pipeline over a wire artifact and returns the
// validated claim-set, or exactly one stage-tagged *PipelineError.
//
// If an embedded certificate is present, its public key is used for the
// signature check only provisionally — trust in the certificate is
// established by the chain stage, never assumed.
func Verify(artifact []byte, opts Options) (*voucher.Voucher, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("crypto provider is required")
	}
	logger := logging.EnsureLogger(opts.Logger)

	// Stage 1: structural parse.
	env, err := envelope.Parse(artifact)
	if err != nil {
		return nil, failf(FailureMalformed, err, "artifact is not a valid voucher envelope")
	}

	// Resolve the verifying key: embedded leaf certificate, else the
	// caller-supplied key.
	leaf, intermediates, err := parseEmbeddedChain(env, opts.Provider)
	if err != nil {
		return nil, failf(FailureMalformed, err, "embedded certificate chain is not parseable")
	}

	var pub crypto.PublicKey
	switch {
	case leaf != nil:
		logger.Debug("using embedded signer certificate, fingerprint %s", certutil.Fingerprint(leaf))
		pub = leaf.PublicKey
	case opts.VerifyingKey != nil:
		pub = opts.VerifyingKey
	default:
		return nil, failf(FailureSignatureInvalid, nil,
			"no verifying key available: artifact embeds no certificate and none was supplied")
	}

	// Stage 2: signature over the canonical payload bytes.
	ok, err := envelope.VerifySignature(env, opts.Provider, pub)
	if err != nil {
		if errors.Is(err, providers.ErrUnsupported) {
			return nil, fmt.Errorf("provider %q: %w", opts.Provider.Name(), err)
		}
		return nil, failf(FailureSignatureInvalid, err, "signature could not be checked")
	}
	if !ok {
		return nil, failf(FailureSignatureInvalid, nil, "signature does not verify against signer key")
	}

	// Stage 3: trust chain, only when a certificate is embedded.
	if leaf != nil {
		if len(opts.TrustAnchors) == 0 {
			return nil, failf(FailureUntrustedSigner, nil, "no trust anchors supplied")
		}
		if err := opts.Provider.BuildChain(leaf, intermediates, opts.TrustAnchors, opts.CurrentTime); err != nil {
			if errors.Is(err, providers.ErrUnsupported) {
				return nil, fmt.Errorf("provider %q: %w", opts.Provider.Name(), err)
			}
			return nil, failf(FailureUntrustedSigner, err, "signer does not chain to a trust anchor")
		}
		logger.Debug("signer chains to a supplied trust anchor")
	}

	// Stage 4: claim decode from the verified payload.
	v, err := voucher.Decode(env.Payload())
	if err != nil {
		return nil, failf(FailureMalformedClaims, err, "verified payload does not decode into a claim-set")
	}

	// Stage 5: policy checks, in fixed order, first violation wins.
	if err := checkPolicy(v, opts); err != nil {
		return nil, err
	}

	logger.Debug("voucher for serial %q accepted", v.SerialNumber())
	return v, nil
}

// parseEmbeddedChain parses the envelope's embedded DER chain, leaf first.
// Returns nils when no chain is embedded.
func parseEmbeddedChain(env *envelope.Envelope, p providers.Provider) (*x509.Certificate, []*x509.Certificate, error) {
	chain := env.CertificateChain()
	if len(chain) == 0 {
		return nil, nil, nil
	}

	leaf, err := p.ParseCertificate(chain[0])
	if err != nil {
		return nil, nil, fmt.Errorf("leaf certificate: %w", err)
	}

	var intermediates []*x509.Certificate
	for i, der := range chain[1:] {
		cert, err := p.ParseCertificate(der)
		if err != nil {
			return nil, nil, fmt.Errorf("intermediate certificate %d: %w", i+1, err)
		}
		intermediates = append(intermediates, cert)
	}

	return leaf, intermediates, nil
}

// checkPolicy runs the protocol policy checks against the decoded
// claim-set: validity window, nonce binding, serial binding. Checks
// short-circuit in that order so rejections are reproducible. Nonce and
// serial comparisons are constant-time.
func checkPolicy(v *voucher.Voucher, opts Options) *PipelineError {
	if expires, ok := v.ExpiresOn(); ok {
		if created, ok := v.CreatedOn(); ok && opts.CurrentTime.Before(created) {
			return failf(FailureExpired, nil,
				"voucher not valid before %s", created.Format(time.RFC3339))
		}
		if opts.CurrentTime.After(expires) {
			return failf(FailureExpired, nil,
				"voucher expired at %s", expires.Format(time.RFC3339))
		}
	}

	nonce := v.Nonce()
	if len(nonce) > 0 || len(opts.ExpectedNonce) > 0 {
		if !constantTimeEqual(nonce, opts.ExpectedNonce) {
			return failf(FailureNonceMismatch, nil, "voucher nonce does not match expected nonce")
		}
	}

	if opts.ExpectedSerial != "" {
		if !constantTimeEqual([]byte(v.SerialNumber()), []byte(opts.ExpectedSerial)) {
			return failf(FailureSerialMismatch, nil,
				"voucher serial-number does not match expected serial")
		}
	}

	return nil
}

// constantTimeEqual compares two byte slices without leaking where they
// differ. Length inequality short-circuits, which is acceptable: lengths
// are not secret here, contents are.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
