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

// Package providers defines the crypto provider abstraction used by the
// voucher signing and verification code. A Provider bundles the four
// capabilities the voucher core needs (sign, verify, certificate parsing,
// chain building) behind one interface so that backends can be swapped at
// configuration time without touching voucher logic.
//
// Two conforming backends ship with this module: the toolkit backend
// (built on the sigstore signature library and the full X.509 machinery)
// and the primitive backend (raw signature primitives paired with a
// standalone certificate parser, without chain-building support).
package providers

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnsupported is returned by a Provider for any capability or algorithm
// it does not implement. Callers must not treat it as a verification
// failure; it indicates a configuration gap, not an untrusted artifact.
var ErrUnsupported = errors.New("capability not supported by provider")

// ErrKeyMismatch is returned when the supplied key material is incompatible
// with the requested algorithm (wrong key type or wrong curve).
var ErrKeyMismatch = errors.New("key does not match requested algorithm")

// Algorithm identifies a signature algorithm supported by the voucher core.
type Algorithm int

const (
	// AlgorithmUnknown is the zero value and never valid for signing.
	AlgorithmUnknown Algorithm = iota

	// AlgorithmES256 is ECDSA over P-256 with SHA-256 (the BRSKI default).
	AlgorithmES256

	// AlgorithmES384 is ECDSA over P-384 with SHA-384.
	AlgorithmES384

	// AlgorithmES512 is ECDSA over P-521 with SHA-512.
	AlgorithmES512

	// AlgorithmEd25519 is pure Ed25519.
	AlgorithmEd25519

	// AlgorithmRS256 is RSA-PSS with SHA-256.
	AlgorithmRS256
)

// String returns the wire identifier of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmES256:
		return "ES256"
	case AlgorithmES384:
		return "ES384"
	case AlgorithmES512:
		return "ES512"
	case AlgorithmEd25519:
		return "Ed25519"
	case AlgorithmRS256:
		return "RS256"
	default:
		return "unknown"
	}
}

// Hash returns the digest algorithm paired with the signature algorithm.
// Ed25519 signs the message directly and returns crypto.Hash(0).
func (a Algorithm) Hash() crypto.Hash {
	switch a {
	case AlgorithmES256, AlgorithmRS256:
		return crypto.SHA256
	case AlgorithmES384:
		return crypto.SHA384
	case AlgorithmES512:
		return crypto.SHA512
	default:
		return crypto.Hash(0)
	}
}

// ParseAlgorithm parses a wire identifier into an Algorithm.
// Returns an error wrapping ErrUnsupported for unrecognized identifiers.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.TrimSpace(s) {
	case "ES256":
		return AlgorithmES256, nil
	case "ES384":
		return AlgorithmES384, nil
	case "ES512":
		return AlgorithmES512, nil
	case "Ed25519", "EdDSA":
		return AlgorithmEd25519, nil
	case "RS256":
		return AlgorithmRS256, nil
	default:
		return AlgorithmUnknown, fmt.Errorf("algorithm %q: %w", s, ErrUnsupported)
	}
}

// Provider is the capability set the voucher core consumes.
//
// All methods are pure computations over the supplied inputs: no provider
// reads the wall clock, performs I/O, or keeps mutable state between calls,
// so a single Provider value is safe for concurrent use.
type Provider interface {
	// Name identifies the backend (for logs and error messages).
	Name() string

	// Sign computes a signature over message using key and the given
	// algorithm. Fails with ErrUnsupported for algorithms the backend
	// cannot perform and ErrKeyMismatch for incompatible key material.
	Sign(key crypto.PrivateKey, alg Algorithm, message []byte) ([]byte, error)

	// Verify checks signature over message against pub. A structurally
	// sound but cryptographically invalid signature yields (false, nil);
	// errors are reserved for capability gaps and unusable key material.
	Verify(pub crypto.PublicKey, alg Algorithm, message, signature []byte) (bool, error)

	// ParseCertificate parses a DER (or PEM) encoded certificate.
	ParseCertificate(data []byte) (*x509.Certificate, error)

	// BuildChain validates that leaf chains to one of anchors through
	// intermediates, with every certificate's validity window checked
	// against the injected instant. Backends without chain support fail
	// with ErrUnsupported.
	BuildChain(leaf *x509.Certificate, intermediates, anchors []*x509.Certificate, at time.Time) error
}
