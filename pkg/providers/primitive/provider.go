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

// Package primitive implements the minimal-footprint crypto provider.
//
// Signatures are produced and checked with the raw ECDSA, Ed25519, and
// RSA-PSS primitives; certificate parsing is delegated to the standalone
// certutil package because the primitives layer intentionally carries no
// X.509 code. Chain building is not supported — verification against trust
// anchors requires the toolkit backend.
//
// Opaque crypto.Signer keys (for example PKCS#11 keys held in an HSM) are
// supported for signing: the provider hashes the message and hands the
// digest to the Signer.
package primitive

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"
	"time"

	"github.com/hm-edu/open-brski/pkg/providers"
	"github.com/hm-edu/open-brski/pkg/providers/certutil"
)

// Ensure Provider implements providers.Provider at compile time.
var _ providers.Provider = (*Provider)(nil)

// Provider is the minimal-primitives backend. The zero value is not usable;
// construct it with New.
type Provider struct {
	rand io.Reader
}

// New creates a primitive provider using crypto/rand for signature nonces.
func New() *Provider {
	return &Provider{rand: rand.Reader}
}

// Name identifies the backend.
func (p *Provider) Name() string {
	return "primitive"
}

// Sign computes a signature over message with the raw primitive for alg.
// ECDSA signatures use ASN.1 encoding; RSA uses PSS padding.
func (p *Provider) Sign(key crypto.PrivateKey, alg providers.Algorithm, message []byte) ([]byte, error) {
	pub, err := providers.PublicKeyOf(key)
	if err != nil {
		return nil, err
	}
	if err := providers.CheckKeyAlgorithm(pub, alg); err != nil {
		return nil, err
	}

	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		return ecdsa.SignASN1(p.rand, k, digest(alg, message))
	case ed25519.PrivateKey:
		return ed25519.Sign(k, message), nil
	case *rsa.PrivateKey:
		sig, err := rsa.SignPSS(p.rand, k, crypto.SHA256, digest(alg, message), nil)
		if err != nil {
			return nil, fmt.Errorf("RSA-PSS signing failed: %w", err)
		}
		return sig, nil
	case crypto.Signer:
		return p.signOpaque(k, alg, message)
	default:
		return nil, fmt.Errorf("unsupported private key type %T: %w", key, providers.ErrKeyMismatch)
	}
}

// signOpaque signs through an opaque crypto.Signer (e.g. a PKCS#11 key).
// The signer receives the digest and the hash identifier; PKCS#11 modules
// return ASN.1-encoded ECDSA signatures, matching the direct path above.
func (p *Provider) signOpaque(signer crypto.Signer, alg providers.Algorithm, message []byte) ([]byte, error) {
	if alg == providers.AlgorithmEd25519 {
		// Ed25519 signers take the message, not a digest.
		return signer.Sign(p.rand, message, crypto.Hash(0))
	}

	var opts crypto.SignerOpts = alg.Hash()
	if alg == providers.AlgorithmRS256 {
		opts = &rsa.PSSOptions{Hash: crypto.SHA256}
	}

	sig, err := signer.Sign(p.rand, digest(alg, message), opts)
	if err != nil {
		return nil, fmt.Errorf("opaque signer failed: %w", err)
	}
	return sig, nil
}

// Verify checks signature over message against pub. A cryptographically
// invalid signature yields (false, nil); errors indicate unusable inputs.
func (p *Provider) Verify(pub crypto.PublicKey, alg providers.Algorithm, message, signature []byte) (bool, error) {
	if err := providers.CheckKeyAlgorithm(pub, alg); err != nil {
		return false, err
	}

	switch k := pub.(type) {
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(k, digest(alg, message), signature), nil
	case ed25519.PublicKey:
		return ed25519.Verify(k, message, signature), nil
	case *rsa.PublicKey:
		if err := rsa.VerifyPSS(k, crypto.SHA256, digest(alg, message), signature, nil); err != nil {
			return false, nil
		}
		return true, nil
	default:
		return false, fmt.Errorf("unsupported public key type %T: %w", pub, providers.ErrKeyMismatch)
	}
}

// ParseCertificate delegates to the standalone certutil parser.
func (p *Provider) ParseCertificate(data []byte) (*x509.Certificate, error) {
	return certutil.ParseCertificate(data)
}

// BuildChain is not available in the primitive backend.
func (p *Provider) BuildChain(_ *x509.Certificate, _, _ []*x509.Certificate, _ time.Time) error {
	return fmt.Errorf("certificate chain building: %w", providers.ErrUnsupported)
}

// digest hashes message with the digest paired to alg. The caller must not
// pass AlgorithmEd25519.
func digest(alg providers.Algorithm, message []byte) []byte {
	h := alg.Hash().New()
	h.Write(message)
	return h.Sum(nil)
}
