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

// Package toolkit implements the full-toolkit crypto provider on top of the
// sigstore signature library and the stdlib X.509 machinery. This is the
// backend to use when verification must build certificate chains to trust
// anchors; the primitive backend covers restricted builds without chain
// support.
package toolkit

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/sigstore/sigstore/pkg/signature"

	"github.com/hm-edu/open-brski/pkg/providers"
	"github.com/hm-edu/open-brski/pkg/providers/certutil"
)

// Ensure Provider implements providers.Provider at compile time.
var _ providers.Provider = (*Provider)(nil)

// Provider is the full-toolkit backend. It is stateless; a single value can
// be shared across goroutines.
type Provider struct{}

// New creates a toolkit provider.
func New() *Provider {
	return &Provider{}
}

// Name identifies the backend.
func (p *Provider) Name() string {
	return "toolkit"
}

// Sign computes a signature over message using a sigstore signer for alg.
// Opaque crypto.Signer keys are not accepted here; use the primitive
// backend for PKCS#11 key material.
func (p *Provider) Sign(key crypto.PrivateKey, alg providers.Algorithm, message []byte) ([]byte, error) {
	pub, err := providers.PublicKeyOf(key)
	if err != nil {
		return nil, err
	}
	if err := providers.CheckKeyAlgorithm(pub, alg); err != nil {
		return nil, err
	}

	signer, err := p.loadSigner(key, alg)
	if err != nil {
		return nil, err
	}

	sig, err := signer.SignMessage(bytes.NewReader(message))
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}
	return sig, nil
}

// loadSigner constructs the sigstore signer matching alg and the key type.
func (p *Provider) loadSigner(key crypto.PrivateKey, alg providers.Algorithm) (signature.Signer, error) {
	switch alg {
	case providers.AlgorithmES256, providers.AlgorithmES384, providers.AlgorithmES512:
		k, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%s requires an ECDSA private key, got %T: %w", alg, key, providers.ErrKeyMismatch)
		}
		return signature.LoadECDSASigner(k, alg.Hash())
	case providers.AlgorithmEd25519:
		k, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("Ed25519 requires an Ed25519 private key, got %T: %w", key, providers.ErrKeyMismatch)
		}
		return signature.LoadED25519Signer(k)
	case providers.AlgorithmRS256:
		k, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("RS256 requires an RSA private key, got %T: %w", key, providers.ErrKeyMismatch)
		}
		return signature.LoadRSAPSSSigner(k, crypto.SHA256, nil)
	default:
		return nil, fmt.Errorf("algorithm %q: %w", alg, providers.ErrUnsupported)
	}
}

// Verify checks signature over message against pub. A signature that does
// not verify yields (false, nil); errors are reserved for unusable keys
// and unsupported algorithms.
func (p *Provider) Verify(pub crypto.PublicKey, alg providers.Algorithm, message, sig []byte) (bool, error) {
	if err := providers.CheckKeyAlgorithm(pub, alg); err != nil {
		return false, err
	}

	verifier, err := p.loadVerifier(pub, alg)
	if err != nil {
		return false, err
	}

	if err := verifier.VerifySignature(bytes.NewReader(sig), bytes.NewReader(message)); err != nil {
		// The sigstore library reports signature mismatch as an error;
		// the provider contract treats it as an expected false outcome.
		return false, nil
	}
	return true, nil
}

// loadVerifier constructs the sigstore verifier matching alg and key type.
func (p *Provider) loadVerifier(pub crypto.PublicKey, alg providers.Algorithm) (signature.Verifier, error) {
	switch alg {
	case providers.AlgorithmES256, providers.AlgorithmES384, providers.AlgorithmES512:
		return signature.LoadECDSAVerifier(pub.(*ecdsa.PublicKey), alg.Hash())
	case providers.AlgorithmEd25519:
		return signature.LoadED25519Verifier(pub.(ed25519.PublicKey))
	case providers.AlgorithmRS256:
		return signature.LoadRSAPSSVerifier(pub.(*rsa.PublicKey), crypto.SHA256, nil)
	default:
		return nil, fmt.Errorf("algorithm %q: %w", alg, providers.ErrUnsupported)
	}
}

// ParseCertificate parses a DER or PEM encoded certificate.
func (p *Provider) ParseCertificate(data []byte) (*x509.Certificate, error) {
	return certutil.ParseCertificate(data)
}

// BuildChain validates that leaf chains to one of anchors through
// intermediates. Every certificate's validity window is checked against the
// injected instant rather than the wall clock, so verification stays a pure
// function of its inputs.
func (p *Provider) BuildChain(leaf *x509.Certificate, intermediates, anchors []*x509.Certificate, at time.Time) error {
	if leaf == nil {
		return fmt.Errorf("leaf certificate is required")
	}
	if len(anchors) == 0 {
		return fmt.Errorf("no trust anchors supplied")
	}

	roots := x509.NewCertPool()
	for _, anchor := range anchors {
		roots.AddCert(anchor)
	}

	inter := x509.NewCertPool()
	for _, cert := range intermediates {
		inter.AddCert(cert)
	}

	chains, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: inter,
		CurrentTime:   at,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return fmt.Errorf("certificate chain verification failed: %w", err)
	}
	if len(chains) == 0 {
		return fmt.Errorf("no valid certificate chains found")
	}

	return nil
}
