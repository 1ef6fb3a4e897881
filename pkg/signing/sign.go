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

// Package signing assembles signed voucher artifacts: it canonicalizes a
// finalized claim-set, signs the canonical bytes through a crypto provider,
// and wraps the result in an envelope, optionally embedding the signer's
// certificate chain for self-contained verification.
package signing

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"

	dsselib "github.com/secure-systems-lab/go-securesystemslib/dsse"
	"github.com/sigstore/sigstore/pkg/cryptoutils"

	"github.com/hm-edu/open-brski/pkg/envelope"
	"github.com/hm-edu/open-brski/pkg/providers"
	"github.com/hm-edu/open-brski/pkg/voucher"
)

// ErrUnsupportedAlgorithm is returned when the configured provider cannot
// perform the requested signature algorithm.
var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// ErrKeyMismatch is returned when the signing key is incompatible with the
// requested algorithm, or when the configured signing certificate does not
// belong to the key.
var ErrKeyMismatch = errors.New("signing key mismatch")

// SignerConfig holds the configuration for producing signed voucher
// artifacts. The zero value is not usable; Provider and Algorithm are
// mandatory.
type SignerConfig struct {
	// Provider performs the signature computation.
	Provider providers.Provider

	// Algorithm selects the signature algorithm.
	Algorithm providers.Algorithm

	// IncludeChain embeds CertificateChain into the artifact so that it
	// can be verified without out-of-band signer material.
	IncludeChain bool

	// CertificateChain is the signer's chain, leaf first. Required when
	// IncludeChain is set; the leaf must certify the signing key.
	CertificateChain []*x509.Certificate
}

// Sign canonicalizes the voucher, signs the canonical bytes, and assembles
// the immutable envelope.
//
// Fails with ErrUnsupportedAlgorithm when the provider cannot perform the
// requested algorithm and ErrKeyMismatch when the key type is incompatible
// with it or does not match the signing certificate.
func Sign(v *voucher.Voucher, key crypto.PrivateKey, cfg SignerConfig) (*envelope.Envelope, error) {
	if v == nil {
		return nil, fmt.Errorf("voucher is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("crypto provider is required")
	}
	if cfg.Algorithm == providers.AlgorithmUnknown {
		return nil, ErrUnsupportedAlgorithm
	}

	var chain [][]byte
	if cfg.IncludeChain {
		if len(cfg.CertificateChain) == 0 {
			return nil, fmt.Errorf("certificate chain is required when embedding is requested")
		}
		if err := checkCertificateKey(cfg.CertificateChain[0], key); err != nil {
			return nil, err
		}
		for _, cert := range cfg.CertificateChain {
			chain = append(chain, cert.Raw)
		}
	}

	payload, err := voucher.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize voucher: %w", err)
	}

	pae := dsselib.PAE(envelope.PayloadType, payload)

	sig, err := cfg.Provider.Sign(key, cfg.Algorithm, pae)
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrUnsupported):
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, err)
		case errors.Is(err, providers.ErrKeyMismatch):
			return nil, fmt.Errorf("%w: %v", ErrKeyMismatch, err)
		default:
			return nil, fmt.Errorf("signing failed: %w", err)
		}
	}

	return envelope.New(payload, sig, cfg.Algorithm, chain)
}

// checkCertificateKey verifies that the signing certificate certifies the
// private key's public half. The same consistency check the MASA applies to
// its credential configuration at load time.
func checkCertificateKey(cert *x509.Certificate, key crypto.PrivateKey) error {
	pub, err := providers.PublicKeyOf(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyMismatch, err)
	}
	if err := cryptoutils.EqualKeys(cert.PublicKey, pub); err != nil {
		return fmt.Errorf("signing certificate does not match private key: %w", ErrKeyMismatch)
	}
	return nil
}
