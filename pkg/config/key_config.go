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

// Package config loads signing keys, verification keys, and certificate
// material from files into the forms the voucher core consumes. All file
// I/O for the CLI lives here; the core packages only see parsed keys and
// certificates.
package config

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
)

// KeyConfig handles cryptographic key file configuration.
//
// The same config loads either half of a key pair: LoadPrivateKey for
// signing, LoadPublicKey for verification.
type KeyConfig struct {
	// Path is the file path to the key (PEM format).
	Path string

	// Password decrypts an encrypted private key PEM. Ignored for
	// unencrypted keys and for public keys.
	Password string
}

// LoadPrivateKey loads a signing key from the configured path.
//
// Supports PKCS#8, SEC1 EC, and PKCS#1 RSA private key PEM blocks,
// optionally encrypted. Validates that the key type is supported
// (ECDSA, RSA, Ed25519).
//
// Returns a crypto.PrivateKey containing the loaded key, or an error if
// the key cannot be read, decrypted, parsed, or is unsupported.
func (c *KeyConfig) LoadPrivateKey() (crypto.PrivateKey, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("key path is required")
	}

	pemBytes, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	pf := cryptoutils.SkipPassword
	if c.Password != "" {
		pf = cryptoutils.StaticPasswordFunc([]byte(c.Password))
	}

	key, err := cryptoutils.UnmarshalPEMToPrivateKey(pemBytes, pf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	if _, err := validatePrivateKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// LoadPublicKey loads a verification key from the configured path.
//
// Supports PKIX and PKCS#1 public key PEM blocks. Validates that the key
// type is supported (ECDSA on P-256/P-384/P-521, RSA, Ed25519).
//
// Returns a crypto.PublicKey containing the loaded key, or an error if
// the key cannot be read, parsed, or is unsupported.
func (c *KeyConfig) LoadPublicKey() (crypto.PublicKey, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("key path is required")
	}

	pemBytes, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		return validatePublicKey(key)
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return validatePublicKey(key)
	}

	return nil, fmt.Errorf("failed to parse public key (unsupported format)")
}

// validatePublicKey checks if the public key type is supported.
//
// Returns the public key if valid, or an error if the key type or curve
// is unsupported.
func validatePublicKey(key interface{}) (crypto.PublicKey, error) {
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		curveName := k.Curve.Params().Name
		if curveName != "P-256" && curveName != "P-384" && curveName != "P-521" {
			return nil, fmt.Errorf("unsupported elliptic curve: %s (supported: P-256, P-384, P-521)", curveName)
		}
		return k, nil
	case *rsa.PublicKey:
		return k, nil
	case ed25519.PublicKey:
		return k, nil
	default:
		return nil, fmt.Errorf("unsupported public key type: %T", key)
	}
}

// validatePrivateKey checks if the private key type is supported.
func validatePrivateKey(key crypto.PrivateKey) (crypto.PrivateKey, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		if _, err := validatePublicKey(&k.PublicKey); err != nil {
			return nil, err
		}
		return k, nil
	case *rsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("unsupported private key type: %T", key)
	}
}
