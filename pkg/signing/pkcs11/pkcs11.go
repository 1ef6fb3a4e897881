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

// Package pkcs11 exposes HSM-held MASA signing keys through the crypto11
// library. The returned key is an opaque crypto.Signer usable with the
// primitive crypto provider; the private key material never leaves the
// token.
package pkcs11

import (
	"crypto"
	"fmt"
	"os"

	"github.com/ThalesGroup/crypto11"
)

// Config identifies a PKCS#11 module, token, and key pair.
type Config struct {
	// ModulePath is the path to the PKCS#11 shared library.
	ModulePath string

	// TokenLabel selects the token within the module.
	TokenLabel string

	// PIN authenticates to the token. When empty, the PKCS11_PIN
	// environment variable is consulted.
	PIN string

	// KeyID selects the key pair by CKA_ID. Optional when KeyLabel is set.
	KeyID []byte

	// KeyLabel selects the key pair by CKA_LABEL. Optional when KeyID is set.
	KeyLabel string
}

// validate checks that the configuration can identify a module and a key.
func (c *Config) validate() error {
	if c.ModulePath == "" {
		return fmt.Errorf("PKCS#11 module path is required")
	}
	if c.TokenLabel == "" {
		return fmt.Errorf("token label is required")
	}
	if len(c.KeyID) == 0 && c.KeyLabel == "" {
		return fmt.Errorf("either key ID or key label is required")
	}
	return nil
}

// pin resolves the effective PIN, falling back to the environment.
func (c *Config) pin() string {
	if c.PIN != "" {
		return c.PIN
	}
	return os.Getenv("PKCS11_PIN")
}

// KeyPair is an open handle to an HSM-held signing key. Close releases the
// underlying PKCS#11 session; the Signer must not be used afterwards.
type KeyPair struct {
	ctx    *crypto11.Context
	signer crypto11.Signer
}

// OpenKeyPair loads the PKCS#11 module, authenticates to the token, and
// locates the configured key pair.
func OpenKeyPair(cfg Config) (*KeyPair, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx, err := crypto11.Configure(&crypto11.Config{
		Path:       cfg.ModulePath,
		TokenLabel: cfg.TokenLabel,
		Pin:        cfg.pin(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure PKCS#11 context: %w", err)
	}

	var label []byte
	if cfg.KeyLabel != "" {
		label = []byte(cfg.KeyLabel)
	}

	signer, err := ctx.FindKeyPair(cfg.KeyID, label)
	if err != nil {
		_ = ctx.Close()
		return nil, fmt.Errorf("failed to find key pair: %w", err)
	}
	if signer == nil {
		_ = ctx.Close()
		return nil, fmt.Errorf("no matching key pair in token %q", cfg.TokenLabel)
	}

	return &KeyPair{ctx: ctx, signer: signer}, nil
}

// Signer returns the opaque signing key. Signatures are computed inside the
// token; pair this with the primitive crypto provider.
func (k *KeyPair) Signer() crypto.Signer {
	return k.signer
}

// Close releases the PKCS#11 session.
func (k *KeyPair) Close() error {
	if k.ctx == nil {
		return nil
	}
	return k.ctx.Close()
}
