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

package providers

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
)

// PublicKeyOf extracts the public half of a private key.
// Supports the concrete stdlib key types plus any opaque crypto.Signer
// (PKCS#11 keys expose only the Signer interface).
func PublicKeyOf(key crypto.PrivateKey) (crypto.PublicKey, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		return &k.PublicKey, nil
	case ed25519.PrivateKey:
		return k.Public(), nil
	case *rsa.PrivateKey:
		return &k.PublicKey, nil
	case crypto.Signer:
		return k.Public(), nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T: %w", key, ErrKeyMismatch)
	}
}

// CheckKeyAlgorithm verifies that a public key is usable with the given
// algorithm. Returns an error wrapping ErrKeyMismatch on any incompatibility
// and ErrUnsupported for an unknown algorithm.
func CheckKeyAlgorithm(pub crypto.PublicKey, alg Algorithm) error {
	switch alg {
	case AlgorithmES256, AlgorithmES384, AlgorithmES512:
		k, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%s requires an ECDSA key, got %T: %w", alg, pub, ErrKeyMismatch)
		}
		if k.Curve != curveFor(alg) {
			return fmt.Errorf("%s requires curve %s, got %s: %w",
				alg, curveFor(alg).Params().Name, k.Curve.Params().Name, ErrKeyMismatch)
		}
		return nil
	case AlgorithmEd25519:
		if _, ok := pub.(ed25519.PublicKey); !ok {
			return fmt.Errorf("Ed25519 requires an Ed25519 key, got %T: %w", pub, ErrKeyMismatch)
		}
		return nil
	case AlgorithmRS256:
		if _, ok := pub.(*rsa.PublicKey); !ok {
			return fmt.Errorf("RS256 requires an RSA key, got %T: %w", pub, ErrKeyMismatch)
		}
		return nil
	default:
		return fmt.Errorf("algorithm %q: %w", alg, ErrUnsupported)
	}
}

// curveFor maps an ECDSA algorithm to its curve. Callers must pass one of
// the ES* algorithms.
func curveFor(alg Algorithm) elliptic.Curve {
	switch alg {
	case AlgorithmES384:
		return elliptic.P384()
	case AlgorithmES512:
		return elliptic.P521()
	default:
		return elliptic.P256()
	}
}
