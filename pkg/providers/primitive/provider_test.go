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

package primitive

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/hm-edu/open-brski/pkg/providers"
)

var testMessage = []byte("DSSEv1 24 application/voucher+dsse 2 {}")

func generateKey(t *testing.T, alg providers.Algorithm) (crypto.PrivateKey, crypto.PublicKey) {
	t.Helper()
	switch alg {
	case providers.AlgorithmES256:
		k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			t.Fatalf("failed to generate P-256 key: %v", err)
		}
		return k, &k.PublicKey
	case providers.AlgorithmES384:
		k, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
		if err != nil {
			t.Fatalf("failed to generate P-384 key: %v", err)
		}
		return k, &k.PublicKey
	case providers.AlgorithmES512:
		k, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
		if err != nil {
			t.Fatalf("failed to generate P-521 key: %v", err)
		}
		return k, &k.PublicKey
	case providers.AlgorithmEd25519:
		pub, k, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("failed to generate Ed25519 key: %v", err)
		}
		return k, pub
	case providers.AlgorithmRS256:
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("failed to generate RSA key: %v", err)
		}
		return k, &k.PublicKey
	default:
		t.Fatalf("no key generator for %v", alg)
		return nil, nil
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	p := New()
	algorithms := []providers.Algorithm{
		providers.AlgorithmES256,
		providers.AlgorithmES384,
		providers.AlgorithmES512,
		providers.AlgorithmEd25519,
		providers.AlgorithmRS256,
	}

	for _, alg := range algorithms {
		t.Run(alg.String(), func(t *testing.T) {
			key, pub := generateKey(t, alg)

			sig, err := p.Sign(key, alg, testMessage)
			if err != nil {
				t.Fatalf("Sign() failed: %v", err)
			}

			ok, err := p.Verify(pub, alg, testMessage, sig)
			if err != nil {
				t.Fatalf("Verify() failed: %v", err)
			}
			if !ok {
				t.Error("Verify() = false for a valid signature")
			}

			// Corrupting the signature flips the verdict without error.
			bad := append([]byte(nil), sig...)
			bad[len(bad)/2] ^= 0xFF
			ok, err = p.Verify(pub, alg, testMessage, bad)
			if err != nil {
				t.Fatalf("Verify() errored on a corrupted signature: %v", err)
			}
			if ok {
				t.Error("Verify() = true for a corrupted signature")
			}

			// Corrupting the message does too.
			tampered := append([]byte(nil), testMessage...)
			tampered[0] ^= 0xFF
			ok, err = p.Verify(pub, alg, tampered, sig)
			if err != nil {
				t.Fatalf("Verify() errored on a tampered message: %v", err)
			}
			if ok {
				t.Error("Verify() = true for a tampered message")
			}
		})
	}
}

func TestSignKeyMismatch(t *testing.T) {
	p := New()
	key, _ := generateKey(t, providers.AlgorithmES256)

	if _, err := p.Sign(key, providers.AlgorithmEd25519, testMessage); !errors.Is(err, providers.ErrKeyMismatch) {
		t.Errorf("Sign(ecdsa key, Ed25519) error = %v, want ErrKeyMismatch", err)
	}
	if _, err := p.Sign(key, providers.AlgorithmES384, testMessage); !errors.Is(err, providers.ErrKeyMismatch) {
		t.Errorf("Sign(P-256 key, ES384) error = %v, want ErrKeyMismatch", err)
	}
}

func TestVerifyKeyMismatch(t *testing.T) {
	p := New()
	_, pub := generateKey(t, providers.AlgorithmES256)

	if _, err := p.Verify(pub, providers.AlgorithmRS256, testMessage, []byte{0x01}); !errors.Is(err, providers.ErrKeyMismatch) {
		t.Errorf("Verify(ecdsa key, RS256) error = %v, want ErrKeyMismatch", err)
	}
}

// opaqueSigner hides an ECDSA key behind the bare crypto.Signer interface,
// the shape PKCS#11 keys arrive in.
type opaqueSigner struct {
	inner *ecdsa.PrivateKey
}

func (s *opaqueSigner) Public() crypto.PublicKey {
	return &s.inner.PublicKey
}

func (s *opaqueSigner) Sign(r io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return s.inner.Sign(r, digest, opts)
}

func TestSignOpaqueSigner(t *testing.T) {
	p := New()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	sig, err := p.Sign(&opaqueSigner{inner: key}, providers.AlgorithmES256, testMessage)
	if err != nil {
		t.Fatalf("Sign() with opaque signer failed: %v", err)
	}

	ok, err := p.Verify(&key.PublicKey, providers.AlgorithmES256, testMessage, sig)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if !ok {
		t.Error("Verify() = false for an opaque-signer signature")
	}
}

func TestBuildChainUnsupported(t *testing.T) {
	p := New()
	err := p.BuildChain(nil, nil, nil, time.Now())
	if !errors.Is(err, providers.ErrUnsupported) {
		t.Errorf("BuildChain() error = %v, want ErrUnsupported", err)
	}
}

func TestParseCertificate(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "masa.example.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	p := New()
	cert, err := p.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate() failed: %v", err)
	}
	if cert.Subject.CommonName != "masa.example.test" {
		t.Errorf("Subject.CommonName = %q", cert.Subject.CommonName)
	}

	if _, err := p.ParseCertificate([]byte("garbage")); err == nil {
		t.Error("ParseCertificate() succeeded on garbage input")
	}
}
