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
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{input: "ES256", want: AlgorithmES256},
		{input: "ES384", want: AlgorithmES384},
		{input: "ES512", want: AlgorithmES512},
		{input: "Ed25519", want: AlgorithmEd25519},
		{input: "EdDSA", want: AlgorithmEd25519},
		{input: "RS256", want: AlgorithmRS256},
		{input: " ES256 ", want: AlgorithmES256},
		{input: "es256", wantErr: true},
		{input: "none", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAlgorithm(%q) succeeded, want error", tt.input)
				}
				if !errors.Is(err, ErrUnsupported) {
					t.Errorf("ParseAlgorithm(%q) error = %v, want ErrUnsupported", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAlgorithm(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAlgorithmStringRoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmES256, AlgorithmES384, AlgorithmES512, AlgorithmEd25519, AlgorithmRS256} {
		parsed, err := ParseAlgorithm(alg.String())
		if err != nil {
			t.Errorf("ParseAlgorithm(%v.String()) failed: %v", alg, err)
			continue
		}
		if parsed != alg {
			t.Errorf("ParseAlgorithm(%v.String()) = %v", alg, parsed)
		}
	}
}

func TestAlgorithmHash(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		want crypto.Hash
	}{
		{AlgorithmES256, crypto.SHA256},
		{AlgorithmES384, crypto.SHA384},
		{AlgorithmES512, crypto.SHA512},
		{AlgorithmRS256, crypto.SHA256},
		{AlgorithmEd25519, crypto.Hash(0)},
	}
	for _, tt := range tests {
		if got := tt.alg.Hash(); got != tt.want {
			t.Errorf("%v.Hash() = %v, want %v", tt.alg, got, tt.want)
		}
	}
}

func TestPublicKeyOf(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ECDSA key: %v", err)
	}
	edPub, edKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate Ed25519 key: %v", err)
	}
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	pub, err := PublicKeyOf(ecKey)
	if err != nil {
		t.Errorf("PublicKeyOf(ecdsa) failed: %v", err)
	}
	if got, ok := pub.(*ecdsa.PublicKey); !ok || !got.Equal(&ecKey.PublicKey) {
		t.Error("PublicKeyOf(ecdsa) returned wrong key")
	}

	pub, err = PublicKeyOf(edKey)
	if err != nil {
		t.Errorf("PublicKeyOf(ed25519) failed: %v", err)
	}
	if got, ok := pub.(ed25519.PublicKey); !ok || !got.Equal(edPub) {
		t.Error("PublicKeyOf(ed25519) returned wrong key")
	}

	if _, err = PublicKeyOf(rsaKey); err != nil {
		t.Errorf("PublicKeyOf(rsa) failed: %v", err)
	}

	if _, err = PublicKeyOf("not a key"); !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("PublicKeyOf(string) error = %v, want ErrKeyMismatch", err)
	}
}

func TestCheckKeyAlgorithm(t *testing.T) {
	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate P-256 key: %v", err)
	}
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate P-384 key: %v", err)
	}
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate Ed25519 key: %v", err)
	}
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	tests := []struct {
		name    string
		pub     crypto.PublicKey
		alg     Algorithm
		wantErr error
	}{
		{name: "ES256 with P-256", pub: &p256.PublicKey, alg: AlgorithmES256},
		{name: "ES384 with P-384", pub: &p384.PublicKey, alg: AlgorithmES384},
		{name: "Ed25519 with Ed25519", pub: edPub, alg: AlgorithmEd25519},
		{name: "RS256 with RSA", pub: &rsaKey.PublicKey, alg: AlgorithmRS256},
		{name: "ES256 with wrong curve", pub: &p384.PublicKey, alg: AlgorithmES256, wantErr: ErrKeyMismatch},
		{name: "ES256 with RSA key", pub: &rsaKey.PublicKey, alg: AlgorithmES256, wantErr: ErrKeyMismatch},
		{name: "Ed25519 with ECDSA key", pub: &p256.PublicKey, alg: AlgorithmEd25519, wantErr: ErrKeyMismatch},
		{name: "RS256 with Ed25519 key", pub: edPub, alg: AlgorithmRS256, wantErr: ErrKeyMismatch},
		{name: "unknown algorithm", pub: &p256.PublicKey, alg: AlgorithmUnknown, wantErr: ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckKeyAlgorithm(tt.pub, tt.alg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("CheckKeyAlgorithm() failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckKeyAlgorithm() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
