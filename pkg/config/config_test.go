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

package config

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func newECKeyPEM(t *testing.T) (*ecdsa.PrivateKey, []byte, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal private key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return key, keyPEM, pubPEM
}

func TestKeyConfigLoadPrivateKey(t *testing.T) {
	key, keyPEM, _ := newECKeyPEM(t)
	path := writeTempFile(t, "key.pem", keyPEM)

	kc := KeyConfig{Path: path}
	loaded, err := kc.LoadPrivateKey()
	if err != nil {
		t.Fatalf("LoadPrivateKey() failed: %v", err)
	}
	ec, ok := loaded.(*ecdsa.PrivateKey)
	if !ok {
		t.Fatalf("LoadPrivateKey() = %T, want *ecdsa.PrivateKey", loaded)
	}
	if !ec.PublicKey.Equal(&key.PublicKey) {
		t.Error("loaded key does not match the generated key")
	}
}

func TestKeyConfigLoadPrivateKeyErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  KeyConfig
	}{
		{name: "empty path", cfg: KeyConfig{}},
		{name: "missing file", cfg: KeyConfig{Path: "/nonexistent/key.pem"}},
		{
			name: "not a key",
			cfg:  KeyConfig{Path: writeTempFile(t, "junk.pem", []byte("junk"))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.LoadPrivateKey(); err == nil {
				t.Error("LoadPrivateKey() succeeded, want error")
			}
		})
	}
}

func TestKeyConfigLoadPublicKey(t *testing.T) {
	key, _, pubPEM := newECKeyPEM(t)
	path := writeTempFile(t, "pub.pem", pubPEM)

	kc := KeyConfig{Path: path}
	loaded, err := kc.LoadPublicKey()
	if err != nil {
		t.Fatalf("LoadPublicKey() failed: %v", err)
	}
	ec, ok := loaded.(*ecdsa.PublicKey)
	if !ok {
		t.Fatalf("LoadPublicKey() = %T, want *ecdsa.PublicKey", loaded)
	}
	if !ec.Equal(&key.PublicKey) {
		t.Error("loaded public key does not match")
	}
}

func TestKeyConfigLoadEd25519(t *testing.T) {
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal private key: %v", err)
	}
	keyPath := writeTempFile(t, "ed.pem",
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))

	kc := KeyConfig{Path: keyPath}
	loaded, err := kc.LoadPrivateKey()
	if err != nil {
		t.Fatalf("LoadPrivateKey() failed: %v", err)
	}
	ed, ok := loaded.(ed25519.PrivateKey)
	if !ok {
		t.Fatalf("LoadPrivateKey() = %T, want ed25519.PrivateKey", loaded)
	}
	if !ed.Public().(ed25519.PublicKey).Equal(pub) {
		t.Error("loaded key does not match")
	}
}

func newCertPEM(t *testing.T, cn string) ([]byte, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	return der, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestCertificateConfigLoadCertificates(t *testing.T) {
	_, leafPEM := newCertPEM(t, "leaf.example.test")
	_, caPEM := newCertPEM(t, "ca.example.test")

	// One PEM bundle plus one single-cert file.
	bundle := writeTempFile(t, "bundle.pem", append(leafPEM, caPEM...))
	_, extraPEM := newCertPEM(t, "extra.example.test")
	extra := writeTempFile(t, "extra.pem", extraPEM)

	cc := CertificateConfig{Paths: []string{bundle, extra}}
	certs, err := cc.LoadCertificates()
	if err != nil {
		t.Fatalf("LoadCertificates() failed: %v", err)
	}
	if len(certs) != 3 {
		t.Fatalf("LoadCertificates() returned %d certificates, want 3", len(certs))
	}
	if certs[0].Subject.CommonName != "leaf.example.test" {
		t.Errorf("first certificate = %q, want file order preserved", certs[0].Subject.CommonName)
	}
}

func TestCertificateConfigDERFile(t *testing.T) {
	der, _ := newCertPEM(t, "der.example.test")
	path := writeTempFile(t, "cert.der", der)

	cc := CertificateConfig{Paths: []string{path}}
	certs, err := cc.LoadCertificates()
	if err != nil {
		t.Fatalf("LoadCertificates() failed on DER input: %v", err)
	}
	if len(certs) != 1 || certs[0].Subject.CommonName != "der.example.test" {
		t.Error("DER certificate not loaded correctly")
	}
}

func TestCertificateConfigEmpty(t *testing.T) {
	cc := CertificateConfig{}
	certs, err := cc.LoadCertificates()
	if err != nil {
		t.Fatalf("LoadCertificates() failed on empty config: %v", err)
	}
	if len(certs) != 0 {
		t.Errorf("LoadCertificates() = %d certificates, want 0", len(certs))
	}
}

func TestTrustAnchorConfigRequiresAnchors(t *testing.T) {
	tc := TrustAnchorConfig{}
	if _, err := tc.LoadTrustAnchors(); err == nil {
		t.Error("LoadTrustAnchors() succeeded with no paths")
	}

	_, caPEM := newCertPEM(t, "anchor.example.test")
	tc.Paths = []string{writeTempFile(t, "anchor.pem", caPEM)}
	anchors, err := tc.LoadTrustAnchors()
	if err != nil {
		t.Fatalf("LoadTrustAnchors() failed: %v", err)
	}
	if len(anchors) != 1 {
		t.Errorf("LoadTrustAnchors() = %d anchors, want 1", len(anchors))
	}
}
