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

package envelope

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	dsselib "github.com/secure-systems-lab/go-securesystemslib/dsse"

	"github.com/hm-edu/open-brski/pkg/providers"
	"github.com/hm-edu/open-brski/pkg/providers/primitive"
)

var (
	testPayload   = []byte(`{"ietf-voucher:voucher":{"assertion":"verified","serial-number":"S1"}}`)
	testSignature = []byte{0x30, 0x45, 0x02, 0x20, 0x01}
	testCertDER   = []byte{0x30, 0x82, 0x01, 0x0a}
)

func newTestEnvelope(t *testing.T) *Envelope {
	t.Helper()
	env, err := New(testPayload, testSignature, providers.AlgorithmES256, [][]byte{testCertDER})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return env
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name      string
		payload   []byte
		signature []byte
		alg       providers.Algorithm
	}{
		{name: "empty payload", payload: nil, signature: testSignature, alg: providers.AlgorithmES256},
		{name: "empty signature", payload: testPayload, signature: nil, alg: providers.AlgorithmES256},
		{name: "unknown algorithm", payload: testPayload, signature: testSignature, alg: providers.AlgorithmUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.payload, tt.signature, tt.alg, nil); err == nil {
				t.Error("New() succeeded, want error")
			}
		})
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	env := newTestEnvelope(t)

	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if !bytes.Equal(parsed.Payload(), testPayload) {
		t.Errorf("Payload() = %q, want %q", parsed.Payload(), testPayload)
	}
	if !bytes.Equal(parsed.Signature(), testSignature) {
		t.Errorf("Signature() mismatch")
	}
	if parsed.Algorithm() != providers.AlgorithmES256 {
		t.Errorf("Algorithm() = %v, want ES256", parsed.Algorithm())
	}
	chain := parsed.CertificateChain()
	if len(chain) != 1 || !bytes.Equal(chain[0], testCertDER) {
		t.Errorf("CertificateChain() = %v, want one entry %x", chain, testCertDER)
	}
}

func TestMarshalWireShape(t *testing.T) {
	env := newTestEnvelope(t)
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var w map[string]json.RawMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		t.Fatalf("wire form is not JSON: %v", err)
	}
	for _, member := range []string{"payload", "payloadType", "signatures", "verificationMaterial"} {
		if _, ok := w[member]; !ok {
			t.Errorf("wire form lacks %q member", member)
		}
	}

	var payloadType string
	if err := json.Unmarshal(w["payloadType"], &payloadType); err != nil || payloadType != PayloadType {
		t.Errorf("payloadType = %q, want %q", payloadType, PayloadType)
	}
}

func TestParseStructuralErrors(t *testing.T) {
	valid, err := newTestEnvelope(t).Marshal()
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	mutate := func(t *testing.T, fn func(w map[string]interface{})) []byte {
		t.Helper()
		var w map[string]interface{}
		if err := json.Unmarshal(valid, &w); err != nil {
			t.Fatalf("failed to unmarshal fixture: %v", err)
		}
		fn(w)
		out, err := json.Marshal(w)
		if err != nil {
			t.Fatalf("failed to re-marshal fixture: %v", err)
		}
		return out
	}

	tests := []struct {
		name string
		raw  func(t *testing.T) []byte
	}{
		{
			name: "not JSON",
			raw:  func(t *testing.T) []byte { return []byte("][") },
		},
		{
			name: "wrong payload type",
			raw: func(t *testing.T) []byte {
				return mutate(t, func(w map[string]interface{}) { w["payloadType"] = "application/other" })
			},
		},
		{
			name: "no signatures",
			raw: func(t *testing.T) []byte {
				return mutate(t, func(w map[string]interface{}) { w["signatures"] = []interface{}{} })
			},
		},
		{
			name: "two signatures",
			raw: func(t *testing.T) []byte {
				return mutate(t, func(w map[string]interface{}) {
					sig := map[string]interface{}{"sig": base64.StdEncoding.EncodeToString(testSignature)}
					w["signatures"] = []interface{}{sig, sig}
				})
			},
		},
		{
			name: "payload not base64",
			raw: func(t *testing.T) []byte {
				return mutate(t, func(w map[string]interface{}) { w["payload"] = "%%%" })
			},
		},
		{
			name: "missing verification material",
			raw: func(t *testing.T) []byte {
				return mutate(t, func(w map[string]interface{}) { delete(w, "verificationMaterial") })
			},
		},
		{
			name: "unknown algorithm",
			raw: func(t *testing.T) []byte {
				return mutate(t, func(w map[string]interface{}) {
					w["verificationMaterial"] = map[string]interface{}{"algorithm": "XS666"}
				})
			},
		},
		{
			name: "certificate not base64",
			raw: func(t *testing.T) []byte {
				return mutate(t, func(w map[string]interface{}) {
					w["verificationMaterial"] = map[string]interface{}{
						"algorithm":            "ES256",
						"x509CertificateChain": []interface{}{"%%%"},
					}
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw(t))
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("Parse() error = %T, want *ParseError", err)
			}
		})
	}
}

func TestPAEBinding(t *testing.T) {
	env := newTestEnvelope(t)
	want := dsselib.PAE(PayloadType, testPayload)
	if !bytes.Equal(env.PAE(), want) {
		t.Errorf("PAE() does not match the DSSE pre-authentication encoding")
	}
}

func TestEnvelopeImmutability(t *testing.T) {
	env := newTestEnvelope(t)

	payload := env.Payload()
	payload[0] ^= 0xFF
	if !bytes.Equal(env.Payload(), testPayload) {
		t.Error("mutating Payload() output changed the envelope")
	}

	chain := env.CertificateChain()
	chain[0][0] ^= 0xFF
	if !bytes.Equal(env.CertificateChain()[0], testCertDER) {
		t.Error("mutating CertificateChain() output changed the envelope")
	}
}

func TestVerifySignatureRealKey(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	p := primitive.New()

	pae := dsselib.PAE(PayloadType, testPayload)
	sig, err := p.Sign(key, providers.AlgorithmES256, pae)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}

	env, err := New(testPayload, sig, providers.AlgorithmES256, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ok, err := VerifySignature(env, p, &key.PublicKey)
	if err != nil {
		t.Fatalf("VerifySignature() failed: %v", err)
	}
	if !ok {
		t.Error("VerifySignature() = false for a valid signature")
	}

	// A tampered payload must flip the verdict, not produce an error.
	tampered := append([]byte(nil), testPayload...)
	tampered[len(tampered)-2] ^= 0xFF
	tamperedEnv, err := New(tampered, sig, providers.AlgorithmES256, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	ok, err = VerifySignature(tamperedEnv, p, &key.PublicKey)
	if err != nil {
		t.Fatalf("VerifySignature() failed on tampered payload: %v", err)
	}
	if ok {
		t.Error("VerifySignature() = true for a tampered payload")
	}
}
