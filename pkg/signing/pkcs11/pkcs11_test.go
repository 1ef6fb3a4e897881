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

package pkcs11

import "testing"

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "key by ID",
			cfg:  Config{ModulePath: "/usr/lib/softhsm2.so", TokenLabel: "masa", KeyID: []byte{0x01}},
		},
		{
			name: "key by label",
			cfg:  Config{ModulePath: "/usr/lib/softhsm2.so", TokenLabel: "masa", KeyLabel: "voucher-signer"},
		},
		{
			name:    "missing module path",
			cfg:     Config{TokenLabel: "masa", KeyLabel: "voucher-signer"},
			wantErr: true,
		},
		{
			name:    "missing token label",
			cfg:     Config{ModulePath: "/usr/lib/softhsm2.so", KeyLabel: "voucher-signer"},
			wantErr: true,
		},
		{
			name:    "no key selector",
			cfg:     Config{ModulePath: "/usr/lib/softhsm2.so", TokenLabel: "masa"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigPINFallback(t *testing.T) {
	cfg := Config{PIN: "explicit"}
	if got := cfg.pin(); got != "explicit" {
		t.Errorf("pin() = %q, want explicit PIN to win", got)
	}

	cfg.PIN = ""
	t.Setenv("PKCS11_PIN", "from-env")
	if got := cfg.pin(); got != "from-env" {
		t.Errorf("pin() = %q, want environment fallback", got)
	}
}

func TestOpenKeyPairRejectsInvalidConfig(t *testing.T) {
	if _, err := OpenKeyPair(Config{}); err == nil {
		t.Error("OpenKeyPair() succeeded with an empty config")
	}
}

func TestKeyPairCloseNil(t *testing.T) {
	kp := &KeyPair{}
	if err := kp.Close(); err != nil {
		t.Errorf("Close() on unopened pair = %v, want nil", err)
	}
}
