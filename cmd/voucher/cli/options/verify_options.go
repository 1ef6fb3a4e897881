// Copyright 2025 The open-brski Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package options

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hm-edu/open-brski/pkg/utils"
)

// VerifyOptions defines flags for the verify command: trust material,
// expected bindings, and the verification instant.
type VerifyOptions struct {
	CommonCryptoFlags

	// TrustAnchors are files with the trusted MASA certificates.
	TrustAnchors []string // --trust-anchor

	// PublicKeyPath verifies artifacts without an embedded certificate.
	PublicKeyPath string // --public-key

	// ExpectedNonce is the base64 nonce this bootstrap attempt used.
	ExpectedNonce string // --nonce

	// ExpectedSerial is the pledge's own serial number.
	ExpectedSerial string // --serial-number

	// At overrides the verification instant, RFC 3339. Defaults to the
	// current time when empty.
	At string // --at
}

var _ Interface = (*VerifyOptions)(nil)

// AddFlags registers the verify flags on the cobra command.
func (o *VerifyOptions) AddFlags(cmd *cobra.Command) {
	o.CommonCryptoFlags.AddFlags(cmd)

	cmd.Flags().StringSliceVar(&o.TrustAnchors, "trust-anchor", nil,
		"file with a trusted MASA certificate (repeatable)")
	cmd.Flags().StringVar(&o.PublicKeyPath, "public-key", "",
		"file with the signer public key, for artifacts without an embedded certificate")
	_ = cmd.MarkFlagFilename("public-key")
	cmd.Flags().StringVar(&o.ExpectedNonce, "nonce", "",
		"base64 nonce this bootstrap attempt used")
	cmd.Flags().StringVar(&o.ExpectedSerial, "serial-number", "",
		"serial number the voucher must be issued for")
	cmd.Flags().StringVar(&o.At, "at", "",
		"verification instant, RFC 3339 (default: current time)")
}

// Validate checks flag consistency before any file is touched.
func (o *VerifyOptions) Validate() error {
	if len(o.TrustAnchors) == 0 && o.PublicKeyPath == "" {
		return fmt.Errorf("trust material is required: set --trust-anchor or --public-key")
	}
	if err := utils.ValidateFilesExist("--trust-anchor", o.TrustAnchors); err != nil {
		return err
	}
	return utils.ValidateOptionalFile("--public-key", o.PublicKeyPath)
}

// DecodeExpectedNonce decodes the base64 nonce flag. Empty input yields nil.
func (o *VerifyOptions) DecodeExpectedNonce() ([]byte, error) {
	if o.ExpectedNonce == "" {
		return nil, nil
	}
	nonce, err := base64.StdEncoding.DecodeString(o.ExpectedNonce)
	if err != nil {
		return nil, fmt.Errorf("--nonce must be base64: %w", err)
	}
	return nonce, nil
}
