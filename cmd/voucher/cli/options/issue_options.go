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
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hm-edu/open-brski/pkg/providers"
	"github.com/hm-edu/open-brski/pkg/utils"
)

// IssueOptions defines flags for the issue command: the claim values, the
// signing credentials, and the artifact destination.
type IssueOptions struct {
	CommonCryptoFlags

	// Claim fields.
	Assertion        string // --assertion (required)
	SerialNumber     string // --serial-number (required)
	CreatedOn        string // --created-on (default: now)
	ExpiresOn        string // --expires-on
	Nonce            string // --nonce (base64)
	IdevidIssuer     string // --idevid-issuer (base64)
	PinnedDomainCert string // --pinned-domain-cert (file)
	PinnedDomainSPKI string // --pinned-domain-public-key (file)
	RevocationChecks bool   // --domain-cert-revocation-checks
	LastRenewalDate  string // --last-renewal-date
	PriorSignedPath  string // --prior-signed-request (file)
	ProximityCert    string // --proximity-registrar-cert (file)
	Strict           bool   // --strict

	// Signing credentials.
	KeyPath          string   // --key
	KeyPassword      string   // --key-password
	Algorithm        string   // --algorithm
	CertificateChain []string // --certificate-chain
	EmbedChain       bool     // --embed-chain

	// PKCS#11 signing, alternative to --key.
	PKCS11Module   string // --pkcs11-module
	PKCS11Token    string // --pkcs11-token
	PKCS11PIN      string // --pkcs11-pin
	PKCS11KeyID    string // --pkcs11-key-id (hex)
	PKCS11KeyLabel string // --pkcs11-key-label

	// OutputPath receives the signed artifact. Stdout when empty.
	OutputPath string // --output
}

var _ Interface = (*IssueOptions)(nil)

// AddFlags registers the issue flags on the cobra command.
func (o *IssueOptions) AddFlags(cmd *cobra.Command) {
	o.CommonCryptoFlags.AddFlags(cmd)

	cmd.Flags().StringVar(&o.Assertion, "assertion", "",
		"trust-establishment assertion (verified, logged, proximity)")
	_ = cmd.MarkFlagRequired("assertion")
	cmd.Flags().StringVar(&o.SerialNumber, "serial-number", "",
		"serial number of the pledge the voucher is issued for")
	_ = cmd.MarkFlagRequired("serial-number")
	cmd.Flags().StringVar(&o.CreatedOn, "created-on", "",
		"issuance timestamp, RFC 3339 (default: current time)")
	cmd.Flags().StringVar(&o.ExpiresOn, "expires-on", "",
		"expiry timestamp, RFC 3339 (omit for nonced one-time vouchers)")
	cmd.Flags().StringVar(&o.Nonce, "nonce", "",
		"base64 replay-defense nonce from the pledge")
	cmd.Flags().StringVar(&o.IdevidIssuer, "idevid-issuer", "",
		"base64 IDevID issuer authority key identifier")
	cmd.Flags().StringVar(&o.PinnedDomainCert, "pinned-domain-cert", "",
		"file with the domain CA certificate to pin")
	_ = cmd.MarkFlagFilename("pinned-domain-cert")
	cmd.Flags().StringVar(&o.PinnedDomainSPKI, "pinned-domain-public-key", "",
		"file with the domain SubjectPublicKeyInfo to pin (alternative to --pinned-domain-cert)")
	_ = cmd.MarkFlagFilename("pinned-domain-public-key")
	cmd.Flags().BoolVar(&o.RevocationChecks, "domain-cert-revocation-checks", false,
		"instruct the pledge to perform revocation checks on the pinned domain certificate")
	cmd.Flags().StringVar(&o.LastRenewalDate, "last-renewal-date", "",
		"renewal timestamp for reissued vouchers, RFC 3339")
	cmd.Flags().StringVar(&o.PriorSignedPath, "prior-signed-request", "",
		"file with the prior signed voucher-request to embed")
	_ = cmd.MarkFlagFilename("prior-signed-request")
	cmd.Flags().StringVar(&o.ProximityCert, "proximity-registrar-cert", "",
		"file with the registrar certificate observed by the pledge")
	_ = cmd.MarkFlagFilename("proximity-registrar-cert")
	cmd.Flags().BoolVar(&o.Strict, "strict", false,
		"enforce the strict profile: exactly one of nonce and expires-on")

	cmd.Flags().StringVar(&o.KeyPath, "key", "",
		"file with the PEM signing key")
	_ = cmd.MarkFlagFilename("key")
	cmd.Flags().StringVar(&o.KeyPassword, "key-password", "",
		"password for an encrypted signing key")
	cmd.Flags().StringVar(&o.Algorithm, "algorithm", providers.AlgorithmES256.String(),
		"signature algorithm (es256, es384, es512, ed25519, rs256)")
	cmd.Flags().StringSliceVar(&o.CertificateChain, "certificate-chain", nil,
		"signer certificate chain files, leaf first (repeatable)")
	cmd.Flags().BoolVar(&o.EmbedChain, "embed-chain", true,
		"embed the certificate chain in the artifact")

	cmd.Flags().StringVar(&o.PKCS11Module, "pkcs11-module", "",
		"path to a PKCS#11 module for HSM-held signing keys")
	_ = cmd.MarkFlagFilename("pkcs11-module")
	cmd.Flags().StringVar(&o.PKCS11Token, "pkcs11-token", "",
		"PKCS#11 token label")
	cmd.Flags().StringVar(&o.PKCS11PIN, "pkcs11-pin", "",
		"PKCS#11 PIN (or set PKCS11_PIN)")
	cmd.Flags().StringVar(&o.PKCS11KeyID, "pkcs11-key-id", "",
		"hex CKA_ID of the signing key pair")
	cmd.Flags().StringVar(&o.PKCS11KeyLabel, "pkcs11-key-label", "",
		"CKA_LABEL of the signing key pair")

	cmd.Flags().StringVarP(&o.OutputPath, "output", "o", "",
		"write the signed artifact to a file instead of stdout")
	_ = cmd.MarkFlagFilename("output")
}

// UsesPKCS11 reports whether the signing key lives in a PKCS#11 token.
func (o *IssueOptions) UsesPKCS11() bool {
	return o.PKCS11Module != ""
}

// Validate checks flag consistency before any file or token is touched.
func (o *IssueOptions) Validate() error {
	if o.KeyPath == "" && !o.UsesPKCS11() {
		return fmt.Errorf("a signing key is required: set --key or --pkcs11-module")
	}
	if o.KeyPath != "" && o.UsesPKCS11() {
		return fmt.Errorf("--key and --pkcs11-module are mutually exclusive")
	}
	if o.KeyPath != "" {
		if err := utils.ValidateFileExists("--key", o.KeyPath); err != nil {
			return err
		}
	}
	if err := utils.ValidateOptionalFile("--pinned-domain-cert", o.PinnedDomainCert); err != nil {
		return err
	}
	if err := utils.ValidateOptionalFile("--pinned-domain-public-key", o.PinnedDomainSPKI); err != nil {
		return err
	}
	if err := utils.ValidateOptionalFile("--prior-signed-request", o.PriorSignedPath); err != nil {
		return err
	}
	if err := utils.ValidateOptionalFile("--proximity-registrar-cert", o.ProximityCert); err != nil {
		return err
	}
	return utils.ValidateFilesExist("--certificate-chain", o.CertificateChain)
}

// DecodeNonce decodes the base64 nonce flag. Empty input yields nil.
func (o *IssueOptions) DecodeNonce() ([]byte, error) {
	if o.Nonce == "" {
		return nil, nil
	}
	nonce, err := base64.StdEncoding.DecodeString(o.Nonce)
	if err != nil {
		return nil, fmt.Errorf("--nonce must be base64: %w", err)
	}
	return nonce, nil
}

// DecodeIdevidIssuer decodes the base64 IDevID issuer flag. Empty input
// yields nil.
func (o *IssueOptions) DecodeIdevidIssuer() ([]byte, error) {
	if o.IdevidIssuer == "" {
		return nil, nil
	}
	issuer, err := base64.StdEncoding.DecodeString(o.IdevidIssuer)
	if err != nil {
		return nil, fmt.Errorf("--idevid-issuer must be base64: %w", err)
	}
	return issuer, nil
}

// DecodeKeyID decodes the hex PKCS#11 key ID flag. Empty input yields nil.
func (o *IssueOptions) DecodeKeyID() ([]byte, error) {
	if o.PKCS11KeyID == "" {
		return nil, nil
	}
	id, err := hex.DecodeString(o.PKCS11KeyID)
	if err != nil {
		return nil, fmt.Errorf("--pkcs11-key-id must be hex: %w", err)
	}
	return id, nil
}
