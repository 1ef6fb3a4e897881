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

package cli

import (
	"context"
	"crypto"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hm-edu/open-brski/cmd/voucher/cli/options"
	"github.com/hm-edu/open-brski/pkg/config"
	"github.com/hm-edu/open-brski/pkg/providers"
	"github.com/hm-edu/open-brski/pkg/providers/certutil"
	"github.com/hm-edu/open-brski/pkg/providers/primitive"
	"github.com/hm-edu/open-brski/pkg/signing"
	"github.com/hm-edu/open-brski/pkg/signing/pkcs11"
	"github.com/hm-edu/open-brski/pkg/tracing"
	"github.com/hm-edu/open-brski/pkg/utils"
	"github.com/hm-edu/open-brski/pkg/voucher"
)

// Issue creates the issue command. It builds a voucher claim-set from
// flags, signs it with a file-based or HSM-held MASA key, and writes the
// signed artifact.
//
// Returns a *cobra.Command configured for voucher issuance.
func Issue() *cobra.Command {
	o := &options.IssueOptions{}

	long := `Issue a signed voucher.

Builds a voucher claim-set from the given flags, validates its invariants,
signs the canonical encoding with the MASA key, and writes the resulting
artifact to --output (or stdout).

The signing key comes from a PEM file (--key) or from a PKCS#11 token
(--pkcs11-module and friends). Pass the MASA certificate chain, leaf
first, via --certificate-chain so verifiers can validate the artifact
without out-of-band signer material.`

	cmd := &cobra.Command{
		Use:   "issue [OPTIONS]",
		Short: "Issue a signed voucher.",
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.Validate(); err != nil {
				return err
			}
			attrs := map[string]interface{}{
				"voucher.assertion":     o.Assertion,
				"voucher.serial_number": o.SerialNumber,
				"voucher.algorithm":     o.Algorithm,
				"voucher.provider":      o.ProviderName,
				"voucher.pkcs11":        o.UsesPKCS11(),
			}
			return tracing.Run(cmd.Context(), "Issue", attrs, func(ctx context.Context) error {
				return runIssue(ctx, o)
			})
		},
	}

	o.AddFlags(cmd)
	return cmd
}

func runIssue(_ context.Context, o *options.IssueOptions) error {
	logger := ro.NewLogger()

	v, err := buildVoucher(o)
	if err != nil {
		return err
	}

	provider, err := o.NewProvider()
	if err != nil {
		return err
	}

	alg, err := providers.ParseAlgorithm(o.Algorithm)
	if err != nil {
		return err
	}

	var key crypto.PrivateKey
	if o.UsesPKCS11() {
		keyID, err := o.DecodeKeyID()
		if err != nil {
			return err
		}
		kp, err := pkcs11.OpenKeyPair(pkcs11.Config{
			ModulePath: o.PKCS11Module,
			TokenLabel: o.PKCS11Token,
			PIN:        o.PKCS11PIN,
			KeyID:      keyID,
			KeyLabel:   o.PKCS11KeyLabel,
		})
		if err != nil {
			return fmt.Errorf("failed to open PKCS#11 key (pin %s): %w", utils.MaskSecret(o.PKCS11PIN), err)
		}
		defer func() { _ = kp.Close() }()
		key = kp.Signer()

		// Token-held keys are opaque signers; only the primitive
		// provider can drive them.
		if o.ProviderName != "primitive" {
			logger.Debug("switching to primitive provider for PKCS#11 signing")
			provider = primitive.New()
		}
	} else {
		kc := config.KeyConfig{Path: o.KeyPath, Password: o.KeyPassword}
		key, err = kc.LoadPrivateKey()
		if err != nil {
			return err
		}
	}

	cc := config.CertificateConfig{Paths: o.CertificateChain}
	chain, err := cc.LoadCertificates()
	if err != nil {
		return err
	}

	env, err := signing.Sign(v, key, signing.SignerConfig{
		Provider:         provider,
		Algorithm:        alg,
		IncludeChain:     o.EmbedChain && len(chain) > 0,
		CertificateChain: chain,
	})
	if err != nil {
		return err
	}

	raw, err := env.Marshal()
	if err != nil {
		return err
	}

	if o.OutputPath != "" {
		if err := os.WriteFile(o.OutputPath, raw, 0o644); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
		logger.Info("signed voucher written to %s", o.OutputPath)
		return nil
	}

	fmt.Println(string(raw))
	return nil
}

// buildVoucher translates the issue flags into a validated claim-set.
func buildVoucher(o *options.IssueOptions) (*voucher.Voucher, error) {
	assertion, ok := voucher.ParseAssertion(o.Assertion)
	if !ok {
		return nil, fmt.Errorf("unknown assertion %q (valid: verified, logged, proximity)", o.Assertion)
	}

	createdOn, err := options.ParseTimeFlag("--created-on", o.CreatedOn)
	if err != nil {
		return nil, err
	}
	if createdOn.IsZero() {
		createdOn = time.Now()
	}
	expiresOn, err := options.ParseTimeFlag("--expires-on", o.ExpiresOn)
	if err != nil {
		return nil, err
	}
	lastRenewal, err := options.ParseTimeFlag("--last-renewal-date", o.LastRenewalDate)
	if err != nil {
		return nil, err
	}

	nonce, err := o.DecodeNonce()
	if err != nil {
		return nil, err
	}
	idevidIssuer, err := o.DecodeIdevidIssuer()
	if err != nil {
		return nil, err
	}

	b := voucher.NewBuilder().
		Assertion(assertion).
		CreatedOn(createdOn).
		SerialNumber(o.SerialNumber)

	if o.Strict {
		b.Strict()
	}
	if !expiresOn.IsZero() {
		b.ExpiresOn(expiresOn)
	}
	if !lastRenewal.IsZero() {
		b.LastRenewalDate(lastRenewal)
	}
	if len(nonce) > 0 {
		b.Nonce(nonce)
	}
	if len(idevidIssuer) > 0 {
		b.IdevidIssuer(idevidIssuer)
	}
	if o.PinnedDomainCert != "" {
		der, err := readCertificateDER(o.PinnedDomainCert)
		if err != nil {
			return nil, fmt.Errorf("--pinned-domain-cert: %w", err)
		}
		b.PinnedDomainCert(der)
	}
	if o.PinnedDomainSPKI != "" {
		spki, err := readKeyMaterial(o.PinnedDomainSPKI)
		if err != nil {
			return nil, fmt.Errorf("--pinned-domain-public-key: %w", err)
		}
		b.PinnedDomainSubjectPublicKeyInfo(spki)
	}
	if o.RevocationChecks {
		b.DomainCertRevocationChecks(true)
	}
	if o.PriorSignedPath != "" {
		prior, err := os.ReadFile(o.PriorSignedPath)
		if err != nil {
			return nil, fmt.Errorf("--prior-signed-request: %w", err)
		}
		b.PriorSignedVoucherRequest(prior)
	}
	if o.ProximityCert != "" {
		der, err := readCertificateDER(o.ProximityCert)
		if err != nil {
			return nil, fmt.Errorf("--proximity-registrar-cert: %w", err)
		}
		b.ProximityRegistrarCert(der)
	}

	return b.Build()
}

// readCertificateDER reads a certificate file (PEM or DER) and returns the
// DER encoding, which is what the claim-set pins.
func readCertificateDER(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cert, err := certutil.ParseCertificate(data)
	if err != nil {
		return nil, err
	}
	return cert.Raw, nil
}

// readKeyMaterial reads a SubjectPublicKeyInfo file, unwrapping a PEM
// block when present.
func readKeyMaterial(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(data); block != nil {
		return block.Bytes, nil
	}
	return data, nil
}
