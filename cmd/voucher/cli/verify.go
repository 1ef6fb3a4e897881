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
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hm-edu/open-brski/cmd/voucher/cli/options"
	"github.com/hm-edu/open-brski/pkg/config"
	"github.com/hm-edu/open-brski/pkg/logging"
	"github.com/hm-edu/open-brski/pkg/tracing"
	"github.com/hm-edu/open-brski/pkg/verify"
)

// Verify creates the verify command. It runs the full verification
// pipeline over a voucher artifact: structure, signature, trust chain,
// claims, and policy bindings.
//
// Returns a *cobra.Command configured for voucher verification.
func Verify() *cobra.Command {
	o := &options.VerifyOptions{}

	long := `Verify a signed voucher.

Verifies the artifact at ARTIFACT_PATH: envelope structure, signature over
the canonical claims, the signer's chain to a trust anchor, claim-set
validity, and the nonce/serial bindings of this bootstrap attempt.

When the artifact embeds the signer certificate, pass the trusted MASA
certificates via --trust-anchor. For artifacts without an embedded
certificate, pass the signer key via --public-key.

The validity window is checked against --at, defaulting to the current
time. Rejections name the failing stage; an invalid signature is always
reported distinctly from an untrusted signer.`

	cmd := &cobra.Command{
		Use:   "verify [OPTIONS] ARTIFACT_PATH",
		Short: "Verify a signed voucher.",
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(); err != nil {
				return err
			}
			attrs := map[string]interface{}{
				"voucher.artifact":      args[0],
				"voucher.provider":      o.ProviderName,
				"voucher.trust_anchors": len(o.TrustAnchors),
				"voucher.serial_number": o.ExpectedSerial,
			}
			return tracing.Run(cmd.Context(), "Verify", attrs, func(ctx context.Context) error {
				return runVerify(ctx, o, args[0])
			})
		},
	}

	o.AddFlags(cmd)
	return cmd
}

func runVerify(_ context.Context, o *options.VerifyOptions, artifactPath string) error {
	logger := ro.NewLogger()

	artifact, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	provider, err := o.NewProvider()
	if err != nil {
		return err
	}

	var anchors []*x509.Certificate
	if len(o.TrustAnchors) > 0 {
		tc := config.TrustAnchorConfig{Paths: o.TrustAnchors}
		anchors, err = tc.LoadTrustAnchors()
		if err != nil {
			return err
		}
	}

	var pub crypto.PublicKey
	if o.PublicKeyPath != "" {
		kc := config.KeyConfig{Path: o.PublicKeyPath}
		pub, err = kc.LoadPublicKey()
		if err != nil {
			return err
		}
	}

	nonce, err := o.DecodeExpectedNonce()
	if err != nil {
		return err
	}

	at, err := options.ParseTimeFlag("--at", o.At)
	if err != nil {
		return err
	}
	if at.IsZero() {
		at = time.Now()
	}

	v, err := verify.Verify(artifact, verify.Options{
		Provider:       provider,
		TrustAnchors:   anchors,
		VerifyingKey:   pub,
		ExpectedNonce:  nonce,
		ExpectedSerial: o.ExpectedSerial,
		CurrentTime:    at,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("voucher verification FAILED: %w", err)
	}

	if ro.GetLogLevel() < logging.LevelSilent {
		fmt.Printf("voucher verification OK: serial-number %q, assertion %s\n",
			v.SerialNumber(), v.Assertion())
	}
	return nil
}
