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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hm-edu/open-brski/pkg/envelope"
	"github.com/hm-edu/open-brski/pkg/providers/certutil"
	"github.com/hm-edu/open-brski/pkg/tracing"
)

// inspectReport is the JSON shape printed by the inspect command.
type inspectReport struct {
	PayloadType       string          `json:"payloadType"`
	Algorithm         string          `json:"algorithm"`
	CertificateChain  []inspectCert   `json:"certificateChain,omitempty"`
	Claims            json.RawMessage `json:"claims"`
	SignatureVerified bool            `json:"signatureVerified"`
}

type inspectCert struct {
	Subject     string `json:"subject"`
	Issuer      string `json:"issuer"`
	NotBefore   string `json:"notBefore"`
	NotAfter    string `json:"notAfter"`
	Fingerprint string `json:"sha256Fingerprint"`
}

// Inspect creates the inspect command. It structurally parses a voucher
// artifact and prints its metadata and claims WITHOUT verifying the
// signature, for debugging and audit tooling.
//
// Returns a *cobra.Command configured for artifact inspection.
func Inspect() *cobra.Command {
	long := `Inspect a signed voucher without verifying it.

Structurally parses the artifact at ARTIFACT_PATH and prints the envelope
metadata, the embedded certificate chain, and the raw claims as JSON.

The signature is NOT checked; the report always carries
"signatureVerified": false to keep inspection output from being mistaken
for a verification result. Use the verify command to establish trust.`

	cmd := &cobra.Command{
		Use:   "inspect ARTIFACT_PATH",
		Short: "Inspect a signed voucher without verifying it.",
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs := map[string]interface{}{
				"voucher.artifact": args[0],
			}
			return tracing.Run(cmd.Context(), "Inspect", attrs, func(ctx context.Context) error {
				return runInspect(ctx, args[0])
			})
		},
	}

	return cmd
}

func runInspect(_ context.Context, artifactPath string) error {
	artifact, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	env, err := envelope.Parse(artifact)
	if err != nil {
		return err
	}

	report := inspectReport{
		PayloadType: envelope.PayloadType,
		Algorithm:   env.Algorithm().String(),
		Claims:      json.RawMessage(env.Payload()),
	}

	for i, der := range env.CertificateChain() {
		cert, err := certutil.ParseCertificate(der)
		if err != nil {
			return fmt.Errorf("embedded certificate %d is not parseable: %w", i, err)
		}
		report.CertificateChain = append(report.CertificateChain, inspectCert{
			Subject:     cert.Subject.String(),
			Issuer:      cert.Issuer.String(),
			NotBefore:   cert.NotBefore.UTC().Format("2006-01-02T15:04:05Z"),
			NotAfter:    cert.NotAfter.UTC().Format("2006-01-02T15:04:05Z"),
			Fingerprint: certutil.Fingerprint(cert),
		})
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
