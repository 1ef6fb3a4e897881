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
	"crypto/x509"
	"fmt"
	"os"

	"github.com/hm-edu/open-brski/pkg/providers/certutil"
)

// CertificateConfig handles certificate file configuration.
//
// Each path may hold a single certificate (DER or PEM) or a PEM bundle;
// bundles are flattened into the combined result in file order.
type CertificateConfig struct {
	// Paths are the certificate files to load, in order. The first
	// certificate of the first file is the leaf when the result is used
	// as a signing chain.
	Paths []string
}

// LoadCertificates loads and parses all configured certificate files.
//
// Returns the parsed certificates in configuration order, or an error if
// any file cannot be read or parsed. An empty configuration yields an
// empty slice, not an error.
func (c *CertificateConfig) LoadCertificates() ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for _, path := range c.Paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read certificate file %q: %w", path, err)
		}
		parsed, err := certutil.ParseCertificates(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate file %q: %w", path, err)
		}
		certs = append(certs, parsed...)
	}
	return certs, nil
}

// TrustAnchorConfig handles trust-anchor file configuration for
// verification. It is a CertificateConfig that additionally rejects an
// empty result, since verifying a chained artifact against zero anchors
// is always a caller mistake.
type TrustAnchorConfig struct {
	// Paths are the trust-anchor certificate files.
	Paths []string
}

// LoadTrustAnchors loads the configured trust anchors.
//
// Returns the parsed anchor certificates, or an error if no paths are
// configured, or any file cannot be read or parsed.
func (c *TrustAnchorConfig) LoadTrustAnchors() ([]*x509.Certificate, error) {
	if len(c.Paths) == 0 {
		return nil, fmt.Errorf("at least one trust anchor is required")
	}
	cc := CertificateConfig{Paths: c.Paths}
	anchors, err := cc.LoadCertificates()
	if err != nil {
		return nil, err
	}
	if len(anchors) == 0 {
		return nil, fmt.Errorf("trust anchor files contained no certificates")
	}
	return anchors, nil
}
