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

// Package certutil provides standalone certificate parsing shared by the
// crypto provider backends and the file-based configuration layer. It exists
// as its own package because the primitive backend deliberately carries no
// X.509 code of its own and pairs with this parser instead.
package certutil

import (
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
)

// ParseCertificate parses a single certificate from DER bytes, falling back
// to PEM if the input is not valid DER. Voucher artifacts embed DER, while
// operator-supplied files are commonly PEM; accepting both here keeps the
// callers format-agnostic.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty certificate data")
	}

	if cert, err := x509.ParseCertificate(data); err == nil {
		return cert, nil
	}

	certs, err := cryptoutils.UnmarshalCertificatesFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate (tried DER and PEM): %w", err)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificates found in PEM input")
	}

	return certs[0], nil
}

// ParseCertificates parses one or more certificates from PEM input,
// falling back to a single DER certificate if no PEM blocks are present.
func ParseCertificates(data []byte) ([]*x509.Certificate, error) {
	certs, err := cryptoutils.UnmarshalCertificatesFromPEM(data)
	if err == nil && len(certs) > 0 {
		return certs, nil
	}

	cert, derErr := x509.ParseCertificate(data)
	if derErr != nil {
		return nil, fmt.Errorf("failed to parse certificates (tried PEM and DER): %w", derErr)
	}

	return []*x509.Certificate{cert}, nil
}

// Fingerprint returns the SHA-256 fingerprint of a certificate's DER bytes,
// formatted as uppercase hex. Used for debug logging of chain material.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return fmt.Sprintf("%X", sum)
}
