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

package verify

import (
	"errors"
	"fmt"
)

// Failure categorizes a verification rejection by the pipeline stage that
// produced it. Signature-invalid and untrusted-signer are always kept
// distinct from each other and from policy failures so callers can log
// precise rejection reasons.
type Failure int

const (
	// FailureUnknown indicates an unclassified error.
	FailureUnknown Failure = iota

	// FailureMalformed indicates the artifact failed structural parsing.
	FailureMalformed

	// FailureSignatureInvalid indicates the cryptographic signature did
	// not verify against the resolved key.
	FailureSignatureInvalid

	// FailureUntrustedSigner indicates the embedded certificate does not
	// chain to any supplied trust anchor.
	FailureUntrustedSigner

	// FailureMalformedClaims indicates the verified payload did not
	// decode into a valid claim-set.
	FailureMalformedClaims

	// FailureExpired indicates the injected current time falls outside
	// the voucher's validity window.
	FailureExpired

	// FailureNonceMismatch indicates the voucher nonce does not equal the
	// caller's expected nonce.
	FailureNonceMismatch

	// FailureSerialMismatch indicates the voucher serial-number does not
	// equal the caller's expected serial.
	FailureSerialMismatch
)

// String returns a human-readable name for the failure.
func (f Failure) String() string {
	switch f {
	case FailureMalformed:
		return "Malformed"
	case FailureSignatureInvalid:
		return "SignatureInvalid"
	case FailureUntrustedSigner:
		return "UntrustedSigner"
	case FailureMalformedClaims:
		return "MalformedClaims"
	case FailureExpired:
		return "Expired"
	case FailureNonceMismatch:
		return "NonceMismatch"
	case FailureSerialMismatch:
		return "SerialMismatch"
	default:
		return "Unknown"
	}
}

// PipelineError is the stage-tagged error returned by Verify. Exactly one
// Failure applies per rejection; stages after the failing one are never
// evaluated.
type PipelineError struct {
	// Failure identifies the failing pipeline stage or policy check.
	Failure Failure

	// Message is a human-readable description of what was rejected.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Failure, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Failure, e.Message)
}

// Unwrap returns the underlying cause for error chain unwrapping.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// IsFailure reports whether err is a PipelineError with the given failure.
func IsFailure(err error, f Failure) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Failure == f
	}
	return false
}

// failf builds a stage-tagged error.
func failf(f Failure, cause error, format string, args ...interface{}) *PipelineError {
	return &PipelineError{
		Failure: f,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}
