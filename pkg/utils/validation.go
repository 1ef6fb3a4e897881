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

// Package utils holds small helpers shared by the CLI layer: flag and
// path validation, and masking of sensitive values in log output.
package utils

import (
	"fmt"
	"os"
)

// ValidateFileExists validates that a path is set, exists, and is a
// regular file. Returns a descriptive error naming the field otherwise.
func ValidateFileExists(fieldName, path string) error {
	if path == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s %q does not exist", fieldName, path)
		}
		return fmt.Errorf("checking %s %q: %w", fieldName, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s %q is a directory, expected file", fieldName, path)
	}
	return nil
}

// ValidateOptionalFile validates a file path only if it is not empty.
// Useful for optional flags.
func ValidateOptionalFile(fieldName, path string) error {
	if path == "" {
		return nil
	}
	return ValidateFileExists(fieldName, path)
}

// ValidateFilesExist validates every path in the slice as a file. The
// first failure is returned with the field name indexed.
func ValidateFilesExist(fieldName string, paths []string) error {
	for i, path := range paths {
		if err := ValidateFileExists(fmt.Sprintf("%s[%d]", fieldName, i), path); err != nil {
			return err
		}
	}
	return nil
}
