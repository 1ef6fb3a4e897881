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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hm-edu/open-brski/pkg/providers"
	"github.com/hm-edu/open-brski/pkg/providers/primitive"
	"github.com/hm-edu/open-brski/pkg/providers/toolkit"
)

// ValidProviders lists the selectable crypto provider names.
var ValidProviders = []string{"toolkit", "primitive"}

// CommonCryptoFlags holds the crypto provider selection shared by the
// issue and verify commands.
type CommonCryptoFlags struct {
	// ProviderName selects the crypto backend (toolkit, primitive).
	ProviderName string // --provider
}

// AddFlags registers the shared crypto flags on the command.
func (o *CommonCryptoFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.ProviderName, "provider", "toolkit",
		"crypto provider backend (toolkit, primitive)")
}

// NewProvider instantiates the selected crypto provider.
// Returns an error naming the valid choices for unknown input.
func (o *CommonCryptoFlags) NewProvider() (providers.Provider, error) {
	switch o.ProviderName {
	case "", "toolkit":
		return toolkit.New(), nil
	case "primitive":
		return primitive.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (valid: %v)", o.ProviderName, ValidProviders)
	}
}

// ParseTimeFlag parses an RFC 3339 timestamp flag value. An empty value
// returns the zero time with no error so callers can apply their default.
func ParseTimeFlag(fieldName, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC 3339 (e.g. 2025-01-02T15:04:05Z): %w", fieldName, err)
	}
	return t, nil
}
