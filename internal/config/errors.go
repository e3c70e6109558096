package config

import "fmt"

// ConfigMissingError means there is no usable auth configuration: either no
// secrets source at all, no [auth] table, or a missing top-level key.
type ConfigMissingError struct {
	Key string
}

func (e *ConfigMissingError) Error() string {
	if e.Key == "" {
		return "auth credentials are missing; check your secrets configuration"
	}
	return fmt.Sprintf("auth credentials are missing %q; check your secrets configuration", e.Key)
}

// ProviderUnknownError means the named provider has no section in [auth].
type ProviderUnknownError struct {
	Provider string
}

func (e *ProviderUnknownError) Error() string {
	return fmt.Sprintf("auth credentials are missing %q; check your secrets configuration", e.Provider)
}

// ProviderMalformedError means the provider's entry is a scalar value where
// a table was expected.
type ProviderMalformedError struct {
	Provider string
}

func (e *ProviderMalformedError) Error() string {
	return fmt.Sprintf("auth credentials for %q must be a TOML table; check your secrets configuration", e.Provider)
}

// ProviderIncompleteError lists the required keys absent from the provider's
// section, in declaration order.
type ProviderIncompleteError struct {
	Provider    string
	MissingKeys []string
}

func (e *ProviderIncompleteError) Error() string {
	return fmt.Sprintf("auth credentials for %q are missing the following keys: %v; check your secrets configuration",
		e.Provider, e.MissingKeys)
}
