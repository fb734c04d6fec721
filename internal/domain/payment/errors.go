package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotConfigured indicates no ProviderConfig row exists for the provider
	ErrProviderNotConfigured = errors.New("payment: provider not configured")
	// ErrActionNotConfigured indicates the config row has no params for the requested action
	ErrActionNotConfigured = errors.New("payment: action not configured for provider")
	// ErrOptionMissing indicates a selector referenced an option key that is absent
	ErrOptionMissing = errors.New("payment: referenced option is not set")
	// ErrInvoiceAlreadyPaid indicates a mutation was attempted on a paid invoice
	ErrInvoiceAlreadyPaid = errors.New("payment: invoice already paid")
	// ErrEmptyAuthResponse indicates the auth sub-call returned no extractable credentials
	ErrEmptyAuthResponse = errors.New("payment: auth response contained no credentials")
)

// ConfigError indicates a missing or invalid ProviderConfig row. It is fatal
// to the call and must never expose stored config values to the caller.
type ConfigError struct {
	Provider Provider
	Reason   string
	Err      error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment: config error for %s: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("payment: config error for %s: %s", e.Provider, e.Reason)
}

// Unwrap returns the wrapped error
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for the given provider
func NewConfigError(provider Provider, reason string, err error) *ConfigError {
	return &ConfigError{Provider: provider, Reason: reason, Err: err}
}

// AuthError indicates the authentication sub-flow failed or produced no
// usable token. The call fails fast; proceeding with an empty token is
// never allowed.
type AuthError struct {
	Provider Provider
	Err      error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("payment: auth failed for %s: %v", e.Provider, e.Err)
}

// Unwrap returns the wrapped error
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates an AuthError for the given provider
func NewAuthError(provider Provider, err error) *AuthError {
	return &AuthError{Provider: provider, Err: err}
}

// ConditionFailure indicates a declared success condition evaluated false.
// Message is the localized text stored in the config row; Response carries
// the raw provider payload for the audit trail, never for end users.
type ConditionFailure struct {
	Provider Provider
	Message  string
	Response string
}

// Error implements the error interface
func (e *ConditionFailure) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("payment: provider %s rejected the request", e.Provider)
}

// NewConditionFailure creates a ConditionFailure
func NewConditionFailure(provider Provider, message, response string) *ConditionFailure {
	return &ConditionFailure{Provider: provider, Message: message, Response: response}
}

// NetworkError indicates a transport-level failure with no usable response
type NetworkError struct {
	Provider Provider
	Action   Action
	Err      error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("payment: %s request to %s failed: %v", e.Action, e.Provider, e.Err)
}

// Unwrap returns the wrapped error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a NetworkError
func NewNetworkError(provider Provider, action Action, err error) *NetworkError {
	return &NetworkError{Provider: provider, Action: action, Err: err}
}
