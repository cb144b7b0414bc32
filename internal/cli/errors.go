// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates that nobody is signed in
	ExitAuthError = 4
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a bad argument or flag value.
type UsageError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError is a missing conversation or other resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConfigError wraps a failure to load or save configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// errNotSignedIn is returned by commands that need a user.
var errNotSignedIn = errors.New("not signed in: set auth.user_id in the config or ALLY_USER_ID")

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError prints err in the standard CLI format.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var notFoundErr *NotFoundError
	var configErr *ConfigError
	var validationErr config.ValidationError
	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &notFoundErr), errors.Is(err, storage.ErrNotFound):
		return ExitNotFoundError
	case errors.As(err, &configErr), errors.As(err, &validationErr):
		return ExitConfigError
	case errors.Is(err, errNotSignedIn), errors.Is(err, storage.ErrUnauthenticated):
		return ExitAuthError
	}
	return ExitGeneralError
}
