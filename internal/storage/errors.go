// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import "github.com/google/uuid"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a row doesn't exist for the user.
	// Use errors.Is(err, ErrNotFound) to check for this error.
	ErrNotFound = &StoreError{Message: "not found"}

	// ErrUnauthenticated is returned when no user ID is given.
	ErrUnauthenticated = &StoreError{Message: "unauthenticated"}
)

// StoreError represents a storage-level error.
// It implements the error interface and can be compared using errors.Is.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return "storage: " + e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

func newID() string {
	return uuid.NewString()
}
