// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

// Notifier is the user-visible toast surface.
type Notifier interface {
	Success(title, description string)
	Error(title, description string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Success implements Notifier.
func (NopNotifier) Success(string, string) {}

// Error implements Notifier.
func (NopNotifier) Error(string, string) {}

// NotifierFuncs adapts two functions to a Notifier. Nil fields are skipped.
type NotifierFuncs struct {
	OnSuccess func(title, description string)
	OnError   func(title, description string)
}

// Success implements Notifier.
func (n NotifierFuncs) Success(title, description string) {
	if n.OnSuccess != nil {
		n.OnSuccess(title, description)
	}
}

// Error implements Notifier.
func (n NotifierFuncs) Error(title, description string) {
	if n.OnError != nil {
		n.OnError(title, description)
	}
}
