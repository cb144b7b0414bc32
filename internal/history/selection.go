// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import "sort"

// Selection tracks selection mode and the checked conversation IDs.
// Per-row actions are only offered while Active is false.
type Selection struct {
	active  bool
	checked map[string]struct{}
}

// NewSelection returns an inactive selection.
func NewSelection() *Selection {
	return &Selection{checked: make(map[string]struct{})}
}

// Active reports whether selection mode is on.
func (s *Selection) Active() bool { return s.active }

// Toggle switches selection mode. Leaving it clears every check.
func (s *Selection) Toggle() {
	s.active = !s.active
	if !s.active {
		s.Clear()
	}
}

// Exit leaves selection mode.
func (s *Selection) Exit() {
	s.active = false
	s.Clear()
}

// ToggleItem flips the check on id. Ignored outside selection mode.
func (s *Selection) ToggleItem(id string) {
	if !s.active || id == "" {
		return
	}
	if _, ok := s.checked[id]; ok {
		delete(s.checked, id)
		return
	}
	s.checked[id] = struct{}{}
}

// IsChecked reports whether id is checked.
func (s *Selection) IsChecked(id string) bool {
	_, ok := s.checked[id]
	return ok
}

// SelectAll checks every id. Ignored outside selection mode.
func (s *Selection) SelectAll(ids []string) {
	if !s.active {
		return
	}
	for _, id := range ids {
		if id != "" {
			s.checked[id] = struct{}{}
		}
	}
}

// Clear unchecks everything without leaving selection mode.
func (s *Selection) Clear() {
	s.checked = make(map[string]struct{})
}

// Count returns the number of checked IDs.
func (s *Selection) Count() int { return len(s.checked) }

// IDs returns the checked IDs sorted.
func (s *Selection) IDs() []string {
	ids := make([]string, 0, len(s.checked))
	for id := range s.checked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Retain drops checks for IDs no longer present, as after a refresh.
func (s *Selection) Retain(ids []string) {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.checked[id]; ok {
			keep[id] = struct{}{}
		}
	}
	s.checked = keep
}
