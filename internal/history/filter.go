// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/aquaally/ally/internal/model"
)

// QuickFilter narrows the list independently of the search text.
type QuickFilter string

const (
	FilterAll         QuickFilter = "all"
	FilterPinned      QuickFilter = "pinned"
	FilterLast7Days   QuickFilter = "last7days"
	FilterHasAquarium QuickFilter = "has_aquarium"
)

// RecentWindow is the span covered by FilterLast7Days.
const RecentWindow = 7 * 24 * time.Hour

// QuickFilters lists the filters in display order.
func QuickFilters() []QuickFilter {
	return []QuickFilter{FilterAll, FilterPinned, FilterLast7Days, FilterHasAquarium}
}

// ParseQuickFilter accepts a filter name; empty means FilterAll.
func ParseQuickFilter(s string) (QuickFilter, error) {
	switch f := QuickFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPinned, FilterLast7Days, FilterHasAquarium:
		return f, nil
	default:
		return FilterAll, fmt.Errorf("unknown filter %q (want all, pinned, last7days or has_aquarium)", s)
	}
}

// Label is the chip text shown in the sidebar.
func (f QuickFilter) Label() string {
	switch f {
	case FilterPinned:
		return "Pinned"
	case FilterLast7Days:
		return "Last 7 days"
	case FilterHasAquarium:
		return "With aquarium"
	default:
		return "All"
	}
}

// Next cycles to the following filter.
func (f QuickFilter) Next() QuickFilter {
	all := QuickFilters()
	for i, q := range all {
		if q == f {
			return all[(i+1)%len(all)]
		}
	}
	return FilterAll
}

// Filter returns the conversations whose title or preview contains query,
// ignoring case, and which pass the quick filter. Order is preserved.
func Filter(convs []model.Conversation, query string, quick QuickFilter, now time.Time) []model.Conversation {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))

	out := make([]model.Conversation, 0, len(convs))
	for _, c := range convs {
		if !matchesQuick(c, quick, now) {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold.String(c.Title), needle) &&
			!strings.Contains(fold.String(c.LastMessagePreview), needle) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesQuick(c model.Conversation, quick QuickFilter, now time.Time) bool {
	switch quick {
	case FilterPinned:
		return c.IsPinned
	case FilterLast7Days:
		return !c.UpdatedAt.Before(now.Add(-RecentWindow))
	case FilterHasAquarium:
		return c.HasAquarium()
	default:
		return true
	}
}
