// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquaally/ally/internal/model"
)

var now = time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC)

func conv(id, title, preview string, updated time.Time) model.Conversation {
	return model.Conversation{ID: id, Title: title, LastMessagePreview: preview, UpdatedAt: updated}
}

func ids(convs []model.Conversation) []string {
	out := make([]string, len(convs))
	for i, c := range convs {
		out[i] = c.ID
	}
	return out
}

// =============================================================================
// FILTER TESTS
// =============================================================================

func TestFilter(t *testing.T) {
	tank := "tank-1"
	pinned := conv("p", "Reef pH", "Aim for 8.2", now.AddDate(0, 0, -30))
	pinned.IsPinned = true
	withTank := conv("a", "Cloudy water", "Check AMMONIA levels", now.Add(-2*time.Hour))
	withTank.AquariumID = &tank
	old := conv("o", "Pond pump", "Clean the impeller", now.AddDate(0, 0, -9))
	convs := []model.Conversation{pinned, withTank, old}

	tests := []struct {
		name  string
		query string
		quick QuickFilter
		want  []string
	}{
		{"all", "", FilterAll, []string{"p", "a", "o"}},
		{"title match ignores case", "reef", FilterAll, []string{"p"}},
		{"preview match", "ammonia", FilterAll, []string{"a"}},
		{"pinned", "", FilterPinned, []string{"p"}},
		{"last 7 days", "", FilterLast7Days, []string{"a"}},
		{"has aquarium", "", FilterHasAquarium, []string{"a"}},
		{"query and quick combine", "pump", FilterLast7Days, []string{}},
		{"whitespace query", "   ", FilterAll, []string{"p", "a", "o"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Filter(convs, tc.query, tc.quick, now)))
		})
	}
}

func TestFilter_UnicodeFolding(t *testing.T) {
	convs := []model.Conversation{conv("g", "Große Teichpflege", "", now)}
	assert.Len(t, Filter(convs, "GROSSE", FilterAll, now), 1)
	assert.Len(t, Filter(convs, "teich", FilterAll, now), 1)
}

func TestParseQuickFilter(t *testing.T) {
	f, err := ParseQuickFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParseQuickFilter(" Pinned ")
	require.NoError(t, err)
	assert.Equal(t, FilterPinned, f)

	_, err = ParseQuickFilter("starred")
	assert.Error(t, err)
}

func TestQuickFilter_NextCycles(t *testing.T) {
	f := FilterAll
	for range QuickFilters() {
		f = f.Next()
	}
	assert.Equal(t, FilterAll, f)
	assert.Equal(t, "Last 7 days", FilterLast7Days.Label())
}

// =============================================================================
// GROUP TESTS
// =============================================================================

func TestBucketFor(t *testing.T) {
	midnight := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		updated time.Time
		want    Bucket
	}{
		{"earlier today", now.Add(-time.Hour), BucketToday},
		{"exactly midnight", midnight, BucketToday},
		{"just before midnight", midnight.Add(-time.Second), BucketYesterday},
		{"start of yesterday", midnight.AddDate(0, 0, -1), BucketYesterday},
		{"just before yesterday", midnight.AddDate(0, 0, -1).Add(-time.Second), BucketLastWeek},
		{"three days ago", midnight.AddDate(0, 0, -3), BucketLastWeek},
		{"seven days ago", midnight.AddDate(0, 0, -7), BucketLastWeek},
		{"eight days ago", midnight.AddDate(0, 0, -7).Add(-time.Second), BucketOlder},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BucketFor(conv("x", "t", "", tc.updated), now))
		})
	}
}

func TestGroupByDate(t *testing.T) {
	pinned := conv("p", "pinned", "", now.Add(-time.Minute))
	pinned.IsPinned = true
	convs := []model.Conversation{
		pinned,
		conv("t1", "today", "", now.Add(-time.Hour)),
		conv("t2", "today too", "", now.Add(-2*time.Hour)),
		conv("o", "older", "", now.AddDate(0, -2, 0)),
	}

	groups := GroupByDate(convs, now)
	require.Len(t, groups, 3)
	assert.Equal(t, BucketPinned, groups[0].Bucket)
	assert.Equal(t, BucketToday, groups[1].Bucket)
	assert.Equal(t, []string{"t1", "t2"}, ids(groups[1].Conversations))
	assert.Equal(t, BucketOlder, groups[2].Bucket)

	assert.Empty(t, GroupByDate(nil, now))
}

// =============================================================================
// SELECTION TESTS
// =============================================================================

func TestSelection(t *testing.T) {
	s := NewSelection()
	s.ToggleItem("a")
	assert.Zero(t, s.Count(), "checks ignored outside selection mode")

	s.Toggle()
	require.True(t, s.Active())
	s.ToggleItem("b")
	s.ToggleItem("a")
	s.ToggleItem("c")
	s.ToggleItem("c")
	assert.Equal(t, []string{"a", "b"}, s.IDs())
	assert.True(t, s.IsChecked("a"))
	assert.False(t, s.IsChecked("c"))

	s.Retain([]string{"b", "z"})
	assert.Equal(t, []string{"b"}, s.IDs())

	s.SelectAll([]string{"x", "y"})
	assert.Equal(t, 3, s.Count())

	s.Toggle()
	assert.False(t, s.Active())
	assert.Zero(t, s.Count())
}
