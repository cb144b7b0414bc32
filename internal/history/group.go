// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"time"

	"github.com/aquaally/ally/internal/model"
)

// Bucket is a date group label.
type Bucket string

const (
	BucketPinned    Bucket = "Pinned"
	BucketToday     Bucket = "Today"
	BucketYesterday Bucket = "Yesterday"
	BucketLastWeek  Bucket = "Last 7 Days"
	BucketOlder     Bucket = "Older"
)

// Buckets lists every bucket in display order.
func Buckets() []Bucket {
	return []Bucket{BucketPinned, BucketToday, BucketYesterday, BucketLastWeek, BucketOlder}
}

// Group is one non-empty bucket.
type Group struct {
	Bucket        Bucket               `json:"bucket"`
	Conversations []model.Conversation `json:"conversations"`
}

// BucketFor places a conversation by calendar day of UpdatedAt in now's
// location. BucketLastWeek holds days two to seven before today, so the
// first three buckets together span the last seven days. Pinned
// conversations always go to BucketPinned.
func BucketFor(c model.Conversation, now time.Time) Bucket {
	if c.IsPinned {
		return BucketPinned
	}

	today := startOfDay(now)
	updated := c.UpdatedAt.In(now.Location())
	switch {
	case !updated.Before(today):
		return BucketToday
	case !updated.Before(today.AddDate(0, 0, -1)):
		return BucketYesterday
	case !updated.Before(today.AddDate(0, 0, -7)):
		return BucketLastWeek
	default:
		return BucketOlder
	}
}

// GroupByDate splits convs into the fixed buckets, omitting empty ones.
// Order within a bucket follows the input.
func GroupByDate(convs []model.Conversation, now time.Time) []Group {
	byBucket := make(map[Bucket][]model.Conversation, 5)
	for _, c := range convs {
		b := BucketFor(c, now)
		byBucket[b] = append(byBucket[b], c)
	}

	groups := make([]Group, 0, len(byBucket))
	for _, b := range Buckets() {
		if cs := byBucket[b]; len(cs) > 0 {
			groups = append(groups, Group{Bucket: b, Conversations: cs})
		}
	}
	return groups
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
