// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history filters, groups and selects conversations for the
// history sidebar.
//
// Nothing here touches storage. The sidebar component and the JSON API
// both feed the manager's conversation list through these functions.
//
// # Key Types
//
//   - QuickFilter: One of all, pinned, last7days, has_aquarium
//   - Bucket: Date group label (Pinned, Today, Yesterday, Last 7 Days, Older)
//   - Group: A bucket with its conversations
//   - Selection: Checkbox multi-select used for bulk delete
//
// # Usage
//
//	visible := history.Filter(convs, "ammonia", history.FilterLast7Days, time.Now())
//	for _, g := range history.GroupByDate(visible, time.Now()) {
//		fmt.Println(g.Bucket, len(g.Conversations))
//	}
package history
