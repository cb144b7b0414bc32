// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aquaally/ally/internal/model"
)

// csvHeader is the column order of conversation list exports.
var csvHeader = []string{
	"id", "title", "created_at", "updated_at", "aquarium_id", "is_pinned", "message_count", "last_message_preview",
}

// WriteConversationsCSV writes one row per conversation with a header row.
// Quoting follows RFC 4180.
func WriteConversationsCSV(w io.Writer, convs []model.Conversation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range convs {
		aquarium := ""
		if c.HasAquarium() {
			aquarium = *c.AquariumID
		}
		record := []string{
			c.ID,
			c.Title,
			c.CreatedAt.UTC().Format(time.RFC3339),
			c.UpdatedAt.UTC().Format(time.RFC3339),
			aquarium,
			strconv.FormatBool(c.IsPinned),
			strconv.Itoa(c.MessageCount),
			c.LastMessagePreview,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
