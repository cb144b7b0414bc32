// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aquaally/ally/internal/config"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ally.log")
	logger, err := New(config.LoggingConfig{Level: "info", File: path, Format: "json"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("conversation saved", zap.String("conversation_id", "c1"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "conversation saved", entry["msg"])
	assert.Equal(t, "c1", entry["conversation_id"])
	assert.Equal(t, "ally", entry["app"])
	assert.Contains(t, entry, "ts")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestForTUI_NoFileIsNop(t *testing.T) {
	logger, err := ForTUI(config.LoggingConfig{Level: "debug"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.ErrorLevel))
}
