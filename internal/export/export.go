// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Document is one conversation ready for export.
type Document struct {
	Conversation model.Conversation
	Messages     []model.Message
	ExportedAt   time.Time
}

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a document to the target format.
	Export(doc Document) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type of the format.
	MimeType() string
}

// ForFormat returns the exporter for a format name: md, json or html.
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return NewMarkdownExporter(), nil
	case "json":
		return NewJSONExporter(), nil
	case "html":
		return NewHTMLExporter(), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want md, json or html)", format)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures file export.
type Options struct {
	// OutputDir is the directory where files are saved.
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{OutputDir: "."}
}

// =============================================================================
// FILE EXPORT
// =============================================================================

// ToFile exports doc with exporter and writes it atomically into
// opts.OutputDir. Returns the written path.
func ToFile(doc Document, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(doc)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	path, err := WriteFile(opts.OutputDir, Filename(doc.Conversation.Title, exporter.FileExtension()), content)
	if err != nil {
		return "", err
	}

	if opts.OpenAfterExport {
		if err := openFile(path); err != nil {
			return path, fmt.Errorf("exported to %s but could not open it: %w", path, err)
		}
	}
	return path, nil
}

// WriteFile atomically writes data to dir/filename, creating dir if
// needed. Returns the written path.
func WriteFile(dir, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// FILENAMES
// =============================================================================

// MaxFilenameRunes bounds the title part of an export filename.
const MaxFilenameRunes = 100

// Filename derives a safe filename from a conversation title. Characters
// invalid on Windows or Unix and control characters become '_', whitespace
// becomes '_', and the result is cut to MaxFilenameRunes. ext is appended
// as given.
func Filename(title, ext string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		case unicode.IsSpace(r):
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	name := b.String()
	if runes := []rune(name); len(runes) > MaxFilenameRunes {
		name = string(runes[:MaxFilenameRunes])
	}
	if strings.Trim(name, "_.") == "" {
		name = "conversation"
	}
	return name + ext
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
