// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aquaally/ally/internal/ui/styles"
	"github.com/aquaally/ally/internal/util"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind selects a toast's color and marker.
type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastError
)

// Toast durations. Errors stay longer so they can be read.
const (
	SuccessToastDuration = 4 * time.Second
	ErrorToastDuration   = 8 * time.Second
	MaxToasts            = 4
)

// Toast is a non-blocking notification shown in the bottom-right corner.
type Toast struct {
	ID          int
	Title       string
	Description string
	Kind        ToastKind
	CreatedAt   time.Time
	Duration    time.Duration
}

// Expired reports whether the toast should be gone at now.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager holds the visible toasts. It is safe for concurrent use, so
// commands running off the update loop can report through it directly.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
	now    func() time.Time
}

// NewToastManager creates an empty manager.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, now: time.Now}
}

// Add queues a toast, newest first, dropping the oldest past MaxToasts.
func (m *ToastManager) Add(kind ToastKind, title, description string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	duration := SuccessToastDuration
	if kind == ToastError {
		duration = ErrorToastDuration
	}
	t := Toast{
		ID:          m.nextID,
		Title:       title,
		Description: description,
		Kind:        kind,
		CreatedAt:   m.now(),
		Duration:    duration,
	}
	m.nextID++

	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > MaxToasts {
		m.toasts = m.toasts[:MaxToasts]
	}
	return t.ID
}

// Success shows a success toast.
func (m *ToastManager) Success(title, description string) {
	m.Add(ToastSuccess, title, description)
}

// Error shows an error toast.
func (m *ToastManager) Error(title, description string) {
	m.Add(ToastError, title, description)
}

// Dismiss removes a toast by ID.
func (m *ToastManager) Dismiss(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// DismissAll clears every toast.
func (m *ToastManager) DismissAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = nil
}

// Prune drops expired toasts and returns the rest.
func (m *ToastManager) Prune(now time.Time) []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.Expired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return m.snapshotLocked()
}

// Toasts returns a copy of the visible toasts.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *ToastManager) snapshotLocked() []Toast {
	out := make([]Toast, len(m.toasts))
	copy(out, m.toasts)
	return out
}

// ToastTickMsg prunes expired toasts.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts every 250ms.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// RENDERING
// =============================================================================

// RenderToast renders one toast no wider than width.
func RenderToast(theme *styles.Theme, t Toast, width int) string {
	maxWidth := 48
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 20 {
		maxWidth = 20
	}

	style, marker := theme.ToastSuccess, styles.StatusIndicators.Success
	if t.Kind == ToastError {
		style, marker = theme.ToastError, styles.StatusIndicators.Error
	}

	inner := maxWidth - 4
	title := lipgloss.NewStyle().Bold(true).Render(util.TruncateWidth(marker+" "+t.Title, inner))
	body := title
	if t.Description != "" {
		body += "\n" + lipgloss.NewStyle().
			Foreground(styles.TextPrimary).
			Width(inner).
			Render(t.Description)
	}
	return style.Render(body)
}

// RenderToastStack stacks toasts newest last, right aligned.
func RenderToastStack(theme *styles.Theme, toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for i := len(toasts) - 1; i >= 0; i-- {
		rendered = append(rendered, RenderToast(theme, toasts[i], width))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	if width > 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
	}
	return stack
}
