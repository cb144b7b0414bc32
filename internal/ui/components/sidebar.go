// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aquaally/ally/internal/history"
	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/ui/styles"
	"github.com/aquaally/ally/internal/util"
)

// DefaultSearchDebounce delays filtering while the user types.
const DefaultSearchDebounce = 200 * time.Millisecond

// SearchDebounceMsg applies a search query once typing pauses.
type SearchDebounceMsg struct {
	Seq   int
	Query string
}

// sidebarLine is one rendered row: a group header or a conversation.
type sidebarLine struct {
	header string
	item   int
}

// =============================================================================
// SIDEBAR
// =============================================================================

// Sidebar is the conversation history panel: search, quick filters, date
// groups and selection mode for bulk delete.
type Sidebar struct {
	theme    *styles.Theme
	search   textinput.Model
	debounce time.Duration
	seq      int
	now      func() time.Time

	all       []model.Conversation
	query     string
	quick     history.QuickFilter
	items     []model.Conversation
	lines     []sidebarLine
	cursor    int
	offset    int
	selection *history.Selection
	activeID  string

	width, height int
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme, debounce time.Duration) *Sidebar {
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}
	in := textinput.New()
	in.Placeholder = "Search conversations"
	in.Prompt = "/ "
	in.CharLimit = 100
	return &Sidebar{
		theme:     theme,
		search:    in,
		debounce:  debounce,
		now:       time.Now,
		quick:     history.FilterAll,
		selection: history.NewSelection(),
	}
}

// SetTheme switches styles.
func (s *Sidebar) SetTheme(theme *styles.Theme) { s.theme = theme }

// SetDebounce changes the search delay.
func (s *Sidebar) SetDebounce(d time.Duration) {
	if d > 0 {
		s.debounce = d
	}
}

// SetSize sets the outer dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.width, s.height = width, height
	s.search.Width = width - 6
	s.clampScroll()
}

// SetConversations replaces the list, keeping the cursor on the same
// conversation when it is still visible.
func (s *Sidebar) SetConversations(convs []model.Conversation) {
	prev, hadPrev := s.Selected()
	s.all = convs

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	s.selection.Retain(ids)
	s.refilter()

	if hadPrev {
		for i, c := range s.items {
			if c.ID == prev.ID {
				s.cursor = i
				break
			}
		}
	}
	s.clampScroll()
}

// SetActive marks the conversation open in the chat.
func (s *Sidebar) SetActive(id string) { s.activeID = id }

// Query returns the applied search text.
func (s *Sidebar) Query() string { return s.query }

// Filter returns the quick filter.
func (s *Sidebar) Filter() history.QuickFilter { return s.quick }

// Items returns the visible conversations in display order.
func (s *Sidebar) Items() []model.Conversation { return s.items }

// Selection exposes the selection state.
func (s *Sidebar) Selection() *history.Selection { return s.selection }

func (s *Sidebar) refilter() {
	now := s.now()
	visible := history.Filter(s.all, s.query, s.quick, now)

	s.items = nil
	s.lines = nil
	for _, g := range history.GroupByDate(visible, now) {
		s.lines = append(s.lines, sidebarLine{header: string(g.Bucket), item: -1})
		for _, c := range g.Conversations {
			s.lines = append(s.lines, sidebarLine{item: len(s.items)})
			s.items = append(s.items, c)
		}
	}
	if s.cursor >= len(s.items) {
		s.cursor = len(s.items) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// =============================================================================
// NAVIGATION
// =============================================================================

// Selected returns the conversation under the cursor.
func (s *Sidebar) Selected() (model.Conversation, bool) {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return model.Conversation{}, false
	}
	return s.items[s.cursor], true
}

// CursorUp moves the cursor up one conversation.
func (s *Sidebar) CursorUp() {
	if s.cursor > 0 {
		s.cursor--
	}
	s.clampScroll()
}

// CursorDown moves the cursor down one conversation.
func (s *Sidebar) CursorDown() {
	if s.cursor < len(s.items)-1 {
		s.cursor++
	}
	s.clampScroll()
}

// CycleFilter moves to the next quick filter.
func (s *Sidebar) CycleFilter() {
	s.quick = s.quick.Next()
	s.cursor = 0
	s.refilter()
	s.clampScroll()
}

// SetFilter selects a quick filter.
func (s *Sidebar) SetFilter(f history.QuickFilter) {
	s.quick = f
	s.cursor = 0
	s.refilter()
	s.clampScroll()
}

// ToggleSelectionMode enters or leaves selection mode.
func (s *Sidebar) ToggleSelectionMode() { s.selection.Toggle() }

// ToggleChecked flips the checkbox under the cursor.
func (s *Sidebar) ToggleChecked() {
	if c, ok := s.Selected(); ok {
		s.selection.ToggleItem(c.ID)
	}
}

// SelectAllVisible checks every visible conversation.
func (s *Sidebar) SelectAllVisible() {
	ids := make([]string, len(s.items))
	for i, c := range s.items {
		ids[i] = c.ID
	}
	s.selection.SelectAll(ids)
}

// =============================================================================
// SEARCH
// =============================================================================

// Searching reports whether the search input has focus.
func (s *Sidebar) Searching() bool { return s.search.Focused() }

// StartSearch focuses the search input.
func (s *Sidebar) StartSearch() tea.Cmd {
	return s.search.Focus()
}

// StopSearch blurs the search input and applies the query at once.
func (s *Sidebar) StopSearch() {
	s.search.Blur()
	s.applyQuery(s.search.Value())
}

// ClearSearch empties the search and blurs the input.
func (s *Sidebar) ClearSearch() {
	s.search.SetValue("")
	s.StopSearch()
}

func (s *Sidebar) applyQuery(q string) {
	if q == s.query {
		return
	}
	s.query = q
	s.cursor = 0
	s.refilter()
	s.clampScroll()
}

// Update handles typing in the search input and debounce ticks.
func (s *Sidebar) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case SearchDebounceMsg:
		if msg.Seq == s.seq {
			s.applyQuery(msg.Query)
		}
		return nil
	case tea.KeyMsg:
		if !s.search.Focused() {
			return nil
		}
		var cmd tea.Cmd
		before := s.search.Value()
		s.search, cmd = s.search.Update(msg)
		if after := s.search.Value(); after != before {
			s.seq++
			seq := s.seq
			return tea.Batch(cmd, tea.Tick(s.debounce, func(time.Time) tea.Msg {
				return SearchDebounceMsg{Seq: seq, Query: after}
			}))
		}
		return cmd
	}
	return nil
}

// =============================================================================
// RENDERING
// =============================================================================

// header rows: title, filters, search, banner
const sidebarChromeRows = 4

func (s *Sidebar) listHeight() int {
	// Border takes two rows.
	if h := s.height - 2 - sidebarChromeRows; h > 1 {
		return h
	}
	return 1
}

// cursorLine returns the first and last rendered line of the cursor item.
func (s *Sidebar) cursorLine() (int, int) {
	line := 0
	for _, l := range s.lines {
		if l.item < 0 {
			line++
			continue
		}
		if l.item == s.cursor {
			return line, line + 1
		}
		line += 2
	}
	return 0, 0
}

func (s *Sidebar) clampScroll() {
	first, last := s.cursorLine()
	h := s.listHeight()
	if first < s.offset {
		s.offset = first
	}
	if last >= s.offset+h {
		s.offset = last - h + 1
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

// View renders the panel. focused draws the highlighted border.
func (s *Sidebar) View(focused bool) string {
	inner := s.width - 4
	if inner < 10 {
		inner = 10
	}
	t := s.theme

	var chips []string
	for _, f := range history.QuickFilters() {
		if f == s.quick {
			chips = append(chips, t.FilterChipSelected.Render(f.Label()))
		} else {
			chips = append(chips, t.FilterChip.Render(f.Label()))
		}
	}

	banner := ""
	if s.selection.Active() {
		banner = t.SelectionBanner.Render(fmt.Sprintf("%d selected  D delete  esc done", s.selection.Count()))
	}

	head := []string{
		t.Brand.Render("History"),
		util.TruncateWidth(strings.Join(chips, ""), inner),
		s.search.View(),
		banner,
	}

	var body []string
	for _, l := range s.lines {
		if l.item < 0 {
			body = append(body, t.GroupHeader.UnsetMarginTop().Render(l.header))
			continue
		}
		body = append(body, s.renderItem(l.item, inner)...)
	}
	if len(s.items) == 0 {
		msg := "No conversations yet"
		if s.query != "" || s.quick != history.FilterAll {
			msg = "No matching conversations"
		}
		body = append(body, t.Muted.Render(msg))
	}

	h := s.listHeight()
	end := s.offset + h
	if end > len(body) {
		end = len(body)
	}
	start := s.offset
	if start > end {
		start = end
	}
	visible := body[start:end]

	style := t.Sidebar
	if focused {
		style = t.SidebarFocused
	}
	content := strings.Join(append(head, visible...), "\n")
	return style.Width(s.width - 2).Height(s.height - 2).Render(content)
}

func (s *Sidebar) renderItem(i, width int) []string {
	c := s.items[i]
	t := s.theme

	prefix := "  "
	if s.selection.Active() {
		if s.selection.IsChecked(c.ID) {
			prefix = styles.StatusIndicators.Checked + " "
		} else {
			prefix = styles.StatusIndicators.Empty + " "
		}
	} else if c.IsPinned {
		prefix = t.PinnedMarker.Render(styles.StatusIndicators.Pinned) + " "
	}

	title := util.TruncateWidth(c.Title, width-lipgloss.Width(prefix))
	preview := util.TruncateWidth(c.LastMessagePreview, width-2)

	style := t.ConvItem
	switch {
	case i == s.cursor:
		style = t.ConvItemCursor
	case c.ID == s.activeID:
		style = t.ConvItemActive
	}
	return []string{
		prefix + style.Render(title),
		"  " + t.ConvPreview.Render(preview),
	}
}
