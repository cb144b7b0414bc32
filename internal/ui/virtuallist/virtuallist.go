// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package virtuallist windows a list of variable-height rows.
//
// Heights are measured lazily: rows that have not been rendered yet use an
// estimate, and positions are recomputed from measurements. Only the rows
// intersecting the viewport, plus overscan rows on each side, are returned
// by VirtualItems.
//
// When the row count changes, the view follows the end of the list only if
// it was within the near-bottom threshold beforehand. Otherwise the scroll
// offset is preserved so reading history is never interrupted.
package virtuallist

// =============================================================================
// TYPES
// =============================================================================

// LoadingKind selects the indicator on the synthetic trailing row.
type LoadingKind int

const (
	LoadingNone LoadingKind = iota
	LoadingTyping
	LoadingThinking
)

// String returns the kind name.
func (k LoadingKind) String() string {
	switch k {
	case LoadingTyping:
		return "typing"
	case LoadingThinking:
		return "thinking"
	default:
		return "none"
	}
}

// Item is one visible row.
type Item struct {
	Index   int
	Start   int
	Size    int
	Loading bool
}

// Defaults.
const (
	DefaultEstimate   = 4
	DefaultOverscan   = 5
	DefaultNearBottom = 3
)

// List holds scroll state. Units are terminal rows.
type List struct {
	count      int
	loading    LoadingKind
	estimate   int
	overscan   int
	nearBottom int
	viewport   int
	offset     int
	heights    map[int]int
}

// New creates an empty list.
func New(estimate, overscan, nearBottom int) *List {
	if estimate <= 0 {
		estimate = DefaultEstimate
	}
	if overscan < 0 {
		overscan = DefaultOverscan
	}
	if nearBottom < 0 {
		nearBottom = DefaultNearBottom
	}
	return &List{
		estimate:   estimate,
		overscan:   overscan,
		nearBottom: nearBottom,
		heights:    make(map[int]int),
	}
}

// =============================================================================
// SIZE
// =============================================================================

// Count returns the number of real rows.
func (l *List) Count() int { return l.count }

// Len returns the virtual row count, including the loading row.
func (l *List) Len() int {
	if l.loading != LoadingNone {
		return l.count + 1
	}
	return l.count
}

// Loading returns the trailing row kind.
func (l *List) Loading() LoadingKind { return l.loading }

// SetCount changes the number of real rows.
func (l *List) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	l.keepPinned(func() {
		if n < l.count {
			for i := n; i <= l.count; i++ {
				delete(l.heights, i)
			}
		}
		l.count = n
		// The loading row moves with the count.
		delete(l.heights, n)
	})
}

// SetLoading shows a trailing loading row while a response is pending and
// not yet streaming.
func (l *List) SetLoading(pending, streaming, thinking bool) {
	kind := LoadingNone
	if pending && !streaming {
		kind = LoadingTyping
		if thinking {
			kind = LoadingThinking
		}
	}
	if kind == l.loading {
		return
	}
	l.keepPinned(func() {
		l.loading = kind
		delete(l.heights, l.count)
	})
}

// SetViewport sets the visible height.
func (l *List) SetViewport(h int) {
	if h < 0 {
		h = 0
	}
	l.keepPinned(func() { l.viewport = h })
}

// Viewport returns the visible height.
func (l *List) Viewport() int { return l.viewport }

// Measure records the rendered height of row i.
func (l *List) Measure(i, h int) {
	if i < 0 || i >= l.Len() || h < 0 {
		return
	}
	if old, ok := l.heights[i]; ok && old == h {
		return
	}
	l.keepPinned(func() { l.heights[i] = h })
}

// Invalidate forgets every measurement, as after a width change.
func (l *List) Invalidate() {
	l.keepPinned(func() { l.heights = make(map[int]int) })
}

// Size returns the measured or estimated height of row i.
func (l *List) Size(i int) int {
	if h, ok := l.heights[i]; ok {
		return h
	}
	return l.estimate
}

// Start returns the offset of row i's first line.
func (l *List) Start(i int) int {
	pos := 0
	for j := 0; j < i && j < l.Len(); j++ {
		pos += l.Size(j)
	}
	return pos
}

// TotalSize returns the height of all rows.
func (l *List) TotalSize() int {
	return l.Start(l.Len())
}

// =============================================================================
// SCROLLING
// =============================================================================

// Offset returns the first visible line.
func (l *List) Offset() int { return l.offset }

func (l *List) maxOffset() int {
	if m := l.TotalSize() - l.viewport; m > 0 {
		return m
	}
	return 0
}

// ScrollTo moves to offset, clamped to the list.
func (l *List) ScrollTo(offset int) {
	if offset > l.maxOffset() {
		offset = l.maxOffset()
	}
	if offset < 0 {
		offset = 0
	}
	l.offset = offset
}

// ScrollBy moves by delta lines.
func (l *List) ScrollBy(delta int) { l.ScrollTo(l.offset + delta) }

// ScrollToEnd shows the last row.
func (l *List) ScrollToEnd() { l.offset = l.maxOffset() }

// ScrollToIndex brings row i to the top of the viewport.
func (l *List) ScrollToIndex(i int) { l.ScrollTo(l.Start(i)) }

// AtTop reports whether the first line is visible.
func (l *List) AtTop() bool { return l.offset == 0 }

// NearBottom reports whether the viewport is within the near-bottom
// threshold of the end.
func (l *List) NearBottom() bool {
	return l.maxOffset()-l.offset <= l.nearBottom
}

// keepPinned applies change and then follows the end if the view was
// near the bottom before, or clamps the offset otherwise.
func (l *List) keepPinned(change func()) {
	pinned := l.NearBottom()
	change()
	if pinned {
		l.ScrollToEnd()
		return
	}
	l.ScrollTo(l.offset)
}

// =============================================================================
// WINDOW
// =============================================================================

// VirtualItems returns the rows intersecting the viewport, extended by
// overscan rows on each side.
func (l *List) VirtualItems() []Item {
	n := l.Len()
	if n == 0 {
		return nil
	}

	first, last := -1, -1
	pos := 0
	starts := make([]int, n)
	for i := 0; i < n; i++ {
		starts[i] = pos
		size := l.Size(i)
		end := pos + size
		if first < 0 && end > l.offset {
			first = i
		}
		if pos < l.offset+l.viewport || (size == 0 && pos == l.offset) {
			last = i
		}
		pos = end
	}
	if first < 0 {
		first = n - 1
	}
	if last < first {
		last = first
	}

	first -= l.overscan
	if first < 0 {
		first = 0
	}
	last += l.overscan
	if last > n-1 {
		last = n - 1
	}

	items := make([]Item, 0, last-first+1)
	for i := first; i <= last; i++ {
		items = append(items, Item{
			Index:   i,
			Start:   starts[i],
			Size:    l.Size(i),
			Loading: l.loading != LoadingNone && i == l.count,
		})
	}
	return items
}
