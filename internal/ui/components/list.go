package components

// List is a scrollable window over a list of rendered rows. Cursor is -1
// when nothing is highlighted.
type List struct {
	Items    []string
	Cursor   int
	Offset   int
	PageSize int
}

// NewList creates a list with the given page size.
func NewList(pageSize int) *List {
	if pageSize < 1 {
		pageSize = 1
	}
	return &List{PageSize: pageSize, Cursor: -1}
}

// SetItems replaces items and clears the cursor.
func (l *List) SetItems(items []string) {
	l.Items = items
	l.Cursor = -1
	l.Offset = 0
}

// SetCursor moves the cursor to idx (or -1) and scrolls it into view.
func (l *List) SetCursor(idx int) {
	if idx < -1 || idx >= len(l.Items) {
		idx = -1
	}
	l.Cursor = idx
	if idx < 0 {
		return
	}
	if idx < l.Offset {
		l.Offset = idx
	}
	if idx >= l.Offset+l.PageSize {
		l.Offset = idx - l.PageSize + 1
	}
}

// Down moves the cursor down.
func (l *List) Down() {
	if l.Cursor < len(l.Items)-1 {
		l.SetCursor(l.Cursor + 1)
	}
}

// Up moves the cursor up. It stops at the first row.
func (l *List) Up() {
	if l.Cursor > 0 {
		l.SetCursor(l.Cursor - 1)
	}
}

// Visible returns the currently visible items.
func (l *List) Visible() []string {
	if len(l.Items) == 0 {
		return nil
	}
	end := l.Offset + l.PageSize
	if end > len(l.Items) {
		end = len(l.Items)
	}
	return l.Items[l.Offset:end]
}

// Selected returns the index of the highlighted item, or -1.
func (l *List) Selected() int {
	return l.Cursor
}

// IsSelected returns true if the given absolute index is the cursor.
func (l *List) IsSelected(absIdx int) bool {
	return absIdx == l.Cursor
}

// RelToAbs converts a relative (visible) index to absolute.
func (l *List) RelToAbs(relIdx int) int {
	return l.Offset + relIdx
}
