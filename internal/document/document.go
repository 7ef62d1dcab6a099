package document

import (
	"fmt"
	"strings"
	"sync"
)

// Document is a mutable text buffer with live markers. Markers track
// positions across edits: an insertion at or before a marker shifts it
// forward, a deletion spanning it collapses it to the deletion start.
type Document struct {
	name      string
	content   string
	markers   []*Marker
	destroyed bool

	mu sync.RWMutex
}

// Marker is a live position within a Document. A Marker becomes invalid
// when the document is destroyed or the marker is explicitly invalidated;
// operations through an invalid marker are silent no-ops.
type Marker struct {
	doc   *Document
	pos   int
	valid bool
}

// New creates an empty document with the given display name
func New(name string) *Document {
	return &Document{name: name}
}

// Name returns the document's display name
func (d *Document) Name() string {
	return d.name
}

// Len returns the current content length in bytes
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.content)
}

// String returns a snapshot of the full document content
func (d *Document) String() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.content
}

// Slice returns the content in [start, end)
func (d *Document) Slice(start, end int) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.checkRange(start, end); err != nil {
		return "", err
	}
	return d.content[start:end], nil
}

// Insert inserts text at the given byte offset, shifting markers at or
// after the offset forward by len(text)
func (d *Document) Insert(offset int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return fmt.Errorf("document %q is destroyed", d.name)
	}
	if offset < 0 || offset > len(d.content) {
		return fmt.Errorf("insert offset %d out of range [0, %d]", offset, len(d.content))
	}

	d.insertLocked(offset, text)
	return nil
}

// Delete removes the content in [start, end), adjusting markers
func (d *Document) Delete(start, end int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return fmt.Errorf("document %q is destroyed", d.name)
	}
	if err := d.checkRange(start, end); err != nil {
		return err
	}

	d.deleteLocked(start, end)
	return nil
}

// Replace substitutes the content in [start, end) with text. Markers
// inside the replaced span collapse to the span start; markers after it
// shift by the length difference.
func (d *Document) Replace(start, end int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return fmt.Errorf("document %q is destroyed", d.name)
	}
	if err := d.checkRange(start, end); err != nil {
		return err
	}

	d.deleteLocked(start, end)
	d.insertLocked(start, text)
	return nil
}

// CreateMarker returns a new live marker at the given offset. The offset
// is clamped to the current document bounds.
func (d *Document) CreateMarker(offset int) *Marker {
	d.mu.Lock()
	defer d.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	if offset > len(d.content) {
		offset = len(d.content)
	}

	m := &Marker{doc: d, pos: offset, valid: !d.destroyed}
	d.markers = append(d.markers, m)
	return m
}

// LastIndex returns the byte offset of the last occurrence of sub that
// starts before the given limit, or -1 if none. A limit past the end of
// the document searches the whole content.
func (d *Document) LastIndex(sub string, limit int) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if limit > len(d.content) {
		limit = len(d.content)
	}
	if limit < 0 {
		return -1
	}
	return strings.LastIndex(d.content[:limit], sub)
}

// Index returns the byte offset of the first occurrence of sub at or
// after from, or -1 if none
func (d *Document) Index(sub string, from int) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	if from > len(d.content) {
		return -1
	}
	i := strings.Index(d.content[from:], sub)
	if i < 0 {
		return -1
	}
	return from + i
}

// Destroy invalidates the document and all of its markers. Subsequent
// edits fail and marker operations become no-ops.
func (d *Document) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroyed = true
	for _, m := range d.markers {
		m.valid = false
	}
}

// Destroyed reports whether the document has been destroyed
func (d *Document) Destroyed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.destroyed
}

// insertLocked performs the insertion and marker adjustment. Caller holds mu.
func (d *Document) insertLocked(offset int, text string) {
	d.content = d.content[:offset] + text + d.content[offset:]
	for _, m := range d.markers {
		if m.valid && m.pos >= offset {
			m.pos += len(text)
		}
	}
}

// deleteLocked removes [start, end) and collapses contained markers.
// Caller holds mu.
func (d *Document) deleteLocked(start, end int) {
	n := end - start
	d.content = d.content[:start] + d.content[end:]
	for _, m := range d.markers {
		if !m.valid {
			continue
		}
		switch {
		case m.pos >= end:
			m.pos -= n
		case m.pos > start:
			m.pos = start
		}
	}
}

func (d *Document) checkRange(start, end int) error {
	if start < 0 || end > len(d.content) || start > end {
		return fmt.Errorf("range [%d, %d) out of bounds [0, %d)", start, end, len(d.content))
	}
	return nil
}

// Valid reports whether the marker can still be used
func (m *Marker) Valid() bool {
	m.doc.mu.RLock()
	defer m.doc.mu.RUnlock()
	return m.valid && !m.doc.destroyed
}

// Position returns the marker's current offset and whether it is valid
func (m *Marker) Position() (int, bool) {
	m.doc.mu.RLock()
	defer m.doc.mu.RUnlock()
	if !m.valid || m.doc.destroyed {
		return 0, false
	}
	return m.pos, true
}

// Insert inserts text immediately before the marker and advances the
// marker past it, so successive inserts through the same marker stay
// contiguous and ordered. Returns false (and does nothing) if the marker
// or its document is gone.
func (m *Marker) Insert(text string) bool {
	m.doc.mu.Lock()
	defer m.doc.mu.Unlock()

	if !m.valid || m.doc.destroyed {
		return false
	}

	// insertLocked shifts markers at the offset forward, which is exactly
	// the advance-past-inserted-text behavior required here
	m.doc.insertLocked(m.pos, text)
	return true
}

// Invalidate permanently disables the marker
func (m *Marker) Invalidate() {
	m.doc.mu.Lock()
	defer m.doc.mu.Unlock()
	m.valid = false
}
