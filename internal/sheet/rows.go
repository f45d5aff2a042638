package sheet

import "github.com/witanlabs/jsheet/internal/value"

// ResizeRowMetadata pads or truncates every per-row slice to n entries.
func (m *Meta) ResizeRowMetadata(n int) {
	m.CellFormulas = resize(m.CellFormulas, n)
	m.CellStyles = resize(m.CellStyles, n)
	m.CommentRows = resize(m.CommentRows, n)
}

// InsertRowMetadata opens an empty slot at index i.
func (m *Meta) InsertRowMetadata(i int) {
	m.CellFormulas = insertAt(m.CellFormulas, i)
	m.CellStyles = insertAt(m.CellStyles, i)
	m.CommentRows = insertAt(m.CommentRows, i)
}

// RemoveRowMetadata drops slot i from every per-row slice.
func (m *Meta) RemoveRowMetadata(i int) {
	m.CellFormulas = removeAt(m.CellFormulas, i)
	m.CellStyles = removeAt(m.CellStyles, i)
	m.CommentRows = removeAt(m.CommentRows, i)
}

// ReorderRowMetadata rebuilds every per-row slice so that new position j
// holds what old position order[j] held.
func (m *Meta) ReorderRowMetadata(order []int) {
	m.CellFormulas = gather(m.CellFormulas, order)
	m.CellStyles = gather(m.CellStyles, order)
	m.CommentRows = gather(m.CommentRows, order)
}

func resize[T any](s []T, n int) []T {
	if len(s) >= n {
		return s[:n]
	}
	return append(s, make([]T, n-len(s))...)
}

func insertAt[T any](s []T, i int) []T {
	if i < 0 {
		return s
	}
	if i >= len(s) {
		return resize(s, i+1)
	}
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = zero
	return s
}

func removeAt[T any](s []T, i int) []T {
	if i < 0 || i >= len(s) {
		return s
	}
	return append(s[:i], s[i+1:]...)
}

func gather[T any](s []T, order []int) []T {
	out := make([]T, len(order))
	for j, old := range order {
		if old >= 0 && old < len(s) {
			out[j] = s[old]
		}
	}
	return out
}

// ApplyCommentRows copies stored comment values into each data row,
// filling Null where a row has none, so comment columns can be shown and
// edited like any other.
func (m *Meta) ApplyCommentRows(data []Row) {
	if len(m.CommentColumns) == 0 {
		return
	}
	for i, row := range data {
		var stored Row
		if i < len(m.CommentRows) {
			stored = m.CommentRows[i]
		}
		for column := range m.CommentColumns {
			if v, ok := stored[column]; ok {
				row[column] = v
			} else if _, ok := row[column]; !ok {
				row[column] = value.Null()
			}
		}
	}
}

// CaptureCommentRows records the current comment column values from data
// so they can be persisted in the sidecar.
func (m *Meta) CaptureCommentRows(data []Row) {
	if len(m.CommentColumns) == 0 {
		m.CommentRows = make([]Row, len(data))
		return
	}
	rows := make([]Row, len(data))
	for i, row := range data {
		for column := range m.CommentColumns {
			v, ok := row[column]
			if !ok || v.IsNull() {
				continue
			}
			if rows[i] == nil {
				rows[i] = make(Row)
			}
			rows[i][column] = v
		}
	}
	m.CommentRows = rows
}
