// Package sidecar persists sheet metadata next to the primary file as
// "<file>.jsheet".
//
// When a row key is configured, per-row metadata is stored in maps keyed by
// each row's key value instead of arrays indexed by position, so that
// formulas, styles and comments stay attached to the right row after the
// primary file is reordered or edited by another tool. Without a row key the
// indexed arrays are used, which is only correct as long as row order is
// preserved. Rows that lack the row key column keep their metadata in the
// indexed arrays, and those entries only apply to keyless rows.
package sidecar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/fsutil"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/sheeterr"
)

const Suffix = ".jsheet"

// PathFor returns the sidecar path for a primary file.
func PathFor(jsonPath string) string { return jsonPath + Suffix }

// File is the on-disk shape of a sidecar.
type File struct {
	Columns        map[string]sheet.ColumnConstraint `json:"columns"`
	ColumnOrder    []string                          `json:"column_order,omitempty"`
	RowKey         string                            `json:"row_key,omitempty"`
	CommentColumns []string                          `json:"comment_columns"`
	Summaries      map[string]sheet.SummaryKind      `json:"summaries"`

	KeyedCellFormulas map[string]map[string]string          `json:"keyed_cell_formulas,omitempty"`
	KeyedCellStyles   map[string]map[string]sheet.CellStyle `json:"keyed_cell_styles,omitempty"`
	KeyedCommentRows  map[string]sheet.Row                  `json:"keyed_comment_rows,omitempty"`

	CellFormulas []map[string]string          `json:"cell_formulas,omitempty"`
	CellStyles   []map[string]sheet.CellStyle `json:"cell_styles,omitempty"`
	CommentRows  []sheet.Row                  `json:"comment_rows,omitempty"`

	ConditionalFormats []sheet.ConditionalFormat `json:"conditional_formats,omitempty"`
	Validation         map[string]coerce.Rule    `json:"validation,omitempty"`
	FrozenColumns      int                       `json:"frozen_columns,omitempty"`
}

// keyFor is the alignment key of row. ok is false when the row has no
// value for the key column.
func keyFor(row sheet.Row, column string) (key string, ok bool) {
	v, ok := row[column]
	if !ok {
		return "", false
	}
	return v.KeyText(), true
}

// slotAt sets s[i] = v, growing s with empty slots as needed.
func slotAt[M ~map[string]V, V any](s []M, i int, v M) []M {
	for len(s) <= i {
		s = append(s, nil)
	}
	s[i] = v
	return s
}

// Encode builds the file representation of meta for the given rows.
func Encode(meta *sheet.Meta, data []sheet.Row) File {
	f := File{
		Columns:            copyMap(meta.Columns),
		ColumnOrder:        append([]string(nil), meta.ColumnOrder...),
		RowKey:             meta.RowKey,
		CommentColumns:     make([]string, 0, len(meta.CommentColumns)),
		Summaries:          copyMap(meta.Summaries),
		ConditionalFormats: append([]sheet.ConditionalFormat(nil), meta.ConditionalFormats...),
		Validation:         copyMap(meta.Validation),
		FrozenColumns:      meta.FrozenColumns,
	}
	for c := range meta.CommentColumns {
		f.CommentColumns = append(f.CommentColumns, c)
	}
	sort.Strings(f.CommentColumns)

	if meta.RowKey == "" {
		f.CellFormulas = trimTrailing(meta.CellFormulas)
		f.CellStyles = trimTrailing(meta.CellStyles)
		f.CommentRows = trimTrailing(meta.CommentRows)
		return f
	}

	for i, row := range data {
		key, ok := keyFor(row, meta.RowKey)
		if !ok {
			if i < len(meta.CellFormulas) && len(meta.CellFormulas[i]) > 0 {
				f.CellFormulas = slotAt(f.CellFormulas, i, meta.CellFormulas[i])
			}
			if i < len(meta.CellStyles) && len(meta.CellStyles[i]) > 0 {
				f.CellStyles = slotAt(f.CellStyles, i, meta.CellStyles[i])
			}
			if i < len(meta.CommentRows) && len(meta.CommentRows[i]) > 0 {
				f.CommentRows = slotAt(f.CommentRows, i, meta.CommentRows[i])
			}
			continue
		}
		if i < len(meta.CellFormulas) && len(meta.CellFormulas[i]) > 0 {
			if f.KeyedCellFormulas == nil {
				f.KeyedCellFormulas = make(map[string]map[string]string)
			}
			f.KeyedCellFormulas[key] = meta.CellFormulas[i]
		}
		if i < len(meta.CellStyles) && len(meta.CellStyles[i]) > 0 {
			if f.KeyedCellStyles == nil {
				f.KeyedCellStyles = make(map[string]map[string]sheet.CellStyle)
			}
			f.KeyedCellStyles[key] = meta.CellStyles[i]
		}
		if i < len(meta.CommentRows) && len(meta.CommentRows[i]) > 0 {
			if f.KeyedCommentRows == nil {
				f.KeyedCommentRows = make(map[string]sheet.Row)
			}
			f.KeyedCommentRows[key] = meta.CommentRows[i]
		}
	}
	return f
}

// Decode rebuilds index-aligned metadata for data. With a row key, stored
// entries are matched to rows by key value; entries whose key is no longer
// present are dropped. If two rows share a key, the later row wins. Indexed
// entries are restored by position onto rows without a key value.
func (f File) Decode(data []sheet.Row) *sheet.Meta {
	meta := &sheet.Meta{
		Columns:            f.Columns,
		ColumnOrder:        f.ColumnOrder,
		RowKey:             f.RowKey,
		Summaries:          f.Summaries,
		ConditionalFormats: f.ConditionalFormats,
		FrozenColumns:      f.FrozenColumns,
	}
	if len(f.CommentColumns) > 0 {
		meta.CommentColumns = make(map[string]bool, len(f.CommentColumns))
		for _, c := range f.CommentColumns {
			meta.CommentColumns[c] = true
		}
	}
	for column, rule := range f.Validation {
		meta.SetValidationRule(column, rule)
	}

	if f.RowKey == "" {
		meta.CellFormulas = f.CellFormulas
		meta.CellStyles = f.CellStyles
		meta.CommentRows = f.CommentRows
		meta.ResizeRowMetadata(len(data))
		return meta
	}

	index := make(map[string]int, len(data))
	var keyless []int
	for i, row := range data {
		if key, ok := keyFor(row, f.RowKey); ok {
			index[key] = i
		} else {
			keyless = append(keyless, i)
		}
	}
	meta.ResizeRowMetadata(len(data))
	for _, i := range keyless {
		if i < len(f.CellFormulas) {
			meta.CellFormulas[i] = f.CellFormulas[i]
		}
		if i < len(f.CellStyles) {
			meta.CellStyles[i] = f.CellStyles[i]
		}
		if i < len(f.CommentRows) {
			meta.CommentRows[i] = f.CommentRows[i]
		}
	}
	for key, cells := range f.KeyedCellFormulas {
		if i, ok := index[key]; ok {
			meta.CellFormulas[i] = cells
		}
	}
	for key, cells := range f.KeyedCellStyles {
		if i, ok := index[key]; ok {
			meta.CellStyles[i] = cells
		}
	}
	for key, row := range f.KeyedCommentRows {
		if i, ok := index[key]; ok {
			meta.CommentRows[i] = row
		}
	}
	return meta
}

// Realign carries meta from oldData to newData, matching rows by key, or by
// position when no row key is set.
func Realign(meta *sheet.Meta, oldData, newData []sheet.Row) (*sheet.Meta, error) {
	raw, err := Marshal(meta, oldData)
	if err != nil {
		return nil, err
	}
	f, err := Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	return f.Decode(newData), nil
}

// Marshal encodes meta as pretty-printed sidecar JSON.
func Marshal(meta *sheet.Meta, data []sheet.Row) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Encode(meta, data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes sidecar JSON. Unknown column types or summary kinds and
// a negative frozen column count are parse errors.
func Unmarshal(raw []byte) (File, error) {
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return File{}, &sheeterr.Error{Kind: sheeterr.KindParse, Msg: "invalid sidecar", Err: err}
	}
	if err := f.validate(); err != nil {
		return File{}, &sheeterr.Error{Kind: sheeterr.KindParse, Msg: "invalid sidecar", Err: err}
	}
	return f, nil
}

// validate normalizes enum values in place.
func (f *File) validate() error {
	for column, c := range f.Columns {
		t, err := coerce.ParseType(string(c.Type))
		if err != nil {
			return fmt.Errorf("column %q: %w", column, err)
		}
		c.Type = t
		f.Columns[column] = c
	}
	for column, k := range f.Summaries {
		kind, err := sheet.ParseSummaryKind(string(k))
		if err != nil {
			return fmt.Errorf("summary of %q: %w", column, err)
		}
		f.Summaries[column] = kind
	}
	if f.FrozenColumns < 0 {
		return fmt.Errorf("frozen_columns must not be negative, got %d", f.FrozenColumns)
	}
	return nil
}

// Load reads the sidecar for jsonPath and aligns it with data. A missing
// sidecar yields empty metadata.
func Load(jsonPath string, data []sheet.Row) (*sheet.Meta, error) {
	p := PathFor(jsonPath)
	raw, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			meta := &sheet.Meta{}
			meta.ResizeRowMetadata(len(data))
			return meta, nil
		}
		return nil, sheeterr.Wrap(sheeterr.KindIO, p, err)
	}
	f, err := Unmarshal(raw)
	if err != nil {
		var se *sheeterr.Error
		if errors.As(err, &se) {
			se.Path = p
		}
		return nil, err
	}
	return f.Decode(data), nil
}

// Save writes the sidecar for jsonPath atomically.
func Save(jsonPath string, meta *sheet.Meta, data []sheet.Row) error {
	p := PathFor(jsonPath)
	raw, err := Marshal(meta, data)
	if err != nil {
		return sheeterr.Wrap(sheeterr.KindExport, p, err)
	}
	if err := fsutil.WriteFileAtomic(p, raw, 0o644); err != nil {
		return sheeterr.Wrap(sheeterr.KindIO, p, err)
	}
	return nil
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// trimTrailing drops empty slots at the end of an indexed slice; missing
// entries decode as empty.
func trimTrailing[M ~map[string]V, V any](s []M) []M {
	n := len(s)
	for n > 0 && len(s[n-1]) == 0 {
		n--
	}
	return s[:n]
}
