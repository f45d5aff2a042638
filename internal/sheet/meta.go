// Package sheet holds the metadata layered over a JSON array of objects:
// declared column types, per-cell formulas and styles, comment columns,
// summaries, conditional formats, validation rules and display order.
package sheet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/value"
)

// Row is one JSON object of the primary file.
type Row map[string]value.Value

type SummaryKind string

const (
	SummarySum   SummaryKind = "SUM"
	SummaryAvg   SummaryKind = "AVG"
	SummaryCount SummaryKind = "COUNT"
	SummaryMin   SummaryKind = "MIN"
	SummaryMax   SummaryKind = "MAX"
)

func ParseSummaryKind(s string) (SummaryKind, error) {
	switch k := SummaryKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case SummarySum, SummaryAvg, SummaryCount, SummaryMin, SummaryMax:
		return k, nil
	case "AVERAGE":
		return SummaryAvg, nil
	}
	return "", fmt.Errorf("unknown summary %q (expected sum, avg, count, min or max)", s)
}

type ColumnConstraint struct {
	Type coerce.ColumnType `json:"type"`
}

// CellStyle is a text and background color pair. Empty fields are unset.
type CellStyle struct {
	Color      string `json:"color,omitempty"`
	Background string `json:"background,omitempty"`
}

// NewCellStyle trims both colors.
func NewCellStyle(color, background string) CellStyle {
	return CellStyle{Color: strings.TrimSpace(color), Background: strings.TrimSpace(background)}
}

func (s CellStyle) IsEmpty() bool { return s.Color == "" && s.Background == "" }

type ConditionalFormat struct {
	Column string    `json:"column"`
	Rule   string    `json:"rule"`
	Style  CellStyle `json:"style"`
}

// Meta is everything about a sheet that is not stored in the rows
// themselves. Per-row slices are index-aligned with the data and kept the
// same length by the Resize/Remove/Reorder helpers. The zero Meta is empty
// and ready to use.
type Meta struct {
	Columns            map[string]ColumnConstraint
	ColumnOrder        []string
	RowKey             string
	CommentColumns     map[string]bool
	CommentRows        []Row
	Summaries          map[string]SummaryKind
	CellFormulas       []map[string]string
	CellStyles         []map[string]CellStyle
	ConditionalFormats []ConditionalFormat
	Validation         map[string]coerce.Rule
	FrozenColumns      int
}

// DeriveColumns returns the sorted union of keys across rows.
func DeriveColumns(data []Row) []string {
	seen := make(map[string]struct{})
	for _, row := range data {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// DisplayColumns returns the columns shown for data: every row key plus any
// column that carries metadata, in configured order first and lexicographic
// order after.
func (m *Meta) DisplayColumns(data []Row) []string {
	all := make(map[string]struct{})
	for _, row := range data {
		for k := range row {
			all[k] = struct{}{}
		}
	}
	for k := range m.Columns {
		all[k] = struct{}{}
	}
	for k := range m.CommentColumns {
		all[k] = struct{}{}
	}
	for k := range m.Summaries {
		all[k] = struct{}{}
	}
	for _, cells := range m.CellFormulas {
		for k := range cells {
			all[k] = struct{}{}
		}
	}
	for _, cells := range m.CellStyles {
		for k := range cells {
			all[k] = struct{}{}
		}
	}

	out := make([]string, 0, len(all))
	placed := make(map[string]bool, len(m.ColumnOrder))
	for _, col := range m.ColumnOrder {
		if _, ok := all[col]; ok && !placed[col] {
			out = append(out, col)
			placed[col] = true
		}
	}
	for _, col := range sortedKeys(all) {
		if !placed[col] {
			out = append(out, col)
		}
	}
	return out
}

func (m *Meta) ColumnType(column string) (coerce.ColumnType, bool) {
	c, ok := m.Columns[column]
	return c.Type, ok
}

// SetColumnType declares a type for column; an empty type removes it.
func (m *Meta) SetColumnType(column string, t coerce.ColumnType) {
	if t == "" {
		delete(m.Columns, column)
		return
	}
	if m.Columns == nil {
		m.Columns = make(map[string]ColumnConstraint)
	}
	m.Columns[column] = ColumnConstraint{Type: t}
}

func (m *Meta) SummaryKind(column string) (SummaryKind, bool) {
	k, ok := m.Summaries[column]
	return k, ok
}

// SetSummaryKind sets the footer summary for column; an empty kind removes it.
func (m *Meta) SetSummaryKind(column string, kind SummaryKind) {
	if kind == "" {
		delete(m.Summaries, column)
		return
	}
	if m.Summaries == nil {
		m.Summaries = make(map[string]SummaryKind)
	}
	m.Summaries[column] = kind
}

func (m *Meta) ValidationRule(column string) (coerce.Rule, bool) {
	r, ok := m.Validation[column]
	return r, ok
}

// SetValidationRule stores a normalized rule. An empty rule removes it.
func (m *Meta) SetValidationRule(column string, rule coerce.Rule) {
	rule = rule.Normalize()
	if rule.IsEmpty() {
		delete(m.Validation, column)
		return
	}
	if m.Validation == nil {
		m.Validation = make(map[string]coerce.Rule)
	}
	m.Validation[column] = rule
}

func (m *Meta) IsCommentColumn(column string) bool { return m.CommentColumns[column] }

func (m *Meta) SetCommentColumn(column string, comment bool) {
	if !comment {
		delete(m.CommentColumns, column)
		return
	}
	if m.CommentColumns == nil {
		m.CommentColumns = make(map[string]bool)
	}
	m.CommentColumns[column] = true
	if m.RowKey == column {
		m.RowKey = ""
	}
}

// SetColumnOrder stores an explicit display order. Blank and repeated names
// are dropped.
func (m *Meta) SetColumnOrder(order []string) {
	var out []string
	seen := make(map[string]bool, len(order))
	for _, col := range order {
		col = strings.TrimSpace(col)
		if col == "" || seen[col] {
			continue
		}
		seen[col] = true
		out = append(out, col)
	}
	m.ColumnOrder = out
}

// SetFrozenColumns sets how many leading display columns stay pinned.
// Zero or a negative count clears it.
func (m *Meta) SetFrozenColumns(n int) {
	if n < 0 {
		n = 0
	}
	m.FrozenColumns = n
}

func (m *Meta) AddConditionalFormat(cf ConditionalFormat) error {
	cf.Column = strings.TrimSpace(cf.Column)
	cf.Rule = strings.TrimSpace(cf.Rule)
	cf.Style = NewCellStyle(cf.Style.Color, cf.Style.Background)
	if cf.Column == "" {
		return fmt.Errorf("conditional format needs a column")
	}
	if _, ok := ParseCondRule(cf.Rule); !ok {
		return fmt.Errorf("invalid conditional rule %q (expected OP operand, e.g. \"< 100\")", cf.Rule)
	}
	if cf.Style.IsEmpty() {
		return fmt.Errorf("conditional format needs a color or background")
	}
	m.ConditionalFormats = append(m.ConditionalFormats, cf)
	return nil
}

func (m *Meta) RemoveConditionalFormat(i int) bool {
	if i < 0 || i >= len(m.ConditionalFormats) {
		return false
	}
	m.ConditionalFormats = append(m.ConditionalFormats[:i], m.ConditionalFormats[i+1:]...)
	return true
}

// SetRowKey configures the column used to align per-row metadata in the
// sidecar. An empty name clears it.
func (m *Meta) SetRowKey(column string) error {
	column = strings.TrimSpace(column)
	if column != "" && m.IsCommentColumn(column) {
		return fmt.Errorf("comment column %q cannot be the row key", column)
	}
	m.RowKey = column
	return nil
}

// AutoDetectRowKey picks the first display column whose values are present,
// non-null and distinct on every row. It does nothing if a key is already
// set or data is empty.
func (m *Meta) AutoDetectRowKey(data []Row) {
	if m.RowKey != "" || len(data) == 0 {
		return
	}
	for _, col := range m.DisplayColumns(data) {
		if m.IsCommentColumn(col) {
			continue
		}
		if uniqueColumn(data, col) {
			m.RowKey = col
			return
		}
	}
}

func uniqueColumn(data []Row, column string) bool {
	seen := make(map[string]struct{}, len(data))
	for _, row := range data {
		v, ok := row[column]
		if !ok || v.IsNull() {
			return false
		}
		key := v.KeyText()
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

// DuplicateKeys lists row-key values that appear on more than one row.
// Metadata for such rows cannot be aligned losslessly.
func (m *Meta) DuplicateKeys(data []Row) []string {
	if m.RowKey == "" {
		return nil
	}
	counts := make(map[string]int)
	for _, row := range data {
		if v, ok := row[m.RowKey]; ok {
			counts[v.KeyText()]++
		}
	}
	var dups []string
	for k, n := range counts {
		if n > 1 {
			dups = append(dups, k)
		}
	}
	sort.Strings(dups)
	return dups
}

// RemoveColumnMetadata forgets everything attached to column.
func (m *Meta) RemoveColumnMetadata(column string) {
	delete(m.Columns, column)
	delete(m.Summaries, column)
	delete(m.Validation, column)
	delete(m.CommentColumns, column)
	if m.RowKey == column {
		m.RowKey = ""
	}
	if len(m.ColumnOrder) > 0 {
		order := m.ColumnOrder[:0]
		for _, c := range m.ColumnOrder {
			if c != column {
				order = append(order, c)
			}
		}
		m.ColumnOrder = order
	}
	for _, cells := range m.CellFormulas {
		delete(cells, column)
	}
	for _, cells := range m.CellStyles {
		delete(cells, column)
	}
	for _, row := range m.CommentRows {
		delete(row, column)
	}
	if len(m.ConditionalFormats) > 0 {
		kept := m.ConditionalFormats[:0]
		for _, cf := range m.ConditionalFormats {
			if cf.Column != column {
				kept = append(kept, cf)
			}
		}
		m.ConditionalFormats = kept
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
