// Package table is the mutable editing session over one sheet: rows plus
// metadata, with undo/redo, sort, filter, search and batched edits.
//
// Every mutating call first snapshots {rows, metadata, sort} onto the undo
// stack (clearing redo), then applies the change. A call that would change
// nothing leaves history untouched.
package table

import (
	"fmt"
	"slices"
	"strings"

	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/formula"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/value"
)

type State struct {
	data []sheet.Row
	meta *sheet.Meta

	undo []snapshot
	redo []snapshot

	sort         *SortSpec
	filterColumn string
	filterQuery  string
	searchQuery  string
}

func New() *State {
	return &State{meta: &sheet.Meta{}}
}

func FromData(data []sheet.Row) *State {
	return FromDataAndMeta(data, nil)
}

func FromDataAndMeta(data []sheet.Row, meta *sheet.Meta) *State {
	s := New()
	s.Replace(data, meta)
	return s
}

// Replace swaps in a freshly opened sheet and resets history and view
// state. A nil meta means no metadata.
func (s *State) Replace(data []sheet.Row, meta *sheet.Meta) {
	if data == nil {
		data = []sheet.Row{}
	}
	if meta == nil {
		meta = &sheet.Meta{}
	}
	meta.AutoDetectRowKey(data)
	meta.ApplyCommentRows(data)
	meta.ResizeRowMetadata(len(data))

	s.data = data
	s.meta = meta
	s.undo = nil
	s.redo = nil
	s.sort = nil
	s.filterColumn = ""
	s.filterQuery = ""
	s.searchQuery = ""
}

// Data returns the live rows. Callers must not modify them.
func (s *State) Data() []sheet.Row { return s.data }

// Meta returns the live metadata. Callers must not modify it.
func (s *State) Meta() *sheet.Meta { return s.meta }

// MetaForSave returns a copy of the metadata with current comment column
// values captured into its per-row slots.
func (s *State) MetaForSave() *sheet.Meta {
	meta := clone(s.meta)
	meta.CaptureCommentRows(s.data)
	return meta
}

func (s *State) RowCount() int { return len(s.data) }

func (s *State) DisplayColumns() []string { return s.meta.DisplayColumns(s.data) }

func (s *State) Sort() (SortSpec, bool) {
	if s.sort == nil {
		return SortSpec{}, false
	}
	return *s.sort, true
}

func (s *State) Filter() (column, query string) { return s.filterColumn, s.filterQuery }

func (s *State) SearchQuery() string { return s.searchQuery }

// Metadata settings below change presentation only, so they are not
// recorded in history.

func (s *State) SetColumnOrder(order []string) { s.meta.SetColumnOrder(order) }

func (s *State) SetColumnType(column string, t coerce.ColumnType) {
	s.meta.SetColumnType(strings.TrimSpace(column), t)
}

func (s *State) SetSummaryKind(column string, kind sheet.SummaryKind) {
	s.meta.SetSummaryKind(strings.TrimSpace(column), kind)
}

func (s *State) SetValidationRule(column string, rule coerce.Rule) {
	s.meta.SetValidationRule(strings.TrimSpace(column), rule)
}

func (s *State) SetFrozenColumns(n int) { s.meta.SetFrozenColumns(n) }

func (s *State) AddConditionalFormat(cf sheet.ConditionalFormat) error {
	return s.meta.AddConditionalFormat(cf)
}

func (s *State) RemoveConditionalFormat(i int) bool { return s.meta.RemoveConditionalFormat(i) }

func (s *State) SetRowKey(column string) error { return s.meta.SetRowKey(column) }

func (s *State) SetCellStyle(row int, column, color, background string) bool {
	if !s.inRange(row) {
		return false
	}
	return s.meta.SetCellStyle(row, column, color, background)
}

func (s *State) ClearCellStyle(row int, column string) bool {
	return s.meta.ClearCellStyle(row, column)
}

func (s *State) CellStyle(row int, column string) (sheet.CellStyle, bool) {
	return s.meta.CellStyle(row, column)
}

func (s *State) EffectiveStyle(row int, column string) (sheet.CellStyle, bool) {
	if !s.inRange(row) {
		return sheet.CellStyle{}, false
	}
	return s.meta.EffectiveStyle(s.data[row], row, column)
}

func (s *State) CellInlineStyle(row int, column string) string {
	if !s.inRange(row) {
		return ""
	}
	return s.meta.StyleInline(s.data[row], row, column)
}

// SetCommentColumn marks column as metadata-only. Marking materializes the
// column (as Null) on every row, creating a first row if the sheet is
// empty, so that it can be edited in the grid.
func (s *State) SetCommentColumn(column string, comment bool) bool {
	column = strings.TrimSpace(column)
	if column == "" || s.meta.IsCommentColumn(column) == comment {
		return false
	}
	s.pushUndo()
	s.meta.SetCommentColumn(column, comment)
	if comment {
		if len(s.data) == 0 {
			s.data = append(s.data, sheet.Row{})
			s.meta.ResizeRowMetadata(len(s.data))
		}
		for _, row := range s.data {
			if _, ok := row[column]; !ok {
				row[column] = value.Null()
			}
		}
	}
	return true
}

func (s *State) CellFormula(row int, column string) (string, bool) {
	return s.meta.FormulaFor(row, column)
}

// SetCellFormula attaches a formula to one cell. An invalid formula is
// rejected with a Formula error; setting the formula the cell already has
// is a no-op.
func (s *State) SetCellFormula(row int, column, text string) (bool, error) {
	column = strings.TrimSpace(column)
	if !s.inRange(row) {
		return false, fmt.Errorf("row %d out of range, sheet has %d rows", row, len(s.data))
	}
	if column == "" {
		return false, fmt.Errorf("column name is empty")
	}
	if err := formula.Validate(text); err != nil {
		return false, err
	}
	normalized := formula.Normalize(text)
	if current, ok := s.meta.FormulaFor(row, column); ok && current == normalized {
		return false, nil
	}
	s.pushUndo()
	s.sort = nil
	return s.meta.SetFormulaForCell(row, column, normalized), nil
}

func (s *State) RemoveCellFormula(row int, column string) bool {
	if _, ok := s.meta.FormulaFor(row, column); !ok {
		return false
	}
	s.pushUndo()
	s.sort = nil
	return s.meta.RemoveFormulaForCell(row, column)
}

// CellValue is the resolved, formula-aware value of a cell.
func (s *State) CellValue(row int, column string) (value.Value, bool) {
	if !s.inRange(row) {
		return value.Null(), false
	}
	return s.meta.ValueForCell(s.data[row], row, column)
}

// EvalFormula evaluates text against row without changing anything.
func (s *State) EvalFormula(row int, text string) (value.Value, error) {
	if !s.inRange(row) {
		return value.Value{}, fmt.Errorf("row %d out of range, sheet has %d rows", row, len(s.data))
	}
	return s.meta.EvalFormula(s.data[row], row, text)
}

func (s *State) CellDisplay(row int, column string) string {
	v, _ := s.CellValue(row, column)
	return v.Display()
}

// RowWithComputed returns row with every display column resolved.
func (s *State) RowWithComputed(row int) (sheet.Row, bool) {
	if !s.inRange(row) {
		return nil, false
	}
	base := s.data[row]
	out := make(sheet.Row, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, column := range s.DisplayColumns() {
		if v, ok := s.meta.ValueForCell(base, row, column); ok {
			out[column] = v
		}
	}
	return out, true
}

func (s *State) SummaryDisplay(column string) (string, bool) {
	return s.meta.SummaryDisplay(s.data, s.VisibleRows(), column)
}

// ExportData returns the rows to write to the primary file. Any row
// failing its declared types aborts the whole export.
func (s *State) ExportData() ([]sheet.Row, error) {
	out := make([]sheet.Row, len(s.data))
	for i, row := range s.data {
		exported, err := s.meta.ExportRow(row, i)
		if err != nil {
			return nil, err
		}
		out[i] = exported
	}
	return out, nil
}

// SetCellFromInput parses text typed by a user and stores it, subject to
// the column's type and validation rule.
func (s *State) SetCellFromInput(row int, column, input string) (bool, error) {
	parsed := value.ParseInput(input)
	coerced, err := s.meta.CoerceForColumn(column, parsed, &input)
	if err != nil {
		return false, err
	}
	return s.setCell(row, column, coerced)
}

// SetCellValue stores v, subject to the column's type and validation rule.
// A formula on the cell is removed.
func (s *State) SetCellValue(row int, column string, v value.Value) (bool, error) {
	coerced, err := s.meta.CoerceForColumn(column, v, nil)
	if err != nil {
		return false, err
	}
	return s.setCell(row, column, coerced)
}

func (s *State) setCell(row int, column string, v value.Value) (bool, error) {
	column = strings.TrimSpace(column)
	if !s.inRange(row) {
		return false, fmt.Errorf("row %d out of range, sheet has %d rows", row, len(s.data))
	}
	if column == "" {
		return false, fmt.Errorf("column name is empty")
	}
	_, hadFormula := s.meta.FormulaFor(row, column)
	if current, ok := s.data[row][column]; ok && value.Equal(current, v) && !hadFormula {
		return false, nil
	}
	s.pushUndo()
	s.sort = nil
	s.data[row][column] = v
	s.meta.RemoveFormulaForCell(row, column)
	return true, nil
}

// AddRow appends a row with every display column set to Null and returns
// its index.
func (s *State) AddRow() int {
	s.pushUndo()
	s.sort = nil
	row := make(sheet.Row)
	for _, column := range s.DisplayColumns() {
		row[column] = value.Null()
	}
	s.data = append(s.data, row)
	s.meta.ResizeRowMetadata(len(s.data))
	return len(s.data) - 1
}

// InsertRow inserts an empty row at index, shifting later rows and their
// metadata down.
func (s *State) InsertRow(index int) bool {
	if index < 0 || index > len(s.data) {
		return false
	}
	s.pushUndo()
	s.sort = nil
	row := make(sheet.Row)
	for _, column := range s.DisplayColumns() {
		row[column] = value.Null()
	}
	s.data = append(s.data, nil)
	copy(s.data[index+1:], s.data[index:])
	s.data[index] = row
	s.meta.ResizeRowMetadata(len(s.data) - 1)
	s.meta.InsertRowMetadata(index)
	return true
}

func (s *State) DeleteRow(index int) bool {
	if !s.inRange(index) {
		return false
	}
	s.pushUndo()
	s.sort = nil
	s.data = append(s.data[:index], s.data[index+1:]...)
	s.meta.RemoveRowMetadata(index)
	return true
}

// AddColumn adds name to every row as Null. On an empty sheet it creates a
// first row holding the column. An existing column name is rejected.
func (s *State) AddColumn(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if len(s.data) > 0 {
		for _, row := range s.data {
			if _, ok := row[name]; ok {
				return false
			}
		}
	}
	s.pushUndo()
	s.sort = nil
	if len(s.data) == 0 {
		s.data = append(s.data, sheet.Row{name: value.Null()})
		s.meta.ResizeRowMetadata(len(s.data))
		return true
	}
	for _, row := range s.data {
		row[name] = value.Null()
	}
	return true
}

// DeleteColumn removes name from every row along with all of its metadata.
// A column known only from metadata can be deleted too. Deleting the
// filtered column clears the filter.
func (s *State) DeleteColumn(name string) bool {
	name = strings.TrimSpace(name)
	if !slices.Contains(s.DisplayColumns(), name) {
		return false
	}
	s.pushUndo()
	s.sort = nil
	for _, row := range s.data {
		delete(row, name)
	}
	s.meta.RemoveColumnMetadata(name)
	if s.filterColumn == name {
		s.ClearFilter()
	}
	return true
}

func (s *State) inRange(row int) bool { return row >= 0 && row < len(s.data) }
