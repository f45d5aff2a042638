package table

import (
	"fmt"
	"strings"

	"github.com/witanlabs/jsheet/internal/formula"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/value"
)

type EditKind int

const (
	EditValue EditKind = iota
	EditFormula
)

// CellEdit is one entry of a batch. Value is used for EditValue, Formula
// for EditFormula.
type CellEdit struct {
	Row     int
	Column  string
	Kind    EditKind
	Value   value.Value
	Formula string
}

func ValueEdit(row int, column string, v value.Value) CellEdit {
	return CellEdit{Row: row, Column: column, Kind: EditValue, Value: v}
}

func FormulaEdit(row int, column, text string) CellEdit {
	return CellEdit{Row: row, Column: column, Kind: EditFormula, Formula: text}
}

// SkippedEdit records why an edit in a batch did not apply. Err is nil for
// edits skipped because they would not change anything.
type SkippedEdit struct {
	Index int
	Edit  CellEdit
	Err   error
}

// ApplyCellEdits applies edits as one undoable step. Edits that are invalid
// or would not change the cell are skipped and reported; the rest apply in
// order. When at least one edit applies, a single snapshot is pushed and the
// sort spec is cleared.
func (s *State) ApplyCellEdits(edits []CellEdit) (int, []SkippedEdit) {
	data := make([]sheet.Row, len(s.data))
	for i, row := range s.data {
		data[i] = clone(row)
	}
	meta := clone(s.meta)

	var skipped []SkippedEdit
	skip := func(i int, e CellEdit, err error) {
		skipped = append(skipped, SkippedEdit{Index: i, Edit: e, Err: err})
	}

	changed := 0
	for i, e := range edits {
		column := strings.TrimSpace(e.Column)
		if column == "" {
			skip(i, e, fmt.Errorf("column name is empty"))
			continue
		}
		if e.Row < 0 || e.Row >= len(data) {
			skip(i, e, fmt.Errorf("row %d out of range, sheet has %d rows", e.Row, len(data)))
			continue
		}

		switch e.Kind {
		case EditFormula:
			if err := formula.Validate(e.Formula); err != nil {
				skip(i, e, err)
				continue
			}
			normalized := formula.Normalize(e.Formula)
			if current, ok := meta.FormulaFor(e.Row, column); ok && current == normalized {
				skip(i, e, nil)
				continue
			}
			meta.SetFormulaForCell(e.Row, column, normalized)
		default:
			coerced, err := meta.CoerceForColumn(column, e.Value, nil)
			if err != nil {
				skip(i, e, err)
				continue
			}
			_, hadFormula := meta.FormulaFor(e.Row, column)
			if current, ok := data[e.Row][column]; ok && value.Equal(current, coerced) && !hadFormula {
				skip(i, e, nil)
				continue
			}
			data[e.Row][column] = coerced
			meta.RemoveFormulaForCell(e.Row, column)
		}
		changed++
	}

	if changed == 0 {
		return 0, skipped
	}
	s.pushUndo()
	s.sort = nil
	s.data = data
	s.meta = meta
	return changed, skipped
}
