package sheet

import (
	"fmt"
	"sort"

	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/formula"
	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/value"
)

// FormulaFor returns the normalized formula attached to (row, column).
func (m *Meta) FormulaFor(row int, column string) (string, bool) {
	if row < 0 || row >= len(m.CellFormulas) {
		return "", false
	}
	f, ok := m.CellFormulas[row][column]
	return f, ok
}

// SetFormulaForCell attaches an already-normalized formula. The per-row
// slice grows as needed.
func (m *Meta) SetFormulaForCell(row int, column, text string) bool {
	if row < 0 || column == "" {
		return false
	}
	for len(m.CellFormulas) <= row {
		m.CellFormulas = append(m.CellFormulas, nil)
	}
	if m.CellFormulas[row] == nil {
		m.CellFormulas[row] = make(map[string]string)
	}
	m.CellFormulas[row][column] = text
	return true
}

func (m *Meta) RemoveFormulaForCell(row int, column string) bool {
	if _, ok := m.FormulaFor(row, column); !ok {
		return false
	}
	delete(m.CellFormulas[row], column)
	return true
}

// FormulaColumns lists the columns with a formula on row, sorted.
func (m *Meta) FormulaColumns(row int) []string {
	if row < 0 || row >= len(m.CellFormulas) {
		return nil
	}
	return sortedKeys(m.CellFormulas[row])
}

func (m *Meta) CellStyle(row int, column string) (CellStyle, bool) {
	if row < 0 || row >= len(m.CellStyles) {
		return CellStyle{}, false
	}
	s, ok := m.CellStyles[row][column]
	return s, ok
}

// SetCellStyle stores a trimmed style; if both colors are blank the cell
// style is cleared.
func (m *Meta) SetCellStyle(row int, column, color, background string) bool {
	style := NewCellStyle(color, background)
	if style.IsEmpty() {
		return m.ClearCellStyle(row, column)
	}
	if row < 0 || column == "" {
		return false
	}
	for len(m.CellStyles) <= row {
		m.CellStyles = append(m.CellStyles, nil)
	}
	if m.CellStyles[row] == nil {
		m.CellStyles[row] = make(map[string]CellStyle)
	}
	m.CellStyles[row][column] = style
	return true
}

func (m *Meta) ClearCellStyle(row int, column string) bool {
	if _, ok := m.CellStyle(row, column); !ok {
		return false
	}
	delete(m.CellStyles[row], column)
	return true
}

// ValueForCell resolves the value shown at (index, column): the cell's
// formula result when one is attached, else the stored value. ok is false
// when the cell has neither.
func (m *Meta) ValueForCell(row Row, index int, column string) (v value.Value, ok bool) {
	return m.resolve(row, index, column, formula.NewGuard())
}

func (m *Meta) resolve(row Row, index int, column string, g *formula.Guard) (value.Value, bool) {
	text, ok := m.FormulaFor(index, column)
	if !ok {
		v, present := row[column]
		return v, present
	}
	key := formula.CellKey{Row: index, Column: column}
	if !g.Enter(key) {
		return value.Null(), true
	}
	defer g.Leave(key)

	expr, err := formula.Parse(text)
	if err != nil {
		return value.Null(), true
	}
	return expr.Eval(func(name string) value.Value {
		v, _ := m.resolve(row, index, name, g)
		return v
	}), true
}

// EvalFormula evaluates an ad hoc formula against row without storing it.
// References resolve the way cells do, formulas included.
func (m *Meta) EvalFormula(row Row, index int, text string) (value.Value, error) {
	expr, err := formula.Parse(text)
	if err != nil {
		return value.Value{}, err
	}
	g := formula.NewGuard()
	return expr.Eval(func(name string) value.Value {
		v, _ := m.resolve(row, index, name, g)
		return v
	}), nil
}

// CoerceForColumn applies the column's declared type and validation rule
// to v. input is the raw text the user typed, if any.
func (m *Meta) CoerceForColumn(column string, v value.Value, input *string) (value.Value, error) {
	out := v
	if t, ok := m.ColumnType(column); ok {
		coerced, err := coerce.Coerce(t, v, input)
		if err != nil {
			return value.Value{}, err
		}
		out = coerced
	}
	if rule, ok := m.ValidationRule(column); ok {
		if err := coerce.Validate(rule, out); err != nil {
			return value.Value{}, err
		}
	}
	return out, nil
}

// ExportRow produces the row written to the primary file: formulas are
// replaced by their results, declared types are enforced on non-null
// values and comment columns are dropped.
func (m *Meta) ExportRow(row Row, index int) (Row, error) {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}

	for _, column := range m.FormulaColumns(index) {
		g := formula.NewGuard()
		v, _ := m.resolve(row, index, column, g)
		if g.Cycles() > 0 {
			return nil, sheeterr.New(sheeterr.KindExport, "row %d column %q: formula is circular", index+1, column)
		}
		out[column] = v
	}

	columns := make([]string, 0, len(m.Columns))
	for c := range m.Columns {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	for _, column := range columns {
		v, ok := out[column]
		if !ok || v.IsNull() {
			continue
		}
		coerced, err := coerce.Coerce(m.Columns[column].Type, v, nil)
		if err != nil {
			return nil, &sheeterr.Error{
				Kind: sheeterr.KindExport,
				Msg:  fmt.Sprintf("row %d column %q does not match declared type", index+1, column),
				Err:  err,
			}
		}
		out[column] = coerced
	}

	for column := range m.CommentColumns {
		delete(out, column)
	}
	return out, nil
}
