package convert

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/value"
)

const defaultSheetName = "Sheet1"

// WriteXLSX writes a header row, one row per record, and a summary footer
// when any column has a summary. Effective cell styles become font and fill
// colors, and frozen columns become a frozen pane alongside the header.
func WriteXLSX(e *Export, path, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = defaultSheetName
	}
	if sheetName != defaultSheetName {
		if err := f.SetSheetName(defaultSheetName, sheetName); err != nil {
			return sheeterr.Wrap(sheeterr.KindExport, path, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return sheeterr.Wrap(sheeterr.KindExport, path, err)
	}
	for i, c := range e.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellStr(sheetName, cell, c); err != nil {
			return sheeterr.Wrap(sheeterr.KindExport, path, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return sheeterr.Wrap(sheeterr.KindExport, path, err)
		}
	}

	styleIDs := make(map[sheet.CellStyle]int)
	for r, row := range e.Rows {
		for i, c := range e.Columns {
			v, ok := row[c]
			if !ok || v.IsNull() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(sheetName, cell, xlsxValue(v)); err != nil {
				return sheeterr.Wrap(sheeterr.KindExport, path, err)
			}
		}
		if r >= len(e.Styles) {
			continue
		}
		for i, c := range e.Columns {
			st, ok := e.Styles[r][c]
			if !ok {
				continue
			}
			id, seen := styleIDs[st]
			if !seen {
				id, err = f.NewStyle(xlsxStyle(st))
				if err != nil {
					return sheeterr.Wrap(sheeterr.KindExport, path, err)
				}
				styleIDs[st] = id
			}
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellStyle(sheetName, cell, cell, id); err != nil {
				return sheeterr.Wrap(sheeterr.KindExport, path, err)
			}
		}
	}

	if len(e.Summaries) > 0 {
		footer := len(e.Rows) + 2
		italic, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true}})
		if err != nil {
			return sheeterr.Wrap(sheeterr.KindExport, path, err)
		}
		for i, c := range e.Columns {
			text, ok := e.Summaries[c]
			if !ok {
				continue
			}
			kind, _ := e.Meta.SummaryKind(c)
			cell, _ := excelize.CoordinatesToCellName(i+1, footer)
			if err := f.SetCellStr(sheetName, cell, string(kind)+": "+text); err != nil {
				return sheeterr.Wrap(sheeterr.KindExport, path, err)
			}
			if err := f.SetCellStyle(sheetName, cell, cell, italic); err != nil {
				return sheeterr.Wrap(sheeterr.KindExport, path, err)
			}
		}
	}

	frozen := 0
	if e.Meta != nil {
		frozen = min(e.Meta.FrozenColumns, len(e.Columns))
	}
	topLeft, _ := excelize.CoordinatesToCellName(frozen+1, 2)
	pane := "bottomLeft"
	if frozen > 0 {
		pane = "bottomRight"
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      frozen,
		YSplit:      1,
		TopLeftCell: topLeft,
		ActivePane:  pane,
	}); err != nil {
		return sheeterr.Wrap(sheeterr.KindExport, path, err)
	}

	if err := f.SaveAs(path); err != nil {
		return sheeterr.Wrap(sheeterr.KindIO, path, err)
	}
	return nil
}

func xlsxValue(v value.Value) any {
	switch v.Kind {
	case value.KindArray, value.KindObject:
		return v.Display()
	case value.KindNumber:
		if i, ok := v.Int64(); ok {
			return i
		}
		// excelize has no uint64 or arbitrary precision cell type
		if _, ok := v.Uint64(); ok {
			return v.Display()
		}
	}
	return v.Native()
}

func xlsxStyle(st sheet.CellStyle) *excelize.Style {
	out := &excelize.Style{}
	if c, ok := hexColor(st.Color); ok {
		out.Font = &excelize.Font{Color: c}
	}
	if c, ok := hexColor(st.Background); ok {
		out.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{c}}
	}
	return out
}

// hexColor turns "#rgb" or "#rrggbb" into the RRGGBB form excelize expects.
// Named colors are not supported.
func hexColor(s string) (string, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "", false
		}
	}
	switch len(s) {
	case 3:
		return strings.ToUpper(string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})), true
	case 6:
		return strings.ToUpper(s), true
	}
	return "", false
}

// ReadXLSX imports one sheet of a workbook. The first row names the
// columns; a blank header takes the column letter. Empty cells become
// Null and fully empty rows are skipped.
func ReadXLSX(path, sheetName string) ([]sheet.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, sheeterr.Wrap(sheeterr.KindIO, path, err)
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &sheeterr.Error{Kind: sheeterr.KindSchema, Path: path, Msg: "workbook has no sheets"}
		}
		sheetName = sheets[0]
	}
	grid, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &sheeterr.Error{Kind: sheeterr.KindSchema, Path: path, Msg: fmt.Sprintf("sheet %q", sheetName), Err: err}
	}
	if len(grid) == 0 {
		return []sheet.Row{}, nil
	}

	header := make([]string, 0, len(grid[0]))
	seen := make(map[string]int)
	for i, h := range grid[0] {
		name := strings.TrimSpace(h)
		if name == "" {
			name, _ = excelize.ColumnNumberToName(i + 1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		header = append(header, name)
	}

	rows := make([]sheet.Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := make(sheet.Row, len(header))
		empty := true
		for i, name := range header {
			v := value.Null()
			if i < len(cells) {
				v = detectCell(cells[i])
			}
			if !v.IsNull() {
				empty = false
			}
			row[name] = v
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func detectCell(text string) value.Value {
	s := strings.TrimSpace(text)
	switch {
	case s == "":
		return value.Null()
	case strings.EqualFold(s, "true"):
		return value.Bool(true)
	case strings.EqualFold(s, "false"):
		return value.Bool(false)
	}
	if n, ok := value.ParseNumber(s); ok {
		return n
	}
	return value.String(text)
}

func sortedFieldNames(m map[string]value.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
