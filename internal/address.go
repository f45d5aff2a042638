package internal

import (
	"fmt"
	"strconv"
	"strings"
)

// Cell is a command-line cell reference. Row is 0-indexed; the text form
// "ROW!COLUMN" is 1-indexed.
type Cell struct {
	Row    int
	Column string
}

func (c Cell) String() string {
	return strconv.Itoa(c.Row+1) + "!" + c.Column
}

// Edit is one parsed command-line edit.
type Edit struct {
	Cell
	// Formula reports that Text is a formula ("ROW!COLUMN==FORMULA").
	Formula bool
	Text    string
}

// ParseCell parses "ROW!COLUMN", e.g. "3!hp".
func ParseCell(ref string) (Cell, error) {
	rowPart, column, ok := strings.Cut(ref, "!")
	if !ok {
		return Cell{}, fmt.Errorf("cell must be ROW!COLUMN (e.g. 1!name), got %q", ref)
	}
	row, err := strconv.Atoi(strings.TrimSpace(rowPart))
	if err != nil || row < 1 {
		return Cell{}, fmt.Errorf("invalid row %q in %q: rows start at 1", rowPart, ref)
	}
	column = strings.TrimSpace(column)
	if column == "" {
		return Cell{}, fmt.Errorf("missing column name in %q", ref)
	}
	return Cell{Row: row - 1, Column: column}, nil
}

// ParseEdit parses "ROW!COLUMN=VALUE" or "ROW!COLUMN==FORMULA". The value
// text is kept verbatim for input parsing.
func ParseEdit(spec string) (Edit, error) {
	ref, rest, ok := strings.Cut(spec, "=")
	if !ok {
		return Edit{}, fmt.Errorf("edit must be ROW!COLUMN=VALUE or ROW!COLUMN==FORMULA, got %q", spec)
	}
	cell, err := ParseCell(ref)
	if err != nil {
		return Edit{}, err
	}
	if f, isFormula := strings.CutPrefix(rest, "="); isFormula {
		if strings.TrimSpace(f) == "" {
			return Edit{}, fmt.Errorf("empty formula in %q", spec)
		}
		return Edit{Cell: cell, Formula: true, Text: f}, nil
	}
	return Edit{Cell: cell, Text: rest}, nil
}

// ParseRowNumber converts a 1-indexed row argument to a 0-indexed row.
func ParseRowNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid row %q: rows start at 1", s)
	}
	return n - 1, nil
}
