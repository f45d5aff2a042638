// Package render draws a table state as a text grid for the terminal.
package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/witanlabs/jsheet/internal/table"
)

const DefaultMaxColumnWidth = 24

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	rowNumStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	summaryStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("14"))
	formulaStyle = lipgloss.NewStyle().Underline(true)
	hitStyle     = lipgloss.NewStyle().Reverse(true)
)

type Options struct {
	// MaxColumnWidth caps each column's display width. Zero means
	// DefaultMaxColumnWidth.
	MaxColumnWidth int
	// Color enables ANSI styling: cell and conditional styles, formula
	// underlines, search hits.
	Color bool
	// Columns restricts and orders the columns shown. Empty means all
	// display columns.
	Columns []string
}

type cell struct {
	text  string
	style lipgloss.Style
}

// Grid renders the visible rows of s. Row numbers are 1-based. A summary
// footer is added when any shown column has one.
func Grid(s *table.State, opts Options) string {
	maxWidth := opts.MaxColumnWidth
	if maxWidth <= 0 {
		maxWidth = DefaultMaxColumnWidth
	}
	columns := opts.Columns
	if len(columns) == 0 {
		columns = s.DisplayColumns()
	}
	visible := s.VisibleRows()
	frozen := s.Meta().FrozenColumns

	header := make([]cell, 0, len(columns)+1)
	header = append(header, cell{text: "#", style: headerStyle})
	spec, sorted := s.Sort()
	for _, c := range columns {
		label := c
		if sorted && spec.Column == c {
			if spec.Order == table.Desc {
				label += " ▼"
			} else {
				label += " ▲"
			}
		}
		header = append(header, cell{text: label, style: headerStyle})
	}

	body := make([][]cell, 0, len(visible))
	for _, row := range visible {
		line := make([]cell, 0, len(columns)+1)
		line = append(line, cell{text: strconv.Itoa(row + 1), style: rowNumStyle})
		for _, c := range columns {
			line = append(line, cell{text: s.CellDisplay(row, c), style: cellStyle(s, row, c)})
		}
		body = append(body, line)
	}

	var footer []cell
	for i, c := range columns {
		if text, ok := s.SummaryDisplay(c); ok {
			if footer == nil {
				footer = make([]cell, len(columns)+1)
				footer[0] = cell{text: "Σ", style: summaryStyle}
				for j := range columns {
					footer[j+1] = cell{style: summaryStyle}
				}
			}
			kind, _ := s.Meta().SummaryKind(c)
			footer[i+1].text = string(kind) + " " + text
		}
	}

	widths := make([]int, len(columns)+1)
	measure := func(line []cell) {
		for i, c := range line {
			if w := runewidth.StringWidth(flatten(c.text)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(header)
	for _, line := range body {
		measure(line)
	}
	if footer != nil {
		measure(footer)
	}
	for i := 1; i < len(widths); i++ {
		widths[i] = min(widths[i], maxWidth)
	}

	var b strings.Builder
	write := func(line []cell) {
		for i, c := range line {
			if i > 0 {
				if i == frozen+1 && frozen > 0 {
					b.WriteString(" ┃ ")
				} else {
					b.WriteString(" │ ")
				}
			}
			text := padRight(truncate(flatten(c.text), widths[i]), widths[i])
			if opts.Color {
				text = c.style.Render(text)
			}
			b.WriteString(text)
		}
		b.WriteByte('\n')
	}
	write(header)
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w)
	}
	b.WriteString(strings.Join(rule, "─┼─"))
	b.WriteByte('\n')
	for _, line := range body {
		write(line)
	}
	if footer != nil {
		write(footer)
	}
	return b.String()
}

func cellStyle(s *table.State, row int, column string) lipgloss.Style {
	st := lipgloss.NewStyle()
	if cs, ok := s.EffectiveStyle(row, column); ok {
		if cs.Color != "" {
			st = st.Foreground(lipgloss.Color(cs.Color))
		}
		if cs.Background != "" {
			st = st.Background(lipgloss.Color(cs.Background))
		}
	}
	if _, ok := s.CellFormula(row, column); ok {
		st = st.Inherit(formulaStyle)
	}
	if s.CellMatchesSearch(row, column) {
		st = st.Inherit(hitStyle)
	}
	return st
}

// flatten keeps a cell on one line.
func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ").Replace(s)
}

// truncate shortens s to width display cells, ending in an ellipsis when
// anything was cut.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width < 2 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "…")
}

func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
