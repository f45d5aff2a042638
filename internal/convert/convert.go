// Package convert writes a sheet to other formats and imports xlsx
// workbooks as rows.
package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/witanlabs/jsheet/internal/fsutil"
	"github.com/witanlabs/jsheet/internal/jsonio"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/table"
)

type Format string

const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

var Formats = []Format{FormatJSON, FormatYAML, FormatXLSX, FormatSQLite}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatXLSX, FormatSQLite:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "db", "sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("unknown format %q (expected json, yaml, xlsx or sqlite)", s)
}

// FormatForPath guesses the format from a file extension.
func FormatForPath(path string) (Format, bool) {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return "", false
	}
	f, err := ParseFormat(path[i+1:])
	return f, err == nil
}

// Export is a sheet prepared for writing: formulas baked in, comment
// columns removed, declared types enforced.
type Export struct {
	Columns []string
	Rows    []sheet.Row
	Meta    *sheet.Meta
	// Summaries holds the footer text per column, computed over all rows.
	Summaries map[string]string
	// Styles holds the effective style of each styled cell, by row.
	Styles []map[string]sheet.CellStyle
}

func FromState(s *table.State) (*Export, error) {
	rows, err := s.ExportData()
	if err != nil {
		return nil, err
	}
	meta := s.Meta()
	var columns []string
	for _, c := range s.DisplayColumns() {
		if !meta.IsCommentColumn(c) {
			columns = append(columns, c)
		}
	}

	all := make([]int, len(rows))
	for i := range all {
		all[i] = i
	}
	summaries := make(map[string]string)
	for _, c := range columns {
		if text, ok := meta.SummaryDisplay(s.Data(), all, c); ok {
			summaries[c] = text
		}
	}

	styles := make([]map[string]sheet.CellStyle, len(rows))
	for i := range rows {
		for _, c := range columns {
			if st, ok := s.EffectiveStyle(i, c); ok {
				if styles[i] == nil {
					styles[i] = make(map[string]sheet.CellStyle)
				}
				styles[i][c] = st
			}
		}
	}
	return &Export{Columns: columns, Rows: rows, Meta: meta, Summaries: summaries, Styles: styles}, nil
}

// Write encodes e in format f to path.
func Write(ctx context.Context, f Format, e *Export, path string) error {
	switch f {
	case FormatJSON:
		return jsonio.Save(path, e.Rows)
	case FormatYAML:
		raw, err := EncodeYAML(e)
		if err != nil {
			return sheeterr.Wrap(sheeterr.KindExport, path, err)
		}
		if err := fsutil.WriteFileAtomic(path, raw, 0o644); err != nil {
			return sheeterr.Wrap(sheeterr.KindIO, path, err)
		}
		return nil
	case FormatXLSX:
		return WriteXLSX(e, path, "")
	case FormatSQLite:
		return WriteSQLite(ctx, e, path, "")
	}
	return fmt.Errorf("unsupported format %q", f)
}
