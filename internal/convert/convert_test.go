package convert

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/table"
	"github.com/witanlabs/jsheet/internal/value"
)

func sample(t *testing.T) *table.State {
	t.Helper()
	big, _ := value.ParseNumber("18446744073709551615")
	s := table.FromData([]sheet.Row{
		{"name": value.String("Alice"), "hp": value.Int(10), "big": big, "tags": value.Array(value.String("a"))},
		{"name": value.String("Bob"), "hp": value.Int(20), "big": value.Null(), "tags": value.Null()},
	})
	s.SetColumnType("hp", coerce.TypeNumber)
	s.SetSummaryKind("hp", sheet.SummarySum)
	s.SetFrozenColumns(1)
	if _, err := s.SetCellFormula(0, "double", "hp * 2"); err != nil {
		t.Fatal(err)
	}
	s.SetCommentColumn("note", true)
	s.SetCellStyle(1, "name", "#f00", "#00ff00")
	return s
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"json", FormatJSON, true},
		{"YML", FormatYAML, true},
		{"xlsx", FormatXLSX, true},
		{"db", FormatSQLite, true},
		{"csv", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if f, ok := FormatForPath("out/data.sqlite"); !ok || f != FormatSQLite {
		t.Errorf("FormatForPath = %q %v", f, ok)
	}
}

func TestFromStateDropsCommentColumns(t *testing.T) {
	e, err := FromState(sample(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range e.Columns {
		if c == "note" {
			t.Fatal("comment column exported")
		}
	}
	if e.Summaries["hp"] != "30" {
		t.Fatalf("summary = %q", e.Summaries["hp"])
	}
	if st := e.Styles[1]["name"]; st.Color != "#f00" {
		t.Fatalf("style = %#v", st)
	}
}

func TestEncodeYAML(t *testing.T) {
	e, err := FromState(sample(t))
	if err != nil {
		t.Fatal(err)
	}
	raw, err := EncodeYAML(e)
	if err != nil {
		t.Fatal(err)
	}
	out := string(raw)
	for _, want := range []string{"- big: 18446744073709551615", "double: 20", "name: Alice", "- a", "big: null"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	e, err := FromState(sample(t))
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), "out.xlsx")
	if err := WriteXLSX(e, p, "People"); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	panes, err := f.GetPanes("People")
	if err != nil {
		t.Fatal(err)
	}
	if !panes.Freeze || panes.XSplit != 1 || panes.YSplit != 1 {
		t.Fatalf("panes = %#v", panes)
	}

	rows, err := ReadXLSX(p, "")
	if err != nil {
		t.Fatal(err)
	}
	// two data rows plus the summary footer
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if !value.Equal(rows[0]["hp"], value.Int(10)) || !value.Equal(rows[0]["double"], value.Int(20)) {
		t.Fatalf("row 0 = %#v", rows[0])
	}
	if !rows[1]["big"].IsNull() {
		t.Fatalf("empty cell should import as null, got %#v", rows[1]["big"])
	}
	if got := rows[2]["hp"].Display(); got != "SUM: 30" {
		t.Fatalf("footer = %q", got)
	}
}

func TestReadXLSXHeaders(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "id")
	f.SetCellValue("Sheet1", "C1", "id")
	f.SetCellValue("Sheet1", "A2", 1)
	f.SetCellValue("Sheet1", "B2", "TRUE")
	f.SetCellValue("Sheet1", "C2", 2.5)
	p := filepath.Join(t.TempDir(), "in.xlsx")
	if err := f.SaveAs(p); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadXLSX(p, "Sheet1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	want := sheet.Row{"id": value.Int(1), "B": value.Bool(true), "id_2": value.Float(2.5)}
	for k, v := range want {
		if !value.Equal(rows[0][k], v) {
			t.Errorf("%s = %#v, want %#v", k, rows[0][k], v)
		}
	}
}

func TestWriteSQLite(t *testing.T) {
	e, err := FromState(sample(t))
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), "out.db")
	if err := os.WriteFile(p, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteSQLite(context.Background(), e, p, "people"); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM people`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("count = %d", n)
	}
	var total int64
	if err := db.QueryRow(`SELECT SUM(hp) FROM people`).Scan(&total); err != nil {
		t.Fatal(err)
	}
	if total != 30 {
		t.Fatalf("sum = %d", total)
	}
	var tags sql.NullString
	if err := db.QueryRow(`SELECT tags FROM people WHERE name = 'Alice'`).Scan(&tags); err != nil {
		t.Fatal(err)
	}
	if tags.String != `["a"]` {
		t.Fatalf("tags = %q", tags.String)
	}
}

func TestHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"#f00", "FF0000", true},
		{"00ff00", "00FF00", true},
		{"red", "", false},
		{"#12345", "", false},
	}
	for _, tt := range tests {
		got, ok := hexColor(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("hexColor(%q) = %q %v", tt.in, got, ok)
		}
	}
}
