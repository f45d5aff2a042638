package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/value"
)

func rowsByID(ids ...int64) []sheet.Row {
	rows := make([]sheet.Row, len(ids))
	for i, id := range ids {
		rows[i] = sheet.Row{"id": value.Int(id), "hp": value.Int(id * 10)}
	}
	return rows
}

func TestPathFor(t *testing.T) {
	if got := PathFor("/tmp/data.json"); got != "/tmp/data.json.jsheet" {
		t.Fatalf("PathFor = %q", got)
	}
}

func TestMissingSidecarYieldsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.json")
	meta, err := Load(p, rowsByID(1, 2))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.RowKey != "" || len(meta.Columns) != 0 {
		t.Fatalf("expected empty meta, got %#v", meta)
	}
	if len(meta.CellFormulas) != 2 {
		t.Fatalf("row metadata should be sized to the data, got %d", len(meta.CellFormulas))
	}
}

func TestMalformedSidecarIsParseError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(PathFor(p), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(p, nil)
	if !sheeterr.Is(err, sheeterr.KindParse) {
		t.Fatalf("Load error = %v, want parse", err)
	}
	if !strings.Contains(err.Error(), ".jsheet") {
		t.Fatalf("error should name the sidecar path: %v", err)
	}
}

func TestKeyedRoundTripSurvivesReorder(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.json")
	data := rowsByID(1, 2, 3)

	meta := &sheet.Meta{RowKey: "id"}
	meta.ResizeRowMetadata(len(data))
	meta.SetFormulaForCell(0, "double", "hp * 2")
	meta.SetCellStyle(2, "hp", "#ff0000", "")
	meta.SetCommentColumn("note", true)
	meta.CommentRows[1] = sheet.Row{"note": value.String("second")}

	if err := Save(p, meta, data); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(PathFor(p))
	if err != nil {
		t.Fatal(err)
	}
	var onDisk map[string]json.RawMessage
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatal(err)
	}
	for _, legacy := range []string{"cell_formulas", "cell_styles", "comment_rows"} {
		if _, ok := onDisk[legacy]; ok {
			t.Errorf("keyed sidecar should not contain %s", legacy)
		}
	}
	if string(onDisk["keyed_cell_formulas"]) == "" {
		t.Fatal("expected keyed_cell_formulas")
	}

	// another tool reverses the file and drops row 2
	edited := rowsByID(3, 1)
	loaded, err := Load(p, edited)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f, ok := loaded.FormulaFor(1, "double"); !ok || f != "hp * 2" {
		t.Fatalf("formula should follow id 1 to index 1, got %q %v", f, ok)
	}
	if _, ok := loaded.FormulaFor(0, "double"); ok {
		t.Fatal("id 3 has no formula")
	}
	if s, ok := loaded.CellStyle(0, "hp"); !ok || s.Color != "#ff0000" {
		t.Fatalf("style should follow id 3 to index 0, got %#v", s)
	}
	for i, row := range loaded.CommentRows {
		if len(row) != 0 {
			t.Fatalf("comment for removed id 2 should be dropped, found at %d", i)
		}
	}
	if len(loaded.CellFormulas) != 2 || len(loaded.CellStyles) != 2 {
		t.Fatal("row metadata should match the new row count")
	}
}

func TestIndexedRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.json")
	data := rowsByID(1, 2)

	meta := &sheet.Meta{}
	meta.SetColumnType("hp", coerce.TypeNumber)
	meta.SetSummaryKind("hp", sheet.SummarySum)
	meta.SetColumnOrder([]string{"hp", "id"})
	meta.SetFrozenColumns(1)
	lo := 0.0
	meta.SetValidationRule("hp", coerce.Rule{Min: &lo})
	if err := meta.AddConditionalFormat(sheet.ConditionalFormat{Column: "hp", Rule: "< 100", Style: sheet.CellStyle{Color: "#ff0000"}}); err != nil {
		t.Fatal(err)
	}
	meta.ResizeRowMetadata(2)
	meta.SetFormulaForCell(1, "hp", "id * 100")

	if err := Save(p, meta, data); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(p, data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if typ, _ := loaded.ColumnType("hp"); typ != coerce.TypeNumber {
		t.Errorf("type = %q", typ)
	}
	if k, _ := loaded.SummaryKind("hp"); k != sheet.SummarySum {
		t.Errorf("summary = %q", k)
	}
	if loaded.FrozenColumns != 1 || len(loaded.ColumnOrder) != 2 {
		t.Errorf("frozen=%d order=%v", loaded.FrozenColumns, loaded.ColumnOrder)
	}
	if r, ok := loaded.ValidationRule("hp"); !ok || r.Min == nil || *r.Min != 0 {
		t.Errorf("validation = %#v", r)
	}
	if len(loaded.ConditionalFormats) != 1 || loaded.ConditionalFormats[0].Rule != "< 100" {
		t.Errorf("conditional formats = %#v", loaded.ConditionalFormats)
	}
	if f, ok := loaded.FormulaFor(1, "hp"); !ok || f != "id * 100" {
		t.Errorf("formula = %q %v", f, ok)
	}
}

func TestSummaryKindsAreUppercaseOnDisk(t *testing.T) {
	meta := &sheet.Meta{}
	meta.SetSummaryKind("hp", sheet.SummaryAvg)
	raw, err := Marshal(meta, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"hp": "AVG"`) {
		t.Fatalf("sidecar = %s", raw)
	}
}

func TestDuplicateKeysLaterRowWins(t *testing.T) {
	f := File{
		RowKey:            "id",
		KeyedCellFormulas: map[string]map[string]string{"1": {"x": "1"}},
	}
	data := []sheet.Row{{"id": value.Int(1)}, {"id": value.Int(1)}}
	meta := f.Decode(data)
	if _, ok := meta.FormulaFor(0, "x"); ok {
		t.Fatal("earlier duplicate should not receive metadata")
	}
	if _, ok := meta.FormulaFor(1, "x"); !ok {
		t.Fatal("later duplicate should receive metadata")
	}
}

func TestRealign(t *testing.T) {
	old := rowsByID(1, 2)
	meta := &sheet.Meta{RowKey: "id"}
	meta.SetFormulaForCell(1, "x", "id")

	moved, err := Realign(meta, old, rowsByID(2, 1, 5))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := moved.FormulaFor(0, "x"); !ok {
		t.Fatal("formula should move with id 2 to index 0")
	}
	if len(moved.CellFormulas) != 3 {
		t.Fatalf("len = %d", len(moved.CellFormulas))
	}
	if _, ok := meta.FormulaFor(1, "x"); !ok {
		t.Fatal("Realign must not modify its input")
	}
}

func TestDeletedKeyDoesNotAttachToKeylessRow(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.json")
	data := []sheet.Row{
		{"id": value.Int(0), "n": value.Int(10)},
		{"id": value.Int(1), "n": value.Int(20)},
	}
	meta := &sheet.Meta{RowKey: "id"}
	meta.ResizeRowMetadata(len(data))
	meta.SetFormulaForCell(0, "double", "n * 2")
	meta.SetCellStyle(0, "n", "#ff0000", "")
	if err := Save(p, meta, data); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// id 0 is removed and a row without an id takes its place
	edited := []sheet.Row{
		{"n": value.Int(99)},
		{"id": value.Int(1), "n": value.Int(20)},
	}
	loaded, err := Load(p, edited)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f, ok := loaded.FormulaFor(0, "double"); ok {
		t.Fatalf("formula of removed id 0 attached to keyless row: %q", f)
	}
	if _, ok := loaded.CellStyle(0, "n"); ok {
		t.Fatal("style of removed id 0 attached to keyless row")
	}
}

func TestKeylessRowsKeepMetadataByPosition(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.json")
	data := []sheet.Row{
		{"id": value.Int(5), "n": value.Int(1)},
		{"n": value.Int(2)},
	}
	meta := &sheet.Meta{RowKey: "id"}
	meta.ResizeRowMetadata(len(data))
	meta.SetFormulaForCell(0, "x", "n + 1")
	meta.SetFormulaForCell(1, "x", "n * 3")
	if err := Save(p, meta, data); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(PathFor(p))
	if err != nil {
		t.Fatal(err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.KeyedCellFormulas["1"]; ok {
		t.Fatal("keyless row must not be stored under its position as a key")
	}
	if len(f.KeyedCellFormulas) != 1 || f.KeyedCellFormulas["5"]["x"] != "n + 1" {
		t.Fatalf("keyed formulas = %#v", f.KeyedCellFormulas)
	}

	cases := []struct {
		name string
		data []sheet.Row
		row  int
		want string
	}{
		{"unchanged", data, 1, "n * 3"},
		{"keyed row moved", []sheet.Row{{"n": value.Int(2)}, {"id": value.Int(5)}}, 1, "n + 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loaded, err := Load(p, tc.data)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got, _ := loaded.FormulaFor(tc.row, "x"); got != tc.want {
				t.Fatalf("row %d formula = %q, want %q", tc.row, got, tc.want)
			}
		})
	}

	// a keyed row now sits where the keyless one was
	loaded, err := Load(p, []sheet.Row{{"id": value.Int(5)}, {"id": value.Int(6)}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f, ok := loaded.FormulaFor(1, "x"); ok {
		t.Fatalf("positional entry applied to keyed row: %q", f)
	}
}

func TestInvalidMetadataIsParseError(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"unknown type", `{"columns": {"hp": {"type": "integer"}}}`},
		{"empty type", `{"columns": {"hp": {}}}`},
		{"unknown summary", `{"summaries": {"hp": "MEDIAN"}}`},
		{"negative frozen", `{"frozen_columns": -1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "data.json")
			if err := os.WriteFile(PathFor(p), []byte(tc.raw), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(p, nil); !sheeterr.Is(err, sheeterr.KindParse) {
				t.Fatalf("Load error = %v, want parse", err)
			}
		})
	}
}

func TestUnmarshalNormalizesEnums(t *testing.T) {
	f, err := Unmarshal([]byte(`{"columns": {"hp": {"type": "Number"}}, "summaries": {"hp": "sum"}}`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f.Columns["hp"].Type != coerce.TypeNumber || f.Summaries["hp"] != sheet.SummarySum {
		t.Fatalf("got %#v %#v", f.Columns, f.Summaries)
	}
}
