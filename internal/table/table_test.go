package table

import (
	"reflect"
	"slices"
	"testing"

	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/value"
)

func party() *State {
	return FromData([]sheet.Row{
		{"name": value.String("carol"), "hp": value.Int(30)},
		{"name": value.String("Alice"), "hp": value.Int(10)},
		{"name": value.String("bob"), "hp": value.Int(20)},
	})
}

func column(s *State, name string) []string {
	out := make([]string, s.RowCount())
	for i := range out {
		out[i] = s.CellDisplay(i, name)
	}
	return out
}

func TestSetCellFromInputRespectsType(t *testing.T) {
	s := party()
	s.SetColumnType("hp", coerce.TypeNumber)

	changed, err := s.SetCellFromInput(0, "hp", "abc")
	if !sheeterr.Is(err, sheeterr.KindCoercion) || changed {
		t.Fatalf("SetCellFromInput(abc) = %v, %v; want coercion error", changed, err)
	}
	if s.CanUndo() {
		t.Fatal("rejected edit must not push history")
	}

	changed, err = s.SetCellFromInput(0, "hp", "42")
	if err != nil || !changed {
		t.Fatalf("SetCellFromInput(42) = %v, %v", changed, err)
	}
	if v, _ := s.CellValue(0, "hp"); !value.Equal(v, value.Int(42)) {
		t.Fatalf("hp = %#v", v)
	}

	changed, err = s.SetCellFromInput(0, "hp", "42")
	if err != nil || changed {
		t.Fatalf("same value should be a no-op, got %v, %v", changed, err)
	}
}

func TestSetCellOutOfRange(t *testing.T) {
	s := party()
	if _, err := s.SetCellValue(3, "hp", value.Int(1)); err == nil {
		t.Fatal("expected out of range error")
	}
	if _, err := s.SetCellValue(0, "  ", value.Int(1)); err == nil {
		t.Fatal("expected empty column error")
	}
}

func TestSortToggle(t *testing.T) {
	s := party()

	if !s.SortByColumnToggle("name") {
		t.Fatal("first sort should change rows")
	}
	if got, want := column(s, "name"), []string{"Alice", "bob", "carol"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("asc = %v, want %v", got, want)
	}

	s.SortByColumnToggle("name")
	spec, _ := s.Sort()
	if spec.Order != Desc {
		t.Fatalf("second toggle order = %v", spec.Order)
	}
	if got, want := column(s, "name"), []string{"carol", "bob", "Alice"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("desc = %v, want %v", got, want)
	}

	s.SortByColumnToggle("name")
	if spec, _ := s.Sort(); spec.Order != Asc {
		t.Fatalf("third toggle order = %v", spec.Order)
	}
	if s.SortBy("name", Asc) {
		t.Fatal("re-sorting an already sorted sheet with the same spec should report no change")
	}
}

func TestSortExactIntegers(t *testing.T) {
	big, _ := value.ParseNumber("9007199254740993")
	bigger, _ := value.ParseNumber("18446744073709551615")
	s := FromData([]sheet.Row{
		{"n": bigger},
		{"n": big},
		{"n": value.Int(9007199254740992)},
		{"n": value.Int(-1)},
		{"n": value.Float(1.5)},
	})
	s.SortBy("n", Asc)
	want := []string{"-1", "1.5", "9007199254740992", "9007199254740993", "18446744073709551615"}
	if got := column(s, "n"); !reflect.DeepEqual(got, want) {
		t.Fatalf("asc = %v, want %v", got, want)
	}
}

func TestSortTypeRankAndMissing(t *testing.T) {
	s := FromData([]sheet.Row{
		{"v": value.String("x")},
		{"v": value.Int(1)},
		{},
		{"v": value.Bool(true)},
		{"v": value.Null()},
		{"v": value.Array(value.Int(1))},
	})
	s.SortBy("v", Asc)
	want := []string{"", "", "true", "1", "x", "[1]"}
	if got := column(s, "v"); !reflect.DeepEqual(got, want) {
		t.Fatalf("asc = %v, want %v", got, want)
	}
	if _, ok := s.Data()[0]["v"]; ok {
		t.Fatal("the missing cell should sort first")
	}
}

func TestSortIsStableBothWays(t *testing.T) {
	s := FromData([]sheet.Row{
		{"k": value.Int(1), "id": value.String("a")},
		{"k": value.Int(0), "id": value.String("b")},
		{"k": value.Int(1), "id": value.String("c")},
	})
	s.SortBy("k", Desc)
	if got, want := column(s, "id"), []string{"a", "c", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("desc = %v, want %v", got, want)
	}
}

func TestSortMovesRowMetadata(t *testing.T) {
	s := party()
	if _, err := s.SetCellFormula(1, "double", "hp * 2"); err != nil {
		t.Fatal(err)
	}
	s.SetCellStyle(1, "name", "#00f", "")

	s.SortBy("hp", Desc)
	// Alice (hp 10) is now last
	if f, ok := s.CellFormula(2, "double"); !ok || f != "hp * 2" {
		t.Fatalf("formula should follow its row, got %q %v", f, ok)
	}
	if v, _ := s.CellValue(2, "double"); !value.Equal(v, value.Int(20)) {
		t.Fatalf("double = %#v", v)
	}
	if st, ok := s.CellStyle(2, "name"); !ok || st.Color != "#00f" {
		t.Fatalf("style should follow its row, got %#v", st)
	}
}

func TestSortByFormulaColumn(t *testing.T) {
	s := party()
	for i := 0; i < s.RowCount(); i++ {
		if _, err := s.SetCellFormula(i, "neg", "-hp"); err != nil {
			t.Fatal(err)
		}
	}
	s.SortBy("neg", Asc)
	if got, want := column(s, "name"), []string{"carol", "bob", "Alice"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("sorted by computed = %v, want %v", got, want)
	}
}

func TestUndoRedo(t *testing.T) {
	s := party()
	for i := 1; i <= 3; i++ {
		if _, err := s.SetCellValue(0, "hp", value.Int(int64(100*i))); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 3; i++ {
		if !s.Undo() {
			t.Fatalf("undo %d failed", i)
		}
	}
	if s.Undo() {
		t.Fatal("undo past the start should fail")
	}
	if v, _ := s.CellValue(0, "hp"); !value.Equal(v, value.Int(30)) {
		t.Fatalf("after undo hp = %#v", v)
	}

	s.Redo()
	if v, _ := s.CellValue(0, "hp"); !value.Equal(v, value.Int(100)) {
		t.Fatalf("after redo hp = %#v", v)
	}
	if !s.CanRedo() {
		t.Fatal("two more redos should be available")
	}

	s.AddRow()
	if s.CanRedo() {
		t.Fatal("a new mutation must clear redo")
	}
}

func TestUndoRestoresSort(t *testing.T) {
	s := party()
	s.SortBy("name", Asc)
	s.Undo()
	if _, ok := s.Sort(); ok {
		t.Fatal("undo should restore the unsorted spec")
	}
	if got, want := column(s, "name"), []string{"carol", "Alice", "bob"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after undo = %v", got)
	}
}

func TestRowOperations(t *testing.T) {
	s := party()
	if _, err := s.SetCellFormula(1, "x", "1"); err != nil {
		t.Fatal(err)
	}
	if !s.InsertRow(1) {
		t.Fatal("InsertRow failed")
	}
	if s.RowCount() != 4 {
		t.Fatalf("rows = %d", s.RowCount())
	}
	if _, ok := s.CellFormula(2, "x"); !ok {
		t.Fatal("formula should shift down with its row")
	}
	if v, ok := s.CellValue(1, "name"); !ok || !v.IsNull() {
		t.Fatalf("inserted row should hold nulls, got %#v %v", v, ok)
	}
	if s.InsertRow(9) {
		t.Fatal("insert past the end should fail")
	}

	if !s.DeleteRow(2) || s.RowCount() != 3 {
		t.Fatal("DeleteRow failed")
	}
	for i := 0; i < s.RowCount(); i++ {
		if _, ok := s.CellFormula(i, "x"); ok {
			t.Fatalf("formula should be gone with its row, found at %d", i)
		}
	}
	if s.DeleteRow(-1) {
		t.Fatal("negative delete should fail")
	}

	idx := s.AddRow()
	if idx != 3 || s.RowCount() != 4 {
		t.Fatalf("AddRow = %d, rows = %d", idx, s.RowCount())
	}
}

func TestColumnOperations(t *testing.T) {
	s := party()
	if !s.AddColumn("mp") {
		t.Fatal("AddColumn failed")
	}
	if s.AddColumn("mp") || s.AddColumn("  ") {
		t.Fatal("duplicate or blank column should be rejected")
	}
	s.SetColumnType("hp", coerce.TypeNumber)
	s.SetFilter("hp", "3")
	if !s.DeleteColumn("hp") {
		t.Fatal("DeleteColumn failed")
	}
	if col, q := s.Filter(); col != "" || q != "" {
		t.Fatalf("deleting the filtered column should clear the filter, got %q %q", col, q)
	}
	if _, ok := s.Meta().ColumnType("hp"); ok {
		t.Fatal("column metadata should be removed")
	}
	if s.DeleteColumn("hp") {
		t.Fatal("deleting a missing column should fail")
	}
}

func TestDeleteMetadataOnlyColumn(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, s *State)
	}{
		{"formula", func(t *testing.T, s *State) {
			if _, err := s.SetCellFormula(0, "double", "hp * 2"); err != nil {
				t.Fatal(err)
			}
		}},
		{"type", func(t *testing.T, s *State) { s.SetColumnType("double", coerce.TypeNumber) }},
		{"summary", func(t *testing.T, s *State) { s.SetSummaryKind("double", sheet.SummarySum) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := party()
			tt.setup(t, s)
			if !slices.Contains(s.DisplayColumns(), "double") {
				t.Fatal("column should be displayed")
			}
			if !s.DeleteColumn("double") {
				t.Fatal("DeleteColumn failed")
			}
			if slices.Contains(s.DisplayColumns(), "double") {
				t.Fatalf("column still displayed: %v", s.DisplayColumns())
			}
			if !s.Undo() || !slices.Contains(s.DisplayColumns(), "double") {
				t.Fatal("undo should restore the column")
			}
		})
	}
}

func TestAddColumnOnEmptySheet(t *testing.T) {
	s := New()
	if !s.AddColumn("first") {
		t.Fatal("AddColumn failed")
	}
	if s.RowCount() != 1 {
		t.Fatalf("rows = %d, want 1", s.RowCount())
	}
	if v, ok := s.Data()[0]["first"]; !ok || !v.IsNull() {
		t.Fatalf("first = %#v %v", v, ok)
	}
}

func TestEnumRuleAllowsNull(t *testing.T) {
	s := party()
	s.SetValidationRule("name", coerce.Rule{EnumValues: []string{"Alice", "Bob"}})
	if _, err := s.SetCellValue(0, "name", value.Null()); err != nil {
		t.Fatalf("null should pass an enum rule: %v", err)
	}
	if _, err := s.SetCellValue(0, "name", value.String("alice")); err != nil {
		t.Fatalf("enum match is case-insensitive: %v", err)
	}
	if _, err := s.SetCellValue(0, "name", value.String("Eve")); !sheeterr.Is(err, sheeterr.KindCoercion) {
		t.Fatalf("Eve error = %v", err)
	}
}

func TestFilterAndSearch(t *testing.T) {
	s := party()
	s.SetFilter("name", "  B ")
	if got := s.VisibleRows(); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("visible = %v", got)
	}
	s.SetFilter("name", "")
	if got := s.VisibleRows(); len(got) != 3 {
		t.Fatalf("empty query should show all rows, got %v", got)
	}

	s.SetSearch("0")
	if !s.CellMatchesSearch(0, "hp") || s.CellMatchesSearch(0, "name") {
		t.Fatal("search should match hp 30 only")
	}
	if got := s.SearchMatches(); len(got) != 3 {
		t.Fatalf("matches = %v", got)
	}
	s.SetSearch("")
	if s.CellMatchesSearch(0, "hp") {
		t.Fatal("empty search matches nothing")
	}
}

func TestApplyCellEdits(t *testing.T) {
	s := party()
	s.SetColumnType("hp", coerce.TypeNumber)
	if _, err := s.SetCellFormula(2, "hp", "1 + 1"); err != nil {
		t.Fatal(err)
	}
	s.SortBy("name", Asc)
	before := len(s.undo)

	// after the sort: Alice, bob, carol
	changed, skipped := s.ApplyCellEdits([]CellEdit{
		ValueEdit(0, "hp", value.String("11")),
		ValueEdit(0, "hp", value.String("nope")),
		ValueEdit(9, "hp", value.Int(1)),
		ValueEdit(0, " ", value.Int(1)),
		FormulaEdit(0, "total", "hp +"),
		FormulaEdit(2, "total", "hp * 3"),
		ValueEdit(2, "name", value.String("carol")),
		ValueEdit(1, "name", value.String("bob")),
	})
	if changed != 2 {
		t.Fatalf("changed = %d, want 2 (skipped %v)", changed, skipped)
	}
	if len(skipped) != 6 {
		t.Fatalf("skipped = %d, want 6", len(skipped))
	}
	if len(s.undo) != before+1 {
		t.Fatalf("batch should push exactly one snapshot, pushed %d", len(s.undo)-before)
	}
	if _, ok := s.Sort(); ok {
		t.Fatal("batch should clear the sort spec")
	}
	if v, _ := s.CellValue(0, "hp"); !value.Equal(v, value.Int(11)) {
		t.Fatalf("hp = %#v", v)
	}
	if v, _ := s.CellValue(2, "total"); !value.Equal(v, value.Int(90)) {
		t.Fatalf("total = %#v", v)
	}

	// a value edit equal to the stored value still applies if it clears a formula
	s2 := party()
	if _, err := s2.SetCellFormula(0, "hp", "99"); err != nil {
		t.Fatal(err)
	}
	if n, _ := s2.ApplyCellEdits([]CellEdit{ValueEdit(0, "hp", value.Int(30))}); n != 1 {
		t.Fatalf("changed = %d", n)
	}
	if _, ok := s2.CellFormula(0, "hp"); ok {
		t.Fatal("value edit should remove the formula")
	}
}

func TestApplyCellEditsNoChange(t *testing.T) {
	s := party()
	n, skipped := s.ApplyCellEdits([]CellEdit{ValueEdit(0, "hp", value.Int(30))})
	if n != 0 || len(skipped) != 1 || skipped[0].Err != nil {
		t.Fatalf("n=%d skipped=%v", n, skipped)
	}
	if s.CanUndo() {
		t.Fatal("no-op batch must not push history")
	}
}

func TestCommentColumnExcludedFromExport(t *testing.T) {
	s := party()
	if !s.SetCommentColumn("note", true) {
		t.Fatal("SetCommentColumn failed")
	}
	if _, err := s.SetCellValue(0, "note", value.String("tank")); err != nil {
		t.Fatal(err)
	}
	rows, err := s.ExportData()
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range rows {
		if _, ok := row["note"]; ok {
			t.Fatalf("row %d exported the comment column", i)
		}
	}
	meta := s.MetaForSave()
	if got := meta.CommentRows[0]["note"]; !value.Equal(got, value.String("tank")) {
		t.Fatalf("comment should be captured for the sidecar, got %#v", got)
	}
}

func TestCommentColumnOnEmptySheet(t *testing.T) {
	s := New()
	s.SetCommentColumn("note", true)
	if s.RowCount() != 1 {
		t.Fatalf("rows = %d", s.RowCount())
	}
}

func TestExportFormulaResultsAndCycles(t *testing.T) {
	s := party()
	if _, err := s.SetCellFormula(0, "double", "hp * 2"); err != nil {
		t.Fatal(err)
	}
	rows, err := s.ExportData()
	if err != nil {
		t.Fatal(err)
	}
	if !value.Equal(rows[0]["double"], value.Int(60)) {
		t.Fatalf("exported double = %#v", rows[0]["double"])
	}
	if _, ok := rows[1]["double"]; ok {
		t.Fatal("rows without the formula should not gain the column")
	}

	if _, err := s.SetCellFormula(1, "a", "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetCellFormula(1, "b", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ExportData(); !sheeterr.Is(err, sheeterr.KindExport) {
		t.Fatalf("circular export error = %v", err)
	}
}

func TestInvalidFormulaRejected(t *testing.T) {
	s := party()
	if _, err := s.SetCellFormula(0, "x", "(1 +"); !sheeterr.Is(err, sheeterr.KindFormula) {
		t.Fatalf("error = %v", err)
	}
	if s.CanUndo() {
		t.Fatal("rejected formula must not push history")
	}
}

func TestSummaryUsesVisibleRows(t *testing.T) {
	s := party()
	s.SetSummaryKind("hp", sheet.SummarySum)
	if got, _ := s.SummaryDisplay("hp"); got != "60" {
		t.Fatalf("summary = %q", got)
	}
	s.SetFilter("name", "b")
	if got, _ := s.SummaryDisplay("hp"); got != "20" {
		t.Fatalf("filtered summary = %q", got)
	}
}
