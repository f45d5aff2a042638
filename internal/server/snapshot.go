package server

import (
	"github.com/witanlabs/jsheet/client"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/table"
)

// BuildSnapshot captures everything a client needs to draw the sheet.
// Rows carry resolved values; formulas and inline styles are reported
// separately, index-aligned with Rows.
func BuildSnapshot(path string, st *table.State, sidecarErr error) client.Snapshot {
	columns := st.DisplayColumns()
	meta := st.Meta()

	snap := client.Snapshot{
		Path:    path,
		Columns: columns,
		Rows:    make([]sheet.Row, st.RowCount()),
		Visible: st.VisibleRows(),
		RowKey:  meta.RowKey,
		Frozen:  meta.FrozenColumns,
		Search:  st.SearchQuery(),
		Matches: cellRefs(st.SearchMatches()),
		CanUndo: st.CanUndo(),
		CanRedo: st.CanRedo(),
	}
	if sidecarErr != nil {
		snap.Warning = sidecarErr.Error()
	}

	var anyFormula, anyStyle bool
	formulas := make([]map[string]string, st.RowCount())
	styles := make([]map[string]string, st.RowCount())
	for i := range snap.Rows {
		snap.Rows[i], _ = st.RowWithComputed(i)
		for _, c := range columns {
			if f, ok := st.CellFormula(i, c); ok {
				if formulas[i] == nil {
					formulas[i] = make(map[string]string)
				}
				formulas[i][c] = f
				anyFormula = true
			}
			if css := st.CellInlineStyle(i, c); css != "" {
				if styles[i] == nil {
					styles[i] = make(map[string]string)
				}
				styles[i][c] = css
				anyStyle = true
			}
		}
	}
	if anyFormula {
		snap.Formulas = formulas
	}
	if anyStyle {
		snap.Styles = styles
	}

	for _, c := range columns {
		if text, ok := st.SummaryDisplay(c); ok {
			if snap.Summaries == nil {
				snap.Summaries = make(map[string]string)
			}
			snap.Summaries[c] = text
		}
		if t, ok := meta.ColumnType(c); ok {
			if snap.Types == nil {
				snap.Types = make(map[string]string)
			}
			snap.Types[c] = string(t)
		}
		if meta.IsCommentColumn(c) {
			snap.Comments = append(snap.Comments, c)
		}
	}

	if spec, ok := st.Sort(); ok {
		snap.Sort = &client.SortView{Column: spec.Column, Order: spec.Order.String()}
	}
	if column, query := st.Filter(); column != "" || query != "" {
		snap.Filter = &client.FilterView{Column: column, Query: query}
	}
	return snap
}
