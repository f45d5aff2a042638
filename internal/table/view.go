package table

import "strings"

// SetFilter shows only rows whose resolved value in column contains query,
// case-insensitively. An empty query shows every row.
func (s *State) SetFilter(column, query string) {
	s.filterColumn = strings.TrimSpace(column)
	s.filterQuery = strings.TrimSpace(query)
}

func (s *State) ClearFilter() {
	s.filterColumn = ""
	s.filterQuery = ""
}

func (s *State) SetSearch(query string) {
	s.searchQuery = strings.TrimSpace(query)
}

// VisibleRows returns the indices of rows passing the filter.
func (s *State) VisibleRows() []int {
	out := make([]int, 0, len(s.data))
	for i := range s.data {
		if s.rowMatchesFilter(i) {
			out = append(out, i)
		}
	}
	return out
}

func (s *State) rowMatchesFilter(row int) bool {
	if s.filterQuery == "" || s.filterColumn == "" {
		return true
	}
	return s.cellContains(row, s.filterColumn, s.filterQuery)
}

// CellMatchesSearch reports whether the cell's resolved display text
// contains the search query.
func (s *State) CellMatchesSearch(row int, column string) bool {
	if s.searchQuery == "" {
		return false
	}
	return s.cellContains(row, column, s.searchQuery)
}

// CellRef addresses one cell by row index and column name.
type CellRef struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
}

// SearchMatches lists every visible cell matching the search query, in row
// then display-column order.
func (s *State) SearchMatches() []CellRef {
	if s.searchQuery == "" {
		return nil
	}
	columns := s.DisplayColumns()
	var out []CellRef
	for _, row := range s.VisibleRows() {
		for _, column := range columns {
			if s.cellContains(row, column, s.searchQuery) {
				out = append(out, CellRef{Row: row, Column: column})
			}
		}
	}
	return out
}

func (s *State) cellContains(row int, column, query string) bool {
	v, ok := s.CellValue(row, column)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(v.Display()), strings.ToLower(query))
}
