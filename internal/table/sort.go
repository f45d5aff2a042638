package table

import (
	"sort"
	"strings"

	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/value"
)

type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

func (o SortOrder) String() string {
	if o == Desc {
		return "desc"
	}
	return "asc"
}

type SortSpec struct {
	Column string
	Order  SortOrder
}

// SortByColumnToggle sorts by column, ascending the first time and flipping
// direction on each repeat for the same column.
func (s *State) SortByColumnToggle(column string) bool {
	order := Asc
	if s.sort != nil && s.sort.Column == column && s.sort.Order == Asc {
		order = Desc
	}
	return s.SortBy(column, order)
}

// SortBy reorders rows by the resolved values of column. Ties keep their
// current relative order in both directions. Per-row metadata moves with
// its row. It reports false if neither the rows nor the sort spec changed.
func (s *State) SortBy(column string, order SortOrder) bool {
	type keyed struct {
		v       value.Value
		present bool
	}
	keys := make([]keyed, len(s.data))
	for i, row := range s.data {
		v, ok := s.meta.ValueForCell(row, i, column)
		keys[i] = keyed{v: v, present: ok}
	}

	idx := make([]int, len(s.data))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		c := comparePresent(ka.v, ka.present, kb.v, kb.present)
		if order == Desc {
			return c > 0
		}
		return c < 0
	})

	next := &SortSpec{Column: column, Order: order}
	if isIdentity(idx) && s.sort != nil && *s.sort == *next {
		return false
	}

	s.pushUndo()
	sorted := make([]sheet.Row, len(idx))
	for j, old := range idx {
		sorted[j] = s.data[old]
	}
	s.data = sorted
	s.meta.ReorderRowMetadata(idx)
	s.sort = next
	return true
}

func isIdentity(order []int) bool {
	for i, v := range order {
		if i != v {
			return false
		}
	}
	return true
}

// comparePresent orders a missing cell before any present value.
func comparePresent(a value.Value, aok bool, b value.Value, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return Compare(a, b)
}

func typeRank(v value.Value) int {
	switch v.Kind {
	case value.KindNull:
		return 0
	case value.KindBool:
		return 1
	case value.KindNumber:
		return 2
	case value.KindString:
		return 3
	case value.KindArray:
		return 4
	case value.KindObject:
		return 5
	}
	return 6
}

// Compare is the sort order over values: by type rank, then within a type
// by boolean, exact numeric, or case-insensitive text order. Arrays and
// objects fall back to display text.
func Compare(a, b value.Value) int {
	if a.Kind == b.Kind {
		switch a.Kind {
		case value.KindNull:
			return 0
		case value.KindBool:
			switch {
			case a.Boolean == b.Boolean:
				return 0
			case !a.Boolean:
				return -1
			}
			return 1
		case value.KindNumber:
			return compareNumbers(a, b)
		case value.KindString:
			return strings.Compare(strings.ToLower(a.Text), strings.ToLower(b.Text))
		case value.KindArray, value.KindObject:
		}
	}
	if ra, rb := typeRank(a), typeRank(b); ra != rb {
		return ra - rb
	}
	return strings.Compare(a.Display(), b.Display())
}

// compareNumbers compares integers exactly, including across the int64 and
// uint64 ranges, and falls back to float comparison otherwise.
func compareNumbers(a, b value.Value) int {
	ai, aIsInt := a.Int64()
	bi, bIsInt := b.Int64()
	au, aIsUint := a.Uint64()
	bu, bIsUint := b.Uint64()

	switch {
	case aIsInt && bIsInt:
		return cmp3(ai < bi, ai > bi)
	case aIsInt && bIsUint:
		if ai < 0 {
			return -1
		}
		return cmp3(uint64(ai) < bu, uint64(ai) > bu)
	case aIsUint && bIsInt:
		if bi < 0 {
			return 1
		}
		return cmp3(au < uint64(bi), au > uint64(bi))
	case aIsUint && bIsUint:
		return cmp3(au < bu, au > bu)
	}
	af, _ := a.Float64()
	bf, _ := b.Float64()
	return cmp3(af < bf, af > bf)
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}
