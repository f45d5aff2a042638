package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/sheet"
)

// columnTypeValue is a --type flag. "none" clears the type.
type columnTypeValue struct {
	t   coerce.ColumnType
	set bool
}

var _ pflag.Value = (*columnTypeValue)(nil)

func (v *columnTypeValue) String() string { return string(v.t) }

func (v *columnTypeValue) Set(s string) error {
	v.set = true
	if isNone(s) {
		v.t = ""
		return nil
	}
	t, err := coerce.ParseType(s)
	if err != nil {
		return err
	}
	v.t = t
	return nil
}

func (v *columnTypeValue) Type() string { return "type" }

// summaryKindValue is a --summary flag. "none" clears the summary.
type summaryKindValue struct {
	k   sheet.SummaryKind
	set bool
}

var _ pflag.Value = (*summaryKindValue)(nil)

func (v *summaryKindValue) String() string { return strings.ToLower(string(v.k)) }

func (v *summaryKindValue) Set(s string) error {
	v.set = true
	if isNone(s) {
		v.k = ""
		return nil
	}
	k, err := sheet.ParseSummaryKind(s)
	if err != nil {
		return err
	}
	v.k = k
	return nil
}

func (v *summaryKindValue) Type() string { return "summary" }

func isNone(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "" || s == "none"
}

// sortOrderValue is a --order flag for sort.
type sortOrderValue struct{ desc bool }

var _ pflag.Value = (*sortOrderValue)(nil)

func (v *sortOrderValue) String() string {
	if v.desc {
		return "desc"
	}
	return "asc"
}

func (v *sortOrderValue) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		v.desc = false
	case "desc", "descending":
		v.desc = true
	default:
		return fmt.Errorf("order must be asc or desc, got %q", s)
	}
	return nil
}

func (v *sortOrderValue) Type() string { return "order" }
