package coerce

import (
	"strconv"
	"strings"

	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/value"
)

// Rule is a post-coercion validation gate. A Rule with no fields set
// accepts everything.
type Rule struct {
	Min        *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max        *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	EnumValues []string `json:"enum_values,omitempty" yaml:"enum_values,omitempty"`
}

func (r Rule) IsEmpty() bool {
	return r.Min == nil && r.Max == nil && len(r.EnumValues) == 0
}

// Normalize trims enum entries, drops blanks and case-insensitive
// duplicates while keeping the first spelling and order.
func (r Rule) Normalize() Rule {
	out := Rule{Min: r.Min, Max: r.Max}
	seen := make(map[string]bool, len(r.EnumValues))
	for _, e := range r.EnumValues {
		e = strings.TrimSpace(e)
		key := strings.ToLower(e)
		if e == "" || seen[key] {
			continue
		}
		seen[key] = true
		out.EnumValues = append(out.EnumValues, e)
	}
	return out
}

// Validate checks v against r. Null always passes so that a cell can be
// cleared regardless of the rule.
func Validate(r Rule, v value.Value) error {
	if v.IsNull() || r.IsEmpty() {
		return nil
	}
	if r.Min != nil || r.Max != nil {
		f, ok := v.ToFloat()
		if !ok {
			return sheeterr.New(sheeterr.KindCoercion, "value %q is not numeric", v.Display())
		}
		if r.Min != nil && f < *r.Min {
			return sheeterr.New(sheeterr.KindCoercion, "value %s is below minimum %s", v.Display(), fmtFloat(*r.Min))
		}
		if r.Max != nil && f > *r.Max {
			return sheeterr.New(sheeterr.KindCoercion, "value %s is above maximum %s", v.Display(), fmtFloat(*r.Max))
		}
	}
	if len(r.EnumValues) > 0 {
		text := v.Display()
		for _, e := range r.EnumValues {
			if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(text)) {
				return nil
			}
		}
		return sheeterr.New(sheeterr.KindCoercion, "value %q is not one of %s", text, strings.Join(r.EnumValues, ", "))
	}
	return nil
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
