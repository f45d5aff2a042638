package sheet

import (
	"math"
	"strconv"
	"strings"

	"github.com/witanlabs/jsheet/internal/value"
)

type CondOp string

const (
	CondLess      CondOp = "<"
	CondLessEq    CondOp = "<="
	CondGreater   CondOp = ">"
	CondGreaterEq CondOp = ">="
	CondEqual     CondOp = "=="
	CondNotEqual  CondOp = "!="
)

// longest first so "<=" is not read as "<" followed by "=".
var condOps = []CondOp{CondLessEq, CondGreaterEq, CondEqual, CondNotEqual, CondLess, CondGreater}

// CondRule is a parsed conditional-format rule such as "< 100" or
// `== "n/a"`.
type CondRule struct {
	Op      CondOp
	Operand string
	// Number is set when the operand is numeric and unquoted.
	Number *float64
}

func ParseCondRule(text string) (CondRule, bool) {
	s := strings.TrimSpace(text)
	for _, op := range condOps {
		if !strings.HasPrefix(s, string(op)) {
			continue
		}
		operand := strings.TrimSpace(s[len(op):])
		if operand == "" {
			return CondRule{}, false
		}
		rule := CondRule{Op: op, Operand: operand}
		if len(operand) >= 2 && operand[0] == '"' && operand[len(operand)-1] == '"' {
			rule.Operand = operand[1 : len(operand)-1]
			return rule, true
		}
		if f, err := strconv.ParseFloat(operand, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			rule.Number = &f
		}
		return rule, true
	}
	return CondRule{}, false
}

// Matches compares v against the rule: numerically when both sides are
// numbers, else by case-insensitive display text.
func (r CondRule) Matches(v value.Value) bool {
	if r.Number != nil {
		if f, ok := v.ToFloat(); ok {
			return compareOp(r.Op, cmpFloat(f, *r.Number))
		}
	}
	left := strings.ToLower(v.Display())
	right := strings.ToLower(r.Operand)
	return compareOp(r.Op, strings.Compare(left, right))
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareOp(op CondOp, c int) bool {
	switch op {
	case CondLess:
		return c < 0
	case CondLessEq:
		return c <= 0
	case CondGreater:
		return c > 0
	case CondGreaterEq:
		return c >= 0
	case CondEqual:
		return c == 0
	case CondNotEqual:
		return c != 0
	}
	return false
}

// EffectiveStyle is the style a cell renders with: its own style if set,
// otherwise the first conditional format for the column whose rule matches
// the resolved value.
func (m *Meta) EffectiveStyle(row Row, index int, column string) (CellStyle, bool) {
	if s, ok := m.CellStyle(index, column); ok && !s.IsEmpty() {
		return s, true
	}
	if len(m.ConditionalFormats) == 0 {
		return CellStyle{}, false
	}
	v, _ := m.ValueForCell(row, index, column)
	for _, cf := range m.ConditionalFormats {
		if cf.Column != column {
			continue
		}
		rule, ok := ParseCondRule(cf.Rule)
		if ok && rule.Matches(v) {
			return cf.Style, true
		}
	}
	return CellStyle{}, false
}

// StyleInline renders the effective style as CSS declarations.
func (m *Meta) StyleInline(row Row, index int, column string) string {
	s, ok := m.EffectiveStyle(row, index, column)
	if !ok {
		return ""
	}
	return s.Inline()
}

func (s CellStyle) Inline() string {
	var b strings.Builder
	if s.Color != "" {
		b.WriteString("color: ")
		b.WriteString(s.Color)
		b.WriteByte(';')
	}
	if s.Background != "" {
		b.WriteString("background-color: ")
		b.WriteString(s.Background)
		b.WriteByte(';')
	}
	return b.String()
}
