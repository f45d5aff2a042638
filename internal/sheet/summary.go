package sheet

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/witanlabs/jsheet/internal/value"
)

// SummaryDisplay computes the footer text for column over the given row
// indices. ok is false when the column has no summary, or when a numeric
// summary found no numeric values.
func (m *Meta) SummaryDisplay(data []Row, visible []int, column string) (string, bool) {
	kind, ok := m.SummaryKind(column)
	if !ok {
		return "", false
	}

	var count int
	var nums []decimal.Decimal
	for _, idx := range visible {
		if idx < 0 || idx >= len(data) {
			continue
		}
		v, present := m.ValueForCell(data[idx], idx, column)
		if !present || v.IsNull() {
			continue
		}
		count++
		if d, ok := toDecimal(v); ok {
			nums = append(nums, d)
		}
	}

	if kind == SummaryCount {
		return strconv.Itoa(count), true
	}
	if len(nums) == 0 {
		return "", false
	}

	var result decimal.Decimal
	switch kind {
	case SummarySum:
		result = decimal.Sum(nums[0], nums[1:]...)
	case SummaryAvg:
		result = decimal.Avg(nums[0], nums[1:]...)
	case SummaryMin:
		result = decimal.Min(nums[0], nums[1:]...)
	case SummaryMax:
		result = decimal.Max(nums[0], nums[1:]...)
	default:
		return "", false
	}
	return formatSummary(result), true
}

func toDecimal(v value.Value) (decimal.Decimal, bool) {
	if v.Kind == value.KindNumber {
		if d, err := decimal.NewFromString(string(v.Number)); err == nil {
			return d, true
		}
	}
	f, ok := v.ToFloat()
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

// formatSummary prints integers without a fraction and everything else
// rounded to six places with trailing zeros trimmed.
func formatSummary(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.StringFixed(0)
	}
	return d.Round(6).String()
}
