// Package stats holds the aggregation policy shared by the attendance and
// feedback read paths: counting, zero-guarded averages and percentages, and
// the two-decimal rounding rule. It performs no I/O.
package stats

import (
	"math"
	"strconv"
)

// Decimal2 is a float64 that serializes as a JSON string with exactly two
// decimal places ("75.00"), matching the wire format consumers expect.
type Decimal2 float64

func (d Decimal2) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatFloat(float64(d), 'f', 2, 64))), nil
}

func (d *Decimal2) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		s = string(b)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*d = Decimal2(v)
	return nil
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percentage returns part/total*100 rounded to two decimals, or 0 when total
// is zero.
func Percentage(part, total int) Decimal2 {
	if total == 0 {
		return 0
	}
	return Decimal2(Round2(float64(part) / float64(total) * 100))
}

// Average returns sum/count rounded to two decimals, or 0 when count is zero.
func Average(sum, count int) Decimal2 {
	if count == 0 {
		return 0
	}
	return Decimal2(Round2(float64(sum) / float64(count)))
}

// Tally counts occurrences per category.
func Tally(categories []string) map[string]int {
	counts := make(map[string]int, 4)
	for _, c := range categories {
		counts[c]++
	}
	return counts
}
