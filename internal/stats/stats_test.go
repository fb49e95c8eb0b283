package stats

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name  string
		part  int
		total int
		want  float64
	}{
		{"zero total", 3, 0, 0},
		{"all attended", 10, 10, 100},
		{"two thirds rounds half up", 2, 3, 66.67},
		{"one third rounds down", 1, 3, 33.33},
		{"exact half", 1, 2, 50},
		{"none attended", 0, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, float64(Percentage(tt.part, tt.total)), 1e-9)
		})
	}
}

func TestAverage(t *testing.T) {
	assert.Equal(t, Decimal2(0), Average(0, 0), "empty set must not divide")
	assert.InDelta(t, 4.33, float64(Average(13, 3)), 1e-9)
	assert.InDelta(t, 5, float64(Average(5, 1)), 1e-9)
	assert.InDelta(t, 2.5, float64(Average(5, 2)), 1e-9)
}

func TestRound2HalfUp(t *testing.T) {
	assert.InDelta(t, 66.67, Round2(66.666666), 1e-9)
	assert.InDelta(t, 0.13, Round2(0.125), 1e-9)
	assert.InDelta(t, -0.13, Round2(-0.125), 1e-9)
}

func TestTally(t *testing.T) {
	got := Tally([]string{"present", "absent", "present", "late"})
	assert.Equal(t, map[string]int{"present": 2, "absent": 1, "late": 1}, got)
	assert.Empty(t, Tally(nil))
}

func TestDecimal2JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		P Decimal2 `json:"p"`
	}{P: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"5.00"}`, string(b))

	b, err = json.Marshal(Percentage(2, 3))
	require.NoError(t, err)
	assert.Equal(t, `"66.67"`, string(b))

	var d Decimal2
	require.NoError(t, json.Unmarshal([]byte(`"42.50"`), &d))
	assert.InDelta(t, 42.5, float64(d), 1e-9)
}
