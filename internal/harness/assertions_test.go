package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridstamp/internal/grid"
)

// fixedResult is a 3x2 world:
//
//	y=1: 4 5 6
//	y=0: 1 2 3
func fixedResult() *Result {
	r := NewResult()
	r.Size = grid.Size{W: 3, H: 2}
	r.Entities = 2
	r.Layers = []NamedLayer{
		{Name: "heat", Values: []int{1, 2, 3, 4, 5, 6}},
		{Name: "cool", Values: []int{9, 8, 7, 6, 5, 4}},
		{Name: "empty", Values: []int{0, 0, 0, 0, 0, 0}},
	}
	r.Trace = []TraceEvent{
		{Step: 0, Op: "place", Token: "t-0001", Entity: "e0.1", Anchor: &grid.Point{X: 1, Y: 1}},
		{Step: 1, Op: "set", Token: "t-0002", Dirty: []string{"cool", "heat"}},
	}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertCellEquals, Layer: "heat", At: &Cell{2, 1}, Value: intp(6)},
		{Type: AssertCellEquals, Layer: "heat", Index: intp(1), Value: intp(2)},
		{Type: AssertLayerSum, Layer: "heat", Value: intp(21)},
		{Type: AssertLayerZero, Layer: "empty"},
		{Type: AssertComplement, Source: "heat", Target: "cool", Total: 10},
		{Type: AssertEntityCount, Count: intp(2)},
		{Type: AssertDirtyContains, Layers: []string{"heat"}},
	}
	assert.Empty(t, EvaluateAssertions(fixedResult(), assertions))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      []string
	}{
		{
			name:      "cell value",
			assertion: Assertion{Type: AssertCellEquals, Layer: "heat", At: &Cell{0, 1}, Value: intp(5)},
			want:      []string{"cell_equals", "heat(0,1) = 5", "Actual: 4"},
		},
		{
			name:      "cell outside grid",
			assertion: Assertion{Type: AssertCellEquals, Layer: "heat", At: &Cell{3, 0}, Value: intp(0)},
			want:      []string{"inside grid 3x2", "out of bounds"},
		},
		{
			name:      "index outside grid",
			assertion: Assertion{Type: AssertCellEquals, Layer: "heat", Index: intp(6), Value: intp(0)},
			want:      []string{"[6]", "out of bounds"},
		},
		{
			name:      "sum",
			assertion: Assertion{Type: AssertLayerSum, Layer: "cool", Value: intp(0)},
			want:      []string{"sum(cool) = 0", "Actual: 39"},
		},
		{
			name:      "not zero",
			assertion: Assertion{Type: AssertLayerZero, Layer: "heat"},
			want:      []string{"cell (0,0) = 1"},
		},
		{
			name:      "complement",
			assertion: Assertion{Type: AssertComplement, Source: "heat", Target: "cool", Total: 255},
			want:      []string{"heat + cool = 255", "at (0,0): 1 + 9 = 10"},
		},
		{
			name:      "entity count",
			assertion: Assertion{Type: AssertEntityCount, Count: intp(0)},
			want:      []string{"0 placed entities", "Actual: 2"},
		},
		{
			name:      "dirty",
			assertion: Assertion{Type: AssertDirtyContains, Layers: []string{"heat", "noise"}},
			want:      []string{"[heat noise]", "[cool heat]"},
		},
		{
			name:      "unknown layer",
			assertion: Assertion{Type: AssertLayerZero, Layer: "noise"},
			want:      []string{`layer_zero: unknown layer "noise"`},
		},
		{
			name:      "unknown complement layer",
			assertion: Assertion{Type: AssertComplement, Source: "heat", Target: "noise"},
			want:      []string{`complement: unknown layer "noise"`},
		},
		{
			name:      "unknown type",
			assertion: Assertion{Type: "vibes"},
			want:      []string{`assertion[0]: unknown assertion type "vibes"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(fixedResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			for _, want := range tt.want {
				assert.Contains(t, errs[0], want)
			}
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	errs := EvaluateAssertions(fixedResult(), []Assertion{
		{Type: AssertEntityCount, Count: intp(5)},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Full trace:")
	assert.Contains(t, errs[0], "[0] place e0.1 at (1,1)")
	assert.Contains(t, errs[0], "[1] set")
}

func TestEvaluateAssertions_CollectsAll(t *testing.T) {
	errs := EvaluateAssertions(fixedResult(), []Assertion{
		{Type: AssertLayerZero, Layer: "heat"},
		{Type: AssertEntityCount, Count: intp(2)},
		{Type: AssertLayerSum, Layer: "heat", Value: intp(0)},
	})
	assert.Len(t, errs, 2)
}
