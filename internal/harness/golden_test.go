package harness

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridstamp/internal/config"
	"github.com/roach88/gridstamp/internal/grid"
)

func lampWorld() *config.Config {
	return &config.Config{
		Grid:   config.Grid{Width: 5, Height: 4},
		Layers: []string{"heat", "cool"},
		Kinds: []config.Kind{
			{Name: "lamp", Layer: "heat", Radius: 2, Curve: "linear", Mode: "add"},
			{Name: "sink", Layer: "heat", Radius: 1, Curve: "linear", Mode: "sub"},
		},
		Derived: []config.Derived{
			{Source: "heat", Target: "cool", Func: config.FuncInvert, Max: 255},
		},
	}
}

func TestRunWithGolden_Lamps(t *testing.T) {
	scenario := &Scenario{
		Name:        "golden_lamps",
		Description: "a lamp and a sink near the grid edges",
		World:       lampWorld(),
		Steps: []Step{
			{Place: &PlaceStep{Kind: "lamp", At: Cell{1, 1}}},
			{Place: &PlaceStep{Kind: "sink", At: Cell{4, 3}}},
		},
		Assertions: []Assertion{
			{Type: AssertComplement, Source: "heat", Target: "cool", Total: 255},
		},
	}

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRender_TopRowFirst(t *testing.T) {
	r := NewResult()
	r.Size = grid.Size{W: 2, H: 2}
	r.Layers = []NamedLayer{{Name: "a", Values: []int{1, 2, 3, 4}}}

	want := "scenario: tiny\ngrid: 2x2\nentities: 0\n\nlayer a\n3 4\n1 2\n"
	assert.Equal(t, want, string(Render("tiny", r)))
}

func TestRenderLayer_NegativeValues(t *testing.T) {
	var buf bytes.Buffer
	RenderLayer(&buf, grid.Size{W: 3, H: 1}, []int{-255, 0, 510})
	assert.Equal(t, "-255 0 510\n", buf.String())
}
