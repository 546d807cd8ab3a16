package harness

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridstamp/internal/config"
)

func intp(v int) *int { return &v }

func TestRun_PlaceAndAssert(t *testing.T) {
	scenario := &Scenario{
		Name:        "place",
		Description: "one factory on the default world",
		Steps: []Step{
			{Place: &PlaceStep{Kind: "factory", At: Cell{16, 16}}, As: "f1"},
		},
		Assertions: []Assertion{
			{Type: AssertCellEquals, Layer: "pollution", At: &Cell{16, 16}, Value: intp(255)},
			{Type: AssertCellEquals, Layer: "land_value", At: &Cell{16, 16}, Value: intp(0)},
			{Type: AssertLayerSum, Layer: "pollution", Value: intp(1531)},
			{Type: AssertEntityCount, Count: intp(1)},
			{Type: AssertComplement, Source: "pollution", Target: "land_value", Total: 255},
			{Type: AssertDirtyContains, Layers: []string{"pollution", "land_value"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 1)
	ev := result.Trace[0]
	assert.Equal(t, "place", ev.Op)
	// The derived binding consumed the first token while the world was built.
	assert.Equal(t, "place-0002", ev.Token)
	assert.Equal(t, int64(1), ev.Seq)
	assert.Equal(t, "factory", ev.Kind)
	assert.NotEmpty(t, ev.Entity)
	require.NotNil(t, ev.Anchor)
	assert.Equal(t, 16, ev.Anchor.X)
	assert.Equal(t, 25, ev.Cells)
	assert.Empty(t, ev.Error)
	assert.Equal(t, []string{"land_value", "pollution"}, ev.Dirty)

	assert.Equal(t, 32, result.Size.W)
	assert.Len(t, result.Layers, 2)
	assert.Equal(t, "pollution", result.Layers[0].Name)
}

func TestRun_ToggleRemovesAndRestores(t *testing.T) {
	scenario := &Scenario{
		Name:        "toggle",
		Description: "toggle twice leaves the world untouched",
		Steps: []Step{
			{Toggle: &PlaceStep{Kind: "factory", At: Cell{3, 3}}},
			{Toggle: &PlaceStep{Kind: "factory", At: Cell{3, 3}}},
		},
		Assertions: []Assertion{
			{Type: AssertLayerZero, Layer: "pollution"},
			{Type: AssertEntityCount, Count: intp(0)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "toggle", result.Trace[1].Op)
	assert.Equal(t, result.Trace[0].Entity, result.Trace[1].Entity)
	assert.Equal(t, int64(2), result.Trace[1].Seq)
}

func TestRun_ExpectError(t *testing.T) {
	scenario := &Scenario{
		Name:        "occupied",
		Description: "second factory on the same cell is rejected",
		Steps: []Step{
			{Place: &PlaceStep{Kind: "factory", At: Cell{5, 5}}},
			{Place: &PlaceStep{Kind: "factory", At: Cell{5, 5}}, ExpectError: "OCCUPIED"},
		},
		Assertions: []Assertion{
			{Type: AssertEntityCount, Count: intp(1)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "OCCUPIED", result.Trace[1].Error)
	assert.Equal(t, "occupied-0003", result.Trace[1].Token)
	assert.Zero(t, result.Trace[1].Seq, "rejected steps record no op")
	assert.Empty(t, result.Trace[1].Dirty)
}

func TestRun_UnexpectedOutcomes(t *testing.T) {
	tests := []struct {
		name string
		step Step
		want string
	}{
		{
			name: "unexpected error",
			step: Step{Place: &PlaceStep{Kind: "factory", At: Cell{99, 0}}},
			want: "unexpected error",
		},
		{
			name: "unexpected success",
			step: Step{Place: &PlaceStep{Kind: "factory", At: Cell{1, 1}}, ExpectError: "OCCUPIED"},
			want: "got success",
		},
		{
			name: "wrong code",
			step: Step{Place: &PlaceStep{Kind: "factory", At: Cell{1, 1}, Radius: 40}, ExpectError: "OCCUPIED"},
			want: "expected OCCUPIED",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := &Scenario{
				Name:        "outcome",
				Description: tt.name,
				Steps:       []Step{tt.step},
				Assertions:  []Assertion{{Type: AssertEntityCount, Count: intp(0)}},
			}
			result, err := Run(scenario)
			require.NoError(t, err)
			assert.False(t, result.Pass)
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, result.Errors[0], tt.want)
		})
	}
}

func TestRun_UnknownRefLeavesNoReport(t *testing.T) {
	scenario := &Scenario{
		Name:        "ghost",
		Description: "removing an unbound ref never reaches the engine",
		Steps: []Step{
			{Place: &PlaceStep{Kind: "factory", At: Cell{8, 8}}},
			{Remove: &RemoveStep{Ref: "ghost"}, ExpectError: "NOT_FOUND"},
		},
		Assertions: []Assertion{{Type: AssertEntityCount, Count: intp(1)}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Empty(t, result.Trace[1].Token)
	assert.Empty(t, result.Trace[1].Entity)
	assert.Equal(t, "NOT_FOUND", result.Trace[1].Error)
}

func TestRun_SetStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "set",
		Description: "direct writes flow into derived layers",
		Steps: []Step{
			{Set: &SetStep{Layer: "pollution", At: &Cell{1, 0}, Value: 7}},
			{Set: &SetStep{Layer: "pollution", Index: intp(-1), Value: 7}, ExpectError: "OUT_OF_BOUNDS"},
			{Set: &SetStep{Layer: "land_value", Index: intp(0), Value: 7}, ExpectError: "DERIVED_TARGET"},
		},
		Assertions: []Assertion{
			{Type: AssertCellEquals, Layer: "pollution", Index: intp(1), Value: intp(7)},
			{Type: AssertCellEquals, Layer: "land_value", At: &Cell{1, 0}, Value: intp(248)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.Trace[0].Cells)
}

func TestRun_InlineWorld(t *testing.T) {
	world := &config.Config{
		Grid:   config.Grid{Width: 4, Height: 4},
		Layers: []string{"noise"},
		Kinds:  []config.Kind{{Name: "bell", Layer: "noise", Radius: 1}},
	}
	scenario := &Scenario{
		Name:        "inline",
		Description: "inline world with a single layer",
		World:       world,
		Steps:       []Step{{Place: &PlaceStep{Kind: "bell", At: Cell{0, 0}}}},
		Assertions: []Assertion{
			{Type: AssertLayerSum, Layer: "noise", Value: intp(255)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	// No derived bindings, so the first step gets the first token.
	assert.Equal(t, "inline-0001", result.Trace[0].Token)
}

func TestRun_TokenPrefix(t *testing.T) {
	scenario := &Scenario{
		Name:        "prefixed",
		Description: "token prefix overrides the name",
		TokenPrefix: "run",
		Steps:       []Step{{Place: &PlaceStep{Kind: "factory", At: Cell{2, 2}}}},
		Assertions:  []Assertion{{Type: AssertEntityCount, Count: intp(1)}},
	}
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "run-0002", result.Trace[0].Token)
}

func TestRun_BadWorld(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad",
		Description: "world cannot be built",
		World:       &config.Config{Grid: config.Grid{Width: 0, Height: 3}, Layers: []string{"a"}},
		Steps:       []Step{{Set: &SetStep{Layer: "a", Index: intp(0), Value: 1}}},
		Assertions:  []Assertion{{Type: AssertLayerZero, Layer: "a"}},
	}
	_, err := Run(scenario)
	require.Error(t, err)
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "twice",
		Description: "identical runs produce identical traces",
		Steps: []Step{
			{Place: &PlaceStep{Kind: "factory", At: Cell{4, 4}}, As: "f"},
			{Place: &PlaceStep{Kind: "park", At: Cell{6, 4}}},
			{Remove: &RemoveStep{Ref: "f"}},
		},
		Assertions: []Assertion{{Type: AssertEntityCount, Count: intp(1)}},
	}
	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Layers, second.Layers)
}

func TestRun_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	scenario := &Scenario{
		Name:        "logged",
		Description: "steps are logged",
		Steps:       []Step{{Place: &PlaceStep{Kind: "factory", At: Cell{2, 2}}}},
		Assertions:  []Assertion{{Type: AssertEntityCount, Count: intp(1)}},
	}
	_, err := Run(scenario, WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "step completed")
	assert.Contains(t, buf.String(), "engine ready")
}
