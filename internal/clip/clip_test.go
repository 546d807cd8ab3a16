package clip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridstamp/internal/grid"
)

var size32 = grid.Size{W: 32, H: 32}

func TestClip_InteriorIsFullSquare(t *testing.T) {
	fp := Clip(2, size32, grid.Pt(16, 16))

	assert.Equal(t, Square(2), fp.Rect)
	assert.Equal(t, grid.Pt(0, 0), fp.KernelStart)
	assert.Equal(t, 25, fp.Cells())
	require.NoError(t, fp.Validate())
}

func TestClip_Edges(t *testing.T) {
	tests := []struct {
		name   string
		anchor grid.Point
		rect   Rect
		start  grid.Point
	}{
		{"bottom-left corner", grid.Pt(0, 0), Rect{Top: 3, Right: 3, Bottom: 0, Left: 0}, grid.Pt(3, 3)},
		{"top-right corner", grid.Pt(31, 31), Rect{Top: 0, Right: 0, Bottom: -3, Left: -3}, grid.Pt(0, 0)},
		{"left edge", grid.Pt(1, 10), Rect{Top: 3, Right: 3, Bottom: -3, Left: -1}, grid.Pt(2, 0)},
		{"top edge", grid.Pt(10, 30), Rect{Top: 1, Right: 3, Bottom: -3, Left: -3}, grid.Pt(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := Clip(3, size32, tt.anchor)
			assert.Equal(t, tt.rect, fp.Rect)
			assert.Equal(t, tt.start, fp.KernelStart)
			assert.False(t, fp.Empty())
			require.NoError(t, fp.Validate())
		})
	}
}

func TestClip_OffGridIsEmpty(t *testing.T) {
	for _, anchor := range []grid.Point{
		grid.Pt(-10, 5), grid.Pt(40, 5), grid.Pt(5, -4), grid.Pt(5, 35), grid.Pt(-100, -100),
	} {
		fp := Clip(3, size32, anchor)
		assert.True(t, fp.Empty(), "anchor %v", anchor)
		assert.Zero(t, fp.Cells())
		require.NoError(t, fp.Validate())

		called := false
		fp.Each(func(int, int) { called = true })
		assert.False(t, called, "empty footprint must visit nothing")
	}
}

func TestClip_PartlyOffGridAnchor(t *testing.T) {
	// Anchor one cell left of the grid: the right two columns still overlap.
	fp := Clip(2, size32, grid.Pt(-1, 5))
	assert.Equal(t, Rect{Top: 2, Right: 2, Bottom: -2, Left: 1}, fp.Rect)
	assert.Equal(t, 10, fp.Cells())
	require.NoError(t, fp.Validate())
}

func TestClip_KernelLargerThanGrid(t *testing.T) {
	small := grid.Size{W: 3, H: 2}
	fp := Clip(5, small, grid.Pt(1, 0))
	assert.Equal(t, Rect{Top: 1, Right: 1, Bottom: 0, Left: -1}, fp.Rect)
	assert.Equal(t, 6, fp.Cells())
}

func TestFootprint_EachIndices(t *testing.T) {
	// Radius 1 at the bottom-left corner of a 4x4 grid covers cells
	// (0,0),(1,0),(0,1),(1,1) and kernel cells (1,1),(2,1),(1,2),(2,2).
	fp := Clip(1, grid.Size{W: 4, H: 4}, grid.Pt(0, 0))

	var gridIdx, kernelIdx []int
	fp.Each(func(g, k int) {
		gridIdx = append(gridIdx, g)
		kernelIdx = append(kernelIdx, k)
	})
	assert.Equal(t, []int{0, 1, 4, 5}, gridIdx)
	assert.Equal(t, []int{4, 5, 7, 8}, kernelIdx)
}

func TestFootprint_ValidateRejectsForgedRects(t *testing.T) {
	fp := Clip(2, size32, grid.Pt(0, 0))
	fp.Rect.Left = -1
	assert.True(t, grid.IsOutOfBounds(fp.Validate()))

	fp = Clip(2, size32, grid.Pt(16, 16))
	fp.Rect.Top = 3
	assert.True(t, grid.IsOutOfBounds(fp.Validate()))
}

func TestOverlap_NarrowerWins(t *testing.T) {
	a := Rect{Top: 10, Right: 10, Bottom: -10, Left: -10}
	b := Rect{Top: 4, Right: 4, Bottom: 2, Left: 2}
	got := Overlap(a, b, grid.Pt(3, 3))
	assert.Equal(t, Rect{Top: 1, Right: 1, Bottom: -1, Left: -1}, got)
}
