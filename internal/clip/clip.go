// Package clip computes the overlap between a kernel's bounding square and
// the grid, in the anchor's local frame.
package clip

import (
	"fmt"

	"github.com/roach88/gridstamp/internal/grid"
)

// Rect is an inclusive rectangle given as four signed edges. Top is the
// largest y and Bottom the smallest, following the grid convention.
//
// A Rect with Left > Right or Bottom > Top is empty.
type Rect struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// Square returns the bounding square [-r,r]² of a radius-r kernel.
func Square(r int) Rect {
	return Rect{Top: r, Right: r, Bottom: -r, Left: -r}
}

// Bounds returns the grid's rectangle in absolute coordinates.
func Bounds(size grid.Size) Rect {
	return Rect{Top: size.H - 1, Right: size.W - 1, Bottom: 0, Left: 0}
}

// Overlap intersects a, expressed relative to apos, with b, expressed in
// absolute coordinates. The result is relative to apos. Upper edges take
// the min and lower edges the max, so the narrower rectangle always wins.
func Overlap(a, b Rect, apos grid.Point) Rect {
	return Rect{
		Top:    min(apos.Y+a.Top, b.Top) - apos.Y,
		Right:  min(apos.X+a.Right, b.Right) - apos.X,
		Bottom: max(apos.Y+a.Bottom, b.Bottom) - apos.Y,
		Left:   max(apos.X+a.Left, b.Left) - apos.X,
	}
}

// Empty reports whether the rectangle covers no cells.
func (r Rect) Empty() bool { return r.Left > r.Right || r.Bottom > r.Top }

// Width returns the number of columns covered, 0 when empty.
func (r Rect) Width() int {
	if r.Empty() {
		return 0
	}
	return r.Right - r.Left + 1
}

// Height returns the number of rows covered, 0 when empty.
func (r Rect) Height() int {
	if r.Empty() {
		return 0
	}
	return r.Top - r.Bottom + 1
}

// Area returns the number of cells covered.
func (r Rect) Area() int { return r.Width() * r.Height() }

// Within reports whether r lies entirely inside outer. An empty r is
// within anything.
func (r Rect) Within(outer Rect) bool {
	if r.Empty() {
		return true
	}
	return r.Left >= outer.Left && r.Right <= outer.Right &&
		r.Bottom >= outer.Bottom && r.Top <= outer.Top
}

func (r Rect) String() string {
	return fmt.Sprintf("[t=%d r=%d b=%d l=%d]", r.Top, r.Right, r.Bottom, r.Left)
}

// Footprint is the clipped area of one stamp.
//
// Rect is in the anchor's frame. KernelStart is the kernel-local cell that
// corresponds to Rect's bottom-left corner, so offset (dx,dy) inside Rect
// maps to grid cell Anchor+(dx,dy) and to kernel cell
// KernelStart+(dx-Rect.Left, dy-Rect.Bottom).
type Footprint struct {
	Anchor      grid.Point
	Radius      int
	Size        grid.Size
	Rect        Rect
	KernelStart grid.Point
}

// Clip computes the footprint of a radius-r kernel anchored at anchor on a
// grid of the given size. An anchor far enough off the grid yields an empty
// footprint, which stamps nothing.
//
// The result depends only on its arguments, so clipping the same
// (radius, size, anchor) at placement and at removal always covers the
// same cells.
func Clip(radius int, size grid.Size, anchor grid.Point) Footprint {
	rect := Overlap(Square(radius), Bounds(size), anchor)
	return Footprint{
		Anchor:      anchor,
		Radius:      radius,
		Size:        size,
		Rect:        rect,
		KernelStart: grid.Pt(radius+rect.Left, radius+rect.Bottom),
	}
}

// Empty reports whether the footprint covers no cells.
func (f Footprint) Empty() bool { return f.Rect.Empty() }

// Cells returns the number of grid cells covered.
func (f Footprint) Cells() int { return f.Rect.Area() }

// Validate checks that the footprint lies inside both the kernel square and
// the grid. Clip always produces valid footprints; this guards hand-built
// or stale ones before anything is written.
func (f Footprint) Validate() error {
	if f.Empty() {
		return nil
	}
	if !f.Rect.Within(Square(f.Radius)) {
		return grid.NewError(grid.ErrCodeOutOfBounds, "footprint %s exceeds kernel square of radius %d", f.Rect, f.Radius)
	}
	abs := Rect{
		Top:    f.Anchor.Y + f.Rect.Top,
		Right:  f.Anchor.X + f.Rect.Right,
		Bottom: f.Anchor.Y + f.Rect.Bottom,
		Left:   f.Anchor.X + f.Rect.Left,
	}
	if !abs.Within(Bounds(f.Size)) {
		return grid.NewError(grid.ErrCodeOutOfBounds, "footprint %s at %s exceeds grid %s", f.Rect, f.Anchor, f.Size)
	}
	return nil
}

// Each calls fn for every covered cell in row-major order (bottom row
// first), passing the grid index and the kernel buffer index.
func (f Footprint) Each(fn func(gridIndex, kernelIndex int)) {
	if f.Empty() {
		return
	}
	side := 2*f.Radius + 1
	w, h := f.Rect.Width(), f.Rect.Height()
	for row := 0; row < h; row++ {
		gy := f.Anchor.Y + f.Rect.Bottom + row
		ky := f.KernelStart.Y + row
		for col := 0; col < w; col++ {
			gx := f.Anchor.X + f.Rect.Left + col
			kx := f.KernelStart.X + col
			fn(gy*f.Size.W+gx, ky*side+kx)
		}
	}
}
