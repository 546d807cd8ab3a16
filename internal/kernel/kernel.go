package kernel

import (
	"math"
	"strconv"

	"github.com/roach88/gridstamp/internal/grid"
)

// MaxValue is the discretised strength at f(v) = 1.
const MaxValue = 255

// DefaultMaxRadius bounds kernel memory when no maximum is configured.
const DefaultMaxRadius = 16

// Kernel is a square buffer of discretised influence values.
//
// The buffer has side 2r+1 and is centred on cell (r,r). Offset (dx,dy)
// from the centre lives at index (dy+r)*side + (dx+r). Kernels are
// immutable after Build and may be shared by any number of entities.
type Kernel struct {
	radius int
	side   int
	values []int
}

// Build discretises curve over a radius-r square.
//
// For every offset (x,y) in [-r,r]², v = clamp01((x²+y²)/r²) and the cell
// holds round(f(v)*255). The corners lie beyond distance r, so they clamp
// to v=1 and hold round(f(1)*255).
func Build(radius int, curve Curve, maxRadius int) (*Kernel, error) {
	if err := ValidateRadius(radius, maxRadius); err != nil {
		return nil, err
	}
	if curve == nil {
		return nil, grid.NewError(grid.ErrCodeInvalidCurve, "curve must not be nil")
	}

	side := 2*radius + 1
	values := make([]int, side*side)
	r2 := float64(radius * radius)
	for i := range values {
		x := i%side - radius
		y := i/side - radius
		v := clamp01(float64(x*x+y*y) / r2)
		values[i] = int(math.Round(clamp01(curve.Evaluate(v)) * MaxValue))
	}
	return &Kernel{radius: radius, side: side, values: values}, nil
}

// ValidateRadius checks 1 <= radius <= maxRadius. A non-positive maxRadius
// means DefaultMaxRadius.
func ValidateRadius(radius, maxRadius int) error {
	if maxRadius <= 0 {
		maxRadius = DefaultMaxRadius
	}
	if radius < 1 || radius > maxRadius {
		return grid.NewError(grid.ErrCodeInvalidRadius, "radius %d outside [1,%d]", radius, maxRadius).
			With("radius", strconv.Itoa(radius))
	}
	return nil
}

// Radius returns r.
func (k *Kernel) Radius() int { return k.radius }

// Side returns 2r+1.
func (k *Kernel) Side() int { return k.side }

// Len returns the number of cells in the buffer.
func (k *Kernel) Len() int { return len(k.values) }

// Index returns the buffer index for kernel-local cell (x,y), 0 <= x,y < side.
func (k *Kernel) Index(x, y int) int { return y*k.side + x }

// ValueAtIndex returns the value at a buffer index.
func (k *Kernel) ValueAtIndex(i int) int { return k.values[i] }

// At returns the value at offset (dx,dy) from the centre.
func (k *Kernel) At(dx, dy int) int {
	return k.values[k.Index(dx+k.radius, dy+k.radius)]
}

// Values returns a copy of the buffer.
func (k *Kernel) Values() []int {
	out := make([]int, len(k.values))
	copy(out, k.values)
	return out
}

// Sum returns the total weight of the buffer.
func (k *Kernel) Sum() int {
	total := 0
	for _, v := range k.values {
		total += v
	}
	return total
}
