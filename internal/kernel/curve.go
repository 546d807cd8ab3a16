package kernel

import (
	"fmt"

	"gonum.org/v1/gonum/interp"

	"github.com/roach88/gridstamp/internal/grid"
)

// Curve maps a normalised squared distance v in [0,1] to an influence
// strength in [0,1]. Implementations must be pure and monotonic in v.
type Curve interface {
	Evaluate(v float64) float64
}

// CurveFunc adapts a plain function to the Curve interface.
type CurveFunc func(v float64) float64

// Evaluate implements Curve.
func (f CurveFunc) Evaluate(v float64) float64 { return f(v) }

// Built-in curves.
var (
	// Linear falls from 1 at the centre to 0 at the rim: f(v) = 1-v.
	Linear Curve = CurveFunc(func(v float64) float64 { return 1 - v })

	// Smooth is an inverted smoothstep: flat near the centre and the rim.
	Smooth Curve = CurveFunc(func(v float64) float64 { return 1 - v*v*(3-2*v) })
)

// Constant returns a curve with the same strength everywhere.
func Constant(c float64) Curve {
	c = clamp01(c)
	return CurveFunc(func(float64) float64 { return c })
}

// Builtin returns a named built-in curve.
func Builtin(name string) (Curve, bool) {
	switch name {
	case "linear":
		return Linear, true
	case "smooth":
		return Smooth, true
	}
	return nil, false
}

// Sampled is a falloff curve defined by sample points, such as one exported
// from an authoring tool. Values between samples are interpolated; inputs
// outside the sampled domain use the nearest end sample.
type Sampled struct {
	xs, ys []float64
	pred   interp.Predictor
}

// NewSampled builds a curve from sample points. xs must be strictly
// increasing within [0,1], ys within [0,1] and monotonic. With smooth set
// and at least three samples the monotone Fritsch-Butland spline is used;
// otherwise samples are joined linearly.
func NewSampled(xs, ys []float64, smooth bool) (*Sampled, error) {
	if len(xs) != len(ys) {
		return nil, invalidCurve("have %d x samples and %d y samples", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, invalidCurve("need at least 2 samples, got %d", len(xs))
	}
	for i := range xs {
		if xs[i] < 0 || xs[i] > 1 {
			return nil, invalidCurve("x[%d]=%g outside [0,1]", i, xs[i])
		}
		if ys[i] < 0 || ys[i] > 1 {
			return nil, invalidCurve("y[%d]=%g outside [0,1]", i, ys[i])
		}
		if i > 0 && xs[i] <= xs[i-1] {
			return nil, invalidCurve("x samples must be strictly increasing at index %d", i)
		}
	}
	if !monotonic(ys) {
		return nil, invalidCurve("y samples must be monotonic")
	}

	s := &Sampled{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
	}
	var fitter interface {
		interp.Predictor
		Fit(xs, ys []float64) error
	}
	if smooth && len(xs) >= 3 {
		fitter = &interp.FritschButland{}
	} else {
		fitter = &interp.PiecewiseLinear{}
	}
	if err := fitter.Fit(s.xs, s.ys); err != nil {
		return nil, invalidCurve("fit samples: %v", err)
	}
	s.pred = fitter
	return s, nil
}

// Evaluate implements Curve.
func (s *Sampled) Evaluate(v float64) float64 {
	lo, hi := s.xs[0], s.xs[len(s.xs)-1]
	switch {
	case v <= lo:
		return s.ys[0]
	case v >= hi:
		return s.ys[len(s.ys)-1]
	}
	return clamp01(s.pred.Predict(v))
}

func monotonic(ys []float64) bool {
	up, down := true, true
	for i := 1; i < len(ys); i++ {
		if ys[i] < ys[i-1] {
			up = false
		}
		if ys[i] > ys[i-1] {
			down = false
		}
	}
	return up || down
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func invalidCurve(format string, args ...any) *grid.Error {
	return grid.NewError(grid.ErrCodeInvalidCurve, "%s", fmt.Sprintf(format, args...))
}
