package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/gridstamp/internal/grid"
)

// AssertionError is returned when an assertion fails.
// It includes enough context to debug the failure without rerunning.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Step trace for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", ev.Step, ev.Op)
			if ev.Entity != "" {
				fmt.Fprintf(&buf, " %s", ev.Entity)
			}
			if ev.Anchor != nil {
				fmt.Fprintf(&buf, " at %s", ev.Anchor)
			}
			if ev.Error != "" {
				fmt.Fprintf(&buf, " -> %s", ev.Error)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// assertCellEquals checks a single cell.
func assertCellEquals(r *Result, a Assertion) error {
	layer, err := resultLayer(r, a)
	if err != nil {
		return err
	}
	index := cellIndex(r.Size, a)
	if !r.Size.InRange(index) {
		return &AssertionError{
			Type:     AssertCellEquals,
			Expected: fmt.Sprintf("cell %s inside grid %s", describeCell(a), r.Size),
			Actual:   "out of bounds",
		}
	}
	if layer[index] != *a.Value {
		return &AssertionError{
			Type:     AssertCellEquals,
			Expected: fmt.Sprintf("%s%s = %d", a.Layer, describeCell(a), *a.Value),
			Actual:   fmt.Sprintf("%d", layer[index]),
			Trace:    r.Trace,
		}
	}
	return nil
}

// assertLayerSum checks the sum over every cell of a layer.
func assertLayerSum(r *Result, a Assertion) error {
	layer, err := resultLayer(r, a)
	if err != nil {
		return err
	}
	sum := 0
	for _, v := range layer {
		sum += v
	}
	if sum != *a.Value {
		return &AssertionError{
			Type:     AssertLayerSum,
			Expected: fmt.Sprintf("sum(%s) = %d", a.Layer, *a.Value),
			Actual:   fmt.Sprintf("%d", sum),
			Trace:    r.Trace,
		}
	}
	return nil
}

// assertLayerZero checks that every cell of a layer is zero.
func assertLayerZero(r *Result, a Assertion) error {
	layer, err := resultLayer(r, a)
	if err != nil {
		return err
	}
	for i, v := range layer {
		if v != 0 {
			return &AssertionError{
				Type:     AssertLayerZero,
				Expected: fmt.Sprintf("every cell of %s = 0", a.Layer),
				Actual:   fmt.Sprintf("cell %s = %d", r.Size.Coord(i), v),
				Trace:    r.Trace,
			}
		}
	}
	return nil
}

// assertComplement checks source[i] + target[i] == total at every index.
func assertComplement(r *Result, a Assertion) error {
	src, ok := r.Layer(a.Source)
	if !ok {
		return fmt.Errorf("complement: unknown layer %q", a.Source)
	}
	dst, ok := r.Layer(a.Target)
	if !ok {
		return fmt.Errorf("complement: unknown layer %q", a.Target)
	}
	for i := range src {
		if src[i]+dst[i] != a.Total {
			return &AssertionError{
				Type:     AssertComplement,
				Expected: fmt.Sprintf("%s + %s = %d everywhere", a.Source, a.Target, a.Total),
				Actual:   fmt.Sprintf("at %s: %d + %d = %d", r.Size.Coord(i), src[i], dst[i], src[i]+dst[i]),
				Trace:    r.Trace,
			}
		}
	}
	return nil
}

// assertEntityCount checks the number of placed entities.
func assertEntityCount(r *Result, a Assertion) error {
	if r.Entities != *a.Count {
		return &AssertionError{
			Type:     AssertEntityCount,
			Expected: fmt.Sprintf("%d placed entities", *a.Count),
			Actual:   fmt.Sprintf("%d", r.Entities),
			Trace:    r.Trace,
		}
	}
	return nil
}

// assertDirtyContains checks the final step's dirty set.
func assertDirtyContains(r *Result, a Assertion) error {
	dirty := r.LastDirty()
	for _, want := range a.Layers {
		if !slices.Contains(dirty, grid.NormalizeName(want)) {
			return &AssertionError{
				Type:     AssertDirtyContains,
				Expected: fmt.Sprintf("dirty set containing %v", a.Layers),
				Actual:   fmt.Sprintf("%v", dirty),
				Trace:    r.Trace,
			}
		}
	}
	return nil
}

func resultLayer(r *Result, a Assertion) ([]int, error) {
	layer, ok := r.Layer(a.Layer)
	if !ok {
		return nil, fmt.Errorf("%s: unknown layer %q", a.Type, a.Layer)
	}
	return layer, nil
}

func cellIndex(size grid.Size, a Assertion) int {
	if a.Index != nil {
		return *a.Index
	}
	p := a.At.Point()
	if !size.Contains(p) {
		return -1
	}
	return size.Index(p)
}

func describeCell(a Assertion) string {
	if a.Index != nil {
		return fmt.Sprintf("[%d]", *a.Index)
	}
	return a.At.Point().String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCellEquals:
			err = assertCellEquals(result, assertion)
		case AssertLayerSum:
			err = assertLayerSum(result, assertion)
		case AssertLayerZero:
			err = assertLayerZero(result, assertion)
		case AssertComplement:
			err = assertComplement(result, assertion)
		case AssertEntityCount:
			err = assertEntityCount(result, assertion)
		case AssertDirtyContains:
			err = assertDirtyContains(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
