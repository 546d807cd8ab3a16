package harness

import (
	"bytes"
	"fmt"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/gridstamp/internal/grid"
)

// Render produces the golden text form of a scenario result: a short header
// followed by every layer printed top row first (y = H-1 down to 0), values
// separated by single spaces.
//
// The output is deterministic for a given scenario, so it can be compared
// byte for byte against a stored snapshot.
func Render(name string, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	fmt.Fprintf(&buf, "grid: %s\n", result.Size)
	fmt.Fprintf(&buf, "entities: %d\n", result.Entities)
	for _, l := range result.Layers {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "layer %s\n", l.Name)
		RenderLayer(&buf, result.Size, l.Values)
	}
	return buf.Bytes()
}

// RenderLayer writes one layer as text rows, top row first.
func RenderLayer(buf *bytes.Buffer, size grid.Size, values []int) {
	for y := size.H - 1; y >= 0; y-- {
		for x := 0; x < size.W; x++ {
			if x > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(strconv.Itoa(values[size.Index(grid.Pt(x, y))]))
		}
		buf.WriteByte('\n')
	}
}

// RunWithGolden executes a scenario and compares its rendered layers against
// a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run. A mismatch fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Render(scenarioName, result))
}
