package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gridstamp/internal/config"
	"github.com/roach88/gridstamp/internal/grid"
)

// Scenario is a scripted sequence of world mutations plus assertions on the
// final state.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is a path to a world config, relative to the scenario file.
	// If both Config and World are empty the default world is used.
	Config string `yaml:"config,omitempty"`

	// World is an inline world config. Mutually exclusive with Config.
	World *config.Config `yaml:"world,omitempty"`

	// Steps run in order against one engine.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final world.
	Assertions []Assertion `yaml:"assertions"`

	// TokenPrefix seeds the deterministic batch tokens. Defaults to Name.
	TokenPrefix string `yaml:"token_prefix,omitempty"`
}

// Step is one mutation. Exactly one of Place, Toggle, Remove and Set is set.
type Step struct {
	Place  *PlaceStep  `yaml:"place,omitempty"`
	Toggle *PlaceStep  `yaml:"toggle,omitempty"`
	Remove *RemoveStep `yaml:"remove,omitempty"`
	Set    *SetStep    `yaml:"set,omitempty"`

	// As names the entity created by a place or toggle for later steps.
	As string `yaml:"as,omitempty"`

	// ExpectError is the error code the step must fail with
	// (e.g. "OCCUPIED"). Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// PlaceStep places (or toggles) an entity. Zero fields fall back to the
// kind table.
type PlaceStep struct {
	Kind   string `yaml:"kind"`
	At     Cell   `yaml:"at"`
	Radius int    `yaml:"radius,omitempty"`
	Layer  string `yaml:"layer,omitempty"`
	Curve  string `yaml:"curve,omitempty"`
	Mode   string `yaml:"mode,omitempty"`
}

// RemoveStep removes an entity bound earlier with "as".
type RemoveStep struct {
	Ref string `yaml:"ref"`
}

// SetStep writes one cell, addressed by At or Index.
type SetStep struct {
	Layer string `yaml:"layer"`
	At    *Cell  `yaml:"at,omitempty"`
	Index *int   `yaml:"index,omitempty"`
	Value int    `yaml:"value"`
}

// Cell is an [x, y] grid coordinate.
type Cell [2]int

// Point converts c to a grid point.
func (c Cell) Point() grid.Point { return grid.Pt(c[0], c[1]) }

// Assertion validates the final world.
type Assertion struct {
	// Type selects the check; see the Assert* constants.
	Type string `yaml:"type"`

	// Layer is the layer under test (cell_equals, layer_sum, layer_zero).
	Layer string `yaml:"layer,omitempty"`

	// At or Index addresses the cell for cell_equals.
	At    *Cell `yaml:"at,omitempty"`
	Index *int  `yaml:"index,omitempty"`

	// Value is the expected cell value or layer sum.
	Value *int `yaml:"value,omitempty"`

	// Source, Target and Total configure complement: Source[i]+Target[i]
	// must equal Total at every index.
	Source string `yaml:"source,omitempty"`
	Target string `yaml:"target,omitempty"`
	Total  int    `yaml:"total,omitempty"`

	// Count is the expected number of placed entities (entity_count).
	Count *int `yaml:"count,omitempty"`

	// Layers must all appear in the final step's dirty set (dirty_contains).
	Layers []string `yaml:"layers,omitempty"`
}

// Assertion type constants.
const (
	AssertCellEquals    = "cell_equals"
	AssertLayerSum      = "layer_sum"
	AssertLayerZero     = "layer_zero"
	AssertComplement    = "complement"
	AssertEntityCount   = "entity_count"
	AssertDirtyContains = "dirty_contains"
)

// LoadScenario reads and parses a scenario YAML file. A relative Config
// path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Config != "" && !filepath.IsAbs(s.Config) {
		s.Config = filepath.Join(filepath.Dir(path), s.Config)
	}
	if s.Config != "" {
		if _, err := os.Stat(s.Config); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: config file not found: %s", s.Config)
		}
	}
	return s, nil
}

// ParseScenario decodes a scenario with strict field checking (catches
// typos like "assertion:" for "assertions:") and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Config != "" && s.World != nil {
		return fmt.Errorf("config and world are mutually exclusive")
	}
	if s.World != nil {
		if err := s.World.Validate(); err != nil {
			return fmt.Errorf("world: %w", err)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	refs := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, step, refs); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step, refs map[string]bool) error {
	set := 0
	for _, present := range []bool{step.Place != nil, step.Toggle != nil, step.Remove != nil, step.Set != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of place, toggle, remove, set is required", index)
	}

	switch {
	case step.Place != nil && step.Place.Kind == "":
		return fmt.Errorf("steps[%d].place: kind is required", index)
	case step.Toggle != nil && step.Toggle.Kind == "":
		return fmt.Errorf("steps[%d].toggle: kind is required", index)
	case step.Remove != nil:
		if !refs[step.Remove.Ref] {
			return fmt.Errorf("steps[%d].remove: unknown ref %q", index, step.Remove.Ref)
		}
	case step.Set != nil:
		if step.Set.Layer == "" {
			return fmt.Errorf("steps[%d].set: layer is required", index)
		}
		if (step.Set.At == nil) == (step.Set.Index == nil) {
			return fmt.Errorf("steps[%d].set: exactly one of at, index is required", index)
		}
	}

	if step.As != "" {
		if step.Place == nil && step.Toggle == nil {
			return fmt.Errorf("steps[%d]: as is only valid on place and toggle", index)
		}
		refs[step.As] = true
	}
	if step.ExpectError != "" && !knownCode(step.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown error code %q", index, step.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCellEquals:
		if a.Layer == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: layer and value are required for cell_equals", index)
		}
		if (a.At == nil) == (a.Index == nil) {
			return fmt.Errorf("assertions[%d]: exactly one of at, index is required for cell_equals", index)
		}
	case AssertLayerSum:
		if a.Layer == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: layer and value are required for layer_sum", index)
		}
	case AssertLayerZero:
		if a.Layer == "" {
			return fmt.Errorf("assertions[%d]: layer is required for layer_zero", index)
		}
	case AssertComplement:
		if a.Source == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: source and target are required for complement", index)
		}
	case AssertEntityCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for entity_count", index)
		}
	case AssertDirtyContains:
		if len(a.Layers) == 0 {
			return fmt.Errorf("assertions[%d]: layers list is required for dirty_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownCode(code string) bool {
	switch grid.ErrorCode(code) {
	case grid.ErrCodeNotFound, grid.ErrCodeOutOfBounds, grid.ErrCodeAlreadyExists,
		grid.ErrCodeOccupied, grid.ErrCodeInvalidRadius, grid.ErrCodeInvalidSize,
		grid.ErrCodeInvalidCurve, grid.ErrCodeCycle, grid.ErrCodeInvalidName,
		grid.ErrCodeDerivedTarget:
		return true
	}
	return false
}
