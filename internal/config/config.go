// Package config loads the world description an engine is built from:
// grid size, layers, falloff curves, the entity kind table and derived
// layer bindings.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gridstamp/internal/derive"
	"github.com/roach88/gridstamp/internal/kernel"
	"github.com/roach88/gridstamp/internal/registry"
	"github.com/roach88/gridstamp/internal/stamp"
)

// Config describes one grid world.
type Config struct {
	// Grid holds the dimensions shared by every layer.
	Grid Grid `yaml:"grid"`

	// MaxRadius bounds kernel radii. Zero means kernel.DefaultMaxRadius.
	MaxRadius int `yaml:"max_radius,omitempty"`

	// Occupancy is the placement policy: per_cell, per_kind or stacked.
	Occupancy string `yaml:"occupancy,omitempty"`

	// Layers lists layer names in creation order.
	Layers []string `yaml:"layers"`

	// Curves declares sampled falloff curves in addition to the built-in
	// "linear" and "smooth".
	Curves []Curve `yaml:"curves,omitempty"`

	// Kinds is the entity kind table.
	Kinds []Kind `yaml:"kinds,omitempty"`

	// Derived binds layers computed from other layers.
	Derived []Derived `yaml:"derived,omitempty"`
}

// Grid is the world size in cells.
type Grid struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Curve is a sampled falloff curve: points (v, f(v)) with v strictly
// increasing over [0,1].
type Curve struct {
	Name   string       `yaml:"name"`
	Points [][2]float64 `yaml:"points"`
	Smooth bool         `yaml:"smooth,omitempty"`
}

// Kind is one entry of the entity kind table.
type Kind struct {
	Name   string `yaml:"name"`
	Layer  string `yaml:"layer"`
	Radius int    `yaml:"radius"`
	Curve  string `yaml:"curve,omitempty"`
	Mode   string `yaml:"mode,omitempty"`
}

// Derived is one derived-layer binding.
type Derived struct {
	Name   string `yaml:"name,omitempty"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`

	// Func is "invert" (Max - v) or "clamp" (bounded to [Min, Max]).
	Func string `yaml:"func"`
	Min  int    `yaml:"min,omitempty"`
	Max  int    `yaml:"max"`
}

// Derived function names.
const (
	FuncInvert = "invert"
	FuncClamp  = "clamp"
)

// Default returns the stock world: a 32×32 grid where factories pollute
// and land value is the inverse of pollution.
func Default() *Config {
	return &Config{
		Grid:      Grid{Width: 32, Height: 32},
		MaxRadius: kernel.DefaultMaxRadius,
		Occupancy: registry.PerCell.String(),
		Layers:    []string{"pollution", "land_value"},
		Kinds: []Kind{
			{Name: "factory", Layer: "pollution", Radius: 2, Curve: "linear", Mode: "add"},
			{Name: "park", Layer: "pollution", Radius: 3, Curve: "smooth", Mode: "sub"},
		},
		Derived: []Derived{
			{Name: "land_value", Source: "pollution", Target: "land_value", Func: FuncInvert, Max: kernel.MaxValue},
		},
	}
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML with strict field checking and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks field-level constraints and cross references. It does not
// build kernels; radius limits are checked against MaxRadius.
func (c *Config) Validate() error {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("grid: width and height must be positive, got %dx%d", c.Grid.Width, c.Grid.Height)
	}
	if c.MaxRadius < 0 {
		return fmt.Errorf("max_radius: must not be negative")
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("occupancy: %w", err)
	}
	if len(c.Layers) == 0 {
		return fmt.Errorf("layers list is required and must be non-empty")
	}

	layers := make(map[string]bool, len(c.Layers))
	for i, l := range c.Layers {
		if l == "" {
			return fmt.Errorf("layers[%d]: name is required", i)
		}
		if layers[l] {
			return fmt.Errorf("layers[%d]: duplicate layer %q", i, l)
		}
		layers[l] = true
	}

	curves := map[string]bool{"linear": true, "smooth": true}
	for i, cv := range c.Curves {
		if cv.Name == "" {
			return fmt.Errorf("curves[%d]: name is required", i)
		}
		if curves[cv.Name] {
			return fmt.Errorf("curves[%d]: duplicate curve %q", i, cv.Name)
		}
		if _, err := cv.Build(); err != nil {
			return fmt.Errorf("curves[%d]: %w", i, err)
		}
		curves[cv.Name] = true
	}

	maxRadius := c.MaxRadius
	if maxRadius == 0 {
		maxRadius = kernel.DefaultMaxRadius
	}
	kinds := make(map[string]bool, len(c.Kinds))
	for i, k := range c.Kinds {
		switch {
		case k.Name == "":
			return fmt.Errorf("kinds[%d]: name is required", i)
		case kinds[k.Name]:
			return fmt.Errorf("kinds[%d]: duplicate kind %q", i, k.Name)
		case !layers[k.Layer]:
			return fmt.Errorf("kinds[%d]: unknown layer %q", i, k.Layer)
		case k.Curve != "" && !curves[k.Curve]:
			return fmt.Errorf("kinds[%d]: unknown curve %q", i, k.Curve)
		}
		if err := kernel.ValidateRadius(k.Radius, maxRadius); err != nil {
			return fmt.Errorf("kinds[%d]: %w", i, err)
		}
		if _, err := stamp.ParseMode(k.Mode); err != nil {
			return fmt.Errorf("kinds[%d]: %w", i, err)
		}
		kinds[k.Name] = true
	}

	for i, d := range c.Derived {
		switch {
		case !layers[d.Source]:
			return fmt.Errorf("derived[%d]: unknown source layer %q", i, d.Source)
		case !layers[d.Target]:
			return fmt.Errorf("derived[%d]: unknown target layer %q", i, d.Target)
		}
		for _, k := range c.Kinds {
			if k.Layer == d.Target {
				return fmt.Errorf("derived[%d]: target layer %q is stamped by kind %q", i, d.Target, k.Name)
			}
		}
		if _, err := d.Binding(); err != nil {
			return fmt.Errorf("derived[%d]: %w", i, err)
		}
	}
	return nil
}

// Policy parses the occupancy field.
func (c *Config) Policy() (registry.Policy, error) {
	return registry.ParsePolicy(c.Occupancy)
}

// Build constructs the sampled curve.
func (cv Curve) Build() (*kernel.Sampled, error) {
	xs := make([]float64, len(cv.Points))
	ys := make([]float64, len(cv.Points))
	for i, p := range cv.Points {
		xs[i], ys[i] = p[0], p[1]
	}
	return kernel.NewSampled(xs, ys, cv.Smooth)
}

// Binding converts the entry to a derive.Binding.
func (d Derived) Binding() (derive.Binding, error) {
	b := derive.Binding{Name: d.Name, Source: d.Source, Target: d.Target}
	switch d.Func {
	case FuncInvert:
		b.Recompute = derive.Invert(d.Max)
	case FuncClamp:
		if d.Min > d.Max {
			return b, fmt.Errorf("clamp min %d exceeds max %d", d.Min, d.Max)
		}
		b.Recompute = derive.Clamp(d.Min, d.Max)
	default:
		return b, fmt.Errorf("unknown func %q: must be invert or clamp", d.Func)
	}
	return b, nil
}

// StampMode parses the kind's stamp mode.
func (k Kind) StampMode() (stamp.Mode, error) {
	return stamp.ParseMode(k.Mode)
}
