// Package stamp composites clipped kernels onto grid layers.
//
// Apply is the only writer in the core besides direct layer setters. It
// validates every input before touching the layer, so a rejected stamp
// leaves the layer untouched.
package stamp

import (
	"fmt"

	"github.com/roach88/gridstamp/internal/clip"
	"github.com/roach88/gridstamp/internal/grid"
	"github.com/roach88/gridstamp/internal/kernel"
)

// Mode is the sign applied to kernel values.
type Mode int

const (
	// Add adds kernel values to the layer.
	Add Mode = 1
	// Sub subtracts kernel values from the layer.
	Sub Mode = -1
)

// ParseMode converts "add"/"sub" (or "+"/"-") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "add", "+", "":
		return Add, nil
	case "sub", "subtract", "-":
		return Sub, nil
	}
	return 0, fmt.Errorf("unknown stamp mode %q: must be add or sub", s)
}

// Valid reports whether m is Add or Sub.
func (m Mode) Valid() bool { return m == Add || m == Sub }

// Inverse returns the mode that undoes m.
func (m Mode) Inverse() Mode { return -m }

func (m Mode) String() string {
	switch m {
	case Add:
		return "add"
	case Sub:
		return "sub"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Stamp is one clipped kernel ready to be composited.
type Stamp struct {
	Kernel    *kernel.Kernel
	Footprint clip.Footprint
	Mode      Mode
}

// New clips k at anchor on a grid of the given size.
func New(k *kernel.Kernel, size grid.Size, anchor grid.Point, mode Mode) Stamp {
	return Stamp{
		Kernel:    k,
		Footprint: clip.Clip(k.Radius(), size, anchor),
		Mode:      mode,
	}
}

// Inverse returns the stamp that undoes s over exactly the same cells.
func (s Stamp) Inverse() Stamp {
	s.Mode = s.Mode.Inverse()
	return s
}

// Validate checks the stamp against a layer of the given length.
func (s Stamp) Validate(layerLen int) error {
	if s.Kernel == nil {
		return fmt.Errorf("stamp has no kernel")
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("invalid stamp mode %d", int(s.Mode))
	}
	if s.Kernel.Radius() != s.Footprint.Radius {
		return fmt.Errorf("kernel radius %d does not match footprint radius %d",
			s.Kernel.Radius(), s.Footprint.Radius)
	}
	if layerLen != s.Footprint.Size.Area() {
		return grid.NewError(grid.ErrCodeOutOfBounds, "layer has %d cells, footprint expects %d",
			layerLen, s.Footprint.Size.Area())
	}
	return s.Footprint.Validate()
}

// Apply composites the stamp onto layer: layer[g] += mode * kernel[k] for
// every covered cell. It returns the number of cells written. An empty
// footprint is a valid no-op.
func (s Stamp) Apply(layer []int) (int, error) {
	if err := s.Validate(len(layer)); err != nil {
		return 0, err
	}
	sign := int(s.Mode)
	n := 0
	s.Footprint.Each(func(g, k int) {
		layer[g] += sign * s.Kernel.ValueAtIndex(k)
		n++
	})
	return n, nil
}

// Weight returns the total kernel weight inside the footprint, unsigned.
func (s Stamp) Weight() int {
	if s.Kernel == nil {
		return 0
	}
	total := 0
	s.Footprint.Each(func(_, k int) {
		total += s.Kernel.ValueAtIndex(k)
	})
	return total
}
