package engine

import (
	"fmt"
	"sort"

	"github.com/roach88/gridstamp/internal/grid"
	"github.com/roach88/gridstamp/internal/kernel"
	"github.com/roach88/gridstamp/internal/stamp"
)

// Kind is a row of the entity kind table: what a placement of this kind
// stamps, where, and how far it reaches.
type Kind struct {
	Name   string
	Layer  string
	Radius int
	Curve  string     // registered curve name; "" means "linear"
	Mode   stamp.Mode // zero means stamp.Add
}

// RegisterKind adds a kind to the table. The layer and curve must already
// exist and the radius must be within the engine's limit.
func (e *Engine) RegisterKind(k Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	k.Name = grid.NormalizeName(k.Name)
	k.Layer = grid.NormalizeName(k.Layer)
	if k.Curve == "" {
		k.Curve = "linear"
	}
	k.Curve = grid.NormalizeName(k.Curve)
	if k.Mode == 0 {
		k.Mode = stamp.Add
	}

	if k.Name == "" {
		return grid.NewError(grid.ErrCodeInvalidName, "kind name must not be empty")
	}
	if _, ok := e.kinds[k.Name]; ok {
		return grid.NewError(grid.ErrCodeAlreadyExists, "kind %q already registered", k.Name).With("kind", k.Name)
	}
	if !e.store.Has(k.Layer) {
		return grid.NewError(grid.ErrCodeNotFound, "kind %q targets unknown layer %q", k.Name, k.Layer).
			With("layer", k.Layer)
	}
	if err := e.writable(k.Layer); err != nil {
		return err
	}
	if !k.Mode.Valid() {
		return fmt.Errorf("kind %q has invalid mode %d", k.Name, int(k.Mode))
	}
	if err := kernel.ValidateRadius(k.Radius, e.maxRadius); err != nil {
		return err
	}
	if _, err := e.kernel(k.Radius, k.Curve); err != nil {
		return err
	}

	e.kinds[k.Name] = k
	e.logger.Debug("kind registered",
		"kind", k.Name,
		"layer", k.Layer,
		"radius", k.Radius,
		"curve", k.Curve,
		"mode", k.Mode.String(),
	)
	return nil
}

// Kinds returns the kind table sorted by name.
func (e *Engine) Kinds() []Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Kind, 0, len(e.kinds))
	for _, k := range e.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PlaceRequest describes one placement. Zero fields fall back to the
// registered kind's entry; a kind that is not registered must supply Layer
// and Radius itself.
type PlaceRequest struct {
	Kind   string
	Anchor grid.Point
	Radius int
	Layer  string
	Curve  string
	Mode   stamp.Mode
}

// resolve fills the request's zero fields from the kind table.
func (e *Engine) resolve(req PlaceRequest) (PlaceRequest, error) {
	req.Kind = grid.NormalizeName(req.Kind)
	if req.Kind == "" {
		return req, grid.NewError(grid.ErrCodeInvalidName, "placement needs a kind")
	}
	k, registered := e.kinds[req.Kind]
	if registered {
		if req.Radius == 0 {
			req.Radius = k.Radius
		}
		if req.Layer == "" {
			req.Layer = k.Layer
		}
		if req.Curve == "" {
			req.Curve = k.Curve
		}
		if req.Mode == 0 {
			req.Mode = k.Mode
		}
	} else if req.Layer == "" {
		return req, grid.NewError(grid.ErrCodeNotFound, "kind %q not registered", req.Kind).With("kind", req.Kind)
	}
	if req.Curve == "" {
		req.Curve = "linear"
	}
	if req.Mode == 0 {
		req.Mode = stamp.Add
	}
	req.Layer = grid.NormalizeName(req.Layer)
	req.Curve = grid.NormalizeName(req.Curve)
	return req, nil
}

// writable rejects layers owned by a derived binding: the next flush would
// overwrite anything stamped or set there.
func (e *Engine) writable(layer string) error {
	if e.derived.Derives(layer) {
		return grid.NewError(grid.ErrCodeDerivedTarget, "layer %q is derived and cannot be written directly", layer).
			With("layer", layer)
	}
	return nil
}
