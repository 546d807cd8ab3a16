package engine

import (
	"fmt"

	"github.com/roach88/gridstamp/internal/config"
	"github.com/roach88/gridstamp/internal/grid"
)

// NewFromConfig builds an engine and populates it from cfg: layers, curves,
// kinds, then derived bindings. Each binding is evaluated once as it is
// added, so derived layers start consistent with their sources.
//
// Options given here override the corresponding config fields.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	base := []Option{WithPolicy(policy)}
	if cfg.MaxRadius > 0 {
		base = append(base, WithMaxRadius(cfg.MaxRadius))
	}

	e, err := New(grid.Size{W: cfg.Grid.Width, H: cfg.Grid.Height}, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	for _, name := range cfg.Layers {
		if err := e.AddLayer(name); err != nil {
			return nil, err
		}
	}
	for _, cv := range cfg.Curves {
		c, err := cv.Build()
		if err != nil {
			return nil, fmt.Errorf("curve %q: %w", cv.Name, err)
		}
		if err := e.RegisterCurve(cv.Name, c); err != nil {
			return nil, err
		}
	}
	for _, k := range cfg.Kinds {
		mode, err := k.StampMode()
		if err != nil {
			return nil, fmt.Errorf("kind %q: %w", k.Name, err)
		}
		if err := e.RegisterKind(Kind{Name: k.Name, Layer: k.Layer, Radius: k.Radius, Curve: k.Curve, Mode: mode}); err != nil {
			return nil, err
		}
	}
	for _, d := range cfg.Derived {
		b, err := d.Binding()
		if err != nil {
			return nil, fmt.Errorf("derived %q: %w", d.Target, err)
		}
		if err := e.Bind(b); err != nil {
			return nil, err
		}
	}

	e.logger.Info("engine ready",
		"grid", e.Size().String(),
		"layers", len(cfg.Layers),
		"kinds", len(cfg.Kinds),
		"derived", len(cfg.Derived),
		"policy", policy.String(),
	)
	return e, nil
}
