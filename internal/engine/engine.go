package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/gridstamp/internal/derive"
	"github.com/roach88/gridstamp/internal/grid"
	"github.com/roach88/gridstamp/internal/kernel"
	"github.com/roach88/gridstamp/internal/registry"
	"github.com/roach88/gridstamp/internal/stamp"
)

// Engine owns one grid world: its layers, kernels, entities and derived
// layers.
//
// Every exported method takes the engine mutex, so at most one mutation is
// in flight and readers never observe a half-applied stamp. Mutations run
// inside a batch; derived layers are recomputed once when the batch ends.
//
// INVARIANTS:
//   - A failed operation writes nothing.
//   - Every Placed entity's stamp is present in its layer exactly once.
//   - After every batch, each derived target equals Recompute(source).
type Engine struct {
	mu sync.Mutex

	store    *grid.Store
	kernels  *kernel.Cache
	curves   map[string]kernel.Curve
	kinds    map[string]Kind
	entities *registry.Registry
	derived  *derive.Engine

	clock  Sequencer
	tokens TokenGenerator
	logger *slog.Logger

	maxRadius int
	policy    registry.Policy
	last      Report
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxRadius sets the largest kernel radius the engine accepts.
//
// Default: kernel.DefaultMaxRadius.
func WithMaxRadius(r int) Option {
	return func(e *Engine) { e.maxRadius = r }
}

// WithPolicy sets the occupancy policy. Default: registry.PerCell.
func WithPolicy(p registry.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the structured logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the operation sequencer. Default: NewClock().
func WithClock(c Sequencer) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTokenGenerator sets the batch token source. Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// New creates an engine for a grid of the given size with no layers.
// The built-in curves "linear" and "smooth" are pre-registered.
func New(size grid.Size, opts ...Option) (*Engine, error) {
	store, err := grid.New(size)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:     store,
		curves:    make(map[string]kernel.Curve),
		kinds:     make(map[string]Kind),
		derived:   derive.New(),
		clock:     NewClock(),
		tokens:    UUIDv7Generator{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxRadius: kernel.DefaultMaxRadius,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxRadius < 1 {
		return nil, grid.NewError(grid.ErrCodeInvalidRadius, "max radius must be at least 1, got %d", e.maxRadius)
	}
	e.kernels = kernel.NewCache(e.maxRadius)
	e.entities = registry.New(size, registry.WithPolicy(e.policy))
	for _, name := range []string{"linear", "smooth"} {
		c, _ := kernel.Builtin(name)
		e.curves[name] = c
	}
	return e, nil
}

// Size returns the grid dimensions.
func (e *Engine) Size() grid.Size { return e.store.Size() }

// MaxRadius returns the largest accepted kernel radius.
func (e *Engine) MaxRadius() int { return e.maxRadius }

// AddLayer creates a zero-initialised layer.
func (e *Engine) AddLayer(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.AddLayer(name); err != nil {
		return err
	}
	e.logger.Debug("layer added", "layer", grid.NormalizeName(name))
	return nil
}

// Layers returns layer names in creation order.
func (e *Engine) Layers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Names()
}

// RegisterCurve makes a falloff curve available to kinds and placements.
// Curves cannot be replaced once registered: removal must rebuild the exact
// kernel used at placement.
func (e *Engine) RegisterCurve(name string, c kernel.Curve) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := grid.NormalizeName(name)
	if key == "" || c == nil {
		return grid.NewError(grid.ErrCodeInvalidCurve, "curve needs a name and a function")
	}
	if _, ok := e.curves[key]; ok {
		return grid.NewError(grid.ErrCodeAlreadyExists, "curve %q already registered", key).With("curve", key)
	}
	e.curves[key] = c
	return nil
}

// Curves returns the registered curve names, sorted.
func (e *Engine) Curves() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.curves))
	for n := range e.curves {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Bind registers a derived layer and evaluates it immediately, so the
// target is consistent with its source from the start. A layer that a kind
// or a placed entity stamps cannot become a target.
func (e *Engine) Bind(b derive.Binding) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, name := range []string{b.Source, b.Target} {
		if name != "" && !e.store.Has(name) {
			return grid.NewError(grid.ErrCodeNotFound, "layer %q not found", grid.NormalizeName(name)).
				With("layer", grid.NormalizeName(name))
		}
	}
	target := grid.NormalizeName(b.Target)
	for _, k := range e.kinds {
		if k.Layer == target {
			return grid.NewError(grid.ErrCodeDerivedTarget, "kind %q stamps layer %q, which cannot be derived", k.Name, target).
				With("layer", target).With("kind", k.Name)
		}
	}
	for _, ent := range e.entities.Entities() {
		if ent.Layer == target {
			return grid.NewError(grid.ErrCodeDerivedTarget, "entity %s is stamped on layer %q, which cannot be derived", ent.ID, target).
				With("layer", target).With("entity", ent.ID.String())
		}
	}
	if err := e.derived.Bind(b); err != nil {
		return err
	}
	return e.batch(func(tx *Tx) error {
		tx.markDirty(b.Source)
		return nil
	})
}

// Layer returns the live backing slice of a layer. Writes through it bypass
// dirty tracking; use SetValue to keep derived layers in sync.
func (e *Engine) Layer(name string) ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Layer(name)
}

// Snapshot returns a copy of a layer.
func (e *Engine) Snapshot(name string) ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Snapshot(name)
}

// Value reads one cell.
func (e *Engine) Value(name string, index int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Value(name, index)
}

// SetValue writes one cell and recomputes layers derived from it.
func (e *Engine) SetValue(name string, index, value int) error {
	return e.Batch(func(tx *Tx) error { return tx.SetValue(name, index, value) })
}

// Place stamps a new entity of a registered kind at anchor.
func (e *Engine) Place(kind string, anchor grid.Point) (registry.ID, error) {
	var id registry.ID
	err := e.Batch(func(tx *Tx) error {
		var err error
		id, err = tx.Place(kind, anchor)
		return err
	})
	return id, err
}

// PlaceEntity stamps a new entity described by req.
func (e *Engine) PlaceEntity(req PlaceRequest) (registry.ID, error) {
	var id registry.ID
	err := e.Batch(func(tx *Tx) error {
		var err error
		id, err = tx.PlaceEntity(req)
		return err
	})
	return id, err
}

// Remove undoes an entity's stamp and tombstones it.
func (e *Engine) Remove(id registry.ID) error {
	return e.Batch(func(tx *Tx) error { return tx.Remove(id) })
}

// Toggle removes the entity anchored at anchor, or places kind there if the
// cell is free.
func (e *Engine) Toggle(kind string, anchor grid.Point) (ToggleResult, error) {
	var res ToggleResult
	err := e.Batch(func(tx *Tx) error {
		var err error
		res, err = tx.Toggle(kind, anchor)
		return err
	})
	return res, err
}

// EntityAt returns the most recently placed live entity anchored at index.
func (e *Engine) EntityAt(index int) (registry.ID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entities.At(index)
}

// Entity returns an entity by id, including tombstones whose slot has not
// been reused.
func (e *Engine) Entity(id registry.ID) (registry.Entity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entities.Get(id)
}

// Entities returns all placed entities.
func (e *Engine) Entities() []registry.Entity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entities.Entities()
}

// KernelStats reports kernel cache usage.
func (e *Engine) KernelStats() kernel.CacheStats {
	return e.kernels.Stats()
}

// Kernel returns the cached kernel for radius and a registered curve.
func (e *Engine) Kernel(radius int, curve string) (*kernel.Kernel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kernel(radius, curve)
}

// LastDirty returns the layers changed by the most recent batch: the layers
// written directly plus every recomputed derived layer, sorted.
func (e *Engine) LastDirty() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.last.Dirty...)
}

// LastReport returns the full record of the most recent batch.
func (e *Engine) LastReport() Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.last
	r.Ops = append([]Op(nil), r.Ops...)
	r.Dirty = append([]string(nil), r.Dirty...)
	return r
}

// Batch runs fn with exclusive access to the engine. Derived layers are
// recomputed once after fn returns, whether or not it failed: operations
// that succeeded inside the batch stay applied. The *Tx must not be used
// after fn returns.
func (e *Engine) Batch(fn func(tx *Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batch(fn)
}

func (e *Engine) batch(fn func(tx *Tx) error) error {
	tx := &Tx{e: e, token: e.tokens.Generate()}
	fnErr := fn(tx)
	tx.done = true

	dirty, flushErr := e.derived.Flush(e.store)
	if flushErr != nil {
		e.logger.Error("derived layer flush failed", "token", tx.token, "error", flushErr)
		e.derived.Reset()
	}
	e.last = Report{Token: tx.token, Ops: tx.ops, Dirty: dirty}
	if len(tx.ops) > 0 {
		e.logger.Debug("batch committed",
			"token", tx.token,
			"ops", len(tx.ops),
			"dirty", dirty,
		)
	}
	return errors.Join(fnErr, flushErr)
}

// kernel resolves a curve by name and returns its cached kernel.
func (e *Engine) kernel(radius int, curve string) (*kernel.Kernel, error) {
	name := grid.NormalizeName(curve)
	c, ok := e.curves[name]
	if !ok {
		return nil, grid.NewError(grid.ErrCodeInvalidCurve, "curve %q not registered", name).With("curve", name)
	}
	return e.kernels.Get(radius, name, c)
}

// stampFor rebuilds the stamp an entity contributes. Removal calls this with
// the entity's recorded fields, so it always reclips the same rectangle.
func (e *Engine) stampFor(ent registry.Entity) (stamp.Stamp, error) {
	k, err := e.kernel(ent.Radius, ent.Curve)
	if err != nil {
		return stamp.Stamp{}, fmt.Errorf("kernel for %s: %w", ent.Kind, err)
	}
	return stamp.New(k, e.store.Size(), ent.Anchor, ent.Mode), nil
}
