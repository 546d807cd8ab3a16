// Package derive keeps layers that are pure functions of other layers up to
// date.
//
// Stamps mark their target layer dirty. Flush then replaces every bound
// target whose source is dirty with Recompute(source). Bindings form a DAG;
// Flush walks it in dependency order and marks each recomputed target dirty
// in turn, so a chain a → b → c settles in one pass.
package derive

import (
	"fmt"
	"sort"

	"github.com/roach88/gridstamp/internal/grid"
)

// Func computes a target layer from a snapshot of its source. It must depend
// on nothing but src and must return a slice of the same length.
type Func func(src []int) []int

// Binding declares Target = Recompute(Source).
type Binding struct {
	// Name labels the binding in logs and errors. Defaults to "source→target".
	Name      string
	Source    string
	Target    string
	Recompute Func
}

func (b Binding) label() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Source + "→" + b.Target
}

// Invert returns max - v for each cell.
func Invert(max int) Func {
	return func(src []int) []int {
		out := make([]int, len(src))
		for i, v := range src {
			out[i] = max - v
		}
		return out
	}
}

// Clamp bounds each cell to [lo, hi].
func Clamp(lo, hi int) Func {
	return func(src []int) []int {
		out := make([]int, len(src))
		for i, v := range src {
			out[i] = min(max(v, lo), hi)
		}
		return out
	}
}

// LayerStore is the subset of grid.Store the engine reads and writes.
type LayerStore interface {
	Snapshot(name string) ([]int, error)
	Replace(name string, values []int) error
}

// Engine holds the bindings and the dirty set between flushes.
// It is not safe for concurrent use.
type Engine struct {
	bindings []Binding
	order    []int // topological order over bindings
	dirty    map[string]bool
}

// New creates an engine with no bindings.
func New() *Engine {
	return &Engine{dirty: make(map[string]bool)}
}

// Bind registers b. The binding is rejected if a name is empty, if source
// equals target, if target already has a producer, or if b would close a
// dependency cycle.
func (e *Engine) Bind(b Binding) error {
	b.Source = grid.NormalizeName(b.Source)
	b.Target = grid.NormalizeName(b.Target)
	switch {
	case b.Source == "" || b.Target == "":
		return grid.NewError(grid.ErrCodeInvalidName, "binding %q needs both source and target layers", b.Name)
	case b.Recompute == nil:
		return fmt.Errorf("binding %s has no recompute function", b.label())
	}
	for _, existing := range e.bindings {
		if existing.Target == b.Target {
			return grid.NewError(grid.ErrCodeAlreadyExists, "layer %q is already derived by %s", b.Target, existing.label()).
				With("layer", b.Target)
		}
	}

	candidate := append(append([]Binding(nil), e.bindings...), b)
	if cycle := findCycle(buildGraph(candidate)); cycle != nil {
		return grid.NewError(grid.ErrCodeCycle, "binding %s creates a cycle: %s", b.label(), formatPath(cycle)).
			With("path", formatPath(cycle))
	}

	e.bindings = candidate
	e.order = topoOrder(e.bindings)
	return nil
}

// Bindings returns the registered bindings in dependency order.
func (e *Engine) Bindings() []Binding {
	out := make([]Binding, 0, len(e.order))
	for _, i := range e.order {
		out = append(out, e.bindings[i])
	}
	return out
}

// Sources reports whether any binding reads from layer.
func (e *Engine) Sources(layer string) bool {
	layer = grid.NormalizeName(layer)
	for _, b := range e.bindings {
		if b.Source == layer {
			return true
		}
	}
	return false
}

// Derives reports whether a binding recomputes layer.
func (e *Engine) Derives(layer string) bool {
	layer = grid.NormalizeName(layer)
	for _, b := range e.bindings {
		if b.Target == layer {
			return true
		}
	}
	return false
}

// MarkDirty records that the named layers changed.
func (e *Engine) MarkDirty(names ...string) {
	for _, n := range names {
		e.dirty[grid.NormalizeName(n)] = true
	}
}

// Dirty returns the dirty layer names, sorted.
func (e *Engine) Dirty() []string {
	out := make([]string, 0, len(e.dirty))
	for n := range e.dirty {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Reset clears the dirty set without recomputing anything.
func (e *Engine) Reset() {
	clear(e.dirty)
}

// Flush recomputes every binding whose source is dirty and clears the dirty
// set. It returns the full set of layers that changed during the batch:
// the dirty sources plus every recomputed target, sorted.
//
// On error the dirty set is kept so a later Flush can retry.
func (e *Engine) Flush(store LayerStore) ([]string, error) {
	for _, i := range e.order {
		b := e.bindings[i]
		if !e.dirty[b.Source] {
			continue
		}
		if err := recompute(store, b); err != nil {
			return nil, err
		}
		e.dirty[b.Target] = true
	}
	changed := e.Dirty()
	e.Reset()
	return changed, nil
}

// RecomputeAll evaluates every binding regardless of the dirty set. Used to
// bring derived layers in line with their sources at startup.
func (e *Engine) RecomputeAll(store LayerStore) ([]string, error) {
	for _, b := range e.bindings {
		e.dirty[b.Source] = true
	}
	return e.Flush(store)
}

func recompute(store LayerStore, b Binding) error {
	src, err := store.Snapshot(b.Source)
	if err != nil {
		return fmt.Errorf("derive %s: %w", b.label(), err)
	}
	out := b.Recompute(src)
	if len(out) != len(src) {
		return grid.NewError(grid.ErrCodeOutOfBounds, "derive %s produced %d cells, want %d", b.label(), len(out), len(src)).
			With("layer", b.Target)
	}
	if err := store.Replace(b.Target, out); err != nil {
		return fmt.Errorf("derive %s: %w", b.label(), err)
	}
	return nil
}
