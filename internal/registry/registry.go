// Package registry tracks placed entities and their lifecycle.
//
// Entities live in an arena of slots. An ID packs the slot index with a
// generation counter, so when a removed entity's slot is reused the old ID
// stays invalid rather than aliasing the newcomer.
//
// The registry only does bookkeeping; the engine performs the stamps and
// drives the Unplaced → Placed → Removed transitions.
package registry

import (
	"fmt"

	"github.com/roach88/gridstamp/internal/grid"
	"github.com/roach88/gridstamp/internal/stamp"
)

// ID identifies an entity. The zero ID is never issued.
type ID uint64

// None is the zero ID.
const None ID = 0

func makeID(slot int, gen uint32) ID {
	return ID(uint64(gen)<<32 | uint64(uint32(slot+1)))
}

// Slot returns the arena slot encoded in id.
func (id ID) Slot() int { return int(uint32(id)) - 1 }

// Generation returns how many times the slot had been reused when id was issued.
func (id ID) Generation() uint32 { return uint32(id >> 32) }

func (id ID) String() string {
	if id == None {
		return "none"
	}
	return fmt.Sprintf("e%d.%d", id.Slot(), id.Generation())
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// State is an entity's lifecycle stage.
type State int

const (
	// Unplaced entities are reserved but not yet stamped.
	Unplaced State = iota
	// Placed entities have contributed their stamp to a layer.
	Placed
	// Removed entities have had their stamp undone; the slot is a tombstone.
	Removed
)

func (s State) String() string {
	switch s {
	case Unplaced:
		return "unplaced"
	case Placed:
		return "placed"
	case Removed:
		return "removed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Entity is a stamped influence source.
//
// Radius, Curve and Mode are recorded at placement so removal reproduces
// the exact stamp even if the kind table changes later.
type Entity struct {
	ID     ID         `json:"id"`
	Kind   string     `json:"kind"`
	Anchor grid.Point `json:"anchor"`
	Radius int        `json:"radius"`
	Layer  string     `json:"layer"`
	Curve  string     `json:"curve"`
	Mode   stamp.Mode `json:"mode"`
	State  State      `json:"state"`
}

// Policy decides which existing entities block a new placement.
type Policy int

const (
	// PerCell allows at most one live entity per anchor cell.
	PerCell Policy = iota
	// PerKind allows one live entity of each kind per anchor cell.
	PerKind
	// Stacked allows any number of entities per anchor cell.
	Stacked
)

// ParsePolicy converts a config string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "per_cell":
		return PerCell, nil
	case "per_kind":
		return PerKind, nil
	case "stacked":
		return Stacked, nil
	}
	return 0, fmt.Errorf("unknown occupancy policy %q: must be per_cell, per_kind or stacked", s)
}

func (p Policy) String() string {
	switch p {
	case PerCell:
		return "per_cell"
	case PerKind:
		return "per_kind"
	case Stacked:
		return "stacked"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

type slot struct {
	gen    uint32
	entity Entity
	used   bool
}

// Registry is the entity arena plus a by-cell index of live entities.
// It is not safe for concurrent use.
type Registry struct {
	size   grid.Size
	policy Policy
	slots  []slot
	free   []int        // tombstoned slots, reused LIFO
	cells  map[int][]ID // anchor index → live entities, oldest first
	live   int
}

// Option configures a Registry.
type Option func(*Registry)

// WithPolicy sets the occupancy policy. Default: PerCell.
func WithPolicy(p Policy) Option {
	return func(r *Registry) { r.policy = p }
}

// New creates an empty registry for a grid of the given size.
func New(size grid.Size, opts ...Option) *Registry {
	r := &Registry{
		size:  size,
		cells: make(map[int][]ID),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the occupancy policy.
func (r *Registry) Policy() Policy { return r.policy }

// Check reports whether kind may be placed at anchor.
func (r *Registry) Check(kind string, anchor grid.Point) error {
	if !r.size.Contains(anchor) {
		return grid.NewError(grid.ErrCodeOutOfBounds, "anchor %s outside grid %s", anchor, r.size)
	}
	if r.policy == Stacked {
		return nil
	}
	for _, id := range r.cells[r.size.Index(anchor)] {
		e := r.slots[id.Slot()].entity
		if r.policy == PerCell || e.Kind == kind {
			return grid.NewError(grid.ErrCodeOccupied, "anchor %s already holds %s (%s)", anchor, e.ID, e.Kind).
				With("entity", e.ID.String())
		}
	}
	return nil
}

// Reserve allocates an Unplaced entity and returns its ID. The entity is
// not indexed and does not block other placements until Commit.
func (r *Registry) Reserve(e Entity) (ID, error) {
	if err := r.Check(e.Kind, e.Anchor); err != nil {
		return None, err
	}
	var idx int
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[idx].gen++
	} else {
		idx = len(r.slots)
		r.slots = append(r.slots, slot{})
	}
	s := &r.slots[idx]
	e.ID = makeID(idx, s.gen)
	e.State = Unplaced
	s.entity = e
	s.used = true
	return e.ID, nil
}

// Commit marks a reserved entity Placed and indexes it by anchor.
func (r *Registry) Commit(id ID) error {
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	if s.entity.State != Unplaced {
		return grid.NewError(grid.ErrCodeNotFound, "entity %s is %s, not unplaced", id, s.entity.State)
	}
	s.entity.State = Placed
	cell := r.size.Index(s.entity.Anchor)
	r.cells[cell] = append(r.cells[cell], id)
	r.live++
	return nil
}

// Discard releases a reservation that was never committed.
func (r *Registry) Discard(id ID) error {
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	if s.entity.State != Unplaced {
		return grid.NewError(grid.ErrCodeNotFound, "entity %s is %s, not unplaced", id, s.entity.State)
	}
	s.entity.State = Removed
	r.free = append(r.free, id.Slot())
	return nil
}

// Tombstone marks a Placed entity Removed and frees its slot for reuse.
func (r *Registry) Tombstone(id ID) error {
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	if s.entity.State != Placed {
		return notFound(id)
	}
	s.entity.State = Removed
	cell := r.size.Index(s.entity.Anchor)
	ids := r.cells[cell]
	for i, other := range ids {
		if other == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(r.cells, cell)
	} else {
		r.cells[cell] = ids
	}
	r.free = append(r.free, id.Slot())
	r.live--
	return nil
}

// Get returns the entity for id. A tombstone is still returned, in state
// Removed, until its slot is reused.
func (r *Registry) Get(id ID) (Entity, error) {
	s, err := r.lookup(id)
	if err != nil {
		return Entity{}, err
	}
	return s.entity, nil
}

// Placed returns the entity for id if it is currently placed.
func (r *Registry) Placed(id ID) (Entity, error) {
	e, err := r.Get(id)
	if err != nil {
		return Entity{}, err
	}
	if e.State != Placed {
		return Entity{}, notFound(id)
	}
	return e, nil
}

// At returns the most recently placed live entity anchored at index.
func (r *Registry) At(index int) (ID, bool) {
	ids := r.cells[index]
	if len(ids) == 0 {
		return None, false
	}
	return ids[len(ids)-1], true
}

// AllAt returns every live entity anchored at index, oldest first.
func (r *Registry) AllAt(index int) []ID {
	return append([]ID(nil), r.cells[index]...)
}

// Len returns the number of placed entities.
func (r *Registry) Len() int { return r.live }

// Entities returns all placed entities ordered by slot.
func (r *Registry) Entities() []Entity {
	out := make([]Entity, 0, r.live)
	for _, s := range r.slots {
		if s.used && s.entity.State == Placed {
			out = append(out, s.entity)
		}
	}
	return out
}

func (r *Registry) lookup(id ID) (*slot, error) {
	idx := id.Slot()
	if id == None || idx < 0 || idx >= len(r.slots) {
		return nil, notFound(id)
	}
	s := &r.slots[idx]
	if !s.used || s.gen != id.Generation() {
		return nil, notFound(id)
	}
	return s, nil
}

func notFound(id ID) *grid.Error {
	return grid.NewError(grid.ErrCodeNotFound, "entity %s not found", id).With("entity", id.String())
}
