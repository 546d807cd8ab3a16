package engine

import (
	"errors"

	"github.com/roach88/gridstamp/internal/grid"
	"github.com/roach88/gridstamp/internal/registry"
)

// ErrTxClosed is returned when a Tx is used after its batch ended.
var ErrTxClosed = errors.New("engine: transaction used after batch ended")

// OpKind names a mutation.
type OpKind string

const (
	OpPlace  OpKind = "place"
	OpRemove OpKind = "remove"
	OpSet    OpKind = "set"
)

// Op records one successful mutation.
type Op struct {
	Seq    int64       `json:"seq"`
	Kind   OpKind      `json:"op"`
	Entity registry.ID `json:"entity,omitempty"`
	Of     string      `json:"kind,omitempty"` // entity kind
	Layer  string      `json:"layer"`
	Anchor grid.Point  `json:"anchor"`
	Index  int         `json:"index"`
	Value  int         `json:"value,omitempty"`
	Cells  int         `json:"cells"` // cells written
}

// Report describes one batch.
type Report struct {
	Token string   `json:"token"`
	Ops   []Op     `json:"ops"`
	Dirty []string `json:"dirty"`
}

// ToggleAction says what Toggle did.
type ToggleAction string

const (
	Placed  ToggleAction = "placed"
	Removed ToggleAction = "removed"
)

// ToggleResult is the outcome of Toggle.
type ToggleResult struct {
	Action ToggleAction
	ID     registry.ID
}

// Tx performs mutations inside Engine.Batch. Each method validates fully
// before writing, so a failed call leaves the world unchanged.
type Tx struct {
	e     *Engine
	token string
	ops   []Op
	done  bool
}

// Token returns the batch's operation token.
func (tx *Tx) Token() string { return tx.token }

// Place stamps a new entity of a registered kind at anchor.
func (tx *Tx) Place(kind string, anchor grid.Point) (registry.ID, error) {
	return tx.PlaceEntity(PlaceRequest{Kind: kind, Anchor: anchor})
}

// PlaceEntity stamps a new entity: kernel lookup, clip, composite, then
// record the entity as Placed.
func (tx *Tx) PlaceEntity(req PlaceRequest) (registry.ID, error) {
	if tx.done {
		return registry.None, ErrTxClosed
	}
	e := tx.e
	req, err := e.resolve(req)
	if err != nil {
		return registry.None, err
	}
	layer, err := e.store.Layer(req.Layer)
	if err != nil {
		return registry.None, err
	}
	if err := e.writable(req.Layer); err != nil {
		return registry.None, err
	}
	ent := registry.Entity{
		Kind:   req.Kind,
		Anchor: req.Anchor,
		Radius: req.Radius,
		Layer:  req.Layer,
		Curve:  req.Curve,
		Mode:   req.Mode,
	}
	s, err := e.stampFor(ent)
	if err != nil {
		return registry.None, err
	}
	if err := s.Validate(len(layer)); err != nil {
		return registry.None, err
	}

	id, err := e.entities.Reserve(ent)
	if err != nil {
		return registry.None, err
	}
	n, err := s.Apply(layer)
	if err != nil {
		_ = e.entities.Discard(id)
		return registry.None, err
	}
	if err := e.entities.Commit(id); err != nil {
		_, _ = s.Inverse().Apply(layer)
		_ = e.entities.Discard(id)
		return registry.None, err
	}

	tx.record(Op{
		Kind:   OpPlace,
		Entity: id,
		Of:     ent.Kind,
		Layer:  ent.Layer,
		Anchor: ent.Anchor,
		Index:  e.store.Size().Index(ent.Anchor),
		Cells:  n,
	})
	e.logger.Debug("entity placed",
		"token", tx.token,
		"entity", id.String(),
		"kind", ent.Kind,
		"anchor", ent.Anchor.String(),
		"radius", ent.Radius,
		"cells", n,
	)
	return id, nil
}

// Remove applies the inverse of the entity's placement stamp, rebuilt from
// the fields recorded at placement, then tombstones it.
func (tx *Tx) Remove(id registry.ID) error {
	if tx.done {
		return ErrTxClosed
	}
	e := tx.e
	ent, err := e.entities.Placed(id)
	if err != nil {
		return err
	}
	layer, err := e.store.Layer(ent.Layer)
	if err != nil {
		return err
	}
	s, err := e.stampFor(ent)
	if err != nil {
		return err
	}
	n, err := s.Inverse().Apply(layer)
	if err != nil {
		return err
	}
	if err := e.entities.Tombstone(id); err != nil {
		_, _ = s.Apply(layer)
		return err
	}

	tx.record(Op{
		Kind:   OpRemove,
		Entity: id,
		Of:     ent.Kind,
		Layer:  ent.Layer,
		Anchor: ent.Anchor,
		Index:  e.store.Size().Index(ent.Anchor),
		Cells:  n,
	})
	e.logger.Debug("entity removed",
		"token", tx.token,
		"entity", id.String(),
		"kind", ent.Kind,
		"anchor", ent.Anchor.String(),
	)
	return nil
}

// Toggle removes the live entity anchored at anchor if there is one,
// otherwise places kind there.
func (tx *Tx) Toggle(kind string, anchor grid.Point) (ToggleResult, error) {
	if tx.done {
		return ToggleResult{}, ErrTxClosed
	}
	size := tx.e.store.Size()
	if !size.Contains(anchor) {
		return ToggleResult{}, grid.NewError(grid.ErrCodeOutOfBounds, "anchor %s outside grid %s", anchor, size)
	}
	if id, ok := tx.e.entities.At(size.Index(anchor)); ok {
		if err := tx.Remove(id); err != nil {
			return ToggleResult{}, err
		}
		return ToggleResult{Action: Removed, ID: id}, nil
	}
	id, err := tx.Place(kind, anchor)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Action: Placed, ID: id}, nil
}

// SetValue writes one cell directly.
func (tx *Tx) SetValue(name string, index, value int) error {
	if tx.done {
		return ErrTxClosed
	}
	layer := grid.NormalizeName(name)
	if err := tx.e.writable(layer); err != nil {
		return err
	}
	if err := tx.e.store.SetValue(name, index, value); err != nil {
		return err
	}
	tx.record(Op{Kind: OpSet, Layer: layer, Index: index, Value: value, Cells: 1})
	return nil
}

// Entities returns all placed entities as of this point in the batch.
func (tx *Tx) Entities() []registry.Entity {
	return tx.e.entities.Entities()
}

// EntityAt returns the most recent live entity anchored at index.
func (tx *Tx) EntityAt(index int) (registry.ID, bool) {
	return tx.e.entities.At(index)
}

func (tx *Tx) record(op Op) {
	op.Seq = tx.e.clock.Next()
	tx.ops = append(tx.ops, op)
	tx.markDirty(op.Layer)
}

func (tx *Tx) markDirty(layer string) {
	if layer != "" {
		tx.e.derived.MarkDirty(layer)
	}
}
