package grid

import (
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Store owns a set of equally sized integer layers.
//
// Store is a pure data container: it knows nothing about entities or
// kernels. Layers returned by Layer are live; writes through the slice are
// visible to every other reader. Store is not safe for concurrent use; the
// engine serialises access.
type Store struct {
	size   Size
	layers map[string][]int
	names  []string // creation order
}

// New creates an empty store for grids of the given size.
func New(size Size) (*Store, error) {
	if !size.Valid() {
		return nil, NewError(ErrCodeInvalidSize, "grid dimensions must be positive, got %s", size)
	}
	return &Store{
		size:   size,
		layers: make(map[string][]int),
	}, nil
}

// NormalizeName returns the canonical (NFC) form of a layer name.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// Size returns the grid dimensions shared by every layer.
func (s *Store) Size() Size { return s.size }

// AddLayer creates a zero-initialised layer.
func (s *Store) AddLayer(name string) error {
	key := NormalizeName(name)
	if key == "" {
		return NewError(ErrCodeInvalidName, "layer name must not be empty")
	}
	if _, ok := s.layers[key]; ok {
		return NewError(ErrCodeAlreadyExists, "layer %q already exists", key).With("layer", key)
	}
	s.layers[key] = make([]int, s.size.Area())
	s.names = append(s.names, key)
	return nil
}

// RemoveLayer drops a layer and its contents.
func (s *Store) RemoveLayer(name string) error {
	key := NormalizeName(name)
	if _, ok := s.layers[key]; !ok {
		return notFound(key)
	}
	delete(s.layers, key)
	for i, n := range s.names {
		if n == key {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return nil
}

// Has reports whether a layer exists.
func (s *Store) Has(name string) bool {
	_, ok := s.layers[NormalizeName(name)]
	return ok
}

// Names returns layer names in creation order.
func (s *Store) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Layer returns the live backing slice of a layer.
func (s *Store) Layer(name string) ([]int, error) {
	key := NormalizeName(name)
	layer, ok := s.layers[key]
	if !ok {
		return nil, notFound(key)
	}
	return layer, nil
}

// Snapshot returns a copy of a layer.
func (s *Store) Snapshot(name string) ([]int, error) {
	layer, err := s.Layer(name)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(layer))
	copy(out, layer)
	return out, nil
}

// Replace overwrites a layer wholesale. values must hold exactly W*H cells.
func (s *Store) Replace(name string, values []int) error {
	layer, err := s.Layer(name)
	if err != nil {
		return err
	}
	if len(values) != len(layer) {
		return NewError(ErrCodeOutOfBounds, "replacement has %d cells, layer has %d", len(values), len(layer)).
			With("layer", NormalizeName(name))
	}
	copy(layer, values)
	return nil
}

// Value reads one cell.
func (s *Store) Value(name string, index int) (int, error) {
	layer, err := s.Layer(name)
	if err != nil {
		return 0, err
	}
	if !s.size.InRange(index) {
		return 0, outOfBounds(NormalizeName(name), index)
	}
	return layer[index], nil
}

// SetValue writes one cell.
func (s *Store) SetValue(name string, index, value int) error {
	layer, err := s.Layer(name)
	if err != nil {
		return err
	}
	if !s.size.InRange(index) {
		return outOfBounds(NormalizeName(name), index)
	}
	layer[index] = value
	return nil
}

func notFound(layer string) *Error {
	return NewError(ErrCodeNotFound, "layer %q not found", layer).With("layer", layer)
}

func outOfBounds(layer string, index int) *Error {
	return NewError(ErrCodeOutOfBounds, "index %d outside layer bounds", index).
		With("layer", layer).
		With("index", strconv.Itoa(index))
}
