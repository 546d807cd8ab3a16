package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridstamp/internal/grid"
)

func newStore(t *testing.T, layers ...string) *grid.Store {
	t.Helper()
	s, err := grid.New(grid.Size{W: 4, H: 3})
	require.NoError(t, err)
	for _, l := range layers {
		require.NoError(t, s.AddLayer(l))
	}
	return s
}

func TestFlush_InvertKeepsComplement(t *testing.T) {
	store := newStore(t, "pollution", "land_value")
	e := New()
	require.NoError(t, e.Bind(Binding{Source: "pollution", Target: "land_value", Recompute: Invert(255)}))

	changed, err := e.RecomputeAll(store)
	require.NoError(t, err)
	assert.Equal(t, []string{"land_value", "pollution"}, changed)

	land, err := store.Snapshot("land_value")
	require.NoError(t, err)
	for _, v := range land {
		assert.Equal(t, 255, v)
	}

	require.NoError(t, store.SetValue("pollution", 5, 191))
	require.NoError(t, store.SetValue("pollution", 6, 300))
	e.MarkDirty("pollution")
	_, err = e.Flush(store)
	require.NoError(t, err)

	src, _ := store.Snapshot("pollution")
	dst, _ := store.Snapshot("land_value")
	for i := range src {
		assert.Equal(t, 255, src[i]+dst[i], "index %d", i)
	}
	assert.Equal(t, -45, dst[6], "no clamping on invert")
	assert.Empty(t, e.Dirty())
}

func TestFlush_CleanSourceIsSkipped(t *testing.T) {
	store := newStore(t, "a", "b", "c")
	e := New()
	calls := 0
	require.NoError(t, e.Bind(Binding{Source: "a", Target: "b", Recompute: func(src []int) []int {
		calls++
		return src
	}}))

	e.MarkDirty("c")
	changed, err := e.Flush(store)
	require.NoError(t, err)
	assert.Zero(t, calls)
	assert.Equal(t, []string{"c"}, changed)
}

func TestFlush_ChainPropagates(t *testing.T) {
	store := newStore(t, "a", "b", "c")
	e := New()
	// Registered downstream-first to exercise ordering.
	require.NoError(t, e.Bind(Binding{Source: "b", Target: "c", Recompute: Clamp(0, 100)}))
	require.NoError(t, e.Bind(Binding{Source: "a", Target: "b", Recompute: Invert(255)}))

	var order []string
	for _, b := range e.Bindings() {
		order = append(order, b.Target)
	}
	assert.Equal(t, []string{"b", "c"}, order)

	require.NoError(t, store.SetValue("a", 0, 200))
	e.MarkDirty("a")
	changed, err := e.Flush(store)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, changed)

	b, _ := store.Value("b", 0)
	c, _ := store.Value("c", 0)
	assert.Equal(t, 55, b)
	assert.Equal(t, 55, c)
	c1, _ := store.Value("c", 1)
	assert.Equal(t, 100, c1)
}

func TestBind_Rejections(t *testing.T) {
	t.Run("duplicate target", func(t *testing.T) {
		e := New()
		require.NoError(t, e.Bind(Binding{Source: "a", Target: "b", Recompute: Invert(1)}))
		err := e.Bind(Binding{Source: "c", Target: "b", Recompute: Invert(1)})
		assert.True(t, grid.IsAlreadyExists(err))
	})

	t.Run("self", func(t *testing.T) {
		err := New().Bind(Binding{Source: "a", Target: "a", Recompute: Invert(1)})
		assert.ErrorIs(t, err, grid.ErrCycle)
	})

	t.Run("cycle", func(t *testing.T) {
		e := New()
		require.NoError(t, e.Bind(Binding{Source: "a", Target: "b", Recompute: Invert(1)}))
		require.NoError(t, e.Bind(Binding{Source: "b", Target: "c", Recompute: Invert(1)}))
		err := e.Bind(Binding{Source: "c", Target: "a", Recompute: Invert(1)})
		require.ErrorIs(t, err, grid.ErrCycle)
		assert.Contains(t, err.Error(), "a → b → c → a")
		assert.Len(t, e.Bindings(), 2, "rejected binding must not be kept")
	})

	t.Run("missing names", func(t *testing.T) {
		err := New().Bind(Binding{Source: "", Target: "b", Recompute: Invert(1)})
		assert.True(t, grid.IsInvalidName(err))
	})

	t.Run("missing func", func(t *testing.T) {
		err := New().Bind(Binding{Source: "a", Target: "b"})
		assert.Error(t, err)
	})
}

func TestFlush_Errors(t *testing.T) {
	t.Run("missing target layer", func(t *testing.T) {
		store := newStore(t, "a")
		e := New()
		require.NoError(t, e.Bind(Binding{Source: "a", Target: "ghost", Recompute: Invert(1)}))
		e.MarkDirty("a")
		_, err := e.Flush(store)
		assert.True(t, grid.IsNotFound(err))
		assert.Equal(t, []string{"a"}, e.Dirty(), "dirty set survives a failed flush")
	})

	t.Run("wrong length", func(t *testing.T) {
		store := newStore(t, "a", "b")
		e := New()
		require.NoError(t, e.Bind(Binding{Source: "a", Target: "b", Recompute: func([]int) []int { return nil }}))
		e.MarkDirty("a")
		_, err := e.Flush(store)
		assert.True(t, grid.IsOutOfBounds(err))
	})
}

func TestRecompute_ReceivesSnapshot(t *testing.T) {
	store := newStore(t, "a", "b")
	e := New()
	require.NoError(t, e.Bind(Binding{Source: "a", Target: "b", Recompute: func(src []int) []int {
		src[0] = 99
		return src
	}}))
	e.MarkDirty("a")
	_, err := e.Flush(store)
	require.NoError(t, err)

	a, _ := store.Value("a", 0)
	assert.Zero(t, a, "source must not be mutated through the recompute input")
}

func TestSources(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind(Binding{Source: "a", Target: "b", Recompute: Invert(1)}))
	assert.True(t, e.Sources("a"))
	assert.False(t, e.Sources("b"))
}

func TestDerives(t *testing.T) {
	e := New()
	require.NoError(t, e.Bind(Binding{Source: "a", Target: "b", Recompute: Invert(1)}))
	assert.True(t, e.Derives("b"))
	assert.False(t, e.Derives("a"))
	assert.False(t, e.Derives("c"))
}
