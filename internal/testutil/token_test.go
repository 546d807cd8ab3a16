package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSequence_Sequential(t *testing.T) {
	s := NewTokenSequence("world")
	assert.Equal(t, "world-0001", s.Generate())
	assert.Equal(t, "world-0002", s.Generate())
	assert.Equal(t, 2, s.Count())

	s.Reset()
	assert.Equal(t, "world-0001", s.Generate())
}

func TestTokenSequence_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "test-op-0001", NewTokenSequence("").Generate())
}

func TestTokenSequence_ThreadSafe(t *testing.T) {
	s := NewTokenSequence("p")
	const goroutines = 50

	var wg sync.WaitGroup
	tokens := make(chan string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens <- s.Generate()
		}()
	}
	wg.Wait()
	close(tokens)

	seen := make(map[string]bool)
	for tok := range tokens {
		assert.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
	assert.Len(t, seen, goroutines)
}
