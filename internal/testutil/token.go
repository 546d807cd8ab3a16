package testutil

import (
	"fmt"
	"sync"
)

// TokenSequence generates predictable batch tokens: "<prefix>-0001",
// "<prefix>-0002", and so on. It never runs out, which suits scenarios whose
// operation count is not known up front.
//
// Safe for concurrent use.
type TokenSequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewTokenSequence creates a sequence. An empty prefix becomes "test-op".
func NewTokenSequence(prefix string) *TokenSequence {
	if prefix == "" {
		prefix = "test-op"
	}
	return &TokenSequence{prefix: prefix}
}

// Generate returns the next token. Implements engine.TokenGenerator.
func (s *TokenSequence) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%04d", s.prefix, s.n)
}

// Count returns how many tokens have been generated.
func (s *TokenSequence) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Reset restarts the sequence at 1.
func (s *TokenSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}
