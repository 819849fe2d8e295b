package service

import (
	"sync"

	"github.com/go-loremipsum/loremipsum"
)

// Lorem produces placeholder sentences. It is safe for concurrent use.
type Lorem struct {
	mu  sync.Mutex
	gen *loremipsum.LoremIpsum
}

// NewLorem returns a generator seeded from the clock.
func NewLorem() *Lorem {
	return &Lorem{gen: loremipsum.New()}
}

// NewLoremWithSeed returns a generator whose output is fixed by seed.
func NewLoremWithSeed(seed int64) *Lorem {
	return &Lorem{gen: loremipsum.NewWithSeed(seed)}
}

// Sentence returns one capitalized sentence ending in a period.
func (l *Lorem) Sentence() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen.Sentence()
}

var defaultLorem = NewLorem()

// LoremSentence returns a sentence from the shared generator.
func LoremSentence() string {
	return defaultLorem.Sentence()
}
