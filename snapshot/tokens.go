package snapshot

import (
	"strconv"
	"sync"
)

// DefaultTokenPrefix is prefix of generated class tokens.
const DefaultTokenPrefix = "snap-"

// Allocator hands out class tokens unique within one run: prefix followed
// by a counter starting at 1.
type Allocator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func NewAllocator(prefix string) *Allocator {
	if prefix == "" {
		prefix = DefaultTokenPrefix
	}
	return &Allocator{prefix: prefix}
}

// Next returns fresh token.
func (a *Allocator) Next() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.next++
	return a.prefix + strconv.Itoa(a.next)
}
