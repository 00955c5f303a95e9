package endpoint

import (
	"errors"
	"strings"
	"sync"
)

// ErrEmptyPool is returned when a pool is constructed without any members.
var ErrEmptyPool = errors.New("endpoint pool requires at least one member")

// Endpoint is one replica of a remote service. Immutable once loaded.
type Endpoint struct {
	BaseURL string
	APIKey  string
}

// String returns the base URL. The API key is never rendered.
func (e Endpoint) String() string {
	return e.BaseURL
}

// URL joins the base URL and path with exactly one slash between them.
func (e Endpoint) URL(path string) string {
	return strings.TrimSuffix(e.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Pool selects members round-robin.
// Selection is serialized: every Next call observes and advances the cursor in a
// single critical section, so no member is skipped or handed out twice for the
// same cursor value. Work done with the returned member happens outside the lock.
type Pool[T any] struct {
	mu      sync.Mutex
	members []T
	cursor  int
}

// NewPool creates a pool over the given members in order.
func NewPool[T any](members ...T) (*Pool[T], error) {
	if len(members) == 0 {
		return nil, ErrEmptyPool
	}
	return &Pool[T]{members: append([]T(nil), members...)}, nil
}

// MustPool is like NewPool but panics on an empty member list.
func MustPool[T any](members ...T) *Pool[T] {
	p, err := NewPool(members...)
	if err != nil {
		panic(err)
	}
	return p
}

// Next returns the member under the cursor and advances it by one.
func (p *Pool[T]) Next() T {
	p.mu.Lock()
	defer p.mu.Unlock()

	member := p.members[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.members)
	return member
}

// Len returns the number of members.
func (p *Pool[T]) Len() int {
	return len(p.members)
}

// Members returns a copy of the members in pool order.
func (p *Pool[T]) Members() []T {
	return append([]T(nil), p.members...)
}
