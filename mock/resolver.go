package mock

import (
	"context"
	"sync"

	"github.com/longshorej/seedling/internal/contact"
)

// Resolver serves lookups from a mutable in-memory table. Entries can be
// rewritten mid-test to simulate contact points appearing and disappearing.
type Resolver struct {
	mu      sync.Mutex
	entries map[string][]contact.Candidate
	err     error
	lookups int
}

func NewResolver() *Resolver {
	return &Resolver{entries: make(map[string][]contact.Candidate)}
}

// Set replaces the candidates returned for name.
func (r *Resolver) Set(name string, candidates ...contact.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = candidates
}

// Fail makes every lookup return err until cleared with Fail(nil).
func (r *Resolver) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Lookups counts calls to Lookup.
func (r *Resolver) Lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

// Lookup implements resolve.Resolver.
func (r *Resolver) Lookup(_ context.Context, name string) ([]contact.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.err != nil {
		return nil, r.err
	}
	candidates := make([]contact.Candidate, len(r.entries[name]))
	copy(candidates, r.entries[name])
	return candidates, nil
}
