package resolve

import (
	"context"

	"github.com/longshorej/seedling/internal/contact"
)

// Resolver turns a logical service name into the set of peer candidates
// currently registered under it. Implementations are expected to honor ctx
// cancellation; the coordinator applies its lookup timeout through it.
type Resolver interface {
	Lookup(ctx context.Context, name string) ([]contact.Candidate, error)
}
