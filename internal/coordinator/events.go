package coordinator

import (
	"github.com/arya-analytics/x/address"
	"github.com/longshorej/seedling/internal/contact"
)

// Inbound events. Everything the coordinator reacts to arrives through its
// single event channel and is handled strictly one at a time.
type event interface{ event() }

// initiate starts discovery. completed receives the bootstrap-completion
// notification when the node joins through peer-reported seeds.
type initiate struct{ completed chan<- struct{} }

// resolveRequested asks for a fresh lookup of name, used for manual retries.
type resolveRequested struct{ name string }

// scheduledFire is delivered by the retry timer. token must match the
// currently armed timer or the fire is stale.
type scheduledFire struct{ token uint64 }

// resolved carries a successful lookup result.
type resolved struct {
	name       string
	candidates []contact.Candidate
}

// resolveFailed carries a lookup failure.
type resolveFailed struct{ err error }

// seedsObserved is reported by a probing worker whose contact point knows of
// seed nodes.
type seedsObserved struct {
	from  address.Address
	seeds []address.Address
}

// noSeeds is reported by a probing worker whose contact point has been silent
// past its deadline.
type noSeeds struct{ contactPoint address.Address }

func (initiate) event()         {}
func (resolveRequested) event() {}
func (scheduledFire) event()    {}
func (resolved) event()         {}
func (resolveFailed) event()    {}
func (seedsObserved) event()    {}
func (noSeeds) event()          {}
