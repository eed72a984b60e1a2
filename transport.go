package seedling

import (
	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/shutdown"

	"github.com/longshorej/seedling/internal/member"
	"github.com/longshorej/seedling/internal/probe"
)

// Transport bundles the transports seedling exchanges messages over: probe
// requests between contact points and gossip between joined members.
type Transport interface {
	// Configure binds the transport's server side to addr. Server
	// goroutines are managed by sd.
	Configure(addr address.Address, sd shutdown.Shutdown) error
	// Probe is the contact-point probing transport.
	Probe() probe.Transport
	// Gossip is the membership gossip transport.
	Gossip() member.Transport
}
