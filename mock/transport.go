package mock

import (
	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/shutdown"
	tmock "github.com/arya-analytics/x/transport/mock"

	"github.com/longshorej/seedling"
	"github.com/longshorej/seedling/internal/member"
	"github.com/longshorej/seedling/internal/probe"
)

// Network is an in-memory fabric for seedling transports. Every transport
// created from the same Network can reach every other.
type Network struct {
	Probe  *tmock.Network[probe.Request, probe.Response]
	Gossip *tmock.Network[member.Message, member.Message]
}

func NewNetwork() *Network {
	return &Network{
		Probe:  tmock.NewNetwork[probe.Request, probe.Response](),
		Gossip: tmock.NewNetwork[member.Message, member.Message](),
	}
}

func (n *Network) NewTransport() seedling.Transport { return &transport{net: n} }

// transport is an in-memory, synchronous implementation of
// seedling.Transport.
type transport struct {
	net    *Network
	probe  *tmock.Unary[probe.Request, probe.Response]
	gossip *tmock.Unary[member.Message, member.Message]
}

// Configure implements seedling.Transport.
func (t *transport) Configure(addr address.Address, _ shutdown.Shutdown) error {
	t.probe = t.net.Probe.Route(addr)
	t.gossip = t.net.Gossip.Route(addr)
	return nil
}

// Probe implements seedling.Transport.
func (t *transport) Probe() probe.Transport { return t.probe }

// Gossip implements seedling.Transport.
func (t *transport) Gossip() member.Transport { return t.gossip }
