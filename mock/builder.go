package mock

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/arya-analytics/x/address"

	"github.com/longshorej/seedling"
	"github.com/longshorej/seedling/internal/contact"
	"github.com/longshorej/seedling/internal/probe"
)

// Builder stands up seedling nodes on a shared in-memory network and
// resolver. Every node it creates is registered under ServiceName, so each
// new node widens the candidate set the earlier nodes observe.
type Builder struct {
	// ServiceName is the name every node resolves and registers under.
	ServiceName string
	// Port is the contact port each node binds. Hosts are synthesized, so
	// nodes never collide even on the same port.
	Port int
	// DefaultOptions are applied to every node before per-node options.
	DefaultOptions []seedling.Option
	// Network carries probe and gossip traffic between the nodes.
	Network *Network
	// Resolver serves ServiceName lookups for all nodes.
	Resolver *Resolver

	candidates []contact.Candidate
	nodes      []seedling.Node
}

func NewBuilder(serviceName string, defaultOptions ...seedling.Option) *Builder {
	return &Builder{
		ServiceName:    serviceName,
		Port:           3040,
		DefaultOptions: defaultOptions,
		Network:        NewNetwork(),
		Resolver:       NewResolver(),
	}
}

// New starts the next node and registers it as a resolvable contact point.
// Hosts are assigned sequentially, so the first node always holds the lowest
// address.
func (b *Builder) New(opts ...seedling.Option) (seedling.Node, error) {
	host := fmt.Sprintf("10.100.0.%d", len(b.candidates)+1)
	addr := address.Address(net.JoinHostPort(host, strconv.Itoa(b.Port)))
	b.candidates = append(b.candidates, contact.Candidate{Host: host, Port: b.Port})
	b.Resolver.Set(b.ServiceName, b.candidates...)

	opts = append(append([]seedling.Option{
		seedling.WithTransport(b.Network.NewTransport()),
		seedling.WithResolver(b.Resolver),
		seedling.MemBacked(),
		seedling.WithResolveInterval(10 * time.Millisecond),
		seedling.WithStableMargin(50 * time.Millisecond),
		seedling.WithGossipInterval(10 * time.Millisecond),
		seedling.WithProbeConfig(probe.Config{
			Interval:        10 * time.Millisecond,
			RequestTimeout:  100 * time.Millisecond,
			NoSeedsDeadline: 30 * time.Millisecond,
		}),
	}, b.DefaultOptions...), opts...)

	n, err := seedling.Start(addr, b.ServiceName, opts...)
	if err != nil {
		return nil, err
	}
	b.nodes = append(b.nodes, n)
	return n, nil
}

// Nodes lists every node started so far, in creation order.
func (b *Builder) Nodes() []seedling.Node { return b.nodes }

// Close shuts every node down, last started first.
func (b *Builder) Close() error {
	for i := len(b.nodes) - 1; i >= 0; i-- {
		if err := b.nodes[i].Close(); err != nil {
			return err
		}
	}
	return nil
}
