// Package seedling forms clusters out of nodes that share nothing but a
// resolvable service name. Each node resolves the name into candidate
// contact points, probes every candidate for known seed nodes, and — once
// the candidate set has been stable long enough — either joins the seeds a
// peer reported or, if it holds the lowest address of the stable set, forms
// a brand-new cluster itself.
package seedling

import (
	"context"

	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/kv/pebblekv"
	"github.com/arya-analytics/x/shutdown"
	"github.com/cockroachdb/pebble"

	"github.com/longshorej/seedling/internal/coordinator"
	"github.com/longshorej/seedling/internal/member"
	"github.com/longshorej/seedling/internal/probe"
	"github.com/longshorej/seedling/resolve/dns"
)

// Node is a handle on a bootstrapping (or bootstrapped) cluster node.
type Node interface {
	// Completed receives exactly one value when the node finishes bootstrap
	// by joining seed nodes reported by a peer.
	Completed() <-chan struct{}
	// Done is closed once the bootstrap decision is terminal, whether the
	// node self-joined or joined peer-reported seeds.
	Done() <-chan struct{}
	// Members is the node group as this node currently knows it.
	Members() member.Group
	// Close shuts the node down, cancelling any pending retry timer and
	// stopping probing workers, gossip, and servers.
	Close() error
}

// Start binds addr, begins resolving serviceName, and returns immediately;
// discovery and the join decision proceed in the background.
func Start(addr address.Address, serviceName string, opts ...Option) (Node, error) {
	o := newOptions(addr, serviceName, opts...)

	if err := validateOptions(o); err != nil {
		return nil, err
	}

	if err := openStorage(o); err != nil {
		return nil, err
	}

	if o.resolver == nil {
		r, err := dns.New(dns.Config{Logger: o.logger})
		if err != nil {
			return nil, err
		}
		o.resolver = r
	}
	o.coordinator.Resolver = o.resolver

	if err := o.transport.Configure(o.addr, o.shutdown); err != nil {
		return nil, err
	}
	o.member.Transport = o.transport.Gossip()
	o.coordinator.Probe.Transport = o.transport.Probe()

	engine, err := member.New(o.addr, o.member)
	if err != nil {
		return nil, err
	}

	// A node under bootstrap answers probes with whatever seed view its
	// membership engine holds: empty until joined, the member addresses
	// afterwards.
	o.transport.Probe().Handle(func(_ context.Context, _ probe.Request) (probe.Response, error) {
		return probe.Response{Seeds: engine.Seeds()}, nil
	})

	o.coordinator.Cluster = engine
	coord, err := coordinator.New(o.coordinator)
	if err != nil {
		return nil, err
	}

	return &node{
		options:   o,
		coord:     coord,
		engine:    engine,
		completed: coord.Bootstrap(),
	}, nil
}

func openStorage(o *options) error {
	if o.dirname == "" && o.fs == nil {
		return nil
	}
	db, err := pebble.Open(o.dirname, &pebble.Options{FS: o.fs})
	if err != nil {
		return err
	}
	o.member.Storage = pebblekv.Wrap(db)
	o.shutdown.Go(func(sig chan shutdown.Signal) error {
		<-sig
		return db.Close()
	})
	return nil
}

type node struct {
	options   *options
	coord     *coordinator.Coordinator
	engine    *member.Engine
	completed <-chan struct{}
}

func (n *node) Completed() <-chan struct{} { return n.completed }

func (n *node) Done() <-chan struct{} { return n.coord.Done() }

func (n *node) Members() member.Group { return n.engine.Nodes() }

func (n *node) Close() error { return n.options.shutdown.Shutdown() }
