package coordinator

import (
	"context"

	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/shutdown"
	"github.com/longshorej/seedling/internal/contact"
	"github.com/longshorej/seedling/internal/probe"
	"github.com/longshorej/seedling/internal/resolve"
	"go.uber.org/zap"
)

type state byte

const (
	idle state = iota
	discovering
	done
)

// Coordinator drives the resolve -> probe -> decide loop that forms a
// cluster out of nodes that only share a service name. It resolves the name
// into candidate contact points, keeps one probing worker per candidate, and
// once the candidate set has been stable past the configured margin, lets the
// node with the lowest address self-join while everyone else waits for seed
// nodes reported by a peer.
//
// All state is owned by a single event loop; resolution results, worker
// reports, and timer fires are linearized through one channel, so handlers
// never race and no locks are needed.
type Coordinator struct {
	Config
	hostCandidate contact.Candidate
	state         state
	name          string
	completed     chan<- struct{}
	observation   contact.Observation
	probes        *probe.Registry
	sched         *resolve.Scheduler
	events        chan event
	closed        chan struct{}
}

// New validates cfg against defaults and starts the coordinator's event
// loop. The coordinator stays in its idle state until Bootstrap is called.
func New(cfg Config) (*Coordinator, error) {
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hostCandidate, err := contact.ParseAddress(cfg.Host)
	if err != nil {
		return nil, err
	}
	c := &Coordinator{
		Config:        cfg,
		hostCandidate: hostCandidate,
		observation:   contact.None(),
		events:        make(chan event, 64),
		closed:        make(chan struct{}),
	}
	c.probes = probe.NewRegistry(cfg.Host, c, cfg.Probe)
	c.sched = resolve.NewScheduler(cfg.Clock, func(token uint64) {
		c.send(scheduledFire{token: token})
	})
	cfg.Shutdown.Go(c.run)
	return c, nil
}

// Bootstrap initiates discovery. The returned channel receives exactly one
// value when the node completes bootstrap by joining peer-reported seed
// nodes. Self-join termination is observable through Done instead.
func (c *Coordinator) Bootstrap() <-chan struct{} {
	completed := make(chan struct{}, 1)
	c.send(initiate{completed: completed})
	return completed
}

// RequestResolve asks for an immediate, out-of-band lookup of name.
func (c *Coordinator) RequestResolve(name string) {
	c.send(resolveRequested{name: name})
}

// Done is closed once the coordinator reaches a terminal decision or is shut
// down.
func (c *Coordinator) Done() <-chan struct{} { return c.closed }

// SeedsObserved implements probe.Reporter.
func (c *Coordinator) SeedsObserved(from address.Address, seeds []address.Address) {
	c.send(seedsObserved{from: from, seeds: seeds})
}

// NoSeedsWithinDeadline implements probe.Reporter.
func (c *Coordinator) NoSeedsWithinDeadline(contactPoint address.Address) {
	c.send(noSeeds{contactPoint: contactPoint})
}

func (c *Coordinator) send(ev event) {
	select {
	case c.events <- ev:
	case <-c.closed:
	}
}

func (c *Coordinator) run(sig chan shutdown.Signal) error {
	defer c.sched.Disarm()
	for {
		select {
		case <-sig:
			if c.state != done {
				close(c.closed)
			}
			return nil
		case ev := <-c.events:
			c.handle(ev)
			if c.state == done {
				return nil
			}
		}
	}
}

func (c *Coordinator) handle(ev event) {
	switch c.state {
	case idle:
		if in, ok := ev.(initiate); ok {
			c.initiate(in)
		} else {
			c.Logger.Debug("dropping event received before bootstrap was initiated")
		}
	case discovering:
		switch e := ev.(type) {
		case resolveRequested:
			c.lookup(e.name)
		case scheduledFire:
			c.scheduledFire(e)
		case resolved:
			c.resolved(e)
		case resolveFailed:
			c.Logger.Warn("resolution failed", zap.String("service", c.name), zap.Error(e.err))
			c.sched.Arm(c.ResolveInterval)
		case seedsObserved:
			c.joinSeeds(e)
		case noSeeds:
			c.decideSelfJoin(e)
		case initiate:
			c.Logger.Debug("bootstrap already initiated")
		}
	}
}

func (c *Coordinator) initiate(in initiate) {
	c.name = c.EffectiveServiceName()
	c.completed = in.completed
	c.state = discovering
	c.Logger.Info("initiating bootstrap",
		zap.String("service", c.name),
		zap.String("host", string(c.Host)),
	)
	c.lookup(c.name)
}

// lookup dispatches an asynchronous resolution whose outcome comes back as a
// resolved or resolveFailed event. The handler itself never blocks.
func (c *Coordinator) lookup(name string) {
	c.Shutdown.Go(func(sig chan shutdown.Signal) error {
		ctx, cancel := context.WithTimeout(context.Background(), c.ResolveTimeout)
		defer cancel()
		candidates, err := c.Resolver.Lookup(ctx, name)
		if err != nil {
			c.send(resolveFailed{err: err})
			return nil
		}
		c.send(resolved{name: name, candidates: candidates})
		return nil
	})
}

func (c *Coordinator) scheduledFire(e scheduledFire) {
	if !c.sched.Valid(e.token) {
		c.Logger.Debug("ignoring stale resolve timer")
		return
	}
	c.sched.Clear()
	c.lookup(c.name)
}

func (c *Coordinator) resolved(e resolved) {
	c.observation = c.observation.Merge(contact.New(c.Clock.Now(), e.candidates))
	if len(e.candidates) < c.RequiredContactPoints {
		c.Logger.Debug("not enough contact points; scheduling another resolution",
			zap.Int("resolved", len(e.candidates)),
			zap.Int("required", c.RequiredContactPoints),
		)
		c.sched.Arm(c.ResolveInterval)
		return
	}
	for _, cand := range e.candidates {
		addr := cand.Address(c.FallbackPort)
		if _, err := c.probes.Ensure(addr); err != nil {
			c.Logger.Warn("contact point resolves to this node; check service registration",
				zap.String("contactPoint", string(addr)),
			)
		}
	}
	if c.probes.Len() == 0 {
		// Every candidate resolved to this node. With no peer to probe,
		// keep resolving and evaluate the join decision directly.
		c.sched.Arm(c.ResolveInterval)
		c.decideSelfJoin(noSeeds{contactPoint: c.Host})
	}
}

func (c *Coordinator) joinSeeds(e seedsObserved) {
	c.Logger.Info("joining cluster with peer-reported seed nodes",
		zap.String("from", string(e.from)),
		zap.Int("seeds", len(e.seeds)),
	)
	if c.completed != nil {
		c.completed <- struct{}{}
		c.completed = nil
	}
	c.Cluster.JoinSeeds(e.seeds)
	c.terminate()
}

// decideSelfJoin runs the self-join election: the candidate set must have
// been stable past the margin, and this node's host must be the lowest of
// the observed candidates. Anything else keeps the node probing and waiting.
func (c *Coordinator) decideSelfJoin(e noSeeds) {
	now := c.Clock.Now()
	if !c.observation.PastStableMargin(now, c.StableMargin) {
		c.Logger.Debug("contact points still settling; deferring self-join decision",
			zap.String("contactPoint", string(e.contactPoint)),
			zap.Time("stableAt", c.observation.StableAt(c.StableMargin)),
		)
		return
	}
	lowest, ok := c.observation.Lowest()
	if !ok {
		return
	}
	if lowest.Host != c.hostCandidate.Host {
		c.Logger.Debug("not the lowest candidate; awaiting seed nodes",
			zap.String("lowest", lowest.Host),
			zap.String("host", c.hostCandidate.Host),
		)
		return
	}
	c.Logger.Info("lowest candidate with a stable view; forming a new cluster",
		zap.String("host", string(c.Host)),
	)
	c.Cluster.JoinSelf(c.Host)
	c.terminate()
}

func (c *Coordinator) terminate() {
	c.sched.Disarm()
	c.state = done
	close(c.closed)
}
