package coordinator_test

import (
	"context"
	"sync"
	"time"

	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/shutdown"
	tmock "github.com/arya-analytics/x/transport/mock"
	"github.com/benbjohnson/clock"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/longshorej/seedling/internal/contact"
	"github.com/longshorej/seedling/internal/coordinator"
	"github.com/longshorej/seedling/internal/probe"
)

// stubResolver serves a fixed candidate set, or a fixed error, and counts
// lookups.
type stubResolver struct {
	mu         sync.Mutex
	candidates []contact.Candidate
	err        error
	lookups    int
}

func (r *stubResolver) set(candidates ...contact.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = candidates
}

func (r *stubResolver) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *stubResolver) lookupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

func (r *stubResolver) Lookup(_ context.Context, _ string) ([]contact.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	return r.candidates, r.err
}

// clusterRecorder records join decisions for assertions.
type clusterRecorder struct {
	mu        sync.Mutex
	selfJoins []address.Address
	seedJoins [][]address.Address
}

func (c *clusterRecorder) JoinSelf(addr address.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selfJoins = append(c.selfJoins, addr)
}

func (c *clusterRecorder) JoinSeeds(seeds []address.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seedJoins = append(c.seedJoins, seeds)
}

func (c *clusterRecorder) selfJoinCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.selfJoins)
}

func (c *clusterRecorder) selfJoined() address.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfJoins[0]
}

func (c *clusterRecorder) seedJoinSets() [][]address.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seedJoins
}

var _ = Describe("Coordinator", func() {
	var (
		probeNet *tmock.Network[probe.Request, probe.Response]
		res      *stubResolver
		cluster  *clusterRecorder
		sd       shutdown.Shutdown
		cfg      coordinator.Config
	)
	BeforeEach(func() {
		probeNet = tmock.NewNetwork[probe.Request, probe.Response]()
		res = &stubResolver{}
		cluster = &clusterRecorder{}
		sd = shutdown.New()
		cfg = coordinator.Config{
			Host:        "10.0.0.2:9000",
			ServiceName: "engine",
			Resolver:    res,
			Cluster:     cluster,
			Shutdown:    sd,
			Probe:       probe.Config{Transport: probeNet.Route("10.0.0.2:9000")},
		}
	})
	AfterEach(func() {
		Expect(sd.Shutdown()).To(Succeed())
	})

	routeQuiet := func(addr address.Address) {
		probeNet.Route(addr).Handle(
			func(_ context.Context, _ probe.Request) (probe.Response, error) {
				return probe.Response{}, nil
			})
	}

	Describe("Seed join", func() {
		It("Should join peer-reported seed nodes and complete exactly once", func() {
			res.set(
				contact.Candidate{Host: "10.0.0.2", Port: 9000},
				contact.Candidate{Host: "10.0.0.5", Port: 9000},
			)
			routeQuiet("10.0.0.5:9000")
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())
			completed := coord.Bootstrap()

			seeds := []address.Address{"10.0.0.5:9000", "10.0.0.7:9000"}
			coord.SeedsObserved("10.0.0.5:9000", seeds)

			Eventually(coord.Done()).Should(BeClosed())
			Expect(completed).To(Receive())
			Expect(cluster.seedJoinSets()).To(Equal([][]address.Address{seeds}))
			Expect(cluster.selfJoinCount()).To(Equal(0))

			coord.SeedsObserved("10.0.0.5:9000", seeds)
			Consistently(completed).ShouldNot(Receive())
			Expect(cluster.seedJoinSets()).To(HaveLen(1))
		})
	})

	Describe("Self join", func() {
		var mockClock *clock.Mock
		BeforeEach(func() {
			mockClock = clock.NewMock()
			cfg.Clock = mockClock
			res.set(
				contact.Candidate{Host: "10.0.0.2", Port: 9000},
				contact.Candidate{Host: "10.0.0.5", Port: 9000},
			)
			routeQuiet("10.0.0.5:9000")
		})
		It("Should self-join once the candidate set has been stable past the margin", func() {
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())
			completed := coord.Bootstrap()

			Eventually(func() int {
				mockClock.Add(time.Second)
				coord.NoSeedsWithinDeadline("10.0.0.5:9000")
				return cluster.selfJoinCount()
			}).Should(BeNumerically(">", 0))

			Eventually(coord.Done()).Should(BeClosed())
			Expect(cluster.selfJoined()).To(BeEquivalentTo("10.0.0.2:9000"))
			Consistently(completed).ShouldNot(Receive())
		})
		It("Should defer the decision while the candidate set is still settling", func() {
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())
			coord.Bootstrap()

			// Time never advances, so the margin can never elapse.
			Consistently(func() int {
				coord.NoSeedsWithinDeadline("10.0.0.5:9000")
				return cluster.selfJoinCount()
			}).Should(Equal(0))
		})
		It("Should form a cluster of one when it is its own only contact point", func() {
			cfg.RequiredContactPoints = 1
			res.set(contact.Candidate{Host: "10.0.0.2", Port: 9000})
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())
			coord.Bootstrap()

			Eventually(func() int {
				mockClock.Add(time.Second)
				return cluster.selfJoinCount()
			}).Should(Equal(1))
		})
		It("Should never self-join when a lower candidate exists", func() {
			cfg.Host = "10.0.0.5:9000"
			cfg.Probe.Transport = probeNet.Route("10.0.0.5:9000")
			routeQuiet("10.0.0.2:9000")
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())
			coord.Bootstrap()

			Consistently(func() int {
				mockClock.Add(time.Second)
				coord.NoSeedsWithinDeadline("10.0.0.2:9000")
				return cluster.selfJoinCount()
			}).Should(Equal(0))
			Expect(coord.Done()).ToNot(BeClosed())
		})
	})

	Describe("Resolution retry", func() {
		var mockClock *clock.Mock
		BeforeEach(func() {
			mockClock = clock.NewMock()
			cfg.Clock = mockClock
		})
		It("Should keep resolving while below the required contact points", func() {
			res.set(contact.Candidate{Host: "10.0.0.2", Port: 9000})
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())
			coord.Bootstrap()

			Eventually(func() int {
				mockClock.Add(time.Second)
				return res.lookupCount()
			}).Should(BeNumerically(">", 3))
			Expect(cluster.selfJoinCount()).To(Equal(0))
		})
		It("Should retry after a failed resolution", func() {
			res.fail(errors.New("name not found"))
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())
			coord.Bootstrap()

			Eventually(func() int {
				mockClock.Add(time.Second)
				return res.lookupCount()
			}).Should(BeNumerically(">", 3))
		})
		It("Should resolve again immediately when asked", func() {
			res.set(contact.Candidate{Host: "10.0.0.2", Port: 9000})
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())
			coord.Bootstrap()

			before := res.lookupCount()
			coord.RequestResolve("engine")
			Eventually(res.lookupCount).Should(BeNumerically(">", before))
		})
	})

	Describe("Idle", func() {
		It("Should ignore reports received before bootstrap is initiated", func() {
			res.set(
				contact.Candidate{Host: "10.0.0.2", Port: 9000},
				contact.Candidate{Host: "10.0.0.5", Port: 9000},
			)
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())

			coord.NoSeedsWithinDeadline("10.0.0.5:9000")
			coord.SeedsObserved("10.0.0.5:9000", []address.Address{"10.0.0.5:9000"})
			Consistently(func() int {
				return cluster.selfJoinCount() + len(cluster.seedJoinSets())
			}).Should(Equal(0))
			Expect(coord.Done()).ToNot(BeClosed())
		})
	})

	Describe("End to end", func() {
		// Real clock with short intervals; the probing workers drive the
		// decision without any direct reporter calls.
		shorten := func() {
			cfg.StableMargin = 50 * time.Millisecond
			cfg.ResolveInterval = 10 * time.Millisecond
			cfg.Probe.Interval = 5 * time.Millisecond
			cfg.Probe.NoSeedsDeadline = 20 * time.Millisecond
		}
		It("Should form a new cluster on the lowest node when every contact point is quiet", func() {
			shorten()
			res.set(
				contact.Candidate{Host: "10.0.0.2", Port: 9000},
				contact.Candidate{Host: "10.0.0.5", Port: 9000},
			)
			routeQuiet("10.0.0.5:9000")
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())
			coord.Bootstrap()

			Eventually(cluster.selfJoinCount, "2s").Should(Equal(1))
			Expect(cluster.selfJoined()).To(BeEquivalentTo("10.0.0.2:9000"))
		})
		It("Should join through a contact point that reports seed nodes", func() {
			shorten()
			cfg.Host = "10.0.0.5:9000"
			cfg.Probe.Transport = probeNet.Route("10.0.0.5:9000")
			res.set(
				contact.Candidate{Host: "10.0.0.2", Port: 9000},
				contact.Candidate{Host: "10.0.0.5", Port: 9000},
			)
			seeds := []address.Address{"10.0.0.2:9000"}
			probeNet.Route("10.0.0.2:9000").Handle(
				func(_ context.Context, _ probe.Request) (probe.Response, error) {
					return probe.Response{Seeds: seeds}, nil
				})
			coord, err := coordinator.New(cfg)
			Expect(err).ToNot(HaveOccurred())
			completed := coord.Bootstrap()

			Eventually(completed, "2s").Should(Receive())
			Expect(cluster.seedJoinSets()).To(Equal([][]address.Address{seeds}))
			Expect(cluster.selfJoinCount()).To(Equal(0))
		})
	})
})
