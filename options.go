package seedling

import (
	"time"

	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/shutdown"
	"github.com/benbjohnson/clock"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"

	"github.com/longshorej/seedling/internal/coordinator"
	"github.com/longshorej/seedling/internal/member"
	"github.com/longshorej/seedling/internal/probe"
	"github.com/longshorej/seedling/internal/resolve"
	grpct "github.com/longshorej/seedling/transport/grpc"
)

type Option func(*options)

type options struct {
	// addr is the address this node is bound to.
	addr address.Address
	// serviceName is the logical name contact points register under.
	serviceName string
	// dirname is where the member-state cache lives. Empty with a nil fs
	// means no cache.
	dirname string
	// fs overrides the filesystem backing the member-state cache.
	fs vfs.FS
	// shutdown is shared by every subsystem so Close tears the node down as
	// one unit.
	shutdown shutdown.Shutdown
	// logger is the root logger; subsystems receive it through their
	// configs.
	logger *zap.Logger
	// clock feeds the coordinator's decision logic and the probe workers.
	clock clock.Clock
	// transport carries probe and gossip traffic. Defaults to grpc.
	transport Transport
	// resolver resolves the service name. Defaults to raw DNS against
	// resolv.conf.
	resolver resolve.Resolver
	// coordinator configures the bootstrap decision procedure.
	coordinator coordinator.Config
	// member configures the membership engine.
	member member.Config
}

func newOptions(addr address.Address, serviceName string, opts ...Option) *options {
	o := &options{addr: addr, serviceName: serviceName}
	for _, opt := range opts {
		opt(o)
	}
	mergeDefaultOptions(o)
	return o
}

func mergeDefaultOptions(o *options) {
	if o.shutdown == nil {
		o.shutdown = shutdown.New()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.transport == nil {
		o.transport = grpct.New()
	}

	// |||| COORDINATOR ||||

	o.coordinator.Host = o.addr
	o.coordinator.ServiceName = o.serviceName
	o.coordinator.Resolver = o.resolver
	o.coordinator.Clock = o.clock
	o.coordinator.Shutdown = o.shutdown
	o.coordinator.Logger = o.logger

	// |||| MEMBER ||||

	o.member.Shutdown = o.shutdown
	o.member.Logger = o.logger
}

func validateOptions(o *options) error {
	if o.addr == "" {
		return errors.New("a bound address is required")
	}
	if o.serviceName == "" {
		return errors.New("a service name is required")
	}
	return nil
}

// WithLogger sets the logger for all subsystems.
func WithLogger(logger *zap.Logger) Option { return func(o *options) { o.logger = logger } }

// WithTransport overrides the default grpc transport.
func WithTransport(t Transport) Option { return func(o *options) { o.transport = t } }

// WithResolver overrides the default DNS resolver.
func WithResolver(r resolve.Resolver) Option { return func(o *options) { o.resolver = r } }

// WithClock injects the time source. Decision logic never reads the system
// clock directly, so tests can drive it deterministically.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithStorageDir caches member state under dirname so a restarted node
// rejoins from its last known view.
func WithStorageDir(dirname string) Option { return func(o *options) { o.dirname = dirname } }

// MemBacked keeps the member-state cache in memory. Useful for tests and
// simulations.
func MemBacked() Option { return func(o *options) { o.fs = vfs.NewMem() } }

// WithServiceNameSuffix appends a namespace domain to the service name when
// resolving.
func WithServiceNameSuffix(suffix string) Option {
	return func(o *options) { o.coordinator.ServiceNameSuffix = suffix }
}

// WithRequiredContactPoints sets the minimum number of resolved candidates
// before probing starts.
func WithRequiredContactPoints(n int) Option {
	return func(o *options) { o.coordinator.RequiredContactPoints = n }
}

// WithResolveInterval sets the delay between resolution retries.
func WithResolveInterval(interval time.Duration) Option {
	return func(o *options) { o.coordinator.ResolveInterval = interval }
}

// WithResolveTimeout bounds a single lookup.
func WithResolveTimeout(timeout time.Duration) Option {
	return func(o *options) { o.coordinator.ResolveTimeout = timeout }
}

// WithStableMargin sets how long the candidate set must remain unchanged
// before a self-join decision is trusted.
func WithStableMargin(margin time.Duration) Option {
	return func(o *options) { o.coordinator.StableMargin = margin }
}

// WithFallbackPort sets the contact port assumed for candidates that did not
// advertise one.
func WithFallbackPort(port int) Option {
	return func(o *options) { o.coordinator.FallbackPort = port }
}

// WithProbeConfig overrides probing-worker settings.
func WithProbeConfig(cfg probe.Config) Option {
	return func(o *options) { o.coordinator.Probe = cfg }
}

// WithGossipInterval sets the delay between membership gossip rounds.
func WithGossipInterval(interval time.Duration) Option {
	return func(o *options) { o.member.GossipInterval = interval }
}
