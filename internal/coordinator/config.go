package coordinator

import (
	"time"

	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/shutdown"
	"github.com/benbjohnson/clock"
	"github.com/cockroachdb/errors"
	"github.com/longshorej/seedling/internal/probe"
	"github.com/longshorej/seedling/internal/resolve"
	"go.uber.org/zap"
)

// Cluster is the membership engine the coordinator hands off to once a join
// decision is made. Both calls are fire-and-forget; the coordinator never
// inspects their outcome.
type Cluster interface {
	// JoinSelf forms a brand-new cluster around the node's own address.
	JoinSelf(addr address.Address)
	// JoinSeeds joins an existing cluster through the given seed nodes.
	JoinSeeds(seeds []address.Address)
}

type Config struct {
	// Host is the address this node is bound to.
	Host address.Address
	// ServiceName is the logical name to resolve contact points under.
	ServiceName string
	// ServiceNameSuffix, when set, is appended to ServiceName with a dot
	// separator to form the effective name (typically a namespace domain).
	ServiceNameSuffix string
	// RequiredContactPoints is the minimum number of resolved candidates
	// before probing starts.
	RequiredContactPoints int
	// ResolveInterval is the delay before a resolution retry.
	ResolveInterval time.Duration
	// ResolveTimeout bounds a single lookup.
	ResolveTimeout time.Duration
	// StableMargin is how long the candidate set must remain unchanged
	// before a self-join decision is trusted.
	StableMargin time.Duration
	// FallbackPort is used for candidates that did not advertise a port.
	FallbackPort int
	// Resolver resolves the service name into candidates.
	Resolver resolve.Resolver
	// Probe configures the per-candidate probing workers.
	Probe probe.Config
	// Cluster receives the join decision.
	Cluster Cluster
	// Clock supplies time to the decision logic and the retry timer.
	Clock clock.Clock
	// Shutdown manages the event loop and lookup goroutines.
	Shutdown shutdown.Shutdown
	// Logger is this package's logger.
	Logger *zap.Logger
}

// EffectiveServiceName derives the name handed to the resolver.
func (cfg Config) EffectiveServiceName() string {
	if cfg.ServiceNameSuffix != "" {
		return cfg.ServiceName + "." + cfg.ServiceNameSuffix
	}
	return cfg.ServiceName
}

func (cfg Config) Merge(def Config) Config {
	if cfg.RequiredContactPoints == 0 {
		cfg.RequiredContactPoints = def.RequiredContactPoints
	}
	if cfg.ResolveInterval == 0 {
		cfg.ResolveInterval = def.ResolveInterval
	}
	if cfg.ResolveTimeout == 0 {
		cfg.ResolveTimeout = def.ResolveTimeout
	}
	if cfg.StableMargin == 0 {
		cfg.StableMargin = def.StableMargin
	}
	if cfg.FallbackPort == 0 {
		cfg.FallbackPort = def.FallbackPort
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	if cfg.Shutdown == nil {
		cfg.Shutdown = def.Shutdown
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	cfg.Probe = cfg.Probe.Merge(probe.Config{
		Clock:    cfg.Clock,
		Shutdown: cfg.Shutdown,
		Logger:   cfg.Logger,
	})
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Host == "" {
		return errors.New("host address required")
	}
	if cfg.ServiceName == "" {
		return errors.New("service name required")
	}
	if cfg.Resolver == nil {
		return errors.New("resolver required")
	}
	if cfg.Cluster == nil {
		return errors.New("cluster required")
	}
	return cfg.Probe.Validate()
}

func DefaultConfig() Config {
	return Config{
		RequiredContactPoints: 2,
		ResolveInterval:       1 * time.Second,
		ResolveTimeout:        3 * time.Second,
		StableMargin:          5 * time.Second,
		FallbackPort:          3040,
		Clock:                 clock.New(),
		Shutdown:              shutdown.New(),
		Logger:                zap.NewNop(),
	}
}
