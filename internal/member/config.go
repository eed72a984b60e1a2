package member

import (
	"time"

	"github.com/arya-analytics/x/kv"
	"github.com/arya-analytics/x/shutdown"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type Config struct {
	// Transport carries gossip exchanges between members.
	Transport Transport
	// GossipInterval is the delay between gossip rounds once joined.
	GossipInterval time.Duration
	// RequestTimeout bounds one leg of a gossip exchange.
	RequestTimeout time.Duration
	// Storage, when set, caches the node group so a restarted member can
	// rejoin from its last known view. The bootstrap decision itself never
	// reads it.
	Storage kv.KV
	// StorageKey is the key the node group is cached under.
	StorageKey []byte
	// Shutdown manages the gossip goroutine.
	Shutdown shutdown.Shutdown
	// Logger is this package's logger.
	Logger *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.GossipInterval == 0 {
		cfg.GossipInterval = def.GossipInterval
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.StorageKey == nil {
		cfg.StorageKey = def.StorageKey
	}
	if cfg.Shutdown == nil {
		cfg.Shutdown = def.Shutdown
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Transport == nil {
		return errors.New("gossip transport required")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		GossipInterval: 1 * time.Second,
		RequestTimeout: 5 * time.Second,
		StorageKey:     []byte("seedling.members"),
		Shutdown:       shutdown.New(),
		Logger:         zap.NewNop(),
	}
}
