package probe

import (
	"time"

	"github.com/arya-analytics/x/shutdown"
	"github.com/benbjohnson/clock"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type Config struct {
	// Transport sends probe requests to contact points.
	Transport Transport
	// Interval between successive probes of one contact point.
	Interval time.Duration
	// RequestTimeout bounds a single probe request.
	RequestTimeout time.Duration
	// NoSeedsDeadline is how long a worker probes without seeing seed nodes
	// before it starts reporting NoSeedsWithinDeadline.
	NoSeedsDeadline time.Duration
	// Clock supplies time to the workers. Injected so deadline behavior is
	// testable.
	Clock clock.Clock
	// Shutdown manages worker goroutines.
	Shutdown shutdown.Shutdown
	// Logger is this package's logger.
	Logger *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.Transport == nil {
		cfg.Transport = def.Transport
	}
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.NoSeedsDeadline == 0 {
		cfg.NoSeedsDeadline = def.NoSeedsDeadline
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
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Transport == nil {
		return errors.New("probe transport required")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		Interval:        1 * time.Second,
		RequestTimeout:  3 * time.Second,
		NoSeedsDeadline: 20 * time.Second,
		Clock:           clock.New(),
		Shutdown:        shutdown.New(),
		Logger:          zap.NewNop(),
	}
}
