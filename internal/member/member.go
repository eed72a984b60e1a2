package member

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/kv"
	"go.uber.org/zap"
)

// Engine is the membership side of bootstrap: the coordinator hands it a join
// decision and from then on it gossips the node group between members. A node
// that has joined answers probes with the member addresses it knows, which is
// how later joiners find their seed nodes.
type Engine struct {
	Config
	host   address.Address
	store  Store
	gossip *gossip

	mu     sync.Mutex
	joined bool
}

// New builds an engine for the node bound to host and registers its gossip
// handler on the transport. When storage is configured, the last cached node
// group is reloaded; the host's generation is bumped on join so the fresh
// record outranks stale ones.
func New(host address.Address, cfg Config) (*Engine, error) {
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{Config: cfg, host: host, store: newStore()}
	if cfg.Storage != nil {
		if err := kv.Load(cfg.Storage, cfg.StorageKey, e.store); err != nil && err != kv.ErrNotFound {
			return nil, err
		}
	}
	e.gossip = newGossip(e.store, cfg)
	return e, nil
}

// JoinSelf implements the coordinator's Cluster interface, forming a
// brand-new cluster of one. Joins are idempotent: a second join of an
// already-joined engine is a no-op, which also absorbs the brief
// double-self-join window under adversarial resolution flapping.
func (e *Engine) JoinSelf(addr address.Address) {
	e.join(addr, nil)
}

// JoinSeeds implements the coordinator's Cluster interface, joining the
// cluster known to the given seed nodes.
func (e *Engine) JoinSeeds(seeds []address.Address) {
	e.join(e.host, seeds)
}

// Seeds returns the member addresses this node hands to a probing peer:
// nothing before joining, afterwards every active member with the host
// first.
func (e *Engine) Seeds() []address.Address {
	if !e.store.Joined() {
		return nil
	}
	snap := e.store.CopyState()
	addrs := snap.Nodes.WhereActive().WhereNot(snap.Host).Addresses()
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return append([]address.Address{snap.Host}, addrs...)
}

// Nodes returns a copy of the current node group.
func (e *Engine) Nodes() Group { return e.store.CopyState().Nodes }

func (e *Engine) join(host address.Address, seeds []address.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.joined {
		return
	}
	n, ok := e.store.Get(host)
	if ok {
		n.Heartbeat = n.Heartbeat.Restart()
		n.State = StateHealthy
	} else {
		n = Node{Address: host, State: StateHealthy}
	}
	e.store.SetHost(n)
	for _, seed := range seeds {
		if seed == host {
			continue
		}
		if _, ok := e.store.Get(seed); !ok {
			e.store.Set(Node{Address: seed, State: StateHealthy})
		}
	}
	e.joined = true
	e.Logger.Info("joined cluster",
		zap.String("host", string(host)),
		zap.Int("seeds", len(seeds)),
	)
	if err := e.flush(); err != nil {
		e.Logger.Warn("failed to cache member state", zap.Error(err))
	}
	e.Shutdown.GoTick(e.GossipInterval, func() error {
		if err := e.gossip.GossipOnce(context.Background()); err != nil {
			e.Logger.Debug("gossip round failed", zap.Error(err))
		}
		if err := e.flush(); err != nil {
			e.Logger.Warn("failed to cache member state", zap.Error(err))
		}
		return nil
	})
}

func (e *Engine) flush() error {
	if e.Storage == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := e.store.Flush(&buf); err != nil {
		return err
	}
	return e.Storage.Set(e.StorageKey, buf.Bytes())
}
