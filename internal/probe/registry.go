package probe

import (
	"github.com/arya-analytics/x/address"
	"github.com/cockroachdb/errors"
)

// ErrSelfProbe is returned when a candidate resolves to the registry's own
// address. Probing oneself is a misconfiguration signal, never fatal.
var ErrSelfProbe = errors.New("refusing to probe own address")

// Registry tracks one live probing worker per contact address. It is owned
// exclusively by the coordinator's event loop and is not safe for concurrent
// use.
type Registry struct {
	Config
	host    address.Address
	rep     Reporter
	workers map[address.Address]*Worker
}

// NewRegistry builds a registry for the node bound to host. Workers report
// to rep.
func NewRegistry(host address.Address, rep Reporter, cfg Config) *Registry {
	return &Registry{
		Config:  cfg.Merge(DefaultConfig()),
		host:    host,
		rep:     rep,
		workers: make(map[address.Address]*Worker),
	}
}

// Ensure returns the worker probing addr, spawning one if none exists.
// Requests for the registry's own address are refused with ErrSelfProbe.
func (r *Registry) Ensure(addr address.Address) (*Worker, error) {
	if w, ok := r.workers[addr]; ok {
		return w, nil
	}
	if addr == r.host {
		return nil, ErrSelfProbe
	}
	w := newWorker(r.host, addr, r.rep, r.Config)
	r.workers[addr] = w
	r.Shutdown.Go(w.run)
	return w, nil
}

// Len returns the number of live workers.
func (r *Registry) Len() int { return len(r.workers) }
