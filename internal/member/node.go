package member

import (
	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/filter"
)

type State byte

const (
	StateHealthy State = iota
	StateSuspect
	StateLeft
)

// Node is a cluster member as this node last heard of it.
type Node struct {
	Address   address.Address
	State     State
	Heartbeat Heartbeat
}

func (n Node) Digest() Heartbeat { return n.Heartbeat }

// Heartbeat orders two records of the same node. Generation survives
// restarts; Version counts gossip rounds within a generation.
type Heartbeat struct {
	Generation uint64
	Version    uint64
}

func (h Heartbeat) Increment() Heartbeat {
	h.Version++
	return h
}

// Restart starts a new generation, outranking every record from previous
// lives of the node.
func (h Heartbeat) Restart() Heartbeat {
	h.Generation++
	h.Version = 0
	return h
}

func (h Heartbeat) YoungerThan(other Heartbeat) bool {
	return h.Generation < other.Generation ||
		(h.Generation == other.Generation && h.Version < other.Version)
}

func (h Heartbeat) OlderThan(other Heartbeat) bool {
	return h.Generation > other.Generation ||
		(h.Generation == other.Generation && h.Version > other.Version)
}

func (h Heartbeat) EqualTo(other Heartbeat) bool {
	return h.Generation == other.Generation && h.Version == other.Version
}

// Group is a set of members keyed by address.
type Group map[address.Address]Node

func (g Group) Where(cond func(address.Address, Node) bool) Group { return filter.Map(g, cond) }

func (g Group) WhereState(state State) Group {
	return g.Where(func(_ address.Address, n Node) bool { return n.State == state })
}

func (g Group) WhereNot(addrs ...address.Address) Group {
	return g.Where(func(addr address.Address, _ Node) bool { return !filter.ElementOf(addrs, addr) })
}

func (g Group) WhereActive() Group {
	return g.Where(func(_ address.Address, n Node) bool { return n.State != StateLeft })
}

func (g Group) Addresses() (addresses []address.Address) {
	for addr := range g {
		addresses = append(addresses, addr)
	}
	return addresses
}

func (g Group) Digests() Digests {
	digests := make(Digests, len(g))
	for addr, n := range g {
		digests[addr] = n.Digest()
	}
	return digests
}

func (g Group) Copy() Group {
	return filter.Map(g, func(address.Address, Node) bool { return true })
}
