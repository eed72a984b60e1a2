package member

import (
	"io"

	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/errutil"
	"github.com/arya-analytics/x/kv"
	"github.com/arya-analytics/x/store"
)

// Store holds the node group as this member last converged on it. It
// satisfies kv.FlushLoader so the group can be cached in storage and
// reloaded across restarts.
type Store interface {
	store.Observable[State]
	kv.FlushLoader
	Set(Node)
	Get(address.Address) (Node, bool)
	Merge(Group)
	SetHost(Node)
	Host() (Node, bool)
	// Joined reports whether this member has a host record, i.e. has joined
	// a cluster.
	Joined() bool
}

type State struct {
	Nodes Group
	Host  address.Address
}

func _copy(s State) State { return State{Nodes: s.Nodes.Copy(), Host: s.Host} }

func newStore() Store {
	c := &core{Observable: store.NewObservable(_copy)}
	c.SetState(State{Nodes: make(Group)})
	return c
}

type core struct {
	store.Observable[State]
}

func (c *core) Get(addr address.Address) (Node, bool) {
	n, ok := c.GetState().Nodes[addr]
	return n, ok
}

func (c *core) Set(n Node) {
	snap := c.GetState()
	snap.Nodes[n.Address] = n
	c.SetState(snap)
}

func (c *core) SetHost(n Node) {
	snap := c.GetState()
	snap.Nodes[n.Address] = n
	snap.Host = n.Address
	c.SetState(snap)
}

func (c *core) Host() (Node, bool) {
	snap := c.GetState()
	n, ok := snap.Nodes[snap.Host]
	return n, ok
}

func (c *core) Joined() bool { return c.GetState().Host != "" }

// Merge keeps, for every address, whichever record carries the higher
// heartbeat.
func (c *core) Merge(other Group) {
	snap := c.GetState()
	for addr, n := range other {
		in, ok := snap.Nodes[addr]
		if !ok || n.Heartbeat.OlderThan(in.Heartbeat) {
			snap.Nodes[addr] = n
		}
	}
	c.SetState(snap)
}

func (c *core) Load(r io.Reader) error {
	var snap State
	catch := errutil.NewCatchRead(r)
	catch.Read(&snap)
	if err := catch.Error(); err != nil {
		return err
	}
	if snap.Nodes == nil {
		snap.Nodes = make(Group)
	}
	c.SetState(snap)
	return nil
}

func (c *core) Flush(w io.Writer) error {
	catch := errutil.NewCatchWrite(w)
	catch.Write(c.GetState())
	return catch.Error()
}
