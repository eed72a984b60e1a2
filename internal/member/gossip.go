package member

import (
	"context"

	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/rand"
	"go.uber.org/zap"
)

// gossip spreads the node group between members with a three-leg
// digest exchange: the initiator sends digests of everything it holds
// (sync), the peer answers with newer records plus digests of what it is
// missing (ack), and the initiator closes with the records the peer asked
// for (ack2).
type gossip struct {
	Config
	store Store
}

func newGossip(store Store, cfg Config) *gossip {
	g := &gossip{Config: cfg, store: store}
	g.Transport.Handle(g.process)
	return g
}

func (g *gossip) GossipOnce(ctx context.Context) error {
	g.incrementHostHeartbeat()
	snap := g.store.CopyState()
	peer := randomPeer(snap)
	if peer.Address == "" {
		g.Logger.Debug("no peers to gossip with")
		return nil
	}
	g.Logger.Debug("gossip",
		zap.String("host", string(snap.Host)),
		zap.String("peer", string(peer.Address)),
		zap.Int("stateSize", len(snap.Nodes)),
	)
	return g.GossipOnceWith(ctx, peer.Address)
}

func (g *gossip) GossipOnceWith(ctx context.Context, addr address.Address) error {
	ctx, cancel := context.WithTimeout(ctx, g.RequestTimeout)
	defer cancel()
	sync := Message{Digests: g.store.CopyState().Nodes.Digests()}
	ack, err := g.Transport.Send(ctx, addr, sync)
	if err != nil {
		return err
	}
	_, err = g.Transport.Send(ctx, addr, g.ack(ack))
	return err
}

func (g *gossip) incrementHostHeartbeat() {
	host, ok := g.store.Host()
	if !ok {
		return
	}
	host.Heartbeat = host.Heartbeat.Increment()
	g.store.Set(host)
}

func (g *gossip) process(ctx context.Context, msg Message) (Message, error) {
	if ctx.Err() != nil {
		return Message{}, ctx.Err()
	}
	switch msg.variant() {
	case messageVariantSync:
		return g.sync(msg), nil
	case messageVariantAck2:
		g.ack2(msg)
		return Message{}, nil
	default:
		g.Logger.Warn("dropping invalid gossip message")
		return Message{}, nil
	}
}

func (g *gossip) sync(sync Message) (ack Message) {
	snap := g.store.CopyState()
	ack = Message{Nodes: make(Group), Digests: make(Digests)}
	for addr, dig := range sync.Digests {
		n, ok := snap.Nodes[addr]

		// We hold a newer record than the initiator; return it.
		if ok && n.Heartbeat.OlderThan(dig) {
			ack.Nodes[addr] = n
		}

		// We are missing the node or hold a stale record; ask for it.
		if !ok || n.Heartbeat.YoungerThan(dig) {
			ack.Digests[addr] = n.Heartbeat
		}
	}
	for addr, n := range snap.Nodes {
		if _, ok := sync.Digests[addr]; !ok {
			ack.Nodes[addr] = n
		}
	}
	return ack
}

func (g *gossip) ack(ack Message) (ack2 Message) {
	// Snapshot before merging so the requested records reflect what the
	// peer actually asked for.
	snap := g.store.CopyState()
	g.store.Merge(ack.Nodes)
	ack2 = Message{Nodes: make(Group)}
	for addr, dig := range ack.Digests {
		if n, ok := snap.Nodes[addr]; ok && n.Heartbeat.OlderThan(dig) {
			ack2.Nodes[addr] = n
		}
	}
	return ack2
}

func (g *gossip) ack2(ack2 Message) {
	g.store.Merge(ack2.Nodes)
}

func randomPeer(snap State) Node {
	return rand.MapValue(snap.Nodes.WhereState(StateHealthy).WhereNot(snap.Host))
}
