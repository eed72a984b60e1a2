package grpc

import (
	"context"
	"encoding/json"
	"net"

	"github.com/arya-analytics/x/address"
	grpcx "github.com/arya-analytics/x/grpc"
	"github.com/arya-analytics/x/shutdown"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/longshorej/seedling/internal/member"
	"github.com/longshorej/seedling/internal/probe"
)

// |||||| CODEC ||||||

const codecName = "json"

// codec carries transport messages as JSON under a registered content
// subtype, so the wire format needs no generated types.
type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (codec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (codec) Name() string                               { return codecName }

func init() { encoding.RegisterCodec(codec{}) }

// |||||| CORE ||||||

type core struct {
	*grpcx.Pool
}

func (c core) String() string { return "grpc" }

// |||||| PROBE ||||||

const probeMethod = "/seedling.v1.ProbeService/Probe"

type probeRequest struct {
	Session string `json:"session"`
	From    string `json:"from"`
}

type probeResponse struct {
	Seeds []string `json:"seeds"`
}

type probeServer interface {
	Probe(ctx context.Context, req *probeRequest) (*probeResponse, error)
}

type probeTransport struct {
	core
	handle func(ctx context.Context, req probe.Request) (probe.Response, error)
}

func (p *probeTransport) Send(ctx context.Context, addr address.Address, req probe.Request) (probe.Response, error) {
	conn, err := p.Pool.Acquire(addr)
	if err != nil {
		return probe.Response{}, err
	}
	defer conn.Release()
	res := &probeResponse{}
	err = conn.Invoke(ctx, probeMethod, p.translateBackward(req), res, grpc.CallContentSubtype(codecName))
	return p.translateForward(res), err
}

func (p *probeTransport) Handle(handle func(context.Context, probe.Request) (probe.Response, error)) {
	p.handle = handle
}

func (p *probeTransport) Probe(ctx context.Context, req *probeRequest) (*probeResponse, error) {
	if p.handle == nil {
		return &probeResponse{}, errors.New("unavailable")
	}
	session, _ := uuid.Parse(req.Session)
	res, err := p.handle(ctx, probe.Request{Session: session, From: address.Address(req.From)})
	out := &probeResponse{}
	for _, seed := range res.Seeds {
		out.Seeds = append(out.Seeds, string(seed))
	}
	return out, err
}

func (p *probeTransport) translateBackward(req probe.Request) *probeRequest {
	return &probeRequest{Session: req.Session.String(), From: string(req.From)}
}

func (p *probeTransport) translateForward(res *probeResponse) (tRes probe.Response) {
	if res == nil {
		return tRes
	}
	for _, seed := range res.Seeds {
		tRes.Seeds = append(tRes.Seeds, address.Address(seed))
	}
	return tRes
}

var probeServiceDesc = grpc.ServiceDesc{
	ServiceName: "seedling.v1.ProbeService",
	HandlerType: (*probeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Probe", Handler: probeHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func probeHandler(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(probeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(probeServer).Probe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: probeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(probeServer).Probe(ctx, req.(*probeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// |||||| MEMBER GOSSIP ||||||

const gossipMethod = "/seedling.v1.MemberGossipService/Gossip"

type heartbeat struct {
	Generation uint64 `json:"generation"`
	Version    uint64 `json:"version"`
}

type nodeRecord struct {
	Address   string    `json:"address"`
	State     uint8     `json:"state"`
	Heartbeat heartbeat `json:"heartbeat"`
}

type gossipMessage struct {
	Digests map[string]heartbeat  `json:"digests,omitempty"`
	Nodes   map[string]nodeRecord `json:"nodes,omitempty"`
}

type gossipServer interface {
	Gossip(ctx context.Context, msg *gossipMessage) (*gossipMessage, error)
}

type gossipTransport struct {
	core
	handle func(ctx context.Context, msg member.Message) (member.Message, error)
}

func (g *gossipTransport) Send(ctx context.Context, addr address.Address, msg member.Message) (member.Message, error) {
	conn, err := g.Pool.Acquire(addr)
	if err != nil {
		return member.Message{}, err
	}
	defer conn.Release()
	res := &gossipMessage{}
	err = conn.Invoke(ctx, gossipMethod, g.translateBackward(msg), res, grpc.CallContentSubtype(codecName))
	return g.translateForward(res), err
}

func (g *gossipTransport) Handle(handle func(context.Context, member.Message) (member.Message, error)) {
	g.handle = handle
}

func (g *gossipTransport) Gossip(ctx context.Context, msg *gossipMessage) (*gossipMessage, error) {
	if g.handle == nil {
		return &gossipMessage{}, errors.New("unavailable")
	}
	res, err := g.handle(ctx, g.translateForward(msg))
	return g.translateBackward(res), err
}

func (g *gossipTransport) translateForward(msg *gossipMessage) (tMsg member.Message) {
	if msg == nil {
		return tMsg
	}
	if msg.Digests != nil {
		tMsg.Digests = make(member.Digests, len(msg.Digests))
		for addr, hb := range msg.Digests {
			tMsg.Digests[address.Address(addr)] = member.Heartbeat{
				Generation: hb.Generation,
				Version:    hb.Version,
			}
		}
	}
	if msg.Nodes != nil {
		tMsg.Nodes = make(member.Group, len(msg.Nodes))
		for addr, n := range msg.Nodes {
			tMsg.Nodes[address.Address(addr)] = member.Node{
				Address: address.Address(n.Address),
				State:   member.State(n.State),
				Heartbeat: member.Heartbeat{
					Generation: n.Heartbeat.Generation,
					Version:    n.Heartbeat.Version,
				},
			}
		}
	}
	return tMsg
}

func (g *gossipTransport) translateBackward(msg member.Message) *gossipMessage {
	tMsg := &gossipMessage{}
	if msg.Digests != nil {
		tMsg.Digests = make(map[string]heartbeat, len(msg.Digests))
		for addr, hb := range msg.Digests {
			tMsg.Digests[string(addr)] = heartbeat{Generation: hb.Generation, Version: hb.Version}
		}
	}
	if msg.Nodes != nil {
		tMsg.Nodes = make(map[string]nodeRecord, len(msg.Nodes))
		for addr, n := range msg.Nodes {
			tMsg.Nodes[string(addr)] = nodeRecord{
				Address:   string(n.Address),
				State:     uint8(n.State),
				Heartbeat: heartbeat{Generation: n.Heartbeat.Generation, Version: n.Heartbeat.Version},
			}
		}
	}
	return tMsg
}

var gossipServiceDesc = grpc.ServiceDesc{
	ServiceName: "seedling.v1.MemberGossipService",
	HandlerType: (*gossipServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Gossip", Handler: gossipHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func gossipHandler(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(gossipMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(gossipServer).Gossip(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: gossipMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(gossipServer).Gossip(ctx, req.(*gossipMessage))
	}
	return interceptor(ctx, in, info, handler)
}

// |||||| TRANSPORT ||||||

// New returns a grpc-backed seedling.Transport using a pooled client conn
// per peer.
func New() *transport {
	pool := grpcx.NewPool(grpc.WithInsecure())
	return &transport{
		pool:   pool,
		probe:  &probeTransport{core: core{Pool: pool}},
		gossip: &gossipTransport{core: core{Pool: pool}},
	}
}

// transport implements the seedling.Transport interface.
type transport struct {
	pool   *grpcx.Pool
	probe  *probeTransport
	gossip *gossipTransport
}

func (t *transport) Probe() probe.Transport { return t.probe }

func (t *transport) Gossip() member.Transport { return t.gossip }

func (t *transport) Configure(addr address.Address, sd shutdown.Shutdown) error {
	server := grpc.NewServer()
	server.RegisterService(&probeServiceDesc, t.probe)
	server.RegisterService(&gossipServiceDesc, t.gossip)
	lis, err := net.Listen("tcp", addr.PortString())
	if err != nil {
		return err
	}
	sd.Go(func(sig chan shutdown.Signal) (err error) {
		go func() {
			err = server.Serve(lis)
		}()
		if err != nil {
			return err
		}
		defer server.Stop()
		<-sig
		return nil
	})
	return nil
}
