package probe

import (
	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/transport"
	"github.com/google/uuid"
)

// Request asks a contact point whether it already knows of cluster seed
// nodes.
type Request struct {
	// Session identifies the probing worker that issued the request. It is
	// assigned once per worker by the node that spawned it, so a contact
	// point can correlate repeated probes.
	Session uuid.UUID
	// From is the address of the probing node.
	From address.Address
}

// Response carries the seed nodes the contact point knows of. An empty seed
// set means the contact point has not joined a cluster yet.
type Response struct {
	Seeds []address.Address
}

type Transport = transport.Unary[Request, Response]
