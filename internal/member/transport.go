package member

import (
	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/transport"
)

type Transport = transport.Unary[Message, Message]

// Digests summarize which record of each member the sender holds.
type Digests map[address.Address]Heartbeat

// Message is one leg of a gossip exchange. A sync carries only digests, an
// ack carries both, and an ack2 carries only nodes. An ack2 with nothing to
// hand over may arrive entirely empty.
type Message struct {
	Digests Digests
	Nodes   Group
}

func (msg Message) variant() messageVariant {
	if msg.Digests != nil && msg.Nodes != nil {
		return messageVariantInvalid
	}
	if msg.Digests != nil {
		return messageVariantSync
	}
	return messageVariantAck2
}

type messageVariant byte

const (
	messageVariantSync messageVariant = iota
	messageVariantAck2
	messageVariantInvalid
)
