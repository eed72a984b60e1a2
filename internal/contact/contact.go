package contact

import (
	"net"
	"strconv"

	"github.com/arya-analytics/x/address"
	"github.com/cockroachdb/errors"
)

// Candidate is a peer address discovered through service resolution. Port is
// zero when the resolver did not advertise one.
type Candidate struct {
	Host string
	Port int
}

// Less orders candidates by host string first, then by port. A missing port
// sorts as zero.
func (c Candidate) Less(other Candidate) bool {
	if c.Host != other.Host {
		return c.Host < other.Host
	}
	return c.Port < other.Port
}

// Address renders the candidate as a dialable address, substituting fallback
// when no port was advertised.
func (c Candidate) Address(fallback int) address.Address {
	port := c.Port
	if port == 0 {
		port = fallback
	}
	return address.Address(net.JoinHostPort(c.Host, strconv.Itoa(port)))
}

// ParseAddress splits a bound address back into a Candidate. Used to compare
// the host's own address against discovered candidates.
func ParseAddress(addr address.Address) (Candidate, error) {
	host, portStr, err := net.SplitHostPort(string(addr))
	if err != nil {
		return Candidate{}, errors.Wrapf(err, "malformed address %s", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Candidate{}, errors.Wrapf(err, "malformed port in address %s", addr)
	}
	return Candidate{Host: host, Port: port}, nil
}
