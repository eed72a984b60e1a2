// Package dns resolves a logical service name into bootstrap candidates
// using raw DNS queries: SRV records when the service publishes them, with a
// fallback to plain A/AAAA lookups for headless-service style records that
// advertise no port.
package dns

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	mdns "github.com/miekg/dns"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/longshorej/seedling/internal/contact"
)

type Config struct {
	// Servers are the nameservers to query, as host:port. Defaults to the
	// servers listed in /etc/resolv.conf.
	Servers []string
	// Logger is this package's logger.
	Logger *zap.Logger
}

// Resolver implements resolve.Resolver over miekg/dns.
type Resolver struct {
	Config
	client *mdns.Client
}

func New(cfg Config) (*Resolver, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(cfg.Servers) == 0 {
		conf, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, errors.Wrap(err, "loading resolv.conf")
		}
		for _, s := range conf.Servers {
			cfg.Servers = append(cfg.Servers, net.JoinHostPort(s, conf.Port))
		}
	}
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no nameservers configured")
	}
	return &Resolver{Config: cfg, client: &mdns.Client{}}, nil
}

// Lookup implements resolve.Resolver.
func (r *Resolver) Lookup(ctx context.Context, name string) ([]contact.Candidate, error) {
	fqdn := mdns.Fqdn(name)
	if candidates, err := r.lookupSRV(ctx, fqdn); err == nil && len(candidates) > 0 {
		return candidates, nil
	} else if err != nil {
		r.Logger.Debug("srv lookup failed; falling back to host records",
			zap.String("name", name),
			zap.Error(err),
		)
	}
	return r.lookupHosts(ctx, fqdn)
}

func (r *Resolver) lookupSRV(ctx context.Context, fqdn string) ([]contact.Candidate, error) {
	msg, err := r.exchange(ctx, fqdn, mdns.TypeSRV)
	if err != nil {
		return nil, err
	}
	var candidates []contact.Candidate
	for _, rr := range msg.Answer {
		srv, ok := rr.(*mdns.SRV)
		if !ok {
			continue
		}
		candidates = append(candidates, contact.Candidate{
			Host: strings.TrimSuffix(srv.Target, "."),
			Port: int(srv.Port),
		})
	}
	return candidates, nil
}

// lookupHosts queries A and AAAA records in parallel. Candidates carry no
// port; the coordinator substitutes its fallback port.
func (r *Resolver) lookupHosts(ctx context.Context, fqdn string) ([]contact.Candidate, error) {
	var (
		mu         sync.Mutex
		candidates []contact.Candidate
	)
	eg, ctx := errgroup.WithContext(ctx)
	for _, qtype := range []uint16{mdns.TypeA, mdns.TypeAAAA} {
		qtype := qtype
		eg.Go(func() error {
			msg, err := r.exchange(ctx, fqdn, qtype)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, rr := range msg.Answer {
				switch record := rr.(type) {
				case *mdns.A:
					candidates = append(candidates, contact.Candidate{Host: record.A.String()})
				case *mdns.AAAA:
					candidates = append(candidates, contact.Candidate{Host: record.AAAA.String()})
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *Resolver) exchange(ctx context.Context, fqdn string, qtype uint16) (*mdns.Msg, error) {
	q := new(mdns.Msg)
	q.SetQuestion(fqdn, qtype)
	err := errors.New("no nameservers configured")
	for _, server := range r.Servers {
		var res *mdns.Msg
		res, _, err = r.client.ExchangeContext(ctx, q, server)
		if err != nil {
			continue
		}
		if res.Rcode != mdns.RcodeSuccess {
			err = errors.Newf("query for %s returned %s", fqdn, mdns.RcodeToString[res.Rcode])
			continue
		}
		return res, nil
	}
	return nil, err
}
