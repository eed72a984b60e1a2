package probe

import (
	"context"

	"github.com/arya-analytics/x/address"
	"github.com/arya-analytics/x/shutdown"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reporter receives the observations a probing worker makes about its
// contact point. Implementations must not block; the coordinator fulfills
// this by enqueueing events.
type Reporter interface {
	// SeedsObserved is called when the contact point reports a non-empty
	// seed set.
	SeedsObserved(from address.Address, seeds []address.Address)
	// NoSeedsWithinDeadline is called when the contact point has been probed
	// past the no-seeds deadline without reporting any seeds. It may be
	// called repeatedly for the same contact point.
	NoSeedsWithinDeadline(contactPoint address.Address)
}

// Worker probes a single contact point at a fixed interval until it observes
// seed nodes or is shut down. Workers are long-lived; the registry never
// restarts one merely because its address was rediscovered.
type Worker struct {
	Config
	// Session is the probe-session identity issued by the spawning node.
	Session uuid.UUID
	origin  address.Address
	target  address.Address
	rep     Reporter
}

func newWorker(origin, target address.Address, rep Reporter, cfg Config) *Worker {
	return &Worker{
		Config:  cfg,
		Session: uuid.New(),
		origin:  origin,
		target:  target,
		rep:     rep,
	}
}

// Target returns the contact point this worker probes.
func (w *Worker) Target() address.Address { return w.target }

func (w *Worker) run(sig chan shutdown.Signal) error {
	t := w.Clock.Ticker(w.Interval)
	defer t.Stop()
	started := w.Clock.Now()
	req := Request{Session: w.Session, From: w.origin}
	for {
		select {
		case <-sig:
			return nil
		case <-t.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.RequestTimeout)
		res, err := w.Transport.Send(ctx, w.target, req)
		cancel()
		if err != nil {
			w.Logger.Debug("probe failed",
				zap.String("contactPoint", string(w.target)),
				zap.Error(err),
			)
		} else if len(res.Seeds) > 0 {
			w.Logger.Info("contact point reported seed nodes",
				zap.String("contactPoint", string(w.target)),
				zap.Int("seeds", len(res.Seeds)),
			)
			w.rep.SeedsObserved(w.target, res.Seeds)
			return nil
		}
		if w.Clock.Now().Sub(started) >= w.NoSeedsDeadline {
			w.rep.NoSeedsWithinDeadline(w.target)
		}
	}
}
