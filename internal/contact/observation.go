package contact

import "time"

// distantFuture keeps a fresh coordinator from passing its stability check
// before any resolution has landed.
var distantFuture = time.Unix(1<<42, 0)

// Observation is a point-in-time snapshot of the candidate set last returned
// by service resolution. Observations are immutable; the coordinator replaces
// its stored observation wholesale through Merge.
type Observation struct {
	// At is when this candidate set was first recorded. Merge preserves it
	// across polls that return the same set, so stability is measured from
	// the last real change.
	At time.Time
	// Candidates is the discovered peer set.
	Candidates []Candidate
}

// None returns the initial observation: no candidates, timestamped far enough
// in the future that no stability margin can elapse against it.
func None() Observation { return Observation{At: distantFuture} }

// New records a candidate set observed at the given time.
func New(at time.Time, candidates []Candidate) Observation {
	return Observation{At: at, Candidates: candidates}
}

// Lowest returns the candidate with the minimal (host, port) ordering, and
// false when the observation is empty. Insertion order never matters.
func (o Observation) Lowest() (Candidate, bool) {
	if len(o.Candidates) == 0 {
		return Candidate{}, false
	}
	low := o.Candidates[0]
	for _, c := range o.Candidates[1:] {
		if c.Less(low) {
			low = c
		}
	}
	return low, true
}

// StableAt returns the instant at which this observation satisfies the given
// stability margin.
func (o Observation) StableAt(margin time.Duration) time.Time {
	return o.At.Add(margin)
}

// PastStableMargin reports whether the candidate set has remained unchanged
// for at least margin as of now. The boundary instant counts as stable.
func (o Observation) PastStableMargin(now time.Time, margin time.Duration) bool {
	return !o.StableAt(margin).After(now)
}

// ChangedFrom reports whether the candidate set differs from other's,
// ignoring order and duplicates.
func (o Observation) ChangedFrom(other Observation) bool {
	return !candidateSet(o.Candidates).equal(candidateSet(other.Candidates))
}

// Merge folds a fresh observation into the receiver. When the candidate set
// is unchanged the receiver is returned as-is, keeping the original At.
func (o Observation) Merge(next Observation) Observation {
	if o.ChangedFrom(next) {
		return next
	}
	return o
}

type set map[Candidate]struct{}

func candidateSet(candidates []Candidate) set {
	s := make(set, len(candidates))
	for _, c := range candidates {
		s[c] = struct{}{}
	}
	return s
}

func (s set) equal(other set) bool {
	if len(s) != len(other) {
		return false
	}
	for c := range s {
		if _, ok := other[c]; !ok {
			return false
		}
	}
	return true
}
