package metering

import "time"

// Sample is one timestamped observation.
type Sample struct {
	At    time.Time
	Value float64
}

// Series is a time-ordered sample list with a retention horizon. Appends
// must not regress in time; stale appends are dropped so the order
// invariant holds by construction.
type Series struct {
	samples   []Sample
	retention time.Duration
}

func NewSeries(retention time.Duration) *Series {
	return &Series{retention: retention}
}

// Append records one sample and evicts samples older than the retention
// horizon, always keeping the most recent one.
func (s *Series) Append(at time.Time, value float64) {
	if n := len(s.samples); n > 0 && at.Before(s.samples[n-1].At) {
		return
	}

	s.samples = append(s.samples, Sample{At: at, Value: value})

	if s.retention <= 0 {
		return
	}

	horizon := at.Add(-s.retention)
	cut := 0
	for cut < len(s.samples)-1 && s.samples[cut].At.Before(horizon) {
		cut++
	}
	if cut > 0 {
		s.samples = append(s.samples[:0], s.samples[cut:]...)
	}
}

// Samples returns a copy of the retained samples, oldest first.
func (s *Series) Samples() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)

	return out
}

// Latest returns the most recent sample, if any.
func (s *Series) Latest() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}

	return s.samples[len(s.samples)-1], true
}

func (s *Series) Len() int {
	return len(s.samples)
}
