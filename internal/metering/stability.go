package metering

import (
	"sort"
	"time"
)

// Evaluator reports the settled value of a series: the time-weighted
// average over the trailing MinDuration once every value in that span
// stays within Tolerance.
type Evaluator struct {
	MinDuration time.Duration
	Tolerance   float64
}

// Evaluate inspects the sub-window [latest-MinDuration, latest]. The left
// edge is interpolated between its neighboring samples the same way the
// integrator interpolates its cutoff, so a series whose history reaches
// back MinDuration spans the whole sub-window. A younger series, or one
// whose sub-window range exceeds Tolerance, is not settled.
func (e Evaluator) Evaluate(samples []Sample) (float64, bool) {
	if len(samples) < 2 || e.MinDuration <= 0 {
		return 0, false
	}

	latest := samples[len(samples)-1].At
	cutoff := latest.Add(-e.MinDuration)

	idx := sort.Search(len(samples), func(i int) bool {
		return !samples[i].At.Before(cutoff)
	})

	var pts []Sample
	if idx == 0 {
		pts = samples
	} else {
		pts = make([]Sample, 0, len(samples)-idx+1)
		pts = append(pts, Sample{At: cutoff, Value: interpolate(samples[idx-1], samples[idx], cutoff)})
		pts = append(pts, samples[idx:]...)
	}

	span := pts[len(pts)-1].At.Sub(pts[0].At)
	if len(pts) < 2 || span < e.MinDuration {
		return 0, false
	}

	lo, hi := pts[0].Value, pts[0].Value
	for _, p := range pts[1:] {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}
	if hi-lo > e.Tolerance {
		return 0, false
	}

	return chargeSeconds(pts) / span.Seconds(), true
}
