package metering

import (
	"sort"
	"time"
)

// DefaultRetention bounds the sample history to twice the usual
// integration window.
const DefaultRetention = 120 * time.Second

// Integrator keeps a trailing history of instantaneous current samples
// and integrates them over a sliding window, trapezoid rule, with the
// window edges synthesized so the integral covers exactly the span the
// data supports.
type Integrator struct {
	series Series
}

func NewIntegrator(retention time.Duration) *Integrator {
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &Integrator{series: Series{retention: retention}}
}

// Observe records one current sample in amps.
func (g *Integrator) Observe(at time.Time, amps float64) {
	g.series.Append(at, amps)
}

func (g *Integrator) Len() int {
	return g.series.Len()
}

// AveragePower returns the mean power in watts over the window ending at
// now, assuming a constant supply voltage.
func (g *Integrator) AveragePower(now time.Time, voltage float64, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}

	pts := g.windowPoints(now, window)
	if len(pts) < 2 {
		return 0
	}

	return voltage * chargeSeconds(pts) / window.Seconds()
}

// EnergyWh returns the energy in watt-hours carried by the window ending
// at now.
func (g *Integrator) EnergyWh(now time.Time, voltage float64, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}

	pts := g.windowPoints(now, window)
	if len(pts) < 2 {
		return 0
	}

	return voltage * chargeSeconds(pts) / 3600
}

// windowPoints builds the bounded point list over [now-window, now]: an
// interpolated left edge when the series crosses the cutoff, no invented
// left edge when the series starts inside the window, and the last value
// extended to now on the right.
func (g *Integrator) windowPoints(now time.Time, window time.Duration) []Sample {
	samples := g.series.samples
	if len(samples) == 0 {
		return nil
	}

	cutoff := now.Add(-window)
	last := samples[len(samples)-1]
	if last.At.Before(cutoff) {
		return nil
	}

	idx := sort.Search(len(samples), func(i int) bool {
		return !samples[i].At.Before(cutoff)
	})

	pts := make([]Sample, 0, len(samples)-idx+2)
	switch {
	case idx == 0:
	case idx < len(samples):
		pts = append(pts, Sample{At: cutoff, Value: interpolate(samples[idx-1], samples[idx], cutoff)})
	default:
		// No sample at or after the cutoff; hold the last value there.
		pts = append(pts, Sample{At: cutoff, Value: last.Value})
	}

	pts = append(pts, samples[idx:]...)

	if pts[len(pts)-1].At.Before(now) {
		pts = append(pts, Sample{At: now, Value: pts[len(pts)-1].Value})
	}

	return pts
}

// interpolate evaluates the segment a-b at t. The ratio is clamped so
// duplicate timestamps or rounding cannot push the result outside the
// segment.
func interpolate(a, b Sample, t time.Time) float64 {
	span := b.At.Sub(a.At).Seconds()
	if span <= 0 {
		return b.Value
	}

	ratio := t.Sub(a.At).Seconds() / span
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}

	return a.Value + (b.Value-a.Value)*ratio
}

// chargeSeconds is the trapezoidal integral of the point list in
// ampere-seconds. Zero or negative segments contribute nothing.
func chargeSeconds(pts []Sample) float64 {
	var sum float64
	for i := 1; i < len(pts); i++ {
		dt := pts[i].At.Sub(pts[i-1].At).Seconds()
		if dt <= 0 {
			continue
		}
		sum += 0.5 * (pts[i-1].Value + pts[i].Value) * dt
	}

	return sum
}
