package monitor

import (
	"context"
	"time"

	"github.com/harubonchi/heat-cycle-demo/internal/compoway"
	"github.com/harubonchi/heat-cycle-demo/internal/errors"
	"github.com/harubonchi/heat-cycle-demo/internal/logger"
)

// Instrument abstracts the protocol operations the poller issues. The
// production implementation is compoway.Client; tests substitute fakes.
type Instrument interface {
	ReadProcessValue(node string) compoway.Reading
	ReadSetpoint(node string) compoway.Reading
	ReadCurrent(node string) compoway.Reading
}

// SystemReading bundles the three readings one poll cycle produces for
// one system. Individual readings carry their own validity; a bundle is
// emitted even when every exchange failed so consumers observe staleness.
type SystemReading struct {
	SystemID    string
	At          time.Time
	Temperature compoway.Reading
	Setpoint    compoway.Reading
	Current     compoway.Reading
}

// Poller owns all instrument traffic. It polls every rostered system
// each cycle from a single goroutine, so the three exchanges of one
// system form a contiguous group on the half-duplex link.
type Poller struct {
	instrument Instrument
	systems    []System
	interval   time.Duration
}

// NewPoller builds a poller over an open instrument link.
func NewPoller(instrument Instrument, systems []System, interval time.Duration) (*Poller, error) {
	errFactory := errors.New()

	if len(systems) == 0 {
		return nil, errFactory.New(ErrNoSystems)
	}

	if interval <= 0 {
		return nil, errFactory.WithData(ErrInvalidInterval, interval.String())
	}

	return &Poller{
		instrument: instrument,
		systems:    systems,
		interval:   interval,
	}, nil
}

// PollOnce reads temperature and setpoint from the system's thermal
// node and current from its power node.
func (p *Poller) PollOnce(sys System) SystemReading {
	reading := SystemReading{
		SystemID: sys.ID,
		At:       time.Now(),
	}

	reading.Temperature = p.instrument.ReadProcessValue(sys.ThermalNode)
	reading.Setpoint = p.instrument.ReadSetpoint(sys.ThermalNode)
	reading.Current = p.instrument.ReadCurrent(sys.PowerNode)

	return reading
}

// Run polls all systems at the configured cadence and emits one bundle
// per system per cycle on out. Sends select on ctx so shutdown never
// deadlocks on a full channel; out is closed when the loop exits.
func (p *Poller) Run(ctx context.Context, out chan<- SystemReading) {
	defer close(out)

	logger.Info().
		Int("systems", len(p.systems)).
		Dur("interval", p.interval).
		Msg("Poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Poller stopped")
			return
		case <-ticker.C:
			for _, sys := range p.systems {
				select {
				case out <- p.PollOnce(sys):
				case <-ctx.Done():
					logger.Info().Msg("Poller stopped")
					return
				}
			}
		}
	}
}
