package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/harubonchi/heat-cycle-demo/internal/compoway"
	"github.com/harubonchi/heat-cycle-demo/internal/errors"
	"github.com/harubonchi/heat-cycle-demo/internal/logger"
	"github.com/harubonchi/heat-cycle-demo/internal/metering"
	"github.com/harubonchi/heat-cycle-demo/internal/recorder"
)

// DefaultQueueDepth is the reading channel capacity between poller and
// engine. A full queue blocks the poller rather than dropping bundles.
const DefaultQueueDepth = 256

// Config carries the metering parameters the engine applies uniformly
// to every system it tracks.
type Config struct {
	// Window is the sliding integration window for average power and
	// window energy.
	Window time.Duration
	// Retention bounds every per-system sample history.
	Retention time.Duration
	// Tick is the consumer cadence at which queued readings are drained.
	Tick time.Duration
	// StabilityMinDuration and StabilityTolerance parameterize settled
	// power detection on the derived power series.
	StabilityMinDuration time.Duration
	StabilityTolerance   float64
}

// Engine consumes reading bundles, maintains per-system metering state
// and hands every poll outcome to the recorder. All state mutation
// happens on the Run goroutine; Snapshot copies state out under the
// mutex.
type Engine struct {
	cfg       Config
	evaluator metering.Evaluator
	collector recorder.Collector

	mu     sync.Mutex
	states map[string]*systemState
	order  []string
}

// systemState is everything the engine tracks for one system.
type systemState struct {
	system     System
	integrator *metering.Integrator
	power      *metering.Series
	energy     *metering.Series

	temperature compoway.Reading
	setpoint    compoway.Reading
	current     compoway.Reading

	settledWatts float64
	settled      bool
}

// Snapshot is the per-system view served to presentation consumers.
type Snapshot struct {
	System       System
	Temperature  compoway.Reading
	Setpoint     compoway.Reading
	Current      compoway.Reading
	Power        []metering.Sample
	Energy       []metering.Sample
	SettledWatts float64
	Settled      bool
}

// NewEngine builds the consumer for the given roster. The collector may
// be a disabled no-op; it must not be nil.
func NewEngine(cfg Config, systems []System, collector recorder.Collector) (*Engine, error) {
	errFactory := errors.New()

	if len(systems) == 0 {
		return nil, errFactory.New(ErrNoSystems)
	}

	if cfg.Window <= 0 {
		return nil, errFactory.WithData(ErrInvalidWindow, cfg.Window.String())
	}

	if cfg.Tick <= 0 {
		return nil, errFactory.WithData(ErrInvalidTick, cfg.Tick.String())
	}

	if cfg.Retention <= 0 {
		cfg.Retention = metering.DefaultRetention
	}

	e := &Engine{
		cfg: cfg,
		evaluator: metering.Evaluator{
			MinDuration: cfg.StabilityMinDuration,
			Tolerance:   cfg.StabilityTolerance,
		},
		collector: collector,
		states:    make(map[string]*systemState, len(systems)),
		order:     make([]string, 0, len(systems)),
	}

	for _, sys := range systems {
		e.states[sys.ID] = &systemState{
			system:     sys,
			integrator: metering.NewIntegrator(cfg.Retention),
			power:      metering.NewSeries(cfg.Retention),
			energy:     metering.NewSeries(cfg.Retention),
		}
		e.order = append(e.order, sys.ID)
	}

	return e, nil
}

// Run drains queued readings at the configured tick until ctx is
// canceled or the reading channel closes.
func (e *Engine) Run(ctx context.Context, in <-chan SystemReading) {
	logger.Info().
		Int("systems", len(e.order)).
		Dur("tick", e.cfg.Tick).
		Dur("window", e.cfg.Window).
		Msg("Monitoring engine started")

	ticker := time.NewTicker(e.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Monitoring engine stopped")
			return
		case <-ticker.C:
			if !e.drain(ctx, in) {
				logger.Info().Msg("Reading channel closed, monitoring engine stopped")
				return
			}
		}
	}
}

// drain applies every queued reading without blocking. It reports false
// once the channel closes.
func (e *Engine) drain(ctx context.Context, in <-chan SystemReading) bool {
	for {
		select {
		case reading, ok := <-in:
			if !ok {
				return false
			}
			e.apply(ctx, reading)
		default:
			return true
		}
	}
}

// apply folds one reading bundle into its system's state and records
// the outcome. Unknown system ids are dropped with a warning.
func (e *Engine) apply(ctx context.Context, reading SystemReading) {
	snapshot, ok := e.update(reading)
	if !ok {
		return
	}

	if err := e.collector.Record(ctx, snapshot); err != nil {
		logger.Error().
			Str("system", reading.SystemID).
			Err(err).
			Msg("Failed to record reading")
	}
}

func (e *Engine) update(reading SystemReading) (*recorder.ReadingSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.states[reading.SystemID]
	if !ok {
		logger.Warn().
			Str("system", reading.SystemID).
			Msg("Reading for unrostered system dropped")
		return nil, false
	}

	state.temperature = reading.Temperature
	state.setpoint = reading.Setpoint
	state.current = reading.Current

	if reading.Current.Valid {
		state.integrator.Observe(reading.At, reading.Current.Value)
	}

	voltage := state.system.Voltage
	watts := state.integrator.AveragePower(reading.At, voltage, e.cfg.Window)
	energyWh := state.integrator.EnergyWh(reading.At, voltage, e.cfg.Window)
	state.power.Append(reading.At, watts)
	state.energy.Append(reading.At, energyWh)

	settledWatts, settled := e.evaluator.Evaluate(state.power.Samples())
	if settled != state.settled {
		if settled {
			logger.Info().
				Str("system", state.system.ID).
				Float64("settled_watts", settledWatts).
				Msg("Power settled")
		} else {
			logger.Info().
				Str("system", state.system.ID).
				Msg("Power no longer settled")
		}
	}
	state.settledWatts = settledWatts
	state.settled = settled

	logReading(state, reading, watts, energyWh)

	return &recorder.ReadingSnapshot{
		Timestamp: reading.At,
		SystemID:  reading.SystemID,
		Thermal: recorder.ThermalReadings{
			Temperature: toValue(reading.Temperature),
			Setpoint:    toValue(reading.Setpoint),
		},
		Power: recorder.PowerReadings{
			CurrentAmps:  toValue(reading.Current),
			AverageWatts: recorder.Value{V: watts, Valid: true},
			EnergyWh:     recorder.Value{V: energyWh, Valid: true},
			SettledWatts: recorder.Value{V: settledWatts, Valid: settled},
		},
	}, true
}

// Snapshot returns a copy of one system's current state.
func (e *Engine) Snapshot(systemID string) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.states[systemID]
	if !ok {
		return Snapshot{}, false
	}

	return Snapshot{
		System:       state.system,
		Temperature:  state.temperature,
		Setpoint:     state.setpoint,
		Current:      state.current,
		Power:        state.power.Samples(),
		Energy:       state.energy.Samples(),
		SettledWatts: state.settledWatts,
		Settled:      state.settled,
	}, true
}

// Systems lists the tracked systems in roster order.
func (e *Engine) Systems() []System {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]System, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.states[id].system)
	}

	return out
}

func toValue(r compoway.Reading) recorder.Value {
	return recorder.Value{V: r.Value, Valid: r.Valid}
}

func logReading(state *systemState, reading SystemReading, watts, energyWh float64) {
	logger.Debug().
		Str("system", state.system.ID).
		Float64("temperature", reading.Temperature.Value).
		Bool("temperature_valid", reading.Temperature.Valid).
		Float64("setpoint", reading.Setpoint.Value).
		Bool("setpoint_valid", reading.Setpoint.Valid).
		Float64("current_amps", reading.Current.Value).
		Bool("current_valid", reading.Current.Valid).
		Float64("average_watts", watts).
		Float64("energy_wh", energyWh).
		Bool("settled", state.settled).
		Msg("Reading processed")
}
