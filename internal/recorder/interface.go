package recorder

import (
	"context"
	"time"
)

// Collector is the recording surface the monitoring engine talks to.
type Collector interface {
	Record(ctx context.Context, snapshot *ReadingSnapshot) error
	Close() error
}

// Repository defines the interface for reading storage
type Repository interface {
	Record(snapshot *ReadingSnapshot) error
	Close() error
}

// Value is an optional measurement; invalid readings store as NULL.
type Value struct {
	V     float64
	Valid bool
}

// ReadingSnapshot is one recorded poll outcome for one system.
type ReadingSnapshot struct {
	Timestamp time.Time
	SystemID  string
	Thermal   ThermalReadings
	Power     PowerReadings
}

type ThermalReadings struct {
	Temperature Value
	Setpoint    Value
}

type PowerReadings struct {
	CurrentAmps  Value
	AverageWatts Value
	EnergyWh     Value
	SettledWatts Value
}
