package monitor

import "github.com/harubonchi/heat-cycle-demo/internal/errors"

const (
	// Roster errors
	ErrReadRoster    = errors.ErrorCode("monitor_read_roster_failed")
	ErrInvalidRoster = errors.ErrorCode("monitor_invalid_roster")

	// Engine errors
	ErrNoSystems       = errors.ErrorCode("monitor_no_systems")
	ErrInvalidInterval = errors.ErrInvalidInterval
	ErrInvalidTick     = errors.ErrorCode("monitor_invalid_tick")
	ErrInvalidWindow   = errors.ErrorCode("monitor_invalid_window")
)
