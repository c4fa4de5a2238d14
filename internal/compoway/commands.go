package compoway

// Variable-area read commands (MRC 01, SRC 01): area code, two-byte
// address, bit position 00 and a one-element count, all ASCII hex.
// Addresses follow the register maps of the temperature and power
// controllers this driver was written against.
const (
	// Process value, low word of the displayed value.
	CmdReadProcessValue = "0101800000000001"
	// Active setpoint. Some firmware revisions expose it in the C1 area
	// instead; select CmdReadSetpointAlt through configuration for those.
	CmdReadSetpoint    = "0101810003000001"
	CmdReadSetpointAlt = "0101C10003000001"
	// Heater current in 0.1 A units.
	CmdReadCurrent = "01018E0004000001"
)
