package monitor

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harubonchi/heat-cycle-demo/internal/errors"
)

// System describes one monitored heating line: the node address of its
// thermal controller, the node address of its power controller, a
// presentation label and color, and the supply voltage used to convert
// integrated current into power.
type System struct {
	ID          string  `yaml:"id"`
	Label       string  `yaml:"label"`
	ThermalNode string  `yaml:"thermal_node"`
	PowerNode   string  `yaml:"power_node"`
	Color       string  `yaml:"color"`
	Voltage     float64 `yaml:"voltage"`
}

// Roster is the set of systems one daemon instance polls over a shared
// serial link.
type Roster struct {
	Systems []System `yaml:"systems"`
}

// LoadRoster reads and parses a YAML roster file. The result still
// needs Normalize and Validate before use.
func LoadRoster(path string) (Roster, error) {
	errFactory := errors.New()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, errFactory.Wrap(ErrReadRoster, err)
	}

	var roster Roster
	if err := yaml.Unmarshal(raw, &roster); err != nil {
		return Roster{}, errFactory.Wrap(ErrInvalidRoster, err)
	}

	return roster, nil
}

// Normalize fills optional per-system fields: a missing label falls
// back to the id, a missing voltage to defaultVoltage.
func (r *Roster) Normalize(defaultVoltage float64) {
	for i := range r.Systems {
		if r.Systems[i].Label == "" {
			r.Systems[i].Label = r.Systems[i].ID
		}

		if r.Systems[i].Voltage == 0 {
			r.Systems[i].Voltage = defaultVoltage
		}
	}
}

// Validate checks the roster for the invariants the engine relies on:
// at least one system, unique non-empty ids, well-formed node
// addresses and a positive voltage.
func (r Roster) Validate() error {
	errFactory := errors.New()

	if len(r.Systems) == 0 {
		return errFactory.New(ErrNoSystems)
	}

	seen := make(map[string]bool, len(r.Systems))

	for _, sys := range r.Systems {
		if sys.ID == "" {
			return errFactory.WithMessage(ErrInvalidRoster, "System id must not be empty")
		}

		if seen[sys.ID] {
			return errFactory.WithData(ErrInvalidRoster, struct {
				Field string
				ID    string
			}{Field: "id", ID: sys.ID})
		}
		seen[sys.ID] = true

		if !isNodeAddress(sys.ThermalNode) {
			return errFactory.WithData(ErrInvalidRoster, struct {
				Field string
				ID    string
				Node  string
			}{Field: "thermal_node", ID: sys.ID, Node: sys.ThermalNode})
		}

		if !isNodeAddress(sys.PowerNode) {
			return errFactory.WithData(ErrInvalidRoster, struct {
				Field string
				ID    string
				Node  string
			}{Field: "power_node", ID: sys.ID, Node: sys.PowerNode})
		}

		if sys.Voltage <= 0 {
			return errFactory.WithData(ErrInvalidRoster, struct {
				Field   string
				ID      string
				Voltage float64
			}{Field: "voltage", ID: sys.ID, Voltage: sys.Voltage})
		}
	}

	return nil
}

// isNodeAddress reports whether s is a valid node address: one or two
// ASCII decimal digits. Single digits are zero-padded at encode time.
func isNodeAddress(s string) bool {
	if len(s) == 0 || len(s) > 2 {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
