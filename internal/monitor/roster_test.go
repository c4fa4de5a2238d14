package monitor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harubonchi/heat-cycle-demo/internal/monitor"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "systems.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write roster file")

	return path
}

func TestLoadRoster(t *testing.T) {
	path := writeRoster(t, `
systems:
  - id: line-a
    label: Line A
    thermal_node: "01"
    power_node: "02"
    color: "#e4572e"
    voltage: 200
  - id: line-b
    thermal_node: "03"
    power_node: "04"
`)

	roster, err := monitor.LoadRoster(path)
	require.NoError(t, err, "Loading a well-formed roster should not fail")
	require.Len(t, roster.Systems, 2, "Both systems should be loaded")

	assert.Equal(t, "line-a", roster.Systems[0].ID)
	assert.Equal(t, "Line A", roster.Systems[0].Label)
	assert.Equal(t, "01", roster.Systems[0].ThermalNode)
	assert.Equal(t, "02", roster.Systems[0].PowerNode)
	assert.Equal(t, "#e4572e", roster.Systems[0].Color)
	assert.Equal(t, 200.0, roster.Systems[0].Voltage)

	assert.Empty(t, roster.Systems[1].Label, "Missing label should stay empty until Normalize")
	assert.Zero(t, roster.Systems[1].Voltage, "Missing voltage should stay zero until Normalize")
}

func TestLoadRosterMissingFile(t *testing.T) {
	_, err := monitor.LoadRoster(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err, "A missing roster file should be reported")
}

func TestLoadRosterMalformedYAML(t *testing.T) {
	path := writeRoster(t, "systems: [:::")

	_, err := monitor.LoadRoster(path)
	assert.Error(t, err, "Malformed YAML should be reported")
}

func TestNormalizeFillsDefaults(t *testing.T) {
	roster := monitor.Roster{Systems: []monitor.System{
		{ID: "line-a", ThermalNode: "01", PowerNode: "02"},
		{ID: "line-b", Label: "Reactor B", ThermalNode: "03", PowerNode: "04", Voltage: 100},
	}}

	roster.Normalize(200)

	assert.Equal(t, "line-a", roster.Systems[0].Label, "Missing label should fall back to the id")
	assert.Equal(t, 200.0, roster.Systems[0].Voltage, "Missing voltage should take the default")
	assert.Equal(t, "Reactor B", roster.Systems[1].Label, "Explicit label should be kept")
	assert.Equal(t, 100.0, roster.Systems[1].Voltage, "Explicit voltage should be kept")
}

func TestValidateEmptyRoster(t *testing.T) {
	roster := monitor.Roster{}
	assert.Error(t, roster.Validate(), "An empty roster should not validate")
}

func TestValidateDuplicateID(t *testing.T) {
	roster := monitor.Roster{Systems: []monitor.System{
		{ID: "line-a", ThermalNode: "01", PowerNode: "02", Voltage: 200},
		{ID: "line-a", ThermalNode: "03", PowerNode: "04", Voltage: 200},
	}}

	assert.Error(t, roster.Validate(), "Duplicate system ids should not validate")
}

func TestValidateNodeAddress(t *testing.T) {
	cases := []struct {
		name string
		node string
		ok   bool
	}{
		{name: "single digit", node: "1", ok: true},
		{name: "two digits", node: "07", ok: true},
		{name: "empty", node: "", ok: false},
		{name: "three digits", node: "123", ok: false},
		{name: "non-digit", node: "1A", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			roster := monitor.Roster{Systems: []monitor.System{
				{ID: "line-a", ThermalNode: tc.node, PowerNode: "02", Voltage: 200},
			}}

			err := roster.Validate()
			if tc.ok {
				assert.NoError(t, err, "Node %q should validate", tc.node)
			} else {
				assert.Error(t, err, "Node %q should not validate", tc.node)
			}
		})
	}
}

func TestValidateVoltage(t *testing.T) {
	roster := monitor.Roster{Systems: []monitor.System{
		{ID: "line-a", ThermalNode: "01", PowerNode: "02", Voltage: -5},
	}}

	assert.Error(t, roster.Validate(), "Non-positive voltage should not validate")
}
