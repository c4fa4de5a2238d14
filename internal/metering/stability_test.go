package metering_test

import (
	"testing"
	"time"

	"github.com/harubonchi/heat-cycle-demo/internal/metering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateSettled(t *testing.T) {
	e := metering.Evaluator{MinDuration: 5 * time.Second, Tolerance: 5.0}

	var series []metering.Sample
	for i := 0; i <= 10; i++ {
		series = append(series, metering.Sample{At: at(float64(i)), Value: 100.0})
	}

	value, ok := e.Evaluate(series)
	require.True(t, ok)
	assert.InDelta(t, 100.0, value, 1e-9)
}

func TestEvaluateTimeWeighted(t *testing.T) {
	e := metering.Evaluator{MinDuration: 10 * time.Second, Tolerance: 10.0}

	series := []metering.Sample{
		{At: at(0), Value: 0.0},
		{At: at(1), Value: 10.0},
		{At: at(10), Value: 10.0},
	}

	// Trapezoids: 0.5*(0+10)*1 + 10*9 = 95 over 10 s. A simple mean of
	// the three values would say 6.67.
	value, ok := e.Evaluate(series)
	require.True(t, ok)
	assert.InDelta(t, 9.5, value, 1e-9)
}

func TestEvaluateExcursionBlocksSettling(t *testing.T) {
	e := metering.Evaluator{MinDuration: 5 * time.Second, Tolerance: 5.0}

	var series []metering.Sample
	for i := 0; i <= 10; i++ {
		v := 100.0
		if i == 8 {
			v = 120.0
		}
		series = append(series, metering.Sample{At: at(float64(i)), Value: v})
	}

	_, ok := e.Evaluate(series)
	assert.False(t, ok, "Expected one excursion inside the sub-window to block settling")
}

func TestEvaluateExcursionBeforeSubWindowIgnored(t *testing.T) {
	e := metering.Evaluator{MinDuration: 5 * time.Second, Tolerance: 5.0}

	series := []metering.Sample{
		{At: at(0), Value: 500.0},
		{At: at(10), Value: 100.0},
		{At: at(15), Value: 100.0},
	}

	value, ok := e.Evaluate(series)
	require.True(t, ok, "Expected history before the sub-window left out")
	assert.InDelta(t, 100.0, value, 1e-9)
}

func TestEvaluateYoungSeries(t *testing.T) {
	e := metering.Evaluator{MinDuration: 5 * time.Second, Tolerance: 5.0}

	series := []metering.Sample{
		{At: at(0), Value: 100.0},
		{At: at(3), Value: 100.0},
	}

	_, ok := e.Evaluate(series)
	assert.False(t, ok, "Expected a series younger than MinDuration unsettled")
}

func TestEvaluateTooFewSamples(t *testing.T) {
	e := metering.Evaluator{MinDuration: 5 * time.Second, Tolerance: 5.0}

	_, ok := e.Evaluate(nil)
	assert.False(t, ok)

	_, ok = e.Evaluate([]metering.Sample{{At: at(0), Value: 1.0}})
	assert.False(t, ok)
}
