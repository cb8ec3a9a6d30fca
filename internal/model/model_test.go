package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivedValues(t *testing.T) {
	tun := DefaultTunables()

	// 50 Ah at 1 % -> 500 mA tail, divided by 5 into float
	assert.Equal(t, 500.0, tun.AbsorptionCurrentThreshold())
	assert.Equal(t, 100.0, tun.CurrentLimitIntoFloat())

	tun.BatteryCapacityAh = 200
	tun.ThresholdPercent = 2
	tun.FactorDivider = 4
	assert.Equal(t, 4000.0, tun.AbsorptionCurrentThreshold())
	assert.Equal(t, 1000.0, tun.CurrentLimitIntoFloat())
}

func TestMaxBulkHours(t *testing.T) {
	tun := DefaultTunables()
	assert.Equal(t, 0.0, tun.MaxBulkHours())

	tun.UseDCSource = true
	assert.Equal(t, 0.0, tun.MaxBulkHours(), "zero amps must not divide")

	tun.DCSourceAmps = 10
	assert.Equal(t, 5.0, tun.MaxBulkHours())
}

func TestLoadOffTimer(t *testing.T) {
	timer := LoadOffTimer{Active: true, StartMs: 1000, DurationMs: 60_000}

	assert.Equal(t, int64(60), timer.RemainingSeconds(1000))
	assert.Equal(t, int64(30), timer.RemainingSeconds(31_000))
	assert.False(t, timer.Expired(31_000))
	assert.True(t, timer.Expired(61_000))
	assert.Equal(t, int64(0), timer.RemainingSeconds(99_000))

	assert.Equal(t, int64(0), LoadOffTimer{}.RemainingSeconds(5000))
	assert.False(t, LoadOffTimer{}.Expired(5000))
}

func TestNetCurrent(t *testing.T) {
	sig := Signals{PanelCurrentMA: 2000, LoadCurrentMA: 450}
	assert.Equal(t, 1550.0, sig.NetCurrentMA())
}
