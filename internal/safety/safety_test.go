package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrivero/charge-controller/internal/model"
)

func newTestSupervisor() (*Supervisor, *bool) {
	loadOn := false
	s := NewSupervisor(90,
		func() { loadOn = true },
		func() { loadOn = false },
	)
	return s, &loadOn
}

func TestConfirmationRequiresConsecutive(t *testing.T) {
	c := Confirmation{Threshold: 5, IntervalMs: 1000}

	now := int64(1000)
	for i := 0; i < 4; i++ {
		assert.False(t, c.Observe(now, true))
		now += 1000
	}
	// one clean reading resets the streak
	assert.False(t, c.Observe(now, false))
	now += 1000
	for i := 0; i < 4; i++ {
		assert.False(t, c.Observe(now, true))
		now += 1000
	}
	assert.True(t, c.Observe(now, true))
}

func TestConfirmationHonorsInterval(t *testing.T) {
	c := Confirmation{Threshold: 2, IntervalMs: 1000}

	assert.False(t, c.Observe(1000, true))
	// rapid repeat inside the interval does not count
	assert.False(t, c.Observe(1100, true))
	assert.False(t, c.Observe(1500, true))
	assert.True(t, c.Observe(2000, true))
}

func TestOverVoltageConfirmation(t *testing.T) {
	s, _ := newTestSupervisor()

	now := int64(1000)
	fired := false
	for i := 0; i < 5; i++ {
		fired = s.ConfirmOverVoltage(now, 15.1)
		now += 1000
	}
	assert.True(t, fired)

	// below threshold never fires
	for i := 0; i < 10; i++ {
		assert.False(t, s.ConfirmOverVoltage(now, 14.9))
		now += 1000
	}
}

func TestOverTemperatureUsesConfiguredThreshold(t *testing.T) {
	s, _ := newTestSupervisor()
	s.TempShutdownC = 55

	now := int64(1000)
	fired := false
	for i := 0; i < 5; i++ {
		fired = s.ConfirmOverTemperature(now, 60)
		now += 2000
	}
	assert.True(t, fired)
}

func TestPanelLossNeedsNonZeroDuty(t *testing.T) {
	s, _ := newTestSupervisor()

	now := int64(1000)
	for i := 0; i < 20; i++ {
		assert.False(t, s.ConfirmPanelLoss(now, 5, 0), "duty 0 must never confirm")
		now += 100
	}

	fired := false
	for i := 0; i < 5; i++ {
		fired = s.ConfirmPanelLoss(now, 5, 40)
		now += 100
	}
	assert.True(t, fired)
}

func TestLVDAndLVRHysteresis(t *testing.T) {
	s, loadOn := newTestSupervisor()
	s.ForceLoadState(true)
	*loadOn = true

	// inside the hysteresis band nothing changes
	s.UpdateLoadControl(1000, 12.3, model.StateBulk)
	assert.True(t, *loadOn)

	// below LVD disconnects
	s.UpdateLoadControl(2000, 11.9, model.StateBulk)
	assert.False(t, *loadOn)

	// recovery inside the band keeps it off
	s.UpdateLoadControl(3000, 12.4, model.StateBulk)
	assert.False(t, *loadOn)

	// above LVR reconnects
	s.UpdateLoadControl(4000, 12.6, model.StateBulk)
	assert.True(t, *loadOn)

	// over-voltage also disconnects
	s.UpdateLoadControl(5000, 15.2, model.StateBulk)
	assert.False(t, *loadOn)
}

func TestErrorStateForcesLoadOff(t *testing.T) {
	s, loadOn := newTestSupervisor()
	s.ForceLoadState(true)
	*loadOn = true

	s.UpdateLoadControl(1000, 13.0, model.StateError)
	assert.False(t, *loadOn)
}

func TestLoadOffTimerClampAndExpiry(t *testing.T) {
	s, loadOn := newTestSupervisor()
	s.ForceLoadState(true)
	*loadOn = true

	granted := s.StartLoadOff(1000, 50_000)
	assert.Equal(t, int64(model.MaxLoadOffSeconds), granted)
	assert.False(t, *loadOn)
	assert.Equal(t, int64(model.MaxLoadOffSeconds), s.LoadOff.RemainingSeconds(1000))

	// mid-timer the load stays off even at healthy voltage
	s.UpdateLoadControl(500_000, 13.0, model.StateFloat)
	assert.False(t, *loadOn)

	// expiry with healthy voltage re-enables
	expiry := int64(1000 + model.MaxLoadOffSeconds*1000)
	s.UpdateLoadControl(expiry, 13.0, model.StateFloat)
	assert.True(t, *loadOn)
	assert.False(t, s.LoadOff.Active)
}

func TestLoadOffExpiryWithLowBatteryStaysOff(t *testing.T) {
	s, loadOn := newTestSupervisor()
	var lastNote string
	s.Notify = func(msg string) { lastNote = msg }

	s.StartLoadOff(1000, 60)
	s.UpdateLoadControl(62_000, 12.2, model.StateBulk)
	assert.False(t, *loadOn)
	assert.False(t, s.LoadOff.Active)
	assert.Contains(t, lastNote, "load stays off")
}

func TestLoadOffRefreshWhileActive(t *testing.T) {
	s, _ := newTestSupervisor()

	s.StartLoadOff(1000, 100)
	s.StartLoadOff(50_000, 200)
	assert.Equal(t, int64(200), s.LoadOff.RemainingSeconds(50_000))
}

func TestCancelLoadOff(t *testing.T) {
	s, loadOn := newTestSupervisor()

	s.StartLoadOff(1000, 600)
	assert.False(t, *loadOn)

	s.CancelLoadOff(2000, 13.0)
	assert.True(t, *loadOn)
	assert.False(t, s.LoadOff.Active)

	// cancel at LVD-ish voltage leaves the pin down
	s.StartLoadOff(3000, 600)
	s.CancelLoadOff(4000, 11.8)
	assert.False(t, *loadOn)
}

func TestSustainedBulkReentry(t *testing.T) {
	s, _ := newTestSupervisor()

	assert.False(t, s.SustainedBulkReentry(1000, 12.5, model.StateFloat))
	assert.False(t, s.SustainedBulkReentry(15_000, 12.5, model.StateFloat))
	assert.True(t, s.SustainedBulkReentry(31_500, 12.5, model.StateFloat))

	// a recovery in the middle restarts the window
	assert.False(t, s.SustainedBulkReentry(40_000, 12.5, model.StateFloat))
	assert.False(t, s.SustainedBulkReentry(50_000, 12.7, model.StateFloat))
	assert.False(t, s.SustainedBulkReentry(60_000, 12.5, model.StateFloat))
	assert.False(t, s.SustainedBulkReentry(80_000, 12.5, model.StateFloat))
	assert.True(t, s.SustainedBulkReentry(95_000, 12.5, model.StateFloat))

	// already in bulk never re-enters
	assert.False(t, s.SustainedBulkReentry(200_000, 11.0, model.StateBulk))
	assert.False(t, s.SustainedBulkReentry(300_000, 11.0, model.StateBulk))
}

func TestUnsafe(t *testing.T) {
	s, _ := newTestSupervisor()

	assert.False(t, s.Unsafe(13.0, 40))
	assert.True(t, s.Unsafe(15.0, 40))
	assert.True(t, s.Unsafe(13.0, 90))
}
