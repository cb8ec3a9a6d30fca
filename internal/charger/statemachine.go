package charger

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/internal/model"
)

// step applies the active stage's duty law, then evaluates its exit
// conditions. A latched panel loss suppresses the law but not the
// transitions.
func (c *Controller) step(nowMs int64) {
	switch c.state {
	case model.StateBulk:
		c.adjust(c.bulkDelta())
		if c.bulkDone(nowMs) {
			c.enterAbsorption(nowMs)
		}

	case model.StateAbsorption:
		c.absorptionHours = c.computeAbsorptionHours()
		tailReached := c.sig.NetCurrentMA() <= c.tun.AbsorptionCurrentThreshold()
		timedOut := c.absorptionElapsedHours(nowMs) >= c.absorptionHours

		if c.tun.IsLithium {
			// lithium holds absorption; past the tail threshold the net
			// current law takes over from the voltage law
			if tailReached {
				c.adjust(c.lithiumTailDelta())
			} else {
				c.adjust(c.absorptionVoltageDelta())
			}
		} else {
			c.adjust(c.absorptionVoltageDelta())
			if tailReached || timedOut {
				c.enterFloat(nowMs)
			}
		}

	case model.StateFloat:
		c.adjust(c.floatDelta())

	case model.StateError:
		c.reg.Set(model.ErrorTickleDuty)
	}
}

func (c *Controller) adjust(delta int) {
	if c.panelLost {
		return
	}
	c.reg.Adjust(delta)
}

// bulkDelta: constant-current climb toward the bulk voltage.
func (c *Controller) bulkDelta() int {
	switch {
	case c.sig.PanelCurrentMA > c.tun.MaxAllowedCurrent:
		return -5
	case c.sig.BatteryVoltage < c.tun.BulkVoltage:
		return 1
	default:
		return -1
	}
}

// absorptionVoltageDelta: constant-voltage hold at the absorption setpoint.
func (c *Controller) absorptionVoltageDelta() int {
	switch {
	case c.sig.BatteryVoltage > c.tun.AbsorptionVoltage:
		return -1
	case c.sig.BatteryVoltage < c.tun.AbsorptionVoltage:
		if c.sig.PanelCurrentMA < c.tun.MaxAllowedCurrent {
			return 1
		}
		return -2
	default:
		return 0
	}
}

// lithiumTailDelta: once the tail threshold is reached a lithium bank is
// held at zero net current rather than dropped to float.
func (c *Controller) lithiumTailDelta() int {
	if c.sig.PanelCurrentMA > c.sig.LoadCurrentMA {
		return -3
	}
	return 1
}

// floatDelta: maintenance hold, backing off when charge current exceeds
// the float limit plus whatever the load is drawing.
func (c *Controller) floatDelta() int {
	if c.sig.PanelCurrentMA <= c.tun.CurrentLimitIntoFloat()+c.sig.LoadCurrentMA {
		switch {
		case c.sig.BatteryVoltage < c.tun.FloatVoltage:
			return 1
		case c.sig.BatteryVoltage > c.tun.FloatVoltage:
			return -1
		default:
			return 0
		}
	}
	return -2
}

// bulkDone: the bulk stage ends at the bulk voltage, or on elapsed time
// when charging from a bounded DC source.
func (c *Controller) bulkDone(nowMs int64) bool {
	if c.sig.BatteryVoltage >= c.tun.BulkVoltage {
		return true
	}
	maxHours := c.tun.MaxBulkHours()
	if c.tun.UseDCSource && maxHours > 0 {
		elapsed := float64(nowMs-c.bulkStartMs) / 3.6e6
		return elapsed >= maxHours
	}
	return false
}

func (c *Controller) absorptionElapsedHours(nowMs int64) float64 {
	if c.absorptionStartMs == 0 {
		return 0
	}
	return float64(nowMs-c.absorptionStartMs) / 3.6e6
}

// computeAbsorptionHours sizes the absorption stage to the charge still
// missing at the present net current, bounded by the stage maximum.
func (c *Controller) computeAbsorptionHours() float64 {
	netA := c.sig.NetCurrentMA() / 1000
	if netA <= 0 {
		return model.MaxAbsorptionHours / 2
	}
	chargedPct := c.counter.SOC(c.tun.BatteryCapacityAh)
	remainingAh := c.tun.BatteryCapacityAh * (100 - chargedPct) / 100 * 1.1
	hours := remainingAh / netA
	if hours > model.MaxAbsorptionHours {
		hours = model.MaxAbsorptionHours
	}
	return hours
}

func (c *Controller) enterAbsorption(nowMs int64) {
	c.state = model.StateAbsorption
	c.absorptionStartMs = nowMs
	c.bulkStartMs = 0
	c.setNote("Bulk complete, absorption stage started")
	c.persistCycleState()
	log.Info().Float64("battery_v", c.sig.BatteryVoltage).Msg("Transition: bulk -> absorption")
}

func (c *Controller) enterFloat(nowMs int64) {
	c.counter.ResetForNewStage(model.StateFloat, c.sig.BatteryVoltage, c.tun.BatteryCapacityAh)
	c.state = model.StateFloat
	c.absorptionStartMs = 0
	c.setNote("Absorption complete, float stage started")
	c.persistCycleState()
	log.Info().Float64("battery_v", c.sig.BatteryVoltage).Msg("Transition: absorption -> float")
}

func (c *Controller) transitionToBulk(nowMs int64) {
	c.counter.ResetForNewStage(model.StateBulk, c.sig.BatteryVoltage, c.tun.BatteryCapacityAh)
	c.state = model.StateBulk
	c.bulkStartMs = nowMs
	c.absorptionStartMs = 0
	c.setNote(fmt.Sprintf("Battery down to %.2f V, returning to bulk", c.sig.BatteryVoltage))
	c.persistCycleState()
	log.Info().Float64("battery_v", c.sig.BatteryVoltage).Msg("Transition: re-entering bulk")
}

func (c *Controller) enterError(nowMs int64) {
	c.state = model.StateError
	c.errorClearSinceMs = 0
	c.reg.Set(model.ErrorTickleDuty)
	c.sup.UpdateLoadControl(nowMs, c.sig.BatteryVoltage, c.state)
	c.noteEvent("Safety fault confirmed, charging suspended")
	log.Error().
		Float64("battery_v", c.sig.BatteryVoltage).
		Float64("temp_c", c.sig.BatteryTempC).
		Msg("Transition: entering error state")
}

func (c *Controller) exitError(nowMs int64) {
	c.state = model.StateAbsorption
	c.absorptionStartMs = nowMs
	c.sup.UpdateLoadControl(nowMs, c.sig.BatteryVoltage, c.state)
	c.noteEvent("Safety conditions cleared, resuming absorption")
	log.Info().Float64("battery_v", c.sig.BatteryVoltage).Msg("Transition: error -> absorption")
}
