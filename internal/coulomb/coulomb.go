package coulomb

import (
	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/internal/model"
)

// Counter integrates net battery current into accumulated amp-hours. It is
// the single writer of the accumulator; everything else reads through
// AccumulatedAh / SOC.
type Counter struct {
	accumulatedAh float64
	lastUpdateMs  int64
}

// Restore seeds the accumulator from persistence. Values outside
// [0, 1.1 x capacity] are rejected and the accumulator is estimated from
// the resting battery voltage instead.
func (c *Counter) Restore(storedAh, capacityAh, batteryV float64) {
	if storedAh < 0 || storedAh > 1.1*capacityAh {
		soc := EstimateSOCFromVoltage(batteryV)
		c.accumulatedAh = soc / 100 * capacityAh
		log.Warn().
			Float64("stored_ah", storedAh).
			Float64("estimated_soc", soc).
			Msg("Persisted accumulator invalid, estimating from voltage")
		return
	}
	c.accumulatedAh = storedAh
}

func (c *Counter) AccumulatedAh() float64 {
	return c.accumulatedAh
}

// SetAccumulatedAh overwrites the accumulator, clamped to the battery
// bounds. Used when the capacity tunable changes so stored energy is
// preserved across the rescale.
func (c *Counter) SetAccumulatedAh(ah, capacityAh float64) {
	c.accumulatedAh = clampAh(ah, capacityAh)
}

// SOC is the accumulator as a percentage of capacity.
func (c *Counter) SOC(capacityAh float64) float64 {
	if capacityAh <= 0 {
		return 0
	}
	return c.accumulatedAh / capacityAh * 100
}

// Update integrates one interval of net current. Clock jumps and restarts
// are skipped rather than integrated, and a single interval can never move
// the accumulator by more than a 1C-rate delta.
func (c *Counter) Update(nowMs int64, panelMA, loadMA, capacityAh float64) {
	if c.lastUpdateMs == 0 {
		c.lastUpdateMs = nowMs
		return
	}

	dtHours := float64(nowMs-c.lastUpdateMs) / 3.6e6
	if dtHours > 1.0 {
		// clock jump or long stall; restart the integration window
		log.Warn().Float64("dt_hours", dtHours).Msg("Integration interval too large, skipping")
		c.lastUpdateMs = nowMs
		return
	}
	if dtHours < 1e-4 {
		return
	}

	if panelMA < 0 {
		panelMA = 0
	}
	if loadMA < 0 {
		loadMA = 0
	}

	deltaAh := (panelMA - loadMA) / 1000 * dtHours

	// 1C rate cap
	maxDelta := capacityAh * dtHours
	if deltaAh > maxDelta {
		deltaAh = maxDelta
	}
	if deltaAh < -maxDelta {
		deltaAh = -maxDelta
	}

	c.accumulatedAh = clampAh(c.accumulatedAh+deltaAh, capacityAh)
	c.lastUpdateMs = nowMs
}

// ResetForNewStage reconciles the accumulator against the voltage-based
// estimate when the state machine changes stage.
func (c *Counter) ResetForNewStage(newState model.ChargeState, batteryV, capacityAh float64) {
	accSOC := c.SOC(capacityAh)
	voltSOC := EstimateSOCFromVoltage(batteryV)

	if newState == model.StateFloat {
		switch {
		case voltSOC-accSOC > 10:
			// blend toward the voltage estimate
			c.accumulatedAh = 0.7*c.accumulatedAh + 0.3*(voltSOC/100*capacityAh)
		case accSOC < 85:
			c.accumulatedAh = 0.85 * capacityAh
		}
	} else {
		switch {
		case voltSOC > 80:
			if voltSOC > accSOC {
				c.accumulatedAh = voltSOC / 100 * capacityAh
			}
		case accSOC-voltSOC > 20:
			c.accumulatedAh = (voltSOC + 10) / 100 * capacityAh
		}
	}

	c.accumulatedAh = clampAh(c.accumulatedAh, capacityAh)
	log.Info().
		Str("new_state", string(newState)).
		Float64("acc_soc", accSOC).
		Float64("volt_soc", voltSOC).
		Float64("accumulated_ah", c.accumulatedAh).
		Msg("Accumulator reconciled for stage change")
}

func clampAh(ah, capacityAh float64) float64 {
	if ah < 0 {
		return 0
	}
	if max := 1.1 * capacityAh; ah > max {
		return max
	}
	return ah
}
