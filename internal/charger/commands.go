package charger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/internal/model"
)

// SetParam validates and applies one tunable write, persisting on
// success. The returned string confirms the applied value.
func (c *Controller) SetParam(param, value string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch param {
	case "BATTERY_CAPACITY":
		v, err := parseRange(value, model.MinBatteryCapacityAh, model.MaxBatteryCapacityAh)
		if err != nil || v <= 0 {
			return "", fmt.Errorf("Invalid value for battery capacity: %s (must be in (0, %.0f])", value, model.MaxBatteryCapacityAh)
		}
		// rescaling the bank preserves the stored energy; SOC shifts
		c.tun.BatteryCapacityAh = v
		c.counter.SetAccumulatedAh(c.counter.AccumulatedAh(), v)
		c.afterParamChange(param, value)
		return fmt.Sprintf("Battery capacity set to %.1f Ah", v), nil

	case "THRESHOLD_PERCENTAGE":
		v, err := parseRange(value, model.MinThresholdPercent, model.MaxThresholdPercent)
		if err != nil {
			return "", fmt.Errorf("Invalid value for threshold percentage: %s (must be in [%.1f, %.1f])", value, model.MinThresholdPercent, model.MaxThresholdPercent)
		}
		c.tun.ThresholdPercent = v
		c.afterParamChange(param, value)
		return fmt.Sprintf("Threshold percentage set to %.2f", v), nil

	case "MAX_CURRENT":
		v, err := parseRange(value, model.MinAllowedCurrentMA, model.MaxAllowedCurrentMA)
		if err != nil {
			return "", fmt.Errorf("Invalid value for max current: %s (must be in [%.0f, %.0f] mA)", value, model.MinAllowedCurrentMA, model.MaxAllowedCurrentMA)
		}
		c.tun.MaxAllowedCurrent = v
		c.afterParamChange(param, value)
		return fmt.Sprintf("Max allowed current set to %.0f mA", v), nil

	case "BULK_VOLTAGE", "ABSORPTION_VOLTAGE", "FLOAT_VOLTAGE":
		v, err := parseRange(value, model.MinStageVoltage, model.MaxStageVoltage)
		if err != nil {
			return "", fmt.Errorf("Invalid value for %s: %s (must be in [%.1f, %.1f] V)", strings.ToLower(param), value, model.MinStageVoltage, model.MaxStageVoltage)
		}
		next := c.tun
		switch param {
		case "BULK_VOLTAGE":
			next.BulkVoltage = v
		case "ABSORPTION_VOLTAGE":
			next.AbsorptionVoltage = v
		case "FLOAT_VOLTAGE":
			next.FloatVoltage = v
		}
		if !(next.FloatVoltage <= next.AbsorptionVoltage && next.AbsorptionVoltage <= next.BulkVoltage) {
			return "", fmt.Errorf("Invalid value: stage voltages must satisfy float <= absorption <= bulk")
		}
		c.tun = next
		c.afterParamChange(param, value)
		return fmt.Sprintf("%s set to %.2f V", strings.ToLower(param), v), nil

	case "IS_LITHIUM":
		b, err := parseBool(value)
		if err != nil {
			return "", fmt.Errorf("Invalid value for is_lithium: %s", value)
		}
		c.tun.IsLithium = b
		c.afterParamChange(param, value)
		return fmt.Sprintf("Battery chemistry set to %s", chemistryName(b)), nil

	case "USE_FUENTE_DC":
		b, err := parseBool(value)
		if err != nil {
			return "", fmt.Errorf("Invalid value for use_fuente_dc: %s", value)
		}
		c.tun.UseDCSource = b
		c.afterParamChange(param, value)
		return fmt.Sprintf("DC source mode %s", onOff(b)), nil

	case "FUENTE_DC_AMPS":
		v, err := parseRange(value, model.MinDCSourceAmps, model.MaxDCSourceAmps)
		if err != nil {
			return "", fmt.Errorf("Invalid value for fuente_dc_amps: %s (must be in [%.0f, %.0f] A)", value, model.MinDCSourceAmps, model.MaxDCSourceAmps)
		}
		c.tun.DCSourceAmps = v
		c.afterParamChange(param, value)
		return fmt.Sprintf("DC source current set to %.1f A", v), nil

	case "FACTOR_DIVIDER":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < model.MinFactorDivider || n > model.MaxFactorDivider {
			return "", fmt.Errorf("Invalid value for factor_divider: %s (must be in [%d, %d])", value, model.MinFactorDivider, model.MaxFactorDivider)
		}
		c.tun.FactorDivider = n
		c.afterParamChange(param, value)
		return fmt.Sprintf("Factor divider set to %d", n), nil

	default:
		return "", fmt.Errorf("Unknown parameter: %s", param)
	}
}

func (c *Controller) afterParamChange(param, value string) {
	c.setNote(fmt.Sprintf("Parameter %s updated to %s", param, value))
	c.persistTunables()
	c.persistCycleState()
	log.Info().Str("param", param).Str("value", value).Msg("Tunable updated")
}

// ToggleLoad arms the temporary load-off timer and returns the granted
// duration in seconds after clamping.
func (c *Controller) ToggleLoad(seconds int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasOn := c.sup.LoadEnabled()
	granted := c.sup.StartLoadOff(c.now(), seconds)
	if wasOn {
		c.setNote(fmt.Sprintf("Load switched off for %d seconds", granted))
	} else {
		c.setNote(fmt.Sprintf("Load already off; off timer set to %d seconds", granted))
	}
	return granted
}

// CancelTempOff clears the load-off timer; the pin returns subject to the
// reconnect threshold.
func (c *Controller) CancelTempOff() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sup.CancelLoadOff(c.now(), c.sig.BatteryVoltage)
	c.setNote("Temporary load-off cancelled")
}

// Tunables returns a copy of the current tunable set.
func (c *Controller) Tunables() model.Tunables {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tun
}

// State returns the current charge stage.
func (c *Controller) State() model.ChargeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func parseRange(value string, min, max float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, fmt.Errorf("out of range")
	}
	return v, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true, nil
	case "0", "false", "off", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}

func chemistryName(lithium bool) string {
	if lithium {
		return "lithium"
	}
	return "GEL"
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
