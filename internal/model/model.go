package model

// ChargeState is the stage the battery is currently being driven through.
// The string values are the wire names reported over the supervisor link
// and the /data endpoint.
type ChargeState string

const (
	StateBulk       ChargeState = "BULK_CHARGE"
	StateAbsorption ChargeState = "ABSORPTION_CHARGE"
	StateFloat      ChargeState = "FLOAT_CHARGE"
	StateError      ChargeState = "ERROR"
)

// Fixed electrical thresholds. LVD/LVR are deliberately not tunable at
// runtime; the load hysteresis band is a hardware design decision.
const (
	LVD                       = 12.0  // load disconnect, volts
	LVR                       = 12.5  // load reconnect, volts
	MaxBatteryVoltageAllowed  = 15.0  // sustained above this is a fault
	ChargedBatteryRestVoltage = 12.88 // resting voltage of a full bank
	BulkReentryVoltage        = 12.6  // sustained below this re-enters bulk
	PanelCurrentFloorMA       = 10.0  // below this the panel is not producing

	MaxAbsorptionHours = 1.0
	MaxLoadOffSeconds  = 28800 // 8 h cap on temporary load-off
	ErrorTickleDuty    = 20    // duty held while in ERROR

	MaxDuty = 255
)

// Tunable ranges enforced by the command dispatcher and the web form.
const (
	MinBatteryCapacityAh = 0.0
	MaxBatteryCapacityAh = 1000.0
	MinThresholdPercent  = 0.1
	MaxThresholdPercent  = 5.0
	MinAllowedCurrentMA  = 1000.0
	MaxAllowedCurrentMA  = 15000.0
	MinStageVoltage      = 12.0
	MaxStageVoltage      = 15.0
	MinDCSourceAmps      = 0.0
	MaxDCSourceAmps      = 50.0
	MinFactorDivider     = 1
	MaxFactorDivider     = 10
)

// Tunables are the persisted charge parameters. Defaults apply on first
// boot; afterwards the charger table in sqlite is authoritative.
type Tunables struct {
	BatteryCapacityAh float64
	ThresholdPercent  float64
	MaxAllowedCurrent float64 // mA
	BulkVoltage       float64
	AbsorptionVoltage float64
	FloatVoltage      float64
	IsLithium         bool
	UseDCSource       bool
	DCSourceAmps      float64
	FactorDivider     int
}

func DefaultTunables() Tunables {
	return Tunables{
		BatteryCapacityAh: 50,
		ThresholdPercent:  1.0,
		MaxAllowedCurrent: 6000,
		BulkVoltage:       14.4,
		AbsorptionVoltage: 14.4,
		FloatVoltage:      13.6,
		IsLithium:         false,
		UseDCSource:       false,
		DCSourceAmps:      0,
		FactorDivider:     5,
	}
}

// AbsorptionCurrentThreshold is the C-rate tail current (mA) at which the
// absorption stage terminates for GEL banks.
func (t Tunables) AbsorptionCurrentThreshold() float64 {
	return t.BatteryCapacityAh * t.ThresholdPercent * 10
}

// CurrentLimitIntoFloat is the charge current (mA) above which the float
// stage backs the duty off instead of holding voltage.
func (t Tunables) CurrentLimitIntoFloat() float64 {
	if t.FactorDivider == 0 {
		return t.AbsorptionCurrentThreshold()
	}
	return t.AbsorptionCurrentThreshold() / float64(t.FactorDivider)
}

// MaxBulkHours bounds the bulk stage when charging from a bench DC supply
// instead of a panel. Zero means no time bound.
func (t Tunables) MaxBulkHours() float64 {
	if t.UseDCSource && t.DCSourceAmps > 0 {
		return t.BatteryCapacityAh / t.DCSourceAmps
	}
	return 0
}

// Signals is one tick's worth of sampled sensor values. Recreated every
// tick; downstream components treat it as read-only.
type Signals struct {
	PanelCurrentMA       float64
	LoadCurrentMA        float64
	PanelVoltage         float64
	BatteryVoltage       float64
	BatteryTempC         float64
	PanelSensorAvailable bool
}

// NetCurrentMA is the current actually flowing into the battery.
func (s Signals) NetCurrentMA() float64 {
	return s.PanelCurrentMA - s.LoadCurrentMA
}

// LoadOffTimer tracks a supervisor-requested temporary load disconnect.
type LoadOffTimer struct {
	Active     bool
	StartMs    int64
	DurationMs int64
}

// RemainingSeconds reports how long until the load is re-enabled.
func (t LoadOffTimer) RemainingSeconds(nowMs int64) int64 {
	if !t.Active {
		return 0
	}
	remaining := (t.DurationMs - (nowMs - t.StartMs)) / 1000
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t LoadOffTimer) Expired(nowMs int64) bool {
	return t.Active && nowMs-t.StartMs >= t.DurationMs
}

// GPIOPin describes a digital output.
type GPIOPin struct {
	Number     int
	ActiveHigh bool
}
