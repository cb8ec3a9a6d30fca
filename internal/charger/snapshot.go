package charger

import (
	"encoding/json"
	"time"

	"github.com/mrivero/charge-controller/internal/model"
)

// Snapshot is the full state document served on /data and over the
// supervisor link. Field names are the wire contract; supervisors key on
// them.
type Snapshot struct {
	PanelToBatteryCurrent        float64 `json:"panelToBatteryCurrent"`
	BatteryToLoadCurrent         float64 `json:"batteryToLoadCurrent"`
	VoltagePanel                 float64 `json:"voltagePanel"`
	VoltageBatterySensor2        float64 `json:"voltageBatterySensor2"`
	CurrentPWM                   int     `json:"currentPWM"`
	Temperature                  float64 `json:"temperature"`
	ChargeState                  string  `json:"chargeState"`
	BulkVoltage                  float64 `json:"bulkVoltage"`
	AbsorptionVoltage            float64 `json:"absorptionVoltage"`
	FloatVoltage                 float64 `json:"floatVoltage"`
	LVD                          float64 `json:"LVD"`
	LVR                          float64 `json:"LVR"`
	BatteryCapacity              float64 `json:"batteryCapacity"`
	ThresholdPercentage          float64 `json:"thresholdPercentage"`
	MaxAllowedCurrent            float64 `json:"maxAllowedCurrent"`
	IsLithium                    bool    `json:"isLithium"`
	MaxBatteryVoltageAllowed     float64 `json:"maxBatteryVoltageAllowed"`
	AbsorptionCurrentThresholdMA float64 `json:"absorptionCurrentThreshold_mA"`
	CurrentLimitIntoFloatStage   float64 `json:"currentLimitIntoFloatStage"`
	CalculatedAbsorptionHours    float64 `json:"calculatedAbsorptionHours"`
	AccumulatedAh                float64 `json:"accumulatedAh"`
	EstimatedSOC                 float64 `json:"estimatedSOC"`
	NetCurrent                   float64 `json:"netCurrent"`
	FactorDivider                int     `json:"factorDivider"`
	UseFuenteDC                  bool    `json:"useFuenteDC"`
	FuenteDCAmps                 float64 `json:"fuenteDC_Amps"`
	MaxBulkHours                 float64 `json:"maxBulkHours"`
	CurrentBulkHours             float64 `json:"currentBulkHours"`
	PanelSensorAvailable         bool    `json:"panelSensorAvailable"`
	TemporaryLoadOff             bool    `json:"temporaryLoadOff"`
	LoadOffRemainingSeconds      int64   `json:"loadOffRemainingSeconds"`
	LoadOffDuration              int64   `json:"loadOffDuration"`
	LoadOffMaxDuration           int64   `json:"loadOffMaxDuration"`
	LoadControlState             string  `json:"loadControlState"`
	NotaPersonalizada            string  `json:"notaPersonalizada"`
	Connected                    bool    `json:"connected"`
	FirmwareVersion              string  `json:"firmware_version"`
	Uptime                       int64   `json:"uptime"`
}

// Snapshot assembles the state document under the lock.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	nowMs := c.now()

	var bulkHours float64
	if c.state == model.StateBulk && c.bulkStartMs > 0 {
		bulkHours = float64(nowMs-c.bulkStartMs) / 3.6e6
	}

	return Snapshot{
		PanelToBatteryCurrent:        c.sig.PanelCurrentMA,
		BatteryToLoadCurrent:         c.sig.LoadCurrentMA,
		VoltagePanel:                 c.sig.PanelVoltage,
		VoltageBatterySensor2:        c.sig.BatteryVoltage,
		CurrentPWM:                   c.reg.Duty(),
		Temperature:                  c.sig.BatteryTempC,
		ChargeState:                  string(c.state),
		BulkVoltage:                  c.tun.BulkVoltage,
		AbsorptionVoltage:            c.tun.AbsorptionVoltage,
		FloatVoltage:                 c.tun.FloatVoltage,
		LVD:                          model.LVD,
		LVR:                          model.LVR,
		BatteryCapacity:              c.tun.BatteryCapacityAh,
		ThresholdPercentage:          c.tun.ThresholdPercent,
		MaxAllowedCurrent:            c.tun.MaxAllowedCurrent,
		IsLithium:                    c.tun.IsLithium,
		MaxBatteryVoltageAllowed:     model.MaxBatteryVoltageAllowed,
		AbsorptionCurrentThresholdMA: c.tun.AbsorptionCurrentThreshold(),
		CurrentLimitIntoFloatStage:   c.tun.CurrentLimitIntoFloat(),
		CalculatedAbsorptionHours:    c.absorptionHours,
		AccumulatedAh:                c.counter.AccumulatedAh(),
		EstimatedSOC:                 c.counter.SOC(c.tun.BatteryCapacityAh),
		NetCurrent:                   c.sig.NetCurrentMA(),
		FactorDivider:                c.tun.FactorDivider,
		UseFuenteDC:                  c.tun.UseDCSource,
		FuenteDCAmps:                 c.tun.DCSourceAmps,
		MaxBulkHours:                 c.tun.MaxBulkHours(),
		CurrentBulkHours:             bulkHours,
		PanelSensorAvailable:         c.sig.PanelSensorAvailable,
		TemporaryLoadOff:             c.sup.LoadOff.Active,
		LoadOffRemainingSeconds:      c.sup.LoadOff.RemainingSeconds(nowMs),
		LoadOffDuration:              c.sup.LoadOff.DurationMs / 1000,
		LoadOffMaxDuration:           model.MaxLoadOffSeconds,
		LoadControlState:             c.sup.LoadState(),
		NotaPersonalizada:            c.note,
		Connected:                    true,
		FirmwareVersion:              FirmwareVersion,
		Uptime:                       int64(time.Since(c.bootTime).Seconds()),
	}
}

// SnapshotJSON renders the snapshot; the note is escaped by the encoder.
func (c *Controller) SnapshotJSON() (string, error) {
	b, err := json.Marshal(c.Snapshot())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
