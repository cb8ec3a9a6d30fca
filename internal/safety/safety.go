package safety

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/internal/model"
)

// Supervisor runs the protection checks ahead of the state machine every
// tick: confirmed over-voltage and over-temperature, panel-current loss,
// the load disconnect/reconnect hysteresis and the temporary load-off
// timer.
type Supervisor struct {
	TempShutdownC float64

	overVoltage Confirmation
	overTemp    Confirmation
	panelLoss   Confirmation

	LoadOff model.LoadOffTimer

	reentryBelowSinceMs int64

	loadEnabled bool

	// actuation hooks; the controller wires these to the load-control GPIO
	EnableLoad  func()
	DisableLoad func()

	// Notify records a human-readable event (status note + push)
	Notify func(msg string)
}

func NewSupervisor(tempShutdownC float64, enable, disable func()) *Supervisor {
	return &Supervisor{
		TempShutdownC: tempShutdownC,
		overVoltage:   Confirmation{Threshold: 5, IntervalMs: 1000},
		overTemp:      Confirmation{Threshold: 5, IntervalMs: 2000},
		panelLoss:     Confirmation{Threshold: 5, IntervalMs: 100},
		EnableLoad:    enable,
		DisableLoad:   disable,
	}
}

func (s *Supervisor) notify(msg string) {
	if s.Notify != nil {
		s.Notify(msg)
	}
}

// ConfirmOverVoltage returns true once battery voltage has held at or above
// the hard limit for five 1 s-spaced confirmations.
func (s *Supervisor) ConfirmOverVoltage(nowMs int64, batteryV float64) bool {
	fired := s.overVoltage.Observe(nowMs, batteryV >= model.MaxBatteryVoltageAllowed)
	if fired {
		log.Error().Float64("battery_v", batteryV).Msg("Over-voltage confirmed")
		s.notify(fmt.Sprintf("Over-voltage confirmed at %.2f V", batteryV))
	}
	return fired
}

// ConfirmOverTemperature is the same protocol at a 2 s cadence against the
// configured shutdown threshold.
func (s *Supervisor) ConfirmOverTemperature(nowMs int64, tempC float64) bool {
	fired := s.overTemp.Observe(nowMs, tempC >= s.TempShutdownC)
	if fired {
		log.Error().Float64("temp_c", tempC).Msg("Over-temperature confirmed")
		s.notify(fmt.Sprintf("Over-temperature confirmed at %.1f C", tempC))
	}
	return fired
}

// ConfirmPanelLoss watches for the panel stopping production while the PWM
// is still driving. Five 100 ms-spaced confirmations force the duty to
// zero; any healthy reading cancels the sequence.
func (s *Supervisor) ConfirmPanelLoss(nowMs int64, panelMA float64, duty int) bool {
	fired := s.panelLoss.Observe(nowMs, panelMA <= model.PanelCurrentFloorMA && duty != 0)
	if fired {
		log.Warn().Float64("panel_ma", panelMA).Int("duty", duty).Msg("Panel current loss confirmed, dropping duty")
	}
	return fired
}

// Unsafe reports whether either safety signal is currently out of range.
// Used for the boot-time gate and the error-recovery recheck.
func (s *Supervisor) Unsafe(batteryV, tempC float64) bool {
	return batteryV >= model.MaxBatteryVoltageAllowed || tempC >= s.TempShutdownC
}

// UpdateLoadControl applies, in priority order: the ERROR state, the
// temporary load-off timer, then the LVD/LVR hysteresis band.
func (s *Supervisor) UpdateLoadControl(nowMs int64, batteryV float64, state model.ChargeState) {
	if state == model.StateError {
		s.setLoad(false, "load held off in error state")
		return
	}

	if s.LoadOff.Active {
		if !s.LoadOff.Expired(nowMs) {
			s.setLoad(false, "temporary load-off in effect")
			return
		}
		s.LoadOff.Active = false
		if batteryV > model.LVR && batteryV < model.MaxBatteryVoltageAllowed {
			s.setLoad(true, "load re-enabled after timed off period")
			s.notify("Load re-enabled after the requested off period")
		} else {
			s.setLoad(false, "load-off expired with battery voltage out of range")
			s.notify(fmt.Sprintf("Load-off period ended but battery at %.2f V; load stays off", batteryV))
		}
		return
	}

	switch {
	case batteryV < model.LVD || batteryV > model.MaxBatteryVoltageAllowed:
		if s.loadEnabled {
			s.notify(fmt.Sprintf("Low-voltage disconnect at %.2f V", batteryV))
		}
		s.setLoad(false, "voltage outside safe band")
	case batteryV > model.LVR && batteryV < model.MaxBatteryVoltageAllowed:
		if !s.loadEnabled {
			s.notify(fmt.Sprintf("Load reconnected at %.2f V", batteryV))
		}
		s.setLoad(true, "voltage recovered above reconnect threshold")
	}
	// inside [LVD, LVR] the pin keeps its current state
}

// StartLoadOff arms the temporary load-off timer, clamping the request to
// the 8 h cap. An already-armed timer is refreshed.
func (s *Supervisor) StartLoadOff(nowMs int64, seconds int64) int64 {
	if seconds < 1 {
		seconds = 1
	}
	if seconds > model.MaxLoadOffSeconds {
		seconds = model.MaxLoadOffSeconds
	}
	s.LoadOff = model.LoadOffTimer{
		Active:     true,
		StartMs:    nowMs,
		DurationMs: seconds * 1000,
	}
	s.setLoad(false, "temporary load-off requested")
	return seconds
}

// CancelLoadOff clears the timer immediately. The pin comes back subject
// to the reconnect threshold.
func (s *Supervisor) CancelLoadOff(nowMs int64, batteryV float64) {
	s.LoadOff = model.LoadOffTimer{}
	if batteryV > model.LVR && batteryV < model.MaxBatteryVoltageAllowed {
		s.setLoad(true, "load-off cancelled")
	}
}

// SustainedBulkReentry reports a battery that has sat below the re-entry
// voltage for 30 s while not in bulk.
func (s *Supervisor) SustainedBulkReentry(nowMs int64, batteryV float64, state model.ChargeState) bool {
	if state == model.StateBulk || batteryV >= model.BulkReentryVoltage {
		s.reentryBelowSinceMs = 0
		return false
	}
	if s.reentryBelowSinceMs == 0 {
		s.reentryBelowSinceMs = nowMs
		return false
	}
	if nowMs-s.reentryBelowSinceMs >= 30_000 {
		s.reentryBelowSinceMs = 0
		return true
	}
	return false
}

func (s *Supervisor) setLoad(enabled bool, reason string) {
	if s.loadEnabled == enabled {
		return
	}
	s.loadEnabled = enabled
	if enabled {
		log.Info().Str("reason", reason).Msg("Load control ON")
		if s.EnableLoad != nil {
			s.EnableLoad()
		}
	} else {
		log.Info().Str("reason", reason).Msg("Load control OFF")
		if s.DisableLoad != nil {
			s.DisableLoad()
		}
	}
}

// ForceLoadState is used once at boot to make the in-memory state match
// the pin state the startup script left behind.
func (s *Supervisor) ForceLoadState(enabled bool) {
	s.loadEnabled = enabled
}

func (s *Supervisor) LoadEnabled() bool {
	return s.loadEnabled
}

func (s *Supervisor) LoadState() string {
	if s.loadEnabled {
		return "ON"
	}
	return "OFF"
}
