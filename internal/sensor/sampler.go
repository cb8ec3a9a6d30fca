package sensor

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/internal/model"
)

const (
	numSamples = 20

	// 10 mOhm shunt convention: each raw reading times 10 is milliamps
	shuntScale = 10.0

	// unavailable panel sensors are reprobed on this cadence
	panelRecheckMs = 60_000
)

// Sampler produces the averaged per-tick signal set from the two
// current/voltage sensors and the NTC divider.
type Sampler struct {
	Battery Source
	Panel   Source
	NTC     ADC

	PanelAvailable bool
	lastPanelCheck int64

	// spacing between raw samples; nil skips the wait (tests)
	SampleWait func()
}

func NewSampler(battery, panel Source, ntc ADC) *Sampler {
	return &Sampler{
		Battery:    battery,
		Panel:      panel,
		NTC:        ntc,
		SampleWait: func() { time.Sleep(2 * time.Millisecond) },
	}
}

// Init probes both sensors. A dead battery sensor is fatal for the
// controller; a dead panel sensor just zeroes the panel signals until a
// later recheck finds it.
func (s *Sampler) Init() error {
	if err := s.Battery.Probe(); err != nil {
		return err
	}
	if s.Panel != nil {
		if err := s.Panel.Probe(); err != nil {
			log.Warn().Err(err).Msg("Panel sensor not responding, continuing without it")
			s.PanelAvailable = false
		} else {
			s.PanelAvailable = true
		}
	}
	return nil
}

// Sample reads one tick's worth of signals. maxAllowedMA bounds sample
// validity for the current averages.
func (s *Sampler) Sample(maxAllowedMA float64) model.Signals {
	sig := model.Signals{PanelSensorAvailable: s.PanelAvailable}

	if s.PanelAvailable {
		sig.PanelCurrentMA = s.averagedCurrent(s.Panel, maxAllowedMA)
		if v, err := s.Panel.BusVoltage(); err == nil {
			sig.PanelVoltage = sanitize(v)
		}
	}

	sig.LoadCurrentMA = s.averagedCurrent(s.Battery, maxAllowedMA)
	if v, err := s.Battery.BusVoltage(); err == nil {
		sig.BatteryVoltage = sanitize(v)
	}

	sig.BatteryTempC = s.Temperature()
	return sig
}

// averagedCurrent takes numSamples raw shunt readings, applies the shunt
// scaling, drops anything outside [0, maxAllowedMA] and returns the mean
// of what survived. No valid samples means zero.
func (s *Sampler) averagedCurrent(src Source, maxAllowedMA float64) float64 {
	var sum float64
	var valid int
	for i := 0; i < numSamples; i++ {
		raw, err := src.ShuntCurrent()
		if err != nil {
			continue
		}
		mA := raw * shuntScale
		if mA < 0 || mA > maxAllowedMA || math.IsNaN(mA) {
			continue
		}
		sum += mA
		valid++
		if s.SampleWait != nil {
			s.SampleWait()
		}
	}
	if valid == 0 {
		return 0
	}
	return sum / float64(valid)
}

// Temperature averages numSamples raw ADC reads and converts through the
// divider and the beta-parameter Steinhart-Hart form.
func (s *Sampler) Temperature() float64 {
	if s.NTC == nil {
		return 0
	}
	var sum float64
	var valid int
	for i := 0; i < numSamples; i++ {
		raw, err := s.NTC.ReadRaw()
		if err != nil {
			continue
		}
		sum += raw
		valid++
		if s.SampleWait != nil {
			s.SampleWait()
		}
	}
	if valid == 0 {
		return 0
	}
	return thermistorCelsius(sum / float64(valid))
}

// CheckPanel reprobes an unavailable panel sensor at most once per minute.
func (s *Sampler) CheckPanel(nowMs int64) {
	if s.PanelAvailable || s.Panel == nil {
		return
	}
	if nowMs-s.lastPanelCheck < panelRecheckMs {
		return
	}
	s.lastPanelCheck = nowMs
	if err := s.Panel.Probe(); err != nil {
		log.Debug().Err(err).Msg("Panel sensor still unreachable")
		return
	}
	s.PanelAvailable = true
	log.Info().Msg("Panel sensor back online")
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
