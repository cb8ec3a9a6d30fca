package sensor

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	readings []float64
	idx      int
	voltage  float64
	probeErr error
}

func (f *fakeSource) ShuntCurrent() (float64, error) {
	if len(f.readings) == 0 {
		return 0, errors.New("no readings")
	}
	v := f.readings[f.idx%len(f.readings)]
	f.idx++
	return v, nil
}

func (f *fakeSource) BusVoltage() (float64, error) { return f.voltage, nil }
func (f *fakeSource) Probe() error                 { return f.probeErr }

type fakeADC struct {
	raw float64
	err error
}

func (f *fakeADC) ReadRaw() (float64, error) { return f.raw, f.err }

func newTestSampler(battery, panel Source, ntc ADC) *Sampler {
	s := NewSampler(battery, panel, ntc)
	s.SampleWait = nil
	return s
}

func TestAveragedCurrentRejectsOutOfRange(t *testing.T) {
	// raw counts scale x10: 100 -> 1000 mA, 900 -> 9000 mA (over a 6000 mA cap)
	src := &fakeSource{readings: []float64{100, 900, 100, -5}}
	s := newTestSampler(src, nil, nil)

	avg := s.averagedCurrent(src, 6000)
	assert.InDelta(t, 1000.0, avg, 0.001)
}

func TestAveragedCurrentAllInvalid(t *testing.T) {
	src := &fakeSource{readings: []float64{-1, 100000}}
	s := newTestSampler(src, nil, nil)

	assert.Equal(t, 0.0, s.averagedCurrent(src, 6000))
}

func TestSampleSanitizesVoltage(t *testing.T) {
	battery := &fakeSource{readings: []float64{100}, voltage: math.NaN()}
	s := newTestSampler(battery, nil, nil)

	sig := s.Sample(6000)
	assert.Equal(t, 0.0, sig.BatteryVoltage)
	assert.False(t, sig.PanelSensorAvailable)
	assert.Equal(t, 0.0, sig.PanelCurrentMA)
}

func TestSampleWithPanel(t *testing.T) {
	battery := &fakeSource{readings: []float64{50}, voltage: 12.6}
	panel := &fakeSource{readings: []float64{200}, voltage: 18.2}
	s := newTestSampler(battery, panel, nil)
	s.PanelAvailable = true

	sig := s.Sample(6000)
	assert.InDelta(t, 2000.0, sig.PanelCurrentMA, 0.001)
	assert.InDelta(t, 500.0, sig.LoadCurrentMA, 0.001)
	assert.InDelta(t, 18.2, sig.PanelVoltage, 0.001)
	assert.InDelta(t, 12.6, sig.BatteryVoltage, 0.001)
}

func TestCheckPanelRespectsInterval(t *testing.T) {
	panel := &fakeSource{probeErr: errors.New("nack")}
	s := newTestSampler(&fakeSource{}, panel, nil)

	s.CheckPanel(0)
	assert.False(t, s.PanelAvailable)

	// sensor recovers, but the minute has not elapsed
	panel.probeErr = nil
	s.CheckPanel(30_000)
	assert.False(t, s.PanelAvailable)

	s.CheckPanel(61_000)
	assert.True(t, s.PanelAvailable)
}

func TestThermistorConversion(t *testing.T) {
	// at nominal resistance the divider sits at mid-scale and reads 25 C
	assert.InDelta(t, 25.0, thermistorCelsius(adcResolution/2), 0.2)

	// hotter thermistor -> lower resistance -> lower count on this divider
	assert.Greater(t, thermistorCelsius(1000), thermistorCelsius(adcResolution/2))

	// clipped or shorted inputs sanitize to 0
	assert.Equal(t, 0.0, thermistorCelsius(0))
	assert.Equal(t, 0.0, thermistorCelsius(adcResolution))
}

func TestTemperatureAveragesSamples(t *testing.T) {
	s := newTestSampler(&fakeSource{}, nil, &fakeADC{raw: adcResolution / 2})
	assert.InDelta(t, 25.0, s.Temperature(), 0.2)

	s.NTC = &fakeADC{err: errors.New("adc dead")}
	assert.Equal(t, 0.0, s.Temperature())
}
