package sensor

import "math"

// NTC divider constants: 10k series resistor against a 10k-at-25C
// thermistor with beta 3984, read by a 12-bit ADC.
const (
	seriesResistor     = 10000.0
	nominalResistance  = 10000.0
	nominalTemperature = 25.0
	beta               = 3984.0
	adcResolution      = 4095.0
)

// thermistorCelsius converts a raw ADC count to degrees Celsius. Readings
// that would divide by zero or produce a non-finite result come back as 0.
func thermistorCelsius(adc float64) float64 {
	if adc <= 0 || adc >= adcResolution {
		return 0
	}
	resistance := seriesResistor / (adcResolution/adc - 1.0)
	invT := 1.0/(nominalTemperature+273.15) + math.Log(resistance/nominalResistance)/beta
	t := 1.0/invT - 273.15
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}
	return t
}
