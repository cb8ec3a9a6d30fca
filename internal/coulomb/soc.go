package coulomb

// Resting-voltage SOC breakpoints for a 12 V lead bank.
var socTable = []struct {
	voltage float64
	soc     float64
}{
	{11.5, 5},
	{11.8, 10},
	{12.0, 20},
	{12.4, 40},
	{12.8, 60},
	{13.2, 80},
	{13.8, 95},
	{14.4, 100},
}

// EstimateSOCFromVoltage interpolates linearly between the breakpoints.
// Below the table it returns 0, above it 100.
func EstimateSOCFromVoltage(v float64) float64 {
	if v < socTable[0].voltage {
		return 0
	}
	last := socTable[len(socTable)-1]
	if v >= last.voltage {
		return 100
	}
	for i := 1; i < len(socTable); i++ {
		lo, hi := socTable[i-1], socTable[i]
		if v < hi.voltage {
			frac := (v - lo.voltage) / (hi.voltage - lo.voltage)
			return lo.soc + frac*(hi.soc-lo.soc)
		}
	}
	return 100
}
