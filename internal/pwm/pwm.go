package pwm

import (
	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/internal/model"
)

// Regulator owns the 0-255 duty register for the charge stage. The gate
// driver inverts, so the value written to hardware is 255 minus the duty.
type Regulator struct {
	duty  int
	write func(raw int) error
}

func New(write func(raw int) error) *Regulator {
	return &Regulator{write: write}
}

func clamp(d int) int {
	if d < 0 {
		return 0
	}
	if d > model.MaxDuty {
		return model.MaxDuty
	}
	return d
}

// Set clamps the duty into [0, 255] and applies the inverted value.
func (r *Regulator) Set(duty int) {
	r.duty = clamp(duty)
	if err := r.write(model.MaxDuty - r.duty); err != nil {
		log.Error().Err(err).Int("duty", r.duty).Msg("Failed to write PWM duty")
	}
}

// Adjust moves the duty by delta and re-applies.
func (r *Regulator) Adjust(delta int) {
	r.Set(r.duty + delta)
}

func (r *Regulator) Duty() int {
	return r.duty
}
