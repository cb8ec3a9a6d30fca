package shutdown

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/internal/env"
	"github.com/mrivero/charge-controller/internal/sysgpio"
)

// Shutdown drives the outputs to their safe states and exits. The gate
// driver inverts, so full-scale duty_cycle means zero charge current.
func Shutdown() {
	if env.Cfg != nil && !env.Cfg.SafeMode {
		pwmDir := filepath.Join(env.Cfg.PWMChip, fmt.Sprintf("pwm%d", env.Cfg.PWMChannel))
		if err := os.WriteFile(filepath.Join(pwmDir, "duty_cycle"), []byte("25000"), 0644); err != nil {
			log.Error().Err(err).Msg("Could not zero PWM on shutdown")
		}

		if env.Cfg.GPIO.LoadControlPin != nil {
			if err := sysgpio.SetLevel(*env.Cfg.GPIO.LoadControlPin, false); err != nil {
				log.Error().Err(err).Msg("Could not disconnect load on shutdown")
			}
		}
		log.Info().Msg("Outputs driven safe")
	}
	os.Exit(0)
}

func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	Shutdown()
}
