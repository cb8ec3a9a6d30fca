package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrivero/charge-controller/internal/env"
)

// WriteStartupScript emits the boot script that drives every output safe
// before the controller starts: load relay off, LED off, PWM exported and
// parked at zero charge current.
func WriteStartupScript() error {
	cfg := env.Cfg

	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# charge-controller output configuration at boot", "")

	writePin := func(label string, pin int, high bool) {
		val := "0"
		if high {
			val = "1"
		}
		lines = append(lines, fmt.Sprintf("# %s", label))
		lines = append(lines, fmt.Sprintf("echo %d > /sys/class/gpio/export 2>/dev/null || true", pin))
		lines = append(lines, fmt.Sprintf("echo out > /sys/class/gpio/gpio%d/direction", pin))
		lines = append(lines, fmt.Sprintf("echo %s > /sys/class/gpio/gpio%d/value", val, pin))
		lines = append(lines, "")
	}

	if cfg.GPIO.LoadControlPin != nil {
		writePin("load_control", *cfg.GPIO.LoadControlPin, false)
	}
	if cfg.GPIO.SolarLEDPin != nil {
		writePin("solar_led", *cfg.GPIO.SolarLEDPin, false)
	}

	// park the gate drive: the driver inverts, full-scale duty_cycle is
	// zero charge current
	pwmDir := filepath.Join(cfg.PWMChip, fmt.Sprintf("pwm%d", cfg.PWMChannel))
	lines = append(lines, "# pwm gate drive")
	lines = append(lines, fmt.Sprintf("echo %d > %s/export 2>/dev/null || true", cfg.PWMChannel, cfg.PWMChip))
	lines = append(lines, fmt.Sprintf("echo 25000 > %s/period", pwmDir))
	lines = append(lines, fmt.Sprintf("echo 25000 > %s/duty_cycle", pwmDir))
	lines = append(lines, fmt.Sprintf("echo 1 > %s/enable", pwmDir))
	lines = append(lines, "")

	contents := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(cfg.BootScriptFilePath, []byte(contents), 0755)
}

// InstallStartupService writes the oneshot unit that runs the boot script.
func InstallStartupService() error {
	unitContents := fmt.Sprintf(`[Unit]
Description=Configure charge-controller outputs at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, env.Cfg.BootScriptFilePath)

	return os.WriteFile(env.Cfg.OSServicePath, []byte(unitContents), 0644)
}

// InstallChargerService writes the main service unit.
func InstallChargerService() error {
	gpioUnitName := filepath.Base(env.Cfg.OSServicePath)

	unit := fmt.Sprintf(`[Unit]
Description=Solar charge controller
After=%s
Requires=%s

[Service]
Type=simple
WorkingDirectory=/opt/charge-controller
ExecStart=/opt/charge-controller/charge-controller
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, gpioUnitName, gpioUnitName)

	return os.WriteFile(env.Cfg.MainServicePath, []byte(unit), 0644)
}
