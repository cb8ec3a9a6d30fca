package pwm

import (
	"fmt"
	"os"
	"path/filepath"
)

// 40 kHz gate drive
const periodNs = 25000

// SysfsChannel drives a kernel PWM channel through /sys/class/pwm.
type SysfsChannel struct {
	dir string
}

// OpenSysfs exports the channel on the given pwmchip, programs the 40 kHz
// period and enables the output.
func OpenSysfs(chip string, channel int) (*SysfsChannel, error) {
	dir := filepath.Join(chip, fmt.Sprintf("pwm%d", channel))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(chip, "export"), []byte(fmt.Sprint(channel)), 0644); err != nil {
			return nil, fmt.Errorf("failed to export pwm channel %d: %w", channel, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "period"), []byte(fmt.Sprint(periodNs)), 0644); err != nil {
		return nil, fmt.Errorf("failed to set pwm period: %w", err)
	}
	c := &SysfsChannel{dir: dir}
	// start fully off before enabling; the gate driver inverts
	if err := c.WriteRaw(255); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "enable"), []byte("1"), 0644); err != nil {
		return nil, fmt.Errorf("failed to enable pwm: %w", err)
	}
	return c, nil
}

// WriteRaw programs the already-inverted 0-255 register value.
func (c *SysfsChannel) WriteRaw(raw int) error {
	if raw < 0 {
		raw = 0
	}
	if raw > 255 {
		raw = 255
	}
	ns := periodNs * raw / 255
	if err := os.WriteFile(filepath.Join(c.dir, "duty_cycle"), []byte(fmt.Sprint(ns)), 0644); err != nil {
		return fmt.Errorf("failed to write pwm duty_cycle: %w", err)
	}
	return nil
}
