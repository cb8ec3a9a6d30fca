package config

import (
	"testing"
)

func intPtr(n int) *int { return &n }

func validConfig() Config {
	return Config{
		SerialDevice:  "/dev/ttyS1",
		TempShutdownC: 90,
		GPIO: GPIO{
			LoadControlPin: intPtr(7),
			SolarLEDPin:    intPtr(3),
		},
		Sensors: Sensors{
			BatteryHwmonDir: "/sys/class/hwmon/hwmon2",
			PanelHwmonDir:   "/sys/class/hwmon/hwmon3",
			NTCAdcPath:      "/sys/bus/iio/devices/iio:device0/in_voltage3_raw",
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	cfg.validate() // should not panic
}

func TestValidate_MissingPins(t *testing.T) {
	cfg := validConfig()
	cfg.GPIO.LoadControlPin = nil

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic due to missing GPIO config, but got none")
		}
	}()

	cfg.validate()
}

func TestValidate_PinConflict(t *testing.T) {
	cfg := validConfig()
	cfg.GPIO.SolarLEDPin = intPtr(*cfg.GPIO.LoadControlPin)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic due to conflicting pin numbers, but got none")
		}
	}()

	cfg.validate()
}

func TestValidate_BadTempThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.TempShutdownC = 70

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic due to unsupported shutdown threshold, but got none")
		}
	}()

	cfg.validate()
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	if cfg.SerialBaud != 9600 {
		t.Errorf("expected default baud 9600, got %d", cfg.SerialBaud)
	}
	if cfg.TickIntervalMs != 1000 {
		t.Errorf("expected default tick interval 1000ms, got %d", cfg.TickIntervalMs)
	}
	if cfg.PersistIntervalSec != 300 {
		t.Errorf("expected default persist interval 300s, got %d", cfg.PersistIntervalSec)
	}
	if cfg.TempShutdownC != 90 {
		t.Errorf("expected default shutdown threshold 90, got %v", cfg.TempShutdownC)
	}
}
