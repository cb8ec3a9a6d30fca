package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Source is one high-side current/voltage sensor.
type Source interface {
	// ShuntCurrent returns the raw shunt reading. The sampler applies the
	// 10 mOhm shunt scaling.
	ShuntCurrent() (float64, error)
	// BusVoltage returns the bus voltage in volts.
	BusVoltage() (float64, error)
	// Probe checks that the sensor answers at all.
	Probe() error
}

// Hwmon reads an ina2xx instance bound by the kernel hwmon driver,
// e.g. /sys/class/hwmon/hwmon2.
type Hwmon struct {
	Dir string
}

var readSysfsValue = func(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed sysfs value in %s: %w", path, err)
	}
	return v, nil
}

func (h *Hwmon) ShuntCurrent() (float64, error) {
	return readSysfsValue(filepath.Join(h.Dir, "curr1_input"))
}

func (h *Hwmon) BusVoltage() (float64, error) {
	mv, err := readSysfsValue(filepath.Join(h.Dir, "in1_input"))
	if err != nil {
		return 0, err
	}
	return mv / 1000.0, nil
}

func (h *Hwmon) Probe() error {
	if _, err := os.Stat(filepath.Join(h.Dir, "curr1_input")); err != nil {
		return fmt.Errorf("sensor not reachable at %s: %w", h.Dir, err)
	}
	_, err := h.ShuntCurrent()
	return err
}

// ADC reads one raw thermistor sample.
type ADC interface {
	ReadRaw() (float64, error)
}

// IIOChannel reads a raw iio ADC channel file, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage3_raw.
type IIOChannel struct {
	Path string
}

func (c *IIOChannel) ReadRaw() (float64, error) {
	return readSysfsValue(c.Path)
}
