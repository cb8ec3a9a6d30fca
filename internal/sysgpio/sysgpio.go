package sysgpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Base is a package variable so tests can point the sysfs root at a
// temporary directory.
var Base = "/sys/class/gpio"

func pinDir(pin int) string {
	return filepath.Join(Base, fmt.Sprintf("gpio%d", pin))
}

// Export makes a pin available through sysfs and sets it as an output.
// Exporting an already-exported pin is not an error.
func Export(pin int) error {
	if _, err := os.Stat(pinDir(pin)); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(Base, "export"), []byte(fmt.Sprint(pin)), 0644); err != nil {
			return fmt.Errorf("failed to export gpio %d: %w", pin, err)
		}
	}
	if err := os.WriteFile(filepath.Join(pinDir(pin), "direction"), []byte("out"), 0644); err != nil {
		return fmt.Errorf("failed to set gpio %d direction: %w", pin, err)
	}
	return nil
}

// SetLevel drives an exported output pin high or low.
func SetLevel(pin int, high bool) error {
	val := "0"
	if high {
		val = "1"
	}
	if err := os.WriteFile(filepath.Join(pinDir(pin), "value"), []byte(val), 0644); err != nil {
		return fmt.Errorf("failed to write gpio %d value: %w", pin, err)
	}
	return nil
}

// ReadLevel returns the current logic level of a pin.
func ReadLevel(pin int) (bool, error) {
	data, err := os.ReadFile(filepath.Join(pinDir(pin), "value"))
	if err != nil {
		return false, fmt.Errorf("failed to read level for pin %d: %w", pin, err)
	}
	switch strings.TrimSpace(string(data)) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected gpio value for pin %d: %q", pin, strings.TrimSpace(string(data)))
	}
}
