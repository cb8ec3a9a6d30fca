package gpio

import (
	"fmt"

	"github.com/mrivero/charge-controller/internal/model"
	"github.com/mrivero/charge-controller/internal/sysgpio"
	"github.com/mrivero/charge-controller/system/shutdown"
)

var safeMode bool

func SetSafeMode(enabled bool) {
	safeMode = enabled
}

// Setup exports a pin and drives it to its inactive state.
func Setup(pin model.GPIOPin) error {
	if safeMode {
		return nil
	}
	if err := sysgpio.Export(pin.Number); err != nil {
		return err
	}
	return sysgpio.SetLevel(pin.Number, !pin.ActiveHigh)
}

func Read(pin model.GPIOPin) bool {
	level, err := sysgpio.ReadLevel(pin.Number)
	if err != nil {
		shutdown.ShutdownWithError(err, fmt.Sprintf("Failed to read pin level for pin %d", pin.Number))
	}
	return level
}

var Activate = func(pin model.GPIOPin) {
	if safeMode {
		return
	}

	if err := sysgpio.SetLevel(pin.Number, pin.ActiveHigh); err != nil {
		shutdown.ShutdownWithError(err, fmt.Sprintf("Failed to activate pin %d", pin.Number))
	}
}

var Deactivate = func(pin model.GPIOPin) {
	if safeMode {
		return
	}

	if err := sysgpio.SetLevel(pin.Number, !pin.ActiveHigh); err != nil {
		shutdown.ShutdownWithError(err, fmt.Sprintf("Failed to deactivate pin %d", pin.Number))
	}
}

var CurrentlyActive = func(pin model.GPIOPin) bool {
	level := Read(pin)
	return pin.ActiveHigh == level
}
