package watchdog

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// Watchdog pets the kernel watchdog device. If the main loop stalls past
// the hardware timeout the board resets itself.
type Watchdog struct {
	f *os.File
}

// Open returns nil when no device is configured; petting a nil watchdog
// is a no-op.
func Open(device string) (*Watchdog, error) {
	if device == "" {
		return nil, nil
	}
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open watchdog %s: %w", device, err)
	}
	log.Info().Str("device", device).Msg("Hardware watchdog armed")
	return &Watchdog{f: f}, nil
}

func (w *Watchdog) Pet() {
	if w == nil {
		return
	}
	if _, err := w.f.Write([]byte{0}); err != nil {
		log.Error().Err(err).Msg("Watchdog pet failed")
	}
}

// Close performs the magic-close handshake so the board does not reset
// after a clean exit.
func (w *Watchdog) Close() {
	if w == nil {
		return
	}
	w.f.Write([]byte("V"))
	w.f.Close()
}
