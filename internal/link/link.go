package link

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/mrivero/charge-controller/internal/protocol"
)

const heartbeatInterval = 30 * time.Second

// Link runs the line-oriented supervisor protocol over a serial port
// (8N1, 9600 bps by convention).
type Link struct {
	port serial.Port
	disp protocol.Dispatcher
}

func Open(device string, baud int, ctrl protocol.Controller) (*Link, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open supervisor link %s: %w", device, err)
	}
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	log.Info().Str("device", device).Int("baud", baud).Msg("Supervisor link open")
	return &Link{
		port: port,
		disp: protocol.Dispatcher{Ctrl: ctrl},
	}, nil
}

// Run drains the link and answers commands until stopped. A quiet link
// gets a heartbeat every 30 s.
func (l *Link) Run(stop <-chan struct{}) {
	defer l.port.Close()

	var lb protocol.LineBuffer
	buf := make([]byte, 256)
	lastTraffic := time.Now()

	for {
		select {
		case <-stop:
			log.Info().Msg("Supervisor link closing")
			return
		default:
		}

		n, err := l.port.Read(buf)
		if err != nil {
			log.Error().Err(err).Msg("Supervisor link read failed")
			time.Sleep(time.Second)
			continue
		}

		if n > 0 {
			lines, overflows := lb.Feed(buf[:n])
			for i := 0; i < overflows; i++ {
				log.Warn().Msg("Supervisor link line overflow, buffer discarded")
				l.writeLine(protocol.OverflowResponse)
			}
			for _, line := range lines {
				if resp := l.disp.Handle(line); resp != "" {
					l.writeLine(resp)
				}
			}
			if len(lines) > 0 || overflows > 0 {
				lastTraffic = time.Now()
			}
		}

		if time.Since(lastTraffic) >= heartbeatInterval {
			l.writeLine(protocol.Heartbeat)
			lastTraffic = time.Now()
		}
	}
}

func (l *Link) writeLine(s string) {
	if _, err := l.port.Write([]byte(s + "\n")); err != nil {
		log.Error().Err(err).Msg("Supervisor link write failed")
	}
}
