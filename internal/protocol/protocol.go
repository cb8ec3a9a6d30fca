package protocol

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Controller is the command surface the dispatcher drives. Implemented by
// the charge controller; every method serializes against the tick.
type Controller interface {
	SnapshotJSON() (string, error)
	SetParam(param, value string) (string, error)
	ToggleLoad(seconds int64) int64
	CancelTempOff()
}

// Heartbeat is the idle keepalive sent on the supervisor link. Existing
// supervisors match this exact string.
const Heartbeat = "HEARTBEAT:ESP32 Online"

// Dispatcher parses one command line and produces the response line.
type Dispatcher struct {
	Ctrl Controller
}

// Handle never mutates state on a malformed frame; the error response
// carries the reason.
func (d *Dispatcher) Handle(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}

	log.Debug().Str("line", line).Msg("Supervisor command received")

	switch {
	case line == "CMD:GET_DATA":
		data, err := d.Ctrl.SnapshotJSON()
		if err != nil {
			return "ERROR:Could not serialize snapshot"
		}
		return "DATA:" + data

	case strings.HasPrefix(line, "CMD:SET_"):
		rest := strings.TrimPrefix(line, "CMD:SET_")
		sep := strings.Index(rest, ":")
		if sep <= 0 || sep == len(rest)-1 {
			return "ERROR:Malformed SET command"
		}
		param, value := rest[:sep], rest[sep+1:]
		msg, err := d.Ctrl.SetParam(param, value)
		if err != nil {
			return "ERROR:" + err.Error()
		}
		return "OK:" + msg

	case strings.HasPrefix(line, "CMD:TOGGLE_LOAD:"):
		arg := strings.TrimPrefix(line, "CMD:TOGGLE_LOAD:")
		seconds, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil {
			return "ERROR:Invalid duration: " + arg
		}
		granted := d.Ctrl.ToggleLoad(seconds)
		return "OK:Load off for " + strconv.FormatInt(granted, 10) + " seconds"

	case line == "CMD:CANCEL_TEMP_OFF":
		d.Ctrl.CancelTempOff()
		return "OK:Temporary load-off cancelled"

	default:
		return "ERROR:Unknown command: " + line
	}
}

// OverflowResponse is sent when the link delivers more than maxLineLen
// bytes without a terminator.
const OverflowResponse = "ERROR:Line too long, buffer discarded"
