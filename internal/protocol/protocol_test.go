package protocol

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeController struct {
	setParam  string
	setValue  string
	setErr    error
	toggled   int64
	cancelled bool
}

func (f *fakeController) SnapshotJSON() (string, error) {
	return `{"chargeState":"BULK_CHARGE"}`, nil
}

func (f *fakeController) SetParam(param, value string) (string, error) {
	f.setParam, f.setValue = param, value
	if f.setErr != nil {
		return "", f.setErr
	}
	return param + " applied", nil
}

func (f *fakeController) ToggleLoad(seconds int64) int64 {
	if seconds > 28800 {
		seconds = 28800
	}
	if seconds < 1 {
		seconds = 1
	}
	f.toggled = seconds
	return seconds
}

func (f *fakeController) CancelTempOff() { f.cancelled = true }

func TestLineBufferFraming(t *testing.T) {
	var b LineBuffer

	lines, overflows := b.Feed([]byte("CMD:GET_DATA\r\nCMD:CAN"))
	assert.Equal(t, []string{"CMD:GET_DATA"}, lines)
	assert.Zero(t, overflows)

	lines, _ = b.Feed([]byte("CEL_TEMP_OFF\n"))
	assert.Equal(t, []string{"CMD:CANCEL_TEMP_OFF"}, lines)
}

func TestLineBufferOverflowDiscards(t *testing.T) {
	var b LineBuffer

	lines, overflows := b.Feed([]byte(strings.Repeat("x", 300)))
	assert.Empty(t, lines)
	assert.Equal(t, 1, overflows)

	// the partial garbage after the overflow is gone too
	lines, overflows = b.Feed([]byte("\nCMD:GET_DATA\n"))
	assert.Zero(t, overflows)
	assert.Equal(t, []string{"CMD:GET_DATA"}, lines)
}

func TestGetData(t *testing.T) {
	d := Dispatcher{Ctrl: &fakeController{}}

	resp := d.Handle("CMD:GET_DATA")
	assert.True(t, strings.HasPrefix(resp, "DATA:{"))
	assert.Contains(t, resp, "BULK_CHARGE")
}

func TestSetDispatch(t *testing.T) {
	f := &fakeController{}
	d := Dispatcher{Ctrl: f}

	resp := d.Handle("CMD:SET_BULK_VOLTAGE:14.5")
	assert.Equal(t, "OK:BULK_VOLTAGE applied", resp)
	assert.Equal(t, "BULK_VOLTAGE", f.setParam)
	assert.Equal(t, "14.5", f.setValue)
}

func TestSetRejectionPassesThrough(t *testing.T) {
	f := &fakeController{setErr: fmt.Errorf("Invalid value for max current: 99")}
	d := Dispatcher{Ctrl: f}

	resp := d.Handle("CMD:SET_MAX_CURRENT:99")
	assert.Equal(t, "ERROR:Invalid value for max current: 99", resp)
}

func TestMalformedSet(t *testing.T) {
	d := Dispatcher{Ctrl: &fakeController{}}

	assert.Equal(t, "ERROR:Malformed SET command", d.Handle("CMD:SET_BULK_VOLTAGE"))
	assert.Equal(t, "ERROR:Malformed SET command", d.Handle("CMD:SET_:14.5"))
	assert.Equal(t, "ERROR:Malformed SET command", d.Handle("CMD:SET_BULK_VOLTAGE:"))
}

func TestToggleLoad(t *testing.T) {
	f := &fakeController{}
	d := Dispatcher{Ctrl: f}

	resp := d.Handle("CMD:TOGGLE_LOAD:50000")
	assert.Equal(t, "OK:Load off for 28800 seconds", resp)
	assert.Equal(t, int64(28800), f.toggled)

	resp = d.Handle("CMD:TOGGLE_LOAD:abc")
	assert.True(t, strings.HasPrefix(resp, "ERROR:Invalid duration"))
}

func TestCancelTempOff(t *testing.T) {
	f := &fakeController{}
	d := Dispatcher{Ctrl: f}

	resp := d.Handle("CMD:CANCEL_TEMP_OFF")
	assert.Equal(t, "OK:Temporary load-off cancelled", resp)
	assert.True(t, f.cancelled)
}

func TestUnknownCommand(t *testing.T) {
	d := Dispatcher{Ctrl: &fakeController{}}

	resp := d.Handle("CMD:REBOOT")
	assert.True(t, strings.HasPrefix(resp, "ERROR:Unknown command"))

	assert.Equal(t, "", d.Handle("   "))
}
