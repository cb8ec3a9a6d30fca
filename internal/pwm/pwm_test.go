package pwm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetClampsAndInverts(t *testing.T) {
	var raw int
	r := New(func(v int) error { raw = v; return nil })

	r.Set(100)
	assert.Equal(t, 100, r.Duty())
	assert.Equal(t, 155, raw)

	r.Set(-20)
	assert.Equal(t, 0, r.Duty())
	assert.Equal(t, 255, raw)

	r.Set(999)
	assert.Equal(t, 255, r.Duty())
	assert.Equal(t, 0, raw)
}

func TestAdjustStaysInRange(t *testing.T) {
	var raw int
	r := New(func(v int) error { raw = v; return nil })

	r.Adjust(5)
	r.Adjust(5)
	assert.Equal(t, 10, r.Duty())

	r.Adjust(-50)
	assert.Equal(t, 0, r.Duty())
	assert.Equal(t, 255, raw)

	for i := 0; i < 300; i++ {
		r.Adjust(1)
	}
	assert.Equal(t, 255, r.Duty())
	assert.Equal(t, 0, raw)
}
