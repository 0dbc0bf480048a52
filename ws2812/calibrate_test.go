package ws2812_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/physic"

	. "github.com/coreman2200/ws2812delay/ws2812"
)

func TestCalibrator_Converges(t *testing.T) {
	c := Calibrator{MaxStep: 4}
	// The loop runs 25% slow: every unit costs 1.25 nominal units.
	unit := uint32(417)
	want := 1250 * time.Nanosecond
	target := uint32(334)
	steps := 0
	for unit != target {
		observed := time.Duration(uint64(unit) * 1250 * 5 / (4 * 417))
		next := c.Adjust(unit, observed, want)
		assert.LessOrEqual(t, unit-next, uint32(4))
		assert.GreaterOrEqual(t, next, target, "overshoot")
		unit = next
		steps++
		if !assert.Less(t, steps, 100) {
			return
		}
	}
	assert.Equal(t, 21, steps)
	// Once there it stays.
	observed := time.Duration(uint64(unit) * 1250 * 5 / (4 * 417))
	assert.Equal(t, target, c.Adjust(unit, observed, want))
}

func TestCalibrator_NoStepLimit(t *testing.T) {
	assert.Equal(t, uint32(209), Calibrator{}.Adjust(417, 2500*time.Nanosecond, 1250*time.Nanosecond))
	assert.Equal(t, uint32(834), Calibrator{}.Adjust(417, 625*time.Nanosecond, 1250*time.Nanosecond))
}

func TestCalibrator_Clamp(t *testing.T) {
	c := Calibrator{Min: 30, Max: 40}
	assert.Equal(t, uint32(30), c.Adjust(33, 2*time.Microsecond, time.Microsecond))
	assert.Equal(t, uint32(40), c.Adjust(33, time.Microsecond, 2*time.Microsecond))
	assert.Equal(t, uint32(1), Calibrator{}.Adjust(1, time.Second, time.Nanosecond))
}

func TestCalibrator_BadInput(t *testing.T) {
	c := Calibrator{MaxStep: 1}
	assert.Equal(t, uint32(33), c.Adjust(33, 0, time.Microsecond))
	assert.Equal(t, uint32(33), c.Adjust(33, time.Microsecond, 0))
	assert.Equal(t, uint32(33), c.Adjust(33, -time.Microsecond, time.Microsecond))
	assert.Equal(t, uint32(30), Calibrator{Min: 30}.Adjust(20, 0, 0))
}

func TestCalibratorFor(t *testing.T) {
	clk := 80 * physic.MegaHertz
	c := CalibratorFor(NewTiming(clk), clk)
	assert.Equal(t, Calibrator{Min: 14, Max: 66, MaxStep: 4}, c)
	// Twice as slow: one step down, not a halving.
	assert.Equal(t, uint32(29), c.Adjust(33, 2*BitPeriod, BitPeriod))

	clk = physic.GigaHertz
	assert.Equal(t, Calibrator{Min: 167, Max: 834, MaxStep: 52}, CalibratorFor(NewTiming(clk), clk))
	assert.Equal(t, uint32(1), CalibratorFor(Timing{Unit: 3, Short: 1, Long: 2, Reset: 300}, clk).MaxStep)
}
