package ws2812

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// Calibrator adjusts Timing.Unit from measurements, in bounded steps.
//
// Each Adjust moves the unit toward unit×want/observed by at most MaxStep
// cycles and never past that target, then clamps it to [Min, Max]. Fed with
// a stable measurement it reaches the target in
// ceil(|target-unit| / MaxStep) calls and stays there.
type Calibrator struct {
	Min     uint32 // Lowest unit ever returned. 0 is treated as 1.
	Max     uint32 // Highest unit ever returned. 0 means no limit.
	MaxStep uint32 // Largest change per call. 0 means no limit.
}

// Adjust returns the corrected unit. A non-positive observed or want leaves
// unit untouched.
func (c Calibrator) Adjust(unit uint32, observed, want time.Duration) uint32 {
	if observed <= 0 || want <= 0 {
		return c.clamp(unit)
	}
	target := (uint64(unit)*uint64(want) + uint64(observed)/2) / uint64(observed)
	next := uint64(unit)
	switch {
	case target > next:
		if c.MaxStep != 0 && target-next > uint64(c.MaxStep) {
			next += uint64(c.MaxStep)
		} else {
			next = target
		}
	case target < next:
		if c.MaxStep != 0 && next-target > uint64(c.MaxStep) {
			next -= uint64(c.MaxStep)
		} else {
			next = target
		}
	}
	if next > uint64(^uint32(0)) {
		next = uint64(^uint32(0))
	}
	return c.clamp(uint32(next))
}

func (c Calibrator) clamp(unit uint32) uint32 {
	min := c.Min
	if min == 0 {
		min = 1
	}
	if unit < min {
		return min
	}
	if c.Max != 0 && unit > c.Max {
		return c.Max
	}
	return unit
}

// CalibratorFor returns bounds around t at clock: from the smallest unit that
// keeps the reset gap to twice the unit, moving at most an eighth of it per
// call.
func CalibratorFor(t Timing, clock physic.Frequency) Calibrator {
	step := t.Unit / 8
	if step == 0 {
		step = 1
	}
	return Calibrator{Min: t.MinUnit(clock), Max: 2 * t.Unit, MaxStep: step}
}
