package ws2812

import (
	"errors"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Protocol timing for WS2812 at 800kHz.
const (
	// BitPeriod is the nominal length of one bit, high plus low phase.
	BitPeriod = 1250 * time.Nanosecond
	// Tolerance is the allowed deviation of any phase or bit period.
	Tolerance = 150 * time.Nanosecond
	// ResetMin is the shortest low time the chain accepts as a latch.
	ResetMin = 50 * time.Microsecond

	// DefaultShortUnits and DefaultLongUnits split a bit period in thirds.
	DefaultShortUnits = 1
	DefaultLongUnits  = 2
	// DefaultResetUnits is the latch gap in units, ~125µs at 1/3 bit period
	// per unit.
	DefaultResetUnits = 300

	// OneHighFraction is the minimum high share of a bit period for a 1.
	OneHighFraction = 0.6
	// ZeroHighFraction is the maximum high share of a bit period for a 0.
	ZeroHighFraction = 0.4
	// Threshold is the discriminator point. A high share at or above it is a
	// 1, below it a 0.
	Threshold = 0.5
)

// Timing is the pulse shape expressed in delay cycles.
//
// Unit is the calibration constant: the number of cycles passed to
// Delayer.Delay for one protocol unit. It absorbs the real cost of the delay
// loop and of Pin.Out, so it is usually a bit smaller than the ideal value
// returned by NewTiming.
type Timing struct {
	Unit  uint32 // Cycles per protocol unit.
	Short uint32 // Units in the short phase of a bit.
	Long  uint32 // Units in the long phase of a bit.
	Reset uint32 // Units of low line after the last bit.
}

// NewTiming returns the default 1:2 pulse shape for a CPU running at clock.
func NewTiming(clock physic.Frequency) Timing {
	return Timing{
		Unit:  UnitCycles(clock, BitPeriod, DefaultShortUnits+DefaultLongUnits),
		Short: DefaultShortUnits,
		Long:  DefaultLongUnits,
		Reset: DefaultResetUnits,
	}
}

// UnitCycles returns the number of clock cycles in period/units, rounded to
// the nearest cycle.
func UnitCycles(clock physic.Frequency, period time.Duration, units uint32) uint32 {
	if units == 0 {
		return 0
	}
	hz := uint64(clock / physic.Hertz)
	den := uint64(units) * uint64(time.Second)
	return uint32((hz*uint64(period) + den/2) / den)
}

// Duration converts a cycle count at clock to wall time.
func Duration(cycles uint64, clock physic.Frequency) time.Duration {
	hz := uint64(clock / physic.Hertz)
	if hz == 0 {
		return 0
	}
	return time.Duration(cycles * uint64(time.Second) / hz)
}

// Validate checks the pulse shape itself, independently of any clock.
func (t Timing) Validate() error {
	if t.Unit == 0 {
		return errors.New("ws2812: timing unit must be > 0")
	}
	if t.Short == 0 {
		return errors.New("ws2812: short phase must be > 0")
	}
	if t.Long <= t.Short {
		return fmt.Errorf("ws2812: long phase (%d) must exceed short phase (%d)", t.Long, t.Short)
	}
	if uint64(t.Unit)*(uint64(t.Short)+uint64(t.Long)) > math.MaxUint32 {
		return fmt.Errorf("ws2812: a bit of %d×%d cycles overflows a delay", t.Short+t.Long, t.Unit)
	}
	bit := float64(t.Short) + float64(t.Long)
	if f := float64(t.Long) / bit; f < OneHighFraction {
		return fmt.Errorf("ws2812: high share of a 1 is %.2f, need >= %.2f", f, OneHighFraction)
	}
	if f := float64(t.Short) / bit; f > ZeroHighFraction {
		return fmt.Errorf("ws2812: high share of a 0 is %.2f, need <= %.2f", f, ZeroHighFraction)
	}
	if uint64(t.Reset) <= uint64(t.Short)+uint64(t.Long) {
		return fmt.Errorf("ws2812: reset gap of %d units is shorter than a bit", t.Reset)
	}
	return nil
}

// Check validates t and verifies that at clock, assuming an ideal delay loop,
// the reset gap is long enough to latch.
func (t Timing) Check(clock physic.Frequency) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if clock <= 0 {
		return errors.New("ws2812: clock must be > 0")
	}
	if g := t.ResetGap(clock); g < ResetMin {
		return fmt.Errorf("ws2812: reset gap %s is below the %s latch minimum", g, ResetMin)
	}
	return nil
}

// MinUnit returns the smallest Unit for which the reset gap of t still lasts
// ResetMin at clock.
func (t Timing) MinUnit(clock physic.Frequency) uint32 {
	if t.Reset == 0 || clock <= 0 {
		return 0
	}
	hz := uint64(clock / physic.Hertz)
	cycles := (uint64(ResetMin)*hz + uint64(time.Second) - 1) / uint64(time.Second)
	u := (cycles + uint64(t.Reset) - 1) / uint64(t.Reset)
	if u > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(u)
}

// InTolerance reports whether the nominal bit period at clock is within
// Tolerance of BitPeriod. A calibrated Unit that compensates for a slow delay
// loop is expected to fail this; the real waveform is what matters.
func (t Timing) InTolerance(clock physic.Frequency) bool {
	d := t.BitPeriod(clock) - BitPeriod
	if d < 0 {
		d = -d
	}
	return d <= Tolerance
}

// BitCycles returns the delay cycles spent on one bit.
func (t Timing) BitCycles() uint64 {
	return uint64(t.Unit) * uint64(t.Short+t.Long)
}

// ResetCycles returns the delay cycles spent on the latch gap.
func (t Timing) ResetCycles() uint64 {
	return uint64(t.Unit) * uint64(t.Reset)
}

// FrameCycles returns the delay cycles spent writing n colors, reset included.
func (t Timing) FrameCycles(n int) uint64 {
	return uint64(n)*24*t.BitCycles() + t.ResetCycles()
}

// BitPeriod returns the nominal bit period at clock.
func (t Timing) BitPeriod(clock physic.Frequency) time.Duration {
	return Duration(t.BitCycles(), clock)
}

// HighTime returns the nominal high phase of a bit of the given value.
func (t Timing) HighTime(bit bool, clock physic.Frequency) time.Duration {
	if bit {
		return Duration(uint64(t.Unit)*uint64(t.Long), clock)
	}
	return Duration(uint64(t.Unit)*uint64(t.Short), clock)
}

// LowTime returns the nominal low phase of a bit of the given value.
func (t Timing) LowTime(bit bool, clock physic.Frequency) time.Duration {
	return t.HighTime(!bit, clock)
}

// ResetGap returns the nominal latch gap at clock.
func (t Timing) ResetGap(clock physic.Frequency) time.Duration {
	return Duration(t.ResetCycles(), clock)
}

func (t Timing) String() string {
	return fmt.Sprintf("Timing{unit=%d short=%d long=%d reset=%d}", t.Unit, t.Short, t.Long, t.Reset)
}
