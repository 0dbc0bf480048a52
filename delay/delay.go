// Package delay implements ws2812.Delayer on a hosted CPU.
//
// None of the delays here yield to the scheduler. They are only as accurate
// as the thread is left alone: run them inside a ws2812.Section, on an
// isolated core if possible.
package delay

import (
	"errors"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3/cpu"

	"github.com/coreman2200/ws2812delay/ws2812"
)

// Spin busy-waits on the monotonic clock.
type Spin struct {
	Clock physic.Frequency
}

// Delay implements ws2812.Delayer.
func (s Spin) Delay(cycles uint32) {
	d := ws2812.Duration(uint64(cycles), s.Clock)
	for start := time.Now(); time.Since(start) < d; {
	}
}

// Nanospin delegates to periph's host spin, which uses the CPU counter where
// the host exposes one.
type Nanospin struct {
	Clock physic.Frequency
}

// Delay implements ws2812.Delayer.
func (n Nanospin) Delay(cycles uint32) {
	cpu.Nanospin(ws2812.Duration(uint64(cycles), n.Clock))
}

// Counted runs a loop of cycles/PerIteration iterations.
//
// This is the closest to a bare metal counted delay. PerIteration is host
// specific; see CountedFor.
type Counted struct {
	PerIteration uint32
}

// sink keeps the loop body from being optimized away.
var sink uint32

// Delay implements ws2812.Delayer.
func (c Counted) Delay(cycles uint32) {
	per := c.PerIteration
	if per == 0 {
		per = 1
	}
	for i := cycles / per; i != 0; i-- {
		atomic.AddUint32(&sink, 1)
	}
}

// Measure returns the mean wall time of d.Delay(cycles) over n runs.
func Measure(d ws2812.Delayer, cycles uint32, n int) time.Duration {
	if n <= 0 {
		return 0
	}
	start := time.Now()
	for i := 0; i < n; i++ {
		d.Delay(cycles)
	}
	return time.Since(start) / time.Duration(n)
}

// Writer is what MeasureBit drives; *ws2812.Dev satisfies it.
type Writer interface {
	Write(colors []ws2812.Color) error
}

// MeasureBit returns the wall time of one bit as actually sent by w, pin
// writes included. It writes a dark frame of 1 LED and one of n LEDs and
// divides the difference, which cancels the reset gap and fixed costs.
// n must be at least 2.
//
// The chain receives the dark frames.
func MeasureBit(w Writer, n int) (time.Duration, error) {
	if n < 2 {
		return 0, errors.New("delay: MeasureBit needs n >= 2")
	}
	frame := make([]ws2812.Color, n)
	start := time.Now()
	if err := w.Write(frame[:1]); err != nil {
		return 0, err
	}
	short := time.Since(start)
	start = time.Now()
	if err := w.Write(frame); err != nil {
		return 0, err
	}
	long := time.Since(start)
	return (long - short) / time.Duration(24*(n-1)), nil
}

// CountedFor measures one loop iteration and returns a Counted matching
// clock, so that Delay(cycles) lasts about cycles/clock.
func CountedFor(clock physic.Frequency) Counted {
	const probe = 1 << 20
	d := Measure(Counted{PerIteration: 1}, probe, 4)
	hz := uint64(clock / physic.Hertz)
	per := (uint64(d)*hz/uint64(time.Second) + probe/2) / probe
	if per == 0 {
		per = 1
	}
	return Counted{PerIteration: uint32(per)}
}

// Clock returns the host's maximum CPU frequency, or 0 when unknown.
func Clock() physic.Frequency {
	return physic.Frequency(cpu.MaxSpeed()) * physic.Hertz
}

var (
	_ ws2812.Delayer = Spin{}
	_ ws2812.Delayer = Nanospin{}
	_ ws2812.Delayer = Counted{}
)
