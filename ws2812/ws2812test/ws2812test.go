// Package ws2812test is meant to be used to test drivers over a simulated
// clock.
//
// Recorder stands in for both the pin and the delay loop, so a Write runs in
// zero wall time while every edge is stamped with the exact virtual time it
// would have happened at. Decode plays the part of a logic analyzer and of
// the LED's own discriminator.
package ws2812test

import (
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiostream"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812delay/ws2812"
)

// Edge is a level change on the line.
type Edge struct {
	Level gpio.Level
	At    time.Duration
	Cycle uint64 // At in clock cycles.
}

// Recorder implements ws2812.Pin and ws2812.Delayer over a virtual clock.
//
// The line starts low at time 0. Only level changes are kept as edges;
// writing the current level again costs Overhead but records nothing.
type Recorder struct {
	// Clock converts cycles to virtual time.
	Clock physic.Frequency
	// Overhead is the cycles charged for every Out call, to model a slow pin
	// driver.
	Overhead uint32

	mu      sync.Mutex
	cycles  uint64
	level   gpio.Level
	edges   []Edge
	calls   int
	failAt  int
	failErr error
}

// NewRecorder returns a Recorder at clock with no pin overhead.
func NewRecorder(clock physic.Frequency) *Recorder {
	return &Recorder{Clock: clock}
}

// Out implements ws2812.Pin.
func (r *Recorder) Out(l gpio.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failAt != 0 && r.calls >= r.failAt {
		return r.failErr
	}
	r.cycles += uint64(r.Overhead)
	if l != r.level {
		r.level = l
		r.edges = append(r.edges, Edge{Level: l, At: r.at(r.cycles), Cycle: r.cycles})
	}
	return nil
}

// Delay implements ws2812.Delayer.
func (r *Recorder) Delay(cycles uint32) {
	r.mu.Lock()
	r.cycles += uint64(cycles)
	r.mu.Unlock()
}

// FailAfter makes the n-th Out call from now on, and every call after it,
// fail with err. n=1 fails the very next call.
func (r *Recorder) FailAfter(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAt = r.calls + n
	r.failErr = err
}

// Calls returns the number of Out calls, failed ones included.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Cycles returns the virtual cycle counter.
func (r *Recorder) Cycles() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles
}

// Now returns the virtual time.
func (r *Recorder) Now() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.at(r.cycles)
}

// Level returns the current line level.
func (r *Recorder) Level() gpio.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Edges returns a copy of the recorded edges.
func (r *Recorder) Edges() []Edge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Edge(nil), r.edges...)
}

// Reset forgets the edges and restarts the clock and the call counter at 0.
// The line level and any pending failure are kept. Call it while the line is
// low.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAt != 0 {
		r.failAt -= r.calls
	}
	r.edges = nil
	r.cycles = 0
	r.calls = 0
}

// Stream returns the recording as a periph edge stream at one cycle
// resolution, ending at the current cycle count. An edge stream starts high,
// so the leading 0 stands for the line starting low.
func (r *Recorder) Stream() *gpiostream.EdgeStream {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &gpiostream.EdgeStream{Freq: r.Clock, Edges: []uint16{0}}
	prev := uint64(0)
	for _, e := range r.edges {
		s.Edges = appendSpan(s.Edges, e.Cycle-prev)
		prev = e.Cycle
	}
	s.Edges = appendSpan(s.Edges, r.cycles-prev)
	return s
}

// appendSpan adds a run of n cycles, chaining 0 length pulses for runs that
// do not fit in 16 bits.
func appendSpan(edges []uint16, n uint64) []uint16 {
	for n > math.MaxUint16 {
		edges = append(edges, math.MaxUint16, 0)
		n -= math.MaxUint16
	}
	return append(edges, uint16(n))
}

func (r *Recorder) at(cycles uint64) time.Duration {
	return ws2812.Duration(cycles, r.Clock)
}

var (
	_ ws2812.Pin     = &Recorder{}
	_ ws2812.Delayer = &Recorder{}
)
