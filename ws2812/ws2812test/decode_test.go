package ws2812test

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812delay/ws2812"
)

// pulses lays out high/low pairs from t=0 and returns the edges and the time
// after the last low phase.
func pulses(hl ...time.Duration) ([]Edge, time.Duration) {
	var edges []Edge
	t := time.Duration(0)
	for i := 0; i+1 < len(hl); i += 2 {
		edges = append(edges, Edge{Level: gpio.High, At: t}, Edge{Level: gpio.Low, At: t + hl[i]})
		t += hl[i] + hl[i+1]
	}
	return edges, t
}

// bits repeats one high/low pair n times and stretches the last low phase by
// gap.
func bits(n int, high, low, gap time.Duration) []time.Duration {
	out := make([]time.Duration, 0, 2*n)
	for i := 0; i < n; i++ {
		out = append(out, high, low)
	}
	out[len(out)-1] += gap
	return out
}

func TestDecode_Tie(t *testing.T) {
	c := qt.New(t)
	edges, end := pulses(bits(24, 625, 625, 60*time.Microsecond)...)
	for i := 0; i < 3; i++ {
		frames, err := Decode(edges, end, nil)
		c.Assert(err, qt.IsNil)
		c.Assert(frames, qt.HasLen, 1)
		for _, b := range frames[0].Bits {
			c.Assert(b.HighShare(), qt.Equals, 0.5)
			c.Assert(b.Value, qt.IsTrue)
		}
		c.Assert(frames[0].Colors, qt.DeepEquals, []ws2812.Color{{R: 0xFF, G: 0xFF, B: 0xFF}})
		c.Assert(frames[0].Gap, qt.Equals, 60*time.Microsecond)
	}
}

func TestDecode_Threshold(t *testing.T) {
	c := qt.New(t)
	edges, end := pulses(bits(24, 800, 450, 80*time.Microsecond)...)
	frames, err := Decode(edges, end, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(frames[0].Colors[0], qt.Equals, ws2812.Color{R: 0xFF, G: 0xFF, B: 0xFF})

	opts := DefaultDecodeOpts
	opts.Threshold = 0.7
	frames, err = Decode(edges, end, &opts)
	c.Assert(err, qt.IsNil)
	c.Assert(frames[0].Colors[0], qt.Equals, ws2812.Color{})
}

func TestDecode_SkipsLeadingLow(t *testing.T) {
	c := qt.New(t)
	edges, end := pulses(bits(24, 400, 850, 50*time.Microsecond)...)
	edges = append([]Edge{{Level: gpio.Low, At: 0}}, edges...)
	frames, err := Decode(edges, end, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(frames, qt.HasLen, 1)
	c.Assert(frames[0].Colors[0], qt.Equals, ws2812.Color{})
}

func TestDecode_Start(t *testing.T) {
	c := qt.New(t)
	hl := append(bits(24, 850, 400, 100*time.Microsecond), bits(24, 400, 850, 60*time.Microsecond)...)
	edges, end := pulses(hl...)
	frames, err := Decode(edges, end, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(frames, qt.HasLen, 2)
	c.Assert(frames[0].Start, qt.Equals, time.Duration(0))
	c.Assert(frames[1].Start, qt.Equals, 24*1250*time.Nanosecond+100*time.Microsecond)
	c.Assert(frames[1].Gap, qt.Equals, 60*time.Microsecond)
}

func TestDecode_Errors(t *testing.T) {
	data := []struct {
		name string
		hl   []time.Duration
		want string
	}{
		{"period", bits(24, 1000, 500, 60*time.Microsecond), `ws2812test: bit 0 at 0s has period 1\.5.s, want .*`},
		{"unterminated", bits(24, 850, 400, 0), `ws2812test: last frame is not terminated by a reset gap`},
		{"count", bits(23, 850, 400, 60*time.Microsecond), `ws2812test: frame at 0s has 23 bits, not a multiple of 24`},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			c := qt.New(t)
			edges, end := pulses(line.hl...)
			_, err := Decode(edges, end, nil)
			c.Assert(err, qt.ErrorMatches, line.want)
		})
	}
}

func TestDecode_LeftHigh(t *testing.T) {
	c := qt.New(t)
	edges, end := pulses(bits(24, 850, 400, 60*time.Microsecond)...)
	edges = append(edges, Edge{Level: gpio.High, At: end})
	frames, err := Decode(edges, end+time.Microsecond, nil)
	c.Assert(err, qt.ErrorMatches, `ws2812test: line left high at .*`)
	c.Assert(frames, qt.HasLen, 1)
}

func TestRecorder_Stream(t *testing.T) {
	c := qt.New(t)
	r := NewRecorder(physic.GigaHertz)
	r.Delay(10)
	c.Assert(r.Out(gpio.High), qt.IsNil)
	r.Delay(100)
	c.Assert(r.Out(gpio.Low), qt.IsNil)
	r.Delay(50)
	s := r.Stream()
	c.Assert(s.Freq, qt.Equals, physic.GigaHertz)
	c.Assert(s.Edges, qt.DeepEquals, []uint16{0, 10, 100, 50})
	c.Assert(s.Duration(), qt.Equals, 160*time.Nanosecond)
}

func TestRecorder_StreamLongSpan(t *testing.T) {
	c := qt.New(t)
	r := NewRecorder(physic.GigaHertz)
	c.Assert(r.Out(gpio.High), qt.IsNil)
	r.Delay(70000)
	c.Assert(r.Out(gpio.Low), qt.IsNil)
	s := r.Stream()
	c.Assert(s.Edges, qt.DeepEquals, []uint16{0, 0, 65535, 0, 4465, 0})
	c.Assert(s.Duration(), qt.Equals, 70*time.Microsecond)
}

func TestRecorder_RepeatedLevel(t *testing.T) {
	c := qt.New(t)
	r := NewRecorder(physic.GigaHertz)
	r.Overhead = 5
	c.Assert(r.Out(gpio.Low), qt.IsNil)
	c.Assert(r.Out(gpio.High), qt.IsNil)
	c.Assert(r.Out(gpio.High), qt.IsNil)
	c.Assert(r.Edges(), qt.DeepEquals, []Edge{{Level: gpio.High, At: 10, Cycle: 10}})
	c.Assert(r.Cycles(), qt.Equals, uint64(15))
	c.Assert(r.Calls(), qt.Equals, 3)
}

func TestRecorder_FailAfter(t *testing.T) {
	c := qt.New(t)
	boom := errors.New("boom")
	r := NewRecorder(physic.GigaHertz)
	c.Assert(r.Out(gpio.Low), qt.IsNil)
	r.FailAfter(2, boom)
	c.Assert(r.Out(gpio.High), qt.IsNil)
	c.Assert(r.Out(gpio.Low), qt.Equals, boom)
	c.Assert(r.Out(gpio.Low), qt.Equals, boom)
	c.Assert(r.Level(), qt.Equals, gpio.High)

	// Reset keeps the pending failure.
	r = NewRecorder(physic.GigaHertz)
	c.Assert(r.Out(gpio.Low), qt.IsNil)
	r.FailAfter(2, boom)
	r.Reset()
	c.Assert(r.Calls(), qt.Equals, 0)
	c.Assert(r.Out(gpio.Low), qt.IsNil)
	c.Assert(r.Out(gpio.Low), qt.Equals, boom)
}

func TestRecorder_Clock(t *testing.T) {
	c := qt.New(t)
	r := NewRecorder(80 * physic.MegaHertz)
	r.Delay(80)
	c.Assert(r.Now(), qt.Equals, time.Microsecond)
}
