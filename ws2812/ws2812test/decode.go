package ws2812test

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/coreman2200/ws2812delay/ws2812"
)

// Bit is one decoded pulse.
type Bit struct {
	High  time.Duration
	Low   time.Duration
	Value bool
}

// HighShare is the fraction of the bit period spent high.
func (b Bit) HighShare() float64 {
	return float64(b.High) / float64(b.High+b.Low)
}

// Frame is a run of bits terminated by a reset gap.
type Frame struct {
	Start  time.Duration
	Bits   []Bit
	Colors []ws2812.Color
	// Gap is the low time after the last bit's own low phase.
	Gap time.Duration
}

// DecodeOpts tunes the discriminator.
type DecodeOpts struct {
	BitPeriod time.Duration
	Tolerance time.Duration
	ResetMin  time.Duration
	Threshold float64
}

// DefaultDecodeOpts matches the ws2812 package constants.
var DefaultDecodeOpts = DecodeOpts{
	BitPeriod: ws2812.BitPeriod,
	Tolerance: ws2812.Tolerance,
	ResetMin:  ws2812.ResetMin,
	Threshold: ws2812.Threshold,
}

// Decode turns edges into frames the way a chain would.
//
// end is the time the recording stopped; the line is assumed low from the
// last edge until then. A bit is a 1 when its high share is at or above
// Threshold. Every bit period but the last of a frame must be within
// Tolerance of BitPeriod. The last bit's low phase runs into the reset gap,
// so its period is taken as the frame's mean.
func Decode(edges []Edge, end time.Duration, opts *DecodeOpts) ([]Frame, error) {
	if opts == nil {
		opts = &DefaultDecodeOpts
	}
	for len(edges) != 0 && edges[0].Level == gpio.Low {
		edges = edges[1:]
	}
	var frames []Frame
	var cur Frame
	var sum time.Duration
	for i := 0; i < len(edges); i += 2 {
		rise := edges[i]
		if i+1 >= len(edges) {
			return frames, fmt.Errorf("ws2812test: line left high at %s", rise.At)
		}
		fall := edges[i+1]
		next := end
		if i+2 < len(edges) {
			next = edges[i+2].At
		}
		if len(cur.Bits) == 0 {
			cur.Start = rise.At
		}
		high := fall.At - rise.At
		low := next - fall.At
		if low < opts.ResetMin {
			period := high + low
			if d := period - opts.BitPeriod; d > opts.Tolerance || d < -opts.Tolerance {
				return frames, fmt.Errorf("ws2812test: bit %d at %s has period %s, want %s±%s",
					len(cur.Bits), rise.At, period, opts.BitPeriod, opts.Tolerance)
			}
			cur.Bits = append(cur.Bits, classify(high, low, opts.Threshold))
			sum += period
			continue
		}
		period := opts.BitPeriod
		if n := len(cur.Bits); n != 0 {
			period = sum / time.Duration(n)
		}
		own := period - high
		if own < 0 {
			own = 0
		}
		cur.Bits = append(cur.Bits, classify(high, own, opts.Threshold))
		cur.Gap = low - own
		if err := cur.unpack(); err != nil {
			return frames, err
		}
		frames = append(frames, cur)
		cur = Frame{}
		sum = 0
	}
	if len(cur.Bits) != 0 {
		return frames, errors.New("ws2812test: last frame is not terminated by a reset gap")
	}
	return frames, nil
}

func classify(high, low time.Duration, threshold float64) Bit {
	b := Bit{High: high, Low: low}
	b.Value = b.HighShare() >= threshold
	return b
}

func (f *Frame) unpack() error {
	if len(f.Bits)%24 != 0 {
		return fmt.Errorf("ws2812test: frame at %s has %d bits, not a multiple of 24", f.Start, len(f.Bits))
	}
	f.Colors = make([]ws2812.Color, 0, len(f.Bits)/24)
	for i := 0; i < len(f.Bits); i += 24 {
		var v uint32
		for _, b := range f.Bits[i : i+24] {
			v <<= 1
			if b.Value {
				v |= 1
			}
		}
		f.Colors = append(f.Colors, ws2812.FromGRB(v))
	}
	return nil
}
