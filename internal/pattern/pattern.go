// Package pattern provides the frames shown by the refresh loop.
package pattern

import (
	"image/color"
	"math"
	"time"

	"github.com/coreman2200/ws2812delay/internal/layout"
	"github.com/coreman2200/ws2812delay/ws2812"
)

// Source renders the frame to show at elapsed time since start.
type Source interface {
	Frame(elapsed time.Duration) []ws2812.Color
}

// Blink alternates a 14 LED frame with four lit LEDs and a 7 LED blank frame
// every Period.
//
// The blank frame is shorter than the lit one, so LEDs 7 to 13 keep their
// color while the first seven go dark.
type Blink struct {
	Period time.Duration
}

// BlinkOn is the lit frame of Blink.
var BlinkOn = func() []ws2812.Color {
	f := make([]ws2812.Color, 14)
	f[0] = ws2812.Color{B: 0x10}
	f[1] = ws2812.Color{G: 0x01}
	f[2] = ws2812.Color{R: 0xFF, G: 0xFF, B: 0xFF}
	f[12] = ws2812.Color{R: 0x10, G: 0x80, B: 0x10}
	return f
}()

func (b Blink) Frame(elapsed time.Duration) []ws2812.Color {
	if step(elapsed, b.Period)%2 == 0 {
		return BlinkOn
	}
	return make([]ws2812.Color, 7)
}

// Solid shows one color on every LED.
type Solid struct {
	Color ws2812.Color
	N     int
}

func (s Solid) Frame(time.Duration) []ws2812.Color {
	f := make([]ws2812.Color, s.N)
	for i := range f {
		f[i] = s.Color
	}
	return f
}

// Sequence cycles through fixed frames, one per Period.
type Sequence struct {
	Frames [][]ws2812.Color
	Period time.Duration
}

func (s Sequence) Frame(elapsed time.Duration) []ws2812.Color {
	if len(s.Frames) == 0 {
		return nil
	}
	return s.Frames[step(elapsed, s.Period)%int64(len(s.Frames))]
}

// Wheel scrolls a hue wheel across the panel, one turn per Period.
type Wheel struct {
	Layout layout.Serpentine
	Period time.Duration
}

func (w Wheel) Frame(elapsed time.Duration) []ws2812.Color {
	f := make([]ws2812.Color, w.Layout.Count())
	phase := 0.
	if w.Period > 0 {
		phase = float64(elapsed%w.Period) / float64(w.Period)
	}
	for y := 0; y < w.Layout.Dim.Y; y++ {
		for x := 0; x < w.Layout.Dim.X; x++ {
			h := phase + float64(x)/float64(w.Layout.Dim.X)
			f[w.Layout.Index(x, y)] = ws2812.FromColor(colorWheel(h - math.Floor(h)))
		}
	}
	return f
}

// colorWheel maps h in [0,1) onto a fully saturated hue.
func colorWheel(h float64) color.NRGBA {
	h *= 6
	switch {
	case h < 1.:
		return color.NRGBA{R: 255, G: byte(255 * h), A: 255}
	case h < 2.:
		return color.NRGBA{R: byte(255 * (2 - h)), G: 255, A: 255}
	case h < 3.:
		return color.NRGBA{G: 255, B: byte(255 * (h - 2)), A: 255}
	case h < 4.:
		return color.NRGBA{G: byte(255 * (4 - h)), B: 255, A: 255}
	case h < 5.:
		return color.NRGBA{R: byte(255 * (h - 4)), B: 255, A: 255}
	default:
		return color.NRGBA{R: 255, B: byte(255 * (6 - h)), A: 255}
	}
}

func step(elapsed, period time.Duration) int64 {
	if period <= 0 || elapsed < 0 {
		return 0
	}
	return int64(elapsed / period)
}

var (
	_ Source = Blink{}
	_ Source = Solid{}
	_ Source = Sequence{}
	_ Source = Wheel{}
)
