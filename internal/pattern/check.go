package pattern

import (
	"time"

	"github.com/coreman2200/ws2812delay/internal/layout"
	"github.com/coreman2200/ws2812delay/ws2812"
)

// Wiring checks. Each steps once per Period and loops.

var white = ws2812.Color{R: 255, G: 255, B: 255}

// IndexSweep lights one LED at a time, walking the chain from the data pin.
type IndexSweep struct {
	N      int
	Period time.Duration
}

func (s IndexSweep) Frame(elapsed time.Duration) []ws2812.Color {
	f := make([]ws2812.Color, s.N)
	if s.N != 0 {
		f[step(elapsed, s.Period)%int64(s.N)] = white
	}
	return f
}

// Channels shows all red, then all green, then all blue. A chain that shows
// green first is being fed RGB instead of GRB.
type Channels struct {
	N      int
	Period time.Duration
}

func (c Channels) Frame(elapsed time.Duration) []ws2812.Color {
	var col ws2812.Color
	switch step(elapsed, c.Period) % 3 {
	case 0:
		col.R = 255
	case 1:
		col.G = 255
	case 2:
		col.B = 255
	}
	return Solid{Color: col, N: c.N}.Frame(elapsed)
}

// RowSweep lights one row of the panel at a time, bottom up, through the
// layout, so a wrong serpentine setting shows as a broken row.
type RowSweep struct {
	Layout layout.Serpentine
	Period time.Duration
}

func (r RowSweep) Frame(elapsed time.Duration) []ws2812.Color {
	f := make([]ws2812.Color, r.Layout.Count())
	if r.Layout.Dim.Y == 0 {
		return f
	}
	y := int(step(elapsed, r.Period) % int64(r.Layout.Dim.Y))
	for x := 0; x < r.Layout.Dim.X; x++ {
		f[r.Layout.Index(x, y)] = ws2812.Color{G: 255, B: 255}
	}
	return f
}

var (
	_ Source = IndexSweep{}
	_ Source = Channels{}
	_ Source = RowSweep{}
)
