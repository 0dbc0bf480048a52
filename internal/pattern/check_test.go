package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/ws2812delay/internal/layout"
	"github.com/coreman2200/ws2812delay/ws2812"
)

func TestIndexSweep(t *testing.T) {
	s := IndexSweep{N: 3, Period: time.Second}
	for i, want := range []int{0, 1, 2, 0} {
		f := s.Frame(time.Duration(i) * time.Second)
		for j, c := range f {
			assert.Equal(t, j == want, c == white, "step %d led %d", i, j)
		}
	}
	assert.Empty(t, IndexSweep{}.Frame(time.Second))
}

func TestChannels(t *testing.T) {
	c := Channels{N: 2, Period: time.Second}
	assert.Equal(t, ws2812.Color{R: 255}, c.Frame(0)[1])
	assert.Equal(t, ws2812.Color{G: 255}, c.Frame(time.Second)[1])
	assert.Equal(t, ws2812.Color{B: 255}, c.Frame(2 * time.Second)[0])
	assert.Equal(t, ws2812.Color{R: 255}, c.Frame(3 * time.Second)[0])
}

func TestRowSweep(t *testing.T) {
	l := layout.Serpentine{Dim: layout.Dim{X: 3, Y: 2}, XFlipEveryRow: true}
	r := RowSweep{Layout: l, Period: time.Second}
	on := ws2812.Color{G: 255, B: 255}
	assert.Equal(t, []ws2812.Color{on, on, on, {}, {}, {}}, r.Frame(0))
	assert.Equal(t, []ws2812.Color{{}, {}, {}, on, on, on}, r.Frame(time.Second))
	assert.Empty(t, RowSweep{}.Frame(0))
}
