package loop

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/display/displaytest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812delay/internal/pattern"
	"github.com/coreman2200/ws2812delay/ws2812"
	"github.com/coreman2200/ws2812delay/ws2812/ws2812test"
)

func newDev(t *testing.T) (*ws2812.Dev, *ws2812test.Recorder) {
	t.Helper()
	rec := ws2812test.NewRecorder(physic.GigaHertz)
	d, err := ws2812.New(rec, rec, &ws2812.Opts{Clock: physic.GigaHertz, Section: ws2812.NopSection{}})
	require.NoError(t, err)
	rec.Reset()
	return d, rec
}

func TestStep_Blink(t *testing.T) {
	d, rec := newDev(t)
	l := &Looper{Source: pattern.Blink{Period: time.Second}, Sinks: []Sink{d}}
	require.NoError(t, l.Step(0))
	require.NoError(t, l.Step(time.Second))
	frames, err := ws2812test.Decode(rec.Edges(), rec.Now(), nil)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, pattern.BlinkOn, frames[0].Colors)
	assert.Equal(t, make([]ws2812.Color, 7), frames[1].Colors)
	assert.Equal(t, uint64(2), l.Stats().Frames)
}

func TestStep_FaultRecovers(t *testing.T) {
	d, rec := newDev(t)
	var got [][]ws2812.Color
	mirror := Func(func(f []ws2812.Color) error {
		got = append(got, f)
		return nil
	})
	l := &Looper{Source: pattern.Solid{Color: ws2812.Color{R: 0x20}, N: 3}, Sinks: []Sink{d, mirror}}

	rec.FailAfter(5, errors.New("bus"))
	err := l.Step(0)
	assert.True(t, errors.Is(err, ws2812.ErrPinFault))
	// The other sinks still get the frame.
	assert.Len(t, got, 1)

	// A fresh device on a healthy pin takes the next frame.
	d2, rec2 := newDev(t)
	l.Sinks[0] = d2
	require.NoError(t, l.Step(time.Millisecond))
	frames, err := ws2812test.Decode(rec2.Edges(), rec2.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, []ws2812.Color{{R: 0x20}, {R: 0x20}, {R: 0x20}}, frames[0].Colors)

	s := l.Stats()
	assert.Equal(t, uint64(2), s.Frames)
	assert.Equal(t, uint64(1), s.Faults)
	assert.Equal(t, uint64(0), s.Errors)
	assert.Contains(t, s.LastErr, "bus")
}

func TestStep_OtherErrors(t *testing.T) {
	l := &Looper{
		Source: pattern.Solid{N: 1},
		Sinks:  []Sink{Func(func([]ws2812.Color) error { return errors.New("full") })},
	}
	assert.EqualError(t, l.Step(0), "full")
	assert.Equal(t, uint64(1), l.Stats().Errors)
	assert.Equal(t, uint64(0), l.Stats().Faults)
}

func TestRun(t *testing.T) {
	d, _ := newDev(t)
	l := &Looper{Source: pattern.Blink{Period: 10 * time.Millisecond}, Sinks: []Sink{d}, FPS: 200}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, l.Run(ctx))
	s := l.Stats()
	assert.NotZero(t, s.Frames)
	assert.False(t, s.Start.IsZero())
}

func TestDrawerSink(t *testing.T) {
	dr := &displaytest.Drawer{Img: image.NewNRGBA(image.Rect(0, 0, 4, 1))}
	s := DrawerSink{D: dr}
	require.NoError(t, s.Write([]ws2812.Color{{R: 0xFF}, {G: 0x80}, {B: 0x01}}))
	assert.Equal(t, color.NRGBA{R: 0xFF, A: 0xFF}, dr.Img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{G: 0x80, A: 0xFF}, dr.Img.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{B: 0x01, A: 0xFF}, dr.Img.NRGBAAt(2, 0))
	assert.Equal(t, color.NRGBA{}, dr.Img.NRGBAAt(3, 0))
}

func TestIndicator(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO13", Num: 13}
	i := Indicator{Pin: p}
	require.NoError(t, i.Write(pattern.BlinkOn))
	assert.Equal(t, gpio.High, p.Read())
	require.NoError(t, i.Write(make([]ws2812.Color, 7)))
	assert.Equal(t, gpio.Low, p.Read())
	require.NoError(t, i.Write(nil))
	assert.Equal(t, gpio.Low, p.Read())
}

func TestIndicator_Invert(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO14", Num: 14}
	i := Indicator{Pin: p, Invert: true}
	require.NoError(t, i.Write(pattern.BlinkOn))
	assert.Equal(t, gpio.Low, p.Read())
	require.NoError(t, i.Write(make([]ws2812.Color, 7)))
	assert.Equal(t, gpio.High, p.Read())
}
