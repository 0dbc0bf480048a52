package loop

import (
	"image"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"

	"github.com/coreman2200/ws2812delay/ws2812"
)

// DrawerSink shows frames on a periph display, such as the console preview
// from periph.io/x/extra/devices/screen. The frame is drawn as a single row.
type DrawerSink struct {
	D display.Drawer
}

func (s DrawerSink) Write(frame []ws2812.Color) error {
	img := image.NewNRGBA(image.Rect(0, 0, len(frame), 1))
	for i, c := range frame {
		img.Set(i, 0, c)
	}
	return s.D.Draw(s.D.Bounds(), img, image.Point{})
}

// Indicator drives a status LED high while any LED of the frame is lit, or
// low if Invert is set.
type Indicator struct {
	Pin    ws2812.Pin
	Invert bool
}

func (i Indicator) Write(frame []ws2812.Color) error {
	lit := false
	for _, c := range frame {
		if c != (ws2812.Color{}) {
			lit = true
			break
		}
	}
	return i.Pin.Out(gpio.Level(lit != i.Invert))
}

// Func adapts a function to a Sink.
type Func func(frame []ws2812.Color) error

func (f Func) Write(frame []ws2812.Color) error {
	return f(frame)
}

var (
	_ Sink = &ws2812.Dev{}
	_ Sink = DrawerSink{}
	_ Sink = Indicator{}
	_ Sink = Func(nil)
)
