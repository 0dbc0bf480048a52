//go:build linux

package pinio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/warthog618/gpiod"
	"periph.io/x/conn/v3/gpio"
)

type gpiodLine struct {
	name string
	l    *gpiod.Line
}

func (g *gpiodLine) Out(l gpio.Level) error {
	v := 0
	if l {
		v = 1
	}
	return g.l.SetValue(v)
}

func (g *gpiodLine) Close() error {
	return g.l.Close()
}

func (g *gpiodLine) String() string {
	return g.name
}

func openGPIOD(name string) (Line, error) {
	chip, off, err := splitLine(name)
	if err != nil {
		return nil, err
	}
	l, err := gpiod.RequestLine(chip, off, gpiod.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("pinio: gpiod %s: %w", name, err)
	}
	return &gpiodLine{name: name, l: l}, nil
}

// rpioLine writes the GPIO registers directly; writes cannot fail.
type rpioLine struct {
	pin rpio.Pin
}

func (r rpioLine) Out(l gpio.Level) error {
	if l {
		r.pin.High()
	} else {
		r.pin.Low()
	}
	return nil
}

func (r rpioLine) Close() error {
	r.pin.Low()
	return rpio.Close()
}

func (r rpioLine) String() string {
	return fmt.Sprintf("rpio(%d)", uint8(r.pin))
}

func openRPIO(name string) (Line, error) {
	n, err := parseBCM(name)
	if err != nil {
		return nil, err
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("pinio: rpio: %w", err)
	}
	p := rpio.Pin(n)
	p.Output()
	p.Low()
	return rpioLine{pin: p}, nil
}
