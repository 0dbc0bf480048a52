// Package pinio opens the data pin of a ws2812.Dev on a hosted board.
//
// Backends:
//
//	periph  any pin known to periph's gpioreg, e.g. GPIO12
//	gpiod   a line on the Linux GPIO character device, e.g. gpiochip0:12
//	rpio    a BCM pin number driven through /dev/gpiomem, e.g. 12
//	sim     no hardware; counts transitions
package pinio

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/ws2812delay/ws2812"
)

// Line is an output pin that must be released after use.
type Line interface {
	ws2812.Pin
	io.Closer
}

// Open returns the named pin of backend, driven low.
func Open(backend, name string) (Line, error) {
	switch backend {
	case "periph", "":
		return openPeriph(name)
	case "gpiod":
		return openGPIOD(name)
	case "rpio":
		return openRPIO(name)
	case "sim":
		return &Sim{N: name}, nil
	default:
		return nil, fmt.Errorf("pinio: unknown backend %q", backend)
	}
}

type periphLine struct {
	gpio.PinOut
}

func (p periphLine) Close() error {
	return p.Halt()
}

func openPeriph(name string) (Line, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("pinio: periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pinio: no pin named %q", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("pinio: %s: %w", p, err)
	}
	return periphLine{p}, nil
}

// splitLine parses "chip:offset". A bare offset means gpiochip0.
func splitLine(name string) (string, int, error) {
	chip, off := "gpiochip0", name
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		chip, off = name[:i], name[i+1:]
	}
	if chip == "" {
		return "", 0, fmt.Errorf("pinio: line %q has no chip", name)
	}
	n, err := strconv.Atoi(off)
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("pinio: line %q has no valid offset", name)
	}
	return chip, n, nil
}

func parseBCM(name string) (uint8, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "GPIO"))
	if err != nil || n < 0 || n > 53 {
		return 0, fmt.Errorf("pinio: %q is not a BCM pin number", name)
	}
	return uint8(n), nil
}

// Sim is a pin with no hardware behind it.
type Sim struct {
	N string

	mu     sync.Mutex
	level  gpio.Level
	edges  int
	closed bool
}

// Out implements ws2812.Pin.
func (s *Sim) Out(l gpio.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if l != s.level {
		s.level = l
		s.edges++
	}
	return nil
}

// Edges returns the number of level changes so far.
func (s *Sim) Edges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edges
}

// Close implements io.Closer. Out fails afterwards.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Sim) String() string {
	return "sim(" + s.N + ")"
}

var errClosed = errors.New("pinio: pin closed")
