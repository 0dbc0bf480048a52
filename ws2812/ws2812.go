package ws2812

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Pin is the output the chain's data line is wired to. gpio.PinOut
// implementations satisfy it.
//
// Out must take a small and constant number of cycles; whatever it costs is
// part of every phase and has to be folded into Timing.Unit.
type Pin interface {
	Out(l gpio.Level) error
}

// Delayer blocks the calling thread for approximately cycles CPU cycles by
// spinning. It must not yield to a scheduler.
type Delayer interface {
	Delay(cycles uint32)
}

// ErrPinFault is returned when the pin driver reports an error. The frame in
// flight is abandoned and must be written again in full.
var ErrPinFault = errors.New("ws2812: pin fault")

// Opts defines the options for the device.
type Opts struct {
	// Clock is the CPU frequency the Delayer counts cycles of.
	Clock physic.Frequency
	// Timing is the pulse shape. The zero value derives it from Clock with
	// NewTiming.
	Timing Timing
	// Section wraps every Write. nil means a new ThreadSection.
	Section Section
}

// DefaultOpts is the recommended default options for an 80MHz core.
var DefaultOpts = Opts{
	Clock: 80 * physic.MegaHertz,
}

// Dev is a handle to a WS2812 chain on one pin.
//
// Dev owns the pin for its whole lifetime. Nothing else may drive it.
type Dev struct {
	mu     sync.Mutex
	p      Pin
	d      Delayer
	clock  physic.Frequency
	timing Timing
	cs     Section
}

// New opens a handle to a chain on p and drives the line low.
func New(p Pin, d Delayer, opts *Opts) (*Dev, error) {
	if p == nil || d == nil {
		return nil, errors.New("ws2812: pin and delay are required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	t := opts.Timing
	if t == (Timing{}) {
		t = NewTiming(opts.Clock)
	}
	if err := t.Check(opts.Clock); err != nil {
		return nil, err
	}
	cs := opts.Section
	if cs == nil {
		cs = &ThreadSection{}
	}
	dev := &Dev{p: p, d: d, clock: opts.Clock, timing: t, cs: cs}
	if err := p.Out(gpio.Low); err != nil {
		return nil, pinFault(err)
	}
	return dev, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ws2812{%s, %s}", d.clock, d.Timing())
}

// Clock returns the CPU frequency the timing was built for.
func (d *Dev) Clock() physic.Frequency {
	return d.clock
}

// Timing returns the pulse shape used by the next Write.
func (d *Dev) Timing() Timing {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timing
}

// SetTiming replaces the pulse shape. It waits for a Write in progress to
// finish, so a frame is always sent with a single Timing.
//
// t must pass Check at the device clock.
func (d *Dev) SetTiming(t Timing) error {
	if err := t.Check(d.clock); err != nil {
		return err
	}
	d.mu.Lock()
	d.timing = t
	d.mu.Unlock()
	return nil
}

// Recalibrate feeds one measurement to c and installs the adjusted unit.
//
// observed is how long something that should have taken want actually took,
// for example a bit period measured on a scope.
//
// The unit never drops below Timing.MinUnit, even if c.Max is lower, so the
// reset gap keeps latching.
func (d *Dev) Recalibrate(c Calibrator, observed, want time.Duration) (Timing, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.timing
	t.Unit = c.Adjust(t.Unit, observed, want)
	if min := t.MinUnit(d.clock); t.Unit < min {
		t.Unit = min
	}
	if err := t.Check(d.clock); err != nil {
		return d.timing, err
	}
	d.timing = t
	return t, nil
}

// Write sends colors down the chain and latches them.
//
// Channels go out green, red, blue, each most significant bit first. The
// line is then held low for the reset gap, once, after the last bit. An
// empty slice only sends the reset gap.
//
// Write blocks for the whole frame and cannot be interrupted. On a pin error
// it returns immediately, wrapping ErrPinFault, without touching the pin
// again.
func (d *Dev) Write(colors []Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.timing
	high1 := t.Unit * t.Long
	low1 := t.Unit * t.Short
	high0 := t.Unit * t.Short
	low0 := t.Unit * t.Long

	d.cs.Enter()
	defer d.cs.Exit()
	for _, c := range colors {
		for _, v := range [3]uint8{c.G, c.R, c.B} {
			for i := 0; i < 8; i++ {
				high, low := high0, low0
				if v&0x80 != 0 {
					high, low = high1, low1
				}
				if err := d.p.Out(gpio.High); err != nil {
					return pinFault(err)
				}
				d.d.Delay(high)
				if err := d.p.Out(gpio.Low); err != nil {
					return pinFault(err)
				}
				d.d.Delay(low)
				v <<= 1
			}
		}
	}
	d.delayLong(t.ResetCycles())
	return nil
}

// Halt drives the line low.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.p.Out(gpio.Low); err != nil {
		return pinFault(err)
	}
	return nil
}

// delayLong splits delays that do not fit in a single Delay call.
func (d *Dev) delayLong(cycles uint64) {
	const max = uint64(^uint32(0))
	for cycles > max {
		d.d.Delay(uint32(max))
		cycles -= max
	}
	d.d.Delay(uint32(cycles))
}

func pinFault(err error) error {
	return fmt.Errorf("%w: %v", ErrPinFault, err)
}
