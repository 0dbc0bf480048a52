// Package ws2812 is a driver for WS2812/WS2812B LED chains bit-banged on a
// plain digital output pin.
//
// The waveform is produced entirely in software: every bit is a high phase
// followed by a low phase, each lasting a whole number of protocol units, and
// each unit is a fixed number of CPU cycles spent in a busy-wait Delayer. No
// SPI, PWM, PIO or DMA peripheral is involved.
//
// # Deployment preconditions
//
// Write is a blocking, non-preemptible critical section. It never yields and
// cannot be cancelled once started; a chain of N LEDs keeps the calling
// thread busy for roughly N×30µs plus the reset gap. Any interrupt, scheduler
// preemption or GC pause that lands inside a Write stretches the phase it
// lands in and corrupts the frame. Nothing in software can detect this: the
// LEDs have no feedback path, so a violated precondition shows up only as
// wrong colors, flicker or dark pixels. Integrators must make sure that:
//
//   - interrupts are disabled, or rare and short, while Write runs;
//   - platform watchdogs are disabled before the first Write, since a long
//     chain can outlast the watchdog period;
//   - the calibration constant (Timing.Unit) matches the real clock and the
//     real cost of Delayer.Delay and Pin.Out.
//
// On a hosted OS the default ThreadSection pins the goroutine to its thread
// and disables the GC for the duration of the frame. That narrows the window
// but does not remove it.
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/WS2812B.pdf
package ws2812
