//go:build !linux

package pinio

import "fmt"

func openGPIOD(name string) (Line, error) {
	return nil, fmt.Errorf("pinio: gpiod is not supported on this platform")
}

func openRPIO(name string) (Line, error) {
	return nil, fmt.Errorf("pinio: rpio is not supported on this platform")
}
