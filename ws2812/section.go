package ws2812

import (
	"runtime"
	"runtime/debug"
)

// Section brackets a Write. Enter is called before the first edge and Exit
// after the reset gap, on the same goroutine.
type Section interface {
	Enter()
	Exit()
}

// ThreadSection keeps the writing goroutine on its OS thread and the garbage
// collector off while a frame is sent.
//
// It cannot mask hardware interrupts or stop the kernel from descheduling
// the thread.
type ThreadSection struct {
	gc int
}

// Enter implements Section.
func (s *ThreadSection) Enter() {
	runtime.LockOSThread()
	s.gc = debug.SetGCPercent(-1)
}

// Exit implements Section.
func (s *ThreadSection) Exit() {
	debug.SetGCPercent(s.gc)
	runtime.UnlockOSThread()
}

// NopSection does nothing. Use it where timing is simulated.
type NopSection struct{}

// Enter implements Section.
func (NopSection) Enter() {}

// Exit implements Section.
func (NopSection) Exit() {}

var (
	_ Section = &ThreadSection{}
	_ Section = NopSection{}
)
