// Package loop refreshes the chain at a fixed cadence.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ws2812delay/internal/pattern"
	"github.com/coreman2200/ws2812delay/ws2812"
)

const DefaultFPS = 30

// Sink takes one frame. *ws2812.Dev is a Sink.
type Sink interface {
	Write(frame []ws2812.Color) error
}

// Stats is a snapshot of a Looper's counters.
type Stats struct {
	Frames  uint64    `json:"frames"`
	Faults  uint64    `json:"faults"` // ws2812.ErrPinFault from any sink
	Errors  uint64    `json:"errors"` // other sink errors
	LastErr string    `json:"last_error,omitempty"`
	Start   time.Time `json:"start"`
}

// Looper renders Source at FPS and writes every frame to all Sinks in order.
//
// A failing sink does not stop the loop; the next tick sends a whole new
// frame, and a Dev always starts a frame after a full reset gap.
type Looper struct {
	Source pattern.Source
	Sinks  []Sink
	FPS    int

	mu    sync.Mutex
	stats Stats
}

// Run blocks until ctx is done.
func (l *Looper) Run(ctx context.Context) error {
	fps := l.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	delta := time.Second / time.Duration(fps)
	ticker := time.NewTicker(delta)
	defer ticker.Stop()

	start := time.Now()
	l.mu.Lock()
	l.stats.Start = start
	l.mu.Unlock()
	log.Info().Int("fps", fps).Int("sinks", len(l.Sinks)).Msg("refresh loop starting")

	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("frames", l.Stats().Frames).Msg("refresh loop stopped")
			return nil
		case t := <-ticker.C:
			_ = l.Step(t.Sub(start))
			if d := time.Since(t); d > delta {
				log.Debug().Dur("took", d).Dur("budget", delta).Msg("frame overran")
			}
		}
	}
}

// Step renders the frame for elapsed and writes it to every sink. It returns
// the first sink error.
func (l *Looper) Step(elapsed time.Duration) error {
	frame := l.Source.Frame(elapsed)
	var first error
	for i, s := range l.Sinks {
		if err := s.Write(frame); err != nil {
			l.fail(i, err)
			if first == nil {
				first = err
			}
		}
	}
	l.mu.Lock()
	l.stats.Frames++
	l.mu.Unlock()
	return first
}

func (l *Looper) fail(sink int, err error) {
	l.mu.Lock()
	fault := errors.Is(err, ws2812.ErrPinFault)
	if fault {
		l.stats.Faults++
	} else {
		l.stats.Errors++
	}
	l.stats.LastErr = err.Error()
	frame := l.stats.Frames
	l.mu.Unlock()
	ev := log.Warn()
	if !fault {
		ev = log.Error()
	}
	ev.Err(err).Int("sink", sink).Uint64("frame", frame).Msg("write failed; retrying next frame")
}

// Stats returns the current counters.
func (l *Looper) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}
