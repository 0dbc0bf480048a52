// ws2812 drives a WS2812 chain from a plain GPIO pin by software timing.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/ws2812delay/delay"
	"github.com/coreman2200/ws2812delay/internal/config"
	"github.com/coreman2200/ws2812delay/internal/layout"
	"github.com/coreman2200/ws2812delay/internal/loop"
	"github.com/coreman2200/ws2812delay/internal/monitor"
	"github.com/coreman2200/ws2812delay/internal/pattern"
	"github.com/coreman2200/ws2812delay/internal/pinio"
	"github.com/coreman2200/ws2812delay/ws2812"
)

func main() {
	// ---- Flags (remain usable; config.yaml can override most) ----
	def := config.Default()
	var clock physic.Frequency
	flag.Var(&clock, "clock", "CPU clock the delay is calibrated for, e.g. 80MHz (default: host max speed)")
	var (
		backend    = flag.String("backend", def.Backend, "pin backend: periph | gpiod | rpio | sim")
		pin        = flag.String("pin", def.Pin, "data pin, e.g. GPIO12 or gpiochip0:12")
		status     = flag.String("status", "", "optional status LED pin, lit while the frame is")
		statusInv  = flag.String("status-inv", "", "optional status LED pin, dark while the frame is lit")
		delayKind  = flag.String("delay", def.Delay, "delay loop: spin | nanospin | counted")
		unit       = flag.Uint("unit", 0, "cycles per protocol unit (0 derives it from -clock)")
		reset      = flag.Uint("reset", uint(def.Timing.Reset), "reset gap in units")
		calibrate  = flag.Bool("calibrate", false, "measure the delay loop and correct -unit at startup")
		pat        = flag.String("pattern", def.Pattern, "pattern: blink | wheel | solid | frames | index_sweep | rgb_channels | row_sweep")
		periodMs   = flag.Int("period-ms", def.PeriodMs, "pattern period (ms)")
		fps        = flag.Int("fps", def.FPS, "target frames per second")
		x          = flag.Int("x", def.Dim.X, "LEDs per row (X)")
		y          = flag.Int("y", def.Dim.Y, "LED rows (Y)")
		xFlip      = flag.Bool("x-flip-every-row", false, "serpentine: flip every row along X")
		addr       = flag.String("addr", "", "HTTP listen address for /health and /ws (empty: off)")
		preview    = flag.Bool("preview", false, "also print frames on the console")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// ---- Load config.yaml (optional) ----
	var cfg *config.Config
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}

	// ---- Effective params (config overrides flags where available) ----
	eBackend, ePin, eStatus, eStatusInv, eDelay := *backend, *pin, *status, *statusInv, *delayKind
	eTiming := config.Timing{Unit: uint32(*unit), Short: def.Timing.Short, Long: def.Timing.Long, Reset: uint32(*reset)}
	eCal := config.Calibrate{Enabled: *calibrate}
	ePattern, ePeriod, eFPS := *pat, *periodMs, *fps
	eDim := config.Dim{X: *x, Y: *y}
	eFlip, eAddr, ePreview := *xFlip, *addr, *preview
	var eFrames []string

	if cfg != nil {
		eBackend = firstNonEmpty(cfg.Backend, eBackend)
		ePin = firstNonEmpty(cfg.Pin, ePin)
		eStatus = firstNonEmpty(cfg.Status, eStatus)
		eStatusInv = firstNonEmpty(cfg.StatusInv, eStatusInv)
		eDelay = firstNonEmpty(cfg.Delay, eDelay)
		if cfg.Clock != "" {
			if err := clock.Set(cfg.Clock); err != nil {
				log.Fatal().Err(err).Str("clock", cfg.Clock).Msg("bad clock in config")
			}
		}
		eTiming.Unit = firstNonZero(cfg.Timing.Unit, eTiming.Unit)
		eTiming.Short = firstNonZero(cfg.Timing.Short, eTiming.Short)
		eTiming.Long = firstNonZero(cfg.Timing.Long, eTiming.Long)
		eTiming.Reset = firstNonZero(cfg.Timing.Reset, eTiming.Reset)
		if cfg.Calibrate.Enabled {
			eCal = cfg.Calibrate
		}
		ePattern = firstNonEmpty(cfg.Pattern, ePattern)
		eFrames = cfg.Frames
		if cfg.PeriodMs > 0 {
			ePeriod = cfg.PeriodMs
		}
		if cfg.FPS > 0 {
			eFPS = cfg.FPS
		}
		if cfg.Dim.X > 0 {
			eDim.X = cfg.Dim.X
		}
		if cfg.Dim.Y > 0 {
			eDim.Y = cfg.Dim.Y
		}
		eFlip = eFlip || cfg.XFlipEveryRow
		eAddr = firstNonEmpty(cfg.Addr, eAddr)
		ePreview = ePreview || cfg.Preview
	}
	if *simOnly {
		eBackend = "sim"
	}

	// ---- Clock and delay loop ----
	if clock == 0 {
		clock = delay.Clock()
	}
	if clock == 0 {
		clock = ws2812.DefaultOpts.Clock
		log.Warn().Str("clock", clock.String()).Msg("host clock unknown; using default")
	}
	var d ws2812.Delayer
	switch eDelay {
	case "spin":
		d = delay.Spin{Clock: clock}
	case "nanospin":
		d = delay.Nanospin{Clock: clock}
	case "counted":
		c := delay.CountedFor(clock)
		log.Info().Uint32("per_iteration", c.PerIteration).Msg("counted delay measured")
		d = c
	default:
		log.Fatal().Str("delay", eDelay).Msg("unknown delay loop")
	}

	// ---- Pins ----
	line, err := pinio.Open(eBackend, ePin)
	if err != nil {
		log.Warn().Err(err).Str("backend", eBackend).Str("pin", ePin).Msg("pin open failed; falling back to SIM")
		eBackend = "sim"
		line, _ = pinio.Open("sim", ePin)
	}
	defer line.Close()

	// ---- Device ----
	tm := ws2812.NewTiming(clock)
	tm.Unit = firstNonZero(eTiming.Unit, tm.Unit)
	tm.Short = firstNonZero(eTiming.Short, tm.Short)
	tm.Long = firstNonZero(eTiming.Long, tm.Long)
	tm.Reset = firstNonZero(eTiming.Reset, tm.Reset)
	dev, err := ws2812.New(line, d, &ws2812.Opts{Clock: clock, Timing: tm, Section: &ws2812.ThreadSection{}})
	if err != nil {
		log.Fatal().Err(err).Msg("device init failed")
	}
	defer func() {
		if err := dev.Halt(); err != nil {
			log.Warn().Err(err).Msg("halt")
		}
	}()
	if !dev.Timing().InTolerance(clock) {
		log.Warn().Str("bit_period", dev.Timing().BitPeriod(clock).String()).Msg("nominal bit period outside tolerance")
	}
	if eCal.Enabled {
		runCalibration(dev, eCal)
	}
	log.Info().Str("dev", dev.String()).Str("backend", eBackend).Msg("device ready")

	// ---- Frames ----
	l := layout.Serpentine{Dim: layout.Dim{X: eDim.X, Y: eDim.Y}, XFlipEveryRow: eFlip}
	period := time.Duration(ePeriod) * time.Millisecond
	var src pattern.Source
	switch ePattern {
	case "blink":
		src = pattern.Blink{Period: period}
	case "wheel":
		src = pattern.Wheel{Layout: l, Period: period}
	case "solid":
		src = pattern.Solid{Color: ws2812.Color{R: 0x10, G: 0x10, B: 0x10}, N: l.Count()}
	case "index_sweep":
		src = pattern.IndexSweep{N: l.Count(), Period: period}
	case "rgb_channels":
		src = pattern.Channels{N: l.Count(), Period: period}
	case "row_sweep":
		src = pattern.RowSweep{Layout: l, Period: period}
	case "frames":
		frames, err := pattern.ParseFrames(eFrames)
		if err != nil {
			log.Fatal().Err(err).Msg("bad frames in config")
		}
		src = pattern.Sequence{Frames: frames, Period: period}
	default:
		log.Fatal().Str("pattern", ePattern).Msg("unknown pattern")
	}

	sinks := []loop.Sink{dev}
	for _, st := range []struct {
		name   string
		invert bool
	}{{eStatus, false}, {eStatusInv, true}} {
		if st.name == "" {
			continue
		}
		sp, err := pinio.Open(eBackend, st.name)
		if err != nil {
			log.Warn().Err(err).Str("pin", st.name).Msg("status pin unavailable")
			continue
		}
		defer sp.Close()
		sinks = append(sinks, loop.Indicator{Pin: sp, Invert: st.invert})
	}
	if ePreview {
		sinks = append(sinks, loop.DrawerSink{D: screen.New(l.Count())})
	}
	looper := &loop.Looper{Source: src, FPS: eFPS}
	var state *monitor.State
	if eAddr != "" {
		state = monitor.NewState(dev)
		state.Stats = looper.Stats
		sinks = append(sinks, state)
	}
	looper.Sinks = sinks

	// ---- Run render loop & server ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return looper.Run(ctx)
	})
	if state != nil {
		srv := &http.Server{
			Addr:         eAddr,
			Handler:      state.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("addr", eAddr).Msg("HTTP server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Close()
		})
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("stopped with error")
	}
	st := looper.Stats()
	log.Info().Uint64("frames", st.Frames).Uint64("faults", st.Faults).Msg("bye")
}

// runCalibration times real bits, pin writes included, and corrects the unit
// until it stops moving. Bounds left at zero in c default to
// ws2812.CalibratorFor the starting timing. The chain is sent dark frames.
func runCalibration(dev *ws2812.Dev, c config.Calibrate) {
	cal := ws2812.CalibratorFor(dev.Timing(), dev.Clock())
	if c.Min != 0 {
		cal.Min = c.Min
	}
	if c.Max != 0 {
		cal.Max = c.Max
	}
	if c.MaxStep != 0 {
		cal.MaxStep = c.MaxStep
	}
	for i := 0; i < 64; i++ {
		before := dev.Timing()
		observed, err := delay.MeasureBit(dev, 64)
		if err != nil {
			log.Warn().Err(err).Msg("calibration stopped")
			return
		}
		after, err := dev.Recalibrate(cal, observed, ws2812.BitPeriod)
		if err != nil {
			log.Warn().Err(err).Msg("calibration stopped")
			return
		}
		log.Debug().Dur("observed", observed).Uint32("unit", after.Unit).Msg("calibrating")
		if after.Unit == before.Unit {
			break
		}
	}
	log.Info().Uint32("unit", dev.Timing().Unit).Msg("calibrated")
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b uint32) uint32 {
	if a != 0 {
		return a
	}
	return b
}
