package monitor

import (
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812delay/internal/loop"
	"github.com/coreman2200/ws2812delay/ws2812"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// diagnose inspects the timing and the loop counters.
func diagnose(t ws2812.Timing, clock physic.Frequency, st loop.Stats) []Diagnostic {
	var out []Diagnostic
	if !t.InTolerance(clock) {
		out = append(out, Diagnostic{
			Severity: Info,
			Code:     "TIMING.NOMINAL",
			Summary:  "Nominal bit period is outside 1.25µs±150ns",
			Detail:   "Expected when the unit was calibrated to absorb delay loop overhead.",
			SuggestedFixes: []string{
				"check the waveform with a logic analyzer",
				"recalibrate the unit",
			},
			Evidence: map[string]any{
				"bit_period": t.BitPeriod(clock).String(),
				"unit":       t.Unit,
				"clock":      clock.String(),
			},
		})
	}
	if st.Faults != 0 {
		out = append(out, Diagnostic{
			Severity: Err,
			Code:     "PIN.FAULT",
			Summary:  "Pin writes failed",
			LikelyCauses: []string{
				"GPIO line claimed by another process",
				"device removed or permission lost",
			},
			Evidence: map[string]any{"faults": st.Faults, "last_error": st.LastErr},
		})
	}
	if st.Errors != 0 {
		out = append(out, Diagnostic{
			Severity: Warn,
			Code:     "SINK.ERROR",
			Summary:  "A non hardware sink failed",
			Evidence: map[string]any{"errors": st.Errors, "last_error": st.LastErr},
		})
	}
	return out
}
