package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/coreman2200/ws2812delay/ws2812"
)

// MaxFrameLen is the most LEDs a parsed frame may hold.
const MaxFrameLen = 4096

// ParseFrame reads a frame written as whitespace separated rrggbb tokens.
//
// A token may carry a 0x prefix and a *n suffix to repeat it n times. '#'
// starts a comment. An empty string is an empty frame.
//
//	000010 000100 ffffff   # first three LEDs
//	000000*9 108010
func ParseFrame(s string) ([]ws2812.Color, error) {
	tokens, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	f := []ws2812.Color{}
	for _, tok := range tokens {
		hex, n := tok, 1
		if i := strings.IndexByte(tok, '*'); i >= 0 {
			hex = tok[:i]
			if n, err = strconv.Atoi(tok[i+1:]); err != nil || n < 0 {
				return nil, fmt.Errorf("pattern: bad repeat in %q", tok)
			}
		}
		hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
		if len(hex) != 6 {
			return nil, fmt.Errorf("pattern: %q is not rrggbb", tok)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("pattern: %q is not rrggbb", tok)
		}
		if n > MaxFrameLen-len(f) {
			return nil, fmt.Errorf("pattern: %q makes the frame longer than %d LEDs", tok, MaxFrameLen)
		}
		c := ws2812.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
		for ; n > 0; n-- {
			f = append(f, c)
		}
	}
	return f, nil
}

// ParseFrames parses each line with ParseFrame.
func ParseFrames(lines []string) ([][]ws2812.Color, error) {
	out := make([][]ws2812.Color, 0, len(lines))
	for i, l := range lines {
		f, err := ParseFrame(l)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}
