package ws2812

import (
	"fmt"
	"image/color"
)

const (
	greenOffset = 16
	redOffset   = 8
	blueOffset  = 0
)

// Color is one LED value. There is no alpha; the chip only has three 8 bit
// channels.
type Color struct {
	R, G, B uint8
}

// FromColor converts any color.Color, dropping alpha.
func FromColor(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// FromGRB unpacks a 24 bit wire word as returned by GRB.
func FromGRB(v uint32) Color {
	return Color{
		R: uint8(v >> redOffset),
		G: uint8(v >> greenOffset),
		B: uint8(v >> blueOffset),
	}
}

// GRB packs the color in wire order, green in bits 23..16.
func (c Color) GRB() uint32 {
	return uint32(c.G)<<greenOffset | uint32(c.R)<<redOffset | uint32(c.B)<<blueOffset
}

// RGBA implements color.Color. The color is always opaque.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) * 0x101
	g = uint32(c.G) * 0x101
	b = uint32(c.B) * 0x101
	return r, g, b, 0xffff
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var _ color.Color = Color{}
