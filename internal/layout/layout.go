// Package layout maps panel coordinates onto positions in the chain.
package layout

type Dim struct{ X, Y int }

// Serpentine is a panel wired row by row, starting at (0,0).
type Serpentine struct {
	Dim Dim
	// XFlipEveryRow reverses odd rows, for strips folded back and forth.
	XFlipEveryRow bool
}

// Index maps x,y -> linear LED index (0..N-1)
func (l Serpentine) Index(x, y int) int {
	xx := x
	if y%2 == 1 && l.XFlipEveryRow {
		xx = l.Dim.X - 1 - x
	}
	return y*l.Dim.X + xx
}

func (l Serpentine) Count() int {
	return l.Dim.X * l.Dim.Y
}

// Strip is a single row of n LEDs.
func Strip(n int) Serpentine {
	return Serpentine{Dim: Dim{X: n, Y: 1}}
}
