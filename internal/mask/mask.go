// Package mask provides the working alpha mask, its undo history, and the
// refinement operations that combine preview masks into it.
package mask

import (
	"image"
)

// Mask is a single-channel alpha buffer with values in 0-255.
// All mutation entry points copy before writing; a Mask handed out by one
// of them is never aliased by the live document state.
type Mask struct {
	Pix    []uint8
	Width  int
	Height int
}

// New creates an all-zero (fully excluded) mask.
func New(width, height int) *Mask {
	return &Mask{
		Pix:    make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// NewFilled creates a mask with every pixel set to value.
func NewFilled(width, height int, value uint8) *Mask {
	m := New(width, height)
	if value != 0 {
		for i := range m.Pix {
			m.Pix[i] = value
		}
	}
	return m
}

// FromGray wraps a copy of a grayscale image as a mask.
func FromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	m := New(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		src := g.Pix[(y+b.Min.Y-g.Rect.Min.Y)*g.Stride+(b.Min.X-g.Rect.Min.X):]
		copy(m.Pix[y*m.Width:(y+1)*m.Width], src[:m.Width])
	}
	return m
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	c := New(m.Width, m.Height)
	copy(c.Pix, m.Pix)
	return c
}

// At returns the mask value at (x, y), or 0 outside the bounds.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Set stores a mask value at (x, y), ignoring out-of-bounds writes.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Equal reports whether two masks have identical dimensions and pixels.
func (m *Mask) Equal(other *Mask) bool {
	if other == nil || m.Width != other.Width || m.Height != other.Height {
		return false
	}
	for i, v := range m.Pix {
		if other.Pix[i] != v {
			return false
		}
	}
	return true
}

// CountAbove returns the number of pixels strictly greater than threshold.
func (m *Mask) CountAbove(threshold uint8) int {
	n := 0
	for _, v := range m.Pix {
		if v > threshold {
			n++
		}
	}
	return n
}

// ToGray converts the mask to a standard grayscale image. The pixel data
// is copied.
func (m *Mask) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(g.Pix, m.Pix)
	return g
}
