package mask

import (
	"image"

	"github.com/fogleman/gg"

	"cutout-studio/pkg/geometry"
)

// Stroke is one painted brush segment in image-space coordinates, with the
// brush diameter already converted to image pixels.
type Stroke struct {
	From  geometry.Point2D
	To    geometry.Point2D
	Width float64
}

// StrokeSet accumulates brush segments of an in-progress paint preview.
// Segments are kept in image space so a zoom change mid-stroke does not
// distort earlier segments.
type StrokeSet struct {
	strokes []Stroke
}

// Add appends one segment. A click without movement is recorded as a
// zero-length segment and still rasterizes as a round dot.
func (s *StrokeSet) Add(from, to geometry.Point2D, width float64) {
	s.strokes = append(s.strokes, Stroke{From: from, To: to, Width: width})
}

// Empty reports whether no segments have been painted.
func (s *StrokeSet) Empty() bool { return len(s.strokes) == 0 }

// Len returns the number of recorded segments.
func (s *StrokeSet) Len() int { return len(s.strokes) }

// Clear discards all segments.
func (s *StrokeSet) Clear() { s.strokes = s.strokes[:0] }

// Rasterize renders the segments as a white-on-black mask of the given
// size. Lines are drawn with round caps so adjacent segments join without
// gaps.
func (s *StrokeSet) Rasterize(width, height int) *Mask {
	dc := gg.NewContext(width, height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.SetLineCapRound()

	for _, st := range s.strokes {
		if st.From == st.To {
			dc.DrawCircle(st.From.X, st.From.Y, st.Width/2)
			dc.Fill()
			continue
		}
		dc.SetLineWidth(st.Width)
		dc.DrawLine(st.From.X, st.From.Y, st.To.X, st.To.Y)
		dc.Stroke()
	}

	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		// gg always backs its context with RGBA; fall back via At if not.
		return FromGray(grayFromImage(dc.Image(), width, height))
	}
	out := New(width, height)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			out.Pix[y*width+x] = row[x*4]
		}
	}
	return out
}

func grayFromImage(img image.Image, width, height int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			g.Pix[y*g.Stride+x] = uint8(r >> 8)
		}
	}
	return g
}
