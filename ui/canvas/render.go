package canvas

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"cutout-studio/internal/ai"
	"cutout-studio/internal/document"
	"cutout-studio/internal/mask"
	"cutout-studio/pkg/colorutil"
)

const checkerCell = 12

// drawCheckerboard fills the buffer with the transparency backdrop.
func drawCheckerboard(dst *image.NRGBA) {
	b := dst.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := uint8(0x20)
			if (x/checkerCell+y/checkerCell)%2 == 0 {
				v = 0x2A
			}
			i := y*dst.Stride + x*4
			dst.Pix[i] = v
			dst.Pix[i+1] = v
			dst.Pix[i+2] = v
			dst.Pix[i+3] = 255
		}
	}
}

// drawDocument renders the visible source crop, the preview tint, prompt
// markers, any open box drag, and the brush cursor.
func (ec *EditorCanvas) drawDocument(dst *image.NRGBA, doc *document.Document) {
	crop := doc.View.VisibleRect()
	if crop.Empty() {
		return
	}
	src := doc.SourceCrop()
	dispW, dispH, padX, padY := doc.View.DisplaySize()
	if dispW <= 0 || dispH <= 0 {
		return
	}
	target := image.Rect(padX, padY, padX+dispW, padY+dispH)

	// Fast resampling while interacting, high quality once the view
	// settles.
	scaler := xdraw.Scaler(xdraw.CatmullRom)
	if ec.fastOnly || doc.View.Zoom >= 1 {
		scaler = xdraw.NearestNeighbor
	}
	scaler.Scale(dst, target, src, src.Bounds(), xdraw.Over, nil)

	if preview := doc.PreviewForDisplay(); preview != nil {
		drawPreviewTint(dst, preview, target)
	}
	ec.drawPrompts(dst, doc)
	if ec.boxRect != nil {
		r := ec.boxRect.Normalized()
		drawRectOutline(dst, int(r.X), int(r.Y), int(r.Width), int(r.Height))
	}
	if ec.tool == ToolPaint && ec.cursorInside {
		drawCircleOutline(dst, ec.cursorX, ec.cursorY, ec.BrushDiameter/2)
	}
}

// drawPreviewTint overlays the accent color where the preview mask is
// set, scaled from crop space to display space.
func drawPreviewTint(dst *image.NRGBA, preview *mask.Mask, target image.Rectangle) {
	w := target.Dx()
	h := target.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Nearest-neighbor lookup into the crop-sized mask.
			mx := x * preview.Width / maxInt(w, 1)
			my := y * preview.Height / maxInt(h, 1)
			if preview.At(mx, my) == 0 {
				continue
			}
			i := (target.Min.Y+y)*dst.Stride + (target.Min.X+x)*4
			if i < 0 || i+3 >= len(dst.Pix) {
				continue
			}
			// 50% accent tint over the pixel.
			dst.Pix[i] = uint8((int(dst.Pix[i]) + int(colorutil.Accent.R)) / 2)
			dst.Pix[i+1] = uint8((int(dst.Pix[i+1]) + int(colorutil.Accent.G)) / 2)
			dst.Pix[i+2] = uint8((int(dst.Pix[i+2]) + int(colorutil.Accent.B)) / 2)
		}
	}
}

// drawPrompts marks each prompt point with its add/remove color.
func (ec *EditorCanvas) drawPrompts(dst *image.NRGBA, doc *document.Document) {
	for _, p := range doc.Points {
		if p.Label != ai.LabelAdd && p.Label != ai.LabelRemove {
			continue
		}
		cx, cy := doc.View.ToCanvas(p.X, p.Y)
		c := colorutil.PointAdd
		if p.Label == ai.LabelRemove {
			c = colorutil.PointRemove
		}
		fillCircle(dst, cx, cy, 4, c.R, c.G, c.B)
	}
}

func fillCircle(dst *image.NRGBA, cx, cy, r float64, cr, cg, cb uint8) {
	for y := int(cy - r); y <= int(cy+r); y++ {
		for x := int(cx - r); x <= int(cx+r); x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			if dx*dx+dy*dy > r*r {
				continue
			}
			setPixel(dst, x, y, cr, cg, cb)
		}
	}
}

func drawCircleOutline(dst *image.NRGBA, cx, cy, r float64) {
	steps := int(2 * math.Pi * r)
	if steps < 16 {
		steps = 16
	}
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		setPixel(dst, int(cx+r*math.Cos(a)), int(cy+r*math.Sin(a)), 255, 255, 255)
	}
}

func drawRectOutline(dst *image.NRGBA, x, y, w, h int) {
	c := colorutil.Accent
	for i := 0; i <= w; i++ {
		setPixel(dst, x+i, y, c.R, c.G, c.B)
		setPixel(dst, x+i, y+h, c.R, c.G, c.B)
	}
	for i := 0; i <= h; i++ {
		setPixel(dst, x, y+i, c.R, c.G, c.B)
		setPixel(dst, x+w, y+i, c.R, c.G, c.B)
	}
}

func setPixel(dst *image.NRGBA, x, y int, r, g, b uint8) {
	bounds := dst.Bounds()
	if x < bounds.Min.X || y < bounds.Min.Y || x >= bounds.Max.X || y >= bounds.Max.Y {
		return
	}
	i := y*dst.Stride + x*4
	dst.Pix[i] = r
	dst.Pix[i+1] = g
	dst.Pix[i+2] = b
	dst.Pix[i+3] = 255
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
