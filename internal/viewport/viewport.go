// Package viewport maps between canvas pixels and source-image pixels
// under zoom and pan.
package viewport

import (
	"math"

	"cutout-studio/pkg/geometry"
)

const (
	// ZoomStep is the multiplier applied per zoom wheel notch.
	ZoomStep = 1.2

	// MaxZoom caps magnification at 5000%.
	MaxZoom = 50.0

	// panPixels is the keyboard pan distance in canvas pixels.
	panPixels = 30.0
)

// Direction indicates a zoom direction.
type Direction int

const (
	ZoomIn Direction = iota
	ZoomOut
)

// Transform holds the visible-window state for one image: the zoom factor
// and the source-image coordinate of the canvas origin.
type Transform struct {
	ImageW, ImageH   int
	CanvasW, CanvasH int

	Zoom  float64
	ViewX float64
	ViewY float64
}

// New creates a Transform fitted to the whole image.
func New(imageW, imageH, canvasW, canvasH int) *Transform {
	t := &Transform{
		ImageW:  imageW,
		ImageH:  imageH,
		CanvasW: canvasW,
		CanvasH: canvasH,
	}
	t.Reset()
	return t
}

// FitZoom returns the zoom factor at which the whole image exactly fits
// the canvas. This is the lower zoom bound.
func (t *Transform) FitZoom() float64 {
	if t.ImageW == 0 || t.ImageH == 0 {
		return 1.0
	}
	return math.Min(float64(t.CanvasW)/float64(t.ImageW), float64(t.CanvasH)/float64(t.ImageH))
}

// AtFit reports whether the view is fully zoomed out.
func (t *Transform) AtFit() bool {
	return t.Zoom <= t.FitZoom()+1e-9
}

// Reset fits the whole image and moves the origin to (0,0).
func (t *Transform) Reset() {
	t.Zoom = t.FitZoom()
	t.ViewX = 0
	t.ViewY = 0
}

// Resize updates the canvas dimensions and refits the view.
func (t *Transform) Resize(canvasW, canvasH int) {
	t.CanvasW = canvasW
	t.CanvasH = canvasH
	t.Reset()
}

// ToImage converts canvas coordinates to source-image coordinates.
func (t *Transform) ToImage(canvasX, canvasY float64) (float64, float64) {
	return t.ViewX + canvasX/t.Zoom, t.ViewY + canvasY/t.Zoom
}

// ToCanvas converts source-image coordinates to canvas coordinates.
func (t *Transform) ToCanvas(imgX, imgY float64) (float64, float64) {
	return (imgX - t.ViewX) * t.Zoom, (imgY - t.ViewY) * t.Zoom
}

// ZoomAt zooms in or out by one step, keeping the image point under the
// cursor fixed on screen.
func (t *Transform) ZoomAt(canvasX, canvasY float64, dir Direction) {
	// Image point under the cursor before the zoom change.
	anchorX, anchorY := t.ToImage(canvasX, canvasY)

	newZoom := t.Zoom
	switch dir {
	case ZoomIn:
		if t.Zoom*ZoomStep <= MaxZoom {
			newZoom = t.Zoom * ZoomStep
		}
	case ZoomOut:
		newZoom = math.Max(t.Zoom/ZoomStep, t.FitZoom())
	}
	t.Zoom = newZoom

	// Solve for the origin that keeps the anchor under the cursor.
	t.ViewX = anchorX - canvasX/t.Zoom
	t.ViewY = anchorY - canvasY/t.Zoom
	t.clampOrigin()
}

// Pan translates the view by a canvas-pixel delta.
func (t *Transform) Pan(dxCanvas, dyCanvas float64) {
	t.ViewX += dxCanvas / t.Zoom
	t.ViewY += dyCanvas / t.Zoom
	t.clampOrigin()
}

// PanStep returns the keyboard pan distance in image pixels.
func (t *Transform) PanStep() float64 {
	return panPixels / t.Zoom
}

// clampOrigin keeps the visible rectangle inside the image. When the
// canvas shows more than the whole image in one axis, the valid origin
// range collapses to the single point 0.
func (t *Transform) clampOrigin() {
	maxX := float64(t.ImageW) - float64(t.CanvasW)/t.Zoom
	maxY := float64(t.ImageH) - float64(t.CanvasH)/t.Zoom
	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}
	t.ViewX = math.Max(0, math.Min(t.ViewX, maxX))
	t.ViewY = math.Max(0, math.Min(t.ViewY, maxY))
}

// VisibleRect returns the integer crop rectangle of the source image that
// is currently on screen, clamped to the image bounds.
func (t *Transform) VisibleRect() geometry.RectInt {
	viewW := float64(t.CanvasW) / t.Zoom
	viewH := float64(t.CanvasH) / t.Zoom

	x := int(t.ViewX)
	y := int(t.ViewY)
	w := int(math.Ceil(viewW))
	h := int(math.Ceil(viewH))
	if w > t.ImageW {
		w = t.ImageW
	}
	if h > t.ImageH {
		h = t.ImageH
	}
	if x+w > t.ImageW {
		x = t.ImageW - w
	}
	if y+h > t.ImageH {
		y = t.ImageH - h
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return geometry.RectInt{X: x, Y: y, Width: w, Height: h}
}

// DisplaySize returns the size in canvas pixels at which the visible crop
// is drawn, plus the padding needed to center it when the scaled image is
// smaller than the canvas.
func (t *Transform) DisplaySize() (w, h, padX, padY int) {
	crop := t.VisibleRect()
	w = int(float64(crop.Width) * t.Zoom)
	h = int(float64(crop.Height) * t.Zoom)
	padX = (t.CanvasW - w) / 2
	padY = (t.CanvasH - h) / 2
	if padX < 0 {
		padX = 0
	}
	if padY < 0 {
		padY = 0
	}
	return w, h, padX, padY
}
