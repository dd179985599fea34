package viewport

import (
	"math"
	"testing"
)

func TestCoordinateRoundTrip(t *testing.T) {
	vt := New(4000, 3000, 800, 600)
	vt.Zoom = 2.5
	vt.ViewX = 123.4
	vt.ViewY = 567.8

	points := [][2]float64{
		{0, 0},
		{400, 300},
		{799, 599},
		{13.7, 250.2},
	}
	for _, p := range points {
		imgX, imgY := vt.ToImage(p[0], p[1])
		backX, backY := vt.ToCanvas(imgX, imgY)
		if math.Abs(backX-p[0]) > 1e-9 || math.Abs(backY-p[1]) > 1e-9 {
			t.Errorf("round trip (%v,%v) -> (%v,%v)", p[0], p[1], backX, backY)
		}
	}
}

func TestZoomBounds(t *testing.T) {
	vt := New(4000, 3000, 800, 600)

	// Zoom out repeatedly: never below fit.
	for i := 0; i < 50; i++ {
		vt.ZoomAt(400, 300, ZoomOut)
	}
	if vt.Zoom < vt.FitZoom() {
		t.Errorf("zoom %v below fit zoom %v", vt.Zoom, vt.FitZoom())
	}

	// Zoom in repeatedly: never above max.
	for i := 0; i < 200; i++ {
		vt.ZoomAt(400, 300, ZoomIn)
	}
	if vt.Zoom > MaxZoom {
		t.Errorf("zoom %v above max %v", vt.Zoom, MaxZoom)
	}

	// Origin stays inside valid range at every step.
	for i := 0; i < 30; i++ {
		vt.ZoomAt(17, 593, ZoomOut)
		maxX := float64(vt.ImageW) - float64(vt.CanvasW)/vt.Zoom
		maxY := float64(vt.ImageH) - float64(vt.CanvasH)/vt.Zoom
		if vt.ViewX < 0 || (maxX > 0 && vt.ViewX > maxX+1e-9) {
			t.Errorf("step %d: origin X %v outside [0,%v]", i, vt.ViewX, maxX)
		}
		if vt.ViewY < 0 || (maxY > 0 && vt.ViewY > maxY+1e-9) {
			t.Errorf("step %d: origin Y %v outside [0,%v]", i, vt.ViewY, maxY)
		}
	}
}

func TestZoomInOutReturnsToFit(t *testing.T) {
	vt := New(1024, 768, 512, 384)
	start := vt.Zoom
	if start != vt.FitZoom() {
		t.Fatalf("new transform not at fit zoom: %v vs %v", start, vt.FitZoom())
	}

	vt.ZoomAt(100, 100, ZoomIn)
	vt.ZoomAt(100, 100, ZoomOut)

	// One multiply then one divide by the same factor lands back exactly,
	// the zoom-out clamp snaps any residual to fit.
	if vt.Zoom != start {
		t.Errorf("zoom after in+out = %v, want %v", vt.Zoom, start)
	}
}

func TestZoomAnchorStaysUnderCursor(t *testing.T) {
	vt := New(4000, 3000, 800, 600)
	// Zoom in a few times so clamping doesn't interfere.
	for i := 0; i < 5; i++ {
		vt.ZoomAt(400, 300, ZoomIn)
	}

	cx, cy := 321.0, 234.0
	beforeX, beforeY := vt.ToImage(cx, cy)
	vt.ZoomAt(cx, cy, ZoomIn)
	afterX, afterY := vt.ToImage(cx, cy)

	if math.Abs(beforeX-afterX) > 1e-6 || math.Abs(beforeY-afterY) > 1e-6 {
		t.Errorf("anchor moved: (%v,%v) -> (%v,%v)", beforeX, beforeY, afterX, afterY)
	}
}

func TestPanClamping(t *testing.T) {
	vt := New(1000, 1000, 500, 500)
	vt.Zoom = 2.0 // image larger than canvas in image space

	vt.Pan(-1e6, -1e6)
	if vt.ViewX != 0 || vt.ViewY != 0 {
		t.Errorf("pan to negative not clamped: (%v,%v)", vt.ViewX, vt.ViewY)
	}

	vt.Pan(1e6, 1e6)
	wantMax := float64(vt.ImageW) - float64(vt.CanvasW)/vt.Zoom
	if vt.ViewX != wantMax || vt.ViewY != wantMax {
		t.Errorf("pan past edge not clamped: (%v,%v), want %v", vt.ViewX, vt.ViewY, wantMax)
	}
}

func TestZoomedOutOriginIsSinglePoint(t *testing.T) {
	// Canvas wider (in image pixels) than the image itself: the only
	// valid origin is 0, and nothing may go NaN.
	vt := New(100, 100, 800, 600)
	vt.Pan(50, 50)
	if vt.ViewX != 0 || vt.ViewY != 0 {
		t.Errorf("degenerate range origin = (%v,%v), want (0,0)", vt.ViewX, vt.ViewY)
	}
	if math.IsNaN(vt.Zoom) || math.IsNaN(vt.ViewX) || math.IsNaN(vt.ViewY) {
		t.Error("NaN in viewport state")
	}
}

func TestVisibleRect(t *testing.T) {
	vt := New(4000, 3000, 800, 600)
	vt.Zoom = 2.0
	vt.ViewX = 100
	vt.ViewY = 200

	r := vt.VisibleRect()
	if r.X != 100 || r.Y != 200 {
		t.Errorf("crop origin = (%d,%d), want (100,200)", r.X, r.Y)
	}
	if r.Width != 400 || r.Height != 300 {
		t.Errorf("crop size = %dx%d, want 400x300", r.Width, r.Height)
	}

	// Fully zoomed out: the crop covers the whole image.
	vt.Reset()
	r = vt.VisibleRect()
	if r.X != 0 || r.Y != 0 || r.Width != 4000 || r.Height != 3000 {
		t.Errorf("fit crop = %+v, want whole image", r)
	}
}

func TestPanStepScalesWithZoom(t *testing.T) {
	vt := New(4000, 3000, 800, 600)
	vt.Zoom = 1.0
	oneX := vt.PanStep()
	vt.Zoom = 2.0
	if got := vt.PanStep(); got != oneX/2 {
		t.Errorf("pan step at 2x = %v, want %v", got, oneX/2)
	}
}
