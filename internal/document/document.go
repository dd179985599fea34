// Package document owns all pixel-buffer state for one loaded image: the
// source pixels, the working mask and its history, the transient preview
// mask, and the composited output caches. Every mutating operation runs
// to completion on the owning goroutine; only inference runs elsewhere.
package document

import (
	"fmt"
	"image"
	"image/color"

	"cutout-studio/internal/ai"
	"cutout-studio/internal/mask"
	"cutout-studio/internal/render"
	"cutout-studio/internal/viewport"
	"cutout-studio/pkg/geometry"
)

// UserInputError marks an operation attempted without its precondition.
// It aborts the operation with a status message and mutates nothing.
type UserInputError struct {
	Msg string
}

func (e *UserInputError) Error() string { return e.Msg }

// Document is the single mutable editing state for one image.
type Document struct {
	Source *image.NRGBA
	Path   string

	Working *mask.Mask
	history *mask.History
	maskGen uint64

	// Transient preview state, derived from the latest raw model output
	// and the threshold slider.
	Preview *mask.Mask
	Raw     *ai.RawOutput
	Slider  float64

	View *viewport.Transform

	// Prompt state for the prompted model.
	Points         []ai.Point
	PromptActive   bool
	embeddingStale bool

	// Manual paint state.
	Paint     mask.StrokeSet
	PaintMode bool

	// MaskView shows the working mask itself in the output pane instead
	// of the composite.
	MaskView bool

	// Output settings and caches.
	SoftenRadius int
	Shadow       render.ShadowParams
	BGMode       render.BackgroundMode
	BGColor      color.NRGBA
	BlurRadius   float64

	cutout      *image.NRGBA
	cutoutValid bool
	bgCache     render.BackgroundCache
	shadowCache render.ShadowCache
}

// New creates a document around a source image with an empty working
// mask and a viewport fitted to the given canvas.
func New(src *image.NRGBA, path string, canvasW, canvasH int) *Document {
	b := src.Bounds()
	working := mask.New(b.Dx(), b.Dy())
	return &Document{
		Source:  src,
		Path:    path,
		Working: working,
		history: mask.NewHistory(working),
		View:    viewport.New(b.Dx(), b.Dy(), canvasW, canvasH),
		Slider:  50,
		BGMode:  render.BackgroundTransparent,
		BGColor: color.NRGBA{B: 255, A: 255},
		Shadow:  render.ShadowParams{Opacity: 0.5, Radius: 10, OffsetX: 50, OffsetY: 50},
	}
}

// MaskGen identifies the current working mask; it advances on every
// semantic mutation and keys the render caches.
func (d *Document) MaskGen() uint64 { return d.maskGen }

// setWorking installs a new working mask, records history, and drops
// every derived buffer.
func (d *Document) setWorking(m *mask.Mask) {
	d.Working = m
	d.history.Push(m)
	d.bumpMask()
}

// restoreWorking installs a mask coming back from history without
// recording a new snapshot.
func (d *Document) restoreWorking(m *mask.Mask) {
	d.Working = m
	d.bumpMask()
}

func (d *Document) bumpMask() {
	d.maskGen++
	d.cutoutValid = false
	d.bgCache.Invalidate()
	d.shadowCache.Invalidate()
}

// ApplyPreview folds the current preview mask into the working mask at
// the viewport crop offset.
func (d *Document) ApplyPreview(op mask.Op) error {
	preview := d.currentPreview()
	if preview == nil {
		return &UserInputError{Msg: "no mask generated to add/subtract, run a model first"}
	}
	crop := d.View.VisibleRect()
	next := mask.Apply(d.Working, preview, op, geometry.PointInt{X: crop.X, Y: crop.Y})
	d.setWorking(next)
	if d.PaintMode {
		d.Paint.Clear()
	}
	return nil
}

// currentPreview picks the live preview source: painted strokes in paint
// mode, otherwise the model-derived preview.
func (d *Document) currentPreview() *mask.Mask {
	if d.PaintMode {
		if d.Paint.Empty() {
			return nil
		}
		crop := d.View.VisibleRect()
		return d.Paint.Rasterize(crop.Width, crop.Height)
	}
	return d.Preview
}

// PreviewForDisplay returns the mask the overlay should tint, or nil.
func (d *Document) PreviewForDisplay() *mask.Mask { return d.currentPreview() }

// Undo restores the previous working mask state.
func (d *Document) Undo() bool {
	m, ok := d.history.Undo()
	if !ok {
		return false
	}
	d.restoreWorking(m)
	return true
}

// Redo reapplies the next working mask state.
func (d *Document) Redo() bool {
	m, ok := d.history.Redo()
	if !ok {
		return false
	}
	d.restoreWorking(m)
	return true
}

// Clear resets the working mask to fully excluded.
func (d *Document) Clear() {
	d.setWorking(mask.New(d.Working.Width, d.Working.Height))
}

// CopyAll sets the working mask to full inclusion.
func (d *Document) CopyAll() {
	d.setWorking(mask.NewFilled(d.Working.Width, d.Working.Height, 255))
}

// ClearVisible subtracts the entire visible area from the working mask.
// The live preview mask survives the call.
func (d *Document) ClearVisible() {
	crop := d.View.VisibleRect()
	white := mask.NewFilled(crop.Width, crop.Height, 255)
	next := mask.Apply(d.Working, white, mask.OpSubtract, geometry.PointInt{X: crop.X, Y: crop.Y})
	d.setWorking(next)
}

// SetRawOutput installs a fresh inference result and derives the preview
// at the current slider position.
func (d *Document) SetRawOutput(raw *ai.RawOutput) error {
	d.Raw = raw
	return d.refreshPreview()
}

// SetSlider moves the threshold slider and rederives the preview.
func (d *Document) SetSlider(v float64) error {
	d.Slider = v
	if d.Raw == nil {
		return nil
	}
	return d.refreshPreview()
}

func (d *Document) refreshPreview() error {
	p, err := ai.Adapt(d.Raw, d.Slider, d.View.VisibleRect())
	if err != nil {
		return err
	}
	d.Preview = p
	return nil
}

// DropPreview discards the preview and raw output, e.g. when switching
// images or modes.
func (d *Document) DropPreview() {
	d.Preview = nil
	d.Raw = nil
	d.Points = nil
	d.PromptActive = false
}

// AddPoint records a prompt point in full-image coordinates.
func (d *Document) AddPoint(canvasX, canvasY float64, label int) ai.Point {
	ix, iy := d.View.ToImage(canvasX, canvasY)
	p := ai.Point{X: ix, Y: iy, Label: label}
	d.Points = append(d.Points, p)
	d.PromptActive = true
	return p
}

// SetBox replaces any box prompt with the two corners of the given
// canvas-space rectangle, keeping existing point prompts.
func (d *Document) SetBox(canvasRect geometry.Rect) {
	r := canvasRect.Normalized()
	x1, y1 := d.View.ToImage(r.X, r.Y)
	x2, y2 := d.View.ToImage(r.X+r.Width, r.Y+r.Height)

	kept := d.Points[:0]
	for _, p := range d.Points {
		if p.Label != ai.LabelBoxCorner1 && p.Label != ai.LabelBoxCorner2 {
			kept = append(kept, p)
		}
	}
	d.Points = append(kept,
		ai.Point{X: x1, Y: y1, Label: ai.LabelBoxCorner1},
		ai.Point{X: x2, Y: y2, Label: ai.LabelBoxCorner2},
	)
	d.PromptActive = true
}

// AddPaintSegment records one brush segment between two canvas points.
// Coordinates and width are stored in image space so zoom changes do not
// distort earlier segments.
func (d *Document) AddPaintSegment(fromX, fromY, toX, toY, brushDiameter float64) {
	crop := d.View.VisibleRect()
	ix1, iy1 := d.View.ToImage(fromX, fromY)
	ix2, iy2 := d.View.ToImage(toX, toY)
	d.Paint.Add(
		geometry.Point2D{X: ix1 - float64(crop.X), Y: iy1 - float64(crop.Y)},
		geometry.Point2D{X: ix2 - float64(crop.X), Y: iy2 - float64(crop.Y)},
		brushDiameter/d.View.Zoom,
	)
}

// OnCanvasResize refits the viewport and marks the prompted embedding
// stale; the fixed-frame transform it was computed under no longer
// matches.
func (d *Document) OnCanvasResize(w, h int) {
	d.View.Resize(w, h)
	d.embeddingStale = true
	d.refreshPreviewQuiet()
}

// OnViewChanged rederives the crop-dependent preview after zoom or pan.
func (d *Document) OnViewChanged() {
	d.refreshPreviewQuiet()
}

func (d *Document) refreshPreviewQuiet() {
	if d.Raw == nil {
		return
	}
	if p, err := ai.Adapt(d.Raw, d.Slider, d.View.VisibleRect()); err == nil {
		d.Preview = p
	}
}

// EmbeddingStale reports whether the prompted-model embedding must be
// recomputed before the next prompted inference.
func (d *Document) EmbeddingStale() bool { return d.embeddingStale }

// MarkEmbeddingFresh clears the stale flag after recomputation.
func (d *Document) MarkEmbeddingFresh() { d.embeddingStale = false }

// CutoutImage returns the source composited through the (optionally
// softened) working mask, cached until the mask or soften radius change.
func (d *Document) CutoutImage() (*image.NRGBA, error) {
	if d.cutoutValid {
		return d.cutout, nil
	}
	m := d.Working
	if d.SoftenRadius > 0 {
		softened, err := mask.Soften(m, d.SoftenRadius)
		if err != nil {
			return nil, err
		}
		m = softened
	}
	out, err := mask.Cutout(d.Source, m)
	if err != nil {
		return nil, err
	}
	d.cutout = out
	d.cutoutValid = true
	return out, nil
}

// InvalidateCutout forces recomputation, e.g. after a soften change.
func (d *Document) InvalidateCutout() { d.cutoutValid = false }

// BlurredPlate returns the inpainted + blurred background, cached per
// mask generation and radius.
func (d *Document) BlurredPlate() (*image.NRGBA, error) {
	if plate, ok := d.bgCache.Get(d.maskGen, d.BlurRadius); ok {
		return plate, nil
	}
	plate, err := render.BlurredBackground(d.Source, d.Working, d.BlurRadius)
	if err != nil {
		return nil, err
	}
	d.bgCache.Put(d.maskGen, d.BlurRadius, plate)
	return plate, nil
}

// shadowAlpha returns the blurred shadow alpha, cached per mask
// generation and radius. Opacity and offset changes reuse the cache.
func (d *Document) shadowAlpha() (*mask.Mask, error) {
	if alpha, ok := d.shadowCache.Get(d.maskGen, d.Shadow.Radius); ok {
		return alpha, nil
	}
	alpha, err := render.BlurShadowAlpha(d.Working, d.Shadow.Radius)
	if err != nil {
		return nil, err
	}
	d.shadowCache.Put(d.maskGen, d.Shadow.Radius, alpha)
	return alpha, nil
}

// Frame is the read-only composited preview handed to the presentation
// layer, with the crop metadata needed to blit it.
type Frame struct {
	Image *image.NRGBA
	Crop  geometry.RectInt
	Zoom  float64
}

// ComposedFrame builds the full output composite: cutout, optional drop
// shadow, then the selected background.
func (d *Document) ComposedFrame() (*Frame, error) {
	img, err := d.ComposedImage()
	if err != nil {
		return nil, err
	}
	return &Frame{Image: img, Crop: d.View.VisibleRect(), Zoom: d.View.Zoom}, nil
}

// ComposedImage returns the full-size composited output.
func (d *Document) ComposedImage() (*image.NRGBA, error) {
	cutout, err := d.CutoutImage()
	if err != nil {
		return nil, err
	}
	if d.Shadow.Enabled {
		alpha, err := d.shadowAlpha()
		if err != nil {
			return nil, err
		}
		cutout = render.ApplyShadow(cutout, alpha, d.Shadow)
	}

	switch d.BGMode {
	case render.BackgroundColor:
		return render.SolidBackground(cutout, d.BGColor), nil
	case render.BackgroundBlur:
		plate, err := d.BlurredPlate()
		if err != nil {
			return nil, err
		}
		return render.AlphaComposite(plate, cutout), nil
	}
	return cutout, nil
}

// DisplayImage is what the output pane shows: the working mask in mask
// view, otherwise the full composite.
func (d *Document) DisplayImage() (*image.NRGBA, error) {
	if d.MaskView {
		g := d.Working.ToGray()
		out := image.NewNRGBA(g.Bounds())
		for i, v := range g.Pix {
			out.Pix[i*4] = v
			out.Pix[i*4+1] = v
			out.Pix[i*4+2] = v
			out.Pix[i*4+3] = 255
		}
		return out, nil
	}
	return d.ComposedImage()
}

// SourceCrop returns a copy of the currently visible source pixels.
func (d *Document) SourceCrop() *image.NRGBA {
	crop := d.View.VisibleRect()
	out := image.NewNRGBA(image.Rect(0, 0, crop.Width, crop.Height))
	b := d.Source.Bounds()
	for y := 0; y < crop.Height; y++ {
		srcOff := (crop.Y+y+b.Min.Y)*d.Source.Stride + (crop.X+b.Min.X)*4
		copy(out.Pix[y*out.Stride:y*out.Stride+crop.Width*4], d.Source.Pix[srcOff:srcOff+crop.Width*4])
	}
	return out
}

func (d *Document) String() string {
	b := d.Source.Bounds()
	return fmt.Sprintf("document %s %dx%d gen=%d", d.Path, b.Dx(), b.Dy(), d.maskGen)
}
