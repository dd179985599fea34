// Package canvas provides the editing canvas: pan, zoom, prompt clicks,
// box drags, and brush painting over the visible image crop.
package canvas

import (
	"image"
	"time"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"cutout-studio/internal/ai"
	"cutout-studio/internal/app"
	"cutout-studio/internal/document"
	"cutout-studio/internal/viewport"
	"cutout-studio/pkg/geometry"
)

// qualityDelay is how long the view must sit still before the canvas
// re-renders with the slow high-quality resampler.
const qualityDelay = 300 * time.Millisecond

// Tool represents the current interaction tool.
type Tool int

const (
	ToolPrompt Tool = iota // left click add, right click remove
	ToolBox                // drag a box prompt
	ToolPaint              // drag brush strokes
	ToolPan                // drag to pan
)

// EditorCanvas displays the visible crop of the document with the
// preview overlay, prompt markers, and brush cursor drawn on top.
type EditorCanvas struct {
	widget.BaseWidget

	state *app.State

	raster *fynecanvas.Raster
	tool   Tool

	// Brush state in canvas pixels.
	BrushDiameter float64
	cursorX       float64
	cursorY       float64
	cursorInside  bool

	// Drag state.
	dragging  bool
	dragLastX float64
	dragLastY float64
	boxStart  geometry.Point2D

	// Pending box drag, drawn while open.
	boxRect *geometry.Rect

	// Quality re-render debounce.
	fastOnly    bool
	qualityTick *time.Timer

	lastW, lastH int

	// OnPromptChanged fires after a click or box changes the prompt set.
	OnPromptChanged func()
	// OnStatus reports interaction feedback lines.
	OnStatus func(msg string)
}

var _ desktop.Hoverable = (*EditorCanvas)(nil)
var _ fyne.Draggable = (*EditorCanvas)(nil)
var _ fyne.Tappable = (*EditorCanvas)(nil)
var _ fyne.SecondaryTappable = (*EditorCanvas)(nil)
var _ fyne.Scrollable = (*EditorCanvas)(nil)

// NewEditorCanvas creates the canvas bound to the application state.
func NewEditorCanvas(state *app.State) *EditorCanvas {
	ec := &EditorCanvas{
		state:         state,
		BrushDiameter: 18,
	}
	ec.raster = fynecanvas.NewRaster(ec.draw)
	ec.raster.ScaleMode = fynecanvas.ImageScalePixels
	ec.raster.SetMinSize(fyne.NewSize(400, 300))
	ec.ExtendBaseWidget(ec)
	return ec
}

func (ec *EditorCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(ec.raster)
}

// SetTool switches the interaction tool.
func (ec *EditorCanvas) SetTool(t Tool) {
	ec.tool = t
	ec.state.WithDoc(func(doc *document.Document) {
		doc.PaintMode = t == ToolPaint
	})
	ec.Refresh()
}

// Tool returns the active tool.
func (ec *EditorCanvas) Tool() Tool { return ec.tool }

// Scrolled zooms one step at the cursor position.
func (ec *EditorCanvas) Scrolled(ev *fyne.ScrollEvent) {
	dir := viewport.ZoomIn
	if ev.Scrolled.DY < 0 {
		dir = viewport.ZoomOut
	}
	st := ec.state.ModifyDoc(func(doc *document.Document) document.Status {
		return doc.CmdZoom(float64(ev.Position.X), float64(ev.Position.Y), dir)
	})
	if !st.OK {
		return
	}
	ec.report(st.Message)
	ec.state.Emit(app.EventViewChanged, nil)
	ec.deferQualityRender()
	ec.Refresh()
}

// Tapped adds a positive prompt point, or does nothing for other tools.
func (ec *EditorCanvas) Tapped(ev *fyne.PointEvent) {
	ec.promptClick(ev, ai.LabelAdd)
}

// TappedSecondary adds a negative prompt point.
func (ec *EditorCanvas) TappedSecondary(ev *fyne.PointEvent) {
	ec.promptClick(ev, ai.LabelRemove)
}

func (ec *EditorCanvas) promptClick(ev *fyne.PointEvent, label int) {
	if ec.tool != ToolPrompt {
		return
	}
	added := ec.state.WithDoc(func(doc *document.Document) {
		doc.AddPoint(float64(ev.Position.X), float64(ev.Position.Y), label)
	})
	if !added {
		return
	}
	if ec.OnPromptChanged != nil {
		ec.OnPromptChanged()
	}
	ec.Refresh()
}

// Dragged pans, paints, or opens a box depending on the tool.
func (ec *EditorCanvas) Dragged(ev *fyne.DragEvent) {
	x := float64(ev.Position.X)
	y := float64(ev.Position.Y)

	if !ec.dragging {
		ec.dragging = true
		ec.dragLastX = x - float64(ev.Dragged.DX)
		ec.dragLastY = y - float64(ev.Dragged.DY)
		ec.boxStart = geometry.Point2D{X: ec.dragLastX, Y: ec.dragLastY}
	}

	panned := false
	handled := ec.state.WithDoc(func(doc *document.Document) {
		switch ec.tool {
		case ToolPan:
			doc.CmdPan(ec.dragLastX-x, ec.dragLastY-y)
			panned = true
		case ToolPaint:
			doc.AddPaintSegment(ec.dragLastX, ec.dragLastY, x, y, ec.BrushDiameter)
		case ToolBox:
			ec.boxRect = &geometry.Rect{
				X:      ec.boxStart.X,
				Y:      ec.boxStart.Y,
				Width:  x - ec.boxStart.X,
				Height: y - ec.boxStart.Y,
			}
		}
	})
	if !handled {
		return
	}
	if panned {
		ec.state.Emit(app.EventViewChanged, nil)
		ec.deferQualityRender()
	}

	ec.dragLastX = x
	ec.dragLastY = y
	ec.cursorX = x
	ec.cursorY = y
	ec.Refresh()
}

// DragEnd commits an open box prompt.
func (ec *EditorCanvas) DragEnd() {
	ec.dragging = false
	if ec.tool == ToolBox && ec.boxRect != nil {
		box := *ec.boxRect
		ec.boxRect = nil
		committed := ec.state.WithDoc(func(doc *document.Document) {
			doc.SetBox(box)
		})
		if committed && ec.OnPromptChanged != nil {
			ec.OnPromptChanged()
		}
	}
	ec.Refresh()
}

// MouseIn implements desktop.Hoverable for the brush cursor.
func (ec *EditorCanvas) MouseIn(ev *desktop.MouseEvent) {
	ec.cursorInside = true
	ec.MouseMoved(ev)
}

// MouseMoved tracks the cursor for the brush outline.
func (ec *EditorCanvas) MouseMoved(ev *desktop.MouseEvent) {
	ec.cursorX = float64(ev.Position.X)
	ec.cursorY = float64(ev.Position.Y)
	if ec.tool == ToolPaint {
		ec.Refresh()
	}
}

// MouseOut hides the brush cursor.
func (ec *EditorCanvas) MouseOut() {
	ec.cursorInside = false
	ec.Refresh()
}

// deferQualityRender schedules a high-quality redraw once interaction
// pauses; until then draws use the fast resampler.
func (ec *EditorCanvas) deferQualityRender() {
	ec.fastOnly = true
	if ec.qualityTick != nil {
		ec.qualityTick.Stop()
	}
	ec.qualityTick = time.AfterFunc(qualityDelay, func() {
		ec.fastOnly = false
		ec.Refresh()
	})
}

func (ec *EditorCanvas) report(msg string) {
	if ec.OnStatus != nil {
		ec.OnStatus(msg)
	}
}

// CanvasSize returns the last known raster size in pixels.
func (ec *EditorCanvas) CanvasSize() (int, int) {
	if ec.lastW == 0 || ec.lastH == 0 {
		return 800, 600
	}
	return ec.lastW, ec.lastH
}

// draw renders one frame at the raster's pixel size. The document is
// read (and resized to the raster) under the document lock.
func (ec *EditorCanvas) draw(w, h int) image.Image {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	drawCheckerboard(out)

	resized := w != ec.lastW || h != ec.lastH
	ec.lastW = w
	ec.lastH = h

	hadDoc := ec.state.WithDoc(func(doc *document.Document) {
		if resized {
			doc.OnCanvasResize(w, h)
		}
		ec.drawDocument(out, doc)
	})
	if resized && hadDoc {
		ec.state.Emit(app.EventViewChanged, nil)
	}
	return out
}
