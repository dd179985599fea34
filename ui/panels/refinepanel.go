// Package panels provides UI panels for the application.
package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"cutout-studio/internal/app"
	"cutout-studio/internal/document"
	"cutout-studio/ui/canvas"
)

// RefinePanel holds the model selectors, the threshold slider, and the
// mask operation buttons.
type RefinePanel struct {
	state  *app.State
	canvas *canvas.EditorCanvas

	wholeSelect  *widget.Select
	promptSelect *widget.Select
	threshold    *widget.Slider
	thresholdLbl *widget.Label
	brushSize    *widget.Slider

	container fyne.CanvasObject
}

// NewRefinePanel creates the refinement panel.
func NewRefinePanel(state *app.State, ec *canvas.EditorCanvas) *RefinePanel {
	rp := &RefinePanel{state: state, canvas: ec}

	wholeModels := state.Catalog.WholeImage
	if len(wholeModels) == 0 {
		wholeModels = []string{"No Models Found"}
	}
	rp.wholeSelect = widget.NewSelect(wholeModels, func(name string) {
		state.WholeModel = name
	})
	rp.wholeSelect.SetSelected(state.WholeModel)

	promptModels := state.Catalog.Prompted
	if len(promptModels) == 0 {
		promptModels = []string{"No Models Found"}
	}
	rp.promptSelect = widget.NewSelect(promptModels, func(name string) {
		state.PromptModel = name
	})
	rp.promptSelect.SetSelected(state.PromptModel)

	autoDetect := widget.NewButton("Auto-Detect Subject", func() {
		st := state.RunAutoDetect()
		state.Status("%s", st.Message)
	})
	autoDetect.Importance = widget.HighImportance

	rp.thresholdLbl = widget.NewLabel("50%")
	rp.threshold = widget.NewSlider(0, 100)
	rp.threshold.Value = 50
	rp.threshold.OnChanged = func(v float64) {
		rp.thresholdLbl.SetText(fmt.Sprintf("%d%%", int(v)))
		if state.WithDoc(func(d *document.Document) { d.CmdSetThreshold(v) }) {
			ec.Refresh()
		}
	}

	toolSelect := widget.NewRadioGroup(
		[]string{"Prompt", "Box", "Paint", "Pan"},
		func(sel string) {
			switch sel {
			case "Prompt":
				ec.SetTool(canvas.ToolPrompt)
			case "Box":
				ec.SetTool(canvas.ToolBox)
			case "Paint":
				ec.SetTool(canvas.ToolPaint)
			case "Pan":
				ec.SetTool(canvas.ToolPan)
			}
		})
	toolSelect.SetSelected("Prompt")
	toolSelect.Horizontal = true

	rp.brushSize = widget.NewSlider(4, 120)
	rp.brushSize.Value = ec.BrushDiameter
	rp.brushSize.OnChanged = func(v float64) { ec.BrushDiameter = v }

	add := widget.NewButton("Add", func() { rp.apply(true) })
	subtract := widget.NewButton("Subtract", func() { rp.apply(false) })
	undo := widget.NewButton("Undo", rp.withDoc(func(d *document.Document) document.Status { return d.CmdUndo() }))
	redo := widget.NewButton("Redo", rp.withDoc(func(d *document.Document) document.Status { return d.CmdRedo() }))
	clear := widget.NewButton("Clear Mask", rp.withDoc(func(d *document.Document) document.Status { return d.CmdClear() }))
	copyAll := widget.NewButton("Copy All", rp.withDoc(func(d *document.Document) document.Status { return d.CmdCopyAll() }))
	clearVisible := widget.NewButton("Clear Visible", rp.withDoc(func(d *document.Document) document.Status { return d.CmdClearVisible() }))

	rp.container = container.NewVBox(
		widget.NewLabelWithStyle("Models", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Whole image"),
		rp.wholeSelect,
		widget.NewLabel("Prompted"),
		rp.promptSelect,
		autoDetect,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Threshold", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, nil, rp.thresholdLbl, rp.threshold),
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Tool", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		toolSelect,
		widget.NewLabel("Brush size"),
		rp.brushSize,
		widget.NewSeparator(),
		container.NewGridWithColumns(2, add, subtract),
		container.NewGridWithColumns(2, undo, redo),
		container.NewGridWithColumns(2, clear, copyAll),
		clearVisible,
	)

	// A prompt change triggers inference immediately, like clicking the
	// subject should.
	ec.OnPromptChanged = func() {
		st := state.RunPrompted()
		state.Status("%s", st.Message)
	}
	return rp
}

func (rp *RefinePanel) withDoc(f func(*document.Document) document.Status) func() {
	return func() {
		rp.report(rp.state.ModifyDoc(f))
	}
}

func (rp *RefinePanel) apply(add bool) {
	st := rp.state.ModifyDoc(func(d *document.Document) document.Status {
		if add {
			return d.CmdAdd()
		}
		return d.CmdSubtract()
	})
	rp.report(st)
}

func (rp *RefinePanel) report(st document.Status) {
	rp.state.Status("%s", st.Message)
	if st.OK {
		rp.state.Emit(app.EventMaskChanged, nil)
	}
	rp.canvas.Refresh()
}

// Container returns the panel's root object.
func (rp *RefinePanel) Container() fyne.CanvasObject {
	return rp.container
}
