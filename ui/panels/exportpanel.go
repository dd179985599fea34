package panels

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"cutout-studio/internal/app"
	"cutout-studio/internal/document"
	"cutout-studio/internal/render"
	"cutout-studio/ui/canvas"
)

// ExportPanel holds background, shadow, soften, and save controls.
type ExportPanel struct {
	state  *app.State
	canvas *canvas.EditorCanvas

	bgMode     *widget.RadioGroup
	bgColor    *widget.Entry
	blurRadius *widget.Slider
	format     *widget.RadioGroup

	shadowEnable  *widget.Check
	shadowOpacity *widget.Slider
	shadowRadius  *widget.Slider
	shadowX       *widget.Slider
	shadowY       *widget.Slider

	soften *widget.Slider

	container fyne.CanvasObject
}

// NewExportPanel creates the export panel from the persisted settings.
func NewExportPanel(state *app.State, ec *canvas.EditorCanvas) *ExportPanel {
	ep := &ExportPanel{state: state, canvas: ec}
	cfg := state.Settings

	ep.bgMode = widget.NewRadioGroup([]string{"Transparent", "Color", "Blur"}, func(sel string) {
		mode := render.BackgroundTransparent
		switch sel {
		case "Color":
			mode = render.BackgroundColor
		case "Blur":
			mode = render.BackgroundBlur
		}
		ep.withDoc(func(d *document.Document) document.Status {
			return d.CmdSetBackgroundMode(mode)
		})
	})
	ep.bgMode.SetSelected(bgModeLabel(render.BackgroundMode(cfg.BGMode)))

	ep.bgColor = widget.NewEntry()
	ep.bgColor.SetText(cfg.BGCustomColor)
	ep.bgColor.OnSubmitted = func(hex string) {
		ep.withDoc(func(d *document.Document) document.Status {
			return d.CmdSetBackgroundColor(hex)
		})
	}

	ep.blurRadius = widget.NewSlider(1, 100)
	ep.blurRadius.Value = 20
	ep.blurRadius.OnChangeEnded = func(v float64) {
		ep.withDoc(func(d *document.Document) document.Status {
			return d.CmdSetBlurRadius(v)
		})
	}

	ep.shadowEnable = widget.NewCheck("Drop shadow", func(bool) { ep.pushShadow() })
	ep.shadowEnable.Checked = cfg.EnableShadow
	ep.shadowOpacity = slider(0, 1, cfg.ShadowOpacity, 0.05, ep.pushShadow)
	ep.shadowRadius = slider(0, 100, float64(cfg.ShadowRadius), 1, ep.pushShadow)
	ep.shadowX = slider(-200, 200, float64(cfg.ShadowX), 1, ep.pushShadow)
	ep.shadowY = slider(-200, 200, float64(cfg.ShadowY), 1, ep.pushShadow)

	ep.soften = slider(0, 100, float64(cfg.SoftenRadius), 1, func() {
		ep.withDoc(func(d *document.Document) document.Status {
			return d.CmdSetSoften(int(ep.soften.Value))
		})
	})

	maskView := widget.NewCheck("Show mask", func(on bool) {
		if state.WithDoc(func(d *document.Document) { d.MaskView = on }) {
			state.Emit(app.EventMaskChanged, nil)
		}
	})

	ep.format = widget.NewRadioGroup([]string{"png", "jpg"}, nil)
	ep.format.SetSelected(cfg.SaveFileType)
	ep.format.Horizontal = true

	save := widget.NewButton("Quick Save", ep.save)
	save.Importance = widget.HighImportance

	ep.container = container.NewVBox(
		widget.NewLabelWithStyle("Background", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		ep.bgMode,
		container.NewBorder(nil, nil, widget.NewLabel("Color"), nil, ep.bgColor),
		widget.NewLabel("Blur radius"),
		ep.blurRadius,
		widget.NewSeparator(),
		ep.shadowEnable,
		widget.NewLabel("Opacity"), ep.shadowOpacity,
		widget.NewLabel("Radius"), ep.shadowRadius,
		widget.NewLabel("Offset X"), ep.shadowX,
		widget.NewLabel("Offset Y"), ep.shadowY,
		widget.NewSeparator(),
		widget.NewLabel("Soften edges"),
		ep.soften,
		maskView,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Format", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		ep.format,
		save,
	)
	return ep
}

func slider(min, max, value, step float64, onEnd func()) *widget.Slider {
	s := widget.NewSlider(min, max)
	s.Step = step
	s.Value = value
	s.OnChangeEnded = func(float64) { onEnd() }
	return s
}

func (ep *ExportPanel) pushShadow() {
	ep.withDoc(func(d *document.Document) document.Status {
		return d.CmdSetShadow(render.ShadowParams{
			Enabled: ep.shadowEnable.Checked,
			Opacity: ep.shadowOpacity.Value,
			Radius:  int(ep.shadowRadius.Value),
			OffsetX: int(ep.shadowX.Value),
			OffsetY: int(ep.shadowY.Value),
		})
	})
}

func bgModeLabel(mode render.BackgroundMode) string {
	switch mode {
	case render.BackgroundColor:
		return "Color"
	case render.BackgroundBlur:
		return "Blur"
	}
	return "Transparent"
}

func (ep *ExportPanel) withDoc(f func(*document.Document) document.Status) {
	st := ep.state.ModifyDoc(f)
	ep.state.Status("%s", st.Message)
	if st.OK {
		ep.state.Emit(app.EventMaskChanged, nil)
	}
	ep.canvas.Refresh()
}

func (ep *ExportPanel) save() {
	format := render.FormatPNG
	if ep.format.Selected == "jpg" {
		format = render.FormatJPEG
	}
	st := ep.state.ModifyDoc(func(d *document.Document) document.Status {
		return d.CmdExport(ep.state.Settings.OutputFolder, render.ExportOptions{
			Format:   format,
			Quality:  ep.state.Settings.SaveFileQuality,
			SaveMask: ep.state.Settings.SaveMask,
		})
	})
	ep.state.Status("%s", st.Message)
	if st.OK {
		ep.state.Settings.SaveFileType = string(format)
	}
}

// Container returns the panel's root object.
func (ep *ExportPanel) Container() fyne.CanvasObject {
	return ep.container
}
