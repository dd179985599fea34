// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"image"
	"time"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"cutout-studio/internal/ai"
	"cutout-studio/internal/app"
	"cutout-studio/internal/document"
	"cutout-studio/internal/render"
	"cutout-studio/internal/version"
	"cutout-studio/internal/viewport"
	"cutout-studio/ui/canvas"
	"cutout-studio/ui/panels"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	canvas    *canvas.EditorCanvas
	sidePanel *panels.SidePanel
	preview   *fynecanvas.Image
	statusBar *widget.Label
	zoomLabel *widget.Label

	pollStop chan struct{}
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State) *MainWindow {
	win := fyneApp.NewWindow(version.AppName + " " + version.Version)

	mw := &MainWindow{
		Window:   win,
		app:      fyneApp,
		state:    state,
		pollStop: make(chan struct{}),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.startWorkerPolling()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewEditorCanvas(mw.state)
	mw.sidePanel = panels.NewSidePanel(mw.state, mw.canvas)

	mw.statusBar = widget.NewLabel("Status: Ready")
	mw.zoomLabel = widget.NewLabel("Zoom: 100%")

	// Output preview pane on the right.
	mw.preview = fynecanvas.NewImageFromImage(image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	mw.preview.FillMode = fynecanvas.ImageFillContain

	toolbar := mw.createToolbar()

	editArea := container.NewBorder(toolbar, nil, nil, nil, mw.canvas)
	views := container.NewHSplit(editArea, mw.preview)
	views.SetOffset(0.6)

	split := container.NewHSplit(mw.sidePanel.Container(), views)
	split.SetOffset(0.22)

	statusRow := container.NewBorder(nil, nil, nil, mw.zoomLabel, mw.statusBar)
	content := container.NewBorder(nil, container.NewPadded(statusRow), nil, nil, split)
	mw.SetContent(content)
	mw.Resize(fyne.NewSize(float32(mw.state.Settings.WindowWidth), float32(mw.state.Settings.WindowHeight)))
}

// createToolbar creates zoom and file controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	openBtn := widget.NewButton("Open", mw.onOpenImage)
	zoomOutBtn := widget.NewButton("-", func() { mw.zoomCenter(viewport.ZoomOut) })
	zoomInBtn := widget.NewButton("+", func() { mw.zoomCenter(viewport.ZoomIn) })
	fitBtn := widget.NewButton("Fit", func() {
		if mw.state.WithDoc(func(doc *document.Document) {
			doc.View.Reset()
			doc.OnViewChanged()
		}) {
			mw.refreshAll()
		}
	})

	return container.NewHBox(
		openBtn,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		fitBtn,
	)
}

func (mw *MainWindow) zoomCenter(dir viewport.Direction) {
	w, h := mw.canvas.CanvasSize()
	st := mw.state.ModifyDoc(func(doc *document.Document) document.Status {
		return doc.CmdZoom(float64(w)/2, float64(h)/2, dir)
	})
	if !st.OK {
		return
	}
	mw.setStatus(st.Message)
	mw.refreshAll()
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItem("Save As...", mw.onSaveAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.docCommand(func(d *document.Document) document.Status { return d.CmdUndo() })),
		fyne.NewMenuItem("Redo", mw.docCommand(func(d *document.Document) document.Status { return d.CmdRedo() })),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu))
}

func (mw *MainWindow) docCommand(fn func(*document.Document) document.Status) func() {
	return func() {
		st := mw.state.ModifyDoc(fn)
		mw.setStatus(st.Message)
		if st.OK {
			mw.refreshAll()
		}
	}
}

// setupEventHandlers wires state events to UI updates.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventStatus, func(data interface{}) {
		if msg, ok := data.(string); ok {
			mw.setStatus(msg)
		}
	})
	mw.state.On(app.EventImageLoaded, func(interface{}) {
		mw.refreshAll()
	})
	mw.state.On(app.EventMaskChanged, func(interface{}) {
		mw.updatePreview()
	})
	mw.state.On(app.EventPreviewChanged, func(interface{}) {
		mw.canvas.Refresh()
	})
	mw.state.On(app.EventViewChanged, func(interface{}) {
		mw.updateZoomLabel()
	})
}

// startWorkerPolling checks for finished inference at a fixed interval.
func (mw *MainWindow) startWorkerPolling() {
	go func() {
		ticker := time.NewTicker(ai.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-mw.pollStop:
				return
			case <-ticker.C:
				mw.state.PollWorker()
			}
		}
	}()
}

// StopPolling terminates the worker poll loop.
func (mw *MainWindow) StopPolling() {
	close(mw.pollStop)
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		w, h := mw.canvas.CanvasSize()
		if err := mw.state.LoadImage(path, w, h); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.setStatus(fmt.Sprintf("Loaded %s", path))
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".tiff"}))
	fd.Show()
}

func (mw *MainWindow) onSaveAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		st := mw.state.ModifyDoc(func(doc *document.Document) document.Status {
			return doc.CmdExportTo(path, render.ExportOptions{
				Format:   render.Format(mw.state.Settings.SaveFileType),
				Quality:  mw.state.Settings.SaveFileQuality,
				SaveMask: mw.state.Settings.SaveMask,
			})
		})
		mw.setStatus(st.Message)
	}, mw.Window)
	fd.SetFileName("cutout.png")
	fd.Show()
}

// refreshAll redraws the canvas, the output preview, and the labels.
func (mw *MainWindow) refreshAll() {
	mw.canvas.Refresh()
	mw.updatePreview()
	mw.updateZoomLabel()
}

// updatePreview recomposites the output pane.
func (mw *MainWindow) updatePreview() {
	var (
		img        *image.NRGBA
		composeErr error
	)
	if !mw.state.WithDoc(func(doc *document.Document) {
		img, composeErr = doc.DisplayImage()
	}) {
		return
	}
	if composeErr != nil {
		mw.setStatus(fmt.Sprintf("Preview failed: %v", composeErr))
		return
	}
	mw.preview.Image = img
	mw.preview.Refresh()
}

func (mw *MainWindow) updateZoomLabel() {
	var zoom float64
	if mw.state.WithDoc(func(doc *document.Document) { zoom = doc.View.Zoom }) {
		mw.zoomLabel.SetText(fmt.Sprintf("Zoom: %d%%", int(zoom*100)))
	}
}

func (mw *MainWindow) setStatus(msg string) {
	mw.statusBar.SetText("Status: " + msg)
}
