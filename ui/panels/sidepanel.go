package panels

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"cutout-studio/internal/app"
	"cutout-studio/ui/canvas"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	state     *app.State
	container *container.AppTabs

	refinePanel *RefinePanel
	exportPanel *ExportPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(state *app.State, ec *canvas.EditorCanvas) *SidePanel {
	sp := &SidePanel{state: state}
	sp.refinePanel = NewRefinePanel(state, ec)
	sp.exportPanel = NewExportPanel(state, ec)

	sp.container = container.NewAppTabs(
		container.NewTabItem("Refine", container.NewVScroll(sp.refinePanel.Container())),
		container.NewTabItem("Export", container.NewVScroll(sp.exportPanel.Container())),
	)
	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}
