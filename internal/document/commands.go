package document

import (
	"errors"
	"fmt"
	"image"

	"cutout-studio/internal/mask"
	"cutout-studio/internal/render"
	"cutout-studio/internal/viewport"
	"cutout-studio/pkg/colorutil"
)

// Status is the outcome of a named command: success plus a human-readable
// message for the status bar.
type Status struct {
	OK      bool
	Message string
}

func ok(format string, args ...interface{}) Status {
	return Status{OK: true, Message: fmt.Sprintf(format, args...)}
}

func failed(format string, args ...interface{}) Status {
	return Status{OK: false, Message: fmt.Sprintf(format, args...)}
}

// CmdZoom zooms one step at the given canvas point.
func (d *Document) CmdZoom(canvasX, canvasY float64, dir viewport.Direction) Status {
	d.View.ZoomAt(canvasX, canvasY, dir)
	d.OnViewChanged()
	return ok("Zoom: %d%%", int(d.View.Zoom*100))
}

// CmdPan pans by a canvas-pixel delta.
func (d *Document) CmdPan(dx, dy float64) Status {
	d.View.Pan(dx, dy)
	d.OnViewChanged()
	return ok("View moved")
}

// CmdAdd folds the preview mask into the working mask as foreground.
func (d *Document) CmdAdd() Status {
	return d.applyOp(mask.OpAdd, "Added region to mask")
}

// CmdSubtract folds the preview mask into the working mask as background.
func (d *Document) CmdSubtract() Status {
	return d.applyOp(mask.OpSubtract, "Subtracted region from mask")
}

func (d *Document) applyOp(op mask.Op, success string) Status {
	if err := d.ApplyPreview(op); err != nil {
		var uerr *UserInputError
		if errors.As(err, &uerr) {
			return failed("Warning: %s", uerr.Msg)
		}
		return failed("Failed to %s: %v", op, err)
	}
	return ok("%s", success)
}

// CmdUndo steps the working mask back one snapshot.
func (d *Document) CmdUndo() Status {
	if !d.Undo() {
		return failed("Nothing to undo")
	}
	return ok("Undo performed")
}

// CmdRedo reapplies the next snapshot.
func (d *Document) CmdRedo() Status {
	if !d.Redo() {
		return failed("Nothing to redo")
	}
	return ok("Redo performed")
}

// CmdClear resets the working mask.
func (d *Document) CmdClear() Status {
	d.Clear()
	return ok("Mask cleared")
}

// CmdCopyAll includes the entire image in the mask.
func (d *Document) CmdCopyAll() Status {
	d.CopyAll()
	return ok("Entire image copied to mask")
}

// CmdClearVisible removes the visible area from the mask.
func (d *Document) CmdClearVisible() Status {
	d.ClearVisible()
	return ok("Visible area cleared")
}

// CmdSetThreshold moves the unified threshold slider.
func (d *Document) CmdSetThreshold(v float64) Status {
	if v < 0 || v > 100 {
		return failed("Threshold %v out of range", v)
	}
	if err := d.SetSlider(v); err != nil {
		return failed("Failed to apply threshold: %v", err)
	}
	return ok("Threshold: %d%%", int(v))
}

// CmdSetBackgroundMode switches the output background.
func (d *Document) CmdSetBackgroundMode(mode render.BackgroundMode) Status {
	switch mode {
	case render.BackgroundTransparent, render.BackgroundColor, render.BackgroundBlur:
		d.BGMode = mode
		return ok("Background: %s", mode)
	}
	return failed("Unknown background mode %q", mode)
}

// CmdSetBackgroundColor parses and applies a hex background color.
func (d *Document) CmdSetBackgroundColor(hex string) Status {
	c, err := colorutil.ParseHex(hex)
	if err != nil {
		return failed("Invalid color: %v", err)
	}
	d.BGColor = c
	return ok("Background color: %s", hex)
}

// CmdSetBlurRadius changes the blurred-background radius. The cached
// plate is keyed on the radius, so no explicit invalidation is needed.
func (d *Document) CmdSetBlurRadius(radius float64) Status {
	if radius <= 0 {
		return failed("Blur radius must be positive")
	}
	d.BlurRadius = radius
	return ok("Background blur: %d", int(radius))
}

// CmdSetShadow updates the drop shadow parameters.
func (d *Document) CmdSetShadow(p render.ShadowParams) Status {
	d.Shadow = p
	d.InvalidateCutout()
	return ok("Shadow updated")
}

// CmdSetSoften updates the mask edge softening radius.
func (d *Document) CmdSetSoften(radius int) Status {
	if radius < 0 {
		return failed("Soften radius must be non-negative")
	}
	d.SoftenRadius = radius
	d.InvalidateCutout()
	return ok("Soften radius: %d", radius)
}

// CmdExport composes the output and writes it next to the source.
func (d *Document) CmdExport(outDir string, opts render.ExportOptions) Status {
	cutout, opts, st := d.prepareExport(opts)
	if !st.OK {
		return st
	}
	res, err := render.Export(cutout, d.Working, d.Path, outDir, opts)
	if err != nil {
		return failed("Save error: %v", err)
	}
	return saveStatus(res)
}

// CmdExportTo composes the output and writes it to an explicit path.
func (d *Document) CmdExportTo(path string, opts render.ExportOptions) Status {
	cutout, opts, st := d.prepareExport(opts)
	if !st.OK {
		return st
	}
	res, err := render.ExportTo(cutout, d.Working, path, opts)
	if err != nil {
		return failed("Save error: %v", err)
	}
	return saveStatus(res)
}

// prepareExport builds the shadowed cutout and fills the background
// fields of the options from the document's current output settings.
func (d *Document) prepareExport(opts render.ExportOptions) (*image.NRGBA, render.ExportOptions, Status) {
	cutout, err := d.CutoutImage()
	if err != nil {
		return nil, opts, failed("Failed to compose output: %v", err)
	}
	if d.Shadow.Enabled {
		alpha, err := d.shadowAlpha()
		if err != nil {
			return nil, opts, failed("Failed to build shadow: %v", err)
		}
		cutout = render.ApplyShadow(cutout, alpha, d.Shadow)
	}
	opts.Mode = d.BGMode
	opts.Color = d.BGColor
	if d.BGMode == render.BackgroundBlur {
		plate, err := d.BlurredPlate()
		if err != nil {
			return nil, opts, failed("Failed to build blurred background: %v", err)
		}
		opts.Blurred = plate
	}
	return cutout, opts, Status{OK: true}
}

func saveStatus(res *render.ExportResult) Status {
	if res.Warning != "" {
		return ok("Saved %s (%s)", res.Path, res.Warning)
	}
	return ok("Saved %s", res.Path)
}
