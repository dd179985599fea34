package render

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"cutout-studio/internal/mask"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i*4] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = c.A
	}
	return img
}

func TestSolidBackgroundFillsTransparency(t *testing.T) {
	// Transparent cutout over red: output is pure red everywhere the
	// cutout is empty, and the input is untouched.
	cutout := solid(8, 8, color.NRGBA{A: 0})
	red := color.NRGBA{R: 255, A: 255}

	out := SolidBackground(cutout, red)
	for i := 0; i < 64; i++ {
		if out.Pix[i*4] != 255 || out.Pix[i*4+1] != 0 || out.Pix[i*4+2] != 0 || out.Pix[i*4+3] != 255 {
			t.Fatalf("pixel %d = %v, want opaque red", i, out.Pix[i*4:i*4+4])
		}
	}
	if cutout.Pix[3] != 0 {
		t.Error("compositing mutated the cutout")
	}
}

func TestAlphaCompositeOpaqueTopWins(t *testing.T) {
	bottom := solid(4, 4, color.NRGBA{R: 255, A: 255})
	top := solid(4, 4, color.NRGBA{G: 255, A: 255})

	out := AlphaComposite(bottom, top)
	if out.Pix[0] != 0 || out.Pix[1] != 255 {
		t.Errorf("opaque top did not cover bottom: %v", out.Pix[0:4])
	}
}

func TestAlphaCompositeResizesMismatchedBottom(t *testing.T) {
	bottom := solid(2, 2, color.NRGBA{B: 255, A: 255})
	top := solid(8, 8, color.NRGBA{A: 0})

	out := AlphaComposite(bottom, top)
	if got := out.Bounds(); got.Dx() != 8 || got.Dy() != 8 {
		t.Fatalf("output size = %v, want 8x8", got)
	}
	if out.Pix[2] != 255 {
		t.Error("resized bottom not visible through transparent top")
	}
}

func TestApplyShadowOffsetAndOpacity(t *testing.T) {
	cutout := solid(10, 10, color.NRGBA{A: 0})
	alpha := mask.NewFilled(10, 10, 200)

	out := ApplyShadow(cutout, alpha, ShadowParams{
		Opacity: 0.5,
		OffsetX: 3,
		OffsetY: 3,
	})

	// Region shifted out by the offset stays empty.
	if a := out.Pix[(0*10+0)*4+3]; a != 0 {
		t.Errorf("alpha before offset = %d, want 0", a)
	}
	// Shadow body carries the opacity-scaled alpha.
	if a := out.Pix[(5*10+5)*4+3]; a != 100 {
		t.Errorf("shadow alpha = %d, want 100", a)
	}
	// Shadow is black.
	if out.Pix[(5*10+5)*4] != 0 {
		t.Error("shadow has a color cast")
	}
}

func TestShadowCacheKeying(t *testing.T) {
	var c ShadowCache
	a := mask.NewFilled(4, 4, 10)
	c.Put(7, 15, a)

	if _, ok := c.Get(7, 15); !ok {
		t.Error("exact key missed the cache")
	}
	if _, ok := c.Get(8, 15); ok {
		t.Error("stale mask generation hit the cache")
	}
	if _, ok := c.Get(7, 20); ok {
		t.Error("different radius hit the cache")
	}
	c.Invalidate()
	if _, ok := c.Get(7, 15); ok {
		t.Error("invalidated entry hit the cache")
	}
}

func TestBackgroundCacheKeying(t *testing.T) {
	var c BackgroundCache
	plate := solid(4, 4, color.NRGBA{A: 255})
	c.Put(3, 12.5, plate)

	if _, ok := c.Get(3, 12.5); !ok {
		t.Error("exact key missed the cache")
	}
	if _, ok := c.Get(4, 12.5); ok {
		t.Error("stale mask generation hit the cache")
	}
}

func TestComposeExportTransparentPassthrough(t *testing.T) {
	cutout := solid(4, 4, color.NRGBA{R: 9, A: 77})
	out := ComposeExport(cutout, ExportOptions{Mode: BackgroundTransparent})
	if out != cutout {
		t.Error("transparent mode should pass the cutout through")
	}
}

func TestExportJPEGTransparentForcesWhite(t *testing.T) {
	dir := t.TempDir()
	cutout := solid(4, 4, color.NRGBA{A: 0})

	res, err := Export(cutout, nil, filepath.Join(dir, "photo.png"), dir, ExportOptions{
		Format: FormatJPEG,
		Mode:   BackgroundTransparent,
	})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if res.Warning == "" {
		t.Error("expected a transparency warning for JPG export")
	}
	if filepath.Base(res.Path) != "photo_nobg.jpg" {
		t.Errorf("export name = %s, want photo_nobg.jpg", filepath.Base(res.Path))
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}

func TestExportUniqueNaming(t *testing.T) {
	dir := t.TempDir()
	cutout := solid(4, 4, color.NRGBA{R: 1, A: 255})
	src := filepath.Join(dir, "photo.png")

	first, err := Export(cutout, nil, src, dir, ExportOptions{Format: FormatPNG})
	if err != nil {
		t.Fatalf("first export failed: %v", err)
	}
	second, err := Export(cutout, nil, src, dir, ExportOptions{Format: FormatPNG})
	if err != nil {
		t.Fatalf("second export failed: %v", err)
	}
	if filepath.Base(first.Path) != "photo_nobg.png" {
		t.Errorf("first export = %s", first.Path)
	}
	if filepath.Base(second.Path) != "photo_nobg_1.png" {
		t.Errorf("second export = %s, want photo_nobg_1.png", second.Path)
	}
}

func TestExportMaskSidecar(t *testing.T) {
	dir := t.TempDir()
	cutout := solid(4, 4, color.NRGBA{A: 255})
	m := mask.NewFilled(4, 4, 255)

	res, err := Export(cutout, m, filepath.Join(dir, "photo.jpg"), dir, ExportOptions{
		Format:   FormatPNG,
		SaveMask: true,
	})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if filepath.Base(res.MaskPath) != "photo_nobg_mask.png" {
		t.Errorf("mask sidecar = %s", res.MaskPath)
	}
	if _, err := os.Stat(res.MaskPath); err != nil {
		t.Errorf("mask sidecar missing: %v", err)
	}
}

func TestExportToFollowsExtension(t *testing.T) {
	dir := t.TempDir()
	cutout := solid(4, 4, color.NRGBA{R: 10, A: 0})

	path := filepath.Join(dir, "chosen.jpg")
	res, err := ExportTo(cutout, nil, path, ExportOptions{
		Format: FormatPNG, // overridden by the .jpg extension
		Mode:   BackgroundTransparent,
	})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if res.Path != path {
		t.Errorf("export path = %s, want %s", res.Path, path)
	}
	if res.Warning == "" {
		t.Error("transparent jpeg export did not warn")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export missing: %v", err)
	}
}

func TestExportToMaskSidecarName(t *testing.T) {
	dir := t.TempDir()
	cutout := solid(4, 4, color.NRGBA{A: 255})
	m := mask.NewFilled(4, 4, 255)

	path := filepath.Join(dir, "pick.png")
	res, err := ExportTo(cutout, m, path, ExportOptions{SaveMask: true})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if filepath.Base(res.MaskPath) != "pick_mask.png" {
		t.Errorf("mask sidecar = %s, want pick_mask.png", res.MaskPath)
	}
}
