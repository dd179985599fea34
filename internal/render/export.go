package render

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"cutout-studio/internal/mask"
)

// BackgroundMode selects what goes behind the cutout.
type BackgroundMode string

const (
	BackgroundTransparent BackgroundMode = "transparent"
	BackgroundColor       BackgroundMode = "color"
	BackgroundBlur        BackgroundMode = "blur"
)

// Format is the on-disk export encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpg"
)

// ExportOptions controls one export run.
type ExportOptions struct {
	Format   Format
	Quality  int // JPEG quality, 1-100
	Mode     BackgroundMode
	Color    color.NRGBA  // used when Mode == BackgroundColor
	Blurred  *image.NRGBA // blurred plate, required when Mode == BackgroundBlur
	SaveMask bool         // also write the raw mask as a sidecar PNG
}

// ExportResult reports where the file landed and any forced-substitution
// warning.
type ExportResult struct {
	Path     string
	MaskPath string
	Warning  string
}

// ComposeExport applies the background mode to the cutout, producing the
// final image to encode.
func ComposeExport(cutout *image.NRGBA, opts ExportOptions) *image.NRGBA {
	switch opts.Mode {
	case BackgroundColor:
		return SolidBackground(cutout, opts.Color)
	case BackgroundBlur:
		if opts.Blurred != nil {
			return AlphaComposite(opts.Blurred, cutout)
		}
	}
	return cutout
}

// Export writes the composed image next to the source file, using the
// source basename with a suffix and a counter to avoid clobbering
// existing exports. A JPEG export of a transparent image is resolved by
// compositing over white; the substitution is reported as a warning, not
// an error.
func Export(cutout *image.NRGBA, m *mask.Mask, sourcePath, outDir string, opts ExportOptions) (*ExportResult, error) {
	final := ComposeExport(cutout, opts)

	res := &ExportResult{}
	if opts.Format == FormatJPEG && opts.Mode == BackgroundTransparent {
		final = Flatten(final)
		res.Warning = "JPG does not support transparency; saved with white background"
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	if base == "" {
		base = "clipboard_image"
	}
	if outDir == "" {
		outDir = filepath.Dir(sourcePath)
	}

	path, suffix, err := uniquePath(outDir, base, string(opts.Format))
	if err != nil {
		return nil, err
	}

	if err := WriteImage(path, final, opts.Format, opts.Quality); err != nil {
		return nil, err
	}
	res.Path = path

	if opts.SaveMask && m != nil {
		maskPath := filepath.Join(outDir, base+suffix+"_mask.png")
		if err := writePNG(maskPath, m.ToGray()); err != nil {
			return nil, fmt.Errorf("failed to write mask sidecar: %w", err)
		}
		res.MaskPath = maskPath
	}
	return res, nil
}

// ExportTo writes the composed image to an explicit path chosen by the
// user. The format follows the path extension, falling back to the
// options. The same JPEG transparency substitution as Export applies.
func ExportTo(cutout *image.NRGBA, m *mask.Mask, path string, opts ExportOptions) (*ExportResult, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		opts.Format = FormatJPEG
	case ".png":
		opts.Format = FormatPNG
	}

	final := ComposeExport(cutout, opts)
	res := &ExportResult{}
	if opts.Format == FormatJPEG && opts.Mode == BackgroundTransparent {
		final = Flatten(final)
		res.Warning = "JPG does not support transparency; saved with white background"
	}

	if err := WriteImage(path, final, opts.Format, opts.Quality); err != nil {
		return nil, err
	}
	res.Path = path

	if opts.SaveMask && m != nil {
		ext := filepath.Ext(path)
		maskPath := strings.TrimSuffix(path, ext) + "_mask.png"
		if err := writePNG(maskPath, m.ToGray()); err != nil {
			return nil, fmt.Errorf("failed to write mask sidecar: %w", err)
		}
		res.MaskPath = maskPath
	}
	return res, nil
}

// WriteImage encodes the image to disk in the requested format.
func WriteImage(path string, img *image.NRGBA, format Format, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case FormatJPEG:
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("failed to encode jpeg: %w", err)
		}
	default:
		if err := png.Encode(f, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}

// uniquePath finds the first free "<base>_nobg[_N].<ext>" in dir.
func uniquePath(dir, base, ext string) (path, suffix string, err error) {
	for counter := 0; ; counter++ {
		suffix = "_nobg"
		if counter > 0 {
			suffix = fmt.Sprintf("_nobg_%d", counter)
		}
		path = filepath.Join(dir, base+suffix+"."+ext)
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			return path, suffix, nil
		}
		if statErr != nil {
			return "", "", fmt.Errorf("failed to stat %s: %w", path, statErr)
		}
	}
}
