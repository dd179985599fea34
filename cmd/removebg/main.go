// Command removebg removes the background from images in batch using a
// whole-image segmentation model.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"cutout-studio/internal/ai"
	"cutout-studio/internal/mask"
	"cutout-studio/internal/render"
	"cutout-studio/pkg/geometry"
)

func main() {
	modelDir := flag.String("models", "models", "Directory containing ONNX models")
	modelName := flag.String("model", "", "Whole-image model name (default: first found)")
	outDir := flag.String("out", "", "Output directory (default: alongside each input)")
	slider := flag.Float64("threshold", 50, "Threshold slider position 0-100")
	soften := flag.Int("soften", 0, "Edge soften radius in pixels")
	format := flag.String("format", "png", "Output format: png or jpg")
	quality := flag.Int("quality", 90, "JPEG quality 1-100")
	saveMask := flag.Bool("mask", false, "Also write the mask as a PNG sidecar")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("Usage: removebg [flags] <image> [<image>...]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	catalog := ai.DiscoverModels(*modelDir)
	if len(catalog.WholeImage) == 0 {
		fmt.Fprintf(os.Stderr, "No whole-image models found in %s\n", *modelDir)
		os.Exit(1)
	}
	name := *modelName
	if name == "" {
		name = catalog.WholeImage[0]
	}
	fmt.Printf("Model: %s\n", name)

	session, err := ai.NewSession(ai.Config{ModelDir: *modelDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize model runtime: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	outFormat := render.FormatPNG
	if *format == "jpg" || *format == "jpeg" {
		outFormat = render.FormatJPEG
	}

	failures := 0
	for _, path := range flag.Args() {
		if err := processOne(session, name, path, *outDir, *slider, *soften, outFormat, *quality, *saveMask); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func processOne(session *ai.Session, model, path, outDir string, slider float64, soften int, format render.Format, quality int, saveMask bool) error {
	src, err := loadNRGBA(path)
	if err != nil {
		return err
	}
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()

	raw, err := session.RunWholeImage(model, src)
	if err != nil {
		return fmt.Errorf("inference failed: %w", err)
	}

	full := geometry.RectInt{Width: w, Height: h}
	m, err := ai.Adapt(raw, slider, full)
	if err != nil {
		return fmt.Errorf("failed to adapt model output: %w", err)
	}
	if soften > 0 {
		m, err = mask.Soften(m, soften)
		if err != nil {
			return fmt.Errorf("failed to soften mask: %w", err)
		}
	}

	cutout, err := mask.Cutout(src, m)
	if err != nil {
		return err
	}

	result, err := render.Export(cutout, m, path, outDir, render.ExportOptions{
		Format:   format,
		Quality:  quality,
		Mode:     render.BackgroundTransparent,
		SaveMask: saveMask,
	})
	if err != nil {
		return err
	}
	if result.Warning != "" {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, result.Warning)
	}
	fmt.Printf("%s -> %s (%d/%d px kept)\n", path, result.Path, m.CountAbove(127), w*h)
	return nil
}

func loadNRGBA(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if n, ok := img.(*image.NRGBA); ok {
		return n, nil
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}
