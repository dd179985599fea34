// Command samprobe runs a prompted segmentation model at given click
// points and reports mask statistics. Useful for checking that an
// encoder/decoder pair loads and responds sensibly.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"cutout-studio/internal/ai"
	"cutout-studio/internal/render"
	"cutout-studio/pkg/geometry"
)

func main() {
	imagePath := flag.String("image", "", "Path to input image")
	modelDir := flag.String("models", "models", "Directory containing ONNX models")
	modelName := flag.String("model", "", "Prompted model name (default: first found)")
	pointsArg := flag.String("points", "", "Prompt points as x,y[,label];... (label 0=remove 1=add, default 1)")
	slider := flag.Float64("threshold", 50, "Threshold slider position 0-100")
	maskOut := flag.String("maskout", "", "Write the binarized mask to this PNG path")
	flag.Parse()

	if *imagePath == "" || *pointsArg == "" {
		fmt.Println("Usage: samprobe -image <path> -points x,y;x,y,0 [-model name]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	points, err := parsePoints(*pointsArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad -points: %v\n", err)
		os.Exit(1)
	}

	catalog := ai.DiscoverModels(*modelDir)
	if len(catalog.Prompted) == 0 {
		fmt.Fprintf(os.Stderr, "No prompted models found in %s\n", *modelDir)
		os.Exit(1)
	}
	name := *modelName
	if name == "" {
		name = catalog.Prompted[0]
	}

	src, err := loadNRGBA(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	fmt.Printf("Image: %dx%d  Model: %s  Points: %d\n", w, h, name, len(points))

	session, err := ai.NewSession(ai.Config{ModelDir: *modelDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize model runtime: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	start := time.Now()
	if err := session.EnsureEmbedding(name, src); err != nil {
		fmt.Fprintf(os.Stderr, "Encoder failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Embedding: %v\n", time.Since(start).Round(time.Millisecond))

	start = time.Now()
	raw, err := session.RunPrompted(name, points)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decoder failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Decode: %v  logits %dx%d  %.4f px/logit\n",
		time.Since(start).Round(time.Millisecond), raw.LogitsW, raw.LogitsH, raw.ToImage.A)

	lo, hi := raw.Logits[0], raw.Logits[0]
	for _, v := range raw.Logits {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	fmt.Printf("Logit range: [%.3f, %.3f]  threshold %.3f\n", lo, hi, ai.PromptedThreshold(*slider))

	m, err := ai.Adapt(raw, *slider, geometry.RectInt{Width: w, Height: h})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to adapt output: %v\n", err)
		os.Exit(1)
	}
	kept := m.CountAbove(127)
	fmt.Printf("Mask: %d/%d px kept (%.1f%%)\n", kept, w*h, 100*float64(kept)/float64(w*h))

	if *maskOut != "" {
		if err := render.WriteImage(*maskOut, grayToNRGBA(m.ToGray()), render.FormatPNG, 0); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write mask: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", *maskOut)
	}
}

// parsePoints parses "x,y[,label]" entries separated by semicolons.
func parsePoints(s string) ([]ai.Point, error) {
	var points []ai.Point
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ",")
		if len(parts) != 2 && len(parts) != 3 {
			return nil, fmt.Errorf("expected x,y or x,y,label, got %q", entry)
		}
		x, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, err
		}
		label := ai.LabelAdd
		if len(parts) == 3 {
			label, err = strconv.Atoi(parts[2])
			if err != nil {
				return nil, err
			}
		}
		points = append(points, ai.Point{X: x, Y: y, Label: label})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no points given")
	}
	return points, nil
}

func grayToNRGBA(g *image.Gray) *image.NRGBA {
	b := g.Bounds()
	out := image.NewNRGBA(b)
	draw.Draw(out, b, g, b.Min, draw.Src)
	return out
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
