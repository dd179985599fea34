// Package ai runs segmentation models and adapts their raw outputs into
// preview masks. Inference runs on a worker; thresholding and warping of
// the raw output happen on the document thread.
package ai

import (
	"fmt"

	"cutout-studio/pkg/geometry"
)

// Kind discriminates the two raw output shapes a model can produce.
type Kind int

const (
	// KindDense is a whole-image probability map, 0-255, sized to the
	// viewport crop it was generated from.
	KindDense Kind = iota
	// KindPrompted is a logit map at the decoder's fixed input
	// resolution, with the affine transform back to source pixels.
	KindPrompted
)

// RawOutput is the untresholded result of one inference run. It outlives
// threshold changes: moving the slider re-derives the preview mask from
// the same RawOutput without touching the model.
type RawOutput struct {
	Kind Kind

	// Dense map, crop-sized, valid when Kind == KindDense.
	Dense  []uint8
	DenseW int
	DenseH int

	// Logits at the decoder's fixed resolution, valid when Kind ==
	// KindPrompted. ToImage maps logit-plane coordinates onto the
	// ImageW x ImageH source; the adapter samples through its inverse.
	Logits  []float32
	LogitsW int
	LogitsH int
	ImageW  int
	ImageH  int
	ToImage geometry.AffineTransform
}

// Threshold slider mapping. The UI exposes one 0-100 slider; each model
// family has its own useful range, with higher slider values always more
// permissive.
const (
	denseThresholdMin    = 10.0
	denseThresholdMax    = 250.0
	promptedThresholdMin = -3.0
	promptedThresholdMax = 2.0
)

// DenseThreshold maps the 0-100 slider onto the 0-255 grayscale range
// used for whole-image maps.
func DenseThreshold(slider float64) uint8 {
	t := 1.0 - slider/100.0
	return uint8(denseThresholdMin + t*(denseThresholdMax-denseThresholdMin))
}

// PromptedThreshold maps the 0-100 slider onto the logit range used for
// prompted decoders.
func PromptedThreshold(slider float64) float32 {
	t := 1.0 - slider/100.0
	return float32(promptedThresholdMin + t*(promptedThresholdMax-promptedThresholdMin))
}

// Prompt point labels understood by the prompted decoder.
const (
	LabelRemove     = 0
	LabelAdd        = 1
	LabelBoxCorner1 = 2
	LabelBoxCorner2 = 3
)

// Point is one prompt point in full-image coordinates.
type Point struct {
	X     float64
	Y     float64
	Label int
}

// ModelError is an inference runtime failure. The offending model is
// marked unusable for the session until the user explicitly retries.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
