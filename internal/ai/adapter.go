package ai

import (
	"fmt"

	"cutout-studio/internal/mask"
	"cutout-studio/pkg/geometry"
)

// Adapt converts a raw model output plus the slider value into a preview
// mask sized to the given viewport crop. It is a pure function: the raw
// output is not modified and no I/O happens on this path.
func Adapt(raw *RawOutput, slider float64, crop geometry.RectInt) (*mask.Mask, error) {
	if raw == nil {
		return nil, fmt.Errorf("no raw model output")
	}
	switch raw.Kind {
	case KindDense:
		return adaptDense(raw, slider, crop)
	case KindPrompted:
		return adaptPrompted(raw, slider, crop), nil
	}
	return nil, fmt.Errorf("unknown raw output kind %d", raw.Kind)
}

// adaptDense binarizes a crop-sized probability map. The map was produced
// from the same crop, so its dimensions must match.
func adaptDense(raw *RawOutput, slider float64, crop geometry.RectInt) (*mask.Mask, error) {
	if raw.DenseW != crop.Width || raw.DenseH != crop.Height {
		return nil, fmt.Errorf("dense map %dx%d does not match crop %dx%d",
			raw.DenseW, raw.DenseH, crop.Width, crop.Height)
	}
	t := DenseThreshold(slider)
	out := mask.New(crop.Width, crop.Height)
	for i, v := range raw.Dense {
		if v > t {
			out.Pix[i] = 255
		}
	}
	return out, nil
}

// adaptPrompted warps the fixed-resolution logit plane into image space
// through the raw output's transform, binarizes it, and crops it to the
// viewport. On a crop that no longer fits, the full mask is resized
// instead; the operation never fails.
func adaptPrompted(raw *RawOutput, slider float64, crop geometry.RectInt) *mask.Mask {
	t := PromptedThreshold(slider)
	logits := warpLogits(raw)
	full := mask.New(raw.ImageW, raw.ImageH)
	for i, v := range logits {
		if v > t {
			full.Pix[i] = 255
		}
	}

	if cropped, ok := cropMask(full, crop); ok {
		return cropped
	}
	return resizeMaskNearest(full, crop.Width, crop.Height)
}

// warpLogits resamples the logit plane into source-image space by running
// each output pixel through the inverse of ToImage. A transform that
// cannot be inverted falls back to the plain plane-to-image scale.
func warpLogits(raw *RawOutput) []float32 {
	if len(raw.Logits) == 0 || raw.ImageW <= 0 || raw.ImageH <= 0 {
		return nil
	}
	toFixed, ok := raw.ToImage.Inverse()
	if !ok {
		toFixed = geometry.Scaling(float64(raw.LogitsW) / float64(maxInt(raw.ImageW, 1)))
	}
	out := make([]float32, raw.ImageW*raw.ImageH)
	for y := 0; y < raw.ImageH; y++ {
		for x := 0; x < raw.ImageW; x++ {
			p := toFixed.Apply(geometry.Point2D{X: float64(x), Y: float64(y)})
			out[y*raw.ImageW+x] = sampleBilinear(raw.Logits, raw.LogitsW, raw.LogitsH, p.X, p.Y)
		}
	}
	return out
}

// sampleBilinear reads one sub-pixel value from a float32 plane, clamping
// coordinates to its bounds.
func sampleBilinear(plane []float32, w, h int, fx, fy float64) float32 {
	if w < 2 || h < 2 {
		x := minInt(maxInt(int(fx), 0), w-1)
		y := minInt(maxInt(int(fy), 0), h-1)
		return plane[y*w+x]
	}
	x0 := minInt(maxInt(int(fx), 0), w-2)
	y0 := minInt(maxInt(int(fy), 0), h-2)
	wx := float32(fx - float64(x0))
	wy := float32(fy - float64(y0))
	if wx < 0 {
		wx = 0
	} else if wx > 1 {
		wx = 1
	}
	if wy < 0 {
		wy = 0
	} else if wy > 1 {
		wy = 1
	}

	top := plane[y0*w+x0]*(1-wx) + plane[y0*w+x0+1]*wx
	bot := plane[(y0+1)*w+x0]*(1-wx) + plane[(y0+1)*w+x0+1]*wx
	return top*(1-wy) + bot*wy
}

// cropMask extracts the crop rectangle, reporting false when the
// rectangle does not fit inside the mask.
func cropMask(m *mask.Mask, crop geometry.RectInt) (*mask.Mask, bool) {
	if crop.Empty() || crop.X < 0 || crop.Y < 0 ||
		crop.X+crop.Width > m.Width || crop.Y+crop.Height > m.Height {
		return nil, false
	}
	out := mask.New(crop.Width, crop.Height)
	for y := 0; y < crop.Height; y++ {
		src := m.Pix[(y+crop.Y)*m.Width+crop.X:]
		copy(out.Pix[y*crop.Width:(y+1)*crop.Width], src[:crop.Width])
	}
	return out, true
}

// resizeMaskNearest scales a binary mask with nearest-neighbor sampling.
func resizeMaskNearest(m *mask.Mask, width, height int) *mask.Mask {
	out := mask.New(width, height)
	if m.Width == 0 || m.Height == 0 {
		return out
	}
	for y := 0; y < height; y++ {
		sy := y * m.Height / height
		for x := 0; x < width; x++ {
			sx := x * m.Width / width
			out.Pix[y*width+x] = m.Pix[sy*m.Width+sx]
		}
	}
	return out
}
