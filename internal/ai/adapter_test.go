package ai

import (
	"testing"

	"cutout-studio/pkg/geometry"
)

func denseOutput(w, h int, fill uint8) *RawOutput {
	d := make([]uint8, w*h)
	for i := range d {
		d[i] = fill
	}
	return &RawOutput{Kind: KindDense, Dense: d, DenseW: w, DenseH: h}
}

func TestDenseThresholdMapping(t *testing.T) {
	// Slider endpoints map to the documented threshold range.
	if got := DenseThreshold(100); got != 10 {
		t.Errorf("threshold at slider 100 = %d, want 10", got)
	}
	if got := DenseThreshold(0); got != 250 {
		t.Errorf("threshold at slider 0 = %d, want 250", got)
	}
}

func TestThresholdMonotonic(t *testing.T) {
	// Higher slider value never shrinks the included area.
	raw := &RawOutput{Kind: KindDense, DenseW: 16, DenseH: 1,
		Dense: []uint8{0, 17, 34, 51, 68, 85, 102, 119, 136, 153, 170, 187, 204, 221, 238, 255}}
	crop := geometry.RectInt{Width: 16, Height: 1}

	prev := -1
	for s := 0.0; s <= 100; s += 5 {
		m, err := Adapt(raw, s, crop)
		if err != nil {
			t.Fatalf("adapt at slider %v: %v", s, err)
		}
		n := m.CountAbove(0)
		if n < prev {
			t.Errorf("area shrank from %d to %d at slider %v", prev, n, s)
		}
		prev = n
	}
}

func TestAdaptDenseBinarizes(t *testing.T) {
	raw := denseOutput(4, 4, 200)
	m, err := Adapt(raw, 50, geometry.RectInt{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("adapt failed: %v", err)
	}
	// Threshold at slider 50 is 130; 200 > 130 everywhere.
	if got := m.CountAbove(0); got != 16 {
		t.Errorf("included pixels = %d, want 16", got)
	}
	for _, v := range m.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("non-binary mask value %d", v)
		}
	}
}

func TestAdaptDenseSizeMismatch(t *testing.T) {
	raw := denseOutput(4, 4, 200)
	if _, err := Adapt(raw, 50, geometry.RectInt{Width: 8, Height: 8}); err == nil {
		t.Error("expected error for mismatched dense map")
	}
}

func TestAdaptPromptedCropsToViewport(t *testing.T) {
	// 10x10 logit plane, positive only in the 4x4 block at (2,2).
	logits := make([]float32, 100)
	for y := 2; y < 6; y++ {
		for x := 2; x < 6; x++ {
			logits[y*10+x] = 5
		}
	}
	for i, v := range logits {
		if v == 0 {
			logits[i] = -10
		}
	}
	raw := &RawOutput{Kind: KindPrompted, Logits: logits, LogitsW: 10, LogitsH: 10,
		ImageW: 10, ImageH: 10, ToImage: geometry.Scaling(1)}

	m, err := Adapt(raw, 50, geometry.RectInt{X: 2, Y: 2, Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("adapt failed: %v", err)
	}
	if got := m.CountAbove(0); got != 16 {
		t.Errorf("cropped block pixels = %d, want 16", got)
	}
}

func TestAdaptPromptedWarpsThroughTransform(t *testing.T) {
	// 8x8 logit plane, positive in the left half only, mapped onto a
	// 16x16 image through a 2x upscale.
	logits := make([]float32, 64)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x < 4 {
				logits[y*8+x] = 5
			} else {
				logits[y*8+x] = -10
			}
		}
	}
	raw := &RawOutput{Kind: KindPrompted, Logits: logits, LogitsW: 8, LogitsH: 8,
		ImageW: 16, ImageH: 16, ToImage: geometry.Scaling(2)}

	m, err := Adapt(raw, 50, geometry.RectInt{Width: 16, Height: 16})
	if err != nil {
		t.Fatalf("adapt failed: %v", err)
	}
	// Image column 6 samples logit column 3 (still positive); column 8
	// lands on column 4 (negative). The positive region doubles in width.
	if m.Pix[0] != 255 {
		t.Error("left edge not included")
	}
	if m.Pix[6] != 255 {
		t.Error("scaled positive region cut short at column 6")
	}
	if m.Pix[8] != 0 {
		t.Error("negative region included at column 8")
	}
	if m.Pix[15] != 0 {
		t.Error("right edge included")
	}
}

func TestAdaptPromptedFallbackResize(t *testing.T) {
	// Crop extends past the image (stale viewport): the adapter must
	// resize instead of failing. The zero transform is not invertible,
	// exercising the plain-scale fallback as well.
	logits := make([]float32, 16)
	for i := range logits {
		logits[i] = 5
	}
	raw := &RawOutput{Kind: KindPrompted, Logits: logits, LogitsW: 4, LogitsH: 4,
		ImageW: 4, ImageH: 4}

	m, err := Adapt(raw, 50, geometry.RectInt{X: 0, Y: 0, Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("fallback path errored: %v", err)
	}
	if m.Width != 8 || m.Height != 8 {
		t.Errorf("fallback mask size = %dx%d, want 8x8", m.Width, m.Height)
	}
	if got := m.CountAbove(0); got != 64 {
		t.Errorf("fallback mask pixels = %d, want 64", got)
	}
}

func TestAdaptNilOutput(t *testing.T) {
	if _, err := Adapt(nil, 50, geometry.RectInt{Width: 4, Height: 4}); err == nil {
		t.Error("expected error for nil raw output")
	}
}
