package mask

import (
	"image"
	"testing"

	"cutout-studio/pkg/geometry"
)

func TestApplyAddCountsPixels(t *testing.T) {
	working := New(200, 200)
	preview := NewFilled(50, 50, 255)

	out := Apply(working, preview, OpAdd, geometry.PointInt{X: 20, Y: 30})

	if got := out.CountAbove(0); got != 2500 {
		t.Errorf("foreground pixels = %d, want 2500", got)
	}
	if v := out.At(20, 30); v != 255 {
		t.Errorf("pixel inside region = %d, want 255", v)
	}
	if v := out.At(19, 30); v != 0 {
		t.Errorf("pixel left of region = %d, want 0", v)
	}
	if working.CountAbove(0) != 0 {
		t.Error("apply mutated the input working mask")
	}
}

func TestApplySubtractInvertsAdd(t *testing.T) {
	working := New(100, 100)
	preview := NewFilled(40, 40, 255)
	off := geometry.PointInt{X: 10, Y: 10}

	added := Apply(working, preview, OpAdd, off)
	back := Apply(added, preview, OpSubtract, off)

	if !back.Equal(working) {
		t.Error("add followed by subtract of the same region did not restore the mask")
	}
}

func TestApplySaturates(t *testing.T) {
	working := NewFilled(10, 10, 200)
	preview := NewFilled(10, 10, 200)

	added := Apply(working, preview, OpAdd, geometry.PointInt{})
	if v := added.At(5, 5); v != 255 {
		t.Errorf("saturating add = %d, want 255", v)
	}

	subtracted := Apply(New(10, 10), preview, OpSubtract, geometry.PointInt{})
	if v := subtracted.At(5, 5); v != 0 {
		t.Errorf("saturating subtract = %d, want 0", v)
	}
}

func TestApplyClipsOutOfBounds(t *testing.T) {
	working := New(20, 20)
	preview := NewFilled(10, 10, 255)

	// Preview hangs off the bottom-right corner; only the overlap lands.
	out := Apply(working, preview, OpAdd, geometry.PointInt{X: 15, Y: 15})
	if got := out.CountAbove(0); got != 25 {
		t.Errorf("clipped foreground pixels = %d, want 25", got)
	}
}

func TestCutoutAlphaFollowsMask(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	for x := 0; x < 4; x++ {
		i := x * 4
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 10, 20, 30, 255
	}
	m := New(4, 1)
	m.Set(0, 0, 0)
	m.Set(1, 0, 128)
	m.Set(2, 0, 255)
	m.Set(3, 0, 7)

	out, err := Cutout(src, m)
	if err != nil {
		t.Fatalf("cutout failed: %v", err)
	}
	want := []uint8{0, 128, 255, 7}
	for x, w := range want {
		if got := out.Pix[x*4+3]; got != w {
			t.Errorf("alpha[%d] = %d, want %d", x, got, w)
		}
		if out.Pix[x*4] != 10 || out.Pix[x*4+1] != 20 || out.Pix[x*4+2] != 30 {
			t.Errorf("color[%d] changed", x)
		}
	}
}

func TestCutoutSizeMismatch(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	if _, err := Cutout(src, New(3, 3)); err == nil {
		t.Error("expected error for mismatched mask size")
	}
}

func TestSoftenZeroRadiusIsCopy(t *testing.T) {
	m := NewFilled(8, 8, 99)
	out, err := Soften(m, 0)
	if err != nil {
		t.Fatalf("soften failed: %v", err)
	}
	if !out.Equal(m) {
		t.Error("zero-radius soften changed the mask")
	}
	out.Set(0, 0, 0)
	if m.At(0, 0) != 99 {
		t.Error("soften returned an aliased mask")
	}
}
