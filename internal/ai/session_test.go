package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverModels(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "rmbg1_4.onnx")
	touch(t, dir, "u2netp.onnx")
	touch(t, dir, "mobile_sam.encoder.onnx")
	touch(t, dir, "mobile_sam.decoder.onnx")
	touch(t, dir, "orphan.encoder.onnx") // no decoder: not listed
	touch(t, dir, "readme.txt")

	got := DiscoverModels(dir)
	want := Catalog{
		WholeImage: []string{"rmbg1_4", "u2netp"},
		Prompted:   []string{"mobile_sam"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestPromptedThresholdRange(t *testing.T) {
	if got := PromptedThreshold(100); got != -3 {
		t.Errorf("threshold at slider 100 = %v, want -3", got)
	}
	if got := PromptedThreshold(0); got != 2 {
		t.Errorf("threshold at slider 0 = %v, want 2", got)
	}
}

func TestPromptScaleFitsLongEdge(t *testing.T) {
	// Landscape image: width is the binding constraint.
	s := promptScale(2048, 100)
	if s != 0.5 {
		t.Errorf("scale = %v, want 0.5", s)
	}
	// Tall image: height binds against the shorter frame side.
	s = promptScale(100, 1368)
	if s != 0.5 {
		t.Errorf("scale = %v, want 0.5", s)
	}
}

func TestPromptTransformInverse(t *testing.T) {
	fwd, inv, err := promptTransform(2048, 1000)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if got := fwd.At(0, 0) * inv.At(0, 0); got < 0.999 || got > 1.001 {
		t.Errorf("forward*inverse scale = %v, want 1", got)
	}
}
