package mask

import (
	"testing"

	"cutout-studio/pkg/geometry"
)

func TestStrokeSetRasterizeLine(t *testing.T) {
	var s StrokeSet
	s.Add(geometry.Point2D{X: 10, Y: 50}, geometry.Point2D{X: 90, Y: 50}, 10)

	m := s.Rasterize(100, 100)
	if m.At(50, 50) != 255 {
		t.Errorf("line center = %d, want 255", m.At(50, 50))
	}
	if m.At(50, 10) != 0 {
		t.Errorf("far from line = %d, want 0", m.At(50, 10))
	}
	// Round cap extends past the endpoint.
	if m.At(93, 50) == 0 {
		t.Error("round cap missing past endpoint")
	}
}

func TestStrokeSetDotForClick(t *testing.T) {
	var s StrokeSet
	p := geometry.Point2D{X: 30, Y: 30}
	s.Add(p, p, 12)

	m := s.Rasterize(60, 60)
	if m.At(30, 30) != 255 {
		t.Error("click did not rasterize as a dot")
	}
	if m.At(30, 40) != 0 {
		t.Error("dot larger than brush radius")
	}
}

func TestStrokeSetClear(t *testing.T) {
	var s StrokeSet
	s.Add(geometry.Point2D{}, geometry.Point2D{X: 5, Y: 5}, 3)
	s.Clear()
	if !s.Empty() {
		t.Error("clear left segments behind")
	}
	if got := s.Rasterize(10, 10).CountAbove(0); got != 0 {
		t.Errorf("empty set rasterized %d pixels", got)
	}
}
