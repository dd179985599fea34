package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// AlphaComposite layers top over bottom with standard source-over
// blending. Both images must share dimensions; the bottom is resized to
// the top as a last-resort recovery from a stale cache.
func AlphaComposite(bottom, top *image.NRGBA) *image.NRGBA {
	tb := top.Bounds()
	if bottom.Bounds().Dx() != tb.Dx() || bottom.Bounds().Dy() != tb.Dy() {
		resized := image.NewNRGBA(image.Rect(0, 0, tb.Dx(), tb.Dy()))
		draw.ApproxBiLinear.Scale(resized, resized.Bounds(), bottom, bottom.Bounds(), draw.Src, nil)
		bottom = resized
	}

	w, h := tb.Dx(), tb.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		ta := uint32(top.Pix[i*4+3])
		ba := uint32(bottom.Pix[i*4+3])
		oa := ta + ba*(255-ta)/255
		out.Pix[i*4+3] = uint8(oa)
		if oa == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			tc := uint32(top.Pix[i*4+c])
			bc := uint32(bottom.Pix[i*4+c])
			out.Pix[i*4+c] = uint8((tc*ta + bc*ba*(255-ta)/255) / oa)
		}
	}
	return out
}

// SolidBackground composites the cutout over a solid color.
func SolidBackground(cutout *image.NRGBA, bg color.NRGBA) *image.NRGBA {
	b := cutout.Bounds()
	plate := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i := 0; i < b.Dx()*b.Dy(); i++ {
		plate.Pix[i*4] = bg.R
		plate.Pix[i*4+1] = bg.G
		plate.Pix[i*4+2] = bg.B
		plate.Pix[i*4+3] = 255
	}
	return AlphaComposite(plate, cutout)
}

// Flatten discards transparency by compositing over opaque white.
func Flatten(img *image.NRGBA) *image.NRGBA {
	return SolidBackground(img, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}
