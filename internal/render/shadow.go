package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"cutout-studio/internal/mask"
)

// shadowDownsample trades shadow blur fidelity for speed; the blurred
// alpha is computed at half resolution.
const shadowDownsample = 0.5

// ShadowParams describes the drop shadow behind the subject.
type ShadowParams struct {
	Enabled bool
	Opacity float64 // 0..1 multiplier on the blurred alpha
	Radius  int     // blur radius in full-resolution pixels
	OffsetX int
	OffsetY int
}

// BlurShadowAlpha blurs the working mask into a soft shadow alpha at
// reduced resolution. Only the radius affects this result; opacity and
// offset are cheap and applied during compositing.
func BlurShadowAlpha(m *mask.Mask, radius int) (*mask.Mask, error) {
	smallW := int(float64(m.Width) * shadowDownsample)
	smallH := int(float64(m.Height) * shadowDownsample)
	if smallW < 1 {
		smallW = 1
	}
	if smallH < 1 {
		smallH = 1
	}
	small := resizeMaskNearest(m, smallW, smallH)

	kernel := int(float64(radius) * shadowDownsample)
	if kernel%2 == 0 {
		kernel++
	}
	srcMat, err := gocv.NewMatFromBytes(smallH, smallW, gocv.MatTypeCV8UC1, small.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap shadow alpha: %w", err)
	}
	defer srcMat.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.GaussianBlur(srcMat, &dst, image.Pt(kernel, kernel), 0, 0, gocv.BorderDefault)

	data, err := dst.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read shadow alpha: %w", err)
	}
	blurred := mask.New(smallW, smallH)
	copy(blurred.Pix, data)

	return resizeMaskNearest(blurred, m.Width, m.Height), nil
}

// ApplyShadow composites the cutout over a black drop shadow built from
// the blurred alpha, applying opacity and offset.
func ApplyShadow(cutout *image.NRGBA, blurredAlpha *mask.Mask, p ShadowParams) *image.NRGBA {
	b := cutout.Bounds()
	w, h := b.Dx(), b.Dy()

	shadow := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		sy := y - p.OffsetY
		if sy < 0 || sy >= blurredAlpha.Height {
			continue
		}
		for x := 0; x < w; x++ {
			sx := x - p.OffsetX
			if sx < 0 || sx >= blurredAlpha.Width {
				continue
			}
			a := float64(blurredAlpha.Pix[sy*blurredAlpha.Width+sx]) * p.Opacity
			if a > 255 {
				a = 255
			}
			shadow.Pix[(y*w+x)*4+3] = uint8(a)
		}
	}
	return AlphaComposite(shadow, cutout)
}

// ShadowCache memoizes the blurred shadow alpha against the mask
// generation and radius. Opacity and offset changes hit the cache.
type ShadowCache struct {
	alpha   *mask.Mask
	maskGen uint64
	radius  int
	valid   bool
}

// Get returns the cached blurred alpha when it matches.
func (c *ShadowCache) Get(maskGen uint64, radius int) (*mask.Mask, bool) {
	if c.valid && c.maskGen == maskGen && c.radius == radius {
		return c.alpha, true
	}
	return nil, false
}

// Put stores a freshly blurred alpha.
func (c *ShadowCache) Put(maskGen uint64, radius int, alpha *mask.Mask) {
	c.alpha = alpha
	c.maskGen = maskGen
	c.radius = radius
	c.valid = true
}

// Invalidate drops the cached alpha.
func (c *ShadowCache) Invalidate() {
	c.alpha = nil
	c.valid = false
}
