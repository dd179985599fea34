// Package render produces the composited output: background substitution,
// drop shadow, and the export pipeline. The expensive intermediates
// (inpainted blur, blurred shadow alpha) are cached against the mask
// generation that produced them.
package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"

	"cutout-studio/internal/mask"
)

// blurWorkingSize caps the long edge during inpainting; the result is
// scaled back up afterwards.
const blurWorkingSize = 512

// inpaintRadius is the pixel neighborhood used to fill the subject area.
const inpaintRadius = 3

// BlurredBackground builds a background plate from the source image: the
// subject area (per the mask) is inpainted away, then the plate is
// Gaussian-blurred with the given radius. Work happens at a reduced
// resolution; radius is expressed in full-resolution pixels.
func BlurredBackground(src *image.NRGBA, m *mask.Mask, radius float64) (*image.NRGBA, error) {
	b := src.Bounds()
	fullW, fullH := b.Dx(), b.Dy()
	if fullW == 0 || fullH == 0 {
		return nil, fmt.Errorf("empty source image")
	}

	scale := minF(float64(blurWorkingSize)/float64(fullW), float64(blurWorkingSize)/float64(fullH))
	if scale > 1 {
		scale = 1
	}
	smallW := int(float64(fullW) * scale)
	smallH := int(float64(fullH) * scale)
	if smallW < 1 {
		smallW = 1
	}
	if smallH < 1 {
		smallH = 1
	}

	smallImg := image.NewNRGBA(image.Rect(0, 0, smallW, smallH))
	draw.ApproxBiLinear.Scale(smallImg, smallImg.Bounds(), src, b, draw.Src, nil)
	smallMask := resizeMaskNearest(m, smallW, smallH)

	rgb := make([]uint8, smallW*smallH*3)
	for i := 0; i < smallW*smallH; i++ {
		rgb[i*3] = smallImg.Pix[i*4]
		rgb[i*3+1] = smallImg.Pix[i*4+1]
		rgb[i*3+2] = smallImg.Pix[i*4+2]
	}

	srcMat, err := gocv.NewMatFromBytes(smallH, smallW, gocv.MatTypeCV8UC3, rgb)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap image for inpaint: %w", err)
	}
	defer srcMat.Close()

	maskMat, err := gocv.NewMatFromBytes(smallH, smallW, gocv.MatTypeCV8UC1, smallMask.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap mask for inpaint: %w", err)
	}
	defer maskMat.Close()

	inpainted := gocv.NewMat()
	defer inpainted.Close()
	gocv.Inpaint(srcMat, maskMat, &inpainted, inpaintRadius, gocv.Telea)

	// Blur at the working scale; the kernel must be odd.
	kernel := int(radius * scale)
	if kernel%2 == 0 {
		kernel++
	}
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(inpainted, &blurred, image.Pt(kernel, kernel), 0, 0, gocv.BorderDefault)

	data, err := blurred.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read blurred plate: %w", err)
	}
	smallOut := image.NewNRGBA(image.Rect(0, 0, smallW, smallH))
	for i := 0; i < smallW*smallH; i++ {
		smallOut.Pix[i*4] = data[i*3]
		smallOut.Pix[i*4+1] = data[i*3+1]
		smallOut.Pix[i*4+2] = data[i*3+2]
		smallOut.Pix[i*4+3] = 255
	}

	out := image.NewNRGBA(image.Rect(0, 0, fullW, fullH))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), smallOut, smallOut.Bounds(), draw.Src, nil)
	return out, nil
}

// BackgroundCache memoizes the last blurred background plate against the
// mask generation and blur radius that produced it.
type BackgroundCache struct {
	plate   *image.NRGBA
	maskGen uint64
	radius  float64
	valid   bool
}

// Get returns the cached plate when it matches the requested identity.
func (c *BackgroundCache) Get(maskGen uint64, radius float64) (*image.NRGBA, bool) {
	if c.valid && c.maskGen == maskGen && c.radius == radius {
		return c.plate, true
	}
	return nil, false
}

// Put stores a freshly computed plate.
func (c *BackgroundCache) Put(maskGen uint64, radius float64, plate *image.NRGBA) {
	c.plate = plate
	c.maskGen = maskGen
	c.radius = radius
	c.valid = true
}

// Invalidate drops the cached plate.
func (c *BackgroundCache) Invalidate() {
	c.plate = nil
	c.valid = false
}

func resizeMaskNearest(m *mask.Mask, width, height int) *mask.Mask {
	out := mask.New(width, height)
	if m.Width == 0 || m.Height == 0 {
		return out
	}
	for y := 0; y < height; y++ {
		sy := y * m.Height / height
		for x := 0; x < width; x++ {
			out.Pix[y*width+x] = m.Pix[sy*m.Width+x*m.Width/width]
		}
	}
	return out
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
