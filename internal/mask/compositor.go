package mask

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"cutout-studio/pkg/geometry"
)

// Op selects how a preview mask is folded into the working mask.
type Op int

const (
	// OpAdd marks preview pixels as foreground.
	OpAdd Op = iota
	// OpSubtract marks preview pixels as background.
	OpSubtract
)

func (o Op) String() string {
	if o == OpSubtract {
		return "subtract"
	}
	return "add"
}

// Apply embeds a preview mask into the working mask at the given image-space
// offset, combining per pixel with a saturating add or subtract. The working
// mask is not modified; a fresh mask is returned. Preview pixels falling
// outside the working bounds are ignored.
func Apply(working, preview *Mask, op Op, offset geometry.PointInt) *Mask {
	out := working.Clone()
	for py := 0; py < preview.Height; py++ {
		wy := py + offset.Y
		if wy < 0 || wy >= out.Height {
			continue
		}
		wrow := out.Pix[wy*out.Width : (wy+1)*out.Width]
		prow := preview.Pix[py*preview.Width : (py+1)*preview.Width]
		for px := 0; px < preview.Width; px++ {
			wx := px + offset.X
			if wx < 0 || wx >= out.Width {
				continue
			}
			switch op {
			case OpAdd:
				v := int(wrow[wx]) + int(prow[px])
				if v > 255 {
					v = 255
				}
				wrow[wx] = uint8(v)
			case OpSubtract:
				v := int(wrow[wx]) - int(prow[px])
				if v < 0 {
					v = 0
				}
				wrow[wx] = uint8(v)
			}
		}
	}
	return out
}

// Soften blurs the mask edges with a Gaussian kernel of the given radius.
// Radius zero returns an unblurred copy. The kernel size is forced odd.
func Soften(m *Mask, radius int) (*Mask, error) {
	if radius <= 0 {
		return m.Clone(), nil
	}
	kernel := radius
	if kernel%2 == 0 {
		kernel++
	}

	src, err := gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8UC1, m.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap mask for blur: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.GaussianBlur(src, &dst, image.Pt(kernel, kernel), 0, 0, gocv.BorderDefault)

	blurred, err := dst.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read blurred mask: %w", err)
	}
	out := New(m.Width, m.Height)
	copy(out.Pix, blurred)
	return out, nil
}

// Cutout composites the source image over transparency through the mask:
// the mask value becomes the output alpha channel. Source and mask must
// have matching dimensions.
func Cutout(src *image.NRGBA, m *Mask) (*image.NRGBA, error) {
	b := src.Bounds()
	if b.Dx() != m.Width || b.Dy() != m.Height {
		return nil, fmt.Errorf("mask size %dx%d does not match image %dx%d",
			m.Width, m.Height, b.Dx(), b.Dy())
	}

	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		srow := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X)*4:]
		orow := out.Pix[y*out.Stride:]
		mrow := m.Pix[y*m.Width:]
		for x := 0; x < m.Width; x++ {
			copy(orow[x*4:x*4+3], srow[x*4:x*4+3])
			orow[x*4+3] = mrow[x]
		}
	}
	return out, nil
}
