// Package colorspace converts image pixel data into the CIE Lab color space
// and measures perceptual color difference between Lab values.
package colorspace

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrDecode indicates the payload could not be decoded as a raster image.
var ErrDecode = errors.New("image decode failed")

// sampleSize is the edge length of the downsampled grid the average is
// computed over. Small enough to bound cost, large enough to denoise.
const sampleSize = 64

// D65 reference white point.
const (
	refX = 0.95047
	refY = 1.00000
	refZ = 1.08883
)

// Lab is a color in the CIE Lab space (D65). L is lightness in [0, 100];
// a and b are the green-red and blue-yellow axes.
type Lab struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// AverageColor decodes an image, downsamples it to a fixed grid and returns
// the Lab value of the arithmetic mean of the sampled RGB channels.
func AverageColor(data []byte) (Lab, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Lab{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return averageOf(img), nil
}

func averageOf(img image.Image) Lab {
	small := image.NewRGBA(image.Rect(0, 0, sampleSize, sampleSize))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	var rSum, gSum, bSum float64
	for y := 0; y < sampleSize; y++ {
		for x := 0; x < sampleSize; x++ {
			i := small.PixOffset(x, y)
			rSum += float64(small.Pix[i])
			gSum += float64(small.Pix[i+1])
			bSum += float64(small.Pix[i+2])
		}
	}

	n := float64(sampleSize * sampleSize)
	return FromRGB(rSum/n, gSum/n, bSum/n)
}

// FromRGB converts 8-bit sRGB channel values (0..255) to Lab.
func FromRGB(r, g, b float64) Lab {
	rl := srgbToLinear(r / 255.0)
	gl := srgbToLinear(g / 255.0)
	bl := srgbToLinear(b / 255.0)

	// Linear sRGB to XYZ (D65).
	x := rl*0.4124 + gl*0.3576 + bl*0.1805
	y := rl*0.2126 + gl*0.7152 + bl*0.0722
	z := rl*0.0193 + gl*0.1192 + bl*0.9505

	fx := labF(x / refX)
	fy := labF(y / refY)
	fz := labF(z / refZ)

	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

// DeltaE returns the CIE76 color difference: Euclidean distance in Lab space.
func DeltaE(a, b Lab) float64 {
	dl := a.L - b.L
	da := a.A - b.A
	db := a.B - b.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// srgbToLinear applies the inverse sRGB gamma transfer function.
func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// labF is the CIE Lab nonlinear response: cube root above epsilon = (6/29)^3,
// linear below, continuous at the breakpoint.
func labF(t float64) float64 {
	const (
		epsilon = 216.0 / 24389.0
		kappa   = 24389.0 / 27.0
	)
	if t > epsilon {
		return math.Cbrt(t)
	}
	return (kappa*t + 16) / 116
}
