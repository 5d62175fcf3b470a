package imaging

import (
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
)

// ColorMatrix is a 5x5 colour transform applied to the row vector
// [R G B A 1] with components scaled to 0..1. Column j gives output channel j,
// and row 4 is a constant offset.
type ColorMatrix [5][5]float32

// greyscaleMatrix collapses colour to luminance and leaves alpha untouched:
//
//	R' = G' = B' = 0.30R + 0.59G + 0.11B
//	A' = A
var greyscaleMatrix = ColorMatrix{
	{.30, .30, .30, 0, 0},
	{.59, .59, .59, 0, 0},
	{.11, .11, .11, 0, 0},
	{0, 0, 0, 1, 0},
	{0, 0, 0, 0, 1},
}

// Transform applies m to a straight-alpha colour.
func (m ColorMatrix) Transform(c color.NRGBA) color.NRGBA {
	in := [5]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
		1,
	}

	var out [4]uint8
	for j := 0; j < 4; j++ {
		var v float32
		for i := 0; i < 5; i++ {
			v += in[i] * m[i][j]
		}
		out[j] = unitToByte(v)
	}
	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: out[3]}
}

// apply works on the premultiplied colours bild hands out.
func (m ColorMatrix) apply(c color.RGBA) color.RGBA {
	if c.A == 0 {
		return premultiply(m.Transform(color.NRGBA{}))
	}
	n := color.NRGBA{
		R: unpremultiply(c.R, c.A),
		G: unpremultiply(c.G, c.A),
		B: unpremultiply(c.B, c.A),
		A: c.A,
	}
	return premultiply(m.Transform(n))
}

func premultiply(c color.NRGBA) color.RGBA {
	a := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R)*a + 127) / 255),
		G: uint8((uint32(c.G)*a + 127) / 255),
		B: uint8((uint32(c.B)*a + 127) / 255),
		A: c.A,
	}
}

func unpremultiply(v, a uint8) uint8 {
	n := (uint32(v)*255 + uint32(a)/2) / uint32(a)
	if n > 255 {
		return 255
	}
	return uint8(n)
}

func unitToByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// ToGreyscale returns a new buffer of the same size with the luminance matrix
// applied to every pixel in a single pass. The red, green and blue channels of
// the result are equal for every pixel and alpha is preserved.
func ToGreyscale(src *ImageBuffer) (*ImageBuffer, error) {
	if src == nil {
		return nil, argumentError("greyscale", "image buffer is nil")
	}

	dst := adjust.Apply(src.Image(), greyscaleMatrix.apply)
	return src.derive(dst), nil
}
