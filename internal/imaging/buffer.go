package imaging

import (
	"fmt"
	"image"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// PixelFormat names the channel layout of a decoded image.
type PixelFormat string

const (
	PixelFormatGray8    PixelFormat = "Gray8"
	PixelFormatGray16   PixelFormat = "Gray16"
	PixelFormatIndexed8 PixelFormat = "Indexed8"
	PixelFormatRGB24    PixelFormat = "RGB24"
	PixelFormatARGB32   PixelFormat = "ARGB32"
	PixelFormatRGB48    PixelFormat = "RGB48"
	PixelFormatARGB64   PixelFormat = "ARGB64"
	PixelFormatCMYK32   PixelFormat = "CMYK32"
)

// HasAlpha reports whether the format carries a meaningful alpha channel.
func (f PixelFormat) HasAlpha() bool {
	return f == PixelFormatARGB32 || f == PixelFormatARGB64
}

// ImageBuffer is a decoded raster together with the metadata the pipeline
// carries between stages.
//
// A buffer is never modified after it is produced. Each stage (resample,
// greyscale, encode) reads its input and returns a new buffer, so the input
// remains valid and owned by the caller. The pixel data lives entirely in
// memory; no file handle is associated with a buffer.
type ImageBuffer struct {
	img        image.Image
	resolution Resolution
	format     string
}

// NewImageBuffer wraps img. A zero Resolution is replaced by DefaultResolution.
func NewImageBuffer(img image.Image, res Resolution) (*ImageBuffer, error) {
	if img == nil {
		return nil, argumentError("new buffer", "image is nil")
	}
	if !res.Valid() {
		res = DefaultResolution
	}
	return &ImageBuffer{img: img, resolution: res}, nil
}

// Image returns the underlying pixels. Callers must treat them as read-only.
func (b *ImageBuffer) Image() image.Image { return b.img }

// Width returns the image width in pixels.
func (b *ImageBuffer) Width() int { return b.img.Bounds().Dx() }

// Height returns the image height in pixels.
func (b *ImageBuffer) Height() int { return b.img.Bounds().Dy() }

// Size returns the image dimensions.
func (b *ImageBuffer) Size() Size {
	return Size{Width: b.Width(), Height: b.Height()}
}

// Resolution returns the horizontal and vertical DPI.
func (b *ImageBuffer) Resolution() Resolution { return b.resolution }

// SourceFormat returns the format name detected when the buffer was decoded
// ("jpeg", "png", ...). Derived buffers keep the name of their source.
func (b *ImageBuffer) SourceFormat() string { return b.format }

// Orientation classifies the buffer by its dimensions.
func (b *ImageBuffer) Orientation() Orientation { return b.Size().Orientation() }

// PixelFormat derives the channel layout from the concrete image type.
// Opaque RGBA images report the 24/48-bit form.
func (b *ImageBuffer) PixelFormat() PixelFormat {
	return pixelFormatOf(b.img)
}

// derive returns a buffer for img that inherits b's metadata.
func (b *ImageBuffer) derive(img image.Image) *ImageBuffer {
	return &ImageBuffer{img: img, resolution: b.resolution, format: b.format}
}

type opaquer interface {
	Opaque() bool
}

func pixelFormatOf(img image.Image) PixelFormat {
	opaque := false
	if o, ok := img.(opaquer); ok {
		opaque = o.Opaque()
	}

	switch img.(type) {
	case *image.Gray:
		return PixelFormatGray8
	case *image.Gray16:
		return PixelFormatGray16
	case *image.Paletted:
		return PixelFormatIndexed8
	case *image.CMYK:
		return PixelFormatCMYK32
	case *image.YCbCr:
		return PixelFormatRGB24
	case *image.RGBA64, *image.NRGBA64:
		if opaque {
			return PixelFormatRGB48
		}
		return PixelFormatARGB64
	default:
		if opaque {
			return PixelFormatRGB24
		}
		return PixelFormatARGB32
	}
}
