package imaging

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// EncodeFunc writes img to w. quality is only honoured by lossy codecs.
type EncodeFunc func(w io.Writer, img image.Image, quality int) error

// CodecInfo describes one codec installed in an imaging backend.
type CodecInfo struct {
	// Name is the short codec name, e.g. "JPEG".
	Name string `json:"name"`

	// Description is a human readable label for diagnostics.
	Description string `json:"description"`

	// MimeType is the codec's media type, e.g. "image/jpeg".
	MimeType string `json:"mime_type"`

	// FilenameExtension lists wildcard patterns separated by semicolons,
	// e.g. "*.jpg;*.jpeg".
	FilenameExtension string `json:"filename_extension"`

	// Encode is set for encoders and nil for decoders.
	Encode EncodeFunc `json:"-"`
}

// Backend enumerates the codecs available to the process.
type Backend interface {
	Decoders() []CodecInfo
	Encoders() []CodecInfo
}

// StandardBackend is the codec set compiled into this binary. Decoding and
// encoding are delegated to github.com/disintegration/imaging, which registers
// the standard library codecs plus BMP and TIFF; WebP decoding comes from
// golang.org/x/image/webp.
type StandardBackend struct{}

func encodeWith(format imaging.Format) EncodeFunc {
	return func(w io.Writer, img image.Image, quality int) error {
		return imaging.Encode(w, img, format, imaging.JPEGQuality(quality))
	}
}

// Decoders returns the installed decoders.
func (StandardBackend) Decoders() []CodecInfo {
	return []CodecInfo{
		{Name: "JPEG", Description: "JPEG File Interchange Format", MimeType: "image/jpeg", FilenameExtension: "*.JPG;*.JPEG;*.JPE;*.JFIF"},
		{Name: "PNG", Description: "Portable Network Graphics", MimeType: "image/png", FilenameExtension: "*.PNG"},
		{Name: "GIF", Description: "Graphics Interchange Format", MimeType: "image/gif", FilenameExtension: "*.GIF"},
		{Name: "BMP", Description: "Windows Bitmap", MimeType: "image/bmp", FilenameExtension: "*.BMP;*.DIB;*.RLE"},
		{Name: "TIFF", Description: "Tagged Image File Format", MimeType: "image/tiff", FilenameExtension: "*.TIF;*.TIFF"},
		{Name: "WEBP", Description: "WebP", MimeType: "image/webp", FilenameExtension: "*.WEBP"},
	}
}

// Encoders returns the installed encoders.
func (StandardBackend) Encoders() []CodecInfo {
	return []CodecInfo{
		{Name: "JPEG", Description: "JPEG File Interchange Format", MimeType: "image/jpeg", FilenameExtension: "*.JPG;*.JPEG;*.JPE;*.JFIF", Encode: encodeWith(imaging.JPEG)},
		{Name: "PNG", Description: "Portable Network Graphics", MimeType: "image/png", FilenameExtension: "*.PNG", Encode: encodeWith(imaging.PNG)},
		{Name: "GIF", Description: "Graphics Interchange Format", MimeType: "image/gif", FilenameExtension: "*.GIF", Encode: encodeWith(imaging.GIF)},
		{Name: "BMP", Description: "Windows Bitmap", MimeType: "image/bmp", FilenameExtension: "*.BMP;*.DIB;*.RLE", Encode: encodeWith(imaging.BMP)},
		{Name: "TIFF", Description: "Tagged Image File Format", MimeType: "image/tiff", FilenameExtension: "*.TIF;*.TIFF", Encode: encodeWith(imaging.TIFF)},
	}
}
