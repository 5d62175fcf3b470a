package imaging

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Resolution is the physical pixel density of an image in dots per inch.
type Resolution struct {
	X float64 `json:"x_dpi"`
	Y float64 `json:"y_dpi"`
}

// DefaultResolution is assumed when the source carries no density information.
var DefaultResolution = Resolution{X: 96, Y: 96}

// Valid reports whether both densities are positive.
func (r Resolution) Valid() bool {
	return r.X > 0 && r.Y > 0
}

var (
	jpegSignature = []byte{0xFF, 0xD8, 0xFF}
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	gifSignature  = []byte("GIF8")
	riffSignature = []byte("RIFF")
	webpSignature = []byte("WEBP")
	tiffLE        = []byte{0x49, 0x49, 0x2A, 0x00}
	tiffBE        = []byte{0x4D, 0x4D, 0x00, 0x2A}
)

// detectFormat identifies the container by its magic bytes.
// It returns an empty string if the format is not recognized.
func detectFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, jpegSignature):
		return "jpeg"
	case bytes.HasPrefix(data, pngSignature):
		return "png"
	case bytes.HasPrefix(data, gifSignature):
		return "gif"
	case len(data) >= 12 && bytes.HasPrefix(data, riffSignature) && bytes.Equal(data[8:12], webpSignature):
		return "webp"
	case bytes.HasPrefix(data, tiffLE), bytes.HasPrefix(data, tiffBE):
		return "tiff"
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return "bmp"
	}
	return ""
}

// sniffResolution reads the pixel density from a JPEG JFIF header or a PNG
// pHYs chunk. ok is false when the data carries no usable density.
func sniffResolution(data []byte, format string) (res Resolution, ok bool) {
	switch format {
	case "jpeg":
		return jfifResolution(data)
	case "png":
		return pngResolution(data)
	}
	return Resolution{}, false
}

// jfifResolution walks the JPEG segments up to the first frame header looking
// for an APP0 "JFIF" segment with absolute density units.
func jfifResolution(data []byte) (Resolution, bool) {
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return Resolution{}, false
		}
		marker := data[pos+1]
		if marker == 0xFF {
			pos++
			continue
		}
		// Standalone markers carry no length.
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			pos += 2
			continue
		}
		// Start of scan or end of image: no more headers.
		if marker == 0xDA || marker == 0xD9 {
			return Resolution{}, false
		}

		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			return Resolution{}, false
		}
		segment := data[pos+4 : pos+2+length]

		if marker == 0xE0 && len(segment) >= 12 && string(segment[:5]) == "JFIF\x00" {
			units := segment[7]
			x := float64(binary.BigEndian.Uint16(segment[8:10]))
			y := float64(binary.BigEndian.Uint16(segment[10:12]))
			switch units {
			case 1: // dots per inch
				return validResolution(x, y)
			case 2: // dots per cm
				return validResolution(x*2.54, y*2.54)
			}
			return Resolution{}, false
		}
		pos += 2 + length
	}
	return Resolution{}, false
}

// pngResolution reads the pHYs chunk. Only the metre unit gives a density.
func pngResolution(data []byte) (Resolution, bool) {
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		chunkType := string(data[pos+4 : pos+8])
		start := pos + 8
		if length < 0 || start+length > len(data) {
			return Resolution{}, false
		}

		switch chunkType {
		case "pHYs":
			if length < 9 || data[start+8] != 1 {
				return Resolution{}, false
			}
			x := float64(binary.BigEndian.Uint32(data[start : start+4]))
			y := float64(binary.BigEndian.Uint32(data[start+4 : start+8]))
			return validResolution(x*0.0254, y*0.0254)
		case "IDAT", "IEND":
			// pHYs must precede image data.
			return Resolution{}, false
		}
		pos = start + length + 4 // skip CRC
	}
	return Resolution{}, false
}

func validResolution(x, y float64) (Resolution, bool) {
	r := Resolution{X: math.Round(x*100) / 100, Y: math.Round(y*100) / 100}
	return r, r.Valid()
}

// jfifSegment builds an APP0 JFIF 1.01 segment with density in DPI.
func jfifSegment(res Resolution) []byte {
	seg := make([]byte, 18)
	seg[0], seg[1] = 0xFF, 0xE0
	binary.BigEndian.PutUint16(seg[2:4], 16)
	copy(seg[4:9], "JFIF\x00")
	seg[9], seg[10] = 1, 1 // version 1.01
	seg[11] = 1            // units: dots per inch
	binary.BigEndian.PutUint16(seg[12:14], clampDensity(res.X))
	binary.BigEndian.PutUint16(seg[14:16], clampDensity(res.Y))
	// seg[16], seg[17]: no thumbnail
	return seg
}

func clampDensity(v float64) uint16 {
	v = math.Round(v)
	if v < 1 {
		return 1
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}
