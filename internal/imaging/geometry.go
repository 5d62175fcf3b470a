package imaging

// HD is the reference resolution used for scaling decisions.
var HD = Size{Width: 1920, Height: 1080}

// Orientation classifies an image by comparing its width and height.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
	Square    Orientation = "square"
)

// Orientation returns Landscape when wider than tall, Portrait when taller
// than wide and Square otherwise.
func (s Size) Orientation() Orientation {
	switch {
	case s.Width > s.Height:
		return Landscape
	case s.Height > s.Width:
		return Portrait
	default:
		return Square
	}
}

// Exceeds reports whether either dimension is strictly larger than the
// corresponding dimension of reference.
func (s Size) Exceeds(reference Size) bool {
	return s.Width > reference.Width || s.Height > reference.Height
}

// IsLargerThanReference reports whether buf exceeds HD in either dimension.
func IsLargerThanReference(buf *ImageBuffer) (bool, error) {
	if buf == nil {
		return false, argumentError("compare to reference", "image buffer is nil")
	}
	return buf.Size().Exceeds(HD), nil
}

// TargetSize returns original scaled to fit within HD with its aspect ratio
// preserved.
func TargetSize(original Size) Size {
	return FitWithin(original, HD)
}

// FitWithin scales original by the binding ratio
//
//	min(reference.Width/original.Width, reference.Height/original.Height)
//
// computed in floating point, and truncates each dimension. The result never
// exceeds reference. A size equal to reference is returned unchanged, and no
// dimension drops below 1.
//
// Truncation follows the float product, so the binding dimension can land one
// pixel short of the reference (1000x2140 fits to 504x1079).
func FitWithin(original, reference Size) Size {
	if original == reference {
		return original
	}
	if !original.Valid() || !reference.Valid() {
		return Size{}
	}

	ratio := ScaleRatio(original, reference)
	return Size{
		Width:  atLeastOne(float64(original.Width) * ratio),
		Height: atLeastOne(float64(original.Height) * ratio),
	}
}

// ScaleRatio returns the binding ratio FitWithin applies.
func ScaleRatio(original, reference Size) float64 {
	if !original.Valid() {
		return 0
	}
	rx := float64(reference.Width) / float64(original.Width)
	ry := float64(reference.Height) / float64(original.Height)
	if rx < ry {
		return rx
	}
	return ry
}

func atLeastOne(v float64) int {
	if n := int(v); n > 1 {
		return n
	}
	return 1
}
