package imaging

import (
	"github.com/disintegration/imaging"
)

// Resample returns a new buffer of the target size holding src redrawn with
// bicubic (Catmull-Rom) interpolation.
//
// The whole source rectangle is mapped onto the whole destination. Every
// destination pixel is written directly from the filtered source samples, so
// nothing from the destination's initial contents is blended in. Filter
// weights that fall outside the source are dropped and the rest renormalised,
// which keeps border pixels from darkening the way an unpadded bicubic pass
// would. The result keeps the source's DPI; src is not modified.
func Resample(src *ImageBuffer, target Size) (*ImageBuffer, error) {
	if src == nil {
		return nil, argumentError("resample", "image buffer is nil")
	}
	if !target.Valid() {
		return nil, argumentError("resample", "invalid target size %s", target)
	}

	dst := imaging.Resize(src.Image(), target.Width, target.Height, imaging.CatmullRom)
	return src.derive(dst), nil
}

// ScaleToReference resamples src to TargetSize(src.Size()).
func ScaleToReference(src *ImageBuffer) (*ImageBuffer, error) {
	if src == nil {
		return nil, argumentError("resample", "image buffer is nil")
	}
	return Resample(src, TargetSize(src.Size()))
}
