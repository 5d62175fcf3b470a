// Package imaging provides the load, resample, greyscale and re-encode steps
// used to normalize raster image assets.
//
// Every step works on an *ImageBuffer: a decoded image.Image plus its pixel
// density (DPI) and detected source format. Steps never modify their input;
// each returns a new buffer, so a buffer can be handed from stage to stage
// without copying or locking.
//
//	buf, err := imaging.LoadWithoutHandleRetention(path)
//	...
//	if big, _ := imaging.IsLargerThanReference(buf); big {
//	    buf, err = imaging.ScaleToReference(buf)
//	}
//	grey, err := imaging.ToGreyscale(buf)
//	data, err := imaging.Encode(grey, imaging.DefaultCompression())
//
// # Geometry
//
// TargetSize fits a size within the 1920x1080 reference (HD) using the
// smaller of the two axis ratios, computed in floating point, and truncating
// each dimension, so the result never exceeds the reference and keeps the
// source aspect ratio.
//
// # Loading
//
// LoadWithoutHandleRetention reads the file into memory before decoding. No
// file handle outlives the call, so the source may be deleted or rewritten as
// soon as it returns. TryLoad wraps the same operation in a LoadResult for
// batch callers that want to skip bad files instead of stopping.
//
// # Codecs
//
// Decoding and encoding are delegated to github.com/disintegration/imaging and
// golang.org/x/image. The Backend interface describes the installed codecs;
// FormatCatalog and Encoder query it once per process and cache the answer.
//
// # Thread Safety
//
// FormatCatalog, Encoder and ImageCache are safe for concurrent use. The
// free functions are stateless and may run concurrently on different buffers.
//
// # Error Handling
//
// Failures are reported as *Error values that match one of the sentinels
// ErrArgument, ErrValidation, ErrNotFound, ErrDecode, ErrBackendCapability or
// ErrIO with errors.Is.
package imaging
