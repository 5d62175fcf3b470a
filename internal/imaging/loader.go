package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/disintegration/imaging"
)

// LoadWithoutHandleRetention reads the whole file into memory, closes it and
// only then decodes the bytes. When it returns, no open handle refers to path,
// so the caller may delete, rename or rewrite the file straight away.
//
// # Errors
//
//   - ErrNotFound if path does not exist
//   - ErrIO if the file cannot be read
//   - ErrDecode if the bytes are not a supported raster image
func LoadWithoutHandleRetention(path string) (*ImageBuffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(ErrNotFound, "load", path, err)
		}
		return nil, newError(ErrIO, "load", path, err)
	}

	buf, err := DecodeBytes(data)
	if err != nil {
		var ie *Error
		if errors.As(err, &ie) {
			ie.Path = path
		}
		return nil, err
	}
	return buf, nil
}

// DecodeBytes decodes an in-memory image. The pixel density is taken from the
// JFIF or pHYs header when present, otherwise DefaultResolution is used.
func DecodeBytes(data []byte) (*ImageBuffer, error) {
	if len(data) == 0 {
		return nil, newError(ErrDecode, "decode", "", errors.New("empty image data"))
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newError(ErrDecode, "decode", "", err)
	}

	format := detectFormat(data)
	res, ok := sniffResolution(data, format)
	if !ok {
		res = DefaultResolution
	}

	return &ImageBuffer{img: img, resolution: res, format: format}, nil
}

// LoadResult is the outcome of TryLoad: exactly one of Buffer and Err is set.
type LoadResult struct {
	Path   string
	Buffer *ImageBuffer
	Err    error
}

// OK reports whether the load succeeded.
func (r LoadResult) OK() bool { return r.Err == nil }

// TryLoad is LoadWithoutHandleRetention for call sites that must keep going
// after a bad file, such as directory scans. It never panics: a decoder panic
// on malformed input is reported as ErrDecode.
func TryLoad(path string) (result LoadResult) {
	result.Path = path
	defer func() {
		if r := recover(); r != nil {
			result.Buffer = nil
			result.Err = newError(ErrDecode, "load", path, fmt.Errorf("decoder panic: %v", r))
		}
	}()

	result.Buffer, result.Err = LoadWithoutHandleRetention(path)
	return result
}

// ImageCache provides thread-safe caching of loaded images to avoid redundant disk reads.
//
// Images are loaded with LoadWithoutHandleRetention, so a cached entry never
// pins its file on disk. Cached buffers are shared between callers; like every
// ImageBuffer they must not be modified.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// For long-running processes handling many images, consider periodic cleanup to
// prevent unbounded memory growth.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*ImageBuffer
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*ImageBuffer),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *ImageCache) Load(path string) (*ImageBuffer, error) {
	c.mu.RLock()
	if buf, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return buf, nil
	}
	c.mu.RUnlock()

	buf, err := LoadWithoutHandleRetention(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = buf
	c.mu.Unlock()

	return buf, nil
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*ImageBuffer)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// Callers that rewrite a file in place should evict it so the next Load
// reads the new content.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the container detected from the file contents: "jpeg", "png",
	// "gif", "bmp", "tiff", "webp" or "unknown".
	Format string `json:"format"`

	// PixelFormat is the decoded channel layout, e.g. "RGB24" or "ARGB32".
	PixelFormat PixelFormat `json:"pixel_format"`

	// HasAlpha indicates whether the image has a non-opaque alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// Resolution is the pixel density in DPI.
	Resolution Resolution `json:"resolution"`

	// Orientation is "landscape", "portrait" or "square".
	Orientation Orientation `json:"orientation"`

	// LargerThanHD is true when either dimension exceeds 1920x1080.
	LargerThanHD bool `json:"larger_than_hd"`

	// HDSize is the aspect-preserving size that fits within 1920x1080.
	HDSize Size `json:"hd_size"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image and returns comprehensive metadata about it.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	buf, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, newError(ErrIO, "stat", path, err)
	}

	format := buf.SourceFormat()
	if format == "" {
		format = "unknown"
	}
	pf := buf.PixelFormat()
	size := buf.Size()

	return &ImageInfo{
		Width:         size.Width,
		Height:        size.Height,
		Format:        format,
		PixelFormat:   pf,
		HasAlpha:      pf.HasAlpha(),
		Resolution:    buf.Resolution(),
		Orientation:   size.Orientation(),
		LargerThanHD:  size.Exceeds(HD),
		HDSize:        TargetSize(size),
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	buf, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	return &DimensionsResult{
		Width:  buf.Width(),
		Height: buf.Height(),
	}, nil
}
