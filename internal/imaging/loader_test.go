package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// createInMemoryImage creates an in-memory test image
func createInMemoryImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.NRGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.NRGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.NRGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.NRGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// newTestBuffer wraps an in-memory image in a buffer with the given DPI.
func newTestBuffer(t *testing.T, img image.Image, dpi float64) *ImageBuffer {
	t.Helper()
	buf, err := NewImageBuffer(img, Resolution{X: dpi, Y: dpi})
	if err != nil {
		t.Fatalf("NewImageBuffer failed: %v", err)
	}
	return buf
}

// createTestImage creates a simple test image file and returns its path.
// The file lives in t.TempDir and is removed with it.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-image.png")
	writePNG(t, path, createInMemoryImage(width, height, c))
	return path
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
}

// pngWithDensity encodes img and inserts a pHYs chunk (pixels per metre)
// directly after IHDR.
func pngWithDensity(t *testing.T, img image.Image, ppm uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	data := buf.Bytes()

	body := make([]byte, 13)
	copy(body, "pHYs")
	binary.BigEndian.PutUint32(body[4:8], ppm)
	binary.BigEndian.PutUint32(body[8:12], ppm)
	body[12] = 1 // metre

	chunk := make([]byte, 4, 4+len(body)+4)
	binary.BigEndian.PutUint32(chunk, 9)
	chunk = append(chunk, body...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(body))

	const ihdrEnd = 8 + 25
	out := append([]byte{}, data[:ihdrEnd]...)
	out = append(out, chunk...)
	return append(out, data[ihdrEnd:]...)
}

func TestLoadWithoutHandleRetention(t *testing.T) {
	path := createTestImage(t, 120, 80, color.NRGBA{200, 100, 50, 255})

	buf, err := LoadWithoutHandleRetention(path)
	if err != nil {
		t.Fatalf("LoadWithoutHandleRetention failed: %v", err)
	}
	if buf.Width() != 120 || buf.Height() != 80 {
		t.Errorf("unexpected dimensions: got %s, want 120x80", buf.Size())
	}
	if buf.SourceFormat() != "png" {
		t.Errorf("SourceFormat: got %q, want png", buf.SourceFormat())
	}
	if buf.Resolution() != DefaultResolution {
		t.Errorf("Resolution: got %+v, want default %+v", buf.Resolution(), DefaultResolution)
	}
}

func TestLoadWithoutHandleRetention_SourceDeletable(t *testing.T) {
	path := createTestImage(t, 40, 40, color.NRGBA{0, 0, 255, 255})

	buf, err := LoadWithoutHandleRetention(path)
	if err != nil {
		t.Fatalf("LoadWithoutHandleRetention failed: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("source file should be deletable after load: %v", err)
	}

	// The buffer is fully in memory and still usable.
	r, g, b, _ := buf.Image().At(10, 10).RGBA()
	if r != 0 || g != 0 || b>>8 != 255 {
		t.Errorf("pixel after delete: got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestLoadWithoutHandleRetention_RewriteInPlace(t *testing.T) {
	path := createTestImage(t, 64, 32, color.NRGBA{10, 20, 30, 255})

	buf, err := LoadWithoutHandleRetention(path)
	if err != nil {
		t.Fatalf("LoadWithoutHandleRetention failed: %v", err)
	}
	if err := SaveJPEG(buf, path, DefaultCompression()); err != nil {
		t.Fatalf("rewriting source failed: %v", err)
	}

	again, err := LoadWithoutHandleRetention(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.SourceFormat() != "jpeg" {
		t.Errorf("rewritten file format: got %q, want jpeg", again.SourceFormat())
	}
}

func TestLoadWithoutHandleRetention_NonExistent(t *testing.T) {
	_, err := LoadWithoutHandleRetention("/nonexistent/path/to/image.png")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected error to unwrap to fs.ErrNotExist, got %v", err)
	}
}

func TestLoadWithoutHandleRetention_Directory(t *testing.T) {
	_, err := LoadWithoutHandleRetention(t.TempDir())
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO for a directory, got %v", err)
	}
}

func TestLoadWithoutHandleRetention_InvalidImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := LoadWithoutHandleRetention(path)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	var ie *Error
	if !errors.As(err, &ie) || ie.Path != path {
		t.Errorf("error should carry the path, got %v", err)
	}
}

func TestDecodeBytes_Empty(t *testing.T) {
	if _, err := DecodeBytes(nil); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode for empty data, got %v", err)
	}
}

func TestDecodeBytes_PNGDensity(t *testing.T) {
	// 11811 pixels per metre is 300 DPI.
	data := pngWithDensity(t, createInMemoryImage(20, 10, color.White), 11811)

	buf, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	res := buf.Resolution()
	if res.X < 299.9 || res.X > 300.1 || res.Y < 299.9 || res.Y > 300.1 {
		t.Errorf("Resolution: got %+v, want ~300 DPI", res)
	}
}

// panickyMagic marks files whose registered decoder panics.
const panickyMagic = "PANICIMG"

var registerPanicky sync.Once

func createPanickyImage(t *testing.T) string {
	t.Helper()
	registerPanicky.Do(func() {
		image.RegisterFormat("panicky", panickyMagic,
			func(io.Reader) (image.Image, error) { panic("index out of range") },
			func(io.Reader) (image.Config, error) { panic("index out of range") })
	})
	path := filepath.Join(t.TempDir(), "panicky.png")
	if err := os.WriteFile(path, []byte(panickyMagic+"\x00\x01"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

func TestTryLoad(t *testing.T) {
	good := createTestImage(t, 10, 10, color.Black)
	bad := filepath.Join(t.TempDir(), "bad.jpg")
	if err := os.WriteFile(bad, []byte{0xFF, 0xD8, 0xFF, 0x00}, 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	panicky := createPanickyImage(t)

	tests := []struct {
		name   string
		path   string
		wantOK bool
		kind   error
	}{
		{"valid", good, true, nil},
		{"corrupt", bad, false, ErrDecode},
		{"missing", "/nonexistent/x.png", false, ErrNotFound},
		{"decoder panic", panicky, false, ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := TryLoad(tt.path)
			if r.OK() != tt.wantOK {
				t.Fatalf("OK: got %v, want %v (err=%v)", r.OK(), tt.wantOK, r.Err)
			}
			if r.Path != tt.path {
				t.Errorf("Path: got %q, want %q", r.Path, tt.path)
			}
			if tt.wantOK && r.Buffer == nil {
				t.Error("successful result has nil Buffer")
			}
			if !tt.wantOK {
				if r.Buffer != nil {
					t.Error("failed result should not carry a Buffer")
				}
				if !errors.Is(r.Err, tt.kind) {
					t.Errorf("Err: got %v, want %v", r.Err, tt.kind)
				}
			}
		})
	}
}

func TestTryLoad_RecoversDecoderPanic(t *testing.T) {
	path := createPanickyImage(t)

	r := TryLoad(path)
	if r.OK() || r.Buffer != nil {
		t.Fatalf("expected failure, got %+v", r)
	}
	var ie *Error
	if !errors.As(r.Err, &ie) {
		t.Fatalf("Err: got %T, want *Error", r.Err)
	}
	if ie.Kind != ErrDecode || ie.Path != path {
		t.Errorf("Error: got kind %v path %q", ie.Kind, ie.Path)
	}
	if !strings.Contains(r.Err.Error(), "decoder panic") {
		t.Errorf("Err message: got %q", r.Err.Error())
	}
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.images == nil {
		t.Fatal("NewImageCache did not initialize images map")
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 100, color.NRGBA{255, 0, 0, 255})

	buf1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if buf1.Width() != 100 || buf1.Height() != 100 {
		t.Errorf("unexpected dimensions: got %s, want 100x100", buf1.Size())
	}

	buf2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if buf1 != buf2 {
		t.Error("second Load did not return cached image")
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	if _, err := cache.Load("/nonexistent/path/to/image.png"); err == nil {
		t.Error("Load should fail for non-existent file")
	}
}

func TestImageCache_Evict(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.NRGBA{0, 0, 255, 255})

	if _, err := cache.Load(imgPath); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cache.Evict(imgPath)

	cache.mu.RLock()
	_, exists := cache.images[imgPath]
	cache.mu.RUnlock()

	if exists {
		t.Error("Evict did not remove image from cache")
	}
}

func TestImageCache_Clear(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.NRGBA{0, 255, 0, 255})

	if _, err := cache.Load(imgPath); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cache.Clear()

	cache.mu.RLock()
	count := len(cache.images)
	cache.mu.RUnlock()

	if count != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", count)
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.NRGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 2000, 1200, color.NRGBA{255, 128, 64, 255})

	info, err := LoadImageInfo(cache, imgPath)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}

	if info.Width != 2000 || info.Height != 1200 {
		t.Errorf("dimensions: got %dx%d, want 2000x1200", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.Orientation != Landscape {
		t.Errorf("Orientation: got %s, want landscape", info.Orientation)
	}
	if !info.LargerThanHD {
		t.Error("LargerThanHD should be true for 2000x1200")
	}
	if want := (Size{1800, 1080}); info.HDSize != want {
		t.Errorf("HDSize: got %s, want %s", info.HDSize, want)
	}
	if info.FileSizeBytes <= 0 {
		t.Error("FileSizeBytes should be positive")
	}
}

func TestLoadImageInfo_FormatFromContent(t *testing.T) {
	cache := NewImageCache()

	// A PNG is reported as PNG whatever its extension says.
	for _, ext := range []string{".png", ".jpg", ".gif", ".xyz"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test-format"+ext)
			writePNG(t, path, createInMemoryImage(10, 10, color.White))

			info, err := LoadImageInfo(cache, path)
			if err != nil {
				t.Fatalf("LoadImageInfo failed: %v", err)
			}
			if info.Format != "png" {
				t.Errorf("Format for %s: got %s, want png", ext, info.Format)
			}
		})
	}
}

func TestGetDimensions(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 300, 200, color.NRGBA{100, 100, 100, 255})

	dims, err := GetDimensions(cache, imgPath)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("dimensions: got %dx%d, want 300x200", dims.Width, dims.Height)
	}
}

func TestGetDimensions_NonExistent(t *testing.T) {
	cache := NewImageCache()
	if _, err := GetDimensions(cache, "/nonexistent/image.png"); err == nil {
		t.Error("GetDimensions should fail for non-existent file")
	}
}
