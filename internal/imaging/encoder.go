package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JPEGMimeType is the media type the Encoder produces.
const JPEGMimeType = "image/jpeg"

// Encoder serializes buffers to JPEG at a chosen quality.
//
// The backend is probed for a JPEG encoder once, on first use, and the outcome
// is cached for the life of the Encoder: if no encoder was found every call
// fails with ErrBackendCapability without probing again.
type Encoder struct {
	backend Backend

	once  sync.Once
	codec CodecInfo
	err   error
}

var (
	defaultEncoderOnce sync.Once
	defaultEncoder     *Encoder
)

// NewEncoder returns an Encoder backed by b.
func NewEncoder(b Backend) *Encoder {
	return &Encoder{backend: b}
}

// DefaultEncoder returns the process-wide Encoder for StandardBackend.
func DefaultEncoder() *Encoder {
	defaultEncoderOnce.Do(func() {
		defaultEncoder = NewEncoder(StandardBackend{})
	})
	return defaultEncoder
}

// Ready reports the cached result of the encoder probe. Call it at startup to
// fail fast when the backend cannot produce JPEG.
func (e *Encoder) Ready() error {
	e.once.Do(e.probe)
	return e.err
}

func (e *Encoder) probe() {
	if e.backend != nil {
		for _, enc := range e.backend.Encoders() {
			if enc.MimeType == JPEGMimeType && enc.Encode != nil {
				e.codec = enc
				return
			}
		}
	}
	e.err = newError(ErrBackendCapability, "encoder lookup", "",
		fmt.Errorf("no encoder for %s", JPEGMimeType))
}

// Encode writes buf as JPEG at quality c and returns the bytes. The output
// carries a JFIF header recording the buffer's DPI.
func (e *Encoder) Encode(buf *ImageBuffer, c Compression) ([]byte, error) {
	if err := e.Ready(); err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, argumentError("encode", "image buffer is nil")
	}

	var out bytes.Buffer
	if err := e.codec.Encode(&out, buf.Image(), c.Value()); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", e.codec.Name, err)
	}
	return withJFIF(out.Bytes(), buf.Resolution()), nil
}

// Save encodes buf and writes it to path. The bytes are written to a temporary
// file in the same directory and renamed over path, so readers never see a
// partial file and path may be the file buf was loaded from.
func (e *Encoder) Save(buf *ImageBuffer, path string, c Compression) error {
	if path == "" {
		return argumentError("save", "path is empty")
	}
	data, err := e.Encode(buf, c)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// Encode encodes buf with the default encoder.
func Encode(buf *ImageBuffer, c Compression) ([]byte, error) {
	return DefaultEncoder().Encode(buf, c)
}

// SaveJPEG saves buf to path with the default encoder.
func SaveJPEG(buf *ImageBuffer, path string, c Compression) error {
	return DefaultEncoder().Save(buf, path, c)
}

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newError(ErrNotFound, "save", dir, err)
		}
		return newError(ErrIO, "save", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return newError(ErrIO, "save", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return newError(ErrIO, "save", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return newError(ErrIO, "save", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return newError(ErrIO, "save", path, err)
	}
	return nil
}

// withJFIF inserts an APP0 JFIF segment after the SOI marker unless the
// stream already starts with one.
func withJFIF(data []byte, res Resolution) []byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return data
	}
	if data[2] == 0xFF && data[3] == 0xE0 {
		return data
	}

	seg := jfifSegment(res)
	out := make([]byte, 0, len(data)+len(seg))
	out = append(out, data[:2]...)
	out = append(out, seg...)
	out = append(out, data[2:]...)
	return out
}
