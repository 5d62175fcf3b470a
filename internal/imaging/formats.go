package imaging

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FormatCatalog is the set of file extensions the backend can decode.
//
// A catalog is immutable once built and safe for concurrent use. Extensions
// are stored lower-cased with a leading dot (".jpg").
type FormatCatalog struct {
	extensions   []string
	descriptions []string
	index        map[string]struct{}
}

var (
	formatsOnce sync.Once
	formats     *FormatCatalog
)

// Formats returns the process-wide catalog for StandardBackend, building it
// on first use.
func Formats() *FormatCatalog {
	formatsOnce.Do(func() {
		formats = NewFormatCatalog(StandardBackend{})
	})
	return formats
}

// NewFormatCatalog builds a catalog from the backend's decoders. Each
// decoder's pattern list such as "*.jpg;*.jpeg" is stripped of wildcards,
// split on ';' and merged into a sorted, de-duplicated set. A nil backend or
// one without decoders gives an empty catalog.
func NewFormatCatalog(b Backend) *FormatCatalog {
	c := &FormatCatalog{index: make(map[string]struct{})}
	if b == nil {
		return c
	}

	for _, dec := range b.Decoders() {
		for _, ext := range parseExtensions(dec.FilenameExtension) {
			c.index[ext] = struct{}{}
		}
		desc := dec.Description
		if desc == "" {
			desc = "<No Description>"
		}
		c.descriptions = append(c.descriptions, desc)
	}

	c.extensions = make([]string, 0, len(c.index))
	for ext := range c.index {
		c.extensions = append(c.extensions, ext)
	}
	sort.Strings(c.extensions)
	sort.Strings(c.descriptions)
	return c
}

func parseExtensions(patterns string) []string {
	patterns = strings.ReplaceAll(patterns, "*", "")
	var out []string
	for _, p := range strings.Split(patterns, ";") {
		if ext := normalizeExtension(p); ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// IsSupported reports whether ext can be decoded. The match ignores case and
// the leading dot is optional, so ".JPG", ".jpg" and "jpg" agree.
func (c *FormatCatalog) IsSupported(ext string) bool {
	ext = normalizeExtension(ext)
	if ext == "" {
		return false
	}
	_, ok := c.index[ext]
	return ok
}

// IsSupportedPath reports whether the file's extension is supported.
func (c *FormatCatalog) IsSupportedPath(path string) bool {
	return c.IsSupported(filepath.Ext(path))
}

// Extensions returns a copy of the sorted extension list.
func (c *FormatCatalog) Extensions() []string {
	return append([]string(nil), c.extensions...)
}

// Descriptions returns the sorted decoder descriptions.
func (c *FormatCatalog) Descriptions() []string {
	return append([]string(nil), c.descriptions...)
}

// Len returns the number of supported extensions.
func (c *FormatCatalog) Len() int { return len(c.extensions) }

// DescribeAll returns every supported extension joined with commas.
func (c *FormatCatalog) DescribeAll() string {
	return strings.Join(c.extensions, ",")
}
