// Package scan lists the decodable images in a directory.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
)

// SupportedImages returns the regular files under dir whose extension is in
// catalog, in lexical order. Only the top level is listed unless recursive is
// set. A nil catalog means imaging.Formats().
//
// A missing dir fails with imaging.ErrNotFound and a path that is not a
// directory with imaging.ErrArgument.
func SupportedImages(dir string, recursive bool, catalog *imaging.FormatCatalog) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &imaging.Error{Kind: imaging.ErrNotFound, Op: "scan", Path: dir, Err: err}
		}
		return nil, &imaging.Error{Kind: imaging.ErrIO, Op: "scan", Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &imaging.Error{Kind: imaging.ErrArgument, Op: "scan", Path: dir, Err: errors.New("not a directory")}
	}
	if catalog == nil {
		catalog = imaging.Formats()
	}

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, &imaging.Error{Kind: imaging.ErrIO, Op: "scan", Path: dir, Err: err}
		}
		var paths []string
		for _, e := range entries {
			if e.Type().IsRegular() && catalog.IsSupportedPath(e.Name()) {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
		return paths, nil
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && catalog.IsSupportedPath(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &imaging.Error{Kind: imaging.ErrIO, Op: "scan", Path: dir, Err: err}
	}
	return paths, nil
}
