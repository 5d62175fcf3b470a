// Package pipeline normalizes image files: load, fit within a reference size,
// optionally convert to greyscale, and re-encode as JPEG.
//
// A Normalizer is safe for concurrent use. NormalizeAll and NormalizeDir fan
// files out to a bounded set of workers; a file that fails is recorded in the
// Report and the rest of the batch continues.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
	"github.com/ironsheep/image-normalizer-mcp/internal/scan"
)

// Options controls how images are normalized.
type Options struct {
	// Reference is the bounding size. Zero means imaging.HD.
	Reference imaging.Size

	// Compression is the JPEG quality. The zero value is the default (95).
	Compression imaging.Compression

	// Greyscale converts the output to greyscale.
	Greyscale bool

	// AllowUpscale fits images smaller than Reference up to it. Otherwise
	// only images exceeding Reference are resampled.
	AllowUpscale bool

	// OutputDir receives the normalized files. Empty means next to the source.
	OutputDir string
}

// DefaultOptions returns HD reference, quality 95, colour output.
func DefaultOptions() Options {
	return Options{
		Reference:   imaging.HD,
		Compression: imaging.DefaultCompression(),
	}
}

// Plan records what Transform did to a buffer.
type Plan struct {
	Source    imaging.Size `json:"source"`
	Target    imaging.Size `json:"target"`
	Resampled bool         `json:"resampled"`
	Greyscale bool         `json:"greyscale"`
}

// Result describes one normalized image.
type Result struct {
	Source     string             `json:"source,omitempty"`
	Output     string             `json:"output,omitempty"`
	Plan       Plan               `json:"plan"`
	Bytes      int                `json:"bytes"`
	Quality    int                `json:"quality"`
	Resolution imaging.Resolution `json:"resolution"`
	DurationMS int64              `json:"duration_ms"`
}

// Failure is a file the batch could not normalize.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
	Err   error  `json:"-"`
}

// Report summarizes a batch run. Both slices follow the input order.
type Report struct {
	Succeeded []Result  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// Total returns the number of files attempted.
func (r Report) Total() int { return len(r.Succeeded) + len(r.Failed) }

// Normalizer applies Options to images.
type Normalizer struct {
	opts    Options
	encoder *imaging.Encoder
	catalog *imaging.FormatCatalog
	logger  hclog.Logger
}

// New returns a Normalizer that encodes with imaging.DefaultEncoder.
func New(opts Options, logger hclog.Logger) *Normalizer {
	return NewWithEncoder(opts, imaging.DefaultEncoder(), logger)
}

// NewWithEncoder returns a Normalizer that encodes with enc.
func NewWithEncoder(opts Options, enc *imaging.Encoder, logger hclog.Logger) *Normalizer {
	if !opts.Reference.Valid() {
		opts.Reference = imaging.HD
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Normalizer{
		opts:    opts,
		encoder: enc,
		catalog: imaging.Formats(),
		logger:  logger.Named("pipeline"),
	}
}

// Options returns the effective options.
func (n *Normalizer) Options() Options { return n.opts }

// Transform resamples buf to fit the reference when it exceeds it (or always
// with AllowUpscale) and then applies greyscale if requested. buf is not
// modified; when nothing applies buf itself is returned.
func (n *Normalizer) Transform(buf *imaging.ImageBuffer) (*imaging.ImageBuffer, Plan, error) {
	if buf == nil {
		return nil, Plan{}, errors.Wrap(imaging.ErrArgument, "transform: image buffer is nil")
	}

	size := buf.Size()
	plan := Plan{Source: size, Target: size}
	out := buf

	if n.opts.AllowUpscale || size.Exceeds(n.opts.Reference) {
		target := imaging.FitWithin(size, n.opts.Reference)
		if target != size {
			resized, err := imaging.Resample(out, target)
			if err != nil {
				return nil, plan, errors.Wrap(err, "resample")
			}
			out = resized
			plan.Target = target
			plan.Resampled = true
		}
	}

	if n.opts.Greyscale {
		grey, err := imaging.ToGreyscale(out)
		if err != nil {
			return nil, plan, errors.Wrap(err, "greyscale")
		}
		out = grey
		plan.Greyscale = true
	}

	return out, plan, nil
}

// NormalizeBytes decodes data, transforms it and returns the JPEG bytes.
func (n *Normalizer) NormalizeBytes(data []byte) ([]byte, Result, error) {
	start := time.Now()

	buf, err := imaging.DecodeBytes(data)
	if err != nil {
		return nil, Result{}, errors.Wrap(err, "decode")
	}
	out, plan, err := n.Transform(buf)
	if err != nil {
		return nil, Result{Plan: plan}, err
	}
	encoded, err := n.encoder.Encode(out, n.opts.Compression)
	if err != nil {
		return nil, Result{Plan: plan}, errors.Wrap(err, "encode")
	}

	return encoded, Result{
		Plan:       plan,
		Bytes:      len(encoded),
		Quality:    n.opts.Compression.Value(),
		Resolution: out.Resolution(),
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

// OutputPath returns where NormalizeFile writes src: OutputDir (or the
// source directory) joined with the source file name. A .jpg source keeps its
// name; any other source gets .jpg appended (photo.png becomes photo.png.jpg),
// so a.png and a.jpg in one directory never share an output.
func (n *Normalizer) OutputPath(src string) string {
	dir := n.opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	base := filepath.Base(src)
	if !strings.EqualFold(filepath.Ext(base), ".jpg") {
		base += ".jpg"
	}
	return filepath.Join(dir, base)
}

// claimOutputs assigns each path its OutputPath and returns, per index, an
// ErrArgument for paths whose output another path in the batch already owns.
// Files rewritten in place claim first, so an original is never overwritten
// by a sibling; the rest claim in order.
func (n *Normalizer) claimOutputs(paths []string) []error {
	errs := make([]error, len(paths))
	dests := make([]string, len(paths))
	inPlace := make([]bool, len(paths))
	for i, p := range paths {
		dests[i] = pathKey(n.OutputPath(p))
		inPlace[i] = dests[i] == pathKey(p)
	}

	owner := make(map[string]int, len(paths))
	claim := func(i int) {
		if j, taken := owner[dests[i]]; taken {
			errs[i] = &imaging.Error{
				Kind: imaging.ErrArgument,
				Op:   "normalize",
				Path: paths[i],
				Err:  errors.Errorf("output %s is already written by %s", n.OutputPath(paths[i]), paths[j]),
			}
			return
		}
		owner[dests[i]] = i
	}
	for i := range paths {
		if inPlace[i] {
			claim(i)
		}
	}
	for i := range paths {
		if !inPlace[i] {
			claim(i)
		}
	}
	return errs
}

func pathKey(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// NormalizeFile normalizes src and writes the result to OutputPath(src). The
// source is fully read before anything is written, so a .jpg source may be
// rewritten in place.
func (n *Normalizer) NormalizeFile(src string) (Result, error) {
	start := time.Now()
	result := Result{Source: src}

	buf, err := imaging.LoadWithoutHandleRetention(src)
	if err != nil {
		return result, errors.Wrap(err, "load")
	}
	out, plan, err := n.Transform(buf)
	result.Plan = plan
	if err != nil {
		return result, err
	}
	data, err := n.encoder.Encode(out, n.opts.Compression)
	if err != nil {
		return result, errors.Wrap(err, "encode")
	}

	dest := n.OutputPath(src)
	if n.opts.OutputDir != "" {
		if err := os.MkdirAll(n.opts.OutputDir, 0o755); err != nil {
			return result, errors.Wrapf(err, "create output directory %s", n.opts.OutputDir)
		}
	}
	if err := imaging.WriteFileAtomic(dest, data); err != nil {
		return result, errors.Wrap(err, "write")
	}

	result.Output = dest
	result.Bytes = len(data)
	result.Quality = n.opts.Compression.Value()
	result.Resolution = out.Resolution()
	result.DurationMS = time.Since(start).Milliseconds()

	n.logger.Debug("normalized", "source", src, "output", dest,
		"from", plan.Source.String(), "to", plan.Target.String(), "bytes", len(data))
	return result, nil
}

// NormalizeAll normalizes paths on up to workers goroutines (NumCPU when
// workers < 1). Failed files are logged and reported, never fatal. A file
// whose output another file in the batch owns fails with ErrArgument and is
// not written. Files not yet started when ctx is cancelled are reported with
// ctx.Err().
func (n *Normalizer) NormalizeAll(ctx context.Context, paths []string, workers int) Report {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	results := make([]Result, len(paths))
	errs := n.claimOutputs(paths)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx], errs[idx] = n.NormalizeFile(paths[idx])
			}
		}()
	}

feed:
	for i := range paths {
		if errs[i] != nil {
			results[i] = Result{Source: paths[i]}
			continue
		}
		select {
		case <-ctx.Done():
			for j := i; j < len(paths); j++ {
				if errs[j] == nil {
					results[j] = Result{Source: paths[j]}
					errs[j] = ctx.Err()
				}
			}
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	var report Report
	for i, err := range errs {
		if err != nil {
			n.logger.Warn("skipping image", "path", paths[i], "error", err)
			report.Failed = append(report.Failed, Failure{Path: paths[i], Error: err.Error(), Err: err})
			continue
		}
		report.Succeeded = append(report.Succeeded, results[i])
	}

	n.logger.Info("batch complete", "total", report.Total(),
		"succeeded", len(report.Succeeded), "failed", len(report.Failed))
	return report
}

// NormalizeDir normalizes the supported images in dir.
func (n *Normalizer) NormalizeDir(ctx context.Context, dir string, recursive bool, workers int) (Report, error) {
	paths, err := scan.SupportedImages(dir, recursive, n.catalog)
	if err != nil {
		return Report{}, errors.Wrapf(err, "scan %s", dir)
	}
	n.logger.Debug("scanned directory", "dir", dir, "recursive", recursive, "images", len(paths))
	return n.NormalizeAll(ctx, paths, workers), nil
}
