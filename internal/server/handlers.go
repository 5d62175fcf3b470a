package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
	"github.com/ironsheep/image-normalizer-mcp/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_normalize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate imaging/pipeline function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_formats":
		return s.handleImageFormats(args)
	case "image_target_size":
		return s.handleImageTargetSize(args)

	// Transform Operations
	case "image_resize":
		return s.handleImageResize(args)
	case "image_greyscale":
		return s.handleImageGreyscale(args)
	case "image_normalize":
		return s.handleImageNormalize(args)
	case "image_normalize_batch":
		return s.handleImageNormalizeBatch(args)

	// Analysis
	case "image_lightness":
		return s.handleImageLightness(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// ImageResult is an encoded JPEG returned inline as base64 or written to
// OutputPath.
type ImageResult struct {
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	MimeType    string             `json:"mime_type"`
	SizeBytes   int                `json:"size_bytes"`
	Quality     int                `json:"quality"`
	Resolution  imaging.Resolution `json:"resolution"`
	ImageBase64 string             `json:"image_base64,omitempty"`
	OutputPath  string             `json:"output_path,omitempty"`
}

// emit encodes buf and either writes it to outputPath or inlines it.
func (s *Server) emit(buf *imaging.ImageBuffer, quality int, outputPath string) (*ImageResult, error) {
	c := s.defaults.Compression
	if quality != 0 {
		var err error
		if c, err = imaging.NewCompression(quality); err != nil {
			return nil, err
		}
	}

	data, err := imaging.Encode(buf, c)
	if err != nil {
		return nil, err
	}

	result := &ImageResult{
		Width:      buf.Width(),
		Height:     buf.Height(),
		MimeType:   imaging.JPEGMimeType,
		SizeBytes:  len(data),
		Quality:    c.Value(),
		Resolution: buf.Resolution(),
	}
	if outputPath == "" {
		result.ImageBase64 = base64.StdEncoding.EncodeToString(data)
		return result, nil
	}

	if err := imaging.WriteFileAtomic(outputPath, data); err != nil {
		return nil, err
	}
	s.cache.Evict(outputPath)
	result.OutputPath = outputPath
	return result, nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// FormatsResult lists the decodable extensions.
type FormatsResult struct {
	Extensions   []string `json:"extensions"`
	Descriptions []string `json:"descriptions"`
	All          string   `json:"all"`
	CanEncode    bool     `json:"can_encode_jpeg"`
}

func (s *Server) handleImageFormats(args json.RawMessage) (interface{}, error) {
	catalog := imaging.Formats()
	return &FormatsResult{
		Extensions:   catalog.Extensions(),
		Descriptions: catalog.Descriptions(),
		All:          catalog.DescribeAll(),
		CanEncode:    imaging.DefaultEncoder().Ready() == nil,
	}, nil
}

type imageTargetSizeArgs struct {
	Width           int `json:"width"`
	Height          int `json:"height"`
	ReferenceWidth  int `json:"reference_width"`
	ReferenceHeight int `json:"reference_height"`
}

// TargetSizeResult reports how a size fits the reference.
type TargetSizeResult struct {
	Original         imaging.Size        `json:"original"`
	Reference        imaging.Size        `json:"reference"`
	Target           imaging.Size        `json:"target"`
	ScaleRatio       float64             `json:"scale_ratio"`
	Orientation      imaging.Orientation `json:"orientation"`
	ExceedsReference bool                `json:"exceeds_reference"`
}

func (s *Server) handleImageTargetSize(args json.RawMessage) (interface{}, error) {
	var a imageTargetSizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	original := imaging.Size{Width: a.Width, Height: a.Height}
	if !original.Valid() {
		return nil, fmt.Errorf("width and height must be positive, got %s", original)
	}
	reference := s.defaults.Reference
	if a.ReferenceWidth != 0 || a.ReferenceHeight != 0 {
		reference = imaging.Size{Width: a.ReferenceWidth, Height: a.ReferenceHeight}
		if !reference.Valid() {
			return nil, fmt.Errorf("reference must be positive, got %s", reference)
		}
	}

	return &TargetSizeResult{
		Original:         original,
		Reference:        reference,
		Target:           imaging.FitWithin(original, reference),
		ScaleRatio:       imaging.ScaleRatio(original, reference),
		Orientation:      original.Orientation(),
		ExceedsReference: original.Exceeds(reference),
	}, nil
}

// === Transform Operation Handlers ===

type imageResizeArgs struct {
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Quality    int    `json:"quality"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleImageResize(args json.RawMessage) (interface{}, error) {
	var a imageResizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if (a.Width == 0) != (a.Height == 0) {
		return nil, fmt.Errorf("width and height must be given together")
	}

	buf, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	target := imaging.Size{Width: a.Width, Height: a.Height}
	if a.Width == 0 {
		target = imaging.FitWithin(buf.Size(), s.defaults.Reference)
	}
	resized, err := imaging.Resample(buf, target)
	if err != nil {
		return nil, err
	}
	return s.emit(resized, a.Quality, a.OutputPath)
}

type imageGreyscaleArgs struct {
	Path       string `json:"path"`
	Quality    int    `json:"quality"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleImageGreyscale(args json.RawMessage) (interface{}, error) {
	var a imageGreyscaleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	buf, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	grey, err := imaging.ToGreyscale(buf)
	if err != nil {
		return nil, err
	}
	return s.emit(grey, a.Quality, a.OutputPath)
}

// normalizeOverrides are the per-call pipeline settings; nil or zero means
// the server default.
type normalizeOverrides struct {
	Quality         int   `json:"quality"`
	Greyscale       *bool `json:"greyscale"`
	AllowUpscale    *bool `json:"allow_upscale"`
	ReferenceWidth  int   `json:"reference_width"`
	ReferenceHeight int   `json:"reference_height"`
}

func (o normalizeOverrides) apply(opts pipeline.Options) (pipeline.Options, error) {
	if o.Quality != 0 {
		c, err := imaging.NewCompression(o.Quality)
		if err != nil {
			return opts, err
		}
		opts.Compression = c
	}
	if o.Greyscale != nil {
		opts.Greyscale = *o.Greyscale
	}
	if o.AllowUpscale != nil {
		opts.AllowUpscale = *o.AllowUpscale
	}
	if o.ReferenceWidth != 0 || o.ReferenceHeight != 0 {
		ref := imaging.Size{Width: o.ReferenceWidth, Height: o.ReferenceHeight}
		if !ref.Valid() {
			return opts, fmt.Errorf("reference must be positive, got %s", ref)
		}
		opts.Reference = ref
	}
	return opts, nil
}

type imageNormalizeArgs struct {
	normalizeOverrides
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

// NormalizeResult is the encoded image plus the steps applied.
type NormalizeResult struct {
	*ImageResult
	Plan pipeline.Plan `json:"plan"`
}

func (s *Server) handleImageNormalize(args json.RawMessage) (interface{}, error) {
	var a imageNormalizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.apply(s.defaults)
	if err != nil {
		return nil, err
	}

	buf, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	out, plan, err := pipeline.New(opts, s.logger).Transform(buf)
	if err != nil {
		return nil, err
	}
	result, err := s.emit(out, opts.Compression.Value(), a.OutputPath)
	if err != nil {
		return nil, err
	}
	return &NormalizeResult{ImageResult: result, Plan: plan}, nil
}

type imageNormalizeBatchArgs struct {
	normalizeOverrides
	Paths     []string `json:"paths"`
	Directory string   `json:"directory"`
	Recursive bool     `json:"recursive"`
	OutputDir string   `json:"output_dir"`
	Workers   int      `json:"workers"`
}

func (s *Server) handleImageNormalizeBatch(args json.RawMessage) (interface{}, error) {
	var a imageNormalizeBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if (a.Directory == "") == (len(a.Paths) == 0) {
		return nil, fmt.Errorf("exactly one of directory or paths is required")
	}
	opts, err := a.apply(s.defaults)
	if err != nil {
		return nil, err
	}
	if a.OutputDir != "" {
		opts.OutputDir = a.OutputDir
	}

	n := pipeline.New(opts, s.logger)
	var report pipeline.Report
	if a.Directory != "" {
		report, err = n.NormalizeDir(context.Background(), a.Directory, a.Recursive, a.Workers)
		if err != nil {
			return nil, err
		}
	} else {
		report = n.NormalizeAll(context.Background(), a.Paths, a.Workers)
	}

	for _, r := range report.Succeeded {
		s.cache.Evict(r.Output)
	}
	return &report, nil
}

// === Analysis Handlers ===

type imageLightnessArgs struct {
	Path     string `json:"path"`
	Sections int    `json:"sections"`
}

// LightnessResult is a sections x sections grid of mean CIE L* values.
type LightnessResult struct {
	Sections int         `json:"sections"`
	Grid     [][]float64 `json:"grid"`
}

func (s *Server) handleImageLightness(args json.RawMessage) (interface{}, error) {
	var a imageLightnessArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Sections == 0 {
		a.Sections = imaging.DefaultLightnessSections
	}
	buf, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	grid, err := imaging.LightnessGrid(buf, a.Sections)
	if err != nil {
		return nil, err
	}
	return &LightnessResult{Sections: a.Sections, Grid: grid}, nil
}
