// Package server implements the MCP (Model Context Protocol) server for the
// image normalizer.
//
// This package provides a JSON-RPC 2.0 server that exposes the load, resample,
// greyscale and re-encode pipeline through the MCP protocol.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata (size, format, DPI, HD fit)
//   - image_dimensions: Get width and height
//   - image_formats: List decodable extensions
//   - image_target_size: Fit a size within the reference without loading anything
//
// Transform Operations:
//   - image_resize: Bicubic resample to a size or to the reference
//   - image_greyscale: Luminance greyscale
//   - image_normalize: Fit, optional greyscale, JPEG re-encode
//   - image_normalize_batch: The same for many files or a directory
//
// Analysis:
//   - image_lightness: Grid of mean CIE L* lightness
//
// Transform tools return the JPEG as base64 in image_base64, or write it to
// output_path when one is given.
//
// # Image Caching
//
// The server keeps loaded images in an imaging.ImageCache keyed by path. No
// file handle is held, so a cached file may be overwritten; tools that write
// an output evict that path from the cache.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(server.Options{Logger: logger, Pipeline: opts})
//	if err := srv.Run(); err != nil {
//	    logger.Error("server error", "error", err)
//	}
package server
