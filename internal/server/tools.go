package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func qualityProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     1,
		"maximum":     100,
		"description": "JPEG quality 1-100. Default 95",
	}
}

func outputPathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Optional path to write the JPEG to. When omitted the image is returned as base64",
	}
}

// normalizeProperties are shared by image_normalize and image_normalize_batch.
func normalizeProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"quality": qualityProperty(),
		"greyscale": map[string]interface{}{
			"type":        "boolean",
			"description": "Convert to greyscale (0.30R + 0.59G + 0.11B). Defaults to the server setting",
		},
		"allow_upscale": map[string]interface{}{
			"type":        "boolean",
			"description": "Also scale images smaller than the reference up to it. Defaults to the server setting",
		},
		"reference_width": map[string]interface{}{
			"type":        "integer",
			"description": "Reference width. Default 1920",
		},
		"reference_height": map[string]interface{}{
			"type":        "integer",
			"description": "Reference height. Default 1080",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, pixel format, DPI, orientation and the size it would have when fitted within 1920x1080.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_formats",
			Description: "List the file extensions that can be decoded and whether JPEG encoding is available.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "image_target_size",
			Description: "Compute the largest size with the same aspect ratio that fits within the reference (1920x1080 unless given). No image is read.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Original width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Original height in pixels",
					},
					"reference_width": map[string]interface{}{
						"type":        "integer",
						"description": "Reference width. Default 1920",
					},
					"reference_height": map[string]interface{}{
						"type":        "integer",
						"description": "Reference height. Default 1080",
					},
				},
				"required": []string{"width", "height"},
			},
		},

		// Transform Operations
		{
			Name:        "image_resize",
			Description: "Resample an image with bicubic interpolation and return it as JPEG. Without width and height the image is fitted within the reference size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Target width. Must be given together with height",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Target height. Must be given together with width",
					},
					"quality":     qualityProperty(),
					"output_path": outputPathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_greyscale",
			Description: "Convert an image to greyscale, keeping alpha, and return it as JPEG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty(),
					"quality":     qualityProperty(),
					"output_path": outputPathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_normalize",
			Description: "Normalize one image: fit within the reference size if larger, optionally convert to greyscale, and re-encode as JPEG keeping the source DPI.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": normalizeProperties(map[string]interface{}{
					"path":        pathProperty(),
					"output_path": outputPathProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_normalize_batch",
			Description: "Normalize many images in parallel, writing <name>.jpg next to each source or into output_dir. Files that fail are reported and skipped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": normalizeProperties(map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Image files to normalize. Use either paths or directory",
					},
					"directory": map[string]interface{}{
						"type":        "string",
						"description": "Directory whose supported images are normalized",
					},
					"recursive": map[string]interface{}{
						"type":        "boolean",
						"description": "Include subdirectories of directory. Default false",
						"default":     false,
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for the results. Default is next to each source",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Parallel workers. Default is the number of CPUs",
					},
				}),
			},
		},

		// Analysis
		{
			Name:        "image_lightness",
			Description: "Split an image into a sections x sections grid and return the mean CIE L* lightness (0 black to 1 white) of each cell.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"sections": map[string]interface{}{
						"type":        "integer",
						"description": "Grid cells per side. Default 16",
						"default":     16,
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
