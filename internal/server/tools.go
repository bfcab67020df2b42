package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to a height map: a text matrix (.txt, .csv, .dat, .asc) or a grayscale image",
}

var scanSizeProperties = map[string]interface{}{
	"real_x": map[string]interface{}{
		"type":        "number",
		"description": "Physical scan width. Omit to report diameters in pixels",
	},
	"pixels_x": map[string]interface{}{
		"type":        "integer",
		"description": "Samples across the scan width. Defaults to the map width",
	},
	"unit": map[string]interface{}{
		"type":        "string",
		"description": "Unit of real_x: \"um\" for micrometers, anything else is nanometers",
		"default":     "nm",
	},
}

var detectionProperty = map[string]interface{}{
	"type":        "object",
	"description": "Overrides for the blob detector and watershed; omitted fields keep the server configuration",
	"properties": map[string]interface{}{
		"min_sigma":         map[string]interface{}{"type": "number"},
		"max_sigma":         map[string]interface{}{"type": "number"},
		"num_sigma":         map[string]interface{}{"type": "integer"},
		"threshold":         map[string]interface{}{"type": "number"},
		"overlap":           map[string]interface{}{"type": "number"},
		"peak_radius":       map[string]interface{}{"type": "number"},
		"background_cutoff": map[string]interface{}{"type": "number"},
		"gradient_sigma":    map[string]interface{}{"type": "number"},
	},
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "afm_load",
			Description: "Load an AFM height map and return its dimensions, value range and whether it is square.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "afm_flatten",
			Description: "Remove per-line offsets from a height map while ignoring holes, and report how many samples were masked as holes and the value range before and after.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"margin": map[string]interface{}{
						"type":        "number",
						"description": "Added to the Otsu threshold before masking holes. Default from configuration (0.05)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "afm_detect_blobs",
			Description: "Flatten a height map and list the hole candidates found by the multi-scale Laplacian-of-Gaussian detector, with centre, sigma and radius in pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty,
					"detection": detectionProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "afm_detect_holes",
			Description: "Run the full hole measurement: flatten, segment, and measure every hole not touching the border. Returns diameters (nm) and depths, a summary, and optionally writes the Diam_Dep_<name>.txt table.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(scanSizeProperties, map[string]interface{}{
					"path":      pathProperty,
					"detection": detectionProperty,
					"write_output": map[string]interface{}{
						"type":        "boolean",
						"description": "Write the Diam_Dep table (and preview and archive record when configured). Default false",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "afm_scale",
			Description: "Convert a scan size into nanometers per pixel. A 5 um scan over 100 pixels is 50 nm/px.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": scanSizeProperties,
				"required":   []string{"real_x", "pixels_x"},
			},
		},
		{
			Name:        "afm_preview",
			Description: "Render the flattened height map with detected hole outlines as a base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"zoom": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels per sample. Default 1",
						"default":     1,
					},
					"contour_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color of hole outlines. Default #32cd32",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "afm_runs",
			Description: "List archived measurement runs, or the particles of one run when run_id is given. Requires a configured archive.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "Run to list particles for",
					},
				},
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
