package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ironsheep/afm-tools-mcp/internal/detection"
	"github.com/ironsheep/afm-tools-mcp/internal/flatten"
	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
	"github.com/ironsheep/afm-tools-mcp/internal/imaging"
	"github.com/ironsheep/afm-tools-mcp/internal/measure"
	"github.com/ironsheep/afm-tools-mcp/internal/pipeline"
	"github.com/ironsheep/afm-tools-mcp/internal/render"
)

// errNoArchive is returned by afm_runs when no archive is configured.
var errNoArchive = errors.New("no archive configured (set archive.path or AFM_MCP_ARCHIVE)")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "afm_load", "afm_detect_holes").
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	case "afm_load":
		return s.handleLoad(args)
	case "afm_flatten":
		return s.handleFlatten(args)
	case "afm_detect_blobs":
		return s.handleDetectBlobs(args)
	case "afm_detect_holes":
		return s.handleDetectHoles(ctx, args)
	case "afm_scale":
		return s.handleScale(args)
	case "afm_preview":
		return s.handlePreview(ctx, args)
	case "afm_runs":
		return s.handleRuns(ctx, args)
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

// loadSquare loads path through the cache and crops it to a square.
func (s *Server) loadSquare(path string) (heightmap.HeightMap, bool, error) {
	if path == "" {
		return heightmap.HeightMap{}, false, errors.New("path is required")
	}
	h, err := s.cache.Load(path)
	if err != nil {
		return heightmap.HeightMap{}, false, err
	}
	if h.IsSquare() {
		return h, false, nil
	}
	return h.Square(), true, nil
}

// detectionParams applies JSON overrides on top of the configured parameters.
func (s *Server) detectionParams(raw json.RawMessage) (detection.Params, error) {
	p := s.cfg.Detection
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("detection: %w", err)
	}
	return p, p.Validate()
}

// === Height Map Information ===

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	return heightmap.LoadInfo(s.cache, a.Path)
}

// === Flattening ===

type flattenArgs struct {
	Path   string   `json:"path"`
	Margin *float64 `json:"margin"`
}

type valueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FlattenResult reports the effect of the line-flattening filter.
type FlattenResult struct {
	Rows           int        `json:"rows"`
	Cols           int        `json:"cols"`
	Cropped        bool       `json:"cropped"`
	Threshold      float64    `json:"threshold"`
	MaskedPixels   int        `json:"masked_pixels"`
	MaskedFraction float64    `json:"masked_fraction"`
	FallbackRows   int        `json:"fallback_rows"`
	Before         valueRange `json:"before"`
	After          valueRange `json:"after"`
}

func (s *Server) handleFlatten(args json.RawMessage) (interface{}, error) {
	var a flattenArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := s.cfg.FlattenOptions()
	if a.Margin != nil {
		opts.Margin = *a.Margin
	}

	h, cropped, err := s.loadSquare(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := flatten.FlattenWithOptions(h, opts)
	if err != nil {
		return nil, err
	}

	rows, cols := h.Dims()
	return &FlattenResult{
		Rows:           rows,
		Cols:           cols,
		Cropped:        cropped,
		Threshold:      res.Threshold,
		MaskedPixels:   res.MaskedPixels,
		MaskedFraction: float64(res.MaskedPixels) / float64(rows*cols),
		FallbackRows:   res.FallbackRows,
		Before:         valueRange{Min: h.Min(), Max: h.Max()},
		After:          valueRange{Min: res.Flattened.Min(), Max: res.Flattened.Max()},
	}, nil
}

// === Blob Detection ===

type detectArgs struct {
	Path      string          `json:"path"`
	Detection json.RawMessage `json:"detection"`
}

// BlobsResult lists the blobs found on a flattened map.
type BlobsResult struct {
	Blobs []detection.Blob `json:"blobs"`
	Count int              `json:"count"`
}

func (s *Server) handleDetectBlobs(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	params, err := s.detectionParams(a.Detection)
	if err != nil {
		return nil, err
	}

	h, _, err := s.loadSquare(a.Path)
	if err != nil {
		return nil, err
	}
	flat, err := flatten.FlattenWithOptions(h, s.cfg.FlattenOptions())
	if err != nil {
		return nil, err
	}
	eq, err := imaging.Equalize(imaging.FromHeightMap(flat.Flattened))
	if err != nil {
		return nil, err
	}

	blobs := detection.DetectBlobs(eq, params)
	if blobs == nil {
		blobs = []detection.Blob{}
	}
	return &BlobsResult{Blobs: blobs, Count: len(blobs)}, nil
}

// === Full Measurement ===

type detectHolesArgs struct {
	Path        string          `json:"path"`
	RealX       float64         `json:"real_x"`
	PixelsX     int             `json:"pixels_x"`
	Unit        string          `json:"unit"`
	Detection   json.RawMessage `json:"detection"`
	WriteOutput bool            `json:"write_output"`
}

func (s *Server) handleDetectHoles(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectHolesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	params, err := s.detectionParams(a.Detection)
	if err != nil {
		return nil, err
	}
	size := heightmap.ScanSize{RealX: a.RealX, PixelsX: a.PixelsX, Unit: a.Unit}

	runner := s.runner
	if len(a.Detection) > 0 {
		cfg := runner.Config()
		cfg.Detection = params
		runner = s.runnerFor(cfg)
	}

	var res *pipeline.Result
	if a.WriteOutput {
		res, err = runner.MeasureFile(ctx, a.Path, size)
	} else {
		var h heightmap.HeightMap
		h, err = s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(a.Path), filepath.Ext(a.Path))
		res, err = runner.Run(ctx, pipeline.Input{Name: name, Map: h, Size: size})
	}
	if err != nil {
		return nil, err
	}
	if res.Particles == nil {
		res.Particles = []measure.Particle{}
	}
	return res, nil
}

// === Unit Conversion ===

type scaleArgs struct {
	RealX   float64 `json:"real_x"`
	PixelsX int     `json:"pixels_x"`
	Unit    string  `json:"unit"`
}

// ScaleResult is the outcome of a unit conversion.
type ScaleResult struct {
	ScaleNMPerPx float64 `json:"scale_nm_per_px"`
	Micrometers  bool    `json:"micrometers"`
}

func (s *Server) handleScale(args json.RawMessage) (interface{}, error) {
	var a scaleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	scale, err := heightmap.NewScaleFactor(a.RealX, a.PixelsX, a.Unit)
	if err != nil {
		return nil, err
	}
	return &ScaleResult{ScaleNMPerPx: float64(scale), Micrometers: heightmap.IsMicrometers(a.Unit)}, nil
}

// === Preview ===

type previewArgs struct {
	Path         string `json:"path"`
	Zoom         int    `json:"zoom"`
	ContourColor string `json:"contour_color"`
}

// PreviewResult carries a rendered preview.
type PreviewResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Format      string `json:"format"`
	Holes       int    `json:"holes"`
	ImageBase64 string `json:"image_base64"`
}

func (s *Server) handlePreview(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a previewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	h, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.runner.Run(ctx, pipeline.Input{Name: filepath.Base(a.Path), Map: h})
	if err != nil {
		return nil, err
	}

	img, err := render.Preview(res.Flattened, res.Labels, render.Options{Zoom: a.Zoom, ContourColor: a.ContourColor})
	if err != nil {
		return nil, err
	}
	encoded, err := render.EncodeBase64(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &PreviewResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Format:      "png",
		Holes:       res.Labels.Count(),
		ImageBase64: encoded,
	}, nil
}

// === Archive ===

type runsArgs struct {
	RunID string `json:"run_id"`
}

func (s *Server) handleRuns(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a runsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.archive == nil {
		return nil, errNoArchive
	}
	if a.RunID != "" {
		particles, err := s.archive.Particles(ctx, a.RunID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"run_id": a.RunID, "particles": particles, "count": len(particles)}, nil
	}
	runs, err := s.archive.Runs(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"runs": runs, "count": len(runs)}, nil
}
