package server

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/afm-tools-mcp/internal/config"
	"github.com/ironsheep/afm-tools-mcp/internal/pipeline"
	"github.com/ironsheep/afm-tools-mcp/internal/store"
	"github.com/ironsheep/afm-tools-mcp/internal/testutil"
)

// createPitMap writes the single-pit scan to a temp text file and returns its path.
func createPitMap(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pit.txt")
	testutil.WriteMap(t, path, testutil.ScenarioPit())
	return path
}

// callTool issues a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unmarshals the text content of a successful tool response into v.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v (%v)", resp.Error.Message, resp.Error.Data)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}

	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result: %v\n%s", err, text)
	}
}

func TestHandleToolsCall_Load(t *testing.T) {
	s := newTestServer(t)
	path := createPitMap(t)

	resp := callTool(t, s, "afm_load", map[string]interface{}{"path": path})

	var info struct {
		Rows   int     `json:"rows"`
		Cols   int     `json:"cols"`
		Square bool    `json:"square"`
		Min    float64 `json:"min"`
		Max    float64 `json:"max"`
		Format string  `json:"format"`
	}
	decodeResult(t, resp, &info)

	if info.Rows != 100 || info.Cols != 100 {
		t.Errorf("dims: got %dx%d, want 100x100", info.Rows, info.Cols)
	}
	if !info.Square {
		t.Error("expected square map")
	}
	if info.Min != 10 || info.Max != 50 {
		t.Errorf("range: got [%v, %v], want [10, 50]", info.Min, info.Max)
	}
	if info.Format != "text" {
		t.Errorf("format: got %s, want text", info.Format)
	}
}

func TestHandleToolsCall_Flatten(t *testing.T) {
	s := newTestServer(t)
	path := createPitMap(t)

	resp := callTool(t, s, "afm_flatten", map[string]interface{}{"path": path})

	var res FlattenResult
	decodeResult(t, resp, &res)

	if res.Cropped {
		t.Error("square map should not be cropped")
	}
	// The pit covers roughly pi*10^2 samples.
	if res.MaskedPixels < 200 || res.MaskedPixels > 600 {
		t.Errorf("MaskedPixels: got %d, want about 314", res.MaskedPixels)
	}
	if math.Abs(res.After.Max) > 1e-9 {
		t.Errorf("flattened background: got %v, want 0", res.After.Max)
	}
	if math.Abs(res.After.Min+40) > 1e-9 {
		t.Errorf("flattened pit floor: got %v, want -40", res.After.Min)
	}
}

func TestHandleToolsCall_DetectBlobs(t *testing.T) {
	s := newTestServer(t)
	path := createPitMap(t)

	resp := callTool(t, s, "afm_detect_blobs", map[string]interface{}{"path": path})

	var res BlobsResult
	decodeResult(t, resp, &res)

	if res.Count == 0 || res.Count != len(res.Blobs) {
		t.Fatalf("Count: got %d with %d blobs", res.Count, len(res.Blobs))
	}
	largest := res.Blobs[0]
	for _, b := range res.Blobs {
		if b.Radius > largest.Radius {
			largest = b
		}
	}
	if abs(largest.Row-50) > 1 || abs(largest.Col-50) > 1 {
		t.Errorf("largest blob at (%d, %d), want near (50, 50)", largest.Row, largest.Col)
	}
}

func TestHandleToolsCall_DetectBlobsOverrides(t *testing.T) {
	s := newTestServer(t)
	path := createPitMap(t)

	resp := callTool(t, s, "afm_detect_blobs", map[string]interface{}{
		"path":      path,
		"detection": map[string]interface{}{"threshold": 100},
	})

	var res BlobsResult
	decodeResult(t, resp, &res)
	if res.Count != 0 {
		t.Errorf("Count: got %d, want 0 with a high threshold", res.Count)
	}
	if res.Blobs == nil {
		t.Error("Blobs should encode as an empty list")
	}

	resp = callTool(t, s, "afm_detect_blobs", map[string]interface{}{
		"path":      path,
		"detection": map[string]interface{}{"min_sigma": 5, "max_sigma": 2},
	})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("invalid overrides should fail with -32000, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_DetectHoles(t *testing.T) {
	s := newTestServer(t)
	path := createPitMap(t)

	resp := callTool(t, s, "afm_detect_holes", map[string]interface{}{
		"path":     path,
		"real_x":   0.2,
		"pixels_x": 100,
		"unit":     "um",
	})

	var res pipeline.Result
	decodeResult(t, resp, &res)

	if math.Abs(float64(res.Scale)-2) > 1e-9 {
		t.Errorf("Scale: got %v, want 2", res.Scale)
	}
	if len(res.Particles) != 1 {
		t.Fatalf("Particles: got %d, want 1", len(res.Particles))
	}
	p := res.Particles[0]
	if math.Abs(p.Diameter-40) > 4 {
		t.Errorf("Diameter: got %v, want about 40", p.Diameter)
	}
	if math.Abs(p.Depth+40) > 1 {
		t.Errorf("Depth: got %v, want about -40", p.Depth)
	}
	if res.OutputPath != "" {
		t.Errorf("OutputPath should be empty without write_output, got %s", res.OutputPath)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "Diam_Dep_pit.txt")); !os.IsNotExist(err) {
		t.Error("no table should be written without write_output")
	}
}

func TestHandleToolsCall_DetectHolesWritesTable(t *testing.T) {
	s := newTestServer(t)
	path := createPitMap(t)

	resp := callTool(t, s, "afm_detect_holes", map[string]interface{}{
		"path":         path,
		"write_output": true,
	})

	var res pipeline.Result
	decodeResult(t, resp, &res)

	want := filepath.Join(filepath.Dir(path), "Diam_Dep_pit.txt")
	if res.OutputPath != want {
		t.Errorf("OutputPath: got %s, want %s", res.OutputPath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("table not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 || len(strings.Fields(lines[0])) != 2 {
		t.Errorf("table: got %q, want one line with two columns", string(data))
	}
}

func TestHandleToolsCall_DetectHolesNoParticles(t *testing.T) {
	s := newTestServer(t)
	path := createPitMap(t)

	resp := callTool(t, s, "afm_detect_holes", map[string]interface{}{
		"path":      path,
		"detection": map[string]interface{}{"threshold": 100},
	})

	var raw map[string]interface{}
	decodeResult(t, resp, &raw)
	particles, ok := raw["particles"].([]interface{})
	if !ok {
		t.Fatalf("particles should be a list, got %#v", raw["particles"])
	}
	if len(particles) != 0 {
		t.Errorf("particles: got %d, want 0", len(particles))
	}
}

func TestHandleToolsCall_Scale(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want float64
		um   bool
	}{
		{"micrometers", map[string]interface{}{"real_x": 5, "pixels_x": 100, "unit": "um"}, 50, true},
		{"nanometers", map[string]interface{}{"real_x": 500, "pixels_x": 250}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res ScaleResult
			decodeResult(t, callTool(t, s, "afm_scale", tt.args), &res)
			if math.Abs(res.ScaleNMPerPx-tt.want) > 1e-12 {
				t.Errorf("scale: got %v, want %v", res.ScaleNMPerPx, tt.want)
			}
			if res.Micrometers != tt.um {
				t.Errorf("Micrometers: got %v, want %v", res.Micrometers, tt.um)
			}
		})
	}

	resp := callTool(t, s, "afm_scale", map[string]interface{}{"real_x": 5, "pixels_x": 0})
	if resp.Error == nil {
		t.Error("zero pixels should be rejected")
	}
}

func TestHandleToolsCall_Preview(t *testing.T) {
	s := newTestServer(t)
	path := createPitMap(t)

	resp := callTool(t, s, "afm_preview", map[string]interface{}{"path": path, "zoom": 2})

	var res PreviewResult
	decodeResult(t, resp, &res)

	if res.Width != 200 || res.Height != 200 {
		t.Errorf("size: got %dx%d, want 200x200", res.Width, res.Height)
	}
	if res.Format != "png" {
		t.Errorf("Format: got %s, want png", res.Format)
	}
	if res.Holes < 1 {
		t.Errorf("Holes: got %d, want at least 1", res.Holes)
	}
	if res.ImageBase64 == "" {
		t.Error("ImageBase64 is empty")
	}
}

func TestHandleToolsCall_RunsWithoutArchive(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "afm_runs", nil)
	if resp.Error == nil {
		t.Fatal("expected an error without an archive")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Code: got %d, want -32000", resp.Error.Code)
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "archive") {
		t.Errorf("Data: got %q, want mention of the archive", data)
	}
}

func TestHandleToolsCall_RunsWithArchive(t *testing.T) {
	archive, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer archive.Close()

	s := New(config.Default(), WithArchive(archive))
	path := createPitMap(t)

	var holes pipeline.Result
	decodeResult(t, callTool(t, s, "afm_detect_holes", map[string]interface{}{
		"path":         path,
		"write_output": true,
	}), &holes)

	var runs struct {
		Runs  []store.Run `json:"runs"`
		Count int         `json:"count"`
	}
	decodeResult(t, callTool(t, s, "afm_runs", map[string]interface{}{}), &runs)
	if runs.Count != 1 || len(runs.Runs) != 1 {
		t.Fatalf("runs: got %d, want 1", runs.Count)
	}
	if runs.Runs[0].ID != holes.RunID {
		t.Errorf("run ID: got %s, want %s", runs.Runs[0].ID, holes.RunID)
	}

	var particles struct {
		RunID string `json:"run_id"`
		Count int    `json:"count"`
	}
	decodeResult(t, callTool(t, s, "afm_runs", map[string]interface{}{"run_id": holes.RunID}), &particles)
	if particles.Count != 1 {
		t.Errorf("particles: got %d, want 1", particles.Count)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t)
	missing := filepath.Join(t.TempDir(), "missing.txt")

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"unknown tool", "image_load", map[string]interface{}{"path": missing}},
		{"load missing path", "afm_load", map[string]interface{}{}},
		{"load missing file", "afm_load", map[string]interface{}{"path": missing}},
		{"flatten missing file", "afm_flatten", map[string]interface{}{"path": missing}},
		{"holes missing path", "afm_detect_holes", map[string]interface{}{}},
		{"preview missing path", "afm_preview", map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected error response")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp == nil || resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Code: got %d, want -32602", resp.Error.Code)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
