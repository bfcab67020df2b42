package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"afm_load",
		"afm_flatten",
		"afm_detect_blobs",
		"afm_detect_holes",
		"afm_scale",
		"afm_preview",
		"afm_runs",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("Duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("Tool count: got %d, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	tools := GetToolDefinitions()

	for _, tool := range tools {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Name == "" {
				t.Error("Tool name is empty")
			}
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema == nil {
				t.Fatal("Tool InputSchema is nil")
			}

			if schemaType := tool.InputSchema["type"]; schemaType != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", schemaType)
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			// Every required parameter must be declared.
			if required, ok := tool.InputSchema["required"].([]string); ok {
				for _, name := range required {
					if _, ok := props[name]; !ok {
						t.Errorf("required parameter %s has no property", name)
					}
				}
			}
		})
	}
}

func TestToolDefinitions_Required(t *testing.T) {
	tests := []struct {
		tool     string
		required []string
	}{
		{"afm_load", []string{"path"}},
		{"afm_flatten", []string{"path"}},
		{"afm_detect_blobs", []string{"path"}},
		{"afm_detect_holes", []string{"path"}},
		{"afm_scale", []string{"real_x", "pixels_x"}},
		{"afm_preview", []string{"path"}},
		{"afm_runs", nil},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			tool, ok := toolMap[tt.tool]
			if !ok {
				t.Fatalf("Tool %s not found", tt.tool)
			}

			got, _ := tool.InputSchema["required"].([]string)
			if len(got) != len(tt.required) {
				t.Fatalf("required: got %v, want %v", got, tt.required)
			}
			for i := range got {
				if got[i] != tt.required[i] {
					t.Errorf("required[%d]: got %s, want %s", i, got[i], tt.required[i])
				}
			}
		})
	}
}

func TestToolDefinitions_DetectionOverrides(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name != "afm_detect_blobs" && tool.Name != "afm_detect_holes" {
			continue
		}

		props := tool.InputSchema["properties"].(map[string]interface{})
		detection, ok := props["detection"].(map[string]interface{})
		if !ok {
			t.Fatalf("%s: missing detection property", tool.Name)
		}

		fields := detection["properties"].(map[string]interface{})
		for _, name := range []string{"min_sigma", "max_sigma", "num_sigma", "threshold", "overlap"} {
			if _, ok := fields[name]; !ok {
				t.Errorf("%s: detection.%s not declared", tool.Name, name)
			}
		}
	}
}

func TestToolDefinitions_OptionalDefaults(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"afm_detect_holes": {
			"unit":         "nm",
			"write_output": false,
		},
		"afm_preview": {
			"zoom": 1,
		},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for toolName, defaults := range tests {
		tool, ok := toolMap[toolName]
		if !ok {
			t.Errorf("Tool %s not found", toolName)
			continue
		}

		props := tool.InputSchema["properties"].(map[string]interface{})
		for paramName, want := range defaults {
			param, ok := props[paramName].(map[string]interface{})
			if !ok {
				t.Errorf("%s: param %s not found", toolName, paramName)
				continue
			}
			if got := param["default"]; got != want {
				t.Errorf("%s.%s: default got %v, want %v", toolName, paramName, got, want)
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
	}

	resp := s.handleToolsList(req)

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}

	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}

	expected := GetToolDefinitions()
	if len(toolsList) != len(expected) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(expected))
	}
}
