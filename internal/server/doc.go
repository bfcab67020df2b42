// Package server implements the MCP (Model Context Protocol) server for AFM
// hole measurement.
//
// This package provides a JSON-RPC 2.0 server that exposes the height-map
// pipeline through the MCP protocol, so an MCP client can flatten scans,
// inspect detected holes and produce Diam_Dep result tables.
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
// Height maps:
//   - afm_load: Load a height map and report its size and value range
//   - afm_flatten: Line flattening with the hole mask statistics
//
// Detection and measurement:
//   - afm_detect_blobs: Multi-scale LoG hole candidates
//   - afm_detect_holes: Full measurement, optionally writing Diam_Dep_<name>.txt
//   - afm_scale: Scan size to nm per pixel
//
// Output:
//   - afm_preview: Flattened map with hole outlines as a base64 PNG
//   - afm_runs: Archived runs and their particles
//
// # Caching
//
// Loaded height maps are cached by path and reused across tool calls for the
// lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(cfg, server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
