package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"batfit/internal/service"
	"batfit/pkg/fitness/chromosome"
)

// ToolDeps holds shared dependencies for MCP tool handlers
type ToolDeps struct {
	Service *service.Service
}

// HandleLoadCache replaces the reference dataset
func (d *ToolDeps) HandleLoadCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("vectors", "")
	chromoLen := request.GetInt("chromo_len", -1)
	dim := request.GetInt("dim", -1)

	vectors, err := parseFloats(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid vectors: %v", err)), nil
	}

	res, err := d.Service.LoadCache(vectors, chromoLen, dim)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load_cache failed: %v", err)), nil
	}
	return jsonResult(res)
}

// HandleEvaluateBatch scores a batch given as packed chunks or bit strings
func (d *ToolDeps) HandleEvaluateBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chromoLen := request.GetInt("chromo_len", -1)
	dim := request.GetInt("dim", -1)
	numBats := request.GetInt("num_bats", -1)

	var chunks []uint32
	var err error
	if bits := request.GetString("bits", ""); bits != "" {
		chunks, err = chromosome.PackStrings(splitList(bits), chromoLen)
	} else {
		chunks, err = parseChunks(request.GetString("chromosomes", ""))
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid batch: %v", err)), nil
	}

	res, err := d.Service.Evaluate(ctx, chunks, chromoLen, dim, numBats)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluate_batch failed: %v", err)), nil
	}
	return jsonResult(res)
}

// HandleCacheInfo describes the loaded dataset
func (d *ToolDeps) HandleCacheInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(d.Service.CacheInfo())
}

// HandleStats reports health together with the counters
func (d *ToolDeps) HandleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(struct {
		Health service.Health   `json:"health"`
		Stats  service.Snapshot `json:"stats"`
	}{d.Service.Health(), d.Service.Stats()})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseFloats(s string) ([]float32, error) {
	parts := splitList(s)
	out := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

func parseChunks(s string) ([]uint32, error) {
	parts := splitList(s)
	out := make([]uint32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		out[i] = uint32(v)
	}
	return out, nil
}
