package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/geochange/landchange/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	session Session
}

// statusResult is the payload of get_status.
type statusResult struct {
	Initialized bool                `json:"initialized"`
	Summary     *schema.InitSummary `json:"summary,omitempty"`
}

func (h *toolHandler) handleInitialize(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := h.session.Initialize(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("initialization failed: %v", err)), nil
	}
	return jsonResult(summary)
}

func (h *toolHandler) handleGetStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := statusResult{Initialized: h.session.Initialized()}
	if summary, err := h.session.Summary(); err == nil {
		res.Summary = &summary
	}
	return jsonResult(res)
}

func (h *toolHandler) handleGetAreas(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	year, err := yearArg(request, "year")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	areas, err := h.session.Areas(year)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("areas unavailable: %v", err)), nil
	}
	return jsonResult(areas)
}

func (h *toolHandler) handleGetChangeMatrix(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := yearArg(request, "year_from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := yearArg(request, "year_to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := h.session.ChangeMatrix(ctx, from, to)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("change detection failed: %v", err)), nil
	}
	return jsonResult(m)
}

func (h *toolHandler) handleGetIndices(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	year, err := yearArg(request, "year")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	indices, err := h.session.Indices(year)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("indices unavailable: %v", err)), nil
	}
	return jsonResult(indices)
}

func (h *toolHandler) handleGetClimate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	year, err := yearArg(request, "year")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	climate, err := h.session.Climate(year)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("climate unavailable: %v", err)), nil
	}
	return jsonResult(climate)
}

func (h *toolHandler) handleGetReport(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := h.session.Report(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report failed: %v", err)), nil
	}
	return jsonResult(report)
}

// yearArg reads and validates a numeric year argument.
func yearArg(request mcp.CallToolRequest, name string) (schema.AnalysisYear, error) {
	raw := request.GetInt(name, 0)
	if raw == 0 {
		return 0, fmt.Errorf("%s is required", name)
	}
	return schema.ValidateYear(raw)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
