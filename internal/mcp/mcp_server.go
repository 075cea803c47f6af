// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/geochange/landchange/core"
	"github.com/geochange/landchange/schema"
)

// Session is the subset of core.Session exposed as MCP tools.
type Session interface {
	Initialize(ctx context.Context) (schema.InitSummary, error)
	Initialized() bool
	Summary() (schema.InitSummary, error)
	Areas(year schema.AnalysisYear) (schema.AreaSummary, error)
	ChangeMatrix(ctx context.Context, from, to schema.AnalysisYear) (schema.ChangeMatrix, error)
	Indices(year schema.AnalysisYear) (schema.IndexResult, error)
	Climate(year schema.AnalysisYear) (schema.ClimateSummary, error)
	Report(ctx context.Context) (schema.Report, error)
}

var _ Session = (*core.Session)(nil) // Compile-time check

// NewMCPServer initializes and configures the land-cover MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(session Session) *server.MCPServer {
	s := server.NewMCPServer(
		"Landchange Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{session: session}
	yearDesc := "Analysis year (1995, 2005, 2015 or 2024)."

	// --- 1. Tool: initialize ---
	s.AddTool(mcp.NewTool("initialize",
		mcp.WithDescription("Run every per-year pipeline (composites, indices, classification, climate) and publish a new session."),
	), h.handleInitialize)

	// --- 2. Tool: get_status ---
	s.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Show whether a session is initialized and the per-stage status of every year."),
	), h.handleGetStatus)

	// --- 3. Tool: get_areas ---
	s.AddTool(mcp.NewTool("get_areas",
		mcp.WithDescription("Per-class land-cover area in km² for one year."),
		mcp.WithNumber("year", mcp.Description(yearDesc), mcp.Required()),
	), h.handleGetAreas)

	// --- 4. Tool: get_change_matrix ---
	s.AddTool(mcp.NewTool("get_change_matrix",
		mcp.WithDescription("Directed class-to-class transition areas in km² between two years."),
		mcp.WithNumber("year_from", mcp.Description(yearDesc), mcp.Required()),
		mcp.WithNumber("year_to", mcp.Description(yearDesc), mcp.Required()),
	), h.handleGetChangeMatrix)

	// --- 5. Tool: get_indices ---
	s.AddTool(mcp.NewTool("get_indices",
		mcp.WithDescription("Region means of the spectral indices (NDVI, EVI, NDWI, SAVI, NBR, BSI, NDBI, MNDWI) for one year."),
		mcp.WithNumber("year", mcp.Description(yearDesc), mcp.Required()),
	), h.handleGetIndices)

	// --- 6. Tool: get_climate ---
	s.AddTool(mcp.NewTool("get_climate",
		mcp.WithDescription("Mean daytime land surface temperature and total precipitation for one year."),
		mcp.WithNumber("year", mcp.Description(yearDesc), mcp.Required()),
	), h.handleGetClimate)

	// --- 7. Tool: get_report ---
	s.AddTool(mcp.NewTool("get_report",
		mcp.WithDescription("Comprehensive report: areas with percent change, significant transitions, indices and climate for every year."),
	), h.handleGetReport)

	return s
}

// StartMCPServer starts the land-cover MCP server on stdio.
func StartMCPServer(_ context.Context, session Session) error {
	s := NewMCPServer(session)
	return server.ServeStdio(s)
}
