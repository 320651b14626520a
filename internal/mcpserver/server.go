// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/run"
	"github.com/starford/othala/internal/storage"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	orch  *run.Orchestrator
}

// New creates a new MCP server with all Othala tools registered.
func New(store storage.Provider, orch *run.Orchestrator) *Server {
	s := &Server{store: store, orch: orch}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("scan_markers",
		mcp.WithDescription("List the media markers found in a note without resolving anything. "+
			"See the othala://marker-format resource for the marker syntax."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.scanMarkers)

	s.mcp.AddTool(mcp.NewTool("insert_images",
		mcp.WithDescription("Resolve every media marker in a note (or the whole vault), download "+
			"the assets, and rewrite the markers into image embeds. With apply=false this is a "+
			"dry run: nothing is downloaded or written, the report shows what would happen."),
		mcp.WithString("path", mcp.Description("Relative note path; empty processes the whole vault")),
		mcp.WithBoolean("apply", mcp.Description("Write changes (default false: dry run)")),
	), s.insertImages)

	s.mcp.AddTool(mcp.NewTool("fill_metadata",
		mcp.WithDescription("Complete frontmatter metadata for notes tagged with the completion tag "+
			"plus one content-type tag (book, movie, tv), then remove the completion tag. "+
			"With apply=false this is a dry run."),
		mcp.WithString("path", mcp.Description("Relative note path; empty processes the whole vault")),
		mcp.WithBoolean("apply", mcp.Description("Write changes (default false: dry run)")),
	), s.fillMetadata)

	// Resource: marker format contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://marker-format", "Marker Format",
			mcp.WithResourceDescription("Comment-marker syntax that Othala resolves into image embeds."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMarkerFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) scanMarkers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	markers, warnings, err := s.orch.Scan(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type markerInfo struct {
		Type  string `json:"type"`
		Query string `json:"query"`
		Alt   string `json:"alt,omitempty"`
	}
	type scanResult struct {
		Markers  []markerInfo `json:"markers"`
		Warnings []string     `json:"warnings,omitempty"`
	}

	res := scanResult{Markers: []markerInfo{}}
	for _, m := range markers {
		res.Markers = append(res.Markers, markerInfo{Type: m.Kind.Keyword(), Query: m.Query, Alt: m.Alt})
	}
	for _, w := range warnings {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", w.Reason, w.Raw))
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) insertImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	apply := req.GetBool("apply", false)

	report, err := s.orch.InsertImages(ctx, path, apply)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return reportResult(report), nil
}

func (s *Server) fillMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	apply := req.GetBool("apply", false)

	report, err := s.orch.FillMetadata(ctx, path, apply)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return reportResult(report), nil
}

func reportResult(report *models.Report) *mcp.CallToolResult {
	type summary struct {
		Applied int            `json:"applied"`
		Skipped int            `json:"skipped"`
		Failed  int            `json:"failed"`
		Entries []models.Entry `json:"entries"`
	}
	out, _ := json.MarshalIndent(summary{
		Applied: report.Applied(),
		Skipped: report.Skipped(),
		Failed:  report.Failed(),
		Entries: report.Entries,
	}, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) readMarkerFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://marker-format",
			MIMEType: "text/markdown",
			Text:     MarkerFormatContract,
		},
	}, nil
}
