// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the replay journal to LLM tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/legacygit/internal/apperr"
	"github.com/starford/legacygit/internal/journal"
)

const conventionsURI = "legacygit://conventions"

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp     *server.MCPServer
	journal journal.Journal
}

// New creates a new MCP server with all tools registered.
func New(j journal.Journal, version string) *Server {
	s := &Server{journal: j}

	s.mcp = server.NewMCPServer(
		"legacygit",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("run_status",
		mcp.WithDescription("Status and counters of the last replay run."),
	), s.runStatus)

	s.mcp.AddTool(mcp.NewTool("list_chains",
		mcp.WithDescription("List the lineage chains of the last replay with their root, head and branch."),
	), s.listChains)

	s.mcp.AddTool(mcp.NewTool("list_commits",
		mcp.WithDescription("List replayed records in replay order, committed or skipped."),
		mcp.WithNumber("chain", mcp.Description("Only this chain index (omit for all chains)")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 100)")),
		mcp.WithNumber("offset", mcp.Description("Rows to skip")),
	), s.listCommits)

	s.mcp.AddTool(mcp.NewTool("lookup_reference",
		mcp.WithDescription("Find the git commit a version reference was replayed as."),
		mcp.WithString("reference", mcp.Required(), mcp.Description("Version reference, e.g. PRJ-2023-014")),
	), s.lookupReference)

	s.mcp.AddTool(mcp.NewTool("get_conventions",
		mcp.WithDescription("Returns how branches, commits and tags are laid out in the replayed repository."),
	), s.getConventions)

	s.mcp.AddResource(
		mcp.NewResource(conventionsURI, "History Conventions",
			mcp.WithResourceDescription("Branch, commit and tag layout of the replayed repository."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionsResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) runStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.journal.LastRun()
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultText("no replay has run yet"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(run), nil
}

func (s *Server) listChains(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chains, err := s.journal.ListChains()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(chains) == 0 {
		return mcp.NewToolResultText("no chains recorded"), nil
	}
	return jsonResult(chains), nil
}

func (s *Server) listCommits(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chain := req.GetInt("chain", -1)
	limit := req.GetInt("limit", 100)
	offset := req.GetInt("offset", 0)

	rows, total, err := s.journal.ListCommits(chain, limit, offset)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if rows == nil {
		rows = []journal.CommitRow{}
	}
	return jsonResult(map[string]any{"commits": rows, "total": total}), nil
}

func (s *Server) lookupReference(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("reference")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := s.journal.Lookup(ref)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not replayed: %s", ref)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(row), nil
}

func (s *Server) getConventions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(HistoryConventions), nil
}

func (s *Server) readConventionsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionsURI,
			MIMEType: "text/markdown",
			Text:     HistoryConventions,
		},
	}, nil
}
