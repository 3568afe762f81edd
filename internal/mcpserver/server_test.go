package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/legacygit/internal/journal"
)

func testServer(t *testing.T, populate bool) *Server {
	t.Helper()
	db, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if populate {
		id, _ := db.BeginRun(time.Now())
		_ = db.RecordChain(id, journal.ChainRow{Index: 0, Root: "R1", Head: "R2-final", Length: 2, Branch: "R2-final"})
		_ = db.RecordChain(id, journal.ChainRow{Index: 1, Root: "R2", Head: "R3", Length: 2, Branch: "R3"})
		_ = db.RecordCommit(id, journal.CommitRow{Chain: 0, Position: 0, Reference: "R1", Status: journal.StatusCommitted, Commit: "c1"})
		_ = db.RecordCommit(id, journal.CommitRow{Chain: 0, Position: 1, Reference: "R2-final", Status: journal.StatusCommitted, Commit: "c2"})
		_ = db.RecordCommit(id, journal.CommitRow{Chain: 1, Position: 0, Reference: "R2", Status: journal.StatusSkipped, Commit: "c2"})
		_ = db.RecordCommit(id, journal.CommitRow{Chain: 1, Position: 1, Reference: "R3", Status: journal.StatusCommitted, Commit: "c3"})
		_ = db.FinishRun(id, journal.RunStats{Chains: 2, Commits: 3, Skipped: 1}, nil)
	}
	return New(db, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper; invoke handlers directly.
	var (
		result *mcp.CallToolResult
		err    error
	)
	switch name {
	case "run_status":
		result, err = srv.runStatus(ctx, req)
	case "list_chains":
		result, err = srv.listChains(ctx, req)
	case "list_commits":
		result, err = srv.listCommits(ctx, req)
	case "lookup_reference":
		result, err = srv.lookupReference(ctx, req)
	case "get_conventions":
		result, err = srv.getConventions(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestRunStatus(t *testing.T) {
	r := callTool(t, testServer(t, false), "run_status", nil)
	if resultText(r) != "no replay has run yet" {
		t.Errorf("empty status = %q", resultText(r))
	}

	r = callTool(t, testServer(t, true), "run_status", nil)
	var run journal.RunRow
	if err := json.Unmarshal([]byte(resultText(r)), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Status != journal.RunSucceeded || run.Commits != 3 {
		t.Errorf("run = %+v", run)
	}
}

func TestListChains(t *testing.T) {
	r := callTool(t, testServer(t, true), "list_chains", nil)
	var chains []journal.ChainRow
	if err := json.Unmarshal([]byte(resultText(r)), &chains); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(chains) != 2 || chains[1].Branch != "R3" {
		t.Errorf("chains = %+v", chains)
	}

	r = callTool(t, testServer(t, false), "list_chains", nil)
	if resultText(r) != "no chains recorded" {
		t.Errorf("empty = %q", resultText(r))
	}
}

func TestListCommits(t *testing.T) {
	srv := testServer(t, true)
	r := callTool(t, srv, "list_commits", map[string]any{"chain": float64(1)})
	var resp struct {
		Commits []journal.CommitRow `json:"commits"`
		Total   int                 `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || resp.Commits[0].Status != journal.StatusSkipped {
		t.Errorf("commits = %+v", resp)
	}

	r = callTool(t, srv, "list_commits", map[string]any{})
	if err := json.Unmarshal([]byte(resultText(r)), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 4 {
		t.Errorf("total = %d, want 4", resp.Total)
	}
}

func TestLookupReference(t *testing.T) {
	srv := testServer(t, true)
	r := callTool(t, srv, "lookup_reference", map[string]any{"reference": "R2"})
	if r.IsError {
		t.Fatalf("lookup failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"commit": "c2"`) {
		t.Errorf("lookup = %s", resultText(r))
	}

	r = callTool(t, srv, "lookup_reference", map[string]any{"reference": "R9"})
	if !r.IsError {
		t.Error("expected error for unknown reference")
	}
	r = callTool(t, srv, "lookup_reference", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing argument")
	}
}

func TestGetConventions(t *testing.T) {
	r := callTool(t, testServer(t, false), "get_conventions", nil)
	if !strings.Contains(resultText(r), "[<reference>] <comment>") {
		t.Error("conventions text missing commit message format")
	}
}
