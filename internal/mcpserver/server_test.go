package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/othala/internal/assets"
	"github.com/starford/othala/internal/fill"
	"github.com/starford/othala/internal/provider"
	"github.com/starford/othala/internal/rewrite"
	"github.com/starford/othala/internal/run"
	"github.com/starford/othala/internal/storage"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	// No provider keys and no journal: these tests never touch the network.
	registry := provider.NewRegistry(
		provider.NewWikimedia(),
		provider.NewOpenLibrary(),
		provider.NewTMDB(""),
		provider.NewOpenAI(""),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assetStore := assets.NewStore(store, "attachments", false)
	writer := rewrite.NewWriter(store, ".backups")
	filler := fill.NewFiller(registry, assetStore, writer, "needsinfo", logger)
	orch := run.New(store, registry, assetStore, writer, filler, nil, logger)

	return New(store, orch), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "scan_markers":
		result, err = srv.scanMarkers(ctx, req)
	case "insert_images":
		result, err = srv.insertImages(ctx, req)
	case "fill_metadata":
		result, err = srv.fillMetadata(ctx, req)
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

func TestReadNote(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("test.md", []byte("# Test\nHello"))

	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "test.md"})
	if text := resultText(r); text != "# Test\nHello" {
		t.Errorf("read result = %q", text)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestScanMarkers(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("n.md", []byte("<!-- IMAGE: red fox | a fox -->\n<!-- NOPE: x -->\n"))

	r := callTool(t, srv, "scan_markers", map[string]interface{}{"path": "n.md"})
	text := resultText(r)
	for _, want := range []string{`"type": "IMAGE"`, `"query": "red fox"`, `"alt": "a fox"`, "unknown marker keyword"} {
		if !strings.Contains(text, want) {
			t.Errorf("scan result missing %q:\n%s", want, text)
		}
	}
}

func TestInsertImages_DryRunCleanNote(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("clean.md", []byte("# No markers here\n"))

	r := callTool(t, srv, "insert_images", map[string]interface{}{"path": "clean.md"})
	text := resultText(r)
	if !strings.Contains(text, `"applied": 0`) {
		t.Errorf("insert result = %q", text)
	}

	after, _ := store.Read("clean.md")
	if string(after) != "# No markers here\n" {
		t.Errorf("dry run modified note: %q", after)
	}
}

func TestFillMetadata_SkipsUntagged(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("plain.md", []byte("# Plain\n"))

	r := callTool(t, srv, "fill_metadata", map[string]interface{}{"path": "plain.md"})
	text := resultText(r)
	if !strings.Contains(text, `"skipped": 1`) {
		t.Errorf("fill result = %q", text)
	}
}
