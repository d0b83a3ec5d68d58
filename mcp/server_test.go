package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/pdfmcp/engine"
	"github.com/richinex/pdfmcp/internal/testpdf"
	"github.com/richinex/pdfmcp/security"
	"github.com/richinex/pdfmcp/source"
	"github.com/richinex/pdfmcp/storage"
	"github.com/richinex/pdfmcp/tools"
)

func newTestEnv(t *testing.T, roots ...string) *tools.Env {
	t.Helper()
	sandbox, err := security.NewSandbox(roots)
	require.NoError(t, err)
	cache := storage.NewInMemoryCache()
	return &tools.Env{
		Resolver: source.NewResolver(sandbox,
			source.NewDownloader(security.NewGuard(false), source.DownloadOptions{}, zerolog.Nop()),
			cache, zerolog.Nop()),
		Cache:   cache,
		Engine:  engine.NewService(engine.NewPDFCPU(), engine.NewPool(1)),
		Sandbox: sandbox,
		Logger:  zerolog.Nop(),
	}
}

func newServerFor(t *testing.T, env *tools.Env, docs DocumentSource) *Server {
	t.Helper()
	registry, err := tools.NewPDFRegistry(env)
	require.NoError(t, err)
	return NewServer("pdfmcp-test", "0.0.0", tools.NewDispatcher(registry, tools.DefaultToolConfig(), zerolog.Nop()), docs, zerolog.Nop())
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newServerFor(t, newTestEnv(t), nil)
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *mcpgo.CallToolResult {
	t.Helper()
	registered, ok := s.MCPServer().ListTools()[name]
	require.True(t, ok, "tool %s not registered", name)
	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := registered.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcpgo.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcpgo.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServerRegistersEveryTool(t *testing.T) {
	s := newTestServer(t)
	assert.Len(t, s.MCPServer().ListTools(), 16)
}

func TestBuildToolSchema(t *testing.T) {
	s := newTestServer(t)
	split := s.MCPServer().ListTools()["split_pdf"].Tool

	assert.ElementsMatch(t, []string{"source", "pages"}, split.InputSchema.Required)
	src, ok := split.InputSchema.Properties["source"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", src["type"])
	assert.Contains(t, src["properties"], "cache_key")

	merge := s.MCPServer().ListTools()["merge_pdfs"].Tool
	sources, ok := merge.InputSchema.Properties["sources"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", sources["type"])
	assert.Equal(t, 2, sources["minItems"])

	stats := s.MCPServer().ListTools()["cache_stats"].Tool
	limit, ok := stats.InputSchema.Properties["limit"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "integer", limit["type"])

	protect := s.MCPServer().ListTools()["protect_pdf"].Tool
	perms, ok := protect.InputSchema.Properties["permissions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"all", "print", "none"}, perms["enum"])
	require.NotNil(t, protect.Annotations.ReadOnlyHint)
	assert.False(t, *protect.Annotations.ReadOnlyHint)

	fill := s.MCPServer().ListTools()["fill_form"].Tool
	assert.ElementsMatch(t, []string{"source", "field_values"}, fill.InputSchema.Required)
	values, ok := fill.InputSchema.Properties["field_values"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", values["type"])
	items, ok := values["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, items["required"])

	// Schemas must serialize for tools/list.
	_, err := json.Marshal(split)
	require.NoError(t, err)
}

func TestHandlerSuccess(t *testing.T) {
	s := newTestServer(t)
	res := callTool(t, s, "get_page_count", map[string]any{
		"sources": []any{map[string]any{"base64": testpdf.Base64(4)}},
	})
	assert.False(t, res.IsError)

	var out struct {
		Results []struct {
			PageCount int `json:"page_count"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, 4, out.Results[0].PageCount)
}

func TestHandlerReturnsSanitizedError(t *testing.T) {
	s := newTestServer(t)
	res := callTool(t, s, "split_pdf", map[string]any{
		"source": map[string]any{"path": "/definitely/not/here/secret.pdf"},
		"pages":  "1",
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "file not found", resultText(t, res))
}

func TestServeStopsAtEOF(t *testing.T) {
	s := newTestServer(t)
	in := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out bytes.Buffer

	done := make(chan error, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { done <- s.Serve(ctx, in, &out) }()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Contains(t, out.String(), `"id":1`)
	case <-ctx.Done():
		t.Fatal("Serve did not return")
	}
}
