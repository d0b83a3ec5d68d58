package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/pdfmcp/engine"
	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/security"
	"github.com/richinex/pdfmcp/source"
	"github.com/richinex/pdfmcp/storage"
)

type testEnv struct {
	env        *Env
	dispatcher *Dispatcher
	root       string
}

// newTestEnv builds a full tool stack. With sandboxed set, reads and writes
// are confined to a fresh temp directory.
func newTestEnv(t *testing.T, sandboxed bool) testEnv {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	var roots []string
	if sandboxed {
		roots = []string{root}
	}
	sandbox, err := security.NewSandbox(roots)
	require.NoError(t, err)

	cache := storage.NewCache(storage.DefaultOptions(), zerolog.Nop())
	downloader := source.NewDownloader(security.NewGuard(false), source.DownloadOptions{}, zerolog.Nop())
	env := &Env{
		Resolver:     source.NewResolver(sandbox, downloader, cache, zerolog.Nop()),
		Cache:        cache,
		Engine:       engine.NewService(engine.NewPDFCPU(), engine.NewPool(2)),
		Sandbox:      sandbox,
		BatchWorkers: 2,
		Logger:       zerolog.Nop(),
	}
	registry, err := NewPDFRegistry(env)
	require.NoError(t, err)
	return testEnv{
		env:        env,
		dispatcher: NewDispatcher(registry, DefaultToolConfig(), zerolog.Nop()),
		root:       root,
	}
}

func (e testEnv) call(t *testing.T, name string, args any) ToolResult {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return e.dispatcher.Call(context.Background(), name, raw)
}

func decodeOutput(t *testing.T, res ToolResult, v any) {
	t.Helper()
	require.NoError(t, res.Error, "tool failed: %s", apperrors.ClientMessage(res.Error))
	require.NoError(t, json.Unmarshal([]byte(res.Output), v))
}

type panicTool struct{ BaseTool }

func (panicTool) Metadata() ToolMetadata { return ToolMetadata{Name: "panics"} }
func (panicTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	panic("boom")
}

type slowTool struct{ BaseTool }

func (slowTool) Metadata() ToolMetadata { return ToolMetadata{Name: "slow"} }
func (slowTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	<-ctx.Done()
	return ToolResult{}, ctx.Err()
}

type bareErrorTool struct{ BaseTool }

func (bareErrorTool) Metadata() ToolMetadata { return ToolMetadata{Name: "bare"} }
func (bareErrorTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	return FailureResult(assert.AnError), nil
}

func TestRegistryHoldsEveryPDFTool(t *testing.T) {
	te := newTestEnv(t, false)
	reg := te.dispatcher.Registry()

	assert.Equal(t, []string{
		"cache_stats", "compress_pdf", "extract_annotations", "extract_form_fields",
		"extract_links", "extract_metadata", "extract_outline", "fill_form",
		"get_page_count", "get_page_info", "list_pdfs", "merge_pdfs",
		"protect_pdf", "select_pages", "split_pdf", "unprotect_pdf",
	}, reg.Names())

	err := reg.Register(NewCacheStatsTool(te.env))
	assert.Error(t, err)

	list := reg.List()
	require.Len(t, list, 16)
	assert.Equal(t, "cache_stats", list[0].Name)

	desc := reg.Description()
	assert.Contains(t, desc, "Tool: split_pdf (produces output)")
	assert.Contains(t, desc, "Tool: get_page_info (read-only)")
	assert.Contains(t, desc, "  - sources <sources, required>")
}

type unnamedTool struct{ BaseTool }

func (unnamedTool) Metadata() ToolMetadata { return ToolMetadata{} }
func (unnamedTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	return ToolResult{}, nil
}

func TestRegistryRegisterIsAllOrNothing(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(slowTool{}, unnamedTool{})
	require.EqualError(t, err, "tool has no name")
	assert.Empty(t, reg.Names())

	err = reg.Register(slowTool{}, panicTool{}, slowTool{})
	require.EqualError(t, err, `tool "slow" listed twice`)
	assert.Empty(t, reg.Names())

	require.NoError(t, reg.Register(slowTool{}, panicTool{}))
	assert.Equal(t, []string{"panics", "slow"}, reg.Names())

	err = reg.Register(bareErrorTool{}, panicTool{})
	require.EqualError(t, err, `tool "panics" already registered`)
	_, ok := reg.Get("bare")
	assert.False(t, ok)

	names := reg.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"panics", "slow"}, reg.Names())
}

func TestDispatcherUnknownTool(t *testing.T) {
	te := newTestEnv(t, false)
	res := te.call(t, "nope", map[string]any{})
	require.Error(t, res.Error)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(res.Error))
}

func TestDispatcherValidationFailure(t *testing.T) {
	te := newTestEnv(t, false)

	res := te.call(t, "get_page_count", map[string]any{"sources": []any{}})
	require.Error(t, res.Error)
	assert.Equal(t, "invalid argument: sources must not be empty", apperrors.ClientMessage(res.Error))

	res = te.call(t, "get_page_count", map[string]any{
		"sources": []any{map[string]any{"path": "/a.pdf", "url": "https://example.com/a.pdf"}},
	})
	require.Error(t, res.Error)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(res.Error))

	res = te.dispatcher.Call(context.Background(), "get_page_count", json.RawMessage(`{"sources": 5}`))
	require.Error(t, res.Error)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(res.Error))
}

func TestDispatcherRecoversPanic(t *testing.T) {
	d := NewDispatcher(NewRegistry(), ToolConfig{}, zerolog.Nop())
	res := d.Execute(context.Background(), panicTool{}, nil)
	require.Error(t, res.Error)
	assert.Equal(t, apperrors.KindEngine, apperrors.KindOf(res.Error))
}

func TestDispatcherTimeout(t *testing.T) {
	d := NewDispatcher(NewRegistry(), ToolConfig{TimeoutSecs: 1}, zerolog.Nop())
	start := time.Now()
	res := d.Execute(context.Background(), slowTool{}, nil)
	require.Error(t, res.Error)
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(res.Error))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDispatcherCodesBareErrors(t *testing.T) {
	d := NewDispatcher(NewRegistry(), ToolConfig{}, zerolog.Nop())
	res := d.Execute(context.Background(), bareErrorTool{}, nil)
	require.Error(t, res.Error)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(res.Error))
	assert.Equal(t, "internal error", apperrors.ClientMessage(res.Error))
}

func TestToolResultMarshalSanitizes(t *testing.T) {
	res := FailureResult(apperrors.Newf(apperrors.KindNotFound, "file not found", "path=%s", "/secret/dir/a.pdf"))
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "/secret")
	assert.JSONEq(t, `{"success":false,"kind":"not_found","error":"file not found"}`, string(data))

	data, err = json.Marshal(SuccessResult("ok"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"output":"ok"}`, string(data))
}

func TestToolConfigTimeout(t *testing.T) {
	var nilConfig *ToolConfig
	assert.Equal(t, DefaultToolTimeout*time.Second, nilConfig.Timeout())
	assert.Equal(t, 7*time.Second, (&ToolConfig{TimeoutSecs: 7}).Timeout())
}
