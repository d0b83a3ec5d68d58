package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/richinex/pdfmcp/config"
	"github.com/richinex/pdfmcp/internal/testpdf"
)

func TestLoadSettingsAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "pdfmcp.yaml")
	if err := os.WriteFile(cfgPath, []byte("cache:\n  max_entries: 7\nlog:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	allow := true
	settings, err := LoadSettings(Options{
		ConfigPath:   cfgPath,
		Roots:        []string{dir},
		AllowPrivate: &allow,
		CacheBytes:   4096,
		LogLevel:     "debug",
	})
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if settings.Cache.MaxEntries != 7 {
		t.Errorf("expected file value 7 for max entries, got %d", settings.Cache.MaxEntries)
	}
	if settings.Cache.MaxBytes != 4096 {
		t.Errorf("expected flag value 4096 for max bytes, got %d", settings.Cache.MaxBytes)
	}
	if !settings.Security.AllowPrivate {
		t.Error("expected allow_private from flag")
	}
	if settings.Log.Level != "debug" {
		t.Errorf("expected flag to override log level, got %q", settings.Log.Level)
	}
	if len(settings.Security.Roots) != 1 || settings.Security.Roots[0] != dir {
		t.Errorf("unexpected roots: %v", settings.Security.Roots)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	if _, err := LoadSettings(Options{ConfigPath: filepath.Join(t.TempDir(), "absent.toml")}); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestBuildRejectsMissingRoot(t *testing.T) {
	settings := config.Default()
	settings.Security.Roots = []string{filepath.Join(t.TempDir(), "nope")}
	if _, err := Build(settings, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing sandbox root")
	}
}

func TestBuildWiresTools(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks failed: %v", err)
	}
	path, err := testpdf.WriteFile(root, "doc.pdf", 3)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	settings := config.Default()
	settings.Security.Roots = []string{root}
	app, err := Build(settings, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer app.Close()

	args, _ := json.Marshal(map[string]any{
		"sources": []any{map[string]any{"path": path}},
	})
	res := app.Dispatcher.Call(context.Background(), "get_page_count", args)
	if res.Error != nil {
		t.Fatalf("get_page_count failed: %v", res.Error)
	}
	if !strings.Contains(res.Output, `"page_count": 3`) {
		t.Errorf("unexpected output: %s", res.Output)
	}

	outside, _ := json.Marshal(map[string]any{
		"sources": []any{map[string]any{"path": "/etc/hosts"}},
	})
	res = app.Dispatcher.Call(context.Background(), "get_page_count", outside)
	if res.Error != nil {
		t.Fatalf("batch call should not fail as a whole: %v", res.Error)
	}
	if !strings.Contains(res.Output, "access denied") {
		t.Errorf("expected access denied in output: %s", res.Output)
	}
}

func TestListTools(t *testing.T) {
	var buf bytes.Buffer
	if err := ListTools(&buf, true); err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	out := buf.String()
	for _, name := range []string{"extract_metadata", "merge_pdfs", "list_pdfs", "cache_stats", "fill_form", "extract_links"} {
		if !strings.Contains(out, name) {
			t.Errorf("expected %s in listing", name)
		}
	}
	if !strings.Contains(out, "user_password <string, required>") {
		t.Errorf("expected required marker on user_password:\n%s", out)
	}
	if !strings.Contains(out, "Tool: fill_form (produces output)") {
		t.Errorf("expected fill_form marked as producing output:\n%s", out)
	}
}

func TestPages(t *testing.T) {
	var buf bytes.Buffer
	if err := Pages(&buf, "1-3,z", 10); err != nil {
		t.Fatalf("Pages failed: %v", err)
	}
	if got := buf.String(); got != "1,2,3,10\n(4 pages)\n" {
		t.Errorf("unexpected output %q", got)
	}

	if err := Pages(&buf, "12", 10); err == nil {
		t.Error("expected out-of-bounds error")
	}
}

func listResources(t *testing.T, app *App) map[string]any {
	t.Helper()
	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"resources/list","params":{}}`)
	raw, err := json.Marshal(app.Server.MCPServer().HandleMessage(context.Background(), msg))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var reply map[string]any
	if err := json.Unmarshal(raw, &reply); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return reply
}

func TestBuildResourcesFollowRoots(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks failed: %v", err)
	}
	if _, err := testpdf.WriteFile(root, "doc.pdf", 1); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	settings := config.Default()
	settings.Security.Roots = []string{root}
	app, err := Build(settings, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer app.Close()

	reply := listResources(t, app)
	result, ok := reply["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected a result, got %v", reply)
	}
	if listed, _ := result["resources"].([]any); len(listed) != 1 {
		t.Errorf("expected one resource, got %v", result["resources"])
	}

	unrooted, err := Build(config.Default(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer unrooted.Close()
	if reply := listResources(t, unrooted); reply["error"] == nil {
		t.Errorf("expected resources to be disabled without roots, got %v", reply)
	}
}
