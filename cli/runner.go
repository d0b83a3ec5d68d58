// Command execution for CLI commands.
//
// Information Hiding:
// - Component wiring (sandbox, guard, downloader, cache, engine, tools) hidden
// - Settings precedence (file, environment, flags) hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/richinex/pdfmcp/config"
	"github.com/richinex/pdfmcp/engine"
	"github.com/richinex/pdfmcp/internal/logging"
	"github.com/richinex/pdfmcp/mcp"
	"github.com/richinex/pdfmcp/pagerange"
	"github.com/richinex/pdfmcp/security"
	"github.com/richinex/pdfmcp/source"
	"github.com/richinex/pdfmcp/storage"
	"github.com/richinex/pdfmcp/tools"
)

// Options holds command-line overrides. Zero values leave the loaded
// settings untouched.
type Options struct {
	ConfigPath   string
	Roots        []string
	AllowPrivate *bool
	MaxDownload  int64
	CacheEntries int
	CacheBytes   int64
	LogLevel     string
	LogFile      string
}

// LoadSettings loads settings from file and environment, then applies opts.
func LoadSettings(opts Options) (config.Settings, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Settings{}, err
	}
	opts.apply(&settings)
	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

func (o Options) apply(s *config.Settings) {
	if len(o.Roots) > 0 {
		s.Security.Roots = o.Roots
	}
	if o.AllowPrivate != nil {
		s.Security.AllowPrivate = *o.AllowPrivate
	}
	if o.MaxDownload > 0 {
		s.Limits.MaxDownloadBytes = o.MaxDownload
	}
	if o.CacheEntries > 0 {
		s.Cache.MaxEntries = o.CacheEntries
	}
	if o.CacheBytes > 0 {
		s.Cache.MaxBytes = o.CacheBytes
	}
	if o.LogLevel != "" {
		s.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		s.Log.File = o.LogFile
	}
}

// App is a fully wired server.
type App struct {
	Settings   config.Settings
	Cache      *storage.Cache
	Dispatcher *tools.Dispatcher
	Server     *mcp.Server
}

// Build wires every component from settings.
func Build(settings config.Settings, logger zerolog.Logger) (*App, error) {
	sandbox, err := security.NewSandbox(settings.Security.Roots)
	if err != nil {
		return nil, fmt.Errorf("failed to configure sandbox: %w", err)
	}

	guard := security.NewGuard(settings.Security.AllowPrivate)
	downloader := source.NewDownloader(guard, source.DownloadOptions{
		MaxBytes:          settings.Limits.MaxDownloadBytes,
		Timeout:           settings.Limits.DownloadTimeout(),
		Attempts:          settings.Limits.DownloadAttempts,
		RequestsPerSecond: settings.Limits.DownloadRPS,
		Burst:             settings.Limits.DownloadBurst,
	}, logger)

	cache := storage.NewCache(storage.Options{
		MaxEntries: settings.Cache.MaxEntries,
		MaxBytes:   settings.Cache.MaxBytes,
	}, logger)

	env := &tools.Env{
		Resolver:     source.NewResolver(sandbox, downloader, cache, logger),
		Cache:        cache,
		Engine:       engine.NewService(engine.NewPDFCPU(), engine.NewPool(settings.Engine.Workers)),
		Sandbox:      sandbox,
		BatchWorkers: settings.Engine.BatchWorkers,
		Logger:       logger.With().Str("component", "tools").Logger(),
	}

	registry, err := tools.NewPDFRegistry(env)
	if err != nil {
		return nil, err
	}
	dispatcher := tools.NewDispatcher(registry, tools.ToolConfig{
		TimeoutSecs: uint64(settings.Limits.ToolTimeoutSecs),
	}, logger)

	// Resources are listed only from sandbox roots.
	var docs mcp.DocumentSource
	if sandbox.Enabled() {
		docs = tools.NewDocuments(env)
	}

	logger.Info().
		Strs("roots", sandbox.Roots()).
		Bool("allow_private", guard.AllowPrivate()).
		Int64("max_download_bytes", downloader.MaxBytes()).
		Int("cache_max_entries", settings.Cache.MaxEntries).
		Int64("cache_max_bytes", settings.Cache.MaxBytes).
		Int("engine_workers", env.Engine.Pool().Size()).
		Msg("server configured")
	if !sandbox.Enabled() {
		logger.Warn().Msg("no sandbox roots configured: every readable path is accessible")
	}

	return &App{
		Settings:   settings,
		Cache:      cache,
		Dispatcher: dispatcher,
		Server:     mcp.NewServer(settings.Server.Name, settings.Server.Version, dispatcher, docs, logger),
	}, nil
}

// Close releases cached documents.
func (a *App) Close() error {
	return a.Cache.Close()
}

// Serve runs the MCP server on in/out until in closes or the process is
// interrupted.
func Serve(ctx context.Context, opts Options, in io.Reader, out io.Writer) error {
	settings, err := LoadSettings(opts)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  settings.Log.Level,
		File:   settings.Log.File,
		Pretty: settings.Log.Pretty,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	app, err := Build(settings, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer func() { _ = app.Close() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = app.Server.Serve(ctx, in, out)
	logger.Info().Err(err).Msg("server stopped")
	return err
}

// ListTools prints every PDF tool. The verbose form adds parameters and
// marks tools that produce documents.
func ListTools(w io.Writer, verbose bool) error {
	registry, err := tools.NewPDFRegistry(&tools.Env{})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Available tools:")
	fmt.Fprintln(w)

	if verbose {
		fmt.Fprintln(w, registry.Description())
		return nil
	}
	for _, meta := range registry.List() {
		fmt.Fprintf(w, "  %s\n", meta.Name)
		fmt.Fprintf(w, "    %s\n", meta.Description)
		fmt.Fprintln(w)
	}
	return nil
}

// Pages prints the pages expr selects from a document of pageCount pages.
func Pages(w io.Writer, expr string, pageCount int) error {
	pages, err := pagerange.Select(expr, pageCount)
	if err != nil {
		return err
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprint(p)
	}
	fmt.Fprintf(w, "%s\n(%d pages)\n", strings.Join(parts, ","), len(pages))
	return nil
}
