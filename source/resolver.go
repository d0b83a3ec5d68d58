// Package source turns caller-supplied source references into document bytes.
//
// Information Hiding:
// - Sandbox, SSRF and download limits applied per variant, hidden from tools
// - Cache lookups for chained operations hidden behind the same Resolve call
package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/model"
	"github.com/richinex/pdfmcp/security"
	"github.com/richinex/pdfmcp/storage"
)

// headerWindow is how far into the data the %PDF- marker may appear.
const headerWindow = 1024

// Resolver resolves SourceRefs. It is safe for concurrent use.
type Resolver struct {
	sandbox    *security.Sandbox
	downloader *Downloader
	cache      *storage.Cache
	checkPDF   bool
	logger     zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithoutPDFCheck disables the %PDF header check.
func WithoutPDFCheck() Option {
	return func(r *Resolver) { r.checkPDF = false }
}

// NewResolver creates a resolver.
func NewResolver(sandbox *security.Sandbox, downloader *Downloader, cache *storage.Cache, logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		sandbox:    sandbox,
		downloader: downloader,
		cache:      cache,
		checkPDF:   true,
		logger:     logger.With().Str("component", "resolver").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve dispatches on the populated variant of ref. The returned bytes are
// owned by the caller.
func (r *Resolver) Resolve(ctx context.Context, ref model.SourceRef) (model.ResolvedSource, error) {
	var (
		data []byte
		err  error
	)
	kind := ref.Kind()
	switch kind {
	case model.SourcePath:
		data, err = r.readPath(ref.Path)
	case model.SourceInline:
		data, err = decodeInline(ref.Base64)
	case model.SourceURL:
		data, err = r.downloader.Fetch(ctx, ref.URL)
	case model.SourceCache:
		data, err = r.cache.Lookup(ref.CacheKey)
	default:
		err = apperrors.New(apperrors.KindInvalidArgument, "source must set exactly one of path, url, base64, cache_key")
	}
	if err != nil {
		return model.ResolvedSource{}, err
	}

	if r.checkPDF && kind != model.SourceCache && !looksLikePDF(data) {
		return model.ResolvedSource{}, apperrors.Newf(apperrors.KindInvalidPDF, "missing PDF header", "source=%s", ref.DisplayName())
	}

	r.logger.Debug().
		Str("kind", kind.String()).
		Str("source", ref.DisplayName()).
		Int("bytes", len(data)).
		Msg("resolved source")

	return model.ResolvedSource{Data: data, DisplayName: ref.DisplayName()}, nil
}

// Remember stores data in the cache and returns its key.
func (r *Resolver) Remember(data []byte) (string, error) {
	return r.cache.Store(data)
}

// Cache returns the cache used for cache_key sources.
func (r *Resolver) Cache() *storage.Cache {
	return r.cache
}

func (r *Resolver) readPath(path string) ([]byte, error) {
	resolved, err := r.sandbox.ValidateRead(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fileError(path, err)
	}
	if info.IsDir() {
		return nil, apperrors.Newf(apperrors.KindIO, "path is a directory", "path=%s", path)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fileError(path, err)
	}
	return data, nil
}

func fileError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.Newf(apperrors.KindNotFound, "file not found", "path=%s", path)
	}
	if errors.Is(err, fs.ErrPermission) {
		return &apperrors.Error{Kind: apperrors.KindIO, Message: "permission denied", Detail: "path=" + path, Err: err}
	}
	return &apperrors.Error{Kind: apperrors.KindIO, Message: "read failed", Detail: "path=" + path, Err: err}
}

func decodeInline(encoded string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, encoded)
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecode, "invalid base64 data", err)
	}
	return data, nil
}

func looksLikePDF(data []byte) bool {
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	return bytes.Contains(window, []byte("%PDF-"))
}
