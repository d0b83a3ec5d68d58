package tools

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/richinex/pdfmcp/batch"
	"github.com/richinex/pdfmcp/engine"
	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/model"
	"github.com/richinex/pdfmcp/security"
	"github.com/richinex/pdfmcp/source"
	"github.com/richinex/pdfmcp/storage"
)

// DefaultMaxSources caps the number of sources accepted by one call.
const DefaultMaxSources = 64

// Env is the set of services shared by every PDF tool.
type Env struct {
	Resolver     *source.Resolver
	Cache        *storage.Cache
	Engine       *engine.Service
	Sandbox      *security.Sandbox
	BatchWorkers int
	MaxSources   int
	Logger       zerolog.Logger
}

func (e *Env) batchWorkers() int {
	if e.BatchWorkers <= 0 {
		return batch.DefaultWorkers
	}
	return e.BatchWorkers
}

func (e *Env) maxSources() int {
	if e.MaxSources <= 0 {
		return DefaultMaxSources
	}
	return e.MaxSources
}

// checkSources validates a list of source references.
func (e *Env) checkSources(refs []model.SourceRef, min int) error {
	if len(refs) < min {
		if min == 1 {
			return invalidArg("sources must not be empty")
		}
		return invalidArg("at least %d sources are required", min)
	}
	if len(refs) > e.maxSources() {
		return invalidArg("at most %d sources are allowed per call", e.maxSources())
	}
	for i, ref := range refs {
		if err := ref.Validate(); err != nil {
			return invalidArg("sources[%d]: exactly one of path, url, base64, cache_key must be set", i)
		}
	}
	return nil
}

// clientError logs err with full detail and returns its sanitized message.
func (e *Env) clientError(tool string, src model.SourceRef, err error) string {
	e.Logger.Warn().
		Str("tool", tool).
		Str("source", src.DisplayName()).
		Str("kind", string(apperrors.KindOf(err))).
		Err(err).
		Msg("source failed")
	return apperrors.ClientMessage(err)
}

// outputInfo describes a produced document.
type outputInfo struct {
	CacheKey string `json:"output_cache_key,omitempty"`
	Digest   string `json:"output_digest,omitempty"`
	Size     int64  `json:"output_size"`
	Path     string `json:"output_path,omitempty"`
}

// storeOutput writes data to outputPath (when given) and inserts it into the
// cache. A document too large to cache is still delivered when it was written
// to disk.
func (e *Env) storeOutput(ctx context.Context, data []byte, outputPath string) (outputInfo, error) {
	out := outputInfo{Size: int64(len(data))}

	if outputPath != "" {
		written, err := e.writeOutput(outputPath, data)
		if err != nil {
			return outputInfo{}, err
		}
		out.Path = written
	}

	if err := ctx.Err(); err != nil {
		return outputInfo{}, err
	}

	key, err := e.Cache.Store(data)
	if err != nil {
		if out.Path == "" || !apperrors.Is(err, apperrors.KindCacheRejected) {
			return outputInfo{}, err
		}
		e.Logger.Warn().Str("path", out.Path).Int64("bytes", out.Size).Msg("output written but not cached")
		return out, nil
	}
	out.CacheKey = key
	if info, ok := e.Cache.Info(key); ok {
		out.Digest = info.Digest
	}
	return out, nil
}

func (e *Env) writeOutput(path string, data []byte) (string, error) {
	resolved, err := e.Sandbox.ValidateWrite(path)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(resolved, data, 0644); err != nil {
		return "", apperrors.Newf(apperrors.KindIO, "failed to write output", "path=%s err=%v", resolved, err)
	}
	e.Logger.Debug().Str("path", resolved).Int("bytes", len(data)).Msg("wrote output")
	return resolved, nil
}
