// Cache Tools - expose the document cache to clients.

package tools

import (
	"context"
	"encoding/json"
)

// DefaultCacheStatsLimit bounds the entries listed by cache_stats.
const DefaultCacheStatsLimit = 20

// CacheStatsTool reports cache occupancy and the most recently used entries.
type CacheStatsTool struct {
	BaseTool
	env *Env
}

// NewCacheStatsTool creates the cache_stats tool.
func NewCacheStatsTool(env *Env) *CacheStatsTool {
	return &CacheStatsTool{env: env}
}

func (t *CacheStatsTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "cache_stats",
		Description: "Show cache occupancy, capacity, hit/miss counters and the most recently used entries (key, size, digest).",
		Parameters: []ToolParameter{
			{Name: "limit", ParamType: ParamInteger, Description: "Maximum entries to list (default: 20, 0 lists every entry)", Default: DefaultCacheStatsLimit},
		},
		ReadOnly: true,
	}
}

type cacheStatsArgs struct {
	Limit *int `json:"limit"`
}

func (t *CacheStatsTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a cacheStatsArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}

	limit := DefaultCacheStatsLimit
	if a.Limit != nil && *a.Limit >= 0 {
		limit = *a.Limit
	}
	return JSONResult(t.env.Cache.Stats(limit)), nil
}
