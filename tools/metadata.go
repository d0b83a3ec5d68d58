// Document inspection tools: metadata and page counts over many sources.

package tools

import (
	"context"
	"encoding/json"

	"github.com/richinex/pdfmcp/batch"
	"github.com/richinex/pdfmcp/model"
)

var sourcesParam = ToolParameter{
	Name:        "sources",
	ParamType:   ParamSources,
	Description: "PDF sources; each object sets exactly one of path, url, base64, cache_key",
	Required:    true,
	MinItems:    1,
}

var passwordParam = ToolParameter{
	Name:        "password",
	ParamType:   ParamString,
	Description: "Password for encrypted documents",
}

type multiSourceArgs struct {
	Sources  []model.SourceRef `json:"sources"`
	Password string            `json:"password"`
	Cache    bool              `json:"cache"`
}

// ExtractMetadataTool reports document information for each source.
type ExtractMetadataTool struct {
	env *Env
}

// NewExtractMetadataTool creates the extract_metadata tool.
func NewExtractMetadataTool(env *Env) *ExtractMetadataTool {
	return &ExtractMetadataTool{env: env}
}

func (t *ExtractMetadataTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "extract_metadata",
		Description: "Extract title, author, subject, dates and page count from one or more PDFs. Sources are processed concurrently; one failing source does not affect the others.",
		Parameters: []ToolParameter{
			sourcesParam,
			passwordParam,
			cacheParam,
		},
		ReadOnly: true,
	}
}

func (t *ExtractMetadataTool) Validate(args json.RawMessage) error {
	var a multiSourceArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	return t.env.checkSources(a.Sources, 1)
}

type metadataResult struct {
	Source string `json:"source"`
	model.DocumentInfo
	CacheKey string `json:"cache_key,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (t *ExtractMetadataTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a multiSourceArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}

	outcomes := batch.Map(ctx, t.env.batchWorkers(), a.Sources, func(ctx context.Context, ref model.SourceRef) (metadataResult, error) {
		resolved, err := t.env.Resolver.Resolve(ctx, ref)
		if err != nil {
			return metadataResult{}, err
		}
		info, err := t.env.Engine.Info(ctx, resolved.Data, a.Password)
		if err != nil {
			return metadataResult{}, err
		}
		res := metadataResult{Source: resolved.DisplayName, DocumentInfo: info}
		if res.CacheKey, err = t.env.rememberSource(ref, resolved, a.Cache); err != nil {
			return metadataResult{}, err
		}
		return res, nil
	})

	results := make([]metadataResult, len(outcomes))
	for i, o := range outcomes {
		if o.OK() {
			results[i] = o.Value
			continue
		}
		results[i] = metadataResult{
			Source: a.Sources[i].DisplayName(),
			Error:  t.env.clientError("extract_metadata", a.Sources[i], o.Err),
		}
	}
	return JSONResult(map[string]any{"results": results}), nil
}

// PageCountTool reports the page count of each source.
type PageCountTool struct {
	env *Env
}

// NewPageCountTool creates the get_page_count tool.
func NewPageCountTool(env *Env) *PageCountTool {
	return &PageCountTool{env: env}
}

func (t *PageCountTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "get_page_count",
		Description: "Return the number of pages of one or more PDFs.",
		Parameters:  []ToolParameter{sourcesParam, passwordParam},
		ReadOnly:    true,
	}
}

func (t *PageCountTool) Validate(args json.RawMessage) error {
	var a multiSourceArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	return t.env.checkSources(a.Sources, 1)
}

type pageCountResult struct {
	Source    string `json:"source"`
	PageCount int    `json:"page_count"`
	Error     string `json:"error,omitempty"`
}

func (t *PageCountTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a multiSourceArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}

	outcomes := batch.Map(ctx, t.env.batchWorkers(), a.Sources, func(ctx context.Context, ref model.SourceRef) (int, error) {
		resolved, err := t.env.Resolver.Resolve(ctx, ref)
		if err != nil {
			return 0, err
		}
		return t.env.Engine.PageCount(ctx, resolved.Data, a.Password)
	})

	results := make([]pageCountResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = pageCountResult{Source: a.Sources[i].DisplayName(), PageCount: o.Value}
		if !o.OK() {
			results[i].Error = t.env.clientError("get_page_count", a.Sources[i], o.Err)
		}
	}
	return JSONResult(map[string]any{"results": results}), nil
}
