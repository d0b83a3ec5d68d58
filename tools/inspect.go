// Structure inspection tools: page geometry, outlines, annotations and links.

package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/richinex/pdfmcp/batch"
	"github.com/richinex/pdfmcp/model"
	"github.com/richinex/pdfmcp/pagerange"
)

var cacheParam = ToolParameter{
	Name:        "cache",
	ParamType:   ParamBoolean,
	Description: "Store each document in the cache and return its cache_key for later calls",
	Default:     false,
}

var pageFilterParam = ToolParameter{
	Name:        "pages",
	ParamType:   ParamString,
	Description: "Optional page-range expression limiting which pages are reported, e.g. \"1-3\" or \"z\"",
}

// rememberSource returns a cache key for a resolved source when the caller
// asked for one. Cached sources keep their key.
func (e *Env) rememberSource(ref model.SourceRef, resolved model.ResolvedSource, want bool) (string, error) {
	if !want {
		return "", nil
	}
	if ref.Kind() == model.SourceCache {
		return ref.CacheKey, nil
	}
	return e.Resolver.Remember(resolved.Data)
}

type filteredArgs struct {
	Sources  []model.SourceRef `json:"sources"`
	Pages    string            `json:"pages"`
	Types    string            `json:"annotation_types"`
	Password string            `json:"password"`
	Cache    bool              `json:"cache"`
}

func (e *Env) validateFiltered(args json.RawMessage) (filteredArgs, error) {
	var a filteredArgs
	if err := decodeArgs(args, &a); err != nil {
		return a, err
	}
	if err := e.checkSources(a.Sources, 1); err != nil {
		return a, err
	}
	if strings.TrimSpace(a.Pages) != "" {
		if _, err := pagerange.Parse(a.Pages); err != nil {
			return a, err
		}
	}
	return a, nil
}

// pageFilter evaluates expr against the document; a blank expression keeps
// every page.
func (e *Env) pageFilter(ctx context.Context, data []byte, password, expr string) (func(int) bool, error) {
	if strings.TrimSpace(expr) == "" {
		return func(int) bool { return true }, nil
	}
	count, err := e.Engine.PageCount(ctx, data, password)
	if err != nil {
		return nil, err
	}
	pages, err := pagerange.Select(expr, count)
	if err != nil {
		return nil, err
	}
	keep := make(map[int]bool, len(pages))
	for _, p := range pages {
		keep[p] = true
	}
	return func(p int) bool { return keep[p] }, nil
}

// PageInfoTool reports per-page geometry.
type PageInfoTool struct {
	env *Env
}

// NewPageInfoTool creates the get_page_info tool.
func NewPageInfoTool(env *Env) *PageInfoTool {
	return &PageInfoTool{env: env}
}

func (t *PageInfoTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "get_page_info",
		Description: "Report width, height, rotation and orientation of every page, and the size in bytes of each page extracted on its own.",
		Parameters: []ToolParameter{
			sourcesParam,
			passwordParam,
			cacheParam,
			{Name: "skip_file_sizes", ParamType: ParamBoolean, Description: "Skip the per-page size measurement, which extracts every page", Default: false},
		},
		ReadOnly: true,
	}
}

type pageInfoArgs struct {
	multiSourceArgs
	SkipFileSizes bool `json:"skip_file_sizes"`
}

func (t *PageInfoTool) Validate(args json.RawMessage) error {
	var a pageInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	return t.env.checkSources(a.Sources, 1)
}

type pageEntry struct {
	model.PageInfo
	FileSize int `json:"file_size,omitempty"`
}

type pageInfoResult struct {
	Source     string      `json:"source"`
	CacheKey   string      `json:"cache_key,omitempty"`
	Pages      []pageEntry `json:"pages"`
	TotalPages int         `json:"total_pages"`
	Error      string      `json:"error,omitempty"`
}

func (t *PageInfoTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a pageInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}

	outcomes := batch.Map(ctx, t.env.batchWorkers(), a.Sources, func(ctx context.Context, ref model.SourceRef) (pageInfoResult, error) {
		resolved, err := t.env.Resolver.Resolve(ctx, ref)
		if err != nil {
			return pageInfoResult{}, err
		}
		infos, err := t.env.Engine.PageInfo(ctx, resolved.Data, a.Password)
		if err != nil {
			return pageInfoResult{}, err
		}
		res := pageInfoResult{Source: resolved.DisplayName, Pages: make([]pageEntry, len(infos)), TotalPages: len(infos)}
		for i, info := range infos {
			res.Pages[i].PageInfo = info
			if a.SkipFileSizes {
				continue
			}
			page, err := t.env.Engine.SelectPages(ctx, resolved.Data, []int{info.Page}, a.Password)
			if err != nil {
				return pageInfoResult{}, err
			}
			res.Pages[i].FileSize = len(page)
		}
		if res.CacheKey, err = t.env.rememberSource(ref, resolved, a.Cache); err != nil {
			return pageInfoResult{}, err
		}
		return res, nil
	})

	results := make([]pageInfoResult, len(outcomes))
	for i, o := range outcomes {
		if o.OK() {
			results[i] = o.Value
			continue
		}
		results[i] = pageInfoResult{
			Source: a.Sources[i].DisplayName(),
			Pages:  []pageEntry{},
			Error:  t.env.clientError("get_page_info", a.Sources[i], o.Err),
		}
	}
	return JSONResult(map[string]any{"results": results}), nil
}

// OutlineTool reports the bookmark tree.
type OutlineTool struct {
	env *Env
}

// NewOutlineTool creates the extract_outline tool.
func NewOutlineTool(env *Env) *OutlineTool {
	return &OutlineTool{env: env}
}

func (t *OutlineTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "extract_outline",
		Description: "Extract the bookmark tree (table of contents) of one or more PDFs with the target page of each entry.",
		Parameters:  []ToolParameter{sourcesParam, passwordParam, cacheParam},
		ReadOnly:    true,
	}
}

func (t *OutlineTool) Validate(args json.RawMessage) error {
	var a multiSourceArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	return t.env.checkSources(a.Sources, 1)
}

type outlineResult struct {
	Source   string              `json:"source"`
	CacheKey string              `json:"cache_key,omitempty"`
	Outline  []model.OutlineItem `json:"outline"`
	Error    string              `json:"error,omitempty"`
}

func (t *OutlineTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a multiSourceArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}

	outcomes := batch.Map(ctx, t.env.batchWorkers(), a.Sources, func(ctx context.Context, ref model.SourceRef) (outlineResult, error) {
		resolved, err := t.env.Resolver.Resolve(ctx, ref)
		if err != nil {
			return outlineResult{}, err
		}
		items, err := t.env.Engine.Outline(ctx, resolved.Data, a.Password)
		if err != nil {
			return outlineResult{}, err
		}
		res := outlineResult{Source: resolved.DisplayName, Outline: items}
		if res.CacheKey, err = t.env.rememberSource(ref, resolved, a.Cache); err != nil {
			return outlineResult{}, err
		}
		return res, nil
	})

	results := make([]outlineResult, len(outcomes))
	for i, o := range outcomes {
		if o.OK() {
			results[i] = o.Value
			continue
		}
		results[i] = outlineResult{
			Source:  a.Sources[i].DisplayName(),
			Outline: []model.OutlineItem{},
			Error:   t.env.clientError("extract_outline", a.Sources[i], o.Err),
		}
	}
	return JSONResult(map[string]any{"results": results}), nil
}

// AnnotationsTool reports page annotations such as notes and highlights.
type AnnotationsTool struct {
	env *Env
}

// NewAnnotationsTool creates the extract_annotations tool.
func NewAnnotationsTool(env *Env) *AnnotationsTool {
	return &AnnotationsTool{env: env}
}

func (t *AnnotationsTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "extract_annotations",
		Description: "Extract annotations (notes, highlights, stamps, links and others) with author, dates, bounds and color. Form widgets are reported by extract_form_fields instead.",
		Parameters: []ToolParameter{
			sourcesParam,
			{Name: "annotation_types", ParamType: ParamString, Description: "Optional comma-separated annotation subtypes to keep, e.g. \"Text,Highlight\" (case-insensitive)"},
			pageFilterParam,
			passwordParam,
			cacheParam,
		},
		ReadOnly: true,
	}
}

func (t *AnnotationsTool) Validate(args json.RawMessage) error {
	_, err := t.env.validateFiltered(args)
	return err
}

type annotationsResult struct {
	Source      string             `json:"source"`
	CacheKey    string             `json:"cache_key,omitempty"`
	Annotations []model.Annotation `json:"annotations"`
	TotalCount  int                `json:"total_count"`
	Error       string             `json:"error,omitempty"`
}

func typeFilter(list string) func(string) bool {
	wanted := make(map[string]bool)
	for _, t := range strings.Split(list, ",") {
		if t = strings.TrimSpace(t); t != "" {
			wanted[strings.ToLower(t)] = true
		}
	}
	return func(typ string) bool {
		return len(wanted) == 0 || wanted[strings.ToLower(typ)]
	}
}

func (t *AnnotationsTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	a, err := t.env.validateFiltered(args)
	if err != nil {
		return FailureResult(err), nil
	}
	keepType := typeFilter(a.Types)

	outcomes := batch.Map(ctx, t.env.batchWorkers(), a.Sources, func(ctx context.Context, ref model.SourceRef) (annotationsResult, error) {
		resolved, err := t.env.Resolver.Resolve(ctx, ref)
		if err != nil {
			return annotationsResult{}, err
		}
		keepPage, err := t.env.pageFilter(ctx, resolved.Data, a.Password, a.Pages)
		if err != nil {
			return annotationsResult{}, err
		}
		all, err := t.env.Engine.Annotations(ctx, resolved.Data, a.Password)
		if err != nil {
			return annotationsResult{}, err
		}
		res := annotationsResult{Source: resolved.DisplayName, Annotations: []model.Annotation{}}
		for _, an := range all {
			if keepPage(an.Page) && keepType(an.Type) {
				res.Annotations = append(res.Annotations, an)
			}
		}
		res.TotalCount = len(res.Annotations)
		if res.CacheKey, err = t.env.rememberSource(ref, resolved, a.Cache); err != nil {
			return annotationsResult{}, err
		}
		return res, nil
	})

	results := make([]annotationsResult, len(outcomes))
	for i, o := range outcomes {
		if o.OK() {
			results[i] = o.Value
			continue
		}
		results[i] = annotationsResult{
			Source:      a.Sources[i].DisplayName(),
			Annotations: []model.Annotation{},
			Error:       t.env.clientError("extract_annotations", a.Sources[i], o.Err),
		}
	}
	return JSONResult(map[string]any{"results": results}), nil
}

// LinksTool reports hyperlinks and internal page links.
type LinksTool struct {
	env *Env
}

// NewLinksTool creates the extract_links tool.
func NewLinksTool(env *Env) *LinksTool {
	return &LinksTool{env: env}
}

func (t *LinksTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "extract_links",
		Description: "Extract link annotations: external URLs and links to pages of the same document, with their bounds.",
		Parameters:  []ToolParameter{sourcesParam, pageFilterParam, passwordParam, cacheParam},
		ReadOnly:    true,
	}
}

func (t *LinksTool) Validate(args json.RawMessage) error {
	_, err := t.env.validateFiltered(args)
	return err
}

type linksResult struct {
	Source     string       `json:"source"`
	CacheKey   string       `json:"cache_key,omitempty"`
	Links      []model.Link `json:"links"`
	TotalCount int          `json:"total_count"`
	Error      string       `json:"error,omitempty"`
}

func (t *LinksTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	a, err := t.env.validateFiltered(args)
	if err != nil {
		return FailureResult(err), nil
	}

	outcomes := batch.Map(ctx, t.env.batchWorkers(), a.Sources, func(ctx context.Context, ref model.SourceRef) (linksResult, error) {
		resolved, err := t.env.Resolver.Resolve(ctx, ref)
		if err != nil {
			return linksResult{}, err
		}
		keepPage, err := t.env.pageFilter(ctx, resolved.Data, a.Password, a.Pages)
		if err != nil {
			return linksResult{}, err
		}
		all, err := t.env.Engine.Links(ctx, resolved.Data, a.Password)
		if err != nil {
			return linksResult{}, err
		}
		res := linksResult{Source: resolved.DisplayName, Links: []model.Link{}}
		for _, l := range all {
			if keepPage(l.Page) {
				res.Links = append(res.Links, l)
			}
		}
		res.TotalCount = len(res.Links)
		if res.CacheKey, err = t.env.rememberSource(ref, resolved, a.Cache); err != nil {
			return linksResult{}, err
		}
		return res, nil
	})

	results := make([]linksResult, len(outcomes))
	for i, o := range outcomes {
		if o.OK() {
			results[i] = o.Value
			continue
		}
		results[i] = linksResult{
			Source: a.Sources[i].DisplayName(),
			Links:  []model.Link{},
			Error:  t.env.clientError("extract_links", a.Sources[i], o.Err),
		}
	}
	return JSONResult(map[string]any{"results": results}), nil
}
