// Page selection tools.

package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/richinex/pdfmcp/model"
	"github.com/richinex/pdfmcp/pagerange"
)

var sourceParam = ToolParameter{
	Name:        "source",
	ParamType:   ParamSource,
	Description: "PDF source; set exactly one of path, url, base64, cache_key",
	Required:    true,
}

var pagesParam = ToolParameter{
	Name:        "pages",
	ParamType:   ParamString,
	Description: "Page-range expression, e.g. \"1-3,5\", \"z-1\", \"r2-z\", \"1-z:odd\", \"1-10,x3\"",
	Required:    true,
}

var outputPathParam = ToolParameter{
	Name:        "output_path",
	ParamType:   ParamString,
	Description: "Optional file path to also write the output document to",
}

type pageArgs struct {
	Source     model.SourceRef `json:"source"`
	Pages      string          `json:"pages"`
	Password   string          `json:"password"`
	OutputPath string          `json:"output_path"`
}

func validatePageArgs(args json.RawMessage) (pageArgs, error) {
	var a pageArgs
	if err := decodeArgs(args, &a); err != nil {
		return a, err
	}
	if err := a.Source.Validate(); err != nil {
		return a, invalidArg("source: exactly one of path, url, base64, cache_key must be set")
	}
	if strings.TrimSpace(a.Pages) == "" {
		return a, invalidArg("pages is required")
	}
	// Syntax is checked up front; bounds need the document.
	if _, err := pagerange.Parse(a.Pages); err != nil {
		return a, err
	}
	return a, nil
}

// resolvePages resolves the source and evaluates the expression against it.
func (e *Env) resolvePages(ctx context.Context, a pageArgs) (model.ResolvedSource, int, []int, error) {
	resolved, err := e.Resolver.Resolve(ctx, a.Source)
	if err != nil {
		return model.ResolvedSource{}, 0, nil, err
	}
	count, err := e.Engine.PageCount(ctx, resolved.Data, a.Password)
	if err != nil {
		return model.ResolvedSource{}, 0, nil, err
	}
	pages, err := pagerange.Select(a.Pages, count)
	if err != nil {
		return model.ResolvedSource{}, 0, nil, err
	}
	return resolved, count, pages, nil
}

// SelectPagesTool evaluates a page-range expression against a document.
type SelectPagesTool struct {
	env *Env
}

// NewSelectPagesTool creates the select_pages tool.
func NewSelectPagesTool(env *Env) *SelectPagesTool {
	return &SelectPagesTool{env: env}
}

func (t *SelectPagesTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "select_pages",
		Description: "Evaluate a page-range expression against a PDF and return the resulting 1-indexed page list without producing a document.",
		Parameters:  []ToolParameter{sourceParam, pagesParam, passwordParam},
		ReadOnly:    true,
	}
}

func (t *SelectPagesTool) Validate(args json.RawMessage) error {
	_, err := validatePageArgs(args)
	return err
}

func (t *SelectPagesTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	a, err := validatePageArgs(args)
	if err != nil {
		return FailureResult(err), nil
	}
	resolved, count, pages, err := t.env.resolvePages(ctx, a)
	if err != nil {
		return FailureResult(err), nil
	}
	return JSONResult(struct {
		Source        string `json:"source"`
		PageCount     int    `json:"page_count"`
		Pages         []int  `json:"pages"`
		SelectedCount int    `json:"selected_count"`
	}{resolved.DisplayName, count, pages, len(pages)}), nil
}

// SplitTool extracts selected pages into a new document.
type SplitTool struct {
	env *Env
}

// NewSplitTool creates the split_pdf tool.
func NewSplitTool(env *Env) *SplitTool {
	return &SplitTool{env: env}
}

func (t *SplitTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "split_pdf",
		Description: "Create a new PDF holding the selected pages in expression order. The result is cached; its output_cache_key can be used as a source in later calls.",
		Parameters:  []ToolParameter{sourceParam, pagesParam, outputPathParam, passwordParam},
	}
}

func (t *SplitTool) Validate(args json.RawMessage) error {
	_, err := validatePageArgs(args)
	return err
}

func (t *SplitTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	a, err := validatePageArgs(args)
	if err != nil {
		return FailureResult(err), nil
	}
	resolved, count, pages, err := t.env.resolvePages(ctx, a)
	if err != nil {
		return FailureResult(err), nil
	}
	if len(pages) == 0 {
		return FailureResult(pagerange.ErrEmptySelection), nil
	}

	data, err := t.env.Engine.SelectPages(ctx, resolved.Data, pages, a.Password)
	if err != nil {
		return FailureResult(err), nil
	}
	out, err := t.env.storeOutput(ctx, data, a.OutputPath)
	if err != nil {
		return FailureResult(err), nil
	}

	return JSONResult(struct {
		Source          string `json:"source"`
		SourcePageCount int    `json:"source_page_count"`
		SelectedPages   []int  `json:"selected_pages"`
		OutputPageCount int    `json:"output_page_count"`
		outputInfo
	}{resolved.DisplayName, count, pages, len(pages), out}), nil
}
