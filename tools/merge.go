package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/richinex/pdfmcp/batch"
	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/model"
)

type mergeArgs struct {
	Sources    []model.SourceRef `json:"sources"`
	OutputPath string            `json:"output_path"`
}

// MergeTool concatenates documents in the given order.
type MergeTool struct {
	env *Env
}

// NewMergeTool creates the merge_pdfs tool.
func NewMergeTool(env *Env) *MergeTool {
	return &MergeTool{env: env}
}

func (t *MergeTool) Metadata() ToolMetadata {
	merged := sourcesParam
	merged.Description = "PDF sources to merge, in order; at least two"
	merged.MinItems = 2
	return ToolMetadata{
		Name:        "merge_pdfs",
		Description: "Merge two or more PDFs into one document, preserving source order. Encrypted sources must be unprotected first.",
		Parameters:  []ToolParameter{merged, outputPathParam},
	}
}

func (t *MergeTool) Validate(args json.RawMessage) error {
	var a mergeArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	return t.env.checkSources(a.Sources, 2)
}

type mergeInput struct {
	data  []byte
	pages int
}

func (t *MergeTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a mergeArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}

	// Sources resolve concurrently; the merge itself needs every one.
	outcomes := batch.Map(ctx, t.env.batchWorkers(), a.Sources, func(ctx context.Context, ref model.SourceRef) (mergeInput, error) {
		resolved, err := t.env.Resolver.Resolve(ctx, ref)
		if err != nil {
			return mergeInput{}, err
		}
		pages, err := t.env.Engine.PageCount(ctx, resolved.Data, "")
		if err != nil {
			return mergeInput{}, err
		}
		return mergeInput{data: resolved.Data, pages: pages}, nil
	})

	docs := make([][]byte, len(outcomes))
	counts := make([]int, len(outcomes))
	names := make([]string, len(outcomes))
	total := 0
	for i, o := range outcomes {
		if !o.OK() {
			return FailureResult(sourceFailure(i, o.Err)), nil
		}
		docs[i] = o.Value.data
		counts[i] = o.Value.pages
		names[i] = a.Sources[i].DisplayName()
		total += o.Value.pages
	}

	data, err := t.env.Engine.Merge(ctx, docs)
	if err != nil {
		return FailureResult(err), nil
	}
	out, err := t.env.storeOutput(ctx, data, a.OutputPath)
	if err != nil {
		return FailureResult(err), nil
	}

	return JSONResult(struct {
		Sources          []string `json:"sources"`
		SourcePageCounts []int    `json:"source_page_counts"`
		OutputPageCount  int      `json:"output_page_count"`
		outputInfo
	}{names, counts, total, out}), nil
}

// sourceFailure keeps the kind of err while naming the failing position.
func sourceFailure(index int, err error) error {
	return apperrors.Wrap(apperrors.KindOf(err), fmt.Sprintf("sources[%d]", index), err)
}
