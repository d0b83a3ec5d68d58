package tools

import (
	"context"
	"encoding/json"
	"math"

	"github.com/richinex/pdfmcp/engine"
	"github.com/richinex/pdfmcp/model"
)

type compressArgs struct {
	Source        model.SourceRef `json:"source"`
	ObjectStreams string          `json:"object_streams"`
	Password      string          `json:"password"`
	OutputPath    string          `json:"output_path"`
}

func (a *compressArgs) validate() error {
	if err := a.Source.Validate(); err != nil {
		return invalidArg("source: exactly one of path, url, base64, cache_key must be set")
	}
	switch engine.ObjectStreams(a.ObjectStreams) {
	case "", engine.ObjectStreamsGenerate, engine.ObjectStreamsPreserve, engine.ObjectStreamsDisable:
	default:
		return invalidArg("object_streams must be one of generate, preserve, disable")
	}
	return nil
}

// CompressTool optimizes a document and reports the size change.
type CompressTool struct {
	env *Env
}

// NewCompressTool creates the compress_pdf tool.
func NewCompressTool(env *Env) *CompressTool {
	return &CompressTool{env: env}
}

func (t *CompressTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "compress_pdf",
		Description: "Optimize a PDF (drop redundant objects, compact cross-references) and report original and compressed sizes.",
		Parameters: []ToolParameter{
			sourceParam,
			{Name: "object_streams", ParamType: ParamString, Description: "Object stream handling", Enum: []string{"generate", "preserve", "disable"}, Default: "generate"},
			outputPathParam,
			passwordParam,
		},
	}
}

func (t *CompressTool) Validate(args json.RawMessage) error {
	var a compressArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	return a.validate()
}

type compressResult struct {
	Source           string  `json:"source"`
	OriginalSize     int64   `json:"original_size"`
	CompressedSize   int64   `json:"compressed_size"`
	CompressionRatio float64 `json:"compression_ratio"`
	BytesSaved       int64   `json:"bytes_saved"`
	OutputPageCount  int     `json:"output_page_count"`
	outputInfo
}

func (t *CompressTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a compressArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}
	if err := a.validate(); err != nil {
		return FailureResult(err), nil
	}

	resolved, err := t.env.Resolver.Resolve(ctx, a.Source)
	if err != nil {
		return FailureResult(err), nil
	}
	mode := engine.ObjectStreams(a.ObjectStreams)
	if mode == "" {
		mode = engine.ObjectStreamsGenerate
	}
	data, err := t.env.Engine.Optimize(ctx, resolved.Data, engine.OptimizeOptions{
		Password:      a.Password,
		ObjectStreams: mode,
	})
	if err != nil {
		return FailureResult(err), nil
	}
	pages, err := t.env.Engine.PageCount(ctx, data, a.Password)
	if err != nil {
		return FailureResult(err), nil
	}
	out, err := t.env.storeOutput(ctx, data, a.OutputPath)
	if err != nil {
		return FailureResult(err), nil
	}

	original := int64(len(resolved.Data))
	compressed := int64(len(data))
	return JSONResult(compressResult{
		Source:           resolved.DisplayName,
		OriginalSize:     original,
		CompressedSize:   compressed,
		CompressionRatio: compressionRatio(original, compressed),
		BytesSaved:       original - compressed,
		OutputPageCount:  pages,
		outputInfo:       out,
	}), nil
}

// compressionRatio is compressed/original rounded to four places; 1 for an
// empty original.
func compressionRatio(original, compressed int64) float64 {
	if original <= 0 {
		return 1
	}
	return math.Round(float64(compressed)/float64(original)*10000) / 10000
}
