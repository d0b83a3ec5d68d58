// Interactive form tools.

package tools

import (
	"context"
	"encoding/json"

	"github.com/richinex/pdfmcp/batch"
	"github.com/richinex/pdfmcp/model"
)

// FormFieldsTool lists the AcroForm fields of each source.
type FormFieldsTool struct {
	env *Env
}

// NewFormFieldsTool creates the extract_form_fields tool.
func NewFormFieldsTool(env *Env) *FormFieldsTool {
	return &FormFieldsTool{env: env}
}

func (t *FormFieldsTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "extract_form_fields",
		Description: "List interactive form fields with their type, current value, options and read-only state. Documents without a form report no fields.",
		Parameters:  []ToolParameter{sourcesParam, pageFilterParam, passwordParam, cacheParam},
		ReadOnly:    true,
	}
}

func (t *FormFieldsTool) Validate(args json.RawMessage) error {
	_, err := t.env.validateFiltered(args)
	return err
}

type formFieldsResult struct {
	Source      string            `json:"source"`
	CacheKey    string            `json:"cache_key,omitempty"`
	Fields      []model.FormField `json:"fields"`
	TotalFields int               `json:"total_fields"`
	Error       string            `json:"error,omitempty"`
}

// onPages reports whether any of a field's widgets is on a kept page.
func onPages(f model.FormField, keep func(int) bool) bool {
	for _, p := range f.Pages {
		if keep(p) {
			return true
		}
	}
	return len(f.Pages) == 0 && keep(f.Page)
}

func (t *FormFieldsTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	a, err := t.env.validateFiltered(args)
	if err != nil {
		return FailureResult(err), nil
	}

	outcomes := batch.Map(ctx, t.env.batchWorkers(), a.Sources, func(ctx context.Context, ref model.SourceRef) (formFieldsResult, error) {
		resolved, err := t.env.Resolver.Resolve(ctx, ref)
		if err != nil {
			return formFieldsResult{}, err
		}
		keepPage, err := t.env.pageFilter(ctx, resolved.Data, a.Password, a.Pages)
		if err != nil {
			return formFieldsResult{}, err
		}
		all, err := t.env.Engine.FormFields(ctx, resolved.Data, a.Password)
		if err != nil {
			return formFieldsResult{}, err
		}
		res := formFieldsResult{Source: resolved.DisplayName, Fields: []model.FormField{}}
		for _, f := range all {
			if onPages(f, keepPage) {
				res.Fields = append(res.Fields, f)
			}
		}
		res.TotalFields = len(res.Fields)
		if res.CacheKey, err = t.env.rememberSource(ref, resolved, a.Cache); err != nil {
			return formFieldsResult{}, err
		}
		return res, nil
	})

	results := make([]formFieldsResult, len(outcomes))
	for i, o := range outcomes {
		if o.OK() {
			results[i] = o.Value
			continue
		}
		results[i] = formFieldsResult{
			Source: a.Sources[i].DisplayName(),
			Fields: []model.FormField{},
			Error:  t.env.clientError("extract_form_fields", a.Sources[i], o.Err),
		}
	}
	return JSONResult(map[string]any{"results": results}), nil
}

// FillFormTool writes new values into form fields.
type FillFormTool struct {
	env *Env
}

// NewFillFormTool creates the fill_form tool.
func NewFillFormTool(env *Env) *FillFormTool {
	return &FillFormTool{env: env}
}

func (t *FillFormTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "fill_form",
		Description: "Fill interactive form fields by name and return the filled document. Unknown or read-only fields and values outside a field's options are reported in fields_skipped.",
		Parameters: []ToolParameter{
			sourceParam,
			{Name: "field_values", ParamType: ParamFields, Description: "Field changes: {name, value} for text, date, radio and combo box fields, {name, checked} for check boxes, {name, values} for list boxes", Required: true, MinItems: 1},
			outputPathParam,
			passwordParam,
		},
	}
}

type fillArgs struct {
	Source      model.SourceRef    `json:"source"`
	FieldValues []model.FieldValue `json:"field_values"`
	OutputPath  string             `json:"output_path"`
	Password    string             `json:"password"`
}

func validateFillArgs(args json.RawMessage) (fillArgs, error) {
	var a fillArgs
	if err := decodeArgs(args, &a); err != nil {
		return a, err
	}
	if err := a.Source.Validate(); err != nil {
		return a, invalidArg("source: exactly one of path, url, base64, cache_key must be set")
	}
	if len(a.FieldValues) == 0 {
		return a, invalidArg("field_values must not be empty")
	}
	return a, nil
}

func (t *FillFormTool) Validate(args json.RawMessage) error {
	_, err := validateFillArgs(args)
	return err
}

func (t *FillFormTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	a, err := validateFillArgs(args)
	if err != nil {
		return FailureResult(err), nil
	}

	resolved, err := t.env.Resolver.Resolve(ctx, a.Source)
	if err != nil {
		return FailureResult(err), nil
	}
	data, report, err := t.env.Engine.FillForm(ctx, resolved.Data, a.FieldValues, a.Password)
	if err != nil {
		return FailureResult(err), nil
	}
	count, err := t.env.Engine.PageCount(ctx, data, a.Password)
	if err != nil {
		return FailureResult(err), nil
	}
	out, err := t.env.storeOutput(ctx, data, a.OutputPath)
	if err != nil {
		return FailureResult(err), nil
	}

	t.env.Logger.Debug().
		Str("source", resolved.DisplayName).
		Int("filled", report.Filled).
		Int("skipped", len(report.Skipped)).
		Msg("form filled")

	return JSONResult(struct {
		Source string `json:"source"`
		model.FillReport
		OutputPageCount int `json:"output_page_count"`
		outputInfo
	}{resolved.DisplayName, report, count, out}), nil
}
