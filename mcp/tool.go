// MCP Tool Schemas - Describes registry tools to MCP clients.
//
// Information Hiding:
// - JSON Schema layout of source references hidden
// - Mapping from tool parameter types to MCP property options hidden

package mcp

import (
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/richinex/pdfmcp/tools"
)

// sourceSchema is the JSON Schema of one source reference.
func sourceSchema() map[string]any {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return map[string]any{
		"type":        "object",
		"description": "Exactly one of path, url, base64, cache_key",
		"properties": map[string]any{
			"path":      str("Local file path (subject to the configured sandbox roots)"),
			"url":       str("http(s) URL; private and internal addresses are refused"),
			"base64":    str("Standard base64 encoded PDF bytes"),
			"cache_key": str("Key returned by an earlier call"),
		},
		"minProperties":        1,
		"maxProperties":        1,
		"additionalProperties": false,
	}
}

// fieldValueSchema is the JSON Schema of one requested form field change.
func fieldValueSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string", "description": "Field name or id as reported by extract_form_fields"},
			"value":   map[string]any{"type": "string", "description": "New value for text, date, radio and combo box fields"},
			"checked": map[string]any{"type": "boolean", "description": "New state for check boxes"},
			"values": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Selected options for list boxes",
			},
		},
		"required":             []string{"name"},
		"additionalProperties": false,
	}
}

// BuildTool converts registry metadata into an MCP tool definition.
func BuildTool(meta tools.ToolMetadata) mcpgo.Tool {
	opts := []mcpgo.ToolOption{
		mcpgo.WithDescription(meta.Description),
		mcpgo.WithReadOnlyHintAnnotation(meta.ReadOnly),
		mcpgo.WithDestructiveHintAnnotation(false),
		mcpgo.WithOpenWorldHintAnnotation(true),
	}
	for _, p := range meta.Parameters {
		opts = append(opts, parameterOption(p))
	}
	return mcpgo.NewTool(meta.Name, opts...)
}

func parameterOption(p tools.ToolParameter) mcpgo.ToolOption {
	props := []mcpgo.PropertyOption{mcpgo.Description(p.Description)}
	if p.Required {
		props = append(props, mcpgo.Required())
	}
	if len(p.Enum) > 0 {
		props = append(props, mcpgo.Enum(p.Enum...))
	}

	switch p.ParamType {
	case tools.ParamBoolean:
		if b, ok := p.Default.(bool); ok {
			props = append(props, mcpgo.DefaultBool(b))
		}
		return mcpgo.WithBoolean(p.Name, props...)
	case tools.ParamInteger:
		if n, ok := p.Default.(int); ok {
			props = append(props, mcpgo.DefaultNumber(float64(n)))
		}
		props = append(props, mcpgo.Min(0), integer)
		return mcpgo.WithNumber(p.Name, props...)
	case tools.ParamSource:
		source := sourceSchema()
		props = append(props, mcpgo.Properties(source["properties"].(map[string]any)),
			mcpgo.AdditionalProperties(false), mcpgo.MinProperties(1), mcpgo.MaxProperties(1))
		return mcpgo.WithObject(p.Name, props...)
	case tools.ParamSources:
		props = append(props, mcpgo.Items(sourceSchema()))
		if p.MinItems > 0 {
			props = append(props, mcpgo.MinItems(p.MinItems))
		}
		return mcpgo.WithArray(p.Name, props...)
	case tools.ParamFields:
		props = append(props, mcpgo.Items(fieldValueSchema()))
		if p.MinItems > 0 {
			props = append(props, mcpgo.MinItems(p.MinItems))
		}
		return mcpgo.WithArray(p.Name, props...)
	default:
		if s, ok := p.Default.(string); ok {
			props = append(props, mcpgo.DefaultString(s))
		}
		return mcpgo.WithString(p.Name, props...)
	}
}

// integer narrows a number property to whole numbers.
func integer(schema map[string]any) {
	schema["type"] = "integer"
}
