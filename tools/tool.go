// Package tools provides the PDF tool system exposed over MCP.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Internal error detail never leaves the dispatcher; callers see sanitized messages
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
)

// Parameter types understood by the MCP adapter.
const (
	ParamString  = "string"
	ParamBoolean = "boolean"
	ParamInteger = "integer"
	ParamSource  = "source"  // {path|url|base64|cache_key}
	ParamSources = "sources" // array of source objects
	ParamFields  = "fields"  // array of {name, value|checked|values}
)

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string   `json:"name"`
	ParamType   string   `json:"param_type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
	MinItems    int      `json:"min_items,omitempty"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	ReadOnly    bool            `json:"read_only"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// ToolResult represents the result of a tool execution.
// Success is determined by whether Error is nil.
type ToolResult struct {
	Output string `json:"output"`
	Error  error  `json:"-"`
}

// MarshalJSON implements custom JSON marshaling for ToolResult.
// Only the sanitized client message of a failure is serialized.
func (t ToolResult) MarshalJSON() ([]byte, error) {
	if t.Error != nil {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Kind    string `json:"kind"`
			Error   string `json:"error"`
		}{
			Success: false,
			Kind:    string(apperrors.KindOf(t.Error)),
			Error:   apperrors.ClientMessage(t.Error),
		})
	}
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Output  string `json:"output"`
	}{
		Success: true,
		Output:  t.Output,
	})
}

// Success returns true if the tool execution succeeded.
func (t ToolResult) Success() bool {
	return t.Error == nil
}

// SuccessResult creates a successful tool result.
func SuccessResult(output string) ToolResult {
	return ToolResult{Output: output}
}

// FailureResult creates a failed tool result.
func FailureResult(err error) ToolResult {
	return ToolResult{Error: err}
}

// JSONResult marshals v as indented JSON into a successful result.
func JSONResult(v any) ToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return FailureResult(apperrors.Wrap(apperrors.KindInternal, "encode tool output", err))
	}
	return SuccessResult(string(data))
}

// Tool is the interface that all tools must implement.
//
// Information Hiding: Tool implementations hide their internal execution logic,
// data structures, and error handling strategies behind this interface.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool with given arguments. Domain failures are
	// reported through ToolResult.Error; a returned error means the tool
	// itself could not run.
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)

	// Validate validates arguments before execution.
	Validate(args json.RawMessage) error
}

// BaseTool provides a default implementation for Validate.
type BaseTool struct{}

// Validate provides a default no-op validation.
func (BaseTool) Validate(args json.RawMessage) error {
	return nil
}

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to DefaultToolTimeout.
type ToolConfig struct {
	TimeoutSecs uint64
}

// DefaultToolTimeout bounds a single tool call, downloads included.
const DefaultToolTimeout = 300 // seconds

// Timeout returns the configured timeout.
func (c *ToolConfig) Timeout() time.Duration {
	if c == nil || c.TimeoutSecs == 0 {
		return DefaultToolTimeout * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{TimeoutSecs: DefaultToolTimeout}
}

// decodeArgs unmarshals args into v, mapping failures to invalid_argument.
// Empty args decode as an empty object.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidArgument, "arguments are not valid JSON for this tool", err)
	}
	return nil
}

func invalidArg(format string, args ...any) error {
	return apperrors.New(apperrors.KindInvalidArgument, fmt.Sprintf(format, args...))
}
