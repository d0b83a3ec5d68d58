// Tool Dispatcher with timeout and failure containment.
//
// Information Hiding:
// - Timeout policy hidden
// - Panic recovery hidden
// - Error classification and logging of internal detail hidden

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
)

// Dispatcher looks tools up by name and runs them with a per-call timeout.
// Every failure leaving the dispatcher carries a coded error, and full detail
// is logged before the result is handed back.
type Dispatcher struct {
	registry *Registry
	config   ToolConfig
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, config ToolConfig, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		config:   config,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Registry returns the underlying registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Call runs the named tool.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage) ToolResult {
	tool, ok := d.registry.Get(name)
	if !ok {
		return d.finish(name, time.Now(), FailureResult(invalidArg("unknown tool %q", name)))
	}
	return d.Execute(ctx, tool, args)
}

// Execute validates args and runs tool under the configured timeout.
func (d *Dispatcher) Execute(ctx context.Context, tool Tool, args json.RawMessage) ToolResult {
	name := tool.Metadata().Name
	start := time.Now()

	if err := tool.Validate(args); err != nil {
		return d.finish(name, start, FailureResult(classify(err, apperrors.KindInvalidArgument)))
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout())
	defer cancel()

	return d.finish(name, start, runTool(ctx, tool, args))
}

// runTool executes tool, turning panics and bare errors into coded failures.
func runTool(ctx context.Context, tool Tool, args json.RawMessage) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = FailureResult(apperrors.New(apperrors.KindEngine, fmt.Sprintf("tool panicked: %v", r)))
		}
	}()

	res, err := tool.Execute(ctx, args)
	if err != nil {
		return FailureResult(err)
	}
	return res
}

func (d *Dispatcher) finish(name string, start time.Time, result ToolResult) ToolResult {
	elapsed := time.Since(start)
	if result.Error == nil {
		d.logger.Info().
			Str("tool", name).
			Dur("elapsed", elapsed).
			Int("output_bytes", len(result.Output)).
			Msg("tool call succeeded")
		return result
	}

	result.Error = classify(result.Error, apperrors.KindInternal)
	d.logger.Warn().
		Str("tool", name).
		Str("kind", string(apperrors.KindOf(result.Error))).
		Dur("elapsed", elapsed).
		Err(result.Error).
		Msg("tool call failed")
	return ToolResult{Error: result.Error}
}

// classify guarantees err is coded. Context errors become timeouts; other
// uncoded errors take fallback.
func classify(err error, fallback apperrors.Kind) error {
	var coded *apperrors.Error
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Wrap(apperrors.KindTimeout, "tool call interrupted", err)
	}
	return apperrors.Wrap(fallback, err.Error(), err)
}
