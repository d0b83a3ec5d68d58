// Package mcp exposes the tool registry and the sandboxed PDF documents as a
// Model Context Protocol server over stdio.
//
// Information Hiding:
// - JSON-RPC framing and session handling delegated to mcp-go
// - Argument re-encoding between MCP requests and tool calls hidden
// - Only sanitized client messages reach the protocol
package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/tools"
)

const instructions = `PDF tools. Every document argument is a source object with exactly one of
path, url, base64 or cache_key. Tools that produce a document return an
output_cache_key; pass it as {"cache_key": ...} to chain operations without
re-sending bytes. Page ranges are 1-indexed: "1-3,5", "z" (last), "r2" (second
to last), "z-1" (reverse), "1-z:odd", "x3" (exclude).`

// Server binds a tool dispatcher and, optionally, a document source to an
// MCP server.
type Server struct {
	dispatcher *tools.Dispatcher
	docs       DocumentSource
	mcp        *server.MCPServer
	logger     zerolog.Logger
}

// NewServer registers every tool in the dispatcher's registry. When docs is
// non-nil its documents are served as file:// resources.
func NewServer(name, version string, dispatcher *tools.Dispatcher, docs DocumentSource, logger zerolog.Logger) *Server {
	s := &Server{
		dispatcher: dispatcher,
		docs:       docs,
		logger:     logger.With().Str("component", "mcp").Logger(),
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithInstructions(instructions),
		server.WithRecovery(),
	}
	if docs != nil {
		opts = append(opts, s.resourceOptions()...)
	}
	s.mcp = server.NewMCPServer(name, version, opts...)

	for _, meta := range dispatcher.Registry().List() {
		s.mcp.AddTool(BuildTool(meta), s.handler(meta.Name))
	}
	if docs != nil {
		s.addResourceTemplate()
	}
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			s.logger.Warn().Str("tool", name).Err(err).Msg("cannot re-encode arguments")
			return mcpgo.NewToolResultError("invalid argument: arguments must be a JSON object"), nil
		}

		result := s.dispatcher.Call(ctx, name, args)
		if result.Error != nil {
			return mcpgo.NewToolResultError(apperrors.ClientMessage(result.Error)), nil
		}
		return mcpgo.NewToolResultText(result.Output), nil
	}
}

// Serve runs the stdio transport until ctx is cancelled or in closes.
// Protocol-level errors are written to the structured logger.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(logWriter{s.logger}, "", 0))

	s.logger.Info().Int("tools", len(s.dispatcher.Registry().Names())).Msg("serving MCP over stdio")
	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// logWriter adapts the standard logger used by the stdio transport.
type logWriter struct {
	logger zerolog.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.logger.Error().Msg(msg)
	return len(p), nil
}
