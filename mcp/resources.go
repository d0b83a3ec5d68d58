// MCP Resources - PDFs under the sandbox roots as file:// resources.
//
// Information Hiding:
// - URI scheme and encoding of paths hidden
// - Listing is refreshed on every resources/list request

package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/model"
	"github.com/richinex/pdfmcp/tools"
)

const pdfMIMEType = "application/pdf"

// DocumentSource lists and reads the documents served as resources.
type DocumentSource interface {
	List(ctx context.Context) ([]model.PDFFileInfo, error)
	Read(ctx context.Context, path string) (tools.Document, []byte, error)
}

// fileURI returns the file:// URI of an absolute path.
func fileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: path}).String()
}

func pathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" || u.Path == "" || u.Host != "" {
		return "", apperrors.Newf(apperrors.KindInvalidArgument, "only file:// resource URIs are supported", "uri=%s", uri)
	}
	return u.Path, nil
}

// refreshResources replaces the advertised resources with a fresh listing.
// A failed walk keeps the previous listing.
func (s *Server) refreshResources(ctx context.Context) {
	files, err := s.docs.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cannot list resources")
		return
	}
	resources := make([]server.ServerResource, len(files))
	for i, f := range files {
		resources[i] = server.ServerResource{
			Resource: mcpgo.NewResource(fileURI(f.Path), f.Path,
				mcpgo.WithResourceDescription(fmt.Sprintf("PDF file (%d bytes), modified: %s", f.Size, f.Modified)),
				mcpgo.WithMIMEType(pdfMIMEType),
			),
			Handler: s.readResource,
		}
	}
	s.mcp.SetResources(resources...)
	s.logger.Debug().Int("resources", len(resources)).Msg("resources refreshed")
}

// readResource returns the document metadata as JSON followed by the
// document bytes.
func (s *Server) readResource(ctx context.Context, req mcpgo.ReadResourceRequest) ([]mcpgo.ResourceContents, error) {
	uri := req.Params.URI
	path, err := pathFromURI(uri)
	if err != nil {
		return nil, errors.New(apperrors.ClientMessage(err))
	}
	doc, data, err := s.docs.Read(ctx, path)
	if err != nil {
		s.logger.Warn().Str("uri", uri).Str("kind", string(apperrors.KindOf(err))).Err(err).Msg("resource read failed")
		return nil, errors.New(apperrors.ClientMessage(err))
	}
	meta, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.New("internal error")
	}
	return []mcpgo.ResourceContents{
		mcpgo.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(meta)},
		mcpgo.BlobResourceContents{URI: uri, MIMEType: pdfMIMEType, Blob: base64.StdEncoding.EncodeToString(data)},
	}, nil
}

// resourceOptions enables resources and the listing refresh hook.
func (s *Server) resourceOptions() []server.ServerOption {
	hooks := &server.Hooks{}
	hooks.AddBeforeListResources(func(ctx context.Context, _ any, _ *mcpgo.ListResourcesRequest) {
		s.refreshResources(ctx)
	})
	return []server.ServerOption{
		server.WithResourceCapabilities(false, false),
		server.WithHooks(hooks),
	}
}

// addResourceTemplate lets clients read any PDF path, listed or not.
func (s *Server) addResourceTemplate() {
	s.mcp.AddResourceTemplate(
		mcpgo.NewResourceTemplate("file://{+path}", "PDF document",
			mcpgo.WithTemplateDescription("A PDF file by absolute path; reads return metadata JSON and the document bytes"),
			mcpgo.WithTemplateMIMEType(pdfMIMEType),
		),
		s.readResource,
	)
}
