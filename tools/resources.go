// PDF documents under the sandbox roots, exposed for direct reads.

package tools

import (
	"context"
	"os"
	"sort"
	"time"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/model"
)

// Document describes a PDF served as a resource. Info is absent when the
// engine cannot read the document without a password.
type Document struct {
	model.PDFFileInfo
	Info *model.DocumentInfo `json:"info,omitempty"`
}

// Documents lists and reads the PDFs found under the sandbox roots. Without
// roots nothing is listed; reads still go through the same path checks as a
// path source.
type Documents struct {
	env   *Env
	limit int
}

// NewDocuments creates the document catalog.
func NewDocuments(env *Env) *Documents {
	return &Documents{env: env, limit: AbsoluteListMaxResults}
}

// List walks every root recursively and returns the PDFs sorted by path.
func (d *Documents) List(ctx context.Context) ([]model.PDFFileInfo, error) {
	all := make([]model.PDFFileInfo, 0)
	for _, root := range d.env.Sandbox.Roots() {
		remaining := d.limit - len(all)
		if remaining <= 0 {
			break
		}
		files, _, err := d.env.findPDFs(ctx, root, listArgs{Directory: root, Recursive: true}, remaining)
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	return all, nil
}

// Read loads the document at path with its metadata.
func (d *Documents) Read(ctx context.Context, path string) (Document, []byte, error) {
	if !model.HasPDFExtension(path) {
		return Document{}, nil, apperrors.Newf(apperrors.KindInvalidArgument, "resource is not a PDF file", "path=%s", path)
	}
	resolved, err := d.env.Resolver.Resolve(ctx, model.PathSource(path))
	if err != nil {
		return Document{}, nil, err
	}

	doc := Document{PDFFileInfo: model.PDFFileInfo{
		Path: path,
		Name: resolved.DisplayName,
		Size: int64(len(resolved.Data)),
	}}
	if st, err := os.Stat(path); err == nil {
		doc.Name = st.Name()
		doc.Modified = st.ModTime().UTC().Format(time.RFC3339)
	}

	info, err := d.env.Engine.Info(ctx, resolved.Data, "")
	if err != nil {
		d.env.Logger.Debug().Str("path", path).Err(err).Msg("resource metadata unavailable")
	} else {
		doc.Info = &info
	}
	return doc, resolved.Data, nil
}
