// PDF discovery tool.
//
// Lists PDF files without reading their content. Discovery and loading stay
// separate: returned paths are valid path sources for the other tools.

package tools

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/model"
)

// AbsoluteListMaxResults is the hard limit to prevent excessive memory.
const AbsoluteListMaxResults = 1000

// ListPDFsTool lists PDF files inside a directory.
type ListPDFsTool struct {
	env        *Env
	maxResults int
}

// NewListPDFsTool creates the list_pdfs tool.
func NewListPDFsTool(env *Env) *ListPDFsTool {
	return &ListPDFsTool{env: env, maxResults: AbsoluteListMaxResults}
}

func (t *ListPDFsTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "list_pdfs",
		Description: "List PDF files in a directory, sorted by path. Hidden directories (starting with .) are skipped when searching recursively.",
		Parameters: []ToolParameter{
			{Name: "directory", ParamType: ParamString, Description: "Directory to search", Required: true},
			{Name: "recursive", ParamType: ParamBoolean, Description: "Search subdirectories", Default: false},
			{Name: "pattern", ParamType: ParamString, Description: "Filename glob, e.g. 'report*.pdf'"},
		},
		ReadOnly: true,
	}
}

type listArgs struct {
	Directory string `json:"directory"`
	Recursive bool   `json:"recursive"`
	Pattern   string `json:"pattern"`
}

func (a *listArgs) validate() error {
	if strings.TrimSpace(a.Directory) == "" {
		return invalidArg("directory is required")
	}
	if a.Pattern != "" {
		if _, err := filepath.Match(a.Pattern, ""); err != nil {
			return invalidArg("pattern is not a valid glob")
		}
	}
	return nil
}

func (t *ListPDFsTool) Validate(args json.RawMessage) error {
	var a listArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	return a.validate()
}

func (t *ListPDFsTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a listArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}
	if err := a.validate(); err != nil {
		return FailureResult(err), nil
	}

	dir, err := t.env.Sandbox.ValidateRead(a.Directory)
	if err != nil {
		return FailureResult(err), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return FailureResult(apperrors.Newf(apperrors.KindNotFound, "directory not found", "path=%s", dir)), nil
		}
		return FailureResult(apperrors.Newf(apperrors.KindIO, "cannot stat directory", "path=%s err=%v", dir, err)), nil
	}
	if !info.IsDir() {
		return FailureResult(invalidArg("directory is not a directory")), nil
	}

	files, truncated, err := t.env.findPDFs(ctx, dir, a, t.maxResults)
	if err != nil {
		return FailureResult(err), nil
	}

	return JSONResult(struct {
		Directory  string              `json:"directory"`
		Files      []model.PDFFileInfo `json:"files"`
		TotalCount int                 `json:"total_count"`
		Truncated  bool                `json:"truncated,omitempty"`
	}{a.Directory, files, len(files), truncated}), nil
}

// findPDFs walks dir and returns at most max matching PDFs sorted by path.
// It reports whether the walk stopped early at the limit.
func (e *Env) findPDFs(ctx context.Context, dir string, a listArgs, max int) ([]model.PDFFileInfo, bool, error) {
	files := make([]model.PDFFileInfo, 0)
	truncated := false

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if entry != nil && entry.IsDir() && path != dir {
				return filepath.SkipDir
			}
			// Skip unreadable entries
			return nil
		}

		if entry.IsDir() {
			if path == dir {
				return nil
			}
			if !a.Recursive || strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		name := entry.Name()
		if !model.HasPDFExtension(name) {
			return nil
		}
		if a.Pattern != "" {
			if ok, _ := filepath.Match(a.Pattern, name); !ok {
				return nil
			}
		}

		fileInfo, ok := e.fileInfo(path, entry)
		if !ok {
			return nil
		}
		files = append(files, fileInfo)
		if len(files) >= max {
			truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return nil, false, apperrors.Wrap(apperrors.KindIO, "directory walk failed", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, truncated, nil
}

// fileInfo stats a regular file or a symlink to one. Symlinks whose target
// leaves the sandbox are skipped.
func (e *Env) fileInfo(path string, entry fs.DirEntry) (model.PDFFileInfo, bool) {
	if entry.Type()&fs.ModeSymlink != 0 {
		if _, err := e.Sandbox.ValidateRead(path); err != nil {
			return model.PDFFileInfo{}, false
		}
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return model.PDFFileInfo{}, false
	}
	return model.PDFFileInfo{
		Path:     path,
		Name:     entry.Name(),
		Size:     info.Size(),
		Modified: info.ModTime().UTC().Format(time.RFC3339),
	}, true
}
