package tools

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/model"
)

type listOutput struct {
	Directory  string              `json:"directory"`
	Files      []model.PDFFileInfo `json:"files"`
	TotalCount int                 `json:"total_count"`
	Truncated  bool                `json:"truncated"`
}

func paths(files []model.PDFFileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func populate(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".hidden"), 0755))
	writePDF(t, root, "b.pdf", 1)
	writePDF(t, root, "A_report.PDF", 1)
	writePDF(t, filepath.Join(root, "sub"), "c_report.pdf", 2)
	writePDF(t, filepath.Join(root, ".hidden"), "d.pdf", 1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
}

func TestListPDFsFlat(t *testing.T) {
	te := newTestEnv(t, true)
	populate(t, te.root)

	var out listOutput
	decodeOutput(t, te.call(t, "list_pdfs", map[string]any{"directory": te.root}), &out)

	assert.Equal(t, []string{
		filepath.Join(te.root, "A_report.PDF"),
		filepath.Join(te.root, "b.pdf"),
	}, paths(out.Files))
	assert.Equal(t, 2, out.TotalCount)
	assert.Equal(t, "b.pdf", out.Files[1].Name)
	assert.Positive(t, out.Files[1].Size)
	_, err := time.Parse(time.RFC3339, out.Files[1].Modified)
	assert.NoError(t, err)
}

func TestListPDFsRecursiveWithPattern(t *testing.T) {
	te := newTestEnv(t, true)
	populate(t, te.root)

	var out listOutput
	decodeOutput(t, te.call(t, "list_pdfs", map[string]any{"directory": te.root, "recursive": true}), &out)
	assert.Equal(t, []string{
		filepath.Join(te.root, "A_report.PDF"),
		filepath.Join(te.root, "b.pdf"),
		filepath.Join(te.root, "sub", "c_report.pdf"),
	}, paths(out.Files))

	decodeOutput(t, te.call(t, "list_pdfs", map[string]any{"directory": te.root, "recursive": true, "pattern": "*_report.pdf"}), &out)
	assert.Equal(t, []string{filepath.Join(te.root, "sub", "c_report.pdf")}, paths(out.Files))
}

func TestListPDFsSandboxAndErrors(t *testing.T) {
	te := newTestEnv(t, true)

	res := te.call(t, "list_pdfs", map[string]any{"directory": t.TempDir()})
	require.Error(t, res.Error)
	assert.Equal(t, apperrors.KindAccessDenied, apperrors.KindOf(res.Error))

	file := writePDF(t, te.root, "x.pdf", 1)
	res = te.call(t, "list_pdfs", map[string]any{"directory": file})
	require.Error(t, res.Error)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(res.Error))

	res = te.call(t, "list_pdfs", map[string]any{"directory": te.root, "pattern": "[unclosed"})
	require.Error(t, res.Error)
	assert.Equal(t, "invalid argument: pattern is not a valid glob", apperrors.ClientMessage(res.Error))
}

func TestListPDFsSkipsEscapingSymlink(t *testing.T) {
	te := newTestEnv(t, true)
	outside := writePDF(t, t.TempDir(), "secret.pdf", 1)
	require.NoError(t, os.Symlink(outside, filepath.Join(te.root, "link.pdf")))
	writePDF(t, te.root, "ok.pdf", 1)

	var out listOutput
	decodeOutput(t, te.call(t, "list_pdfs", map[string]any{"directory": te.root}), &out)
	assert.Equal(t, []string{filepath.Join(te.root, "ok.pdf")}, paths(out.Files))
}

func TestListPDFsMissingDirectoryUnsandboxed(t *testing.T) {
	te := newTestEnv(t, false)
	res := te.call(t, "list_pdfs", map[string]any{"directory": filepath.Join(te.root, "absent")})
	require.Error(t, res.Error)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(res.Error))
}
