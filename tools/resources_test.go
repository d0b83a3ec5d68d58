package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/internal/testpdf"
)

func TestDocumentsListWalksRoots(t *testing.T) {
	te := newTestEnv(t, true)
	populate(t, te.root)

	files, err := NewDocuments(te.env).List(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(te.root, "A_report.PDF"),
		filepath.Join(te.root, "b.pdf"),
		filepath.Join(te.root, "sub", "c_report.pdf"),
	}, paths(files))

	docs := NewDocuments(te.env)
	docs.limit = 2
	files, err = docs.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestDocumentsListWithoutRoots(t *testing.T) {
	te := newTestEnv(t, false)
	populate(t, te.root)

	files, err := NewDocuments(te.env).List(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestDocumentsRead(t *testing.T) {
	te := newTestEnv(t, true)
	path := filepath.Join(te.root, "titled.pdf")
	data := testpdf.BuildWith(testpdf.Options{Pages: 2, Title: "Budget"})
	require.NoError(t, os.WriteFile(path, data, 0644))

	doc, got, err := NewDocuments(te.env).Read(t.Context(), path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, "titled.pdf", doc.Name)
	assert.Equal(t, int64(len(data)), doc.Size)
	assert.NotEmpty(t, doc.Modified)
	require.NotNil(t, doc.Info)
	assert.Equal(t, "Budget", doc.Info.Title)
	assert.Equal(t, 2, doc.Info.PageCount)

	_, _, err = NewDocuments(te.env).Read(t.Context(), filepath.Join(te.root, "notes.txt"))
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))

	_, _, err = NewDocuments(te.env).Read(t.Context(), "/etc/secret.pdf")
	assert.True(t, apperrors.Is(err, apperrors.KindAccessDenied))
}
