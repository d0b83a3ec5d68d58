package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/internal/testpdf"
	"github.com/richinex/pdfmcp/model"
)

func TestGetPageInfo(t *testing.T) {
	te := newTestEnv(t, false)
	doc := testpdf.BuildWith(testpdf.Options{Pages: 2, Rotate: map[int]int{2: 270}})

	var out struct {
		Results []pageInfoResult `json:"results"`
	}
	res := te.call(t, "get_page_info", map[string]any{
		"sources": []any{map[string]any{"base64": encode(doc)}, map[string]any{"base64": "%%%"}},
		"cache":   true,
	})
	decodeOutput(t, res, &out)
	require.Len(t, out.Results, 2)

	first := out.Results[0]
	assert.Empty(t, first.Error)
	assert.NotEmpty(t, first.CacheKey)
	assert.Equal(t, 2, first.TotalPages)
	require.Len(t, first.Pages, 2)
	assert.Equal(t, "portrait", first.Pages[0].Orientation)
	assert.Equal(t, 270, first.Pages[1].Rotation)
	assert.Equal(t, "landscape", first.Pages[1].Orientation)
	for _, p := range first.Pages {
		assert.Positive(t, p.FileSize)
	}
	assert.Equal(t, "invalid base64 data", out.Results[1].Error)
	assert.NotNil(t, out.Results[1].Pages)

	res = te.call(t, "get_page_info", map[string]any{
		"sources":         []any{map[string]any{"cache_key": first.CacheKey}},
		"skip_file_sizes": true,
		"cache":           true,
	})
	decodeOutput(t, res, &out)
	require.Len(t, out.Results, 1)
	assert.Equal(t, first.CacheKey, out.Results[0].CacheKey)
	for _, p := range out.Results[0].Pages {
		assert.Zero(t, p.FileSize)
	}
}

func TestExtractOutline(t *testing.T) {
	te := newTestEnv(t, false)
	doc := testpdf.BuildWith(testpdf.Options{
		Pages: 3,
		Bookmarks: []testpdf.Bookmark{
			{Title: "Summary", Page: 1, Children: []testpdf.Bookmark{{Title: "Figures", Page: 3}}},
		},
	})

	var out struct {
		Results []outlineResult `json:"results"`
	}
	res := te.call(t, "extract_outline", map[string]any{
		"sources": []any{map[string]any{"base64": encode(doc)}, map[string]any{"base64": testpdf.Base64(1)}},
	})
	decodeOutput(t, res, &out)
	require.Len(t, out.Results, 2)

	require.Len(t, out.Results[0].Outline, 1)
	top := out.Results[0].Outline[0]
	assert.Equal(t, "Summary", top.Title)
	require.Len(t, top.Children, 1)
	assert.Equal(t, model.OutlineItem{Title: "Figures", Page: 3, Children: []model.OutlineItem{}}, top.Children[0])

	assert.NotNil(t, out.Results[1].Outline)
	assert.Empty(t, out.Results[1].Outline)
}

func annotatedDoc() []byte {
	return testpdf.BuildWith(testpdf.Options{
		Pages: 3,
		Notes: []testpdf.Note{
			{Page: 1, Contents: "first", Author: "Kim"},
			{Page: 3, Contents: "last"},
		},
		Links: []testpdf.Link{
			{Page: 2, URI: "https://example.com"},
			{Page: 3, DestPage: 1},
		},
	})
}

func TestExtractAnnotationsFilters(t *testing.T) {
	te := newTestEnv(t, false)
	src := map[string]any{"base64": encode(annotatedDoc())}
	var out struct {
		Results []annotationsResult `json:"results"`
	}

	res := te.call(t, "extract_annotations", map[string]any{"sources": []any{src}})
	decodeOutput(t, res, &out)
	require.Len(t, out.Results, 1)
	assert.Equal(t, 4, out.Results[0].TotalCount)

	res = te.call(t, "extract_annotations", map[string]any{"sources": []any{src}, "annotation_types": " text "})
	decodeOutput(t, res, &out)
	require.Equal(t, 2, out.Results[0].TotalCount)
	assert.Equal(t, "Kim", out.Results[0].Annotations[0].Author)
	assert.Equal(t, "#ffff00", out.Results[0].Annotations[0].Color)

	res = te.call(t, "extract_annotations", map[string]any{"sources": []any{src}, "annotation_types": "Text,Link", "pages": "2-z"})
	decodeOutput(t, res, &out)
	require.Equal(t, 3, out.Results[0].TotalCount)
	for _, a := range out.Results[0].Annotations {
		assert.GreaterOrEqual(t, a.Page, 2)
	}

	res = te.call(t, "extract_annotations", map[string]any{"sources": []any{src}, "pages": "9"})
	decodeOutput(t, res, &out)
	assert.Contains(t, out.Results[0].Error, "invalid page range")

	res = te.call(t, "extract_annotations", map[string]any{"sources": []any{src}, "pages": "1-"})
	require.Error(t, res.Error)
	assert.Equal(t, apperrors.KindInvalidPageRange, apperrors.KindOf(res.Error))
}

func TestTypeFilter(t *testing.T) {
	all := typeFilter("")
	assert.True(t, all("Highlight"))

	some := typeFilter("highlight, ,StrikeOut")
	assert.True(t, some("Highlight"))
	assert.True(t, some("strikeout"))
	assert.False(t, some("Text"))
}

func TestExtractLinks(t *testing.T) {
	te := newTestEnv(t, true)
	path := filepath.Join(te.root, "links.pdf")
	require.NoError(t, os.WriteFile(path, annotatedDoc(), 0644))

	var out struct {
		Results []linksResult `json:"results"`
	}
	res := te.call(t, "extract_links", map[string]any{"sources": []any{map[string]any{"path": path}}})
	decodeOutput(t, res, &out)
	require.Len(t, out.Results, 1)
	require.Equal(t, 2, out.Results[0].TotalCount)
	assert.Equal(t, "https://example.com", out.Results[0].Links[0].URL)
	assert.Equal(t, 2, out.Results[0].Links[0].Page)
	assert.Equal(t, 1, out.Results[0].Links[1].DestPage)

	res = te.call(t, "extract_links", map[string]any{"sources": []any{map[string]any{"path": path}}, "pages": "3"})
	decodeOutput(t, res, &out)
	require.Equal(t, 1, out.Results[0].TotalCount)
	assert.Equal(t, 3, out.Results[0].Links[0].Page)
}
