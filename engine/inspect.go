package engine

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/richinex/pdfmcp/model"
)

func (e *PDFCPU) read(data []byte, password string) (*pdfmodel.Context, error) {
	ctx, err := api.ReadAndValidate(bytes.NewReader(data), newConfig(password))
	if err != nil {
		return nil, classify("read document failed", err)
	}
	return ctx, nil
}

// PageInfo reports the effective size and rotation of every page.
func (e *PDFCPU) PageInfo(data []byte, password string) ([]model.PageInfo, error) {
	ctx, err := e.read(data, password)
	if err != nil {
		return nil, err
	}
	boundaries, err := ctx.PageBoundaries(nil)
	if err != nil {
		return nil, classify("read page boundaries failed", err)
	}

	pages := make([]model.PageInfo, len(boundaries))
	for i, pb := range boundaries {
		var w, h float64
		if r := pb.CropBox(); r != nil {
			w, h = math.Abs(r.Width()), math.Abs(r.Height())
		}
		rot := (pb.Rot%360 + 360) % 360
		if rot%180 != 0 {
			w, h = h, w
		}
		orientation := "portrait"
		if w > h {
			orientation = "landscape"
		}
		pages[i] = model.PageInfo{
			Page:        i + 1,
			Width:       round2(w),
			Height:      round2(h),
			Rotation:    rot,
			Orientation: orientation,
		}
	}
	return pages, nil
}

// Outline returns the bookmark tree. A document without bookmarks yields an
// empty slice.
func (e *PDFCPU) Outline(data []byte, password string) ([]model.OutlineItem, error) {
	bookmarks, err := api.Bookmarks(bytes.NewReader(data), newConfig(password))
	if err != nil {
		return nil, classify("read outline failed", err)
	}
	return outlineItems(bookmarks), nil
}

func outlineItems(bookmarks []pdfcpu.Bookmark) []model.OutlineItem {
	items := make([]model.OutlineItem, 0, len(bookmarks))
	for _, bm := range bookmarks {
		items = append(items, model.OutlineItem{
			Title:    bm.Title,
			Page:     bm.PageFrom,
			Children: outlineItems(bm.Kids),
		})
	}
	return items
}

// Annotations returns every non-widget annotation in page order. Form field
// widgets are reported by FormFields instead.
func (e *PDFCPU) Annotations(data []byte, password string) ([]model.Annotation, error) {
	ctx, err := e.read(data, password)
	if err != nil {
		return nil, err
	}
	annots := []model.Annotation{}
	err = walkAnnots(ctx, func(page int, d types.Dict, _ map[int]int) {
		a := annotation(ctx, page, d)
		if a.Type == "Widget" {
			return
		}
		annots = append(annots, a)
	})
	if err != nil {
		return nil, classify("read annotations failed", err)
	}
	return annots, nil
}

// Links returns the link annotations that resolve to a URI or to a page of
// the document.
func (e *PDFCPU) Links(data []byte, password string) ([]model.Link, error) {
	ctx, err := e.read(data, password)
	if err != nil {
		return nil, err
	}
	if err := ctx.LocateNameTree("Dests", false); err != nil {
		return nil, classify("read named destinations failed", err)
	}
	links := []model.Link{}
	err = walkAnnots(ctx, func(page int, d types.Dict, pageOf map[int]int) {
		if st := d.NameEntry("Subtype"); st == nil || *st != "Link" {
			return
		}
		if l, ok := link(ctx, pageOf, page, d); ok {
			links = append(links, l)
		}
	})
	if err != nil {
		return nil, classify("read links failed", err)
	}
	return links, nil
}

// walkAnnots visits each annotation dictionary with its 1-indexed page and a
// map from page object number to page number.
func walkAnnots(ctx *pdfmodel.Context, visit func(page int, d types.Dict, pageOf map[int]int)) error {
	pageDicts := make([]types.Dict, ctx.PageCount)
	pageOf := make(map[int]int, ctx.PageCount)
	for p := 1; p <= ctx.PageCount; p++ {
		d, ref, _, err := ctx.PageDict(p, false)
		if err != nil {
			return err
		}
		pageDicts[p-1] = d
		if ref != nil {
			pageOf[ref.ObjectNumber.Value()] = p
		}
	}

	for i, pd := range pageDicts {
		o, found := pd.Find("Annots")
		if !found {
			continue
		}
		arr, err := ctx.DereferenceArray(o)
		if err != nil {
			return err
		}
		for _, item := range arr {
			d, err := ctx.DereferenceDict(item)
			if err != nil {
				return err
			}
			if d != nil {
				visit(i+1, d, pageOf)
			}
		}
	}
	return nil
}

func annotation(ctx *pdfmodel.Context, page int, d types.Dict) model.Annotation {
	a := model.Annotation{
		Page:     page,
		Contents: textEntry(ctx, d, "Contents"),
		Author:   textEntry(ctx, d, "T"),
		Created:  dateEntry(ctx, d, "CreationDate"),
		Modified: dateEntry(ctx, d, "M"),
		Bounds:   bounds(ctx, d),
		Color:    colorEntry(ctx, d),
	}
	if st := d.NameEntry("Subtype"); st != nil {
		a.Type = *st
	}
	return a
}

func link(ctx *pdfmodel.Context, pageOf map[int]int, page int, d types.Dict) (model.Link, bool) {
	l := model.Link{Page: page, Bounds: bounds(ctx, d)}

	if dest, found := d.Find("Dest"); found {
		l.DestPage = destPage(ctx, pageOf, dest)
	} else if o, found := d.Find("A"); found {
		action, err := ctx.DereferenceDict(o)
		if err != nil || action == nil {
			return l, false
		}
		switch s := action.NameEntry("S"); {
		case s == nil:
		case *s == "URI":
			l.URL = textEntry(ctx, action, "URI")
		case *s == "GoTo":
			if dest, found := action.Find("D"); found {
				l.DestPage = destPage(ctx, pageOf, dest)
			}
		}
	}
	return l, l.URL != "" || l.DestPage > 0
}

// destPage resolves an explicit or named destination to a page number, or 0.
func destPage(ctx *pdfmodel.Context, pageOf map[int]int, dest types.Object) int {
	o, err := ctx.Dereference(dest)
	if err != nil {
		return 0
	}

	var arr types.Array
	switch v := o.(type) {
	case types.Array:
		arr = v
	case types.Dict:
		// Named destinations may map to a dictionary holding /D.
		if d, found := v.Find("D"); found {
			return destPage(ctx, pageOf, d)
		}
	case types.Name:
		arr, _ = ctx.DereferenceDestArray(v.Value())
	case types.StringLiteral, types.HexLiteral:
		if name, err := ctx.DereferenceText(v); err == nil {
			arr, _ = ctx.DereferenceDestArray(name)
		}
	}
	if len(arr) == 0 {
		return 0
	}

	switch first := arr[0].(type) {
	case types.IndirectRef:
		return pageOf[first.ObjectNumber.Value()]
	case types.Integer:
		// Page indexes in remote destinations are zero based.
		return first.Value() + 1
	}
	return 0
}

func textEntry(ctx *pdfmodel.Context, d types.Dict, key string) string {
	o, found := d.Find(key)
	if !found {
		return ""
	}
	s, err := ctx.DereferenceText(o)
	if err != nil {
		return ""
	}
	return s
}

// dateEntry returns a PDF date as RFC 3339, or the raw string when it does
// not parse.
func dateEntry(ctx *pdfmodel.Context, d types.Dict, key string) string {
	s := textEntry(ctx, d, key)
	if s == "" {
		return ""
	}
	if t, ok := types.DateTime(s, true); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return s
}

func bounds(ctx *pdfmodel.Context, d types.Dict) *model.Bounds {
	o, found := d.Find("Rect")
	if !found {
		return nil
	}
	arr, err := ctx.DereferenceArray(o)
	if err != nil || len(arr) < 4 {
		return nil
	}
	r, err := ctx.RectForArray(arr)
	if err != nil {
		return nil
	}
	return &model.Bounds{
		Left:   round2(math.Min(r.LL.X, r.UR.X)),
		Top:    round2(math.Max(r.LL.Y, r.UR.Y)),
		Right:  round2(math.Max(r.LL.X, r.UR.X)),
		Bottom: round2(math.Min(r.LL.Y, r.UR.Y)),
	}
}

// colorEntry converts the /C array (gray, RGB or CMYK) to #rrggbb.
func colorEntry(ctx *pdfmodel.Context, d types.Dict) string {
	o, found := d.Find("C")
	if !found {
		return ""
	}
	arr, err := ctx.DereferenceArray(o)
	if err != nil {
		return ""
	}
	c := make([]float64, len(arr))
	for i, v := range arr {
		if c[i], err = ctx.DereferenceNumber(v); err != nil {
			return ""
		}
	}

	var r, g, b float64
	switch len(c) {
	case 1:
		r, g, b = c[0], c[0], c[0]
	case 3:
		r, g, b = c[0], c[1], c[2]
	case 4:
		k := 1 - c[3]
		r, g, b = (1-c[0])*k, (1-c[1])*k, (1-c[2])*k
	default:
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x", channel(r), channel(g), channel(b))
}

func channel(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
