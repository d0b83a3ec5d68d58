// Package testpdf writes small, well-formed PDF documents for tests.
package testpdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Options controls the generated document.
type Options struct {
	Pages  int
	Title  string
	Author string

	Rotate    map[int]int // page -> /Rotate
	Landscape map[int]bool

	Bookmarks []Bookmark
	Notes     []Note
	Links     []Link

	TextFields []TextField
	CheckBoxes []CheckBox
}

// Bookmark is a top-level outline item, optionally with one level of children.
type Bookmark struct {
	Title    string
	Page     int
	Children []Bookmark
}

// Note is a text annotation.
type Note struct {
	Page     int
	Contents string
	Author   string
	Modified string // PDF date string
}

// Link is a link annotation to either a URI or a page of the same document.
type Link struct {
	Page     int
	URI      string
	DestPage int
}

// TextField is a single-widget text form field.
type TextField struct {
	Page     int
	Name     string
	Value    string
	ReadOnly bool
}

// CheckBox is a single-widget check box form field.
type CheckBox struct {
	Page    int
	Name    string
	Checked bool
}

// Build returns a PDF with n blank pages.
func Build(n int) []byte {
	return BuildWith(Options{Pages: n})
}

type objects struct {
	bodies []string
}

func (o *objects) reserve() int {
	o.bodies = append(o.bodies, "")
	return len(o.bodies)
}

func (o *objects) set(n int, body string) {
	o.bodies[n-1] = body
}

func (o *objects) add(body string) int {
	n := o.reserve()
	o.set(n, body)
	return n
}

func refs(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d 0 R", n)
	}
	return strings.Join(parts, " ")
}

// BuildWith returns a PDF with a classic cross-reference table. Each page
// carries a tiny content stream naming its page number.
func BuildWith(opts Options) []byte {
	if opts.Pages < 1 {
		opts.Pages = 1
	}
	n := opts.Pages

	var objs objects
	catalog := objs.reserve()
	pagesObj := objs.reserve()

	info := "<< /Producer (testpdf)"
	if opts.Title != "" {
		info += fmt.Sprintf(" /Title (%s)", opts.Title)
	}
	if opts.Author != "" {
		info += fmt.Sprintf(" /Author (%s)", opts.Author)
	}
	info += " /CreationDate (D:20240101120000Z) >>"
	infoObj := objs.add(info)

	pageObjs := make([]int, n)
	contentObjs := make([]int, n)
	for i := 0; i < n; i++ {
		pageObjs[i] = objs.reserve()
		contentObjs[i] = objs.reserve()
	}
	pageRef := func(p int) int { return pageObjs[p-1] }

	annots := make(map[int][]int)
	for _, note := range opts.Notes {
		body := fmt.Sprintf("<< /Type /Annot /Subtype /Text /Rect [72 700 92 720] /Contents (%s) /C [1 1 0]", note.Contents)
		if note.Author != "" {
			body += fmt.Sprintf(" /T (%s)", note.Author)
		}
		if note.Modified != "" {
			body += fmt.Sprintf(" /M (%s)", note.Modified)
		}
		body += " >>"
		annots[note.Page] = append(annots[note.Page], objs.add(body))
	}
	for i, link := range opts.Links {
		y := 600 - 30*i
		body := fmt.Sprintf("<< /Type /Annot /Subtype /Link /Rect [72 %d 272 %d] /Border [0 0 0]", y, y+20)
		if link.URI != "" {
			body += fmt.Sprintf(" /A << /S /URI /URI (%s) >>", link.URI)
		} else {
			body += fmt.Sprintf(" /Dest [%d 0 R /Fit]", pageRef(link.DestPage))
		}
		body += " >>"
		annots[link.Page] = append(annots[link.Page], objs.add(body))
	}

	var fields []int
	var fontObj int
	if len(opts.TextFields) > 0 || len(opts.CheckBoxes) > 0 {
		fontObj = objs.add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	}
	for i, tf := range opts.TextFields {
		y := 400 - 40*i
		body := fmt.Sprintf("<< /Type /Annot /Subtype /Widget /FT /Tx /T (%s) /V (%s) /DA (/Helv 12 Tf 0 g) /Rect [72 %d 300 %d] /P %d 0 R /F 4",
			tf.Name, tf.Value, y, y+20, pageRef(tf.Page))
		if tf.ReadOnly {
			body += " /Ff 1"
		}
		body += " >>"
		obj := objs.add(body)
		fields = append(fields, obj)
		annots[tf.Page] = append(annots[tf.Page], obj)
	}
	for i, cb := range opts.CheckBoxes {
		mark := "0 0 m 12 12 l S"
		on := objs.add(fmt.Sprintf("<< /Type /XObject /Subtype /Form /BBox [0 0 12 12] /Length %d >>\nstream\n%s\nendstream", len(mark), mark))
		off := objs.add("<< /Type /XObject /Subtype /Form /BBox [0 0 12 12] /Length 0 >>\nstream\n\nendstream")
		state := "/Off"
		if cb.Checked {
			state = "/Yes"
		}
		y := 200 - 30*i
		obj := objs.add(fmt.Sprintf(
			"<< /Type /Annot /Subtype /Widget /FT /Btn /T (%s) /V %s /AS %s /Rect [72 %d 84 %d] /P %d 0 R /F 4 /AP << /N << /Yes %d 0 R /Off %d 0 R >> >> >>",
			cb.Name, state, state, y, y+12, pageRef(cb.Page), on, off))
		fields = append(fields, obj)
		annots[cb.Page] = append(annots[cb.Page], obj)
	}

	for i := 0; i < n; i++ {
		p := i + 1
		box := "[0 0 612 792]"
		if opts.Landscape[p] {
			box = "[0 0 792 612]"
		}
		page := fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox %s /Resources << >> /Contents %d 0 R", pagesObj, box, contentObjs[i])
		if r := opts.Rotate[p]; r != 0 {
			page += fmt.Sprintf(" /Rotate %d", r)
		}
		if a := annots[p]; len(a) > 0 {
			page += fmt.Sprintf(" /Annots [%s]", refs(a))
		}
		page += " >>"
		objs.set(pageObjs[i], page)
		stream := fmt.Sprintf("%% page %d\n0 0 m %d %d l S", p, 10+i, 10+i)
		objs.set(contentObjs[i], fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}
	objs.set(pagesObj, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", refs(pageObjs), n))

	cat := fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R", pagesObj)
	if len(opts.Bookmarks) > 0 {
		cat += fmt.Sprintf(" /Outlines %d 0 R", addOutline(&objs, opts.Bookmarks, pageRef))
	}
	if len(fields) > 0 {
		cat += fmt.Sprintf(" /AcroForm << /Fields [%s] /DA (/Helv 0 Tf 0 g) /DR << /Font << /Helv %d 0 R >> >> >>", refs(fields), fontObj)
	}
	cat += " >>"
	objs.set(catalog, cat)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs.bodies))
	for i, obj := range objs.bodies {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs.bodies)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf,
		"trailer\n<< /Size %d /Root %d 0 R /Info %d 0 R /ID [<0123456789abcdef0123456789abcdef> <0123456789abcdef0123456789abcdef>] >>\nstartxref\n%d\n%%%%EOF\n",
		len(objs.bodies)+1, catalog, infoObj, xref)
	return buf.Bytes()
}

// addOutline writes the outline root and its items and returns the root.
func addOutline(objs *objects, items []Bookmark, pageRef func(int) int) int {
	root := objs.reserve()
	first, last, count := addOutlineLevel(objs, items, root, pageRef)
	objs.set(root, fmt.Sprintf("<< /Type /Outlines /First %d 0 R /Last %d 0 R /Count %d >>", first, last, count))
	return root
}

func addOutlineLevel(objs *objects, items []Bookmark, parent int, pageRef func(int) int) (first, last, count int) {
	nums := make([]int, len(items))
	for i := range items {
		nums[i] = objs.reserve()
	}
	for i, item := range items {
		body := fmt.Sprintf("<< /Title (%s) /Parent %d 0 R /Dest [%d 0 R /Fit]", item.Title, parent, pageRef(item.Page))
		if i > 0 {
			body += fmt.Sprintf(" /Prev %d 0 R", nums[i-1])
		}
		if i < len(items)-1 {
			body += fmt.Sprintf(" /Next %d 0 R", nums[i+1])
		}
		count++
		if len(item.Children) > 0 {
			f, l, c := addOutlineLevel(objs, item.Children, nums[i], pageRef)
			body += fmt.Sprintf(" /First %d 0 R /Last %d 0 R /Count %d", f, l, c)
			count += c
		}
		body += " >>"
		objs.set(nums[i], body)
	}
	return nums[0], nums[len(nums)-1], count
}

// Base64 returns Build(n) encoded with standard base64.
func Base64(n int) string {
	return base64.StdEncoding.EncodeToString(Build(n))
}

// WriteFile writes Build(n) to dir/name and returns the path.
func WriteFile(dir, name string, n int) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(n), 0644); err != nil {
		return "", err
	}
	return path, nil
}
