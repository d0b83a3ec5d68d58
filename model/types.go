// Package model provides domain types shared across packages.
package model

import (
	"fmt"
	"strings"
)

// SourceKind identifies which variant of a SourceRef is populated.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourcePath
	SourceInline
	SourceURL
	SourceCache
)

// String returns the wire name of the variant.
func (k SourceKind) String() string {
	switch k {
	case SourcePath:
		return "path"
	case SourceInline:
		return "base64"
	case SourceURL:
		return "url"
	case SourceCache:
		return "cache_key"
	default:
		return "unknown"
	}
}

// SourceRef is a caller-declared reference to a document. Exactly one field
// is populated; the populated field is authoritative and content is never
// sniffed to pick a variant.
type SourceRef struct {
	Path     string `json:"path,omitempty"`
	Base64   string `json:"base64,omitempty"`
	URL      string `json:"url,omitempty"`
	CacheKey string `json:"cache_key,omitempty"`
}

// PathSource creates a SourceRef for a local file.
func PathSource(path string) SourceRef { return SourceRef{Path: path} }

// InlineSource creates a SourceRef for base64-encoded data.
func InlineSource(data string) SourceRef { return SourceRef{Base64: data} }

// URLSource creates a SourceRef for a remote document.
func URLSource(url string) SourceRef { return SourceRef{URL: url} }

// CacheSource creates a SourceRef for a cached artifact.
func CacheSource(key string) SourceRef { return SourceRef{CacheKey: key} }

// Kind returns the populated variant, or SourceUnknown when zero or several
// fields are set.
func (s SourceRef) Kind() SourceKind {
	kind := SourceUnknown
	count := 0
	if s.Path != "" {
		kind, count = SourcePath, count+1
	}
	if s.Base64 != "" {
		kind, count = SourceInline, count+1
	}
	if s.URL != "" {
		kind, count = SourceURL, count+1
	}
	if s.CacheKey != "" {
		kind, count = SourceCache, count+1
	}
	if count != 1 {
		return SourceUnknown
	}
	return kind
}

// Validate checks that exactly one variant is populated.
func (s SourceRef) Validate() error {
	if s.Kind() == SourceUnknown {
		return fmt.Errorf("source must set exactly one of path, url, base64, cache_key")
	}
	return nil
}

// DisplayName returns a diagnostic name that never includes document bytes.
func (s SourceRef) DisplayName() string {
	switch s.Kind() {
	case SourcePath:
		return s.Path
	case SourceURL:
		return s.URL
	case SourceInline:
		return "<base64>"
	case SourceCache:
		return "<cache:" + s.CacheKey + ">"
	default:
		return "<invalid source>"
	}
}

// ResolvedSource holds bytes owned by a single resolving call.
type ResolvedSource struct {
	Data        []byte
	DisplayName string
}

// DocumentInfo is the document information reported by the reading engine.
type DocumentInfo struct {
	Title            string `json:"title,omitempty"`
	Author           string `json:"author,omitempty"`
	Subject          string `json:"subject,omitempty"`
	Creator          string `json:"creator,omitempty"`
	Producer         string `json:"producer,omitempty"`
	CreationDate     string `json:"creation_date,omitempty"`
	ModificationDate string `json:"modification_date,omitempty"`
	PageCount        int    `json:"page_count"`
	Encrypted        bool   `json:"encrypted,omitempty"`
}

// PDFFileInfo describes a PDF found on disk.
type PDFFileInfo struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified,omitempty"`
}

// HasPDFExtension reports whether name ends in .pdf (case-insensitive).
func HasPDFExtension(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
