// Package engine is the boundary to the document engines.
//
// Information Hiding:
// - pdfcpu configuration, reader/writer plumbing and error shapes hidden
// - Blocking engine calls run on a bounded worker pool, never on the caller's goroutine
package engine

import (
	"context"

	"github.com/richinex/pdfmcp/model"
)

// Reader reads document structure from validated bytes.
type Reader interface {
	PageCount(data []byte, password string) (int, error)
	Info(data []byte, password string) (model.DocumentInfo, error)
	PageInfo(data []byte, password string) ([]model.PageInfo, error)
	Outline(data []byte, password string) ([]model.OutlineItem, error)
	Annotations(data []byte, password string) ([]model.Annotation, error)
	Links(data []byte, password string) ([]model.Link, error)
	FormFields(data []byte, password string) ([]model.FormField, error)
}

// Manipulator produces new documents from validated bytes.
// Page numbers are 1-indexed.
type Manipulator interface {
	SelectPages(data []byte, pages []int, password string) ([]byte, error)
	Merge(docs [][]byte) ([]byte, error)
	Encrypt(data []byte, opts EncryptOptions) ([]byte, error)
	Decrypt(data []byte, password string) ([]byte, error)
	Optimize(data []byte, opts OptimizeOptions) ([]byte, error)
	FillForm(data []byte, values []model.FieldValue, password string) ([]byte, model.FillReport, error)
}

// Engine combines both roles.
type Engine interface {
	Reader
	Manipulator
}

// Permissions names a preset of document permissions.
type Permissions string

const (
	PermissionsAll   Permissions = "all"
	PermissionsPrint Permissions = "print"
	PermissionsNone  Permissions = "none"
)

// EncryptOptions configures encryption.
type EncryptOptions struct {
	Password      string // password of the source document, if already encrypted
	UserPassword  string
	OwnerPassword string // defaults to UserPassword
	Permissions   Permissions
}

// ObjectStreams controls object stream handling when optimizing.
type ObjectStreams string

const (
	ObjectStreamsGenerate ObjectStreams = "generate"
	ObjectStreamsPreserve ObjectStreams = "preserve"
	ObjectStreamsDisable  ObjectStreams = "disable"
)

// OptimizeOptions configures optimization.
type OptimizeOptions struct {
	Password      string
	ObjectStreams ObjectStreams
}

// Service runs engine calls on a Pool. All methods block the caller until the
// call finishes or ctx is done; an engine call that has started always runs
// to completion.
type Service struct {
	engine Engine
	pool   *Pool
}

// NewService creates a Service.
func NewService(engine Engine, pool *Pool) *Service {
	return &Service{engine: engine, pool: pool}
}

// Pool returns the underlying worker pool.
func (s *Service) Pool() *Pool {
	return s.pool
}

func (s *Service) PageCount(ctx context.Context, data []byte, password string) (int, error) {
	return Submit(ctx, s.pool, func() (int, error) {
		return s.engine.PageCount(data, password)
	})
}

func (s *Service) Info(ctx context.Context, data []byte, password string) (model.DocumentInfo, error) {
	return Submit(ctx, s.pool, func() (model.DocumentInfo, error) {
		return s.engine.Info(data, password)
	})
}

func (s *Service) PageInfo(ctx context.Context, data []byte, password string) ([]model.PageInfo, error) {
	return Submit(ctx, s.pool, func() ([]model.PageInfo, error) {
		return s.engine.PageInfo(data, password)
	})
}

func (s *Service) Outline(ctx context.Context, data []byte, password string) ([]model.OutlineItem, error) {
	return Submit(ctx, s.pool, func() ([]model.OutlineItem, error) {
		return s.engine.Outline(data, password)
	})
}

func (s *Service) Annotations(ctx context.Context, data []byte, password string) ([]model.Annotation, error) {
	return Submit(ctx, s.pool, func() ([]model.Annotation, error) {
		return s.engine.Annotations(data, password)
	})
}

func (s *Service) Links(ctx context.Context, data []byte, password string) ([]model.Link, error) {
	return Submit(ctx, s.pool, func() ([]model.Link, error) {
		return s.engine.Links(data, password)
	})
}

func (s *Service) FormFields(ctx context.Context, data []byte, password string) ([]model.FormField, error) {
	return Submit(ctx, s.pool, func() ([]model.FormField, error) {
		return s.engine.FormFields(data, password)
	})
}

func (s *Service) SelectPages(ctx context.Context, data []byte, pages []int, password string) ([]byte, error) {
	return Submit(ctx, s.pool, func() ([]byte, error) {
		return s.engine.SelectPages(data, pages, password)
	})
}

func (s *Service) Merge(ctx context.Context, docs [][]byte) ([]byte, error) {
	return Submit(ctx, s.pool, func() ([]byte, error) {
		return s.engine.Merge(docs)
	})
}

func (s *Service) Encrypt(ctx context.Context, data []byte, opts EncryptOptions) ([]byte, error) {
	return Submit(ctx, s.pool, func() ([]byte, error) {
		return s.engine.Encrypt(data, opts)
	})
}

func (s *Service) Decrypt(ctx context.Context, data []byte, password string) ([]byte, error) {
	return Submit(ctx, s.pool, func() ([]byte, error) {
		return s.engine.Decrypt(data, password)
	})
}

func (s *Service) Optimize(ctx context.Context, data []byte, opts OptimizeOptions) ([]byte, error) {
	return Submit(ctx, s.pool, func() ([]byte, error) {
		return s.engine.Optimize(data, opts)
	})
}

type filled struct {
	data   []byte
	report model.FillReport
}

func (s *Service) FillForm(ctx context.Context, data []byte, values []model.FieldValue, password string) ([]byte, model.FillReport, error) {
	res, err := Submit(ctx, s.pool, func() (filled, error) {
		out, report, err := s.engine.FillForm(data, values, password)
		return filled{out, report}, err
	})
	return res.data, res.report, err
}
