package engine

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/model"
)

var disableConfigDir sync.Once

// PDFCPU implements Engine with pdfcpu. It is stateless; every call builds
// its own configuration, so one value may serve concurrent calls.
type PDFCPU struct{}

// NewPDFCPU creates the pdfcpu engine. pdfcpu's on-disk configuration
// directory is disabled so the server never writes outside its sandbox.
func NewPDFCPU() *PDFCPU {
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFCPU{}
}

func newConfig(password string) *pdfmodel.Configuration {
	conf := pdfmodel.NewDefaultConfiguration()
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	return conf
}

// PageCount returns the number of pages.
func (e *PDFCPU) PageCount(data []byte, password string) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), newConfig(password))
	if err != nil {
		return 0, classify("page count failed", err)
	}
	return n, nil
}

// Info returns the document information dictionary and page count.
func (e *PDFCPU) Info(data []byte, password string) (model.DocumentInfo, error) {
	ctx, err := e.read(data, password)
	if err != nil {
		return model.DocumentInfo{}, err
	}
	return model.DocumentInfo{
		Title:            ctx.Title,
		Author:           ctx.Author,
		Subject:          ctx.Subject,
		Creator:          ctx.Creator,
		Producer:         ctx.Producer,
		CreationDate:     ctx.XRefTable.CreationDate,
		ModificationDate: ctx.ModDate,
		PageCount:        ctx.PageCount,
		Encrypted:        ctx.Encrypt != nil,
	}, nil
}

// SelectPages writes a document holding pages in the given order.
// Repeated pages are repeated in the output.
func (e *PDFCPU) SelectPages(data []byte, pages []int, password string) ([]byte, error) {
	if len(pages) == 0 {
		return nil, apperrors.New(apperrors.KindInvalidPageRange, "selection is empty")
	}
	var out bytes.Buffer
	if err := api.Collect(bytes.NewReader(data), &out, selection(pages), newConfig(password)); err != nil {
		return nil, classify("select pages failed", err)
	}
	return out.Bytes(), nil
}

// Merge concatenates docs in order.
func (e *PDFCPU) Merge(docs [][]byte) ([]byte, error) {
	if len(docs) < 2 {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "merge needs at least two documents")
	}
	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d)
	}
	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, newConfig("")); err != nil {
		return nil, classify("merge failed", err)
	}
	return out.Bytes(), nil
}

// Encrypt applies AES-256 encryption.
func (e *PDFCPU) Encrypt(data []byte, opts EncryptOptions) ([]byte, error) {
	if opts.UserPassword == "" {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "user password is required")
	}
	src := data
	if opts.Password != "" {
		plain, err := e.Decrypt(data, opts.Password)
		if err != nil {
			return nil, err
		}
		src = plain
	}

	conf := pdfmodel.NewDefaultConfiguration()
	conf.UserPW = opts.UserPassword
	conf.OwnerPW = opts.OwnerPassword
	if conf.OwnerPW == "" {
		conf.OwnerPW = opts.UserPassword
	}
	conf.EncryptUsingAES = true
	conf.EncryptKeyLength = 256
	switch opts.Permissions {
	case PermissionsNone:
		conf.Permissions = pdfmodel.PermissionsNone
	case PermissionsPrint:
		conf.Permissions = pdfmodel.PermissionsPrint
	default:
		conf.Permissions = pdfmodel.PermissionsAll
	}

	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(src), &out, conf); err != nil {
		return nil, classify("encrypt failed", err)
	}
	return out.Bytes(), nil
}

// Decrypt removes encryption using password.
func (e *PDFCPU) Decrypt(data []byte, password string) ([]byte, error) {
	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &out, newConfig(password)); err != nil {
		return nil, classify("decrypt failed", err)
	}
	return out.Bytes(), nil
}

// Optimize rewrites the document removing redundant objects.
func (e *PDFCPU) Optimize(data []byte, opts OptimizeOptions) ([]byte, error) {
	conf := newConfig(opts.Password)
	switch opts.ObjectStreams {
	case ObjectStreamsDisable:
		conf.WriteObjectStream = false
		conf.WriteXRefStream = false
	case ObjectStreamsPreserve:
	default:
		conf.WriteObjectStream = true
		conf.WriteXRefStream = true
	}

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, conf); err != nil {
		return nil, classify("optimize failed", err)
	}
	return out.Bytes(), nil
}

// selection converts 1-indexed pages to pdfcpu page selection strings.
func selection(pages []int) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = strconv.Itoa(p)
	}
	return out
}

// classify maps pdfcpu failures onto the error taxonomy. pdfcpu reports
// password problems only through its messages.
func classify(msg string, err error) error {
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "password") || strings.Contains(lower, "encrypted") && strings.Contains(lower, "decrypt") {
		return apperrors.Wrap(apperrors.KindIncorrectPassword, msg, err)
	}
	return apperrors.Wrap(apperrors.KindEngine, msg, err)
}
