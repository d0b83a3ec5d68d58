package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/internal/testpdf"
)

func newTestService() *Service {
	return NewService(NewPDFCPU(), NewPool(2))
}

func TestPDFCPUPageCountAndInfo(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	doc := testpdf.BuildWith(testpdf.Options{Pages: 3, Title: "Quarterly", Author: "Ops"})

	n, err := svc.PageCount(ctx, doc, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	info, err := svc.Info(ctx, doc, "")
	require.NoError(t, err)
	assert.Equal(t, 3, info.PageCount)
	assert.Equal(t, "Quarterly", info.Title)
	assert.Equal(t, "Ops", info.Author)
	assert.False(t, info.Encrypted)
}

func TestPDFCPUSelectPages(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	out, err := svc.SelectPages(ctx, testpdf.Build(5), []int{5, 1, 3}, "")
	require.NoError(t, err)

	n, err := svc.PageCount(ctx, out, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = svc.SelectPages(ctx, testpdf.Build(2), nil, "")
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidPageRange))
}

func TestPDFCPUMerge(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	out, err := svc.Merge(ctx, [][]byte{testpdf.Build(2), testpdf.Build(3)})
	require.NoError(t, err)
	n, err := svc.PageCount(ctx, out, "")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = svc.Merge(ctx, [][]byte{testpdf.Build(1)})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))
}

func TestPDFCPUEncryptDecrypt(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	locked, err := svc.Encrypt(ctx, testpdf.Build(2), EncryptOptions{UserPassword: "s3cret", Permissions: PermissionsPrint})
	require.NoError(t, err)

	n, err := svc.PageCount(ctx, locked, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.Decrypt(ctx, locked, "wrong")
	require.Error(t, err)
	kind := apperrors.KindOf(err)
	assert.Contains(t, []apperrors.Kind{apperrors.KindIncorrectPassword, apperrors.KindEngine}, kind)

	plain, err := svc.Decrypt(ctx, locked, "s3cret")
	require.NoError(t, err)
	n, err = svc.PageCount(ctx, plain, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.Encrypt(ctx, testpdf.Build(1), EncryptOptions{})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidArgument))
}

func TestPDFCPUOptimize(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, mode := range []ObjectStreams{ObjectStreamsGenerate, ObjectStreamsPreserve, ObjectStreamsDisable} {
		out, err := svc.Optimize(ctx, testpdf.Build(4), OptimizeOptions{ObjectStreams: mode})
		require.NoError(t, err, mode)
		n, err := svc.PageCount(ctx, out, "")
		require.NoError(t, err, mode)
		assert.Equal(t, 4, n, mode)
	}
}

func TestPDFCPURejectsGarbage(t *testing.T) {
	svc := newTestService()
	_, err := svc.PageCount(context.Background(), []byte("not a pdf"), "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindEngine))
}
