package errors

import (
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := Wrap(KindIO, "read failed", io.ErrUnexpectedEOF)
	wrapped := fmt.Errorf("resolve: %w", base)

	if got := KindOf(wrapped); got != KindIO {
		t.Errorf("expected %s, got %s", KindIO, got)
	}
	if !Is(wrapped, KindIO) {
		t.Error("expected Is to match wrapped kind")
	}
	if KindOf(io.EOF) != KindInternal {
		t.Error("expected plain error to map to internal")
	}
}

func TestClientMessageStripsDetail(t *testing.T) {
	err := Newf(KindAccessDenied, "path outside sandbox", "path=%s", "/etc/shadow")

	if !strings.Contains(err.Error(), "/etc/shadow") {
		t.Errorf("expected full detail in Error(), got %q", err.Error())
	}
	msg := ClientMessage(err)
	if strings.Contains(msg, "/etc") {
		t.Errorf("client message leaked path: %q", msg)
	}

	big := Newf(KindDownloadTooLarge, "too large", "size=%d max=%d host=%s", 999999, 1024, "10.0.0.5")
	msg = ClientMessage(big)
	if strings.Contains(msg, "999999") || strings.Contains(msg, "10.0.0.5") {
		t.Errorf("client message leaked detail: %q", msg)
	}
}

func TestClientMessageKeepsPageRangeDetail(t *testing.T) {
	err := Newf(KindInvalidPageRange, "invalid page range", "page 12 out of bounds (1-10)")
	if got := ClientMessage(err); got != "invalid page range: page 12 out of bounds (1-10)" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestClientMessageUnknown(t *testing.T) {
	if got := ClientMessage(io.EOF); got != "internal error" {
		t.Errorf("expected internal error, got %q", got)
	}
	if got := ClientMessage(nil); got != "" {
		t.Errorf("expected empty message for nil, got %q", got)
	}
}
