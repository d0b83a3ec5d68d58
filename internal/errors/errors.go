// Package errors defines the coded error taxonomy shared by every layer of the
// server.
//
// Information Hiding:
// - Internal detail (paths, hosts, sizes) kept on the error for logging
// - Caller-visible text produced only through ClientMessage
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind identifies a class of failure for programmatic handling.
type Kind string

const (
	KindAccessDenied      Kind = "access_denied"
	KindSSRFBlocked       Kind = "ssrf_blocked"
	KindDownloadTooLarge  Kind = "download_too_large"
	KindCacheMiss         Kind = "cache_miss"
	KindCacheRejected     Kind = "cache_rejected"
	KindInvalidPageRange  Kind = "invalid_page_range"
	KindDecode            Kind = "decode_error"
	KindNotFound          Kind = "not_found"
	KindIO                Kind = "io_error"
	KindEngine            Kind = "engine_error"
	KindIncorrectPassword Kind = "incorrect_password"
	KindInvalidArgument   Kind = "invalid_argument"
	KindInvalidPDF        Kind = "invalid_pdf"
	KindNetwork           Kind = "network_error"
	KindTimeout           Kind = "timeout"
	KindInternal          Kind = "internal"
)

// Error wraps an underlying error with a kind, a short message and optional
// internal detail. Detail is never shown to callers.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a coded error whose detail is formatted from args.
func Newf(kind Kind, message, detailFormat string, args ...any) *Error {
	return &Error{Kind: kind, Message: message, Detail: fmt.Sprintf(detailFormat, args...)}
}

// Wrap creates a coded error that wraps an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first coded error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var clientMessages = map[Kind]string{
	KindAccessDenied:      "access denied: path is outside the allowed directories",
	KindSSRFBlocked:       "access denied: URL resolves to a private or internal address",
	KindDownloadTooLarge:  "download exceeds the maximum allowed size",
	KindCacheMiss:         "cache key not found (it may have been evicted)",
	KindCacheRejected:     "document is too large to cache",
	KindDecode:            "invalid base64 data",
	KindNotFound:          "file not found",
	KindIO:                "file operation failed",
	KindEngine:            "PDF processing failed",
	KindIncorrectPassword: "incorrect password for encrypted PDF",
	KindInvalidPDF:        "data is not a valid PDF document",
	KindNetwork:           "failed to download document",
	KindTimeout:           "operation timed out or was cancelled",
	KindInternal:          "internal error",
}

// ClientMessage returns the sanitized, caller-facing message for err.
// Page-range and argument errors keep their message because it only echoes
// caller input; every other kind maps to a fixed string.
func ClientMessage(err error) string {
	if err == nil {
		return ""
	}
	var coded *Error
	if !stderrors.As(err, &coded) {
		return clientMessages[KindInternal]
	}
	switch coded.Kind {
	case KindInvalidPageRange:
		if coded.Detail != "" {
			return "invalid page range: " + coded.Detail
		}
		return "invalid page range"
	case KindInvalidArgument:
		if coded.Message != "" {
			return "invalid argument: " + coded.Message
		}
		return "invalid argument"
	}
	if msg, ok := clientMessages[coded.Kind]; ok {
		return msg
	}
	return clientMessages[KindInternal]
}
