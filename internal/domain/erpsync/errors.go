package erpsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the stable classification of a sync failure.
type ErrorKind string

const (
	KindTransient    ErrorKind = "transient"
	KindRemote       ErrorKind = "remote"
	KindMalformed    ErrorKind = "malformed"
	KindPersistence  ErrorKind = "persistence"
	KindUnauthorized ErrorKind = "unauthorized"
	KindInvalidInput ErrorKind = "invalid_input"
	KindNotFound     ErrorKind = "not_found"
	KindCanceled     ErrorKind = "canceled"
	KindInternal     ErrorKind = "internal"
)

// MaxBodyExcerpt bounds the response body kept on a remote error.
const MaxBodyExcerpt = 500

// Sentinel errors usable with errors.Is. Matching is by Kind only.
var (
	ErrTransient    = &SyncError{Kind: KindTransient}
	ErrRemote       = &SyncError{Kind: KindRemote}
	ErrMalformed    = &SyncError{Kind: KindMalformed}
	ErrPersistence  = &SyncError{Kind: KindPersistence}
	ErrUnauthorized = &SyncError{Kind: KindUnauthorized}
	ErrInvalidInput = &SyncError{Kind: KindInvalidInput}
	ErrNotFound     = &SyncError{Kind: KindNotFound}
)

// SyncError is the error type surfaced by every sync component.
type SyncError struct {
	Kind    ErrorKind
	Code    string
	Message string

	// Tag identifies the remote call (query tag, script action) that failed.
	Tag string
	// Status is the HTTP status returned by the ERP, 0 when not applicable.
	Status int
	// RemoteCode is the provider error code parsed from the body, if any.
	RemoteCode string
	// Body is a truncated copy of the remote response body.
	Body string

	Err error
}

func (e *SyncError) Error() string {
	var b strings.Builder
	b.WriteString("erpsync: ")
	b.WriteString(string(e.Kind))
	if e.Tag != "" {
		b.WriteString(" [")
		b.WriteString(e.Tag)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d", e.Status)
		if e.RemoteCode != "" {
			b.WriteString(", ")
			b.WriteString(e.RemoteCode)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a SyncError of the same kind.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// NewRemoteError builds a non-retryable remote failure.
func NewRemoteError(tag string, status int, remoteCode string, body []byte) *SyncError {
	return &SyncError{
		Kind:       KindRemote,
		Code:       "REMOTE_REQUEST_FAILED",
		Message:    "remote request failed",
		Tag:        tag,
		Status:     status,
		RemoteCode: remoteCode,
		Body:       Excerpt(body),
	}
}

// NewMalformedError reports an export or payload that cannot be used.
func NewMalformedError(code, format string, args ...any) *SyncError {
	return &SyncError{
		Kind:    KindMalformed,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewPersistenceError wraps a store failure for the named operation.
func NewPersistenceError(op string, err error) *SyncError {
	return &SyncError{
		Kind:    KindPersistence,
		Code:    "PERSISTENCE_FAILED",
		Message: op,
		Err:     err,
	}
}

// NewInvalidInputError reports a bad job parameter.
func NewInvalidInputError(format string, args ...any) *SyncError {
	return &SyncError{
		Kind:    KindInvalidInput,
		Code:    "INVALID_PARAMETER",
		Message: fmt.Sprintf(format, args...),
	}
}

// NewNotFoundError reports a missing audit record.
func NewNotFoundError(what string) *SyncError {
	return &SyncError{
		Kind:    KindNotFound,
		Code:    "NOT_FOUND",
		Message: what + " not found",
	}
}

// KindOf classifies any error. Context errors map to KindCanceled.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindInternal
}

// Excerpt truncates a body for diagnostics.
func Excerpt(body []byte) string {
	if len(body) <= MaxBodyExcerpt {
		return string(body)
	}
	return string(body[:MaxBodyExcerpt]) + "..."
}
