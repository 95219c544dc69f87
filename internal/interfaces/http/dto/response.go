package dto

import (
	"errors"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// Response is the envelope of every API response. OK discriminates
// success from failure; a failed job run still carries its partial report
// in Data.
type Response struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorInfo `json:"error,omitempty"`
	Meta  *Meta      `json:"meta,omitempty"`
}

// ErrorInfo describes a failure.
type ErrorInfo struct {
	Kind         string             `json:"kind"`
	Code         string             `json:"code"`
	Message      string             `json:"message"`
	Tag          string             `json:"tag,omitempty"`
	RemoteStatus int                `json:"remote_status,omitempty"`
	RemoteCode   string             `json:"remote_code,omitempty"`
	RequestID    string             `json:"request_id,omitempty"`
	Details      []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one rejected request field.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta describes a list response.
type Meta struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// NewSuccessResponse creates a success response.
func NewSuccessResponse(data any) Response {
	return Response{OK: true, Data: data}
}

// NewListResponse creates a success response for a bounded list.
func NewListResponse(data any, count, limit int) Response {
	return Response{
		OK:   true,
		Data: data,
		Meta: &Meta{Count: count, Limit: limit},
	}
}

// NewErrorResponse creates an error response for an HTTP-layer failure.
func NewErrorResponse(kind erpsync.ErrorKind, code, message, requestID string) Response {
	return Response{
		Error: &ErrorInfo{
			Kind:      string(kind),
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewValidationErrorResponse creates a 400 response with per-field details.
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponse(erpsync.KindInvalidInput, ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// NewFailureResponse renders err, attaching partial when it is not nil.
func NewFailureResponse(err error, requestID string, partial any) Response {
	return Response{
		Data:  partial,
		Error: ErrorInfoFrom(err, requestID),
	}
}

// ErrorInfoFrom converts any error into its wire form. Unclassified errors
// never expose their message.
func ErrorInfoFrom(err error, requestID string) *ErrorInfo {
	info := &ErrorInfo{RequestID: requestID}

	var se *erpsync.SyncError
	if errors.As(err, &se) {
		info.Kind = string(se.Kind)
		info.Code = se.Code
		info.Message = se.Message
		info.Tag = se.Tag
		info.RemoteStatus = se.Status
		info.RemoteCode = se.RemoteCode
		if info.Code == "" {
			info.Code = ErrCodeInternal
		}
		if info.Message == "" {
			info.Message = string(se.Kind) + " failure"
		}
		return info
	}

	switch erpsync.KindOf(err) {
	case erpsync.KindCanceled:
		info.Kind = string(erpsync.KindCanceled)
		info.Code = ErrCodeCanceled
		info.Message = "sync run canceled or timed out"
	default:
		info.Kind = string(erpsync.KindInternal)
		info.Code = ErrCodeInternal
		info.Message = "an unexpected error occurred"
	}
	return info
}
