package dto

import (
	"net/http"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// Error codes produced by the HTTP layer itself. Job failures carry the
// code of the underlying SyncError instead.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_FAILED"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeSecretMissing   = "SYNC_SECRET_NOT_CONFIGURED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnknownJob      = "UNKNOWN_JOB"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeCanceled        = "CANCELED"
	ErrCodeUnavailable     = "UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps HTTP-layer error codes to status codes.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeSecretMissing:   http.StatusUnauthorized,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeUnknownJob:      http.StatusNotFound,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeCanceled:        http.StatusGatewayTimeout,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
}

// KindHTTPStatus maps a sync failure kind to the status of the trigger
// response. An unauthorized kind means the ERP rejected our credentials,
// so the caller sees a gateway error rather than a 401.
var KindHTTPStatus = map[erpsync.ErrorKind]int{
	erpsync.KindTransient:    http.StatusServiceUnavailable,
	erpsync.KindRemote:       http.StatusBadGateway,
	erpsync.KindMalformed:    http.StatusBadGateway,
	erpsync.KindUnauthorized: http.StatusBadGateway,
	erpsync.KindPersistence:  http.StatusInternalServerError,
	erpsync.KindInvalidInput: http.StatusBadRequest,
	erpsync.KindNotFound:     http.StatusNotFound,
	erpsync.KindCanceled:     http.StatusGatewayTimeout,
	erpsync.KindInternal:     http.StatusInternalServerError,
}

// GetHTTPStatus returns the status for an HTTP-layer code, 500 if unknown.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusForKind returns the status for a sync failure kind, 500 if unknown.
func StatusForKind(kind erpsync.ErrorKind) int {
	if status, ok := KindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusForError classifies err and returns the matching status.
func StatusForError(err error) int {
	return StatusForKind(erpsync.KindOf(err))
}
