package handler

import "github.com/erp/portalsync/internal/interfaces/http/dto"

// APIResponse documents the ok envelope with a typed data field.
// @Description Standard response envelope
type APIResponse[T any] struct {
	OK   bool      `json:"ok" example:"true"`
	Data T         `json:"data,omitempty"`
	Meta *dto.Meta `json:"meta,omitempty"`
}

// ErrorResponse documents the error envelope.
// @Description Error response envelope
type ErrorResponse struct {
	OK    bool           `json:"ok" example:"false"`
	Error *dto.ErrorInfo `json:"error"`
}

// JobFailureResponse documents a failed trigger carrying its partial report.
// @Description Failed sync run with the counts committed before the error
type JobFailureResponse struct {
	OK    bool              `json:"ok" example:"false"`
	Error *dto.ErrorInfo    `json:"error"`
	Data  JobReportResponse `json:"data"`
}
