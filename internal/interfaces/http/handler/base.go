package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/portalsync/internal/domain/erpsync"
	"github.com/erp/portalsync/internal/infrastructure/logger"
	"github.com/erp/portalsync/internal/interfaces/http/dto"
	"github.com/erp/portalsync/internal/interfaces/http/middleware"
)

// BaseHandler provides the response helpers shared by all handlers.
type BaseHandler struct{}

// Success sends a 200 ok envelope.
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessList sends a 200 ok envelope with list metadata.
func (h *BaseHandler) SuccessList(c *gin.Context, data any, count, limit int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, count, limit))
}

// Error sends an error envelope for an HTTP-layer code.
func (h *BaseHandler) Error(c *gin.Context, kind erpsync.ErrorKind, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(kind, code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 for a malformed request.
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, erpsync.KindInvalidInput, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404.
func (h *BaseHandler) NotFound(c *gin.Context, code, message string) {
	h.Error(c, erpsync.KindNotFound, code, message)
}

// HandleError classifies err and sends the matching error envelope. A
// non-nil partial is attached as data so callers still see what was
// committed before the failure.
func (h *BaseHandler) HandleError(c *gin.Context, err error, partial any) {
	if err == nil {
		return
	}
	status := dto.StatusForError(err)
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("Request failed",
			zap.String("kind", string(erpsync.KindOf(err))),
			zap.Error(err),
		)
	}
	c.JSON(status, dto.NewFailureResponse(err, middleware.GetRequestID(c), partial))
}
