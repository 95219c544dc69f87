package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/portalsync/internal/domain/erpsync"
	"github.com/erp/portalsync/internal/interfaces/http/dto"
	"github.com/erp/portalsync/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.RequestIDKey, "req-test")
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestBaseHandler_Success(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Success(c, map[string]int{"inserted": 3})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"data":{"inserted":3}}`, w.Body.String())
}

func TestBaseHandler_SuccessList(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.SuccessList(c, []string{"a", "b"}, 2, 20)

	assert.JSONEq(t, `{"ok":true,"data":["a","b"],"meta":{"count":2,"limit":20}}`, w.Body.String())
}

func TestBaseHandler_BadRequestAndNotFound(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext()
	h.BadRequest(c, "nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["ok"])
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "invalid_input", errBody["kind"])
	assert.Equal(t, dto.ErrCodeBadRequest, errBody["code"])
	assert.Equal(t, "req-test", errBody["request_id"])

	c, w = newTestContext()
	h.NotFound(c, dto.ErrCodeUnknownJob, "unknown sync job x")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"transient", &erpsync.SyncError{Kind: erpsync.KindTransient, Code: "RETRIES_EXHAUSTED", Message: "gave up"}, http.StatusServiceUnavailable, "transient"},
		{"remote", erpsync.NewRemoteError("etas", 400, "INVALID_SEARCH", nil), http.StatusBadGateway, "remote"},
		{"malformed", erpsync.NewMalformedError("BAD_MANIFEST", "manifest has no entry %q", "etas"), http.StatusBadGateway, "malformed"},
		{"persistence", erpsync.NewPersistenceError("upsert", errors.New("deadlock")), http.StatusInternalServerError, "persistence"},
		{"invalid input", erpsync.NewInvalidInputError("days out of range"), http.StatusBadRequest, "invalid_input"},
		{"not found", erpsync.NewNotFoundError("sync run"), http.StatusNotFound, "not_found"},
		{"canceled", fmt.Errorf("page 2: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "canceled"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			h.HandleError(c, tt.err, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["ok"])
			assert.NotContains(t, body, "data")
			assert.Equal(t, tt.wantKind, body["error"].(map[string]any)["kind"])
		})
	}
}

func TestBaseHandler_HandleErrorWithPartial(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, erpsync.NewPersistenceError("upsert", errors.New("x")), map[string]int{"inserted": 500})

	body := decode(t, w)
	assert.Equal(t, float64(500), body["data"].(map[string]any)["inserted"])
}

func TestBaseHandler_HandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, nil, nil)

	assert.Zero(t, w.Body.Len())
}
