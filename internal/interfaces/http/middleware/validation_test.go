package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/portalsync/internal/interfaces/http/dto"
)

type boundQuery struct {
	Days  int      `form:"days" binding:"gte=0,lte=30"`
	IDs   []string `form:"ids" binding:"max=2"`
	Order string   `form:"order" binding:"omitempty,oneof=asc desc"`
}

func bindRouter() *gin.Engine {
	SetupValidator()
	r := gin.New()
	r.Use(RequestID())
	r.GET("/bind", func(c *gin.Context) {
		var q boundQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			AbortWithValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestValidation_FieldNamesFromTags(t *testing.T) {
	w := httptest.NewRecorder()
	bindRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bind?days=99&ids=1&ids=2&ids=3&order=up", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)

	byField := map[string]string{}
	for _, d := range resp.Error.Details {
		byField[d.Field] = d.Message
	}
	assert.Equal(t, "Must be at most 30", byField["days"])
	assert.Equal(t, "Must contain at most 2 entries", byField["ids"])
	assert.Equal(t, "Must be one of: asc desc", byField["order"])
}

func TestValidation_BindingErrorWithoutField(t *testing.T) {
	w := httptest.NewRecorder()
	bindRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bind?days=soon", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w.Body.Bytes())
	require.Len(t, resp.Error.Details, 1)
	assert.Empty(t, resp.Error.Details[0].Field)
}

func TestValidationDetails_PlainError(t *testing.T) {
	details := ValidationDetails(errors.New("boom"))
	require.Len(t, details, 1)
	assert.Equal(t, "boom", details[0].Message)
}
