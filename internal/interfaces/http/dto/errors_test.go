package dto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeSecretMissing, http.StatusUnauthorized},
		{ErrCodeUnknownJob, http.StatusNotFound},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind     erpsync.ErrorKind
		expected int
	}{
		{erpsync.KindTransient, http.StatusServiceUnavailable},
		{erpsync.KindRemote, http.StatusBadGateway},
		{erpsync.KindMalformed, http.StatusBadGateway},
		{erpsync.KindUnauthorized, http.StatusBadGateway},
		{erpsync.KindPersistence, http.StatusInternalServerError},
		{erpsync.KindInvalidInput, http.StatusBadRequest},
		{erpsync.KindNotFound, http.StatusNotFound},
		{erpsync.KindCanceled, http.StatusGatewayTimeout},
		{erpsync.KindInternal, http.StatusInternalServerError},
		{erpsync.ErrorKind("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusForKind(tt.kind))
		})
	}
}

func TestStatusForError(t *testing.T) {
	wrapped := fmt.Errorf("customers: %w", erpsync.NewRemoteError("customers", 400, "INVALID_SEARCH", nil))
	assert.Equal(t, http.StatusBadGateway, StatusForError(wrapped))
	assert.Equal(t, http.StatusGatewayTimeout, StatusForError(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(errors.New("boom")))
}

func TestErrorInfoFrom_SyncError(t *testing.T) {
	err := fmt.Errorf("run: %w", erpsync.NewRemoteError("instruments:88", 403, "INSUFFICIENT_PERMISSION", []byte("denied")))

	info := ErrorInfoFrom(err, "req-1")

	assert.Equal(t, "remote", info.Kind)
	assert.Equal(t, "REMOTE_REQUEST_FAILED", info.Code)
	assert.Equal(t, "remote request failed", info.Message)
	assert.Equal(t, "instruments:88", info.Tag)
	assert.Equal(t, 403, info.RemoteStatus)
	assert.Equal(t, "INSUFFICIENT_PERMISSION", info.RemoteCode)
	assert.Equal(t, "req-1", info.RequestID)
}

func TestErrorInfoFrom_HidesUnclassifiedMessages(t *testing.T) {
	info := ErrorInfoFrom(errors.New("dial tcp 10.0.0.3:5432: secret detail"), "")

	assert.Equal(t, "internal", info.Kind)
	assert.Equal(t, ErrCodeInternal, info.Code)
	assert.NotContains(t, info.Message, "10.0.0.3")
}

func TestErrorInfoFrom_Canceled(t *testing.T) {
	info := ErrorInfoFrom(fmt.Errorf("page 3: %w", context.Canceled), "req-2")

	assert.Equal(t, "canceled", info.Kind)
	assert.Equal(t, ErrCodeCanceled, info.Code)
}

func TestErrorInfoFrom_FillsBlankFields(t *testing.T) {
	info := ErrorInfoFrom(&erpsync.SyncError{Kind: erpsync.KindTransient}, "")

	assert.Equal(t, ErrCodeInternal, info.Code)
	assert.Equal(t, "transient failure", info.Message)
}

func TestFailureResponse_JSONShape(t *testing.T) {
	partial := erpsync.NewJobReport("customers", false)
	partial.Inserted = 7
	err := erpsync.NewPersistenceError("upsert erp_customers", errors.New("deadlock"))

	raw, mErr := json.Marshal(NewFailureResponse(err, "req-9", partial))
	require.NoError(t, mErr)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, false, body["ok"])

	errBody := body["error"].(map[string]any)
	assert.Equal(t, "persistence", errBody["kind"])
	assert.Equal(t, "PERSISTENCE_FAILED", errBody["code"])
	assert.Equal(t, "req-9", errBody["request_id"])
	assert.NotContains(t, errBody, "remote_status")

	data := body["data"].(map[string]any)
	assert.Equal(t, float64(7), data["inserted"])
}

func TestSuccessResponse_JSONShape(t *testing.T) {
	raw, err := json.Marshal(NewListResponse([]string{"a"}, 1, 20))
	require.NoError(t, err)

	assert.JSONEq(t, `{"ok":true,"data":["a"],"meta":{"count":1,"limit":20}}`, string(raw))
}

func TestValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("bad", "req", []ValidationDetail{{Field: "days", Message: "Must be at most 3650"}})

	assert.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_input", resp.Error.Kind)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
}
