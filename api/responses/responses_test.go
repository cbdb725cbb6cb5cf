package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body types.Success[map[string]string]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "world", body.Data["hello"])
}

func TestWriteErrorStateConflictKeepsDetails(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &buf})

	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is not pending").
		WithDetails(map[string]any{"current_status": "delivered", "required_status": "pending"})
	WriteError(context.Background(), logg, w, err)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body types.Failure
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeStateConflict), body.Error.Code)
	assert.Equal(t, "delivery is not pending", body.Error.Message)
	details, ok := body.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "delivered", details["current_status"])

	assert.Contains(t, buf.String(), "request.rejected")
	assert.Contains(t, buf.String(), `"current_status":"delivered"`)
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &buf})

	w := httptest.NewRecorder()
	WriteError(context.Background(), logg, w, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body types.Failure
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.Nil(t, body.Error.Details)
	assert.Contains(t, buf.String(), "request.error")
}

func TestWriteErrorDependencyUsesPublicMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "accept delivery"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body types.Failure
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "dependency unavailable", body.Error.Message)
}

func TestWriteErrorEchoesRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "req-42")
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found"))

	var body types.Failure
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "req-42", body.Error.RequestID)
}

func TestWriteErrorOmitsDetailsWhenCodeForbidsThem(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found").WithDetails(map[string]any{"owner_id": 9})
	WriteError(context.Background(), nil, w, err)

	var raw map[string]map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.NotContains(t, raw["error"], "details")
	assert.Equal(t, "delivery not found", raw["error"]["message"])
}
