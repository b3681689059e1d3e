package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/core"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	payload := map[string]string{"hello": "world"}

	WriteJSON(w, http.StatusOK, payload)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "world", body["hello"])
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, http.StatusBadRequest, "something went wrong")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "something went wrong", body["error"])
}

func TestWriteJSON_NilValue(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	// json.Encode(nil) produces "null\n"
	assert.Equal(t, "null\n", w.Body.String())
}

func TestWriteRejected(t *testing.T) {
	w := httptest.NewRecorder()

	WriteRejected(w, map[string]string{"hid": "This virtual host has reached its mailbox limit."})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rejected", body["state"])
	assert.Equal(t, map[string]any{"hid": "This virtual host has reached its mailbox limit."}, body["errors"])
}

func TestWriteResult(t *testing.T) {
	tests := []struct {
		name    string
		res     *core.Result
		created bool
		status  int
	}{
		{"created", &core.Result{State: core.StateSuccess}, true, http.StatusCreated},
		{"updated", &core.Result{State: core.StateSuccess}, false, http.StatusOK},
		{"degraded create", &core.Result{State: core.StateDegraded, Diagnostics: []string{"boom"}}, true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteResult(w, tt.res, tt.created)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, string(tt.res.State), body["state"])
		})
	}
}

func TestWriteBulk(t *testing.T) {
	w := httptest.NewRecorder()
	res := &core.BulkResult{
		Requested: 2,
		Succeeded: []core.RowResult{{ID: 1, Subject: "a.example"}},
		Failed:    []core.RowResult{{ID: 2, Diagnostic: "boom"}},
	}

	WriteBulk(w, res)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["state"])
	assert.Equal(t, "1 succeeded, 1 had cleanup issues", body["message"])
	assert.Equal(t, float64(2), body["requested"])
	assert.Len(t, body["failed"], 1)
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &core.ValidationError{Fields: map[string]string{"id": core.SelfDeleteMessage}}, http.StatusUnprocessableEntity},
		{"shape", &request.ValidationFailure{Fields: map[string]string{"domain": "is required"}}, http.StatusUnprocessableEntity},
		{"authorization", &core.AuthorizationError{Reason: "admin only"}, http.StatusForbidden},
		{"not found", fmt.Errorf("wrapped: %w", &core.NotFoundError{Kind: "vhost", ID: int64(3)}), http.StatusNotFound},
		{"credentials", core.ErrInvalidCredentials, http.StatusUnauthorized},
		{"other", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			WriteServiceError(w, r, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestWriteServiceError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteServiceError(w, r, errors.New("password authentication failed for user postgres"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
}

func TestWriteDecodeError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteDecodeError(w, errors.New("invalid JSON: unexpected EOF"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	WriteDecodeError(w, &request.ValidationFailure{Fields: map[string]string{"login": "is required"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
