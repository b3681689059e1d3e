package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/core"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// PaginatedResponse wraps a list with pagination metadata.
type PaginatedResponse struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// WritePaginated writes a paginated JSON response.
func WritePaginated(w http.ResponseWriter, status int, items any, nextCursor string, hasMore bool) {
	WriteJSON(w, status, PaginatedResponse{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	})
}

// RejectedResponse is the body of a mutation refused before anything was
// written.
type RejectedResponse struct {
	State  core.State        `json:"state"`
	Errors map[string]string `json:"errors"`
}

func WriteRejected(w http.ResponseWriter, fields map[string]string) {
	WriteJSON(w, http.StatusUnprocessableEntity, RejectedResponse{State: core.StateRejected, Errors: fields})
}

// WriteResult writes a reconciled mutation. created selects 201 for a
// successful create; a degraded result is always 200.
func WriteResult(w http.ResponseWriter, res *core.Result, created bool) {
	status := http.StatusOK
	if created && res.State == core.StateSuccess {
		status = http.StatusCreated
	}
	WriteJSON(w, status, res)
}

// BulkResponse is the body of a bulk operation.
type BulkResponse struct {
	State   core.State `json:"state"`
	Message string     `json:"message"`
	*core.BulkResult
}

func WriteBulk(w http.ResponseWriter, res *core.BulkResult) {
	WriteJSON(w, http.StatusOK, BulkResponse{State: res.State(), Message: res.Summary(), BulkResult: res})
}

// WriteServiceError maps a service or request error to its HTTP response.
// Unrecognised errors are logged and reported as 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	var vfail *request.ValidationFailure
	var aerr *core.AuthorizationError
	switch {
	case errors.As(err, &verr):
		WriteRejected(w, verr.Fields)
	case errors.As(err, &vfail):
		WriteRejected(w, vfail.Fields)
	case errors.As(err, &aerr):
		WriteError(w, http.StatusForbidden, aerr.Error())
	case errors.Is(err, core.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidCredentials), errors.Is(err, core.ErrInvalidSession):
		WriteError(w, http.StatusUnauthorized, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// WriteDecodeError reports a request body that failed to decode or validate.
func WriteDecodeError(w http.ResponseWriter, err error) {
	var vfail *request.ValidationFailure
	if errors.As(err, &vfail) {
		WriteRejected(w, vfail.Fields)
		return
	}
	WriteError(w, http.StatusBadRequest, err.Error())
}
