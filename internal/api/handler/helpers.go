package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/vpanel/internal/api/middleware"
	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/api/response"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/model"
)

// pathID reads the {id} route parameter or writes a 400.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// caller returns the request's authorization context or writes a 401.
func caller(w http.ResponseWriter, r *http.Request) (*core.AuthorizationContext, bool) {
	authz := mw.GetAuthz(r.Context())
	if authz == nil {
		response.WriteError(w, http.StatusUnauthorized, "missing session")
		return nil, false
	}
	return authz, true
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func cursorFor(hasMore bool, lastID int64) string {
	if !hasMore {
		return ""
	}
	return strconv.FormatInt(lastID, 10)
}

func aclPtr(v *int) *model.ACL {
	if v == nil {
		return nil
	}
	acl := model.ACL(*v)
	return &acl
}
