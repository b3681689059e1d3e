package handler

import (
	"errors"
	"net/http"

	mw "github.com/edvin/vpanel/internal/api/middleware"
	"github.com/edvin/vpanel/internal/api/response"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/model"
)

// Session reports and changes the identity stack of the current session.
type Session struct {
	accounts *core.AccountService
	sessions *core.SessionService
}

func NewSession(accounts *core.AccountService, sessions *core.SessionService) *Session {
	return &Session{accounts: accounts, sessions: sessions}
}

type meResponse struct {
	Account       *model.Account `json:"account"`
	Acting        core.Principal `json:"acting"`
	True          core.Principal `json:"true"`
	Impersonating bool           `json:"impersonating"`
	Admin         bool           `json:"admin"`
}

type switchResponse struct {
	Token  string           `json:"token"`
	Acting core.Principal   `json:"acting"`
	True   core.Principal   `json:"true"`
	Stack  []core.Principal `json:"stack"`
}

func (h *Session) Me(w http.ResponseWriter, r *http.Request) {
	authz, ok := caller(w, r)
	if !ok {
		return
	}

	a, err := h.accounts.GetByID(r.Context(), authz.Acting.ID)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, meResponse{
		Account:       a,
		Acting:        authz.Acting,
		True:          authz.True,
		Impersonating: authz.Impersonating(),
		Admin:         authz.HasAdminCapability(r.Context()),
	})
}

// Switch makes the session act as the account in the path.
func (h *Session) Switch(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())
	if claims == nil {
		response.WriteError(w, http.StatusUnauthorized, "missing session")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if claims.Acting().ID == id {
		response.WriteError(w, http.StatusConflict, "already acting as that account")
		return
	}

	target, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}

	token, next, err := h.sessions.Push(claims, core.PrincipalFor(target))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	writeSwitch(w, token, next)
}

// SwitchBack returns the session to the identity it switched from.
func (h *Session) SwitchBack(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())
	if claims == nil {
		response.WriteError(w, http.StatusUnauthorized, "missing session")
		return
	}

	token, next, err := h.sessions.Pop(claims)
	if errors.Is(err, core.ErrNoImpersonation) {
		response.WriteError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	writeSwitch(w, token, next)
}

func writeSwitch(w http.ResponseWriter, token string, c *core.Claims) {
	response.WriteJSON(w, http.StatusOK, switchResponse{
		Token:  token,
		Acting: c.Acting(),
		True:   c.True(),
		Stack:  c.Stack,
	})
}
