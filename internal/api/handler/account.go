package handler

import (
	"net/http"
	"time"

	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/api/response"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/model"
)

type Account struct {
	svc *core.AccountService
}

func NewAccount(svc *core.AccountService) *Account {
	return &Account{svc: svc}
}

func (h *Account) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r)

	accounts, hasMore, err := h.svc.List(r.Context(), params)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []model.Account{}
	}

	var last int64
	if len(accounts) > 0 {
		last = accounts[len(accounts)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, accounts, cursorFor(hasMore, last), hasMore)
}

// Assignable lists the accounts that may own a virtual host.
func (h *Account) Assignable(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.ListAssignable(r.Context())
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"items": refs})
}

// Roles lists the access levels an account can hold.
func (h *Account) Roles(w http.ResponseWriter, _ *http.Request) {
	response.WriteJSON(w, http.StatusOK, model.Roles())
}

func (h *Account) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAccount
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	a, err := h.svc.Create(r.Context(), core.AccountInput{
		Login:     req.Login,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AltEmail:  req.AltEmail,
		ACL:       aclPtr(req.ACL),
		Group:     req.Group,
		Vhosts:    req.Vhosts,
		Password:  req.WebPW,
	})
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}

	res := core.Reconcile(a.Login, "Account created successfully.", "")
	res.Data = a
	response.WriteResult(w, res, true)
}

func (h *Account) Get(w http.ResponseWriter, r *http.Request) {
	authz, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	a, err := h.svc.Get(r.Context(), authz, id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, a)
}

func (h *Account) Update(w http.ResponseWriter, r *http.Request) {
	authz, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req request.UpdateAccount
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	a, err := h.svc.Update(r.Context(), authz, id, core.AccountInput{
		Login:     req.Login,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AltEmail:  req.AltEmail,
		ACL:       aclPtr(req.ACL),
		Group:     req.Group,
		Vhosts:    req.Vhosts,
		Password:  req.WebPW,
	})
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}

	res := core.Reconcile(a.Login, "Account updated successfully.", "")
	res.Data = a
	response.WriteResult(w, res, false)
}

func (h *Account) Delete(w http.ResponseWriter, r *http.Request) {
	authz, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Delete(r.Context(), authz, id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteResult(w, res, false)
}

func (h *Account) BulkDelete(w http.ResponseWriter, r *http.Request) {
	authz, ok := caller(w, r)
	if !ok {
		return
	}

	var req request.BulkDelete
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}
	response.WriteBulk(w, h.svc.BulkDelete(r.Context(), authz, req.IDs))
}

type otpResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueOTP creates a one-time sign-in code for the account.
func (h *Account) IssueOTP(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	code, expires, err := h.svc.IssueOTP(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, otpResponse{Code: code, ExpiresAt: expires})
}
