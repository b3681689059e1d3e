package handler

import (
	"net/http"
	"time"

	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/api/response"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/model"
)

// Auth handles the unauthenticated sign-in endpoints. Each successful
// sign-in returns a fresh session token.
type Auth struct {
	accounts *core.AccountService
	sessions *core.SessionService
}

func NewAuth(accounts *core.AccountService, sessions *core.SessionService) *Auth {
	return &Auth{accounts: accounts, sessions: sessions}
}

type tokenResponse struct {
	Token         string           `json:"token"`
	ExpiresAt     time.Time        `json:"expires_at"`
	Account       *model.Account   `json:"account"`
	RememberToken string           `json:"remember_token,omitempty"`
	Stack         []core.Principal `json:"stack"`
}

func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req request.Login
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	a, err := h.accounts.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}

	var remember string
	if req.Remember {
		remember, err = h.accounts.IssueRememberToken(r.Context(), a.ID)
		if err != nil {
			response.WriteServiceError(w, r, err)
			return
		}
	}
	h.issue(w, r, a, remember)
}

// OTP signs in with a one-time code issued by an administrator.
func (h *Auth) OTP(w http.ResponseWriter, r *http.Request) {
	var req request.OTPLogin
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	a, err := h.accounts.VerifyOTP(r.Context(), req.Login, req.Code)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	h.issue(w, r, a, "")
}

// Remember signs in with a token handed out by a previous Login.
func (h *Auth) Remember(w http.ResponseWriter, r *http.Request) {
	var req request.RememberLogin
	if err := request.Decode(r, &req); err != nil {
		response.WriteDecodeError(w, err)
		return
	}

	a, err := h.accounts.AuthenticateRemember(r.Context(), req.Login, req.Token)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	h.issue(w, r, a, "")
}

func (h *Auth) issue(w http.ResponseWriter, r *http.Request, a *model.Account, remember string) {
	token, claims, err := h.sessions.Issue(core.PrincipalFor(a))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, tokenResponse{
		Token:         token,
		ExpiresAt:     claims.ExpiresAt.Time,
		Account:       a,
		RememberToken: remember,
		Stack:         claims.Stack,
	})
}
