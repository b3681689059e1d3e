package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/edvin/vpanel/internal/api/middleware"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/model"
)

func newSessionHandler(db *handlerMockDB) (*Session, *core.SessionService) {
	sessions := testSessions()
	return NewSession(core.NewAccountService(db), sessions), sessions
}

// withParsedSession issues a real token for stack and injects its parsed claims.
func withParsedSession(t *testing.T, sessions *core.SessionService, r *http.Request, stack ...core.Principal) *http.Request {
	t.Helper()
	token, claims, err := sessions.Issue(stack[0])
	require.NoError(t, err)
	for _, p := range stack[1:] {
		token, claims, err = sessions.Push(claims, p)
		require.NoError(t, err)
	}
	parsed, err := sessions.Parse(token)
	require.NoError(t, err)
	authz := core.NewAuthorizationContext(nil, parsed.Stack)
	return r.WithContext(mw.WithSession(r.Context(), parsed, authz))
}

func TestSessionMe_Impersonating(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, sqlContains("FROM accounts WHERE id"), mock.Anything).Return(&handlerMockRow{
		scanFunc: accountScan(model.Account{ID: 2, Login: "user@example.com", ACL: model.ACLUser}),
	})
	h, _ := newSessionHandler(db)
	rec := httptest.NewRecorder()
	r := withSession(newRequest(http.MethodGet, "/session", nil), adminPrincipal, userPrincipal)

	h.Me(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(rec)
	assert.Equal(t, true, body["impersonating"])
	assert.Equal(t, false, body["admin"])
	assert.Equal(t, "admin@example.com", body["true"].(map[string]any)["login"])
	assert.Equal(t, "user@example.com", body["acting"].(map[string]any)["login"])
}

func TestSessionSwitch_ToUser(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, sqlContains("FROM accounts WHERE id"), mock.Anything).Return(&handlerMockRow{
		scanFunc: accountScan(model.Account{ID: 2, Login: "user@example.com", ACL: model.ACLUser}),
	})
	h, sessions := newSessionHandler(db)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/session/switch/2", nil), "id", "2")

	h.Switch(rec, withParsedSession(t, sessions, r, adminPrincipal))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(rec)
	claims, err := sessions.Parse(body["token"].(string))
	require.NoError(t, err)
	require.Len(t, claims.Stack, 2)
	assert.Equal(t, int64(1), claims.True().ID)
	assert.Equal(t, int64(2), claims.Acting().ID)
}

func TestSessionSwitch_Self(t *testing.T) {
	db := &handlerMockDB{}
	h, sessions := newSessionHandler(db)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/session/switch/1", nil), "id", "1")

	h.Switch(rec, withParsedSession(t, sessions, r, adminPrincipal))

	assert.Equal(t, http.StatusConflict, rec.Code)
	db.AssertNotCalled(t, "QueryRow", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionSwitch_UnknownAccount(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, sqlContains("FROM accounts WHERE id"), mock.Anything).Return(errRow(pgx.ErrNoRows))
	h, sessions := newSessionHandler(db)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/session/switch/99", nil), "id", "99")

	h.Switch(rec, withParsedSession(t, sessions, r, adminPrincipal))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionSwitchBack_RestoresTrueIdentity(t *testing.T) {
	h, sessions := newSessionHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/session/switch-back", nil)

	h.SwitchBack(rec, withParsedSession(t, sessions, r, adminPrincipal, userPrincipal))

	require.Equal(t, http.StatusOK, rec.Code)
	claims, err := sessions.Parse(decodeBody(rec)["token"].(string))
	require.NoError(t, err)
	assert.Len(t, claims.Stack, 1)
	assert.Equal(t, int64(1), claims.Acting().ID)
}

func TestSessionSwitchBack_NotImpersonating(t *testing.T) {
	h, sessions := newSessionHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/session/switch-back", nil)

	h.SwitchBack(rec, withParsedSession(t, sessions, r, userPrincipal))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionSwitchBack_NoSession(t *testing.T) {
	h, _ := newSessionHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()

	h.SwitchBack(rec, newRequest(http.MethodPost, "/session/switch-back", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
