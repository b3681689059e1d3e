package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	mw "github.com/edvin/vpanel/internal/api/middleware"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/model"
	"github.com/edvin/vpanel/internal/provision"
)

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// newRequestRaw creates a new HTTP request with a raw string body.
func newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeErrorResponse parses the JSON error response body into a map.
func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

// decodeBody parses any JSON response body into a generic map.
func decodeBody(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

// rejectedFields returns the field errors of a 422 response.
func rejectedFields(rec *httptest.ResponseRecorder) map[string]string {
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body.Errors
}

var (
	adminPrincipal = core.Principal{ID: 1, Login: "admin@example.com", Admin: true}
	userPrincipal  = core.Principal{ID: 2, Login: "user@example.com"}
)

// withSession injects a session whose stack is the given principals, bottom first.
func withSession(r *http.Request, stack ...core.Principal) *http.Request {
	claims := &core.Claims{Stack: stack}
	authz := core.NewAuthorizationContext(nil, stack)
	return r.WithContext(mw.WithSession(r.Context(), claims, authz))
}

func testSessions() *core.SessionService {
	return core.NewSessionService("test-secret", "vpanel-test", time.Hour)
}

func sqlContains(fragment string) any {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, fragment) })
}

func errRow(err error) *handlerMockRow {
	return &handlerMockRow{scanFunc: func(dest ...any) error { return err }}
}

// accountScan fills the columns scanned for an account.
func accountScan(a model.Account) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*int64)) = a.ID
		*(dest[1].(*int)) = a.Group
		*(dest[2].(*model.ACL)) = a.ACL
		*(dest[3].(*int)) = a.Vhosts
		*(dest[4].(*string)) = a.Login
		*(dest[5].(*string)) = a.FirstName
		*(dest[6].(*string)) = a.LastName
		*(dest[7].(**string)) = a.AltEmail
		*(dest[8].(*string)) = a.OTP
		*(dest[9].(*int64)) = a.OTPTTL
		*(dest[10].(*string)) = a.Cookie
		*(dest[11].(*string)) = a.WebPW
		*(dest[12].(*time.Time)) = a.CreatedAt
		*(dest[13].(*time.Time)) = a.UpdatedAt
		return nil
	}
}

// vhostScan fills the columns scanned from vhosts_view.
func vhostScan(v model.VirtualHost) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*int64)) = v.ID
		*(dest[1].(*int64)) = v.AccountID
		*(dest[2].(*string)) = v.Domain
		*(dest[3].(*string)) = v.Uname
		*(dest[4].(*int)) = v.UID
		*(dest[5].(*int)) = v.GID
		*(dest[6].(*int)) = v.Aliases
		*(dest[7].(*int)) = v.Mailboxes
		*(dest[8].(*int64)) = v.MailQuota
		*(dest[9].(*int64)) = v.DiskQuota
		*(dest[10].(*bool)) = v.Active
		*(dest[11].(*time.Time)) = v.CreatedAt
		*(dest[12].(*time.Time)) = v.UpdatedAt
		*(dest[13].(*int)) = v.NumMailboxes
		*(dest[14].(*int)) = v.NumAliases
		return nil
	}
}

// mailboxScan fills the columns scanned from vmails_view.
func mailboxScan(m model.Mailbox) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*int64)) = m.ID
		*(dest[1].(*int64)) = m.AccountID
		*(dest[2].(*int64)) = m.VhostID
		*(dest[3].(*int)) = m.UID
		*(dest[4].(*int)) = m.GID
		*(dest[5].(*bool)) = m.SpamFilter
		*(dest[6].(*bool)) = m.Active
		*(dest[7].(*int64)) = m.Quota
		*(dest[8].(*string)) = m.User
		*(dest[9].(*string)) = m.Home
		*(dest[10].(*string)) = m.Password
		*(dest[11].(*time.Time)) = m.CreatedAt
		*(dest[12].(*time.Time)) = m.UpdatedAt
		*(dest[13].(*string)) = m.Domain
		return nil
	}
}

// fakeRunner records commands and fails those named in fail.
type fakeRunner struct {
	mu     sync.Mutex
	ran    []string
	fail   map[string]string
	stdout map[string]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{fail: map[string]string{}, stdout: map[string]string{}}
}

func (f *fakeRunner) Run(_ context.Context, c provision.Command) provision.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, c.Name)
	if stderr, ok := f.fail[c.Name]; ok {
		return provision.Outcome{Command: c.Redacted(), ExitCode: 1, Stderr: stderr}
	}
	return provision.Outcome{Command: c.Redacted(), OK: true, Stdout: f.stdout[c.Name]}
}

func updateTag() pgconn.CommandTag { return pgconn.NewCommandTag("UPDATE 1") }
