package panelctl

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorded is one request seen by the fake API.
type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

type fakeAPI struct {
	*httptest.Server
	requests []recorded
	status   int
	reply    string
}

func newFakeAPI(t *testing.T, status int, reply string) *fakeAPI {
	t.Helper()
	f := &fakeAPI{status: status, reply: reply}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			json.Unmarshal(b, &rec.Body)
		}
		f.requests = append(f.requests, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		w.Write([]byte(f.reply))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) last(t *testing.T) recorded {
	t.Helper()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

// runCLI runs panelctl with a profile pointing at api and holding token.
func runCLI(t *testing.T, api *fakeAPI, token string, args ...string) (int, string, string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panelctl.toml")
	require.NoError(t, SaveProfile(path, &Profile{APIURL: api.URL, Token: token}))

	var stdout, stderr bytes.Buffer
	code := Run(append([]string{"-config", path}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String(), path
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"-config", filepath.Join(t.TempDir(), "p.toml")}, &stdout, &stderr)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr.String(), "Usage: panelctl")
}

func TestRun_UnknownCommand(t *testing.T) {
	api := newFakeAPI(t, 200, `{}`)
	code, _, stderr, _ := runCLI(t, api, "tok", "domain", "list")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `unknown command "domain"`)
	assert.Empty(t, api.requests)
}

func TestRun_VhostCreateSuccess(t *testing.T) {
	api := newFakeAPI(t, http.StatusCreated, `{"state":"success","message":"Virtual host created successfully.","data":{"id":4}}`)

	code, stdout, _, _ := runCLI(t, api, "tok",
		"vhost", "create", "domain=example.com", "aid:=1", "uid:=1000", "gid:=1000", "active:=true")

	assert.Equal(t, ExitSuccess, code)
	req := api.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/vhosts", req.Path)
	assert.Equal(t, "Bearer tok", req.Auth)
	assert.Equal(t, "example.com", req.Body["domain"])
	assert.Equal(t, float64(1000), req.Body["uid"])
	assert.Equal(t, true, req.Body["active"])
	assert.Contains(t, stdout, "state: success")
}

func TestRun_MailboxCreateFromFile(t *testing.T) {
	api := newFakeAPI(t, http.StatusCreated, `{"state":"success"}`)
	file := filepath.Join(t.TempDir(), "mailbox.yaml")
	require.NoError(t, os.WriteFile(file, []byte("hid: 3\nusername: info\npassword: \"12345678\"\n"), 0600))

	code, _, _, _ := runCLI(t, api, "tok", "mailbox", "create", "-f", file, "password_confirmation=12345678")

	assert.Equal(t, ExitSuccess, code)
	req := api.last(t)
	assert.Equal(t, float64(3), req.Body["hid"])
	assert.Equal(t, "12345678", req.Body["password"])
	assert.Equal(t, "12345678", req.Body["password_confirmation"])
}

func TestRun_DegradedExitCode(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"state":"degraded","message":"Mailbox created, but setup failed.","diagnostics":["addmailbox: exit 1"]}`)

	code, stdout, _, _ := runCLI(t, api, "tok", "-o", "json", "mailbox", "create", "hid:=1", "username=a")

	assert.Equal(t, ExitDegraded, code)
	assert.Contains(t, stdout, `"state": "degraded"`)
}

func TestRun_RejectedExitCode(t *testing.T) {
	api := newFakeAPI(t, http.StatusUnprocessableEntity, `{"state":"rejected","errors":{"source":"The source has already been taken."}}`)

	code, stdout, _, _ := runCLI(t, api, "tok", "alias", "create", "hid:=1", "source=info", "target=a@b.c")

	assert.Equal(t, ExitRejected, code)
	assert.Contains(t, stdout, "The source has already been taken.")
}

func TestRun_NotFoundIsError(t *testing.T) {
	api := newFakeAPI(t, http.StatusNotFound, `{"error":"not found"}`)

	code, stdout, stderr, _ := runCLI(t, api, "tok", "account", "show", "99")

	assert.Equal(t, ExitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "status 404: not found")
	assert.Equal(t, "/api/v1/accounts/99", api.last(t).Path)
}

func TestRun_ListQuery(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"items":[],"has_more":false}`)

	code, _, _, _ := runCLI(t, api, "tok", "mailbox", "list", "-limit", "5", "-search", "info", "-vhost", "2", "-active", "true")

	assert.Equal(t, ExitSuccess, code)
	req := api.last(t)
	assert.Equal(t, "/api/v1/mailboxes", req.Path)
	assert.Equal(t, "active=true&limit=5&search=info&vhost_id=2", req.Query)
}

func TestRun_UpdateDeleteBulk(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"state":"success"}`)

	code, _, _, _ := runCLI(t, api, "tok", "alias", "update", "5", "target=x@example.com")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, http.MethodPut, api.last(t).Method)
	assert.Equal(t, "/api/v1/aliases/5", api.last(t).Path)

	code, _, _, _ = runCLI(t, api, "tok", "alias", "delete", "5")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, http.MethodDelete, api.last(t).Method)

	code, _, _, _ = runCLI(t, api, "tok", "vhost", "bulk-delete", "1", "2")
	assert.Equal(t, ExitSuccess, code)
	req := api.last(t)
	assert.Equal(t, "/api/v1/vhosts/bulk-delete", req.Path)
	assert.Equal(t, []any{float64(1), float64(2)}, req.Body["ids"])
}

func TestRun_InvalidID(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)
	code, _, stderr, _ := runCLI(t, api, "tok", "vhost", "delete", "abc")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `invalid id "abc"`)
	assert.Empty(t, api.requests)
}

func TestRun_EntitySpecificVerbs(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"state":"success"}`)

	code, _, _, _ := runCLI(t, api, "tok", "vhost", "execute", "3", "restart")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "/api/v1/vhosts/3/execute", api.last(t).Path)
	assert.Equal(t, "restart", api.last(t).Body["command"])

	code, _, _, _ = runCLI(t, api, "tok", "mailbox", "stats", "8")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "/api/v1/mailboxes/8/stats", api.last(t).Path)

	code, _, _, _ = runCLI(t, api, "tok", "account", "otp", "2")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "/api/v1/accounts/2/otp", api.last(t).Path)

	code, _, stderr, _ := runCLI(t, api, "tok", "alias", "stats", "1")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `alias does not support "stats"`)
}

func TestRun_LoginStoresToken(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"token":"session-1","expires_at":"2026-01-01T00:00:00Z"}`)

	code, _, stderr, path := runCLI(t, api, "", "login", "-login", "admin@example.com", "-password", "secret")

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "Logged in as admin@example.com")
	req := api.last(t)
	assert.Equal(t, "/auth/login", req.Path)
	assert.Empty(t, req.Auth)
	assert.Equal(t, "secret", req.Body["password"])

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "session-1", p.Token)
	assert.Equal(t, "admin@example.com", p.Login)
}

func TestRun_LoginPasswordFromEnv(t *testing.T) {
	t.Setenv("PANELCTL_PASSWORD", "from-env")
	api := newFakeAPI(t, http.StatusOK, `{"token":"session-2"}`)

	code, _, _, _ := runCLI(t, api, "", "login", "-login", "admin@example.com")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "from-env", api.last(t).Body["password"])
}

func TestRun_LoginFailure(t *testing.T) {
	api := newFakeAPI(t, http.StatusUnauthorized, `{"error":"invalid credentials"}`)

	code, _, stderr, path := runCLI(t, api, "old", "login", "-login", "admin@example.com", "-password", "bad")

	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "invalid credentials")
	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", p.Token)
}

func TestRun_SwitchStoresNewToken(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"token":"impersonating","acting":{"id":5,"login":"user@example.com"}}`)

	code, stdout, _, path := runCLI(t, api, "admin-token", "switch", "5")

	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "/api/v1/session/switch/5", api.last(t).Path)
	assert.Equal(t, "Bearer admin-token", api.last(t).Auth)
	assert.NotContains(t, stdout, "impersonating")
	assert.Contains(t, stdout, "user@example.com")

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "impersonating", p.Token)
}

func TestRun_SwitchBackConflict(t *testing.T) {
	api := newFakeAPI(t, http.StatusConflict, `{"error":"not impersonating"}`)

	code, _, stderr, _ := runCLI(t, api, "tok", "switch-back")

	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "status 409")
}

func TestParseBody(t *testing.T) {
	body, err := parseBody([]string{"domain=example.com", "mailboxes:=10", "active:=false", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"domain":    "example.com",
		"mailboxes": 10,
		"active":    false,
		"note":      "a=b",
	}, body)

	_, err = parseBody([]string{"garbage"})
	assert.Error(t, err)
}
