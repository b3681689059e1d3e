package panelctl

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// entity describes one API collection and the verbs it supports beyond the
// common create/show/list/update/delete/bulk-delete set.
type entity struct {
	path  string
	extra map[string]bool
}

var entities = map[string]entity{
	"account": {path: "/api/v1/accounts", extra: map[string]bool{"otp": true, "roles": true}},
	"vhost":   {path: "/api/v1/vhosts", extra: map[string]bool{"execute": true, "mailboxes": true, "aliases": true, "active-mailboxes": true}},
	"mailbox": {path: "/api/v1/mailboxes", extra: map[string]bool{"execute": true, "stats": true}},
	"alias":   {path: "/api/v1/aliases", extra: map[string]bool{}},
}

// App runs panelctl commands against the writers it was given.
type App struct {
	Stdout io.Writer
	Stderr io.Writer

	profilePath string
	profile     *Profile
	format      string
}

// Run executes one panelctl invocation and returns its exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	app := &App{Stdout: stdout, Stderr: stderr}
	code, err := app.run(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if code == ExitSuccess {
			code = ExitError
		}
	}
	return code
}

func (a *App) run(args []string) (int, error) {
	fs := flag.NewFlagSet("panelctl", flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	apiURL := fs.String("api", "", "Panel API base URL (overrides the profile)")
	fs.StringVar(&a.format, "o", FormatYAML, "Output format: yaml or json")
	fs.StringVar(&a.profilePath, "config", "", "Profile file (default ~/.config/panelctl.toml)")
	fs.Usage = func() { printUsage(a.Stderr) }
	if err := fs.Parse(args); err != nil {
		return ExitError, nil
	}
	if a.format != FormatYAML && a.format != FormatJSON {
		return ExitError, fmt.Errorf("unknown output format %q", a.format)
	}

	if a.profilePath == "" {
		p, err := ProfilePath()
		if err != nil {
			return ExitError, err
		}
		a.profilePath = p
	}
	profile, err := LoadProfile(a.profilePath)
	if err != nil {
		return ExitError, err
	}
	if *apiURL != "" {
		profile.APIURL = *apiURL
	}
	a.profile = profile

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(a.Stderr)
		return ExitError, nil
	}

	switch rest[0] {
	case "login":
		return a.login(rest[1:])
	case "logout":
		return a.logout()
	case "me":
		return a.call(a.client().Get("/api/v1/me"))
	case "switch":
		return a.switchTo(rest[1:])
	case "switch-back":
		return a.switchBack()
	case "apply":
		fs := flag.NewFlagSet("apply", flag.ContinueOnError)
		fs.SetOutput(a.Stderr)
		file := fs.String("f", "", "Path to a vhost definition YAML file (required)")
		if err := fs.Parse(rest[1:]); err != nil {
			return ExitError, nil
		}
		if *file == "" {
			return ExitError, errors.New("-f flag is required")
		}
		return Apply(a.client(), *file, a.Stdout)
	}

	ent, ok := entities[rest[0]]
	if !ok {
		printUsage(a.Stderr)
		return ExitError, fmt.Errorf("unknown command %q", rest[0])
	}
	if len(rest) < 2 {
		return ExitError, fmt.Errorf("usage: panelctl %s <verb> [args]", rest[0])
	}
	return a.entityCommand(rest[0], ent, rest[1], rest[2:])
}

func (a *App) client() *Client {
	return NewClient(a.profile.APIURL, a.profile.Token)
}

// call renders a reply and maps it to an exit code.
func (a *App) call(resp *Response, err error) (int, error) {
	if err != nil {
		return ExitError, err
	}
	if resp.Failed() && resp.StatusCode != http.StatusUnprocessableEntity {
		return ExitError, fmt.Errorf("status %d: %s", resp.StatusCode, resp.ErrorMessage())
	}
	if err := Render(a.Stdout, resp.Body, a.format); err != nil {
		return ExitError, err
	}
	return resp.ExitCode(), nil
}

func (a *App) entityCommand(name string, ent entity, verb string, args []string) (int, error) {
	c := a.client()

	switch verb {
	case "list":
		fs := flag.NewFlagSet(name+" list", flag.ContinueOnError)
		fs.SetOutput(a.Stderr)
		limit := fs.Int("limit", 0, "Page size")
		cursor := fs.String("cursor", "", "Cursor from a previous page")
		search := fs.String("search", "", "Search term")
		active := fs.String("active", "", "Filter on active flag (true or false)")
		vhost := fs.Int64("vhost", 0, "Filter on virtual host id")
		if err := fs.Parse(args); err != nil {
			return ExitError, nil
		}
		q := url.Values{}
		if *limit > 0 {
			q.Set("limit", strconv.Itoa(*limit))
		}
		setIf(q, "cursor", *cursor)
		setIf(q, "search", *search)
		setIf(q, "active", *active)
		if *vhost > 0 {
			q.Set("vhost_id", strconv.FormatInt(*vhost, 10))
		}
		path := ent.path
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
		return a.call(c.Get(path))

	case "create":
		body, err := parseBody(args)
		if err != nil {
			return ExitError, err
		}
		return a.call(c.Post(ent.path, body))

	case "show", "update", "delete":
		if len(args) < 1 {
			return ExitError, fmt.Errorf("usage: panelctl %s %s <id>", name, verb)
		}
		id, err := parseID(args[0])
		if err != nil {
			return ExitError, err
		}
		path := fmt.Sprintf("%s/%d", ent.path, id)
		switch verb {
		case "show":
			return a.call(c.Get(path))
		case "delete":
			return a.call(c.Delete(path))
		}
		body, err := parseBody(args[1:])
		if err != nil {
			return ExitError, err
		}
		return a.call(c.Put(path, body))

	case "bulk-delete":
		if len(args) == 0 {
			return ExitError, fmt.Errorf("usage: panelctl %s bulk-delete <id>...", name)
		}
		ids := make([]int64, 0, len(args))
		for _, s := range args {
			id, err := parseID(s)
			if err != nil {
				return ExitError, err
			}
			ids = append(ids, id)
		}
		return a.call(c.Post(ent.path+"/bulk-delete", map[string]any{"ids": ids}))
	}

	if !ent.extra[verb] {
		return ExitError, fmt.Errorf("%s does not support %q", name, verb)
	}

	if verb == "roles" {
		return a.call(c.Get(ent.path + "/roles"))
	}

	if len(args) < 1 {
		return ExitError, fmt.Errorf("usage: panelctl %s %s <id>", name, verb)
	}
	id, err := parseID(args[0])
	if err != nil {
		return ExitError, err
	}
	path := fmt.Sprintf("%s/%d", ent.path, id)

	switch verb {
	case "execute":
		if len(args) < 2 {
			return ExitError, fmt.Errorf("usage: panelctl %s execute <id> <command>", name)
		}
		return a.call(c.Post(path+"/execute", map[string]string{"command": args[1]}))
	case "stats":
		return a.call(c.Get(path + "/stats"))
	case "otp":
		return a.call(c.Post(path+"/otp", nil))
	default: // mailboxes, aliases, active-mailboxes
		return a.call(c.Get(path + "/" + verb))
	}
}

func (a *App) login(args []string) (int, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	login := fs.String("login", a.profile.Login, "Account login (email)")
	password := fs.String("password", "", "Password (default $PANELCTL_PASSWORD)")
	otp := fs.String("otp", "", "One-time code instead of a password")
	remember := fs.Bool("remember", false, "Ask for a remember-me token")
	if err := fs.Parse(args); err != nil {
		return ExitError, nil
	}
	if *login == "" {
		return ExitError, errors.New("-login is required")
	}

	c := NewClient(a.profile.APIURL, "")
	var resp *Response
	var err error
	if *otp != "" {
		resp, err = c.Post("/auth/otp", map[string]string{"login": *login, "code": *otp})
	} else {
		pw := *password
		if pw == "" {
			pw = os.Getenv("PANELCTL_PASSWORD")
		}
		if pw == "" {
			return ExitError, errors.New("-password or PANELCTL_PASSWORD is required")
		}
		resp, err = c.Post("/auth/login", map[string]any{"login": *login, "password": pw, "remember": *remember})
	}
	if err != nil {
		return ExitError, err
	}
	if resp.Failed() {
		return ExitError, fmt.Errorf("login failed: %s", resp.ErrorMessage())
	}

	a.profile.Login = *login
	if err := a.saveToken(resp); err != nil {
		return ExitError, err
	}
	fmt.Fprintf(a.Stderr, "Logged in as %s\n", *login)
	return ExitSuccess, nil
}

func (a *App) logout() (int, error) {
	a.profile.Token = ""
	if err := SaveProfile(a.profilePath, a.profile); err != nil {
		return ExitError, err
	}
	return ExitSuccess, nil
}

func (a *App) switchTo(args []string) (int, error) {
	if len(args) < 1 {
		return ExitError, errors.New("usage: panelctl switch <account-id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return ExitError, err
	}
	return a.session(a.client().Post(fmt.Sprintf("/api/v1/session/switch/%d", id), nil))
}

func (a *App) switchBack() (int, error) {
	return a.session(a.client().Post("/api/v1/session/switch-back", nil))
}

// session stores the token of a switch reply and renders the reply.
func (a *App) session(resp *Response, err error) (int, error) {
	if err != nil {
		return ExitError, err
	}
	if resp.Failed() {
		return ExitError, fmt.Errorf("status %d: %s", resp.StatusCode, resp.ErrorMessage())
	}
	if err := a.saveToken(resp); err != nil {
		return ExitError, err
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		delete(body, "token")
		out, _ := json.Marshal(body)
		resp.Body = out
	}
	if err := Render(a.Stdout, resp.Body, a.format); err != nil {
		return ExitError, err
	}
	return ExitSuccess, nil
}

func (a *App) saveToken(resp *Response) error {
	token, err := resp.Token()
	if err != nil {
		return err
	}
	a.profile.Token = token
	return SaveProfile(a.profilePath, a.profile)
}

// parseBody builds a request body from "-f file" and field arguments.
// key=value sets a string; key:=value parses value as YAML, so numbers,
// booleans and lists keep their type.
func parseBody(args []string) (map[string]any, error) {
	body := map[string]any{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "-f" {
			if i+1 >= len(args) {
				return nil, errors.New("-f needs a file")
			}
			i++
			data, err := os.ReadFile(args[i])
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", args[i], err)
			}
			if err := yaml.Unmarshal(data, &body); err != nil {
				return nil, fmt.Errorf("parse %s: %w", args[i], err)
			}
			continue
		}

		if key, raw, ok := strings.Cut(arg, ":="); ok {
			var v any
			if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
				return nil, fmt.Errorf("field %s: %w", key, err)
			}
			body[key] = v
			continue
		}
		key, val, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value or key:=value, got %q", arg)
		}
		body[key] = val
	}
	return body, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func setIf(q url.Values, key, val string) {
	if val != "" {
		q.Set(key, val)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: panelctl [-api URL] [-o yaml|json] [-config FILE] <command> [args]

Session:
  login -login EMAIL [-password PW | -otp CODE] [-remember]
  logout
  me
  switch <account-id>
  switch-back
  apply -f FILE

Entities (account, vhost, mailbox, alias):
  <entity> list [-limit N] [-cursor C] [-search S] [-active BOOL] [-vhost ID]
  <entity> create [-f FILE] [key=value | key:=value]...
  <entity> show <id>
  <entity> update <id> [-f FILE] [key=value | key:=value]...
  <entity> delete <id>
  <entity> bulk-delete <id>...

Entity specific:
  account otp <id>
  account roles
  vhost execute <id> <restart|status|fix_permissions>
  vhost mailboxes <id>
  vhost aliases <id>
  vhost active-mailboxes <id>
  mailbox execute <id> <clear_spam|rebuild|check|quota_reset>
  mailbox stats <id>

Exit codes: 0 success, 3 degraded, 2 rejected, 1 error.`)
}
