package panelctl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edvin/vpanel/internal/address"
)

// applyState tracks the worst outcome seen while applying.
type applyState struct {
	out  io.Writer
	code int
}

func (s *applyState) note(code int) {
	if code > s.code {
		s.code = code
	}
}

// Apply creates every vhost, mailbox and alias in the file that does not
// exist yet. It stops at the first rejected create or transport error and
// reports degraded creates through the returned exit code.
func Apply(c *Client, path string, out io.Writer) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ExitError, fmt.Errorf("read config: %w", err)
	}

	var cfg ApplyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ExitError, fmt.Errorf("parse config: %w", err)
	}

	s := &applyState{out: out}
	for _, v := range cfg.Vhosts {
		if err := s.vhost(c, v); err != nil {
			return ExitError, err
		}
	}
	return s.code, nil
}

func (s *applyState) vhost(c *Client, v VhostDef) error {
	vhostID, err := c.FindVhostByDomain(v.Domain)
	if err != nil {
		return fmt.Errorf("look up vhost %q: %w", v.Domain, err)
	}
	if vhostID != 0 {
		fmt.Fprintf(s.out, "Vhost %q: exists (%d, skipping)\n", v.Domain, vhostID)
	} else {
		fmt.Fprintf(s.out, "Creating vhost %q...\n", v.Domain)
		resp, err := c.Post("/api/v1/vhosts", map[string]any{
			"aid":              v.AccountID,
			"domain":           v.Domain,
			"uname":            v.Uname,
			"uid":              v.UID,
			"gid":              v.GID,
			"mailboxes":        v.MailboxLimit,
			"aliases":          v.AliasLimit,
			"mailquota":        v.MailQuota,
			"diskquota":        v.DiskQuota,
			"active":           boolOr(v.Active, true),
			"configure_domain": v.Configure,
		})
		vhostID, err = s.created(resp, err, "vhost "+v.Domain)
		if err != nil {
			return err
		}
	}

	if len(v.Mailboxes) > 0 {
		existing, err := c.existing(fmt.Sprintf("/api/v1/vhosts/%d/mailboxes", vhostID), "user")
		if err != nil {
			return fmt.Errorf("list mailboxes of %q: %w", v.Domain, err)
		}
		for _, m := range v.Mailboxes {
			full := address.Derive(m.Username, v.Domain)
			if existing[full] {
				fmt.Fprintf(s.out, "  Mailbox %q: exists (skipping)\n", full)
				continue
			}
			body := map[string]any{
				"hid":                   vhostID,
				"username":              m.Username,
				"password":              m.Password,
				"password_confirmation": m.Password,
				"active":                boolOr(m.Active, true),
				"spamf":                 m.SpamFilter,
			}
			if m.Quota != nil {
				body["quota"] = *m.Quota
			}
			fmt.Fprintf(s.out, "  Creating mailbox %q...\n", full)
			resp, err := c.Post("/api/v1/mailboxes", body)
			if _, err := s.created(resp, err, "mailbox "+full); err != nil {
				return err
			}
		}
	}

	if len(v.Aliases) > 0 {
		existing, err := c.existing(fmt.Sprintf("/api/v1/vhosts/%d/aliases", vhostID), "source")
		if err != nil {
			return fmt.Errorf("list aliases of %q: %w", v.Domain, err)
		}
		for _, a := range v.Aliases {
			src := address.NormalizeAliasSource(a.Source, v.Domain)
			if existing[src] {
				fmt.Fprintf(s.out, "  Alias %q: exists (skipping)\n", src)
				continue
			}
			fmt.Fprintf(s.out, "  Creating alias %q -> %s...\n", src, a.Target)
			resp, err := c.Post("/api/v1/aliases", map[string]any{
				"hid":    vhostID,
				"source": a.Source,
				"target": a.Target,
				"active": boolOr(a.Active, true),
			})
			if _, err := s.created(resp, err, "alias "+src); err != nil {
				return err
			}
		}
	}
	return nil
}

// created interprets a create reply and returns the new row id.
func (s *applyState) created(resp *Response, err error, what string) (int64, error) {
	if err != nil {
		return 0, err
	}
	var body struct {
		State       string            `json:"state"`
		Message     string            `json:"message"`
		Errors      map[string]string `json:"errors"`
		Diagnostics []string          `json:"diagnostics"`
		Data        struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return 0, fmt.Errorf("parse create response: %w", err)
	}

	code := resp.ExitCode()
	s.note(code)
	switch code {
	case ExitSuccess:
		fmt.Fprintf(s.out, "    %s (id %d)\n", body.Message, body.Data.ID)
	case ExitDegraded:
		fmt.Fprintf(s.out, "    WARNING: %s\n", body.Message)
		for _, d := range body.Diagnostics {
			fmt.Fprintf(s.out, "      %s\n", d)
		}
	case ExitRejected:
		return 0, fmt.Errorf("create %s rejected: %v", what, body.Errors)
	default:
		return 0, fmt.Errorf("create %s: status %d: %s", what, resp.StatusCode, resp.ErrorMessage())
	}
	if body.Data.ID == 0 {
		return 0, fmt.Errorf("create %s: response carries no id", what)
	}
	return body.Data.ID, nil
}

// FindVhostByDomain returns the id of the vhost serving domain, or 0.
func (c *Client) FindVhostByDomain(domain string) (int64, error) {
	resp, err := c.Get("/api/v1/vhosts?limit=200&search=" + url.QueryEscape(domain))
	if err != nil {
		return 0, err
	}
	if resp.Failed() {
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, resp.ErrorMessage())
	}
	items, err := resp.Items()
	if err != nil {
		return 0, err
	}
	var vhosts []struct {
		ID     int64  `json:"id"`
		Domain string `json:"domain"`
	}
	if err := json.Unmarshal(items, &vhosts); err != nil {
		return 0, fmt.Errorf("parse vhosts: %w", err)
	}
	for _, v := range vhosts {
		if v.Domain == domain {
			return v.ID, nil
		}
	}
	return 0, nil
}

// existing collects the string field key of every row in a listing,
// following cursors until the last page.
func (c *Client) existing(path, key string) (map[string]bool, error) {
	seen := map[string]bool{}
	cursor := ""
	for {
		p := path + "?limit=200"
		if cursor != "" {
			p += "&cursor=" + url.QueryEscape(cursor)
		}
		resp, err := c.Get(p)
		if err != nil {
			return nil, err
		}
		if resp.Failed() {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, resp.ErrorMessage())
		}
		var page struct {
			Items      []map[string]any `json:"items"`
			NextCursor string           `json:"next_cursor"`
			HasMore    bool             `json:"has_more"`
		}
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, fmt.Errorf("parse listing: %w", err)
		}
		for _, row := range page.Items {
			if v, ok := row[key].(string); ok {
				seen[v] = true
			}
		}
		if !page.HasMore || page.NextCursor == "" {
			return seen, nil
		}
		cursor = page.NextCursor
	}
}
