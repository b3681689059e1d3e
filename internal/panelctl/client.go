package panelctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a thin JSON client for the panel API.
type Client struct {
	BaseURL     string
	Token       string
	HTTPClient  *http.Client
	// ReadTimeout bounds GET requests. Mutations wait for the server, which
	// runs provisioning commands inline and bounds each of them itself.
	ReadTimeout time.Duration
}

// DefaultReadTimeout is the GET deadline used by NewClient.
const DefaultReadTimeout = 60 * time.Second

// Response is a raw API reply. Non-2xx statuses are not errors here; the
// caller decides what a rejected or degraded reply means.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Token:       token,
		HTTPClient:  &http.Client{},
		ReadTimeout: DefaultReadTimeout,
	}
}

func (c *Client) Post(path string, body any) (*Response, error) {
	return c.do(http.MethodPost, path, body)
}

func (c *Client) Get(path string) (*Response, error) {
	return c.do(http.MethodGet, path, nil)
}

func (c *Client) Put(path string, body any) (*Response, error) {
	return c.do(http.MethodPut, path, body)
}

func (c *Client) Delete(path string) (*Response, error) {
	return c.do(http.MethodDelete, path, nil)
}

func (c *Client) do(method, path string, body any) (*Response, error) {
	url := c.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	ctx := context.Background()
	if method == http.MethodGet && c.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.ReadTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       json.RawMessage(respBody),
	}, nil
}

// Exit codes reported by panelctl.
const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitRejected = 2
	ExitDegraded = 3
)

// ExitCode maps a reply to the process exit code. A reconciled mutation
// reports its state; anything else falls back to the HTTP status.
func (r *Response) ExitCode() int {
	var body struct {
		State string `json:"state"`
	}
	_ = json.Unmarshal(r.Body, &body)

	switch body.State {
	case "success":
		return ExitSuccess
	case "degraded":
		return ExitDegraded
	case "rejected":
		return ExitRejected
	}
	switch {
	case r.StatusCode >= 200 && r.StatusCode < 300:
		return ExitSuccess
	case r.StatusCode == http.StatusUnprocessableEntity:
		return ExitRejected
	default:
		return ExitError
	}
}

// Failed reports whether the reply carries an HTTP error status.
func (r *Response) Failed() bool { return r.StatusCode >= 400 }

// ErrorMessage extracts the "error" field of an error reply, falling back to
// the raw body.
func (r *Response) ErrorMessage() string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(r.Body))
}

// Token extracts the session token from a login or switch reply.
func (r *Response) Token() (string, error) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return "", fmt.Errorf("parse session response: %w", err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("session response carries no token")
	}
	return body.Token, nil
}

// Items extracts the "items" array from a paginated API response.
func (r *Response) Items() (json.RawMessage, error) {
	var page struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(r.Body, &page); err != nil {
		return nil, fmt.Errorf("parse paginated response: %w", err)
	}
	return page.Items, nil
}
