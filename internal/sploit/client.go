// Package sploit drives concurrent attacks against a running server to show
// the health race in the unguarded combat mode.
package sploit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omega-realm/scruffy/internal/combat"
)

// Reply is one decoded server response.
type Reply map[string]any

// Error returns the server's message when the reply is an error envelope.
func (r Reply) Error() (string, bool) {
	if r["status"] != "error" {
		return "", false
	}
	msg, _ := r["msg"].(string)
	return msg, true
}

// Client talks to the service with a single session shared by all callers.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// RandomCredentials returns a fresh username and password that satisfy the
// server's length rules.
func RandomCredentials() (string, string) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "u" + id[:9], "p" + id[9:18]
}

func (c *Client) Register(ctx context.Context, username, password string) (Reply, error) {
	return c.post(ctx, "/register", map[string]string{"username": username, "password": password})
}

// Login starts a session. The server redirects to /monster, whose reply is
// returned.
func (c *Client) Login(ctx context.Context, username, password string) (Reply, error) {
	reply, err := c.post(ctx, "/login", map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	if msg, ok := reply.Error(); ok {
		return reply, fmt.Errorf("login failed: %s", msg)
	}
	return reply, nil
}

func (c *Client) Hit(ctx context.Context) (Reply, error) {
	return c.get(ctx, "/hit")
}

func (c *Client) Flush(ctx context.Context) (Reply, error) {
	return c.get(ctx, "/flush")
}

func (c *Client) Status(ctx context.Context) (combat.StatusReport, error) {
	var report combat.StatusReport
	if err := c.do(ctx, http.MethodGet, "/status", nil, &report); err != nil {
		return combat.StatusReport{}, err
	}
	return report, nil
}

func (c *Client) get(ctx context.Context, path string) (Reply, error) {
	var reply Reply
	err := c.do(ctx, http.MethodGet, path, nil, &reply)
	return reply, err
}

func (c *Client) post(ctx context.Context, path string, body any) (Reply, error) {
	var reply Reply
	err := c.do(ctx, http.MethodPost, path, body, &reply)
	return reply, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
