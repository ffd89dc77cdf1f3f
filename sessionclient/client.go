package sessionclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	logoutPath  = "/auth/logout"
)

// Client talks to a kinderauth server. Requests sent with Do carry the
// access token and survive its expiry as long as the refresh cookie is valid.
type Client struct {
	baseURL string
	state   *State
	jar     http.CookieJar

	// http goes through the interceptor, plain does not.
	http  *http.Client
	plain *http.Client
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	base := o.transport
	if base == nil {
		base = http.DefaultTransport
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	state := &State{}
	interceptor, err := NewInterceptor(base, jar, baseURL+refreshPath, state, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: baseURL,
		state:   state,
		jar:     jar,
		http: &http.Client{
			Transport: interceptor,
			Jar:       jar,
		},
		plain: &http.Client{
			Transport: base,
			Jar:       jar,
		},
	}, nil
}

// Login starts a session. A rejected login is not retried.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.plain.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", resp.Status)
	}

	body := &tokenResponse{}
	if err := json.NewDecoder(resp.Body).Decode(body); err != nil {
		return fmt.Errorf("invalid login response: %w", err)
	}
	c.state.SetAccessToken(body.AccessToken)
	return nil
}

// Logout revokes the session on the server. Local state is cleared even if
// the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.state.Clear()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+logoutPath, nil)
	if err != nil {
		return err
	}

	resp, err := c.plain.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout failed: %s", resp.Status)
	}
	return nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// Get sends a GET for path relative to the base url.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func (c *Client) State() *State {
	return c.state
}

func (c *Client) Jar() http.CookieJar {
	return c.jar
}
