// Package sessionclient is the client side of the session protocol. Its
// Interceptor attaches the access token to outgoing requests and, when a
// request is rejected with 401, refreshes the token once for all concurrent
// callers and retries each rejected request once.
package sessionclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var (
	logger = log.With().Str("component", "sessionclient").Logger()

	// ErrSessionEnded is returned when the refresh failed. The local state is
	// cleared and the user has to log in again.
	ErrSessionEnded = errors.New("session ended, login required")
)

const (
	defaultRefreshTimeout    = 10 * time.Second
	defaultRefreshCookieName = "kinder_refresh"
	refreshFlightKey         = "refresh"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type Interceptor struct {
	base       http.RoundTripper
	refreshURL *url.URL
	state      *State

	// refreshClient is not intercepted, so refresh calls never recurse.
	refreshClient     *http.Client
	jar               http.CookieJar
	refreshCookieName string
	refreshTimeout    time.Duration
	onSessionEnded    func()

	group singleflight.Group
}

// NewInterceptor wraps base. jar must be the cookie jar holding the refresh
// cookie.
func NewInterceptor(base http.RoundTripper, jar http.CookieJar, refreshURL string, state *State, opts ...Option) (*Interceptor, error) {
	u, err := url.Parse(refreshURL)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh url: %w", err)
	}

	o := &options{
		refreshTimeout:    defaultRefreshTimeout,
		refreshCookieName: defaultRefreshCookieName,
	}
	for _, opt := range opts {
		opt(o)
	}

	if base == nil {
		base = http.DefaultTransport
	}

	return &Interceptor{
		base:       base,
		refreshURL: u,
		state:      state,
		refreshClient: &http.Client{
			Transport: base,
			Jar:       jar,
		},
		jar:               jar,
		refreshCookieName: o.refreshCookieName,
		refreshTimeout:    o.refreshTimeout,
		onSessionEnded:    o.onSessionEnded,
	}, nil
}

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if i.isRefreshRequest(req) {
		return i.base.RoundTrip(req)
	}

	// not-yet-tried
	sent := i.state.snapshot()
	resp, err := i.base.RoundTrip(authorize(req, sent.accessToken))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		// the body is consumed and can not be sent again.
		return resp, nil
	}

	// refreshing
	fresh, err := i.freshToken(req.Context(), sent)
	if err != nil {
		drainAndClose(resp)
		return nil, err
	}

	retry := req
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			drainAndClose(resp)
			return nil, err
		}
		retry = req.Clone(req.Context())
		retry.Body = body
	}
	drainAndClose(resp)

	// retried: whatever comes back goes to the caller.
	return i.base.RoundTrip(authorize(retry, fresh))
}

// freshToken returns an access token newer than the one sent, refreshing if
// no other request already did. A failed refresh is never repeated for
// requests sent before it failed.
func (i *Interceptor) freshToken(ctx context.Context, sent snapshot) (string, error) {
	if token, err := i.state.newerThan(sent); err != nil || token != "" {
		return token, err
	}

	ch := i.group.DoChan(refreshFlightKey, func() (any, error) {
		if token, err := i.state.newerThan(sent); err != nil || token != "" {
			return token, err
		}
		return i.refresh()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh calls the refresh endpoint. It does not use any caller's context
// since its outcome is shared by all waiting requests.
func (i *Interceptor) refresh() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), i.refreshTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.refreshURL.String(), nil)
	if err != nil {
		return "", err
	}

	resp, err := i.refreshClient.Do(req)
	if err != nil {
		return "", i.endSession(err)
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		return "", i.endSession(fmt.Errorf("refresh responded %d", resp.StatusCode))
	}

	body := &tokenResponse{}
	if err := json.NewDecoder(resp.Body).Decode(body); err != nil || body.AccessToken == "" {
		return "", i.endSession(fmt.Errorf("invalid refresh response: %v", err))
	}

	i.state.SetAccessToken(body.AccessToken)
	logger.Debug().Msg("Access token refreshed")
	return body.AccessToken, nil
}

// endSession forgets the access token and the refresh cookie. The cookie
// may hold a secret the server already rotated, presenting it again would
// look like theft and end every session of the user.
func (i *Interceptor) endSession(cause error) error {
	logger.Info().Err(cause).Msg("Refresh failed, session ended")
	i.state.endSession()
	if i.jar != nil {
		i.jar.SetCookies(i.refreshURL, []*http.Cookie{{
			Name:   i.refreshCookieName,
			Path:   path.Dir(i.refreshURL.Path),
			MaxAge: -1,
		}})
	}
	if i.onSessionEnded != nil {
		i.onSessionEnded()
	}
	return fmt.Errorf("%w: %v", ErrSessionEnded, cause)
}

func (i *Interceptor) isRefreshRequest(req *http.Request) bool {
	return req.URL.Host == i.refreshURL.Host && req.URL.Path == i.refreshURL.Path
}

func authorize(req *http.Request, token string) *http.Request {
	if token == "" {
		return req
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
