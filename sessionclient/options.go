package sessionclient

import (
	"net/http"
	"time"
)

type options struct {
	transport         http.RoundTripper
	refreshTimeout    time.Duration
	refreshCookieName string
	onSessionEnded    func()
}

type Option func(*options)

// WithTransport sets the transport used under the interceptor.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithRefreshTimeout bounds a refresh call. A timed out refresh ends the
// session.
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *options) {
		o.refreshTimeout = d
	}
}

// WithOnSessionEnded is called once per failed refresh, typically to send
// the user to the login screen.
func WithOnSessionEnded(fn func()) Option {
	return func(o *options) {
		o.onSessionEnded = fn
	}
}

// WithRefreshCookieName must match the server's cookie name. The cookie is
// dropped from the jar when the session ends.
func WithRefreshCookieName(name string) Option {
	return func(o *options) {
		o.refreshCookieName = name
	}
}
