package httputil

import (
	"net/http"
	"time"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "ghatz/1.0"
)

// NewClient returns an HTTP client for spreadsheet backend calls. A zero
// timeout uses DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgent{agent: DefaultUserAgent, next: http.DefaultTransport},
	}
}

// userAgent sets a User-Agent on requests that carry none.
type userAgent struct {
	agent string
	next  http.RoundTripper
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", u.agent)
	return u.next.RoundTrip(r)
}
