package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxUpgradeRedirects = 5

// refuseRedirects stops net/http from following any redirect; do() decides
// which ones are followed.
func refuseRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// isTLSUpgrade reports whether a redirect from -> to only switches from
// http to https on the same host.
func isTLSUpgrade(from, to *url.URL) bool {
	return from.Scheme == "http" && to.Scheme == "https" &&
		strings.EqualFold(from.Hostname(), to.Hostname())
}

// do sends req and follows TLS-upgrade redirects. The method and body are
// kept on the upgraded request, unlike net/http's handling of 301/302.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	for hops := 0; ; hops++ {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			return resp, nil
		}
		loc := resp.Header.Get("Location")
		if loc == "" {
			return resp, nil
		}
		target, err := req.URL.Parse(loc)
		if err != nil || !isTLSUpgrade(req.URL, target) {
			c.logger.Debug("not following redirect", "from", req.URL.String(), "location", loc)
			return resp, nil
		}
		if hops >= maxUpgradeRedirects {
			resp.Body.Close()
			return nil, fmt.Errorf("%s %s: too many redirects", req.Method, req.URL)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		next, err := cloneTo(req, target)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("following TLS upgrade redirect", "from", req.URL.String(), "to", target.String())
		req = next
	}
}

func cloneTo(req *http.Request, target *url.URL) (*http.Request, error) {
	next := req.Clone(req.Context())
	next.URL = target
	next.Host = ""
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, errors.New("cannot replay request body on redirect")
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		next.Body = body
	}
	return next, nil
}

// location returns the URL the response was actually served from.
func location(resp *http.Response, fallback *url.URL) *url.URL {
	if resp != nil && resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL
	}
	return fallback
}
