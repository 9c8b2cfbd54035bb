package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DoMKCOL sends an extended MKCOL with body to target and returns the
// location of the created collection.
func (c *Client) DoMKCOL(ctx context.Context, target string, body []byte) (*url.URL, error) {
	c.logger.Debug("starting MKCOL request",
		"url", target,
		"body_length", len(body))

	resolvedURL, err := c.resolveURL(target)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", target, "error", err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "MKCOL", resolvedURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create MKCOL request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return nil, fmt.Errorf("MKCOL %s: %w", resolvedURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.logger.Debug("received response", "status", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("unexpected status code",
			"status_code", resp.StatusCode,
			"status", resp.Status)
		return nil, newStatusError(resp)
	}

	created := location(resp, resolvedURL)
	if loc := resp.Header.Get("Location"); loc != "" {
		if u, err := created.Parse(loc); err == nil {
			created = u
		}
	}
	c.logger.Debug("MKCOL request complete", "location", created.String())
	return created, nil
}
