package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DoDELETE sends an unconditional DELETE to target.
func (c *Client) DoDELETE(ctx context.Context, target string) error {
	c.logger.Debug("starting DELETE request", "url", target)

	resolvedURL, err := c.resolveURL(target)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", target, "error", err)
		return err
	}

	c.logger.Debug("resolved URL", "url", resolvedURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, resolvedURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create DELETE request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return fmt.Errorf("DELETE %s: %w", resolvedURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.logger.Debug("received response", "status", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("unexpected status code",
			"status_code", resp.StatusCode,
			"status", resp.Status)
		return newStatusError(resp)
	}

	c.logger.Debug("DELETE request complete", "status", resp.Status)
	return nil
}
