package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cyp0633/davtasks/internal/xml"
)

// PropstatError reports properties a PROPPATCH could not apply even though
// the request as a whole returned 207.
type PropstatError struct {
	URL    string
	Failed []string
}

func (e *PropstatError) Error() string {
	return fmt.Sprintf("PROPPATCH %s: properties not applied: %s", e.URL, strings.Join(e.Failed, "; "))
}

// DoPROPPATCH sends patch to target and returns the location the reply came
// from. A 207 reply is inspected per property; a non-2xx propstat fails the
// call with a *PropstatError, except 404 for a property patch removes.
func (c *Client) DoPROPPATCH(ctx context.Context, target string, patch *xml.ProppatchRequest) (*url.URL, error) {
	resolvedURL, err := c.resolveURL(target)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", target, "error", err)
		return nil, err
	}

	body, err := xml.Bytes(patch.ToXML())
	if err != nil {
		return nil, fmt.Errorf("failed to encode PROPPATCH body: %w", err)
	}
	removed := make(map[xml.PropName]bool, len(patch.Remove))
	for _, elem := range patch.Remove {
		removed[xml.NameOf(elem)] = true
	}

	c.logger.Debug("starting PROPPATCH request",
		"url", resolvedURL.String(),
		"set", len(patch.Set),
		"remove", len(patch.Remove))

	req, err := http.NewRequestWithContext(ctx, "PROPPATCH", resolvedURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create PROPPATCH request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return nil, fmt.Errorf("PROPPATCH %s: %w", resolvedURL, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("received response", "status", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("unexpected status code",
			"status_code", resp.StatusCode,
			"status", resp.Status)
		return nil, newStatusError(resp)
	}

	loc := location(resp, resolvedURL)
	if resp.StatusCode != http.StatusMultiStatus {
		io.Copy(io.Discard, resp.Body)
		return loc, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("PROPPATCH %s: reading body: %w", resolvedURL, err)
	}
	ms, err := xml.ParseMultistatus(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: PROPPATCH %s: %v", ErrMalformedResponse, resolvedURL, err)
	}

	var failed []string
	for _, r := range ms.Responses {
		for _, ps := range r.Failed() {
			notFound := xml.StatusCode(ps.Status) == http.StatusNotFound
			for _, p := range ps.Props {
				// Removing a property that is not there is a no-op.
				if notFound && removed[xml.NameOf(p)] {
					c.logger.Debug("removed property was already absent", "property", p.Tag)
					continue
				}
				failed = append(failed, p.Tag+" ("+ps.Status+")")
			}
		}
	}
	if len(failed) > 0 {
		return nil, &PropstatError{URL: loc.String(), Failed: failed}
	}

	c.logger.Debug("PROPPATCH request complete", "location", loc.String())
	return loc, nil
}
