package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/cyp0633/davtasks/internal/xml"
	"github.com/cyp0633/davtasks/internal/xml/props"
)

// Relation describes how a multistatus entry relates to the request target.
type Relation int

const (
	RelationOther Relation = iota
	RelationSelf
	RelationMember
	RelationParent
)

func (r Relation) String() string {
	switch r {
	case RelationSelf:
		return "self"
	case RelationMember:
		return "member"
	case RelationParent:
		return "parent"
	}
	return "other"
}

// PropfindResponse is one entry of a PROPFIND reply.
type PropfindResponse struct {
	// Href is the href exactly as the server sent it.
	Href string
	// Location is Href resolved against the URL the reply came from.
	Location *url.URL
	// Request is the URL the reply came from, after redirects.
	Request  *url.URL
	Relation Relation
	Props    props.PropertySet
}

// PropfindFunc receives each reply entry in server order. Returning an
// error stops iteration and is passed back to the caller.
type PropfindFunc func(resp PropfindResponse) error

// DoPROPFIND performs a PROPFIND request against target (resolved against
// the base URL, "" for the base URL itself) and hands every entry to fn.
func (c *Client) DoPROPFIND(ctx context.Context, target string, depth int, names []xml.PropName, fn PropfindFunc) error {
	c.logger.Debug("starting PROPFIND request",
		"url", target,
		"depth", depth,
		"properties", names)

	resolvedURL, err := c.resolveURL(target)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", target, "error", err)
		return err
	}
	c.logger.Debug("resolved URL", "url", resolvedURL.String())

	reqDoc := &xml.PropfindRequest{Prop: names}
	body, err := xml.Bytes(reqDoc.ToXML())
	if err != nil {
		return fmt.Errorf("failed to encode PROPFIND body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "PROPFIND", resolvedURL.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create PROPFIND request: %w", err)
	}
	req.Header.Set("Depth", strconv.Itoa(depth))
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return fmt.Errorf("PROPFIND %s: %w", resolvedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus {
		c.logger.Debug("unexpected response status",
			"status_code", resp.StatusCode,
			"status", resp.Status)
		return newStatusError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("PROPFIND %s: reading body: %w", resolvedURL, err)
	}
	ms, err := xml.ParseMultistatus(raw)
	if err != nil {
		c.logger.Debug("failed to parse XML response", "error", err)
		return fmt.Errorf("%w: PROPFIND %s: %v", ErrMalformedResponse, resolvedURL, err)
	}

	reqLocation := location(resp, resolvedURL)
	c.logger.Debug("parsed XML response",
		"response_count", len(ms.Responses),
		"location", reqLocation.String())

	for _, r := range ms.Responses {
		ref, err := url.Parse(r.Href)
		if err != nil {
			c.logger.Warn("skipping response with unparsable href", "href", r.Href, "error", err)
			continue
		}
		loc := reqLocation.ResolveReference(ref)
		set, err := props.DecodeSet(r.Found())
		if err != nil {
			c.logger.Warn("ignoring malformed properties", "href", r.Href, "error", err)
		}
		entry := PropfindResponse{
			Href:     r.Href,
			Location: loc,
			Request:  reqLocation,
			Relation: relate(reqLocation, loc),
			Props:    set,
		}
		if err := fn(entry); err != nil {
			return err
		}
	}

	c.logger.Debug("PROPFIND request complete", "url", reqLocation.String())
	return nil
}

// relate classifies loc relative to the request URL by path, ignoring
// trailing slashes and percent-encoding differences. Hosts compare with the
// scheme's default port filled in.
func relate(target, loc *url.URL) Relation {
	if !strings.EqualFold(target.Hostname(), loc.Hostname()) || effectivePort(target) != effectivePort(loc) {
		return RelationOther
	}
	t := cleanPath(target)
	l := cleanPath(loc)
	switch {
	case t == l:
		return RelationSelf
	case path.Dir(l) == t:
		return RelationMember
	case path.Dir(t) == l:
		return RelationParent
	}
	return RelationOther
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

func cleanPath(u *url.URL) string {
	p := u.Path
	if p == "" {
		p = "/"
	}
	return path.Clean(p)
}
