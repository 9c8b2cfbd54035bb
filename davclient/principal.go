package davclient

import (
	"context"
	"errors"

	"github.com/cyp0633/davtasks/internal/httpclient"
	"github.com/cyp0633/davtasks/internal/xml"
)

// wellKnownPath is the RFC 6764 bootstrapping location, relative to the
// base URL.
const wellKnownPath = ".well-known/caldav"

var errStopIteration = errors.New("stop")

// ResolvePrincipal finds the current-user-principal of c's account. It asks
// the well-known location first and the base URL second. A 401 from either
// request ends the lookup with ErrAuth; every other failure of the first
// request falls through to the second. It returns "" and a nil error when
// neither request yields a principal.
func ResolvePrincipal(ctx context.Context, c *Client) (string, error) {
	logger := c.Logger()

	wellKnown := c.BaseURL().JoinPath(wellKnownPath).String()
	href, err := findPrincipal(ctx, c, wellKnown)
	switch {
	case httpclient.IsUnauthorized(err):
		return "", stepErr(StepPrincipal, err)
	case err != nil && ctx.Err() != nil:
		return "", stepErr(StepPrincipal, ctx.Err())
	case err != nil:
		logger.Warn("well-known principal lookup failed", "url", wellKnown, "error", err)
	case href != "":
		return href, nil
	}

	href, err = findPrincipal(ctx, c, "")
	switch {
	case httpclient.IsUnauthorized(err):
		return "", stepErr(StepPrincipal, err)
	case err != nil && ctx.Err() != nil:
		return "", stepErr(StepPrincipal, ctx.Err())
	case err != nil:
		logger.Warn("principal lookup at base URL failed", "url", c.BaseURL().String(), "error", err)
		return "", nil
	}
	return href, nil
}

// findPrincipal reads current-user-principal from the first response only;
// depth 0 asks for the target alone.
func findPrincipal(ctx context.Context, c *Client, target string) (string, error) {
	var href string
	err := c.DoPROPFIND(ctx, target, 0, []xml.PropName{xml.PropCurrentUserPrincipal},
		func(resp httpclient.PropfindResponse) error {
			if p, ok := resp.Props.CurrentUserPrincipal().Get(); ok {
				ref, err := resp.Request.Parse(p)
				if err == nil {
					href = ref.String()
				}
			}
			return errStopIteration
		})
	if err != nil && !errors.Is(err, errStopIteration) {
		return "", err
	}
	return href, nil
}
