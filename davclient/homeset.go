package davclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cyp0633/davtasks/internal/httpclient"
	"github.com/cyp0633/davtasks/internal/xml"
)

// ResolveHomeSet reads calendar-home-set from c's base URL, which should be
// the principal. Exactly one non-blank href is accepted; anything else is
// ErrHomeSetNotFound. The href is resolved against the URL the reply came
// from, which may differ from the base URL after a redirect.
func ResolveHomeSet(ctx context.Context, c *Client) (string, error) {
	var (
		seen  bool
		hrefs []string
		found bool
		from  string
	)
	err := c.DoPROPFIND(ctx, "", 0, []xml.PropName{xml.PropCalendarHomeSet},
		func(resp httpclient.PropfindResponse) error {
			seen = true
			from = resp.Request.String()
			hrefs, found = resp.Props.CalendarHomeSet().Get()
			if len(hrefs) == 1 && strings.TrimSpace(hrefs[0]) != "" {
				ref, err := resp.Request.Parse(hrefs[0])
				if err != nil {
					return fmt.Errorf("%w: home set href %q: %v", ErrMalformedResponse, hrefs[0], err)
				}
				hrefs[0] = ref.String()
			}
			return errStopIteration
		})
	if err != nil && !errors.Is(err, errStopIteration) {
		return "", stepErr(StepHomeSet, err)
	}

	switch {
	case !seen:
		return "", stepErr(StepHomeSet, fmt.Errorf("%w: empty multistatus", ErrHomeSetNotFound))
	case !found:
		return "", stepErr(StepHomeSet, fmt.Errorf("%w: property missing at %s", ErrHomeSetNotFound, from))
	case len(hrefs) != 1:
		return "", stepErr(StepHomeSet, fmt.Errorf("%w: expected one href, got %d", ErrHomeSetNotFound, len(hrefs)))
	case strings.TrimSpace(hrefs[0]) == "":
		return "", stepErr(StepHomeSet, fmt.Errorf("%w: blank href", ErrHomeSetNotFound))
	}

	c.Logger().Debug("resolved calendar home set", "home_set", hrefs[0])
	return hrefs[0], nil
}
