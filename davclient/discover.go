package davclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-webdav/caldav"
)

// ServiceLocator turns a bare domain into a CalDAV context URL.
type ServiceLocator func(ctx context.Context, domain string) (string, error)

// Discoverer runs the discovery chain with fixed transport options.
type Discoverer struct {
	Options Options
	// Locate resolves domains for LookupServiceURL. It defaults to RFC 6764
	// SRV and TXT lookups.
	Locate ServiceLocator
}

// NewDiscoverer returns a Discoverer whose transports log to logger.
func NewDiscoverer(opts Options) *Discoverer {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Discoverer{Options: opts, Locate: caldav.DiscoverContextURL}
}

// DiscoverCalendars finds the task calendars of cred's account with default
// options.
func DiscoverCalendars(ctx context.Context, cred Credential) ([]Calendar, error) {
	return NewDiscoverer(Options{}).Discover(ctx, cred)
}

// Discover resolves the principal, then its calendar home set, then lists
// the task calendars in it. Each step runs on a transport scoped to the URL
// the previous step produced. Failures come back as *StepError.
func (d *Discoverer) Discover(ctx context.Context, cred Credential) ([]Calendar, error) {
	home, err := d.HomeSet(ctx, cred)
	if err != nil {
		return nil, err
	}
	return ListCalendars(ctx, home)
}

// HomeSet runs principal and home-set discovery and returns a client scoped
// to the calendar home set, ready for listing or creating collections.
func (d *Discoverer) HomeSet(ctx context.Context, cred Credential) (*Client, error) {
	logger := d.logger()

	base, err := NewClient(cred, d.Options)
	if err != nil {
		return nil, err
	}

	principal, err := ResolvePrincipal(ctx, base)
	if err != nil {
		return nil, err
	}

	principalClient := base
	if strings.TrimSpace(principal) == "" {
		logger.Info("no current-user-principal, using base URL", "url", cred.BaseURL)
	} else {
		ref, err := base.BaseURL().Parse(principal)
		if err != nil {
			return nil, stepErr(StepPrincipal, fmt.Errorf("%w: principal href %q: %v", ErrMalformedResponse, principal, err))
		}
		logger.Debug("resolved principal", "principal", ref.String())
		principalClient, err = base.WithBaseURL(ref.String())
		if err != nil {
			return nil, stepErr(StepTransport, err)
		}
	}

	homeSet, err := ResolveHomeSet(ctx, principalClient)
	if err != nil {
		return nil, err
	}

	homeClient, err := principalClient.WithBaseURL(homeSet)
	if err != nil {
		return nil, stepErr(StepTransport, err)
	}
	return homeClient, nil
}

func (d *Discoverer) logger() *slog.Logger {
	if d.Options.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Options.Logger
}

// LookupServiceURL finds the CalDAV base URL of domain.
func (d *Discoverer) LookupServiceURL(ctx context.Context, domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", fmt.Errorf("service discovery: empty domain")
	}
	locate := d.Locate
	if locate == nil {
		locate = caldav.DiscoverContextURL
	}
	u, err := locate(ctx, domain)
	if err != nil {
		return "", fmt.Errorf("service discovery for %q: %w", domain, err)
	}
	d.logger().Debug("located CalDAV service", "domain", domain, "url", u)
	return u, nil
}

// LookupServiceURL finds the CalDAV base URL of domain through DNS SRV and
// TXT records (RFC 6764).
func LookupServiceURL(ctx context.Context, domain string) (string, error) {
	return NewDiscoverer(Options{}).LookupServiceURL(ctx, domain)
}
