package davclient

import (
	"context"

	"github.com/cyp0633/davtasks/internal/httpclient"
	"github.com/cyp0633/davtasks/internal/xml/props"
	"github.com/emersion/go-ical"
)

// TaskComponent is the component a calendar must support to hold tasks.
const TaskComponent = ical.CompToDo

// NoColor is the color value meaning "no calendar-color property".
const NoColor int32 = 0

// Calendar describes a task-capable calendar collection.
type Calendar struct {
	// Href is the absolute URL of the collection.
	Href        string
	DisplayName string
	// Color is the raw calendar-color value as the server sent it.
	Color string
	// ColorValue is Color as ARGB, NoColor when absent or unparsable.
	ColorValue int32
	ChangeTag  string
	SyncToken  string
}

// Credential and Options are re-exported so callers need not import the
// internal transport package.
type (
	Credential   = httpclient.Credential
	TrustPolicy  = httpclient.TrustPolicy
	Options      = httpclient.Options
	Client       = httpclient.Client
	CertPrompter = httpclient.CertPrompter
)

// NewClient builds a transport for cred.
func NewClient(cred Credential, opts Options) (*Client, error) {
	c, err := httpclient.Build(cred, opts)
	if err != nil {
		return nil, stepErr(StepTransport, err)
	}
	return c, nil
}

// DAVClient runs discovery and collection operations against the URL its
// transport is scoped to.
type DAVClient interface {
	// URL is the base URL every operation targets.
	URL() string
	// At returns a DAVClient for another URL of the same account.
	At(url string) (DAVClient, error)

	ResolvePrincipal(ctx context.Context) (string, error)
	ResolveHomeSet(ctx context.Context) (string, error)
	ListCalendars(ctx context.Context) ([]Calendar, error)
	CreateCollection(ctx context.Context, displayName string, color int32) (string, error)
	UpdateCollection(ctx context.Context, displayName string, color int32) (string, error)
	DeleteCollection(ctx context.Context) error
}

type davClient struct {
	httpClient *Client
}

// NewDAVClient wraps a transport built by NewClient.
func NewDAVClient(c *Client) DAVClient {
	return &davClient{httpClient: c}
}

func (c *davClient) URL() string {
	return c.httpClient.BaseURL().String()
}

func (c *davClient) At(url string) (DAVClient, error) {
	next, err := c.httpClient.WithBaseURL(url)
	if err != nil {
		return nil, stepErr(StepTransport, err)
	}
	return &davClient{httpClient: next}, nil
}

func (c *davClient) ResolvePrincipal(ctx context.Context) (string, error) {
	return ResolvePrincipal(ctx, c.httpClient)
}

func (c *davClient) ResolveHomeSet(ctx context.Context) (string, error) {
	return ResolveHomeSet(ctx, c.httpClient)
}

func (c *davClient) ListCalendars(ctx context.Context) ([]Calendar, error) {
	return ListCalendars(ctx, c.httpClient)
}

func (c *davClient) CreateCollection(ctx context.Context, displayName string, color int32) (string, error) {
	return CreateCollection(ctx, c.httpClient, displayName, color)
}

func (c *davClient) UpdateCollection(ctx context.Context, displayName string, color int32) (string, error) {
	return UpdateCollection(ctx, c.httpClient, displayName, color)
}

func (c *davClient) DeleteCollection(ctx context.Context) error {
	return DeleteCollection(ctx, c.httpClient)
}

// FormatColor renders an ARGB color the way calendar-color is sent.
func FormatColor(argb int32) string {
	return props.FormatColor(argb)
}

// ParseColor reads a #RRGGBB or #RRGGBBAA calendar-color into ARGB.
func ParseColor(s string) (int32, bool) {
	return props.ParseColor(s)
}
