package httpclient

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Credential binds an account to one server location. Password is expected
// in clear text; storing and decrypting it is the caller's business.
type Credential struct {
	BaseURL  string
	Username string
	Password string
	Trust    TrustPolicy
}

// Timeouts bound each individual request. Zero fields take the defaults.
type Timeouts struct {
	Connect time.Duration
	Write   time.Duration
	Read    time.Duration
}

// DefaultTimeouts are long on the read side because multistatus bodies of
// large home sets can take a while to stream.
var DefaultTimeouts = Timeouts{
	Connect: 15 * time.Second,
	Write:   30 * time.Second,
	Read:    120 * time.Second,
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Connect <= 0 {
		t.Connect = DefaultTimeouts.Connect
	}
	if t.Write <= 0 {
		t.Write = DefaultTimeouts.Write
	}
	if t.Read <= 0 {
		t.Read = DefaultTimeouts.Read
	}
	return t
}

// Options is resolved once when a Client is built and never changes after.
type Options struct {
	// Foreground enables interactive certificate prompts through
	// TrustPolicy.Prompter. In the background untrusted certificates fail.
	Foreground bool
	// Debug logs every request and response, bodies included.
	Debug    bool
	Logger   *slog.Logger
	Timeouts Timeouts
	// Transport replaces the network transport. Auth, logging and the
	// redirect policy still wrap it.
	Transport http.RoundTripper
}

// Client is a configured, authenticated HTTP client bound to one credential
// and one base URL.
type Client struct {
	cred    Credential
	opts    Options
	baseURL url.URL
	client  *http.Client
	logger  *slog.Logger
}

// Build creates a Client for cred. It fails with ErrCredential when the
// credential is unusable and with ErrTLSInit when the trust configuration
// cannot be turned into a TLS context.
func Build(cred Credential, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if strings.TrimSpace(cred.Username) == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", ErrCredential)
	}
	if strings.Contains(cred.Username, ":") {
		return nil, fmt.Errorf("%w: username cannot contain ':'", ErrCredential)
	}
	baseURL, err := url.Parse(cred.BaseURL)
	if err != nil || baseURL.Host == "" || (baseURL.Scheme != "http" && baseURL.Scheme != "https") {
		return nil, fmt.Errorf("%w: invalid base URL %q", ErrCredential, cred.BaseURL)
	}

	trust, err := newTrustManager(cred.Trust, opts.Foreground, logger)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeouts := opts.Timeouts.withDefaults()
	var rt http.RoundTripper
	if opts.Transport != nil {
		rt = opts.Transport
	} else {
		rt = newNetworkTransport(trust, timeouts)
	}
	if opts.Debug {
		rt = &debugTransport{next: rt, logger: logger}
	}
	rt = newAuthTransport(cred.Username, cred.Password, rt, logger)

	logger.Debug("built http client",
		"base_url", baseURL.String(),
		"username", cred.Username,
		"foreground", opts.Foreground,
		"debug", opts.Debug)

	return &Client{
		cred:    cred,
		opts:    opts,
		baseURL: *baseURL,
		client: &http.Client{
			Transport:     rt,
			Jar:           jar,
			CheckRedirect: refuseRedirects,
		},
		logger: logger,
	}, nil
}

// WithBaseURL builds a new Client for another scope on the same account.
// The new client gets its own cookie jar and certificate cache.
func (c *Client) WithBaseURL(baseURL string) (*Client, error) {
	cred := c.cred
	cred.BaseURL = baseURL
	return Build(cred, c.opts)
}

// BaseURL returns a copy of the URL every relative target resolves against.
func (c *Client) BaseURL() *url.URL {
	u := c.baseURL
	return &u
}

// Logger returns the logger the client was built with.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// resolveURL resolves a URL string against the base URL. An empty string
// addresses the base URL itself.
func (c *Client) resolveURL(urlStr string) (*url.URL, error) {
	if urlStr == "" {
		return c.BaseURL(), nil
	}
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}
