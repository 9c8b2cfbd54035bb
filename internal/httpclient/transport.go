package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/icholy/digest"
)

// newNetworkTransport builds the transport that talks to the network.
// Write and read timeouts are applied per I/O call, the way a socket
// timeout would be, rather than once per request. TLS handshakes are done
// here so that certificate checks know which host was dialed.
func newNetworkTransport(trust *trustManager, timeouts Timeouts) *http.Transport {
	dialer := &net.Dialer{Timeout: timeouts.Connect, KeepAlive: 30 * time.Second}
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return &deadlineConn{Conn: conn, read: timeouts.Read, write: timeouts.Write}, nil
	}
	dialTLS := func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		conn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		tlsConn := tls.Client(conn, trust.tlsConfig(host))
		hsCtx, cancel := context.WithTimeout(ctx, timeouts.Connect)
		defer cancel()
		if err := tlsConn.HandshakeContext(hsCtx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
	return &http.Transport{
		DialContext:           dial,
		DialTLSContext:        dialTLS,
		ResponseHeaderTimeout: timeouts.Read,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   4,
	}
}

// deadlineConn refreshes the read or write deadline before every call.
type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

type authScheme int

const (
	schemeNone authScheme = iota
	schemeBasic
	schemeDigest
)

// authTransport answers Basic and Digest challenges. A request that comes
// back 401 with a usable challenge is sent once more with credentials; a
// second 401 is returned to the caller. Once a scheme worked it is sent
// preemptively on later requests.
type authTransport struct {
	username string
	password string
	next     http.RoundTripper
	logger   *slog.Logger

	mu        sync.Mutex
	scheme    authScheme
	challenge *digest.Challenge
	count     int
}

func newAuthTransport(username, password string, next http.RoundTripper, logger *slog.Logger) *authTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &authTransport{
		username: username,
		password: password,
		next:     next,
		logger:   logger,
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	first := req.Clone(req.Context())
	preemptive, err := t.authorize(first)
	if err != nil {
		return nil, err
	}
	resp, err := t.next.RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if !t.learn(resp.Header) {
		t.logger.Debug("401 without usable challenge", "url", req.URL.String(), "preemptive", preemptive)
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		// The body was consumed and cannot be replayed.
		return resp, nil
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	if _, err := t.authorize(retry); err != nil {
		return nil, err
	}
	t.logger.Debug("retrying request with credentials", "method", req.Method, "url", req.URL.String())
	return t.next.RoundTrip(retry)
}

// learn records the challenge from a 401 reply. Digest wins over Basic
// when the server offers both.
func (t *authTransport) learn(h http.Header) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if chal, err := digest.FindChallenge(h); err == nil {
		t.scheme = schemeDigest
		t.challenge = chal
		t.count = 0
		return true
	}
	for _, v := range h.Values("WWW-Authenticate") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "basic") {
			t.scheme = schemeBasic
			return true
		}
	}
	return false
}

// authorize sets the Authorization header for the learned scheme and
// reports whether one was set.
func (t *authTransport) authorize(req *http.Request) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.scheme {
	case schemeBasic:
		req.SetBasicAuth(t.username, t.password)
		return true, nil
	case schemeDigest:
		t.count++
		cred, err := digest.Digest(t.challenge, digest.Options{
			Method:   req.Method,
			URI:      req.URL.RequestURI(),
			GetBody:  req.GetBody,
			Count:    t.count,
			Username: t.username,
			Password: t.password,
		})
		if err != nil {
			return false, err
		}
		req.Header.Set("Authorization", cred.String())
		return true, nil
	}
	return false, nil
}

// debugTransport logs requests and responses including bodies. It is only
// installed when Options.Debug is set.
type debugTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

// RoundTrip implements the http.RoundTripper interface.
func (t *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqBody := ""
	if req.Body != nil && req.Body != http.NoBody {
		bodyBytes, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		reqBody = string(bodyBytes)
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	t.logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String(),
		"headers", redact(req.Header),
		"body", reqBody)

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.logger.Debug("request failed", "url", req.URL.String(), "error", err)
		return nil, err
	}

	respBody := ""
	if resp.Body != nil {
		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		respBody = string(bodyBytes)
		resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	t.logger.Debug("incoming response",
		"status", resp.Status,
		"headers", resp.Header,
		"body", respBody)
	return resp, nil
}

func redact(h http.Header) http.Header {
	out := h.Clone()
	if out.Get("Authorization") != "" {
		out.Set("Authorization", "[redacted]")
	}
	return out
}
