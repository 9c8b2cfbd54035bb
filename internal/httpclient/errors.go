package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTLSInit is returned by Build when the TLS context cannot be set up.
	ErrTLSInit = errors.New("TLS initialization failed")
	// ErrCredential is returned by Build for a malformed credential.
	ErrCredential = errors.New("invalid credential")
	// ErrUnauthorized matches any StatusError carrying HTTP 401.
	ErrUnauthorized = errors.New("HTTP 401: unauthorized")
	// ErrMalformedResponse is returned when a reply body cannot be parsed.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrUntrustedCertificate is returned from the TLS handshake when the
	// server certificate was rejected.
	ErrUntrustedCertificate = errors.New("untrusted server certificate")
)

// StatusError reports a non-2xx reply to a WebDAV request.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%s %s: unexpected status %s", e.Method, e.URL, status)
}

// Is lets errors.Is(err, ErrUnauthorized) single out 401 replies.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

func newStatusError(resp *http.Response) *StatusError {
	e := &StatusError{Code: resp.StatusCode, Status: resp.Status}
	if resp.Request != nil {
		e.Method = resp.Request.Method
		e.URL = resp.Request.URL.String()
	}
	return e
}

// IsUnauthorized reports whether err stems from an HTTP 401 reply.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
