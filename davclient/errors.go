package davclient

import (
	"errors"
	"fmt"

	"github.com/cyp0633/davtasks/internal/httpclient"
)

var (
	// ErrAuth is returned whenever the server answered HTTP 401.
	ErrAuth = httpclient.ErrUnauthorized
	// ErrHomeSetNotFound is returned when the principal has no usable
	// calendar-home-set.
	ErrHomeSetNotFound = errors.New("calendar home set not found")
	// ErrTLSInit and ErrCredential come from building the transport.
	ErrTLSInit    = httpclient.ErrTLSInit
	ErrCredential = httpclient.ErrCredential
	// ErrMalformedResponse is returned when a reply cannot be parsed.
	ErrMalformedResponse = httpclient.ErrMalformedResponse
)

// HTTPError is a non-2xx reply to a WebDAV request.
type HTTPError = httpclient.StatusError

// Step names a stage of discovery or collection management.
type Step string

const (
	StepTransport Step = "transport"
	StepPrincipal Step = "principal"
	StepHomeSet   Step = "home-set"
	StepList      Step = "list"
	StepCreate    Step = "create"
	StepUpdate    Step = "update"
	StepDelete    Step = "delete"
)

// StepError records which step failed. It unwraps to the cause, so
// errors.Is(err, ErrAuth) and friends keep working.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step Step, err error) error {
	if err == nil {
		return nil
	}
	var se *StepError
	if errors.As(err, &se) {
		return err
	}
	return &StepError{Step: step, Err: err}
}

// ErrorKind classifies failures for presentation; the UI maps each kind to
// its own message.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTLSInit
	KindCredential
	KindAuth
	KindHomeSetNotFound
	KindHTTP
	KindMalformedResponse
	KindUntrustedCertificate
)

func (k ErrorKind) String() string {
	switch k {
	case KindTLSInit:
		return "tls_init"
	case KindCredential:
		return "credential"
	case KindAuth:
		return "auth"
	case KindHomeSetNotFound:
		return "home_set_not_found"
	case KindHTTP:
		return "http"
	case KindMalformedResponse:
		return "malformed_response"
	case KindUntrustedCertificate:
		return "untrusted_certificate"
	}
	return "unknown"
}

// KindOf returns the kind of err, KindUnknown for nil or unrecognized errors.
func KindOf(err error) ErrorKind {
	var (
		statusErr   *HTTPError
		propstatErr *httpclient.PropstatError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrHomeSetNotFound):
		return KindHomeSetNotFound
	case errors.Is(err, ErrTLSInit):
		return KindTLSInit
	case errors.Is(err, ErrCredential):
		return KindCredential
	case errors.Is(err, httpclient.ErrUntrustedCertificate):
		return KindUntrustedCertificate
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.As(err, &statusErr), errors.As(err, &propstatErr):
		return KindHTTP
	}
	return KindUnknown
}
