package httpclient

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// CertPrompter asks the user whether to trust a certificate that failed
// verification. It is consulted only for foreground clients.
type CertPrompter interface {
	AcceptCertificate(host string, chain []*x509.Certificate, cause error) bool
}

// HostnameVerifier replaces the default hostname check of the leaf
// certificate.
type HostnameVerifier func(host string, leaf *x509.Certificate) error

// TrustPolicy configures server certificate evaluation.
type TrustPolicy struct {
	// RootCAs replaces the system pool when set.
	RootCAs *x509.CertPool
	// ExtraRootsPEM is appended to the root pool.
	ExtraRootsPEM []byte
	// PinnedFingerprints are hex SHA-256 digests of leaf certificates that
	// are accepted even when chain verification fails. Colons are ignored.
	PinnedFingerprints []string
	HostnameVerifier   HostnameVerifier
	Prompter           CertPrompter
}

type trustManager struct {
	roots      *x509.CertPool
	pinned     map[string]bool
	verifyHost HostnameVerifier
	prompter   CertPrompter
	foreground bool
	logger     *slog.Logger

	mu       sync.Mutex
	accepted map[string]bool
}

func newTrustManager(p TrustPolicy, foreground bool, logger *slog.Logger) (*trustManager, error) {
	roots := p.RootCAs
	if roots == nil {
		sys, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("%w: loading system roots: %v", ErrTLSInit, err)
		}
		roots = sys
	} else {
		roots = roots.Clone()
	}
	if len(p.ExtraRootsPEM) > 0 && !roots.AppendCertsFromPEM(p.ExtraRootsPEM) {
		return nil, fmt.Errorf("%w: no certificates found in extra roots PEM", ErrTLSInit)
	}

	pinned := make(map[string]bool, len(p.PinnedFingerprints))
	for _, fp := range p.PinnedFingerprints {
		norm := normalizeFingerprint(fp)
		if raw, err := hex.DecodeString(norm); err != nil || len(raw) != sha256.Size {
			return nil, fmt.Errorf("%w: invalid SHA-256 fingerprint %q", ErrTLSInit, fp)
		}
		pinned[norm] = true
	}

	verifyHost := p.HostnameVerifier
	if verifyHost == nil {
		verifyHost = func(host string, leaf *x509.Certificate) error {
			return leaf.VerifyHostname(host)
		}
	}

	return &trustManager{
		roots:      roots,
		pinned:     pinned,
		verifyHost: verifyHost,
		prompter:   p.Prompter,
		foreground: foreground,
		logger:     logger,
		accepted:   make(map[string]bool),
	}, nil
}

// tlsConfig disables the built-in verification so that VerifyConnection can
// apply pinning and prompting on top of the standard checks. host is the
// dialed host; the connection state leaves ServerName empty for IP
// addresses.
func (m *trustManager) tlsConfig(host string) *tls.Config {
	return &tls.Config{
		ServerName:         host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			return m.verify(host, cs)
		},
	}
}

func (m *trustManager) verify(host string, cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return fmt.Errorf("%w: no peer certificates", ErrUntrustedCertificate)
	}
	leaf := cs.PeerCertificates[0]

	cause := m.verifyChain(host, cs.PeerCertificates)
	if cause == nil {
		return nil
	}

	fp := Fingerprint(leaf)
	if m.pinned[fp] {
		m.logger.Debug("accepting pinned certificate", "host", host, "sha256", fp)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accepted[fp] {
		return nil
	}
	if !m.foreground || m.prompter == nil {
		m.logger.Warn("rejecting untrusted certificate", "host", host, "sha256", fp, "error", cause)
		return fmt.Errorf("%w: %v", ErrUntrustedCertificate, cause)
	}
	if !m.prompter.AcceptCertificate(host, cs.PeerCertificates, cause) {
		return fmt.Errorf("%w: rejected by user: %v", ErrUntrustedCertificate, cause)
	}
	m.accepted[fp] = true
	return nil
}

func (m *trustManager) verifyChain(host string, chain []*x509.Certificate) error {
	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}
	if _, err := chain[0].Verify(x509.VerifyOptions{
		Roots:         m.roots,
		Intermediates: intermediates,
	}); err != nil {
		return err
	}
	return m.verifyHost(host, chain[0])
}

// Fingerprint returns the lowercase hex SHA-256 digest of cert.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

func normalizeFingerprint(fp string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(fp), ":", ""))
}
