package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrompter struct {
	accept bool
	calls  int
}

func (p *fakePrompter) AcceptCertificate(host string, chain []*x509.Certificate, cause error) bool {
	p.calls++
	return p.accept
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTLSServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func connState(srv *httptest.Server) tls.ConnectionState {
	return tls.ConnectionState{PeerCertificates: []*x509.Certificate{srv.Certificate()}}
}

func TestTrustManagerVerify(t *testing.T) {
	srv := newTLSServer(t)
	cert := srv.Certificate()
	pool := x509.NewCertPool()
	pool.AddCert(cert)

	colonFingerprint := func() string {
		fp := strings.ToUpper(Fingerprint(cert))
		var parts []string
		for i := 0; i < len(fp); i += 2 {
			parts = append(parts, fp[i:i+2])
		}
		return strings.Join(parts, ":")
	}

	tests := []struct {
		name       string
		policy     TrustPolicy
		foreground bool
		prompter   *fakePrompter
		host       string
		wantErr    bool
		wantCalls  int
	}{
		{
			name:    "unknown issuer in background",
			host:    "127.0.0.1",
			wantErr: true,
		},
		{
			name:    "trusted root",
			policy:  TrustPolicy{RootCAs: pool},
			host:    "127.0.0.1",
			wantErr: false,
		},
		{
			name:    "extra PEM root",
			policy:  TrustPolicy{ExtraRootsPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})},
			host:    "example.com",
			wantErr: false,
		},
		{
			name:    "trusted root with wrong host",
			policy:  TrustPolicy{RootCAs: pool},
			host:    "dav.example.org",
			wantErr: true,
		},
		{
			name: "custom hostname verifier",
			policy: TrustPolicy{
				RootCAs:          pool,
				HostnameVerifier: func(string, *x509.Certificate) error { return nil },
			},
			host:    "dav.example.org",
			wantErr: false,
		},
		{
			name:    "pinned fingerprint",
			policy:  TrustPolicy{PinnedFingerprints: []string{colonFingerprint()}},
			host:    "127.0.0.1",
			wantErr: false,
		},
		{
			name:      "prompter ignored in background",
			prompter:  &fakePrompter{accept: true},
			host:      "127.0.0.1",
			wantErr:   true,
			wantCalls: 0,
		},
		{
			name:       "prompter accepts in foreground",
			foreground: true,
			prompter:   &fakePrompter{accept: true},
			host:       "127.0.0.1",
			wantErr:    false,
			wantCalls:  1,
		},
		{
			name:       "prompter rejects in foreground",
			foreground: true,
			prompter:   &fakePrompter{accept: false},
			host:       "127.0.0.1",
			wantErr:    true,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prompter != nil {
				tt.policy.Prompter = tt.prompter
			}
			if tt.policy.RootCAs == nil {
				tt.policy.RootCAs = x509.NewCertPool()
			}
			m, err := newTrustManager(tt.policy, tt.foreground, discardLogger())
			require.NoError(t, err)

			err = m.verify(tt.host, connState(srv))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUntrustedCertificate)
			} else {
				assert.NoError(t, err)
			}
			if tt.prompter != nil {
				assert.Equal(t, tt.wantCalls, tt.prompter.calls)
			}
		})
	}
}

func TestTrustManagerRemembersAcceptance(t *testing.T) {
	srv := newTLSServer(t)
	prompter := &fakePrompter{accept: true}
	m, err := newTrustManager(TrustPolicy{RootCAs: x509.NewCertPool(), Prompter: prompter}, true, discardLogger())
	require.NoError(t, err)

	require.NoError(t, m.verify("127.0.0.1", connState(srv)))
	require.NoError(t, m.verify("127.0.0.1", connState(srv)))
	assert.Equal(t, 1, prompter.calls)

	// A new manager, as built for a new client, asks again.
	m2, err := newTrustManager(TrustPolicy{RootCAs: x509.NewCertPool(), Prompter: prompter}, true, discardLogger())
	require.NoError(t, err)
	require.NoError(t, m2.verify("127.0.0.1", connState(srv)))
	assert.Equal(t, 2, prompter.calls)
}

func TestUntrustedServerFailsRequest(t *testing.T) {
	srv := newTLSServer(t)

	c, err := Build(Credential{
		BaseURL:  srv.URL + "/",
		Username: "alice",
		Trust:    TrustPolicy{RootCAs: x509.NewCertPool()},
	}, Options{})
	require.NoError(t, err)

	err = c.DoDELETE(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUntrustedCertificate))
}

func TestTrustedServerRequest(t *testing.T) {
	srv := newTLSServer(t)
	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())

	c, err := Build(Credential{
		BaseURL:  srv.URL + "/",
		Username: "alice",
		Trust:    TrustPolicy{RootCAs: pool},
	}, Options{})
	require.NoError(t, err)
	assert.NoError(t, c.DoDELETE(context.Background(), ""))
}
