package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("CALDAV_URL", "https://dav.example.com/")
	t.Setenv("CALDAV_DOMAIN", "")
	t.Setenv("CALDAV_USERNAME", "alice")
	t.Setenv("CALDAV_PASSWORD", "s3cret")
	t.Setenv("CALDAV_CA_FILE", "/etc/ssl/extra.pem")
	t.Setenv("CALDAV_PINNED_SHA256", " AB:CD , ,ef01")
	t.Setenv("CALDAV_INTERACTIVE", "true")
	t.Setenv("CALDAV_DEBUG", "1")
	t.Setenv("CALDAV_LOG_LEVEL", "warn")

	cfg := Load()
	assert.Equal(t, &Config{
		URL:          "https://dav.example.com/",
		Username:     "alice",
		Password:     "s3cret",
		CAFile:       "/etc/ssl/extra.pem",
		PinnedSHA256: []string{"AB:CD", "ef01"},
		Interactive:  true,
		Debug:        true,
		LogLevel:     "warn",
	}, cfg)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"CALDAV_URL", "CALDAV_DOMAIN", "CALDAV_USERNAME", "CALDAV_PASSWORD", "CALDAV_CA_FILE",
		"CALDAV_PINNED_SHA256", "CALDAV_INTERACTIVE", "CALDAV_DEBUG", "CALDAV_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	// Unparsable booleans fall back to the default.
	t.Setenv("CALDAV_DEBUG", "sometimes")

	cfg := Load()
	assert.Empty(t, cfg.URL)
	assert.Nil(t, cfg.PinnedSHA256)
	assert.False(t, cfg.Interactive)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "url",
			cfg:  Config{URL: "https://dav.example.com/", Username: "alice", LogLevel: "info"},
		},
		{
			name: "domain only",
			cfg:  Config{Domain: "example.com", Username: "alice", LogLevel: "DEBUG"},
		},
		{
			name:    "missing location",
			cfg:     Config{Username: "alice", LogLevel: "info"},
			wantErr: []string{"one of URL or domain is required"},
		},
		{
			name:    "everything wrong",
			cfg:     Config{LogLevel: "loud"},
			wantErr: []string{"one of URL or domain is required", "username is required", `unknown log level "loud"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.wantErr {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestReadCA(t *testing.T) {
	var empty Config
	b, err := empty.ReadCA()
	require.NoError(t, err)
	assert.Nil(t, b)

	pem := []byte("-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n")
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, pem, 0o600))

	cfg := Config{CAFile: path}
	b, err = cfg.ReadCA()
	require.NoError(t, err)
	assert.Equal(t, pem, b)

	cfg.CAFile = filepath.Join(t.TempDir(), "missing.pem")
	_, err = cfg.ReadCA()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
