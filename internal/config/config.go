package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds what the command line tool needs to reach one account.
type Config struct {
	URL      string
	Domain   string
	Username string
	Password string

	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string
	// PinnedSHA256 lists accepted leaf certificate fingerprints.
	PinnedSHA256 []string
	// Interactive enables prompting for untrusted certificates.
	Interactive bool

	Debug    bool
	LogLevel string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads the configuration from CALDAV_* environment variables.
func Load() *Config {
	return &Config{
		URL:          getenv("CALDAV_URL", ""),
		Domain:       getenv("CALDAV_DOMAIN", ""),
		Username:     getenv("CALDAV_USERNAME", ""),
		Password:     getenv("CALDAV_PASSWORD", ""),
		CAFile:       getenv("CALDAV_CA_FILE", ""),
		PinnedSHA256: getenvList("CALDAV_PINNED_SHA256"),
		Interactive:  getenvBool("CALDAV_INTERACTIVE", false),
		Debug:        getenvBool("CALDAV_DEBUG", false),
		LogLevel:     getenv("CALDAV_LOG_LEVEL", "info"),
	}
}

// Validate reports missing settings.
func (c *Config) Validate() error {
	var errs []error
	if c.URL == "" && c.Domain == "" {
		errs = append(errs, errors.New("one of URL or domain is required"))
	}
	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// ReadCA returns the contents of CAFile, or nil when unset.
func (c *Config) ReadCA() ([]byte, error) {
	if c.CAFile == "" {
		return nil, nil
	}
	b, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("reading CA file: %w", err)
	}
	return b, nil
}
