package main

import (
	"bufio"
	"context"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cyp0633/davtasks/davclient"
	"github.com/cyp0633/davtasks/internal/config"
	"github.com/cyp0633/davtasks/internal/httpclient"
)

const usage = `usage: caldav-tasks [flags] <command> [args]

commands:
  discover                       list task calendars of the account
  create <name> [#RRGGBBAA]      create a task calendar in the home set
  update <url> <name> [#RRGGBBAA] rename or recolor a calendar (no color removes it)
  delete <url>                   delete a calendar

The password is read from CALDAV_PASSWORD.
`

func main() {
	cfg := config.Load()

	flag.StringVar(&cfg.URL, "url", cfg.URL, "CalDAV server URL")
	flag.StringVar(&cfg.Domain, "domain", cfg.Domain, "look up the server URL through DNS SRV records")
	flag.StringVar(&cfg.Username, "user", cfg.Username, "username")
	flag.StringVar(&cfg.CAFile, "ca-file", cfg.CAFile, "extra PEM roots to trust")
	flag.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "ask before trusting unknown certificates")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log HTTP traffic")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Args()); err != nil {
		logger.Error("command failed", "error", err, "kind", davclient.KindOf(err).String())
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	ca, err := cfg.ReadCA()
	if err != nil {
		return err
	}
	opts := davclient.Options{
		Foreground: cfg.Interactive,
		Debug:      cfg.Debug,
		Logger:     logger,
	}
	discoverer := davclient.NewDiscoverer(opts)

	baseURL := cfg.URL
	if baseURL == "" {
		u, err := discoverer.LookupServiceURL(ctx, cfg.Domain)
		if err != nil {
			return err
		}
		logger.Info("discovered server", "url", u)
		baseURL = u
	}
	cred := davclient.Credential{
		BaseURL:  baseURL,
		Username: cfg.Username,
		Password: cfg.Password,
		Trust: davclient.TrustPolicy{
			ExtraRootsPEM:      ca,
			PinnedFingerprints: cfg.PinnedSHA256,
			Prompter:           stdinPrompter{},
		},
	}

	switch args[0] {
	case "discover":
		cals, err := discoverer.Discover(ctx, cred)
		if err != nil {
			return err
		}
		for _, c := range cals {
			fmt.Printf("%s\t%s\t%s\tctag=%s\tsync=%s\n", c.Href, c.DisplayName, c.Color, c.ChangeTag, c.SyncToken)
		}
		return nil

	case "create":
		if len(args) < 2 {
			return errors.New("create: missing name")
		}
		color, err := colorArg(args, 2)
		if err != nil {
			return err
		}
		home, err := discoverer.HomeSet(ctx, cred)
		if err != nil {
			return err
		}
		loc, err := davclient.NewDAVClient(home).CreateCollection(ctx, args[1], color)
		if err != nil {
			return err
		}
		fmt.Println(loc)
		return nil

	case "update":
		if len(args) < 3 {
			return errors.New("update: need <url> <name>")
		}
		color, err := colorArg(args, 3)
		if err != nil {
			return err
		}
		c, err := collectionClient(cred, opts, args[1])
		if err != nil {
			return err
		}
		loc, err := c.UpdateCollection(ctx, args[2], color)
		if err != nil {
			return err
		}
		fmt.Println(loc)
		return nil

	case "delete":
		if len(args) < 2 {
			return errors.New("delete: missing url")
		}
		c, err := collectionClient(cred, opts, args[1])
		if err != nil {
			return err
		}
		return c.DeleteCollection(ctx)
	}
	return fmt.Errorf("unknown command %q", args[0])
}

// collectionClient addresses the collection at url directly.
func collectionClient(cred davclient.Credential, opts davclient.Options, url string) (davclient.DAVClient, error) {
	cred.BaseURL = url
	c, err := davclient.NewClient(cred, opts)
	if err != nil {
		return nil, err
	}
	return davclient.NewDAVClient(c), nil
}

func colorArg(args []string, i int) (int32, error) {
	if len(args) <= i {
		return davclient.NoColor, nil
	}
	c, ok := davclient.ParseColor(args[i])
	if !ok {
		return 0, fmt.Errorf("invalid color %q", args[i])
	}
	return c, nil
}

type stdinPrompter struct{}

func (stdinPrompter) AcceptCertificate(host string, chain []*x509.Certificate, cause error) bool {
	leaf := chain[0]
	fmt.Fprintf(os.Stderr, "Certificate for %s is not trusted: %v\n", host, cause)
	fmt.Fprintf(os.Stderr, "  subject: %s\n  issuer:  %s\n  sha256:  %s\n",
		leaf.Subject, leaf.Issuer, httpclient.Fingerprint(leaf))
	fmt.Fprint(os.Stderr, "Trust it for this session? [y/N] ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
