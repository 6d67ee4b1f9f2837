package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/macroweb/internal/capture"
	"github.com/v0xg/macroweb/internal/config"
	"github.com/v0xg/macroweb/internal/crawler"
	"github.com/v0xg/macroweb/internal/executor"
	"github.com/v0xg/macroweb/internal/logging"
	"github.com/v0xg/macroweb/internal/messaging"
	"github.com/v0xg/macroweb/internal/store"
	"github.com/v0xg/macroweb/internal/waiter"
)

const defaultMacroFile = "macro.json"

var (
	configPath string
	url        string
	remote     string
	server     string
	headless   bool
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "macroweb",
		Short: "Record and replay click, scroll and print macros on live web pages",
		Long: `macroweb replays macros against a page in Chrome/Chromium. A macro is a JSON
array of steps; each step waits for its selector across the page and its
same-origin iframes, then clicks, scrolls to or prints what it found.

Example:
  macroweb add --action click --selector "#accept" --delay 0
  macroweb run --url https://myapp.com macro.json`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: macroweb.yaml if present)")
	flags.StringVar(&url, "url", "", "Page to open")
	flags.StringVar(&remote, "remote", "", "DevTools URL of a running browser to attach to")
	flags.StringVar(&server, "server", "", "Base URL of a running 'macroweb serve' to use for storage and keys")
	flags.BoolVar(&headless, "headless", true, "Run the browser without a window")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(
		newRunCmd(),
		newAddCmd(),
		newSaveCmd(),
		newLoadCmd(),
		newListCmd(),
		newDeleteCmd(),
		newExportCmd(),
		newServeCmd(),
		newDraftCmd(),
		newKeyCmd(),
	)
	return rootCmd
}

// setup loads configuration and applies flags given on the command line
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Browser.URL = url
	}
	if flags.Changed("remote") {
		cfg.Browser.RemoteURL = remote
	}
	if flags.Changed("server") {
		cfg.Server.URL = server
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	logger = logging.New(cfg.Log, os.Stderr)
	return nil
}

// openStore returns the remote store when a server is configured, otherwise
// the local backend.
func openStore(ctx context.Context) (store.Store, error) {
	if cfg.Server.URL != "" {
		logger.Debug("using remote store", zap.String("server", cfg.Server.URL))
		return messaging.NewClient(cfg.Server.URL), nil
	}
	return store.Open(ctx, store.Config{
		Driver:        cfg.Store.Driver,
		Path:          cfg.Store.Path,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		RedisKey:      cfg.Store.RedisKey,
	}, logger)
}

func launchBrowser(ctx context.Context) (*crawler.Browser, error) {
	return crawler.Launch(ctx, crawler.Options{
		URL:        cfg.Browser.URL,
		RemoteURL:  cfg.Browser.RemoteURL,
		Width:      cfg.Browser.Width,
		Height:     cfg.Browser.Height,
		Headless:   cfg.Browser.Headless,
		ProfileDir: cfg.Browser.ProfileDir,
		Stealth:    cfg.Browser.Stealth,
		PrintDir:   cfg.PrintDir,
		Timeout:    cfg.Browser.LoadTimeout,
	}, logger)
}

// executorOptions builds run options for b. The returned capturer is nil
// when captures are disabled.
func executorOptions(b *crawler.Browser) (executor.Options, *capture.Capturer) {
	opts := executor.Options{
		Wait: waiter.Options{
			Timeout:  cfg.Engine.WaitTimeout,
			Interval: cfg.Engine.PollInterval,
		},
		SnapshotLimit: cfg.Engine.SnapshotLimit,
	}
	if cfg.CaptureDir == "" {
		return opts, nil
	}
	c := capture.New(b, capture.Options{Dir: cfg.CaptureDir})
	opts.Capturer = c
	return opts, c
}

func readMacroFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func fileArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return defaultMacroFile
}

func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
