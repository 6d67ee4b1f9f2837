package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/v0xg/macroweb/internal/ai"
	"github.com/v0xg/macroweb/internal/crawler"
	"github.com/v0xg/macroweb/internal/macro"
	"github.com/v0xg/macroweb/internal/messaging"
)

func newServeCmd() *cobra.Command {
	var (
		addr   string
		noPage bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Hold a page open and accept storage, key and run requests over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			// The server owns the store; it must not dial itself
			cfg.Server.URL = ""

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				keys   messaging.KeyRelay
				runner messaging.MacroRunner
			)
			if !noPage {
				browser, err := launchBrowser(cmd.Context())
				if err != nil {
					return err
				}
				defer browser.Close()

				opts, _ := executorOptions(browser)
				keys = browser
				runner = messaging.NewPageRunner(browser, opts, logger)
			}

			srv := messaging.NewServer(s, keys, runner, logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(gctx, cfg.Server.Addr)
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down")
				return nil
			})

			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", cfg.Server.Addr)
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&noPage, "no-page", false, "Serve storage only, without a browser")
	return cmd
}

func newDraftCmd() *cobra.Command {
	var (
		provider string
		model    string
	)

	cmd := &cobra.Command{
		Use:   "draft <prompt> [file]",
		Short: "Draft a macro for the page from a natural language prompt",
		Long: `Draft crawls the page for clickable and printable elements and asks an AI
provider for a macro. The result is written to file (default macro.json) and
is not run.

Example:
  macroweb draft --url https://myapp.com "accept cookies, scroll to pricing, print the plan table"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("provider") {
				cfg.AI.Provider = provider
			}
			if cmd.Flags().Changed("model") {
				cfg.AI.Model = model
			}

			p, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Model)
			if err != nil {
				return fmt.Errorf("AI provider init failed: %w", err)
			}

			browser, err := launchBrowser(cmd.Context())
			if err != nil {
				return err
			}
			defer browser.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "→ Crawling %s... ", browser.URL())
			pageMap, err := browser.Map(ctx)
			if err != nil {
				fmt.Fprintln(out, "failed")
				return fmt.Errorf("crawl failed: %w", err)
			}
			fmt.Fprintf(out, "done (found %d elements)\n", len(pageMap.Elements))

			return draft(ctx, cmd, p, pageMap, args[0], fileArg(args, 1))
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "AI provider: claude, openai (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "Specific model override")
	return cmd
}

func draft(ctx context.Context, cmd *cobra.Command, p ai.Provider, pageMap *crawler.PageMap, prompt, path string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "→ Generating macro via %s... ", cfg.AI.Provider)
	m, err := ai.GenerateMacro(ctx, p, pageMap, prompt)
	if err != nil {
		fmt.Fprintln(out, "failed")
		return fmt.Errorf("macro generation failed: %w", err)
	}
	fmt.Fprintf(out, "done (%d steps)\n", len(m))

	for i, step := range m {
		logger.Debug("drafted step", zap.Int("step", i+1), zap.Stringer("step_json", step))
	}

	data, err := macro.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Wrote %s\n", path)
	return nil
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <key>",
		Short: "Relay a key press to the page held by 'macroweb serve'",
		Long: `Relay a key press to the served page. Named keys such as Enter, Escape, Tab
and the arrow keys are pressed; anything else is typed as text. The request
returns once the server accepts it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := cfg.Server.URL
			if base == "" {
				base = "http://" + cfg.Server.Addr
			}
			return messaging.NewClient(base).RelayKey(cmd.Context(), args[0])
		},
	}
}
