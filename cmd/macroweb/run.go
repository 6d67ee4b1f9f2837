package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/macroweb/internal/diag"
	"github.com/v0xg/macroweb/internal/executor"
	"github.com/v0xg/macroweb/internal/macro"
	"github.com/v0xg/macroweb/internal/messaging"
	"github.com/v0xg/macroweb/internal/store"
)

func newRunCmd() *cobra.Command {
	var (
		name        string
		failuresGIF string
	)

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run a macro against the page",
		Long: `Run every step of a macro in order. Steps that find nothing or fail are
reported and the run continues.

The macro is read from file (default macro.json), or from the store with --name.
With --server the run happens on the page held by that server.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var source []byte
			if name != "" {
				s, err := openStore(ctx)
				if err != nil {
					return err
				}
				defer s.Close()
				text, err := store.Load(ctx, s, name)
				if err != nil {
					return fmt.Errorf("load %q: %w", name, err)
				}
				source = []byte(text)
			} else {
				data, err := readMacroFile(fileArg(args, 0))
				if err != nil {
					return err
				}
				source = data
			}

			if cfg.Server.URL != "" {
				return runRemote(cmd, source)
			}

			start := time.Now()
			browser, err := launchBrowser(cmd.Context())
			if err != nil {
				return err
			}
			defer browser.Close()

			opts, capturer := executorOptions(browser)
			status := diag.NewConsole(os.Stderr)
			log := diag.NewLog(cmd.OutOrStdout(), logger)
			runner := executor.NewRunner(browser, log, status, opts, logger)

			summary, err := runner.RunSource(ctx, source)
			status.Flush()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d succeeded, %d not found, %d failed (%s)\n",
				summary.Succeeded(), summary.NotFound(), summary.Failed(), elapsed(start))

			if failuresGIF != "" && capturer != nil {
				size, err := capturer.WriteGIF(failuresGIF, 100)
				if err != nil {
					logger.Warn("failed to write failures GIF", zap.Error(err))
				} else if size > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d captures, %.1f KB)\n",
						failuresGIF, capturer.Count(), float64(size)/1024)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Run a stored macro instead of a file")
	cmd.Flags().StringVar(&failuresGIF, "failures-gif", "", "Write not-found captures as an animated GIF (needs capture_dir)")
	return cmd
}

func runRemote(cmd *cobra.Command, source []byte) error {
	report, err := messaging.NewClient(cfg.Server.URL).Run(cmd.Context(), source)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(report.Diagnostics) > 0 {
		fmt.Fprintln(out, "Diagnostics:")
		for _, line := range report.Diagnostics {
			fmt.Fprintln(out, line)
		}
	}
	fmt.Fprintf(out, "%s %d succeeded, %d not found, %d failed (run %s)\n",
		report.Status, report.Succeeded, report.NotFound, report.Failed, report.RunID)
	return nil
}

func newAddCmd() *cobra.Command {
	var (
		action   string
		selector string
		delay    float64
	)

	cmd := &cobra.Command{
		Use:   "add [file]",
		Short: "Append a step to a macro file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := macro.NewStep(macro.Action(action), selector, delay)
			if err != nil {
				return err
			}

			path := fileArg(args, 0)
			buffer, err := os.ReadFile(path)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			updated, err := macro.Append(buffer, step)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, append(updated, '\n'), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added step: %s\n", step)
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", "click", "Step action: click, scroll, print")
	cmd.Flags().StringVar(&selector, "selector", "", "CSS selector the step targets")
	cmd.Flags().Float64Var(&delay, "delay", 0, "Milliseconds to wait before the step")
	_ = cmd.MarkFlagRequired("selector")
	return cmd
}
