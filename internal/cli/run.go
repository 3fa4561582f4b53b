package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sluiceproject/sluice/internal/config"
	"github.com/sluiceproject/sluice/internal/controller"
	"github.com/sluiceproject/sluice/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config string

	// Stdin and Stdout allow tests to substitute streams.
	Stdin  io.Reader
	Stdout io.Writer
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a demo node over stdin records",
		Long: `Run a sluice node: each stdin line is one record, processed
asynchronously and emitted on stdout. A periodic tick flushes work completed
between records. With a journal configured, every emission is also written
to the SQLite emission journal.

Example:
  printf 'hello\nworld\n' | sluice run
  sluice run --config ./sluice.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Stdin == nil {
				opts.Stdin = os.Stdin
			}
			if opts.Stdout == nil {
				opts.Stdout = cmd.OutOrStdout()
			}
			return runNode(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML node config (optional)")

	return cmd
}

func runNode(ctx context.Context, opts *RunOptions) error {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	var sink controller.Sink = &writerSink{w: opts.Stdout}

	if cfg.Journal != "" {
		slog.Info("opening emission journal", "path", cfg.Journal)
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()

		runID := journal.UUIDv7Generator{}.Generate()
		slog.Info("journal ready", "run_id", runID)
		sink = journal.NewSink(j, runID,
			journal.WithDownstream(sink),
			journal.WithAnchoring(*cfg.AnchorOutputs),
		)
	}

	ctrl := controller.New(
		lineDecoder(time.Now),
		demoProcessor(cfg.ProcessDelay.Std()),
		sink,
		cfg.ControllerOptions()...,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return invokeLoop(ctx, ctrl, opts.Stdin, cfg.TickInterval.Std())
}

// invokeLoop is the demo host scheduler: one goroutine invoking the
// controller for each stdin record and each tick, preserving the
// single-threaded invocation discipline.
//
// Fatal invocation faults (decode or dispatch failures) are logged and the
// offending record is skipped; the stream keeps flowing. A final tick after
// stdin closes flushes whatever resolved during shutdown.
func invokeLoop(ctx context.Context, ctrl *controller.Controller, stdin io.Reader, tickInterval time.Duration) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	recordNum := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("node stopping: signal received")
			return nil

		case <-ticker.C:
			if err := ctrl.Invoke(ctx, controller.TickSignal()); err != nil {
				logInvokeError("tick", err)
			}

		case line, ok := <-lines:
			if !ok {
				// Input exhausted: tick until in-flight work is flushed
				flushOnShutdown(ctx, ctrl)
				select {
				case err := <-scanErr:
					if err != nil {
						return WrapExitError(ExitFailure, "reading input", err)
					}
				default:
				}
				slog.Info("node stopping: input exhausted", "records", recordNum)
				return nil
			}

			recordNum++
			sig := controller.RecordSignal(&controller.RawRecord{
				Handle: fmt.Sprintf("record-%d", recordNum),
				Data:   []byte(line),
			})
			if err := ctrl.Invoke(ctx, sig); err != nil {
				logInvokeError(fmt.Sprintf("record-%d", recordNum), err)
			}
		}
	}
}

// shutdownFlushBudget bounds how long a stopping node keeps ticking to
// flush still-pending operations.
const shutdownFlushBudget = 5 * time.Second

// flushOnShutdown ticks the controller until nothing is pending or queued,
// bounded by shutdownFlushBudget. Operations are not cancellable, so work
// still in flight past the budget is abandoned with a log line.
func flushOnShutdown(ctx context.Context, ctrl *controller.Controller) {
	deadline := time.Now().Add(shutdownFlushBudget)
	for {
		if err := ctrl.Invoke(ctx, controller.TickSignal()); err != nil {
			logInvokeError("shutdown tick", err)
		}
		if ctrl.PendingOperations() == 0 && ctrl.QueuedCompletions() == 0 {
			return
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			slog.Warn("shutdown flush abandoned",
				"still_pending", ctrl.PendingOperations(),
				"queued", ctrl.QueuedCompletions(),
			)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// logInvokeError reports a fatal invocation fault with its classification.
// The demo host's policy is log-and-continue; a real host may instead fail
// the stream.
func logInvokeError(unit string, err error) {
	switch {
	case controller.IsDecodeError(err):
		slog.Error("record dropped: decode failure", "unit", unit, "error", err)
	case controller.IsDispatchError(err):
		slog.Error("invocation failed: dispatch failure", "unit", unit, "error", err)
	default:
		slog.Error("invocation failed", "unit", unit, "error", err)
	}
}
