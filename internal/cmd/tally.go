package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/atikulmunna/logtally/internal/aggregator"
	"github.com/atikulmunna/logtally/internal/config"
	"github.com/atikulmunna/logtally/internal/feed"
	"github.com/atikulmunna/logtally/internal/generator"
	"github.com/atikulmunna/logtally/internal/output"
	"github.com/atikulmunna/logtally/internal/tailer"
	"github.com/atikulmunna/logtally/internal/watcher"
)

func runTally(cmd *cobra.Command, opts config.Options) error {
	// --- Interrupts drain to a final report ---
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger(opts.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// --- Pick the source feed ---
	g, gctx := errgroup.WithContext(ctx)
	src, opts, err := openFeed(gctx, cmd, g, opts, log)
	if err != nil {
		return err
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	// --- Choose reporter ---
	rep, err := output.New(opts.Output, cmd.OutOrStdout(), opts.Verbose, opts.Color)
	if err != nil {
		return err
	}

	aggOpts := []aggregator.Option{aggregator.WithLogger(log)}
	if opts.Slowmo {
		aggOpts = append(aggOpts, aggregator.WithPacer(feed.NewSlowmo(nil, feed.DefaultSlowmo)))
	}
	agg := aggregator.New(opts.Aggregator(), rep, aggOpts...)

	// --- Run until end of input or interrupt ---
	_, runErr := agg.Run(gctx, src)
	stop()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// openFeed resolves where lines come from. On stdin, a leading directive line
// may replace the options, so the effective options are returned as well.
func openFeed(ctx context.Context, cmd *cobra.Command, g *errgroup.Group, opts config.Options, log *zap.Logger) (feed.Feed, config.Options, error) {
	stderr := cmd.ErrOrStderr()

	if len(opts.Follow) > 0 {
		w, err := watcher.New(opts.Follow, log)
		if err != nil {
			return nil, opts, fmt.Errorf("failed to create watcher: %w", err)
		}
		if opts.Verbose {
			fmt.Fprintf(stderr, "Following %d file(s):\n", len(w.Paths()))
			for _, p := range w.Paths() {
				fmt.Fprintf(stderr, "   • %s\n", p)
			}
		}
		t := tailer.New(w, opts.FromStart, log)
		g.Go(func() error { w.Start(ctx); return nil })
		g.Go(func() error { t.Start(ctx); return nil })
		return t, opts, nil
	}

	if opts.List {
		announce(stderr, "LIST", opts)
		return batch(opts), opts, nil
	}

	stream := feed.NewStream(cmd.InOrStdin())
	first, err := stream.Next(ctx)
	if err != nil {
		// Empty input or an early interrupt: the run reports zero lines.
		return stream, opts, nil
	}

	d, ok := config.ParseDirective(first, opts)
	switch {
	case !ok:
		announce(stderr, "STDIN", opts)
		return feed.Prepend(first, stream), opts, nil
	case d.Help:
		fmt.Fprint(stderr, cmd.UsageString())
		return stream, opts, nil
	}

	opts = d.Options
	log.Debug("directive applied", zap.Strings("modes", opts.Modes()))
	if opts.List {
		_ = stream.Close()
		announce(stderr, "LIST", opts)
		return batch(opts), opts, nil
	}
	announce(stderr, "STDIN", opts)
	return stream, opts, nil
}

func batch(opts config.Options) feed.Feed {
	return feed.NewSlice(generator.New(nil, nil).Batch(opts.BatchSize))
}

func announce(w io.Writer, mode string, opts config.Options) {
	if opts.Verbose {
		fmt.Fprintf(w, "Running in %s mode. . . args: [%s]\n", mode, strings.Join(opts.Modes(), " "))
	}
}

// newLogger builds the stderr diagnostics logger.
func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}
