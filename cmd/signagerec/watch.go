package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"signagerec/internal/logging"
	"signagerec/internal/trigger"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a capture whenever the start marker appears",
		Long: "Watches the state directory and performs a run at startup, whenever\n" +
			"the start marker is created, and every --interval as a retry tick.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			r, err := ctx.newRunner(signalCtx)
			if err != nil {
				return err
			}
			defer r.Close()

			w := &watcher{
				runner:    r,
				dir:       r.store.Dir(),
				startName: filepath.Base(r.store.Path(trigger.Start)),
				interval:  interval,
			}
			return w.run(signalCtx)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "Retry tick for a start marker left by a failed run (0 disables)")
	return cmd
}

type watcher struct {
	runner    *runner
	dir       string
	startName string
	interval  time.Duration
	// ran is notified after every attempt; used by tests.
	ran chan<- struct{}
}

func (w *watcher) run(ctx context.Context) error {
	logger := logging.NewComponentLogger(w.runner.logger, "watch")

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", w.dir, err)
	}

	// Coalesces bursts of events into one pending run.
	pending := make(chan struct{}, 1)
	kick := func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}
	kick()

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	logger.Info("watching for start marker",
		logging.String("dir", w.dir),
		logging.String("marker", w.startName),
		logging.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher channel closed")
			}
			if filepath.Base(event.Name) == w.startName && event.Has(fsnotify.Create) {
				kick()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			logger.Warn("fsnotify watcher error", logging.Error(err))
		case <-tick:
			kick()
		case <-pending:
			if _, err := w.runner.runOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("capture attempt failed; start marker kept for retry", logging.Error(err))
			}
			if w.ran != nil {
				w.ran <- struct{}{}
			}
		}
	}
}
