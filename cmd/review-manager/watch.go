package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gstamp/github-review-manager/internal/watch"
)

// WatchCmd runs the periodic refresh loop until interrupted.
type WatchCmd struct{}

// Run executes the watch command
func (w *WatchCmd) Run(c *Container) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.Logger.Info("watching pull requests",
		"interval", c.Config.RefreshInterval,
		"database", c.Config.DatabasePath)

	watcher := watch.New(c.Engine, c.Store, c.Notifier, c.Config.RefreshInterval, c.Logger)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
