package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/gstamp/github-review-manager/internal/auth"
	"github.com/gstamp/github-review-manager/internal/cache"
	"github.com/gstamp/github-review-manager/internal/config"
	"github.com/gstamp/github-review-manager/internal/github"
	"github.com/gstamp/github-review-manager/internal/logging"
	"github.com/gstamp/github-review-manager/internal/notify"
	"github.com/gstamp/github-review-manager/internal/store"
)

// CLI is the command tree.
type CLI struct {
	Config string `help:"Path to config file" type:"path"`
	Debug  bool   `help:"Enable debug logging" short:"d"`

	Watch     WatchCmd     `cmd:"" help:"Run the refresh loop and send desktop notifications" default:"1"`
	List      ListCmd      `cmd:"" help:"List pull requests"`
	Approve   ApproveCmd   `cmd:"" help:"Approve a pull request"`
	Merge     MergeCmd     `cmd:"" help:"Merge a pull request, or enqueue it when the branch requires a merge queue"`
	Snooze    SnoozeCmd    `cmd:"" help:"Hide a pull request until a later time"`
	Unsnooze  UnsnoozeCmd  `cmd:"" help:"Remove a snooze"`
	Dismiss   DismissCmd   `cmd:"" help:"Dismiss a pull request from the default view"`
	Undismiss UndismissCmd `cmd:"" help:"Restore a dismissed pull request"`
	SetToken  SetTokenCmd  `cmd:"" name:"set-token" help:"Store a GitHub token in the OS keyring"`
}

// Container holds the wired application dependencies. Everything is
// constructed once here and passed down; commands never reach for
// shared singletons.
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *store.Store
	Engine   *github.Engine
	Notifier notify.Notifier

	closers []func() error
}

// Close releases container resources in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("review-manager"),
		kong.Description("Aggregates your GitHub pull requests for triage: approve, merge, snooze and dismiss from one place."),
		kong.UsageOnError(),
	)

	container, err := buildContainer(cli, kctx.Command())
	kctx.FatalIfErrorf(err)
	defer container.Close()

	kctx.FatalIfErrorf(kctx.Run(container))
}

func buildContainer(cli *CLI, command string) (*Container, error) {
	cfgPath := cli.Config
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	github.RegisterBots(cfg.ExtraBots)

	level := cfg.LogLevel
	if cli.Debug {
		level = "debug"
	}
	// Only the watch loop logs to stderr; for the other commands stdout
	// is the product.
	quiet := command != "watch"
	logger, closeLogs, err := logging.Setup(cfg.LogFile, level, quiet)
	if err != nil {
		return nil, err
	}

	container := &Container{Config: cfg, Logger: logger}
	container.closers = append(container.closers, closeLogs)

	st, err := store.New(cfg.DatabasePath, logger)
	if err != nil {
		container.Close()
		return nil, err
	}
	container.Store = st
	container.closers = append(container.closers, st.Close)

	// set-token must work before any token exists.
	if command == "set-token <token>" || command == "set-token" {
		return container, nil
	}

	token, err := auth.ResolveToken(context.Background(), logger)
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("%w (run 'gh auth login', set GITHUB_TOKEN, or use 'review-manager set-token')", err)
	}

	cacheImpl, err := cache.NewFileCacheWithDir(cfg.CacheDir)
	if err != nil {
		container.Close()
		return nil, err
	}
	container.closers = append(container.closers, cacheImpl.Close)

	remote := github.NewGraphQLClient(token, logger)
	users := github.NewRESTClient(token)
	container.Engine = github.NewEngine(remote, users, cacheImpl, st, logger)
	container.Notifier = notify.NewDesktopNotifier(logger)

	return container, nil
}
