// Package watch runs the periodic refresh loop: force a refresh on the
// cache TTL interval, detect new events, dispatch notifications and
// mark them seen only after dispatch succeeded.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/gstamp/github-review-manager/internal/github"
	"github.com/gstamp/github-review-manager/internal/notify"
)

// Engine is the subset of the sync engine the watcher drives.
type Engine interface {
	AuthoredPRs(ctx context.Context, forceRefresh bool) ([]github.PullRequest, error)
	ReviewRequestedPRs(ctx context.Context, forceRefresh bool) ([]github.PullRequest, error)
	DetectNewReviews(ctx context.Context) ([]github.NewReview, error)
	DetectNewReviewRequests(ctx context.Context) ([]github.PullRequest, error)
}

// SeenMarker records events as notified-about.
type SeenMarker interface {
	MarkReviewSeen(reviewID string) error
	MarkReviewRequestSeen(prID int64) error
}

// Watcher drives the refresh/detect/notify cycle.
type Watcher struct {
	engine   Engine
	seen     SeenMarker
	notifier notify.Notifier
	interval time.Duration
	logger   *slog.Logger
}

// New creates a watcher firing on the given interval.
func New(engine Engine, seen SeenMarker, notifier notify.Notifier, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = github.CacheTTL
	}
	return &Watcher{
		engine:   engine,
		seen:     seen,
		notifier: notifier,
		interval: interval,
		logger:   logger,
	}
}

// Run refreshes immediately, then on every tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.RefreshOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce forces one refresh of both PR lists and runs new-event
// detection. Detection failures are logged and never block the list
// refresh.
func (w *Watcher) RefreshOnce(ctx context.Context) {
	if _, err := w.engine.AuthoredPRs(ctx, true); err != nil {
		w.logger.Error("failed to refresh authored PRs", "error", err)
	}
	if _, err := w.engine.ReviewRequestedPRs(ctx, true); err != nil {
		w.logger.Error("failed to refresh review requests", "error", err)
	}

	w.notifyNewReviews(ctx)
	w.notifyNewReviewRequests(ctx)
}

func (w *Watcher) notifyNewReviews(ctx context.Context) {
	reviews, err := w.engine.DetectNewReviews(ctx)
	if err != nil {
		w.logger.Warn("new-review detection failed", "error", err)
		return
	}

	for _, nr := range reviews {
		ev := notify.ReviewEvent(nr)
		if err := w.notifier.Notify(ev.Title, ev.Subtitle, ev.Body); err != nil {
			// Not marked seen: the event re-fires on the next pass
			// instead of being silently swallowed.
			w.logger.Warn("failed to notify about review", "review", nr.Review.ID, "error", err)
			continue
		}
		if err := w.seen.MarkReviewSeen(nr.Review.ID); err != nil {
			w.logger.Warn("failed to mark review seen", "review", nr.Review.ID, "error", err)
		}
	}
}

func (w *Watcher) notifyNewReviewRequests(ctx context.Context) {
	prs, err := w.engine.DetectNewReviewRequests(ctx)
	if err != nil {
		w.logger.Warn("review-request detection failed", "error", err)
		return
	}

	for _, pr := range prs {
		ev := notify.ReviewRequestEvent(pr)
		if err := w.notifier.Notify(ev.Title, ev.Subtitle, ev.Body); err != nil {
			w.logger.Warn("failed to notify about review request", "pr", pr.ID, "error", err)
			continue
		}
		if err := w.seen.MarkReviewRequestSeen(pr.ID); err != nil {
			w.logger.Warn("failed to mark review request seen", "pr", pr.ID, "error", err)
		}
	}
}
