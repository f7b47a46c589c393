// Package notify hands new-event detection results to the desktop
// notification system. Permission management and display are the
// platform's problem, not ours.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/gstamp/github-review-manager/internal/github"
)

// Notifier displays a notification with a title, subtitle and body.
type Notifier interface {
	Notify(title, subtitle, body string) error
}

// Event is a displayable notification.
type Event struct {
	Title    string
	Subtitle string
	Body     string
}

// ReviewEvent builds the notification for a newly detected review.
func ReviewEvent(nr github.NewReview) Event {
	return Event{
		Title:    fmt.Sprintf("New review on #%d", nr.PR.Number),
		Subtitle: nr.PR.Repo.FullName(),
		Body:     fmt.Sprintf("%s %s: %s", nr.Review.Author, verdictVerb(nr.Review.State), nr.PR.Title),
	}
}

// ReviewRequestEvent builds the notification for a new review request.
func ReviewRequestEvent(pr github.PullRequest) Event {
	return Event{
		Title:    fmt.Sprintf("Review requested on #%d", pr.Number),
		Subtitle: pr.Repo.FullName(),
		Body:     fmt.Sprintf("%s: %s", pr.Author, pr.Title),
	}
}

func verdictVerb(state github.ReviewDecision) string {
	switch state {
	case github.ReviewApproved:
		return "approved"
	case github.ReviewChangesRequested:
		return "requested changes"
	default:
		return "commented"
	}
}

// DesktopNotifier shells out to the platform notification tool.
type DesktopNotifier struct {
	logger *slog.Logger
}

// NewDesktopNotifier creates a notifier for the current platform.
func NewDesktopNotifier(logger *slog.Logger) *DesktopNotifier {
	return &DesktopNotifier{logger: logger}
}

// Notify displays the notification.
func (n *DesktopNotifier) Notify(title, subtitle, body string) error {
	cmd := notifyCommand(title, subtitle, body)
	if cmd == nil {
		n.logger.Debug("no notification tool for this platform", "title", title)
		return nil
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to display notification: %w", err)
	}
	return nil
}
