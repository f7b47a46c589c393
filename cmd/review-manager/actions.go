package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gstamp/github-review-manager/internal/auth"
	"github.com/gstamp/github-review-manager/internal/github"
)

// findPR locates a PR by its local identity in either cached list.
func findPR(ctx context.Context, c *Container, id int64) (*github.PullRequest, error) {
	authored, err := c.Engine.AuthoredPRs(ctx, false)
	if err != nil {
		return nil, err
	}
	requested, err := c.Engine.ReviewRequestedPRs(ctx, false)
	if err != nil {
		return nil, err
	}

	for _, pr := range append(authored, requested...) {
		if pr.ID == id {
			found := pr
			return &found, nil
		}
	}
	return nil, fmt.Errorf("no pull request with id %d; run 'review-manager list' to see ids", id)
}

// ApproveCmd approves a pull request
type ApproveCmd struct {
	ID int64 `arg:"" help:"PR id from the list output"`
}

// Run executes the approve command
func (a *ApproveCmd) Run(c *Container) error {
	ctx := context.Background()
	pr, err := findPR(ctx, c, a.ID)
	if err != nil {
		return err
	}
	if err := c.Engine.Approve(ctx, pr); err != nil {
		return err
	}
	fmt.Printf("Approved %s#%d: %s\n", pr.Repo.FullName(), pr.Number, pr.Title)
	return nil
}

// MergeCmd merges a pull request
type MergeCmd struct {
	ID int64 `arg:"" help:"PR id from the list output"`
}

// Run executes the merge command
func (m *MergeCmd) Run(c *Container) error {
	ctx := context.Background()
	pr, err := findPR(ctx, c, m.ID)
	if err != nil {
		return err
	}

	err = c.Engine.Merge(ctx, pr)
	if errors.Is(err, github.ErrMergeQueued) {
		fmt.Printf("Enqueued %s#%d into the merge queue\n", pr.Repo.FullName(), pr.Number)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Merged %s#%d: %s\n", pr.Repo.FullName(), pr.Number, pr.Title)
	return nil
}

// SnoozeCmd hides a PR until a later time
type SnoozeCmd struct {
	ID  int64         `arg:"" help:"PR id from the list output"`
	For time.Duration `help:"How long to snooze" default:"24h"`
}

// Run executes the snooze command
func (s *SnoozeCmd) Run(c *Container) error {
	until := time.Now().Add(s.For)
	if err := c.Store.Snooze(s.ID, until); err != nil {
		return err
	}
	fmt.Printf("Snoozed %d until %s\n", s.ID, until.Format(time.RFC1123))
	return nil
}

// UnsnoozeCmd removes a snooze
type UnsnoozeCmd struct {
	ID int64 `arg:"" help:"PR id from the list output"`
}

// Run executes the unsnooze command
func (u *UnsnoozeCmd) Run(c *Container) error {
	if err := c.Store.Unsnooze(u.ID); err != nil {
		return err
	}
	fmt.Printf("Unsnoozed %d\n", u.ID)
	return nil
}

// DismissCmd removes a PR from the default view
type DismissCmd struct {
	ID int64 `arg:"" help:"PR id from the list output"`
}

// Run executes the dismiss command
func (d *DismissCmd) Run(c *Container) error {
	if err := c.Store.Dismiss(d.ID); err != nil {
		return err
	}
	fmt.Printf("Dismissed %d\n", d.ID)
	return nil
}

// UndismissCmd restores a dismissed PR
type UndismissCmd struct {
	ID int64 `arg:"" help:"PR id from the list output"`
}

// Run executes the undismiss command
func (u *UndismissCmd) Run(c *Container) error {
	if err := c.Store.Undismiss(u.ID); err != nil {
		return err
	}
	fmt.Printf("Restored %d\n", u.ID)
	return nil
}

// SetTokenCmd stores a token in the OS keyring
type SetTokenCmd struct {
	Token string `arg:"" help:"GitHub token to store"`
}

// Run executes the set-token command
func (s *SetTokenCmd) Run(c *Container) error {
	if err := auth.StoreToken(s.Token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	fmt.Println("Token stored in the OS keyring")
	return nil
}
