package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gstamp/github-review-manager/internal/filter"
	"github.com/gstamp/github-review-manager/internal/github"
)

// ListCmd prints the visible PR list for one tab. Filter toggles are
// persisted per tab, so a toggle sticks for subsequent runs.
type ListCmd struct {
	Requests bool     `help:"List PRs awaiting your review instead of your own" short:"r"`
	Force    bool     `help:"Bypass the cache and refetch" short:"f"`
	Toggle   []string `help:"Toggle a filter: failed, passed, approved, unapproved, mergeable" short:"t"`

	Drafts    *bool `help:"Show or hide draft PRs" negatable:""`
	Snoozed   *bool `help:"Show or hide snoozed PRs" negatable:""`
	Dismissed *bool `help:"Show or hide dismissed PRs" negatable:""`
}

var validFilters = map[string]filter.Filter{
	"failed":     filter.Failed,
	"passed":     filter.Passed,
	"approved":   filter.Approved,
	"unapproved": filter.Unapproved,
	"mergeable":  filter.Mergeable,
}

// Run executes the list command
func (l *ListCmd) Run(c *Container) error {
	ctx := context.Background()

	tab := "authored"
	if l.Requests {
		tab = "requests"
	}

	state, err := c.Store.LoadTabFilters(tab)
	if err != nil {
		return err
	}
	for _, name := range l.Toggle {
		f, ok := validFilters[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown filter %q", name)
		}
		state.Toggle(f)
	}
	if l.Drafts != nil {
		state.ShowDrafts = *l.Drafts
	}
	if l.Snoozed != nil {
		state.ShowSnoozed = *l.Snoozed
	}
	if l.Dismissed != nil {
		state.ShowDismissed = *l.Dismissed
	}
	if err := c.Store.SaveTabFilters(tab, state); err != nil {
		return err
	}

	var prs []github.PullRequest
	if l.Requests {
		prs, err = c.Engine.ReviewRequestedPRs(ctx, l.Force)
	} else {
		prs, err = c.Engine.AuthoredPRs(ctx, l.Force)
	}
	if err != nil {
		return err
	}

	snoozed, err := c.Store.SnoozedIDs()
	if err != nil {
		return err
	}
	dismissed, err := c.Store.DismissedIDs()
	if err != nil {
		return err
	}

	visible := filter.Apply(prs, state, snoozed, dismissed)
	printPRs(visible, state)
	return nil
}

func printPRs(prs []github.PullRequest, state filter.State) {
	if active := activeFilterNames(state); len(active) > 0 {
		fmt.Printf("Active filters: %s\n\n", strings.Join(active, ", "))
	}
	if len(prs) == 0 {
		fmt.Println("No pull requests found")
		return
	}

	for _, pr := range prs {
		fmt.Printf("%-20d %s#%d: %s\n", pr.ID, pr.Repo.FullName(), pr.Number, pr.Title)
		fmt.Printf("  %s", pr.Decision)
		if pr.Checks != github.CheckNone {
			fmt.Printf(" | checks %s", pr.Checks)
		}
		if pr.Queue != nil {
			fmt.Printf(" | queue %s", pr.Queue.State)
			if pr.Queue.Position > 0 {
				fmt.Printf(" (#%d)", pr.Queue.Position)
			}
		}
		if pr.Draft {
			fmt.Printf(" | draft")
		}
		if pr.Conflicts {
			fmt.Printf(" | conflicts")
		}
		fmt.Printf(" | %dd old", pr.AgeDays)
		if pr.Kind == github.KindReviewRequested && pr.Category != github.CategoryHuman {
			fmt.Printf(" | by %s bot", pr.Category)
		}
		fmt.Println()
		fmt.Printf("  %s\n", pr.URL)
	}
	fmt.Printf("\n%d pull request(s)\n", len(prs))
}

func activeFilterNames(state filter.State) []string {
	var names []string
	for name, f := range validFilters {
		if state.IsActive(f) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
