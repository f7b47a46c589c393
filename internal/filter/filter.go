// Package filter computes the visible, ordered subset of a PR
// collection for a given filter state.
package filter

import (
	"sort"

	"github.com/gstamp/github-review-manager/internal/github"
)

// Filter is one of the toggleable list predicates.
type Filter string

const (
	Failed     Filter = "failed"
	Passed     Filter = "passed"
	Approved   Filter = "approved"
	Unapproved Filter = "unapproved"
	Mergeable  Filter = "mergeable"
)

// exclusions maps each filter to the partner it deactivates when
// toggled on. Mergeable has no partner.
var exclusions = map[Filter]Filter{
	Failed:     Passed,
	Passed:     Failed,
	Approved:   Unapproved,
	Unapproved: Approved,
}

// State holds the active filters and display toggles for one view/tab.
// Pure value type; persisted per tab by the store.
type State struct {
	Active        map[Filter]bool `json:"active"`
	ShowDrafts    bool            `json:"show_drafts"`
	ShowSnoozed   bool            `json:"show_snoozed"`
	ShowDismissed bool            `json:"show_dismissed"`
}

// NewState returns the default state: no active filters, drafts shown,
// snoozed and dismissed hidden.
func NewState() State {
	return State{
		Active:     make(map[Filter]bool),
		ShowDrafts: true,
	}
}

// IsActive reports whether the filter is currently active.
func (s State) IsActive(f Filter) bool {
	return s.Active[f]
}

// Toggle flips a filter. Activating a filter deactivates its mutual
// exclusion partner.
func (s *State) Toggle(f Filter) {
	if s.Active == nil {
		s.Active = make(map[Filter]bool)
	}
	if s.Active[f] {
		delete(s.Active, f)
		return
	}
	s.Active[f] = true
	if partner, ok := exclusions[f]; ok {
		delete(s.Active, partner)
	}
}

// Apply returns the visible, ordered subset of prs. Draft, snoozed and
// dismissed exclusions run before any active predicate; the remaining
// items must satisfy every active filter. Results sort by repository
// name ascending, then creation time ascending, stably.
func Apply(prs []github.PullRequest, s State, snoozed, dismissed map[int64]struct{}) []github.PullRequest {
	visible := make([]github.PullRequest, 0, len(prs))
	for _, pr := range prs {
		if pr.Draft && !s.ShowDrafts {
			continue
		}
		if _, ok := snoozed[pr.ID]; ok && !s.ShowSnoozed {
			continue
		}
		if _, ok := dismissed[pr.ID]; ok && !s.ShowDismissed {
			continue
		}
		if !matches(pr, s) {
			continue
		}
		visible = append(visible, pr)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].Repo.FullName() != visible[j].Repo.FullName() {
			return visible[i].Repo.FullName() < visible[j].Repo.FullName()
		}
		return visible[i].CreatedAt.Before(visible[j].CreatedAt)
	})
	return visible
}

func matches(pr github.PullRequest, s State) bool {
	for f, active := range s.Active {
		if active && !satisfies(pr, f) {
			return false
		}
	}
	return true
}

func satisfies(pr github.PullRequest, f Filter) bool {
	switch f {
	case Failed:
		return pr.Checks == github.CheckFailure || pr.Checks == github.CheckError
	case Passed:
		return pr.Checks == github.CheckSuccess
	case Approved:
		return pr.Decision == github.ReviewApproved
	case Unapproved:
		return pr.Decision != github.ReviewApproved
	case Mergeable:
		return pr.Queue == nil &&
			pr.Decision == github.ReviewApproved &&
			pr.Mergeable &&
			pr.Checks != github.CheckFailure &&
			pr.Checks != github.CheckError
	}
	return true
}
