package github

import (
	"hash/fnv"
	"math"
	"time"
)

// Kind distinguishes the two pull request variants tracked by the app:
// PRs the user authored and PRs the user was asked to review. Consumers
// branch on the tag instead of down-casting.
type Kind string

const (
	KindAuthored        Kind = "authored"
	KindReviewRequested Kind = "review_requested"
)

// PRState is the lifecycle state of a pull request.
type PRState string

const (
	StateOpen   PRState = "open"
	StateClosed PRState = "closed"
	StateMerged PRState = "merged"
)

// ReviewDecision is the latest review verdict affecting a PR.
type ReviewDecision string

const (
	ReviewWaiting          ReviewDecision = "waiting"
	ReviewApproved         ReviewDecision = "approved"
	ReviewChangesRequested ReviewDecision = "changes_requested"
	ReviewCommented        ReviewDecision = "commented"
)

// CheckState is the CI/status-check rollup for the PR's latest commit.
type CheckState string

const (
	CheckNone    CheckState = ""
	CheckSuccess CheckState = "success"
	CheckFailure CheckState = "failure"
	CheckPending CheckState = "pending"
	CheckError   CheckState = "error"
)

// QueueState is the state of a PR's merge queue entry.
type QueueState string

const (
	QueueAwaitingChecks QueueState = "awaiting_checks"
	QueueQueued         QueueState = "queued"
	QueueLocked         QueueState = "locked"
	QueueMergeable      QueueState = "mergeable"
	QueueUnmergeable    QueueState = "unmergeable"
)

// MergeMethod is a repository's preferred merge strategy.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "MERGE"
	MergeMethodSquash MergeMethod = "SQUASH"
	MergeMethodRebase MergeMethod = "REBASE"
)

// Repo identifies the repository a PR belongs to.
type Repo struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// FullName returns the owner/name form used for display and sorting.
func (r Repo) FullName() string {
	return r.Owner + "/" + r.Name
}

// MergeQueueEntry describes a PR's position in a remote-managed merge
// queue. Always derived from a remote query, never built by callers.
type MergeQueueEntry struct {
	State    QueueState `json:"state"`
	Position int        `json:"position"`
}

// Review is a single review submitted on a PR.
type Review struct {
	ID          string         `json:"id"`
	Author      string         `json:"author"`
	State       ReviewDecision `json:"state"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// HasVerdict reports whether a review carries an actual verdict, as
// opposed to a pending or dismissed shell.
func (r Review) HasVerdict() bool {
	switch r.State {
	case ReviewApproved, ReviewChangesRequested, ReviewCommented:
		return true
	}
	return false
}

// PullRequest is the normalized PR record shared by both variants.
type PullRequest struct {
	Kind     Kind           `json:"kind"`
	ID       int64          `json:"id"`
	NodeID   string         `json:"node_id"`
	Number   int            `json:"number"`
	Title    string         `json:"title"`
	URL      string         `json:"url"`
	Repo     Repo           `json:"repo"`
	State    PRState        `json:"state"`
	Decision ReviewDecision `json:"decision"`
	Author   string         `json:"author"`

	BaseBranch string    `json:"base_branch"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	// ReadyAt is when the PR became ready for review (authored variant)
	// or when the review was requested (review-requested variant).
	ReadyAt time.Time `json:"ready_at"`
	AgeDays int       `json:"age_days"`

	Checks    CheckState       `json:"checks"`
	Mergeable bool             `json:"mergeable"`
	Conflicts bool             `json:"conflicts"`
	Queue     *MergeQueueEntry `json:"queue,omitempty"`
	Draft     bool             `json:"draft"`

	Reviews []Review `json:"reviews,omitempty"`

	// Reviewer and Category are only set on the review-requested variant:
	// the login whose review was requested and the author's categorization.
	Reviewer string `json:"reviewer,omitempty"`
	Category string `json:"category,omitempty"`
}

// LocalID derives a stable integer identity from a GraphQL node id. The
// node id is opaque and not a compact integer, so downstream code keys
// on this hash instead; it is deterministic across fetches.
func LocalID(nodeID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(nodeID))
	return int64(h.Sum64() & math.MaxInt64)
}

// DaysSince returns the whole number of elapsed days between t and now.
func DaysSince(t, now time.Time) int {
	if t.IsZero() || now.Before(t) {
		return 0
	}
	return int(now.Sub(t).Hours() / 24)
}
