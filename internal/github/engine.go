package github

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gstamp/github-review-manager/internal/cache"
)

// CacheTTL is the freshness window for the cached PR lists. The
// periodic refresh timer fires on the same interval.
const CacheTTL = 5 * time.Minute

// SeenStore is the durable record of which discrete events have already
// triggered a notification.
type SeenStore interface {
	HasSeenReview(reviewID string) (bool, error)
	HasSeenReviewRequest(prID int64) (bool, error)
}

// NewReview pairs a freshly detected review with the PR it was
// submitted on.
type NewReview struct {
	PR     PullRequest
	Review Review
}

// Engine is the single authoritative path to remote PR data. It owns
// the query cache, mutation operations with optimistic-update and
// reconciliation semantics, and new-event detection.
type Engine struct {
	remote RemoteClientInterface
	users  UserClientInterface
	cache  cache.Cache
	seen   SeenStore
	kb     *cache.CacheKeyBuilder
	logger *slog.Logger
	ttl    time.Duration

	// mu serializes read-modify-write cycles on the cached lists, so a
	// surgical update from a mutation cannot race a background refresh.
	mu sync.Mutex

	loginMu sync.Mutex
	login   string
}

// NewEngine wires an engine from its collaborators. Callers construct
// one engine at process start and pass it around; there is no shared
// singleton.
func NewEngine(remote RemoteClientInterface, users UserClientInterface, cacheImpl cache.Cache, seen SeenStore, logger *slog.Logger) *Engine {
	return &Engine{
		remote: remote,
		users:  users,
		cache:  cacheImpl,
		seen:   seen,
		kb:     cache.NewCacheKeyBuilder("github"),
		logger: logger,
		ttl:    CacheTTL,
	}
}

// AuthoredPRs returns the user's open authored PRs, cached for the TTL.
func (e *Engine) AuthoredPRs(ctx context.Context, forceRefresh bool) ([]PullRequest, error) {
	return e.listPRs(ctx, KindAuthored, forceRefresh)
}

// ReviewRequestedPRs returns open PRs awaiting the user's review,
// cached for the TTL.
func (e *Engine) ReviewRequestedPRs(ctx context.Context, forceRefresh bool) ([]PullRequest, error) {
	return e.listPRs(ctx, KindReviewRequested, forceRefresh)
}

func (e *Engine) listPRs(ctx context.Context, kind Kind, forceRefresh bool) ([]PullRequest, error) {
	login, err := e.viewerLogin(ctx)
	if err != nil {
		return nil, err
	}
	key := e.kb.PRListKey(string(kind), login)

	if !forceRefresh {
		var cached []PullRequest
		if err := e.cache.Get(key, &cached); err == nil {
			return cached, nil
		} else if err != cache.ErrCacheMiss {
			e.logger.Warn("cache read failed", "kind", kind, "error", err)
		}
	}

	prs, err := e.search(ctx, kind, login)
	if err != nil {
		// Stale data beats no data: serve the last known list when the
		// remote is unreachable, propagate only when there is nothing.
		var stale []PullRequest
		if age, serr := e.cache.GetStale(key, &stale); serr == nil {
			e.logger.Warn("refresh failed, serving stale cache",
				"kind", kind, "age", age, "error", err)
			return stale, nil
		}
		return nil, err
	}

	if err := e.cache.Set(key, prs, e.ttl); err != nil {
		e.logger.Warn("cache write failed", "kind", kind, "error", err)
	}
	return prs, nil
}

func (e *Engine) search(ctx context.Context, kind Kind, login string) ([]PullRequest, error) {
	if kind == KindAuthored {
		return e.remote.SearchAuthoredPRs(ctx, login)
	}
	return e.remote.SearchReviewRequestedPRs(ctx, login)
}

// Approve submits an approving review for the PR, then reconciles the
// cached entry with server truth. On failure the cached state is left
// untouched and the error propagates; the caller owns any
// optimistic-UI rollback.
func (e *Engine) Approve(ctx context.Context, pr *PullRequest) error {
	if err := e.remote.Approve(ctx, pr.NodeID); err != nil {
		return fmt.Errorf("failed to approve PR #%d (%s): %w", pr.Number, pr.Title, err)
	}
	return e.Reconcile(ctx, pr)
}

// ApplyOptimistic projects an expected post-mutation state onto the
// cached lists without any remote call. It overwrites only the review
// verdict, check status and queue entry of the matching PR; the rest of
// the list is untouched. Reconcile later replaces the projection with
// server truth.
func (e *Engine) ApplyOptimistic(pr PullRequest) {
	e.updateCachedPR(pr.ID, func(cached *PullRequest) {
		cached.Decision = pr.Decision
		cached.Checks = pr.Checks
		cached.Queue = pr.Queue
	})
}

// Reconcile issues the lightweight single-PR verification fetch and
// surgically overwrites the PR's volatile fields in the cached lists.
func (e *Engine) Reconcile(ctx context.Context, pr *PullRequest) error {
	fresh, err := e.remote.FetchPullRequest(ctx, pr.Repo.Owner, pr.Repo.Name, pr.Number)
	if err != nil {
		// Without server truth the cached entry may be wrong; expire
		// the lists so the next read refetches.
		e.InvalidateCache()
		return fmt.Errorf("failed to verify PR #%d after mutation: %w", pr.Number, err)
	}

	e.updateCachedPR(pr.ID, func(cached *PullRequest) {
		cached.State = fresh.State
		cached.Decision = fresh.Decision
		cached.Checks = fresh.Checks
		cached.Mergeable = fresh.Mergeable
		cached.Conflicts = fresh.Conflicts
		cached.Queue = fresh.Queue
		cached.UpdatedAt = fresh.UpdatedAt
	})
	return nil
}

// Merge merges the PR using the repository's preferred strategy. When
// the base branch requires a merge queue, or the remote rejects the
// merge with a merge-queue-required error, the PR is enqueued instead
// and ErrMergeQueued is returned. A mutation that "succeeds" without
// the PR actually ending up merged is reported as a failure.
func (e *Engine) Merge(ctx context.Context, pr *PullRequest) error {
	method, err := e.preferredMergeMethod(ctx, pr.Repo.Owner, pr.Repo.Name)
	if err != nil {
		return fmt.Errorf("failed to resolve merge method for PR #%d (%s): %w", pr.Number, pr.Title, err)
	}

	required, err := e.mergeQueueRequired(ctx, pr)
	if err != nil {
		e.logger.Warn("merge queue check failed, attempting direct merge",
			"repo", pr.Repo.FullName(), "branch", pr.BaseBranch, "error", err)
		required = false
	}
	if required {
		return e.enqueue(ctx, pr)
	}

	merged, err := e.remote.Merge(ctx, pr.NodeID, method)
	if err != nil {
		if IsMergeQueueRequired(err) {
			return e.enqueue(ctx, pr)
		}
		return fmt.Errorf("failed to merge PR #%d (%s): %w", pr.Number, pr.Title, err)
	}
	if !merged {
		return fmt.Errorf("merge of PR #%d (%s) reported success but the PR is not merged", pr.Number, pr.Title)
	}

	e.removeCachedPR(pr.ID)
	e.InvalidateCache()
	return nil
}

func (e *Engine) enqueue(ctx context.Context, pr *PullRequest) error {
	entry, err := e.remote.Enqueue(ctx, pr.NodeID)
	if err != nil {
		return fmt.Errorf("failed to enqueue PR #%d (%s): %w", pr.Number, pr.Title, err)
	}

	e.updateCachedPR(pr.ID, func(cached *PullRequest) {
		cached.Queue = entry
	})
	e.InvalidateCache()
	return ErrMergeQueued
}

// preferredMergeMethod resolves the repository's merge strategy,
// memoized per owner/repo.
func (e *Engine) preferredMergeMethod(ctx context.Context, owner, repo string) (MergeMethod, error) {
	key := e.kb.MergeMethodKey(owner, repo)

	var method MergeMethod
	if err := e.cache.Get(key, &method); err == nil && method != "" {
		return method, nil
	}

	method, err := e.users.PreferredMergeMethod(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	if err := e.cache.Set(key, method, 0); err != nil {
		e.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return method, nil
}

// mergeQueueRequired checks whether the PR's base branch has a merge
// queue, memoized per owner/repo/branch.
func (e *Engine) mergeQueueRequired(ctx context.Context, pr *PullRequest) (bool, error) {
	key := e.kb.MergeQueueKey(pr.Repo.Owner, pr.Repo.Name, pr.BaseBranch)

	var required bool
	if err := e.cache.Get(key, &required); err == nil {
		return required, nil
	}

	required, err := e.remote.MergeQueueRequired(ctx, pr.Repo.Owner, pr.Repo.Name, pr.BaseBranch)
	if err != nil {
		return false, err
	}
	if err := e.cache.Set(key, required, 0); err != nil {
		e.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return required, nil
}

// DetectNewReviews re-fetches PR+review data for both PR sets and
// returns verdict-bearing reviews by humans that are not yet in the
// seen set. It does not mark anything seen: the caller marks an event
// only after successfully acting on it, so a failed notification does
// not swallow the event.
func (e *Engine) DetectNewReviews(ctx context.Context) ([]NewReview, error) {
	login, err := e.viewerLogin(ctx)
	if err != nil {
		return nil, err
	}

	var out []NewReview
	for _, kind := range []Kind{KindAuthored, KindReviewRequested} {
		prs, err := e.search(ctx, kind, login)
		if err != nil {
			return nil, fmt.Errorf("failed to scan for new reviews: %w", err)
		}
		for _, pr := range prs {
			for _, rv := range pr.Reviews {
				if !rv.HasVerdict() || rv.Author == login {
					continue
				}
				if Categorize(rv.Author) != CategoryHuman {
					continue
				}
				seen, err := e.seen.HasSeenReview(rv.ID)
				if err != nil {
					e.logger.Warn("seen-review lookup failed", "review", rv.ID, "error", err)
					continue
				}
				if seen {
					continue
				}
				out = append(out, NewReview{PR: pr, Review: rv})
			}
		}
	}
	return out, nil
}

// DetectNewReviewRequests returns review-requested PRs whose identity
// is not yet in the seen-request set. Marking seen is the caller's job,
// after the notification actually went out.
func (e *Engine) DetectNewReviewRequests(ctx context.Context) ([]PullRequest, error) {
	login, err := e.viewerLogin(ctx)
	if err != nil {
		return nil, err
	}

	prs, err := e.remote.SearchReviewRequestedPRs(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for new review requests: %w", err)
	}

	var out []PullRequest
	for _, pr := range prs {
		seen, err := e.seen.HasSeenReviewRequest(pr.ID)
		if err != nil {
			e.logger.Warn("seen-request lookup failed", "pr", pr.ID, "error", err)
			continue
		}
		if !seen {
			out = append(out, pr)
		}
	}
	return out, nil
}

// InvalidateCache marks both cached lists stale. Data is kept so a
// failed follow-up fetch can still fall back to it.
func (e *Engine) InvalidateCache() {
	e.loginMu.Lock()
	login := e.login
	e.loginMu.Unlock()
	if login == "" {
		return
	}

	for _, kind := range []Kind{KindAuthored, KindReviewRequested} {
		key := e.kb.PRListKey(string(kind), login)
		if err := e.cache.Expire(key); err != nil {
			e.logger.Warn("cache expire failed", "kind", kind, "error", err)
		}
	}
}

func (e *Engine) viewerLogin(ctx context.Context) (string, error) {
	login, err := e.users.ViewerLogin(ctx)
	if err != nil {
		return "", err
	}
	e.loginMu.Lock()
	e.login = login
	e.loginMu.Unlock()
	return login, nil
}

// updateCachedPR applies a field projection to the matching PR in both
// cached lists, preserving each entry's remaining freshness.
func (e *Engine) updateCachedPR(id int64, apply func(*PullRequest)) {
	e.mutateCachedLists(func(prs []PullRequest) ([]PullRequest, bool) {
		changed := false
		for i := range prs {
			if prs[i].ID == id {
				apply(&prs[i])
				changed = true
			}
		}
		return prs, changed
	})
}

// removeCachedPR drops the PR from both cached lists.
func (e *Engine) removeCachedPR(id int64) {
	e.mutateCachedLists(func(prs []PullRequest) ([]PullRequest, bool) {
		trimmed := slices.DeleteFunc(prs, func(pr PullRequest) bool {
			return pr.ID == id
		})
		return trimmed, len(trimmed) != len(prs)
	})
}

func (e *Engine) mutateCachedLists(mutate func([]PullRequest) ([]PullRequest, bool)) {
	e.loginMu.Lock()
	login := e.login
	e.loginMu.Unlock()
	if login == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, kind := range []Kind{KindAuthored, KindReviewRequested} {
		key := e.kb.PRListKey(string(kind), login)

		var prs []PullRequest
		age, err := e.cache.GetStale(key, &prs)
		if err != nil {
			continue
		}

		updated, changed := mutate(prs)
		if !changed {
			continue
		}

		// Rewrite with the entry's remaining freshness; a surgical
		// update must not extend the TTL.
		remaining := e.ttl - age
		if remaining > 0 {
			if err := e.cache.Set(key, updated, remaining); err != nil {
				e.logger.Warn("cache write failed", "kind", kind, "error", err)
			}
			continue
		}
		if err := e.cache.Set(key, updated, e.ttl); err != nil {
			e.logger.Warn("cache write failed", "kind", kind, "error", err)
			continue
		}
		if err := e.cache.Expire(key); err != nil {
			e.logger.Warn("cache expire failed", "kind", kind, "error", err)
		}
	}
}
