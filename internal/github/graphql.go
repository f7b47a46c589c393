package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const defaultGraphQLEndpoint = "https://api.github.com/graphql"

// RemoteClientInterface defines the GraphQL operations used by the sync
// engine.
type RemoteClientInterface interface {
	SearchAuthoredPRs(ctx context.Context, login string) ([]PullRequest, error)
	SearchReviewRequestedPRs(ctx context.Context, login string) ([]PullRequest, error)
	FetchPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error)
	Approve(ctx context.Context, prNodeID string) error
	Merge(ctx context.Context, prNodeID string, method MergeMethod) (bool, error)
	Enqueue(ctx context.Context, prNodeID string) (*MergeQueueEntry, error)
	MergeQueueRequired(ctx context.Context, owner, repo, branch string) (bool, error)
}

// GraphQLClient talks to the GitHub GraphQL endpoint: a single
// query/mutation URL taking a query document plus variables, returning
// JSON with a data envelope and optional errors array.
type GraphQLClient struct {
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

var _ RemoteClientInterface = (*GraphQLClient)(nil)

// NewGraphQLClient creates a client authenticated with the given token.
func NewGraphQLClient(token string, logger *slog.Logger) *GraphQLClient {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return &GraphQLClient{
		httpClient: oauth2.NewClient(context.Background(), ts),
		endpoint:   defaultGraphQLEndpoint,
		logger:     logger,
	}
}

// NewGraphQLClientForEndpoint is used by tests and GHE setups.
func NewGraphQLClientForEndpoint(token, endpoint string, logger *slog.Logger) *GraphQLClient {
	c := NewGraphQLClient(token, logger)
	c.endpoint = endpoint
	return c
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage     `json:"data"`
	Errors []RemoteErrorDetail `json:"errors"`
}

// do executes one GraphQL document and decodes the data envelope into
// out. A non-empty errors array fails the call even when data is
// present.
func (c *GraphQLClient) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &InvalidResponseError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var envelope graphQLEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &InvalidResponseError{Err: err}
	}
	if len(envelope.Errors) > 0 {
		return &RemoteError{Errors: envelope.Errors}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &InvalidResponseError{Err: err}
		}
	}
	return nil
}

// prNodeFields is the selection shared by the search and single-PR
// queries. The two timeline event types are selected separately so each
// variant gets its own timestamp: ready-for-review for authored PRs,
// review-requested for the review-requested variant.
const prNodeFields = `
        id
        number
        title
        url
        isDraft
        state
        createdAt
        updatedAt
        baseRefName
        author { login }
        repository { name owner { login } }
        reviewDecision
        mergeable
        commits(last: 1) { nodes { commit { statusCheckRollup { state } } } }
        mergeQueueEntry { state position }
        reviewRequests(first: 10) {
          nodes {
            requestedReviewer {
              ... on User { login }
              ... on Bot { login }
            }
          }
        }
        reviews(last: 20) {
          nodes { id state submittedAt author { login } }
        }
        readyEvents: timelineItems(itemTypes: [READY_FOR_REVIEW_EVENT], last: 1) {
          nodes {
            ... on ReadyForReviewEvent { createdAt }
          }
        }
        requestEvents: timelineItems(itemTypes: [REVIEW_REQUESTED_EVENT], last: 1) {
          nodes {
            ... on ReviewRequestedEvent { createdAt }
          }
        }`

const searchPRsQuery = `query($q: String!) {
  search(query: $q, type: ISSUE, first: 50) {
    nodes {
      ... on PullRequest {` + prNodeFields + `
      }
    }
  }
}`

const singlePRQuery = `query($owner: String!, $repo: String!, $number: Int!) {
  repository(owner: $owner, name: $repo) {
    pullRequest(number: $number) {` + prNodeFields + `
    }
  }
}`

const mergeQueueQuery = `query($owner: String!, $repo: String!, $branch: String!) {
  repository(owner: $owner, name: $repo) {
    mergeQueue(branch: $branch) { id }
  }
}`

const approveMutation = `mutation($id: ID!) {
  addPullRequestReview(input: { pullRequestId: $id, event: APPROVE }) {
    pullRequestReview { id }
  }
}`

const mergeMutation = `mutation($id: ID!, $method: PullRequestMergeMethod!) {
  mergePullRequest(input: { pullRequestId: $id, mergeMethod: $method }) {
    pullRequest { merged }
  }
}`

const enqueueMutation = `mutation($id: ID!) {
  enqueuePullRequest(input: { pullRequestId: $id }) {
    mergeQueueEntry { state position }
  }
}`

type prNode struct {
	ID             string    `json:"id"`
	Number         int       `json:"number"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	IsDraft        bool      `json:"isDraft"`
	State          string    `json:"state"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	BaseRefName    string    `json:"baseRefName"`
	Author         actorNode `json:"author"`
	ReviewDecision string    `json:"reviewDecision"`
	Mergeable      string    `json:"mergeable"`
	Repository     struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
	Commits struct {
		Nodes []struct {
			Commit struct {
				StatusCheckRollup *struct {
					State string `json:"state"`
				} `json:"statusCheckRollup"`
			} `json:"commit"`
		} `json:"nodes"`
	} `json:"commits"`
	MergeQueueEntry *struct {
		State    string `json:"state"`
		Position int    `json:"position"`
	} `json:"mergeQueueEntry"`
	ReviewRequests struct {
		Nodes []struct {
			RequestedReviewer actorNode `json:"requestedReviewer"`
		} `json:"nodes"`
	} `json:"reviewRequests"`
	Reviews struct {
		Nodes []reviewNode `json:"nodes"`
	} `json:"reviews"`
	ReadyEvents   timelineEvents `json:"readyEvents"`
	RequestEvents timelineEvents `json:"requestEvents"`
}

type timelineEvents struct {
	Nodes []struct {
		CreatedAt time.Time `json:"createdAt"`
	} `json:"nodes"`
}

type actorNode struct {
	Login string `json:"login"`
}

type reviewNode struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	SubmittedAt time.Time `json:"submittedAt"`
	Author      actorNode `json:"author"`
}

type searchResponse struct {
	Search struct {
		Nodes []prNode `json:"nodes"`
	} `json:"search"`
}

// SearchAuthoredPRs returns the user's open non-draft authored PRs.
func (c *GraphQLClient) SearchAuthoredPRs(ctx context.Context, login string) ([]PullRequest, error) {
	q := fmt.Sprintf("is:pr is:open archived:false draft:false author:%s", login)
	return c.searchPRs(ctx, q, KindAuthored)
}

// SearchReviewRequestedPRs returns open PRs where the user's review was
// requested, drafts included.
func (c *GraphQLClient) SearchReviewRequestedPRs(ctx context.Context, login string) ([]PullRequest, error) {
	q := fmt.Sprintf("is:pr is:open archived:false review-requested:%s", login)
	return c.searchPRs(ctx, q, KindReviewRequested)
}

func (c *GraphQLClient) searchPRs(ctx context.Context, q string, kind Kind) ([]PullRequest, error) {
	var resp searchResponse
	if err := c.do(ctx, searchPRsQuery, map[string]any{"q": q}, &resp); err != nil {
		return nil, fmt.Errorf("failed to search pull requests: %w", err)
	}

	prs := make([]PullRequest, 0, len(resp.Search.Nodes))
	for _, node := range resp.Search.Nodes {
		if node.ID == "" {
			// Search can return non-PR nodes for malformed queries.
			continue
		}
		prs = append(prs, normalizePR(node, kind, time.Now()))
	}
	c.logger.Debug("searched pull requests", "kind", kind, "count", len(prs))
	return prs, nil
}

type singlePRResponse struct {
	Repository struct {
		PullRequest *prNode `json:"pullRequest"`
	} `json:"repository"`
}

// FetchPullRequest is the lightweight single-PR verification fetch used
// to reconcile cached state after a mutation.
func (c *GraphQLClient) FetchPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	vars := map[string]any{"owner": owner, "repo": repo, "number": number}
	var resp singlePRResponse
	if err := c.do(ctx, singlePRQuery, vars, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch PR #%d: %w", number, err)
	}
	if resp.Repository.PullRequest == nil {
		return nil, &InvalidResponseError{Err: fmt.Errorf("PR %s/%s#%d not found", owner, repo, number)}
	}
	pr := normalizePR(*resp.Repository.PullRequest, KindAuthored, time.Now())
	return &pr, nil
}

// Approve submits an approving review for the PR.
func (c *GraphQLClient) Approve(ctx context.Context, prNodeID string) error {
	if err := c.do(ctx, approveMutation, map[string]any{"id": prNodeID}, nil); err != nil {
		return fmt.Errorf("failed to approve pull request: %w", err)
	}
	return nil
}

type mergeResponse struct {
	MergePullRequest struct {
		PullRequest struct {
			Merged bool `json:"merged"`
		} `json:"pullRequest"`
	} `json:"mergePullRequest"`
}

// Merge runs the merge mutation and reports whether the remote actually
// marked the PR merged.
func (c *GraphQLClient) Merge(ctx context.Context, prNodeID string, method MergeMethod) (bool, error) {
	vars := map[string]any{"id": prNodeID, "method": string(method)}
	var resp mergeResponse
	if err := c.do(ctx, mergeMutation, vars, &resp); err != nil {
		return false, err
	}
	return resp.MergePullRequest.PullRequest.Merged, nil
}

type enqueueResponse struct {
	EnqueuePullRequest struct {
		MergeQueueEntry *struct {
			State    string `json:"state"`
			Position int    `json:"position"`
		} `json:"mergeQueueEntry"`
	} `json:"enqueuePullRequest"`
}

// Enqueue adds the PR to its base branch's merge queue.
func (c *GraphQLClient) Enqueue(ctx context.Context, prNodeID string) (*MergeQueueEntry, error) {
	var resp enqueueResponse
	if err := c.do(ctx, enqueueMutation, map[string]any{"id": prNodeID}, &resp); err != nil {
		return nil, fmt.Errorf("failed to enqueue pull request: %w", err)
	}
	entry := resp.EnqueuePullRequest.MergeQueueEntry
	if entry == nil {
		return &MergeQueueEntry{State: QueueQueued}, nil
	}
	return &MergeQueueEntry{State: normalizeQueueState(entry.State), Position: entry.Position}, nil
}

type mergeQueueResponse struct {
	Repository struct {
		MergeQueue *struct {
			ID string `json:"id"`
		} `json:"mergeQueue"`
	} `json:"repository"`
}

// MergeQueueRequired reports whether the target branch has a merge
// queue configured.
func (c *GraphQLClient) MergeQueueRequired(ctx context.Context, owner, repo, branch string) (bool, error) {
	vars := map[string]any{"owner": owner, "repo": repo, "branch": branch}
	var resp mergeQueueResponse
	if err := c.do(ctx, mergeQueueQuery, vars, &resp); err != nil {
		return false, fmt.Errorf("failed to check merge queue for %s/%s@%s: %w", owner, repo, branch, err)
	}
	return resp.Repository.MergeQueue != nil, nil
}

// normalizePR converts a raw GraphQL node into the local PR record.
func normalizePR(node prNode, kind Kind, now time.Time) PullRequest {
	pr := PullRequest{
		Kind:       kind,
		ID:         LocalID(node.ID),
		NodeID:     node.ID,
		Number:     node.Number,
		Title:      node.Title,
		URL:        node.URL,
		Draft:      node.IsDraft,
		Author:     node.Author.Login,
		BaseBranch: node.BaseRefName,
		CreatedAt:  node.CreatedAt,
		UpdatedAt:  node.UpdatedAt,
		ReadyAt:    node.CreatedAt,
		Repo: Repo{
			Owner: node.Repository.Owner.Login,
			Name:  node.Repository.Name,
		},
	}

	switch node.State {
	case "MERGED":
		pr.State = StateMerged
	case "CLOSED":
		pr.State = StateClosed
	default:
		pr.State = StateOpen
	}

	switch node.Mergeable {
	case "MERGEABLE":
		pr.Mergeable = true
	case "CONFLICTING":
		pr.Conflicts = true
	}

	if len(node.Commits.Nodes) > 0 {
		if rollup := node.Commits.Nodes[0].Commit.StatusCheckRollup; rollup != nil {
			pr.Checks = normalizeCheckState(rollup.State)
		}
	}

	if node.MergeQueueEntry != nil {
		pr.Queue = &MergeQueueEntry{
			State:    normalizeQueueState(node.MergeQueueEntry.State),
			Position: node.MergeQueueEntry.Position,
		}
	}

	for _, rv := range node.Reviews.Nodes {
		review := Review{
			ID:          rv.ID,
			Author:      rv.Author.Login,
			State:       normalizeReviewState(rv.State),
			SubmittedAt: rv.SubmittedAt,
		}
		if review.HasVerdict() {
			pr.Reviews = append(pr.Reviews, review)
		}
	}

	pr.Decision = normalizeDecision(node.ReviewDecision, pr.Reviews)

	events := node.ReadyEvents
	if kind == KindReviewRequested {
		events = node.RequestEvents
	}
	if len(events.Nodes) > 0 {
		if at := events.Nodes[len(events.Nodes)-1].CreatedAt; !at.IsZero() {
			pr.ReadyAt = at
		}
	}

	if kind == KindReviewRequested {
		if len(node.ReviewRequests.Nodes) > 0 {
			pr.Reviewer = node.ReviewRequests.Nodes[0].RequestedReviewer.Login
		}
		pr.Category = Categorize(pr.Author)
	}

	pr.AgeDays = DaysSince(pr.CreatedAt, now)
	return pr
}

func normalizeCheckState(state string) CheckState {
	switch state {
	case "SUCCESS":
		return CheckSuccess
	case "FAILURE":
		return CheckFailure
	case "ERROR":
		return CheckError
	case "PENDING", "EXPECTED":
		return CheckPending
	}
	return CheckNone
}

func normalizeQueueState(state string) QueueState {
	switch state {
	case "AWAITING_CHECKS":
		return QueueAwaitingChecks
	case "LOCKED":
		return QueueLocked
	case "MERGEABLE":
		return QueueMergeable
	case "UNMERGEABLE":
		return QueueUnmergeable
	}
	return QueueQueued
}

func normalizeReviewState(state string) ReviewDecision {
	switch state {
	case "APPROVED":
		return ReviewApproved
	case "CHANGES_REQUESTED":
		return ReviewChangesRequested
	case "COMMENTED":
		return ReviewCommented
	}
	return ReviewWaiting
}

// normalizeDecision folds the remote review decision into the local
// verdict. The remote has no "commented" decision, so it is derived
// from the latest verdict-bearing review when no decision is set.
func normalizeDecision(decision string, reviews []Review) ReviewDecision {
	switch decision {
	case "APPROVED":
		return ReviewApproved
	case "CHANGES_REQUESTED":
		return ReviewChangesRequested
	}

	var latest *Review
	for i := range reviews {
		if latest == nil || reviews[i].SubmittedAt.After(latest.SubmittedAt) {
			latest = &reviews[i]
		}
	}
	if latest != nil && latest.State == ReviewCommented {
		return ReviewCommented
	}
	return ReviewWaiting
}
