package github

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *GraphQLClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGraphQLClientForEndpoint("test-token", server.URL, discardLogger())
}

func TestDo_ErrorsArrayIsFailureEvenWithData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"data": {"addPullRequestReview": {"pullRequestReview": {"id": "R_1"}}},
			"errors": [{"type": "FORBIDDEN", "message": "Resource not accessible"}]
		}`)
	})

	err := client.Approve(context.Background(), "PR_node")
	require.Error(t, err)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Error(), "Resource not accessible")
}

func TestDo_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream broken")
	})

	_, err := client.SearchAuthoredPRs(context.Background(), "octocat")
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
}

func TestDo_InvalidResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json at all")
	})

	_, err := client.SearchAuthoredPRs(context.Background(), "octocat")
	require.Error(t, err)

	var invalid *InvalidResponseError
	assert.ErrorAs(t, err, &invalid)
}

func TestSearchAuthoredPRs_SendsQueryAndNormalizes(t *testing.T) {
	var gotRequest graphQLRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		io.WriteString(w, `{"data": {"search": {"nodes": [{
			"id": "PR_node_1",
			"number": 42,
			"title": "Add rate limiting",
			"url": "https://github.com/acme/widgets/pull/42",
			"isDraft": false,
			"state": "OPEN",
			"createdAt": "2026-02-10T10:00:00Z",
			"updatedAt": "2026-02-14T10:00:00Z",
			"baseRefName": "main",
			"author": {"login": "octocat"},
			"repository": {"name": "widgets", "owner": {"login": "acme"}},
			"reviewDecision": "APPROVED",
			"mergeable": "MERGEABLE",
			"commits": {"nodes": [{"commit": {"statusCheckRollup": {"state": "SUCCESS"}}}]},
			"mergeQueueEntry": {"state": "AWAITING_CHECKS", "position": 3},
			"reviewRequests": {"nodes": []},
			"reviews": {"nodes": [
				{"id": "R_1", "state": "APPROVED", "submittedAt": "2026-02-13T09:00:00Z", "author": {"login": "alice"}},
				{"id": "R_2", "state": "PENDING", "submittedAt": "2026-02-13T10:00:00Z", "author": {"login": "bob"}}
			]},
			"readyEvents": {"nodes": [{"createdAt": "2026-02-11T08:00:00Z"}]},
			"requestEvents": {"nodes": [{"createdAt": "2026-02-12T08:00:00Z"}]}
		}]}}}`)
	})

	prs, err := client.SearchAuthoredPRs(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Contains(t, gotRequest.Variables["q"], "author:octocat")
	assert.Contains(t, gotRequest.Variables["q"], "draft:false")

	require.Len(t, prs, 1)
	pr := prs[0]
	assert.Equal(t, KindAuthored, pr.Kind)
	assert.Equal(t, LocalID("PR_node_1"), pr.ID)
	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, Repo{Owner: "acme", Name: "widgets"}, pr.Repo)
	assert.Equal(t, StateOpen, pr.State)
	assert.Equal(t, ReviewApproved, pr.Decision)
	assert.Equal(t, CheckSuccess, pr.Checks)
	assert.True(t, pr.Mergeable)
	assert.Equal(t, "main", pr.BaseBranch)
	require.NotNil(t, pr.Queue)
	assert.Equal(t, QueueAwaitingChecks, pr.Queue.State)
	assert.Equal(t, 3, pr.Queue.Position)
	// Pending reviews carry no verdict and are dropped.
	require.Len(t, pr.Reviews, 1)
	assert.Equal(t, "R_1", pr.Reviews[0].ID)
	// An authored PR takes its ready-for-review time, not the later
	// review-request event.
	assert.Equal(t, "2026-02-11T08:00:00Z", pr.ReadyAt.Format("2006-01-02T15:04:05Z"))
}

func TestSearchReviewRequestedPRs_SetsReviewerAndCategory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data": {"search": {"nodes": [{
			"id": "PR_node_2",
			"number": 7,
			"title": "Bump deps",
			"url": "https://github.com/acme/widgets/pull/7",
			"isDraft": true,
			"state": "OPEN",
			"createdAt": "2026-02-10T10:00:00Z",
			"updatedAt": "2026-02-10T10:00:00Z",
			"baseRefName": "main",
			"author": {"login": "renovate[bot]"},
			"repository": {"name": "widgets", "owner": {"login": "acme"}},
			"reviewDecision": "",
			"mergeable": "CONFLICTING",
			"commits": {"nodes": []},
			"reviewRequests": {"nodes": [{"requestedReviewer": {"login": "octocat"}}]},
			"reviews": {"nodes": []},
			"readyEvents": {"nodes": [{"createdAt": "2026-02-09T10:00:00Z"}]},
			"requestEvents": {"nodes": [{"createdAt": "2026-02-10T12:00:00Z"}]}
		}]}}}`)
	})

	prs, err := client.SearchReviewRequestedPRs(context.Background(), "octocat")
	require.NoError(t, err)

	require.Len(t, prs, 1)
	pr := prs[0]
	assert.Equal(t, KindReviewRequested, pr.Kind)
	assert.True(t, pr.Draft)
	assert.Equal(t, "octocat", pr.Reviewer)
	assert.Equal(t, "renovate", pr.Category)
	assert.Equal(t, ReviewWaiting, pr.Decision)
	assert.False(t, pr.Mergeable)
	assert.True(t, pr.Conflicts)
	assert.Nil(t, pr.Queue)
	// The review-requested variant takes the review-request time.
	assert.Equal(t, "2026-02-10T12:00:00Z", pr.ReadyAt.Format("2006-01-02T15:04:05Z"))
}

func TestMerge_ReportsMergedFlag(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data": {"mergePullRequest": {"pullRequest": {"merged": false}}}}`)
	})

	merged, err := client.Merge(context.Background(), "PR_node", MergeMethodSquash)
	require.NoError(t, err)
	assert.False(t, merged)
}

func TestMergeQueueRequired(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"queue configured", `{"data": {"repository": {"mergeQueue": {"id": "MQ_1"}}}}`, true},
		{"no queue", `{"data": {"repository": {"mergeQueue": null}}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})

			required, err := client.MergeQueueRequired(context.Background(), "acme", "widgets", "main")
			require.NoError(t, err)
			assert.Equal(t, tt.want, required)
		})
	}
}

func TestEnqueue_ParsesEntry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data": {"enqueuePullRequest": {"mergeQueueEntry": {"state": "QUEUED", "position": 2}}}}`)
	})

	entry, err := client.Enqueue(context.Background(), "PR_node")
	require.NoError(t, err)
	assert.Equal(t, QueueQueued, entry.State)
	assert.Equal(t, 2, entry.Position)
}
