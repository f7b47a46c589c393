package github

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/go-github/v39/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// UserClientInterface defines the REST operations used by the sync
// engine: resolving the authenticated user and per-repository merge
// settings.
type UserClientInterface interface {
	ViewerLogin(ctx context.Context) (string, error)
	PreferredMergeMethod(ctx context.Context, owner, repo string) (MergeMethod, error)
}

// RESTClient wraps the go-github client for the handful of lookups the
// GraphQL API has no cheap equivalent for.
type RESTClient struct {
	client *github.Client

	group singleflight.Group
	mu    sync.Mutex
	login string
}

var _ UserClientInterface = (*RESTClient)(nil)

// NewRESTClient creates a REST client authenticated with the given token.
func NewRESTClient(token string) *RESTClient {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &RESTClient{
		client: github.NewClient(tc),
	}
}

// ViewerLogin resolves the authenticated user's login. The result is
// memoized for the process lifetime, and concurrent callers share a
// single in-flight request instead of issuing duplicate queries.
func (c *RESTClient) ViewerLogin(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.login != "" {
		login := c.login
		c.mu.Unlock()
		return login, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("viewer", func() (interface{}, error) {
		user, _, err := c.client.Users.Get(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch authenticated user: %w", err)
		}
		return user.GetLogin(), nil
	})
	if err != nil {
		return "", err
	}

	login := v.(string)
	c.mu.Lock()
	c.login = login
	c.mu.Unlock()
	return login, nil
}

// PreferredMergeMethod resolves the repository's merge strategy: direct
// merge when allowed, else squash, else rebase. The engine memoizes the
// result per owner/repo; every call here hits the API.
func (c *RESTClient) PreferredMergeMethod(ctx context.Context, owner, repo string) (MergeMethod, error) {
	repository, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("failed to fetch settings for %s/%s: %w", owner, repo, err)
	}

	method := MergeMethodMerge
	switch {
	case repository.GetAllowMergeCommit():
		method = MergeMethodMerge
	case repository.GetAllowSquashMerge():
		method = MergeMethodSquash
	case repository.GetAllowRebaseMerge():
		method = MergeMethodRebase
	}
	return method, nil
}
