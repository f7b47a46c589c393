package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/gstamp/github-review-manager/internal/github"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// isolate hides the gh CLI and the ambient GITHUB_TOKEN so each source
// can be tested independently.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("PATH", t.TempDir())
	t.Setenv("GITHUB_TOKEN", "")
	keyring.MockInit()
}

func TestResolveToken_FromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("GITHUB_TOKEN", "  ghp_env_token \n")

	token, err := ResolveToken(context.Background(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "ghp_env_token", token)
}

func TestResolveToken_FromKeyring(t *testing.T) {
	isolate(t)
	require.NoError(t, StoreToken("ghp_keyring_token"))

	token, err := ResolveToken(context.Background(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "ghp_keyring_token", token)
}

func TestResolveToken_EnvironmentBeatsKeyring(t *testing.T) {
	isolate(t)
	require.NoError(t, StoreToken("ghp_keyring_token"))
	t.Setenv("GITHUB_TOKEN", "ghp_env_token")

	token, err := ResolveToken(context.Background(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "ghp_env_token", token)
}

func TestResolveToken_NotAuthenticated(t *testing.T) {
	isolate(t)

	_, err := ResolveToken(context.Background(), testLogger())
	assert.ErrorIs(t, err, github.ErrNotAuthenticated)
}
