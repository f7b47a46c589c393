// Package auth resolves the GitHub bearer token. The rest of the app
// has no opinion on token provenance; it receives an opaque string.
package auth

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"

	"github.com/gstamp/github-review-manager/internal/github"
)

const (
	keyringService = "github-review-manager"
	keyringUser    = "github-token"
)

// ResolveToken resolves a token in priority order: the gh CLI, the
// GITHUB_TOKEN environment variable (with .env loading), then the OS
// keyring. Returns ErrNotAuthenticated when all three come up empty.
func ResolveToken(ctx context.Context, logger *slog.Logger) (string, error) {
	if token := fromGhCLI(ctx, logger); token != "" {
		return token, nil
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	if token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); token != "" {
		logger.Debug("using token from environment")
		return token, nil
	}

	if token, err := keyring.Get(keyringService, keyringUser); err == nil && token != "" {
		logger.Debug("using token from keyring")
		return token, nil
	}

	return "", github.ErrNotAuthenticated
}

// StoreToken saves a token in the OS keyring for later runs.
func StoreToken(token string) error {
	return keyring.Set(keyringService, keyringUser, token)
}

func fromGhCLI(ctx context.Context, logger *slog.Logger) string {
	cmd := exec.CommandContext(ctx, "gh", "auth", "token")
	out, err := cmd.Output()
	if err != nil {
		logger.Debug("gh auth token unavailable", "error", err)
		return ""
	}
	token := strings.TrimSpace(string(out))
	if token != "" {
		logger.Debug("using token from gh CLI")
	}
	return token
}
