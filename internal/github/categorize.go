package github

import "strings"

// Categories returned by Categorize for logins that are not bots.
const (
	CategoryHuman   = "human"
	CategoryUnknown = "unknown"
)

// knownBots are logins that act as bots even when they appear without a
// [bot] suffix. Extended at startup from configuration.
var knownBots = []string{
	"codecov",
	"copilot",
	"dependabot",
	"github-actions",
	"renovate",
	"snyk-io",
}

// RegisterBots adds extra logins to the known-bot table.
func RegisterBots(logins []string) {
	for _, login := range logins {
		login = strings.ToLower(strings.TrimSpace(login))
		if login == "" {
			continue
		}
		knownBots = append(knownBots, login)
	}
}

// Categorize maps a reviewer/author login to a category tag: "human",
// "unknown" for an absent login, or the bot's base name lowercased.
// Bot identities match case-insensitively, with or without a [bot]
// suffix, and may carry a "reviews:" prefix.
func Categorize(login string) string {
	if strings.TrimSpace(login) == "" {
		return CategoryUnknown
	}

	name := strings.ToLower(strings.TrimSpace(login))
	name = strings.TrimSpace(strings.TrimPrefix(name, "reviews:"))

	if base, found := strings.CutSuffix(name, "[bot]"); found {
		base = strings.TrimSpace(base)
		if base == "" {
			return CategoryUnknown
		}
		return base
	}

	for _, bot := range knownBots {
		if name == bot {
			return bot
		}
	}
	return CategoryHuman
}
