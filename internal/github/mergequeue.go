package github

import (
	"errors"
	"strings"
)

// mergeQueuePhrases are the known remote phrasings for "this branch
// requires a merge queue". The match is deliberately a substring check:
// GitHub has shipped several variants of this error and none carry a
// stable machine-readable type. Phrasing drift means extending this
// table, not changing the classifier.
var mergeQueuePhrases = []string{
	"merge queue",
	"must be enqueued",
	"enqueue this pull request",
	"repository rule violations",
	"changes must be made through the merge queue",
}

// MentionsMergeQueue reports whether a remote error message indicates
// the merge must go through a merge queue.
func MentionsMergeQueue(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range mergeQueuePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// IsMergeQueueRequired classifies an error from a merge mutation as the
// merge-queue-required case, which callers reinterpret as an enqueue.
func IsMergeQueueRequired(err error) bool {
	if err == nil {
		return false
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		for _, detail := range remote.Errors {
			if MentionsMergeQueue(detail.Message) {
				return true
			}
		}
		return false
	}
	return MentionsMergeQueue(err.Error())
}
