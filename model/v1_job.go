package model

import (
	"fmt"
	"strings"
)

// Job identifies exactly one pipeline run.
type Job struct {
	RepositoryURL string `json:"repository_url"`
	Branch        string `json:"branch"`
	Commit        string `json:"commit"`
}

// ShortCommit is the commit shortened to 7 characters for log lines.
func (j Job) ShortCommit() string {
	return ShortSha(j.Commit)
}

func (j Job) String() string {
	return fmt.Sprintf("%s@%s (%s)", j.Branch, j.ShortCommit(), j.RepositoryURL)
}

func ShortSha(sha string) string {
	sha = strings.TrimSpace(sha)
	if len(sha) == 0 {
		return "null"
	}
	if len(sha) < 7 {
		return sha
	}
	return sha[:7]
}
