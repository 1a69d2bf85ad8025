package model

import (
	"errors"
	"regexp"
	"strings"
)

const BRANCH_REF_PREFIX = "refs/heads/"
const ZERO_SHA = "0000000000000000000000000000000000000000"

var shaPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

var ErrNotABranch = errors.New("ref is not a branch")
var ErrBranchDeleted = errors.New("branch was deleted")

// PushEvent is the subset of a GitHub push webhook payload the CI needs.
type PushEvent struct {
	Ref        string         `json:"ref"`
	Before     string         `json:"before"`
	After      string         `json:"after"`
	Deleted    bool           `json:"deleted"`
	Repository PushRepository `json:"repository"`
}

type PushRepository struct {
	FullName string `json:"full_name"`
	CloneURL string `json:"clone_url"`
}

// Job validates the payload structurally and converts it into a Job.
// ErrNotABranch and ErrBranchDeleted mark pushes that are valid but carry
// nothing to build.
func (e *PushEvent) Job() (Job, error) {
	if len(e.Ref) == 0 {
		return Job{}, errors.New("missing ref")
	}
	if !strings.HasPrefix(e.Ref, BRANCH_REF_PREFIX) {
		return Job{}, ErrNotABranch
	}
	branch := strings.TrimPrefix(e.Ref, BRANCH_REF_PREFIX)
	if len(branch) == 0 {
		return Job{}, errors.New("empty branch name")
	}
	if e.Deleted || e.After == ZERO_SHA {
		return Job{}, ErrBranchDeleted
	}
	if !shaPattern.MatchString(e.After) {
		return Job{}, errors.New("after is not a 40 character hex sha")
	}
	if len(e.Repository.CloneURL) == 0 {
		return Job{}, errors.New("missing repository clone_url")
	}

	return Job{
		RepositoryURL: e.Repository.CloneURL,
		Branch:        branch,
		Commit:        e.After,
	}, nil
}
