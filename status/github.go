package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const STATE_PENDING = "pending"
const STATE_SUCCESS = "success"
const STATE_FAILURE = "failure"
const STATE_ERROR = "error"

// GitHub rejects longer descriptions.
const MAX_DESCRIPTION_LENGTH = 140

type statusRequest struct {
	State       string `json:"state"`
	TargetURL   string `json:"target_url,omitempty"`
	Description string `json:"description"`
	Context     string `json:"context"`
}

// GitHubReporter publishes commit statuses through the GitHub REST API.
type GitHubReporter struct {
	config Config
	client *http.Client
	log    *logrus.Logger
}

// NewGitHubReporter authenticates every request with the configured token.
// An *http.Client stored in ctx under oauth2.HTTPClient is used as transport.
func NewGitHubReporter(ctx context.Context, config Config, logger *logrus.Logger) *GitHubReporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token}))
	client.Timeout = 30 * time.Second

	return &GitHubReporter{
		config: config,
		client: client,
		log:    logger,
	}
}

func (r *GitHubReporter) Pending(ctx context.Context, sha, description string) error {
	return r.send(ctx, sha, STATE_PENDING, description)
}

func (r *GitHubReporter) Success(ctx context.Context, sha, description string) error {
	return r.send(ctx, sha, STATE_SUCCESS, description)
}

func (r *GitHubReporter) Failure(ctx context.Context, sha, description string) error {
	return r.send(ctx, sha, STATE_FAILURE, description)
}

func (r *GitHubReporter) Error(ctx context.Context, sha, description string) error {
	return r.send(ctx, sha, STATE_ERROR, description)
}

func (r *GitHubReporter) statusURL(sha string) string {
	return fmt.Sprintf("%s/repos/%s/%s/statuses/%s",
		r.config.APIURL,
		url.PathEscape(r.config.Owner),
		url.PathEscape(r.config.Repo),
		url.PathEscape(sha),
	)
}

func (r *GitHubReporter) send(ctx context.Context, sha, state, description string) error {
	body, err := json.Marshal(statusRequest{
		State:       state,
		TargetURL:   r.config.TargetURL,
		Description: truncate(description, MAX_DESCRIPTION_LENGTH),
		Context:     r.config.Context,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.statusURL(sha), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post %s status: %w", state, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("github returned %d for %s status: %s", resp.StatusCode, state, strings.TrimSpace(string(message)))
	}

	r.log.WithFields(logrus.Fields{
		"commit": sha,
		"state":  state,
	}).Debug("Commit status reported")
	return nil
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
