package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/models"
)

const defaultGitHubBaseURL = "https://api.github.com"

// GitHubSource pulls recently updated issues from a set of repositories
type GitHubSource struct {
	token   string
	repos   []string
	baseURL string
	client  *resty.Client
}

var _ Source = (*GitHubSource)(nil)

type githubIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	HTMLURL   string    `json:"html_url"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Reactions struct {
		PlusOne int `json:"+1"`
	} `json:"reactions"`
	PullRequest *json.RawMessage `json:"pull_request"`
}

// NewGitHubSource creates a source for "owner/name" repositories; the token is optional for public repos
func NewGitHubSource(token string, repos []string) *GitHubSource {
	return &GitHubSource{
		token:   token,
		repos:   repos,
		baseURL: defaultGitHubBaseURL,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "application/vnd.github+json"),
	}
}

func (g *GitHubSource) GetName() string {
	return models.SourceGitHub
}

func (g *GitHubSource) IsEnabled() bool {
	return len(g.repos) > 0
}

func (g *GitHubSource) Fetch(ctx context.Context, since time.Duration) ([]models.FeedbackItem, error) {
	if !g.IsEnabled() {
		logrus.Debug("GitHub source disabled - no repositories configured")
		return nil, nil
	}

	var all []models.FeedbackItem
	var failed []string

	for _, repo := range g.repos {
		items, err := g.fetchRepo(ctx, repo, since)
		if err != nil {
			logrus.Errorf("Failed to fetch GitHub issues for %s: %v", repo, err)
			failed = append(failed, repo)
			continue
		}
		all = append(all, items...)
	}

	if len(all) == 0 && len(failed) == len(g.repos) {
		return nil, fmt.Errorf("failed to fetch issues from %s", strings.Join(failed, ", "))
	}

	return deduplicate(all), nil
}

func (g *GitHubSource) fetchRepo(ctx context.Context, repo string, since time.Duration) ([]models.FeedbackItem, error) {
	req := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"state":    "open",
			"since":    time.Now().Add(-since).UTC().Format(time.RFC3339),
			"per_page": strconv.Itoa(requestLimit),
		})
	if g.token != "" {
		req.SetAuthToken(g.token)
	}

	resp, err := req.Get(fmt.Sprintf("%s/repos/%s/issues", g.baseURL, repo))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("github API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var issues []githubIssue
	if err := json.Unmarshal(resp.Body(), &issues); err != nil {
		return nil, fmt.Errorf("failed to parse GitHub response: %w", err)
	}

	var items []models.FeedbackItem
	for _, issue := range issues {
		if issue.PullRequest != nil {
			continue
		}

		labels := make([]string, 0, len(issue.Labels))
		for _, label := range issue.Labels {
			labels = append(labels, label.Name)
		}

		metadata := map[string]interface{}{
			"upvotes":  issue.Reactions.PlusOne,
			"comments": issue.Comments,
			"labels":   labels,
			"repo":     repo,
			"url":      issue.HTMLURL,
		}
		if p := labelPriority(labels); p != "" {
			metadata["priority"] = p
		}

		content := issue.Body
		if strings.TrimSpace(content) == "" {
			content = issue.Title
		}

		items = append(items, models.FeedbackItem{
			ID:        fmt.Sprintf("GH-%s#%d", repo, issue.Number),
			Source:    models.SourceGitHub,
			Title:     issue.Title,
			Content:   content,
			Author:    issue.User.Login,
			Timestamp: issue.CreatedAt,
			Metadata:  metadata,
		})
	}

	logrus.Infof("Found %d GitHub issues in %s", len(items), repo)
	return items, nil
}

// labelPriority maps conventional priority labels onto the priority metadata field
func labelPriority(labels []string) string {
	priority := ""
	for _, label := range labels {
		l := strings.ToLower(label)
		switch {
		case strings.Contains(l, "critical"), l == "p0":
			return "critical"
		case strings.Contains(l, "high"), l == "p1":
			priority = "high"
		}
	}
	return priority
}
