package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/models"
)

const defaultForumBaseURL = "https://api.stackexchange.com/2.3"

// ForumSource pulls community questions carrying the product's tags from Stack Overflow
type ForumSource struct {
	tags    []string
	site    string
	baseURL string
	client  *resty.Client
}

var _ Source = (*ForumSource)(nil)

type forumResponse struct {
	Items []forumQuestion `json:"items"`
}

type forumQuestion struct {
	QuestionID int      `json:"question_id"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
	Owner      struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	CreationDate int64  `json:"creation_date"`
	Score        int    `json:"score"`
	ViewCount    int    `json:"view_count"`
	AnswerCount  int    `json:"answer_count"`
	Link         string `json:"link"`
	IsAnswered   bool   `json:"is_answered"`
}

// NewForumSource creates a new Stack Overflow forum source
func NewForumSource(tags []string) *ForumSource {
	return &ForumSource{
		tags:    tags,
		site:    "stackoverflow",
		baseURL: defaultForumBaseURL,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (s *ForumSource) GetName() string {
	return models.SourceForum
}

// Stack Exchange allows anonymous reads; only the tag list is required
func (s *ForumSource) IsEnabled() bool {
	return len(s.tags) > 0
}

func (s *ForumSource) Fetch(ctx context.Context, since time.Duration) ([]models.FeedbackItem, error) {
	if !s.IsEnabled() {
		logrus.Debug("Forum source disabled - no tags configured")
		return nil, nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"order":    "desc",
			"sort":     "creation",
			"tagged":   strings.Join(s.tags, ";"),
			"site":     s.site,
			"fromdate": strconv.FormatInt(time.Now().Add(-since).Unix(), 10),
			"pagesize": strconv.Itoa(requestLimit),
			"filter":   "withbody",
		}).
		Get(s.baseURL + "/search/advanced")

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("stack exchange API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp forumResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Stack Exchange response: %w", err)
	}

	var items []models.FeedbackItem
	for _, question := range searchResp.Items {
		items = append(items, models.FeedbackItem{
			ID:        fmt.Sprintf("SO-%d", question.QuestionID),
			Source:    models.SourceForum,
			Title:     html.UnescapeString(question.Title),
			Content:   stripHTMLTags(question.Body),
			Author:    html.UnescapeString(question.Owner.DisplayName),
			Timestamp: time.Unix(question.CreationDate, 0).UTC(),
			Metadata: map[string]interface{}{
				"score":      question.Score,
				"answers":    question.AnswerCount,
				"views":      question.ViewCount,
				"isAnswered": question.IsAnswered,
				"tags":       question.Tags,
				"url":        question.Link,
			},
		})
	}

	logrus.Infof("Found %d forum questions tagged %s", len(items), strings.Join(s.tags, ", "))
	return deduplicate(items), nil
}

func stripHTMLTags(content string) string {
	content = strings.ReplaceAll(content, "<p>", "\n")
	content = strings.ReplaceAll(content, "</p>", "\n")
	content = strings.ReplaceAll(content, "<br>", "\n")
	content = strings.ReplaceAll(content, "<br/>", "\n")
	content = strings.ReplaceAll(content, "<code>", "`")
	content = strings.ReplaceAll(content, "</code>", "`")

	for strings.Contains(content, "<") && strings.Contains(content, ">") {
		start := strings.Index(content, "<")
		end := strings.Index(content, ">")
		if start < end {
			content = content[:start] + content[end+1:]
		} else {
			break
		}
	}

	return strings.TrimSpace(html.UnescapeString(content))
}
