package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/models"
)

const defaultTwitterBaseURL = "https://api.twitter.com/2"

// TwitterSource pulls recent posts matching a search query from the X (Twitter) API
type TwitterSource struct {
	bearerToken string
	query       string
	baseURL     string
	client      *resty.Client
}

var _ Source = (*TwitterSource)(nil)

type twitterSearchResponse struct {
	Data     []twitterTweet `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type twitterTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

// NewTwitterSource creates a new Twitter source
func NewTwitterSource(bearerToken, query string) *TwitterSource {
	return &TwitterSource{
		bearerToken: bearerToken,
		query:       query,
		baseURL:     defaultTwitterBaseURL,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (t *TwitterSource) GetName() string {
	return models.SourceTwitter
}

func (t *TwitterSource) IsEnabled() bool {
	return t.bearerToken != "" && t.query != ""
}

func (t *TwitterSource) Fetch(ctx context.Context, since time.Duration) ([]models.FeedbackItem, error) {
	if !t.IsEnabled() {
		logrus.Debug("Twitter source disabled - missing bearer token or query")
		return nil, nil
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetAuthToken(t.bearerToken).
		SetQueryParams(map[string]string{
			"query":        fmt.Sprintf("%s -is:retweet", t.query),
			"start_time":   time.Now().Add(-since).UTC().Format(time.RFC3339),
			"max_results":  strconv.Itoa(requestLimit),
			"tweet.fields": "created_at,author_id,public_metrics,referenced_tweets",
			"expansions":   "author_id",
			"user.fields":  "username",
		}).
		Get(t.baseURL + "/tweets/search/recent")

	if err != nil {
		return nil, err
	}

	// Rate limited: skip this run so other sources still get processed
	if resp.StatusCode() == 429 {
		logrus.Warnf("Twitter API rate limit hit, reset at %q - skipping", resp.Header().Get("x-rate-limit-reset"))
		return []models.FeedbackItem{}, nil
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Twitter response: %w", err)
	}

	usernames := make(map[string]string, len(searchResp.Includes.Users))
	for _, user := range searchResp.Includes.Users {
		usernames[user.ID] = user.Username
	}

	var items []models.FeedbackItem
	for _, tweet := range searchResp.Data {
		if isRetweet(tweet) {
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, tweet.CreatedAt)
		if err != nil {
			logrus.Errorf("Failed to parse Twitter timestamp: %v", err)
			continue
		}

		author := tweet.AuthorID
		if name, ok := usernames[tweet.AuthorID]; ok {
			author = "@" + name
		}

		items = append(items, models.FeedbackItem{
			ID:        "TW-" + tweet.ID,
			Source:    models.SourceTwitter,
			Title:     titleFromText(tweet.Text),
			Content:   tweet.Text,
			Author:    author,
			Timestamp: createdAt,
			Metadata: map[string]interface{}{
				"likes":    tweet.PublicMetrics.LikeCount,
				"retweets": tweet.PublicMetrics.RetweetCount,
				"replies":  tweet.PublicMetrics.ReplyCount,
				"url":      fmt.Sprintf("https://twitter.com/i/status/%s", tweet.ID),
			},
		})
	}

	logrus.Infof("Twitter API returned %d posts, %d kept", len(searchResp.Data), len(items))
	return deduplicate(items), nil
}

func isRetweet(tweet twitterTweet) bool {
	for _, ref := range tweet.ReferencedTweets {
		if ref.Type == "retweeted" {
			return true
		}
	}
	return false
}
