// Package fixtures holds a catalogue of sample feedback used to seed an empty store
// and the deterministic local pipeline that scores it.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/heuristics"
	"github.com/fshasan/feedback-pulse/internal/models"
	"github.com/fshasan/feedback-pulse/internal/scoring"
	"github.com/fshasan/feedback-pulse/internal/storage"
)

type sample struct {
	id       string
	source   string
	title    string
	content  string
	author   string
	age      time.Duration
	metadata map[string]interface{}
}

var samples = []sample{
	// Support tickets
	{"CS-001", models.SourceSupport, "API rate limiting too restrictive",
		"We keep hitting rate limits on the API. The current 1000 requests per hour is way too low for our use case. This is blocking our production deployment.",
		"sarah@company.com", 2 * time.Hour, map[string]interface{}{"priority": "high", "category": "api"}},
	{"CS-002", models.SourceSupport, "Dashboard loading slowly",
		"The dashboard takes over 10 seconds to load. This has been happening for the past week. Very frustrating for our team.",
		"mike@startup.io", 5 * time.Hour, map[string]interface{}{"priority": "medium", "category": "performance"}},
	{"CS-003", models.SourceSupport, "Great documentation!",
		"Just wanted to say thank you for the excellent API documentation. It made integration so much easier than with other providers.",
		"dev@example.com", 24 * time.Hour, map[string]interface{}{"priority": "low", "category": "documentation"}},

	// Discord
	{"DC-001", models.SourceDiscord, "Feature request: Webhook retries",
		"Can we get automatic retries for failed webhooks? Right now if a webhook fails once, it never retries. We miss important notifications.",
		"jane_doe#1234", time.Hour, map[string]interface{}{"channel": "feature-requests", "reactions": 15}},
	{"DC-002", models.SourceDiscord, "Bug: SSL certificate errors",
		"Getting SSL certificate errors when trying to connect. Is this a known issue? Super urgent, our service is down.",
		"admin_user#5678", 30 * time.Minute, map[string]interface{}{"channel": "bugs", "reactions": 8}},
	{"DC-003", models.SourceDiscord, "Appreciation post",
		"The new caching features are amazing! Reduced our latency by 80%. Thank you team!",
		"happy_dev#9012", 3 * time.Hour, map[string]interface{}{"channel": "general", "reactions": 42}},

	// GitHub issues
	{"GH-001", models.SourceGitHub, "Add support for GraphQL subscriptions",
		"Would love to see GraphQL subscription support. This is a must-have for our real-time application. Currently using workarounds but native support would be ideal.",
		"github_user_1", 12 * time.Hour, map[string]interface{}{"repo": "api", "labels": []string{"enhancement", "feature-request"}, "upvotes": 47, "comments": 12}},
	{"GH-002", models.SourceGitHub, "Memory leak in v2.3.0",
		"Experiencing memory leaks in production. Memory usage grows from 200MB to 2GB over 24 hours. Needs urgent attention.",
		"github_user_2", 6 * time.Hour, map[string]interface{}{"repo": "sdk", "labels": []string{"bug", "critical"}, "upvotes": 89, "comments": 24}},
	{"GH-003", models.SourceGitHub, "TypeScript types are outdated",
		"The TypeScript definitions are missing several new endpoints. Please update the published type definitions to match the latest API.",
		"ts_dev", 18 * time.Hour, map[string]interface{}{"repo": "sdk", "labels": []string{"documentation", "typescript"}, "upvotes": 23, "comments": 5}},

	// Twitter
	{"TW-001", models.SourceTwitter, "Performance issues",
		"@PlatformAPI experiencing massive slowdowns today. Response times are 5x normal. Anyone else seeing this?",
		"@techlead", 45 * time.Minute, map[string]interface{}{"likes": 12, "retweets": 5, "replies": 8}},
	{"TW-002", models.SourceTwitter, "Feature appreciation",
		"Just discovered the edge functions and it's a game changer! So much faster than our previous serverless setup. Highly recommend!",
		"@webdev", 4 * time.Hour, map[string]interface{}{"likes": 156, "retweets": 34, "replies": 21}},
	{"TW-003", models.SourceTwitter, "Price concerns",
		"Love the product but pricing is getting steep. The new tier structure makes it hard for small teams to afford. Hope you reconsider.",
		"@startup_founder", 8 * time.Hour, map[string]interface{}{"likes": 78, "retweets": 15, "replies": 31}},

	// Email
	{"EM-001", models.SourceEmail, "Billing inquiry",
		"Our billing seems incorrect this month. We were charged $500 more than expected. Can someone review this?",
		"finance@company.com", 3 * time.Hour, map[string]interface{}{"subject": "Billing Issue", "department": "finance"}},
	{"EM-002", models.SourceEmail, "Enterprise feature request",
		"We need SSO integration with SAML for our enterprise deployment. This is a blocker for renewal. When can we expect this?",
		"cto@enterprise.com", 10 * time.Hour, map[string]interface{}{"subject": "Enterprise Feature Request", "department": "sales"}},

	// Community forum
	{"CF-001", models.SourceForum, "Best practices for edge caching",
		"What are the recommended cache headers for static assets? Looking for best practices from the community.",
		"community_member", 15 * time.Hour, map[string]interface{}{"category": "best-practices", "views": 234, "replies": 18}},
	{"CF-002", models.SourceForum, "DDoS protection feedback",
		"The automatic DDoS protection saved us last week! Attack was mitigated in seconds. This is why we chose this platform.",
		"security_admin", 7 * time.Hour, map[string]interface{}{"category": "security", "views": 567, "replies": 45}},
}

// Catalogue returns the sample feedback with timestamps relative to now
func Catalogue(now time.Time) []models.FeedbackItem {
	items := make([]models.FeedbackItem, 0, len(samples))
	for _, s := range samples {
		metadata := make(map[string]interface{}, len(s.metadata))
		for k, v := range s.metadata {
			metadata[k] = v
		}

		items = append(items, models.FeedbackItem{
			ID:        s.id,
			Source:    s.source,
			Title:     s.title,
			Content:   s.content,
			Author:    s.author,
			Timestamp: now.Add(-s.age),
			Metadata:  metadata,
		})
	}
	return items
}

// ProcessLocal scores a batch with the local heuristics only. Spam gets the fixed
// spam analysis. The result is deterministic for a given input.
func ProcessLocal(items []models.FeedbackItem) []models.AnalyzedFeedback {
	out := make([]models.AnalyzedFeedback, 0, len(items))
	for _, item := range items {
		analysis := models.SpamAnalysis()
		if !heuristics.IsSpamOrOffensive(item.Content) {
			analysis = scoring.Score(item)
		}
		out = append(out, models.AnalyzedFeedback{FeedbackItem: item, Analysis: analysis})
	}
	return out
}

// Seed stores the catalogue, skipping items the repository already holds.
// It returns the number of records written.
func Seed(ctx context.Context, repo storage.Repository, now time.Time) (int, error) {
	written := 0
	for _, record := range ProcessLocal(Catalogue(now)) {
		exists, err := repo.Exists(ctx, record.ID)
		if err != nil {
			return written, fmt.Errorf("failed to check fixture %s: %w", record.ID, err)
		}
		if exists {
			continue
		}

		if err := repo.Save(ctx, record); err != nil {
			return written, fmt.Errorf("failed to seed fixture %s: %w", record.ID, err)
		}
		written++
	}

	logrus.Infof("Seeded %d sample feedback records", written)
	return written, nil
}
