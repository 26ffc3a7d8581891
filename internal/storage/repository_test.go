package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fshasan/feedback-pulse/internal/models"
)

var equateEmpty = cmpopts.EquateEmpty()

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *SQLRepository {
	t.Helper()
	r, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// forEachRepository runs fn against every Repository implementation
func forEachRepository(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryRepository())
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newTestDB(t))
	})
}

func record(id, source, sentiment string, value, urgency float64, hoursAgo int) models.AnalyzedFeedback {
	return models.AnalyzedFeedback{
		FeedbackItem: models.FeedbackItem{
			ID:        id,
			Source:    source,
			Title:     "Title " + id,
			Content:   "Content of " + id,
			Author:    "author-" + id,
			Timestamp: baseTime.Add(-time.Duration(hoursAgo) * time.Hour),
			Metadata:  map[string]interface{}{"likes": float64(hoursAgo)},
		},
		Analysis: models.Analysis{
			Sentiment:    sentiment,
			Themes:       []string{"General"},
			ValueScore:   value,
			UrgencyScore: urgency,
		},
	}
}

func seed(t *testing.T, repo Repository, records ...models.AnalyzedFeedback) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, repo.Save(context.Background(), r))
	}
}

func ids(records []models.AnalyzedFeedback) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestRepository_SaveAndAll(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		spam := record("spam", models.SourceTwitter, models.SentimentNeutral, 0, 0, 1)
		spam.Analysis = models.SpamAnalysis()

		full := record("full", models.SourceSupport, models.SentimentNegative, 6, 8, 2)
		full.Analysis.SentimentScore = -2
		full.Analysis.Themes = []string{"API", "Bugs"}
		full.Analysis.IsUrgent = true
		full.Analysis.Reasoning = "AI-generated analysis"
		full.Metadata = map[string]interface{}{"priority": "high", "labels": []interface{}{"bug"}}

		seed(t, repo, full, spam)

		all, err := repo.All(ctx)
		require.NoError(t, err)

		if diff := cmp.Diff([]models.AnalyzedFeedback{spam, full}, all, equateEmpty); diff != "" {
			t.Errorf("All() mismatch (-want +got):\n%s", diff)
		}

		exists, err := repo.Exists(ctx, "full")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestRepository_SaveReplacesSameID(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		seed(t, repo,
			record("a", "forum", models.SentimentNeutral, 1, 2, 3),
			record("b", "forum", models.SentimentNeutral, 1, 2, 2),
		)

		updated := record("a", "forum", models.SentimentNegative, 7, 5, 3)
		seed(t, repo, updated)

		all, err := repo.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, []string{"a", "b"}, ids(all))
		assert.Equal(t, models.SentimentNegative, all[0].Analysis.Sentiment)
	})
}

func TestRepository_BySource(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		seed(t, repo,
			record("gh1", models.SourceGitHub, models.SentimentNeutral, 1, 2, 3),
			record("tw1", models.SourceTwitter, models.SentimentNeutral, 1, 2, 2),
			record("gh2", models.SourceGitHub, models.SentimentNeutral, 1, 2, 1),
		)

		got, err := repo.BySource(context.Background(), models.SourceGitHub)
		require.NoError(t, err)
		assert.Equal(t, []string{"gh2", "gh1"}, ids(got))

		got, err = repo.BySource(context.Background(), "nowhere")
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})
}

func TestRepository_List(t *testing.T) {
	records := []models.AnalyzedFeedback{
		record("r1", models.SourceSupport, models.SentimentNegative, 9, 8, 5),
		record("r2", models.SourceGitHub, models.SentimentPositive, 4, 2, 1),
		record("r3", models.SourceSupport, models.SentimentNeutral, 6, 5, 3),
		record("r4", models.SourceTwitter, models.SentimentNegative, 6, 10, 4),
	}
	records[1].Title = "Caching is AMAZING"
	records[2].Content = "100% broken_export"
	records[3].Content = "Die Überweisung schlägt FEHL"

	tests := []struct {
		name        string
		query       Query
		expectedIDs []string
		expectedPag Pagination
	}{
		{
			name:        "Defaults sort by timestamp descending",
			query:       Query{},
			expectedIDs: []string{"r2", "r3", "r4", "r1"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 4, TotalPages: 1},
		},
		{
			name:        "Timestamp ascending",
			query:       Query{SortBy: SortTimestamp, Ascending: true},
			expectedIDs: []string{"r1", "r4", "r3", "r2"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 4, TotalPages: 1},
		},
		{
			name:        "Value descending keeps newest saved first on ties",
			query:       Query{SortBy: SortValueScore},
			expectedIDs: []string{"r1", "r4", "r3", "r2"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 4, TotalPages: 1},
		},
		{
			name:        "Urgency ascending",
			query:       Query{SortBy: SortUrgencyScore, Ascending: true},
			expectedIDs: []string{"r2", "r3", "r1", "r4"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 4, TotalPages: 1},
		},
		{
			name:        "Sentiment ascending",
			query:       Query{SortBy: SortSentiment, Ascending: true},
			expectedIDs: []string{"r4", "r1", "r3", "r2"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 4, TotalPages: 1},
		},
		{
			name:        "Unknown sort falls back to timestamp",
			query:       Query{SortBy: "author"},
			expectedIDs: []string{"r2", "r3", "r4", "r1"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 4, TotalPages: 1},
		},
		{
			name:        "Source filter",
			query:       Query{Source: models.SourceSupport},
			expectedIDs: []string{"r3", "r1"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 2, TotalPages: 1},
		},
		{
			name:        "All means no filter",
			query:       Query{Source: "all", Sentiment: "all"},
			expectedIDs: []string{"r2", "r3", "r4", "r1"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 4, TotalPages: 1},
		},
		{
			name:        "Sentiment filter",
			query:       Query{Sentiment: models.SentimentNegative},
			expectedIDs: []string{"r4", "r1"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 2, TotalPages: 1},
		},
		{
			name:        "Search title case insensitive",
			query:       Query{Search: "amazing"},
			expectedIDs: []string{"r2"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 1, TotalPages: 1},
		},
		{
			name:        "Search folds non-ASCII case",
			query:       Query{Search: "ÜBERWEISUNG SCHLÄGT"},
			expectedIDs: []string{"r4"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 1, TotalPages: 1},
		},
		{
			name:        "Search treats wildcards literally",
			query:       Query{Search: "0% broken_"},
			expectedIDs: []string{"r3"},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 1, TotalPages: 1},
		},
		{
			name:        "Search underscore does not match any character",
			query:       Query{Search: "of_r"},
			expectedIDs: []string{},
			expectedPag: Pagination{Page: 1, Limit: 10, TotalCount: 0, TotalPages: 0},
		},
		{
			name:        "First page",
			query:       Query{Page: 1, Limit: 3},
			expectedIDs: []string{"r2", "r3", "r4"},
			expectedPag: Pagination{Page: 1, Limit: 3, TotalCount: 4, TotalPages: 2, HasNext: true},
		},
		{
			name:        "Second page",
			query:       Query{Page: 2, Limit: 3},
			expectedIDs: []string{"r1"},
			expectedPag: Pagination{Page: 2, Limit: 3, TotalCount: 4, TotalPages: 2, HasPrev: true},
		},
		{
			name:        "Page past the end",
			query:       Query{Page: 5, Limit: 3},
			expectedIDs: []string{},
			expectedPag: Pagination{Page: 5, Limit: 3, TotalCount: 4, TotalPages: 2, HasPrev: true},
		},
		{
			name:        "Limit capped at 100",
			query:       Query{Limit: 1000},
			expectedIDs: []string{"r2", "r3", "r4", "r1"},
			expectedPag: Pagination{Page: 1, Limit: 100, TotalCount: 4, TotalPages: 1},
		},
	}

	forEachRepository(t, func(t *testing.T, repo Repository) {
		seed(t, repo, records...)

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				page, err := repo.List(context.Background(), tt.query)
				require.NoError(t, err)

				assert.Equal(t, tt.expectedIDs, ids(page.Data))
				assert.Equal(t, tt.expectedPag, page.Pagination)
			})
		}
	})
}

func TestQuery_Normalize(t *testing.T) {
	q := Query{Page: -2, Limit: 0, Source: "all", Sentiment: "all", Search: "  rate limit ", SortBy: "bogus"}.Normalize()

	assert.Equal(t, Query{Page: 1, Limit: DefaultLimit, SortBy: SortTimestamp, Search: "rate limit"}, q)
}

func TestMemoryRepository_ConcurrentSaves(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			_ = repo.Save(ctx, record(fmt.Sprintf("c%d", i), "forum", models.SentimentNeutral, 1, 2, i))
			_, _ = repo.List(ctx, Query{})
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}
