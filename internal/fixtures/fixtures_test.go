package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fshasan/feedback-pulse/internal/models"
	"github.com/fshasan/feedback-pulse/internal/storage"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestCatalogue(t *testing.T) {
	items := Catalogue(now)
	require.Len(t, items, 16)

	ids := make(map[string]bool)
	sources := make(map[string]int)
	for _, item := range items {
		assert.False(t, ids[item.ID], "duplicate id %s", item.ID)
		ids[item.ID] = true
		sources[item.Source]++
		assert.True(t, item.Timestamp.Before(now))
		assert.NotEmpty(t, item.Content)
	}

	assert.Len(t, sources, 6)
	assert.Equal(t, 3, sources[models.SourceSupport])
	assert.Equal(t, 2, sources[models.SourceForum])
}

func TestCatalogue_CopiesMetadata(t *testing.T) {
	first := Catalogue(now)
	first[0].Metadata["priority"] = "low"

	second := Catalogue(now)
	assert.Equal(t, "high", second[0].Metadata["priority"])
}

func TestProcessLocal(t *testing.T) {
	records := ProcessLocal(Catalogue(now))
	require.Len(t, records, 16)

	byID := make(map[string]models.AnalyzedFeedback)
	for _, record := range records {
		byID[record.ID] = record

		a := record.Analysis
		assert.False(t, a.IsSpam, record.ID)
		assert.GreaterOrEqual(t, a.ValueScore, 0.0)
		assert.LessOrEqual(t, a.ValueScore, 10.0)
		assert.Contains(t, []float64{2, 5, 8, 10}, a.UrgencyScore)
		assert.NotEmpty(t, a.Themes)
	}

	tests := []struct {
		id        string
		sentiment string
		urgency   float64
		value     float64
	}{
		{id: "CS-001", sentiment: models.SentimentNeutral, urgency: 8, value: 6},
		{id: "DC-002", urgency: 8},
		{id: "GH-002", urgency: 8},
		{id: "CS-003", sentiment: models.SentimentPositive, urgency: 2},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			a := byID[tt.id].Analysis
			if tt.sentiment != "" {
				assert.Equal(t, tt.sentiment, a.Sentiment)
			}
			assert.Equal(t, tt.urgency, a.UrgencyScore)
			if tt.value != 0 {
				assert.Equal(t, tt.value, a.ValueScore)
			}
		})
	}
}

func TestProcessLocal_Spam(t *testing.T) {
	records := ProcessLocal([]models.FeedbackItem{{ID: "x", Source: "email", Content: "BUY NOW limited time offer"}})
	require.Len(t, records, 1)
	assert.Equal(t, models.SpamAnalysis(), records[0].Analysis)
}

func TestProcessLocal_Deterministic(t *testing.T) {
	items := Catalogue(now)
	assert.Equal(t, ProcessLocal(items), ProcessLocal(items))
}

func TestSeed(t *testing.T) {
	repo := storage.NewMemoryRepository()
	ctx := context.Background()

	written, err := Seed(ctx, repo, now)
	require.NoError(t, err)
	assert.Equal(t, 16, written)

	written, err = Seed(ctx, repo, now)
	require.NoError(t, err)
	assert.Equal(t, 0, written)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 16)
}
