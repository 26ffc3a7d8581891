package heuristics

import (
	"math/bits"
	"strings"
	"testing"
	"time"

	"github.com/fshasan/feedback-pulse/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestIsMeaninglessText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{
			name:     "Single repeated character",
			text:     "aaaaaaaaaaaaaaaaaaaa",
			expected: true,
		},
		{
			name:     "Repeated three character unit",
			text:     "abcabcabc",
			expected: true,
		},
		{
			name:     "Repeated two character unit",
			text:     "ababab",
			expected: true,
		},
		{
			name:     "One word dominates",
			text:     "test test test hello",
			expected: true,
		},
		{
			name:     "Few distinct characters in long text",
			text:     "ab ba ab ba ba ab ab ba b",
			expected: true,
		},
		{
			name:     "Normal feedback",
			text:     "The dashboard loads slowly when filtering by date",
			expected: false,
		},
		{
			name:     "Short distinct text",
			text:     "ok",
			expected: false,
		},
		{
			name:     "Empty text",
			text:     "",
			expected: false,
		},
		{
			name:     "Repetition broken by line breaks",
			text:     "a\nb\nc\nd\ne\nf",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsMeaninglessText(tt.text))
		})
	}
}

func TestHasRepeatedUnit_Bounds(t *testing.T) {
	unit := func(size int) string {
		var sb strings.Builder
		for i := 0; i < size; i++ {
			sb.WriteRune(rune('a' + i%26))
			if i%26 == 25 {
				sb.WriteRune('0' + rune(i/26))
			}
		}
		return sb.String()
	}

	longest := unit(maxUnitLength - 2)
	assert.True(t, hasRepeatedUnit([]rune(strings.Repeat(longest, 3))))

	tooLong := unit(maxUnitLength * 2)
	assert.False(t, hasRepeatedUnit([]rune(strings.Repeat(tooLong, 3))))
}

// Thue-Morse text contains no unit repeated three times, so the scan runs to the end.
func TestHasRepeatedUnit_LargeInputIsLinear(t *testing.T) {
	const size = 1 << 20
	runes := make([]rune, size)
	for i := range runes {
		runes[i] = 'a' + rune(bits.OnesCount(uint(i))%2)
	}

	start := time.Now()
	found := hasRepeatedUnit(runes)
	elapsed := time.Since(start)

	assert.False(t, found)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestIsSpamOrOffensive(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{
			name:     "Promotional phrases",
			text:     "Buy now! Click here for a special offer",
			expected: true,
		},
		{
			name:     "Bare link",
			text:     "see www.example.com",
			expected: true,
		},
		{
			name:     "Crypto scam",
			text:     "Double your bitcoin in a week",
			expected: true,
		},
		{
			name:     "Mostly uppercase",
			text:     "THIS PRODUCT IS TERRIBLE AND SLOW",
			expected: true,
		},
		{
			name:     "Short uppercase is not shouting",
			text:     "API DOWN",
			expected: false,
		},
		{
			name:     "Offensive word",
			text:     "This update is stupid",
			expected: true,
		},
		{
			name:     "Legitimate bug report",
			text:     "The export button throws an error when the report is empty",
			expected: false,
		},
		{
			name:     "Repeated characters are not spam",
			text:     "aaaaaaaaaaaaaaaaaaaa",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSpamOrOffensive(tt.text))
		})
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		expectedLabel string
		expectedScore int
		expectUrgent  bool
	}{
		{
			name:          "Blocking production issue",
			text:          "The API rate limit of 1000/hr is blocking our production deployment, this is urgent",
			expectedLabel: models.SentimentNegative,
			expectedScore: -2,
			expectUrgent:  true,
		},
		{
			name:          "Enthusiastic praise",
			text:          "Great product, the support team was amazing and really helpful",
			expectedLabel: models.SentimentPositive,
			expectedScore: 3,
			expectUrgent:  false,
		},
		{
			name:          "Single positive word stays neutral",
			text:          "Thanks for the update",
			expectedLabel: models.SentimentNeutral,
			expectedScore: 0,
		},
		{
			name:          "Score clamped at minus three",
			text:          "broken and slow, another bug and error, this problem is frustrating",
			expectedLabel: models.SentimentNegative,
			expectedScore: -3,
			expectUrgent:  true,
		},
		{
			name:          "Empty text",
			text:          "",
			expectedLabel: models.SentimentNeutral,
			expectedScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AnalyzeSentiment(tt.text)
			assert.Equal(t, tt.expectedLabel, result.Label)
			assert.Equal(t, tt.expectedScore, result.Score)
			assert.Equal(t, tt.expectUrgent, result.IsUrgent)
		})
	}
}

func TestAnalyzeSentiment_ScoreBounds(t *testing.T) {
	texts := []string{
		strings.Repeat("great excellent amazing love awesome ", 5),
		strings.Repeat("bug error issue problem broken down slow fail ", 5),
		"neither here nor there",
	}

	for _, text := range texts {
		result := AnalyzeSentiment(text)
		assert.GreaterOrEqual(t, result.Score, -3)
		assert.LessOrEqual(t, result.Score, 3)
	}
}

func TestExtractThemes(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "API only",
			text:     "The API rate limit of 1000/hr is blocking our production deployment, this is urgent",
			expected: []string{"API"},
		},
		{
			name:     "Themes reported in rule order",
			text:     "Pricing is too expensive and the page is slow",
			expected: []string{"Performance", "Pricing"},
		},
		{
			name:     "Security and reliability",
			text:     "SSL certificate expired and the site went down",
			expected: []string{"Security", "Reliability"},
		},
		{
			name:     "No keywords",
			text:     "Hello there",
			expected: []string{models.ThemeGeneral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractThemes(tt.text))
		})
	}
}
