// Package scoring turns source metadata and sentiment signals into the bounded
// value and urgency scores attached to every analysis.
package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/fshasan/feedback-pulse/internal/heuristics"
	"github.com/fshasan/feedback-pulse/internal/models"
)

const (
	maxEngagement = 5.0
	urgencyBoost  = 3.0
	maxScore      = 10.0
)

// Source credibility (enterprise channels > public ones)
var sourceWeights = map[string]float64{
	models.SourceSupport: 3,
	models.SourceEmail:   2.5,
	models.SourceGitHub:  2,
	models.SourceDiscord: 1.5,
	models.SourceTwitter: 1,
	models.SourceForum:   1,
}

const defaultSourceWeight = 1.0

// Quantized urgency levels
const (
	UrgencyLow      = 2.0
	UrgencyNegative = 5.0
	UrgencyHigh     = 8.0
	UrgencyCritical = 10.0
)

// ValueScore estimates how important an item is to act on, in [0, 10] with one decimal.
func ValueScore(item models.FeedbackItem) float64 {
	sentiment := heuristics.AnalyzeSentiment(item.Content)
	return valueScore(item, sentiment)
}

func valueScore(item models.FeedbackItem, sentiment heuristics.SentimentResult) float64 {
	score := engagement(item.Source, item.Metadata)

	if sentiment.IsUrgent || priority(item.Metadata) == "high" {
		score += urgencyBoost
	}

	score += SourceWeight(item.Source)

	return math.Min(math.Round(score*10)/10, maxScore)
}

// SourceWeight returns the credibility weight of a source; unknown sources weigh 1.
func SourceWeight(source string) float64 {
	if weight, ok := sourceWeights[source]; ok {
		return weight
	}
	return defaultSourceWeight
}

func engagement(source string, metadata map[string]interface{}) float64 {
	switch source {
	case models.SourceTwitter:
		total := Number(metadata, "likes") + Number(metadata, "retweets")*2
		return capEngagement(total / 10)
	case models.SourceGitHub:
		total := Number(metadata, "upvotes") + Number(metadata, "comments")*2
		return capEngagement(total / 10)
	case models.SourceDiscord:
		return capEngagement(Number(metadata, "reactions") / 5)
	default:
		return 0
	}
}

// Counters are never negative in practice; a malformed one must not pull the score below 0.
func capEngagement(v float64) float64 {
	return math.Max(0, math.Min(v, maxEngagement))
}

// UrgencyScore quantizes urgency to one of 2, 5, 8 or 10.
func UrgencyScore(sentiment heuristics.SentimentResult, metadata map[string]interface{}) float64 {
	p := priority(metadata)
	if sentiment.IsUrgent || p == "high" {
		if p == "critical" {
			return UrgencyCritical
		}
		return UrgencyHigh
	}
	if sentiment.Label == models.SentimentNegative {
		return UrgencyNegative
	}
	return UrgencyLow
}

// Score runs the full local pipeline for one item: sentiment, themes, value and urgency.
func Score(item models.FeedbackItem) models.Analysis {
	sentiment := heuristics.AnalyzeSentiment(item.Content)
	return models.Analysis{
		Sentiment:      sentiment.Label,
		SentimentScore: sentiment.Score,
		Themes:         heuristics.ExtractThemes(item.Content),
		ValueScore:     valueScore(item, sentiment),
		UrgencyScore:   UrgencyScore(sentiment, item.Metadata),
		IsUrgent:       sentiment.IsUrgent,
		IsMeaningless:  heuristics.IsMeaninglessText(item.Content),
	}
}

func priority(metadata map[string]interface{}) string {
	if metadata == nil {
		return ""
	}
	p, _ := metadata["priority"].(string)
	return strings.ToLower(strings.TrimSpace(p))
}

// Number reads a numeric metadata counter, accepting any JSON numeric shape.
// Missing or non-numeric values read as 0.
func Number(metadata map[string]interface{}, key string) float64 {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}
