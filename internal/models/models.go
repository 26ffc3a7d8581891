package models

import (
	"math"
	"strings"
	"time"
)

// Sentiment labels
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Known feedback sources. The set is open-ended; anything else is treated as an unknown source.
const (
	SourceSupport = "support"
	SourceDiscord = "discord"
	SourceGitHub  = "github"
	SourceTwitter = "twitter"
	SourceEmail   = "email"
	SourceForum   = "forum"
)

const (
	ThemeGeneral = "General"
	ThemeSpam    = "Spam"
)

// SpamReasoning is the fixed reasoning attached to every spam analysis
const SpamReasoning = "content classified as spam or offensive; analysis skipped but record stored"

// FeedbackItem is a single piece of feedback as received from a source
type FeedbackItem struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"` // "support", "discord", "github", etc.
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Author    string                 `json:"author"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata"` // priority, engagement counters, labels
}

// Analysis is the normalized result of classifying and scoring one FeedbackItem
type Analysis struct {
	Sentiment      string   `json:"sentiment"`
	SentimentScore int      `json:"sentimentScore"` // -3..3
	Themes         []string `json:"themes"`
	ValueScore     float64  `json:"valueScore"`   // 0..10, one decimal
	UrgencyScore   float64  `json:"urgencyScore"` // 0..10
	IsUrgent       bool     `json:"isUrgent"`
	IsMeaningless  bool     `json:"isMeaningless"`
	IsSpam         bool     `json:"isSpam"`
	Reasoning      string   `json:"reasoning,omitempty"`
}

// SpamAnalysis returns the canonical analysis for spam or offensive content
func SpamAnalysis() Analysis {
	return Analysis{
		Sentiment:      SentimentNeutral,
		SentimentScore: 0,
		Themes:         []string{ThemeSpam},
		ValueScore:     0,
		UrgencyScore:   0,
		IsSpam:         true,
		Reasoning:      SpamReasoning,
	}
}

// Normalize returns a copy of a that satisfies the Analysis bounds: spam collapses to
// SpamAnalysis, scores are clamped, the sentiment label is one of the known three and
// themes are never empty.
func (a Analysis) Normalize() Analysis {
	if a.IsSpam {
		return SpamAnalysis()
	}

	switch label := strings.ToLower(strings.TrimSpace(a.Sentiment)); label {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		a.Sentiment = label
	default:
		a.Sentiment = SentimentNeutral
	}

	if a.SentimentScore > 3 {
		a.SentimentScore = 3
	} else if a.SentimentScore < -3 {
		a.SentimentScore = -3
	}

	a.ValueScore = math.Round(boundScore(a.ValueScore)*10) / 10
	a.UrgencyScore = boundScore(a.UrgencyScore)

	themes := make([]string, 0, len(a.Themes))
	for _, theme := range a.Themes {
		if theme = strings.TrimSpace(theme); theme != "" {
			themes = append(themes, theme)
		}
	}
	if len(themes) == 0 {
		themes = []string{ThemeGeneral}
	}
	a.Themes = themes

	return a
}

func boundScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(10, v))
}

// AnalyzedFeedback is the record kept by the store: a feedback item and its analysis
type AnalyzedFeedback struct {
	FeedbackItem
	Analysis Analysis `json:"analysis"`
}

// ValidationResult tells whether a piece of text is worth storing as feedback
type ValidationResult struct {
	IsMeaningless bool   `json:"isMeaningless"`
	IsSpam        bool   `json:"isSpam"`
	Reason        string `json:"reason"`
}

// Explanation narrates an already-computed Analysis
type Explanation struct {
	Sentiment    string `json:"sentiment"`
	ValueScore   string `json:"valueScore"`
	UrgencyScore string `json:"urgencyScore"`
	Themes       string `json:"themes"`
	Summary      string `json:"summary,omitempty"`
}

// TopIssue is a high-value negative item surfaced by the insights report
type TopIssue struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Source       string   `json:"source"`
	ValueScore   float64  `json:"valueScore"`
	UrgencyScore float64  `json:"urgencyScore"`
	Themes       []string `json:"themes"`
}

// InsightsReport aggregates a batch of analyzed feedback
type InsightsReport struct {
	Total             int            `json:"total"`
	BySource          map[string]int `json:"bySource"`
	BySentiment       map[string]int `json:"bySentiment"`
	ByTheme           map[string]int `json:"byTheme"`
	AverageValueScore float64        `json:"averageValueScore"`
	HighUrgencyCount  int            `json:"highUrgencyCount"`
	TopIssues         []TopIssue     `json:"topIssues"`
}

// Report represents a periodic insights report sent to the product team
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Period      string          `json:"period"` // "daily" or "weekly"
	Insights    *InsightsReport `json:"insights"`
	Urgent      []TopIssue      `json:"urgent,omitempty"`
}

// Alert represents an urgent notification about a single feedback item
type Alert struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"` // "critical", "urgent"
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Feedback  *AnalyzedFeedback `json:"feedback,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
