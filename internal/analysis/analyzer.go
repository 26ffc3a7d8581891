package analysis

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/cache"
	"github.com/fshasan/feedback-pulse/internal/heuristics"
	"github.com/fshasan/feedback-pulse/internal/llm"
	"github.com/fshasan/feedback-pulse/internal/models"
	"github.com/fshasan/feedback-pulse/internal/scoring"
)

// Reasoning attached to analyses that did not come from the model
const (
	ReasoningRemoteDefault = "AI-generated analysis"
	ReasoningFallback      = "fallback analysis used"
	ReasoningError         = "error occurred, fallback analysis used"
)

// Analyzer produces the full Analysis for a feedback item
type Analyzer struct {
	remote
	cache cache.AnalysisCache
}

// NewAnalyzer creates an analyzer. client and analyses may be nil.
func NewAnalyzer(client llm.TextGenerationClient, analyses cache.AnalysisCache, timeout time.Duration) *Analyzer {
	return &Analyzer{
		remote: remote{client: client, timeout: timeout},
		cache:  analyses,
	}
}

// AnalyzeItem is Analyze over the fields of a FeedbackItem
func (a *Analyzer) AnalyzeItem(ctx context.Context, item models.FeedbackItem) models.Analysis {
	return a.Analyze(ctx, item.Content, item.Source, item.Metadata)
}

// Analyze classifies and scores content. Spam is caught before any remote call,
// and every remote failure falls back to the local pipeline.
func (a *Analyzer) Analyze(ctx context.Context, content, source string, metadata map[string]interface{}) models.Analysis {
	if heuristics.IsSpamOrOffensive(content) {
		return models.SpamAnalysis()
	}

	item := models.FeedbackItem{Source: source, Content: content, Metadata: metadata}
	if !a.available() {
		return scoring.Score(item)
	}

	key := cache.Key(item)
	if a.cache != nil {
		cached, found, err := a.cache.GetAnalysis(ctx, key)
		if err != nil {
			logrus.Warnf("Analysis cache lookup failed: %v", err)
		} else if found {
			logrus.Debugf("Analysis cache hit for %s", key)
			return *cached
		}
	}

	raw, err := a.generateTiered(ctx, llm.Request{
		System:      analysisSystemPrompt,
		Prompt:      analysisPrompt(content, source, metadata),
		MaxTokens:   800,
		Temperature: 0.3,
	})
	if err != nil {
		logrus.Warnf("Analysis model calls failed, using local pipeline: %v", err)
		return localWithReasoning(item, ReasoningError)
	}

	var fields map[string]interface{}
	if err := llm.ExtractJSON(llm.StripCodeFences(raw), &fields); err != nil {
		logrus.Warnf("Unusable analysis reply, using local pipeline: %v", err)
		return localWithReasoning(item, ReasoningFallback)
	}

	result := normalizeAnalysis(fields)

	if a.cache != nil {
		if err := a.cache.SetAnalysis(ctx, key, result); err != nil {
			logrus.Warnf("Failed to cache analysis: %v", err)
		}
	}

	return result
}

func localWithReasoning(item models.FeedbackItem, reasoning string) models.Analysis {
	analysis := scoring.Score(item)
	analysis.Reasoning = reasoning
	return analysis
}

// normalizeAnalysis coerces a model reply into a well-formed Analysis
func normalizeAnalysis(fields map[string]interface{}) models.Analysis {
	themes := normalizeThemes(fields["themes"])

	spam := truthy(fields["isSpam"])
	for _, theme := range themes {
		if strings.Contains(strings.ToLower(theme), "spam") {
			spam = true
		}
	}

	reasoning := stringValue(fields["reasoning"])
	if reasoning == "" {
		reasoning = ReasoningRemoteDefault
	}

	analysis := models.Analysis{
		Sentiment:      stringValue(fields["sentiment"]),
		SentimentScore: int(clamp(math.Round(scoring.Number(fields, "sentimentScore")), -3, 3)),
		Themes:         themes,
		ValueScore:     scoring.Number(fields, "valueScore"),
		UrgencyScore:   scoring.Number(fields, "urgencyScore"),
		IsUrgent:       truthy(fields["isUrgent"]),
		IsMeaningless:  false,
		IsSpam:         spam,
		Reasoning:      reasoning,
	}
	return analysis.Normalize()
}

// A single string becomes a one-element list; blanks are dropped.
func normalizeThemes(v interface{}) []string {
	var themes []string
	switch t := v.(type) {
	case []interface{}:
		for _, entry := range t {
			if s := stringValue(entry); s != "" {
				themes = append(themes, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			themes = append(themes, s)
		}
	}
	return themes
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
