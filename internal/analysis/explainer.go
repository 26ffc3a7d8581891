package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fshasan/feedback-pulse/internal/llm"
	"github.com/fshasan/feedback-pulse/internal/models"
)

const explanationSummaryDefault = "AI-generated analysis"

// Explainer narrates an existing analysis in plain language
type Explainer struct {
	remote
}

func NewExplainer(client llm.TextGenerationClient, timeout time.Duration) *Explainer {
	return &Explainer{remote: remote{client: client, timeout: timeout}}
}

// Explain returns template explanations when no model is configured. When a model
// is configured and both tiers fail, the error wraps ErrExplanationUnavailable.
func (e *Explainer) Explain(ctx context.Context, item models.FeedbackItem, analysis models.Analysis) (*models.Explanation, error) {
	if !e.available() {
		return TemplateExplanation(item, analysis), nil
	}

	raw, err := e.generateTiered(ctx, llm.Request{
		System:      explanationSystemPrompt,
		Prompt:      explanationPrompt(item, analysis),
		MaxTokens:   500,
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExplanationUnavailable, err)
	}

	return structureExplanation(raw, item, analysis), nil
}

// TemplateExplanation builds explanations from fixed sentence templates
func TemplateExplanation(item models.FeedbackItem, analysis models.Analysis) *models.Explanation {
	source := item.Source
	if source == "" {
		source = "an unknown source"
	}

	return &models.Explanation{
		Sentiment:    fmt.Sprintf("The sentiment is %s based on detected keywords.", analysis.Sentiment),
		ValueScore:   fmt.Sprintf("Value score of %s/10 based on source credibility and engagement.", formatScore(analysis.ValueScore)),
		UrgencyScore: fmt.Sprintf("Urgency score of %s/10 based on detected priority indicators.", formatScore(analysis.UrgencyScore)),
		Themes:       fmt.Sprintf("Themes identified: %s.", strings.Join(analysis.Themes, ", ")),
		Summary:      fmt.Sprintf("%s feedback from %s.", capitalize(analysis.Sentiment), source),
	}
}

// structureExplanation turns the model reply into an Explanation: a JSON object
// when one can be extracted, otherwise the first line mentioning each metric,
// otherwise consecutive slices of the raw text.
func structureExplanation(raw string, item models.FeedbackItem, analysis models.Analysis) *models.Explanation {
	if strings.TrimSpace(raw) == "" {
		return TemplateExplanation(item, analysis)
	}

	var fields map[string]interface{}
	if err := llm.ExtractJSON(llm.StripCodeFences(raw), &fields); err == nil {
		fallback := TemplateExplanation(item, analysis)
		return &models.Explanation{
			Sentiment:    orDefault(stringValue(fields["sentiment"]), fallback.Sentiment),
			ValueScore:   orDefault(stringValue(fields["valueScore"]), fallback.ValueScore),
			UrgencyScore: orDefault(stringValue(fields["urgencyScore"]), fallback.UrgencyScore),
			Themes:       orDefault(stringValue(fields["themes"]), fallback.Themes),
			Summary:      orDefault(stringValue(fields["summary"]), explanationSummaryDefault),
		}
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	runes := []rune(raw)
	slice := func(from, to int) string {
		if from >= len(runes) {
			return ""
		}
		if to < 0 || to > len(runes) {
			to = len(runes)
		}
		return string(runes[from:to])
	}
	find := func(keyword string) string {
		for _, line := range lines {
			if strings.Contains(strings.ToLower(line), keyword) {
				return line
			}
		}
		return ""
	}

	return &models.Explanation{
		Sentiment:    orDefault(find("sentiment"), slice(0, 150)),
		ValueScore:   orDefault(find("value"), slice(150, 300)),
		UrgencyScore: orDefault(find("urgency"), slice(300, 450)),
		Themes:       orDefault(find("theme"), slice(450, 600)),
		Summary:      orDefault(orDefault(find("summary"), slice(600, -1)), explanationSummaryDefault),
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
