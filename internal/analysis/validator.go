package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/heuristics"
	"github.com/fshasan/feedback-pulse/internal/llm"
	"github.com/fshasan/feedback-pulse/internal/models"
)

// Local validation reasons
const (
	ReasonSpam        = "Content appears to be spam or offensive"
	ReasonMeaningless = "Feedback contains repetitive patterns or lacks coherent meaning"
	ReasonMeaningful  = "Feedback appears meaningful"
	ReasonUnknown     = "Unable to determine meaning"
)

const reasonPrefixLength = 150

// Validator decides whether a piece of text is worth storing as feedback
type Validator struct {
	remote
}

func NewValidator(client llm.TextGenerationClient, timeout time.Duration) *Validator {
	return &Validator{remote: remote{client: client, timeout: timeout}}
}

// Validate never fails: every remote problem degrades to the local verdict.
func (v *Validator) Validate(ctx context.Context, content string) models.ValidationResult {
	if !v.available() {
		return LocalValidation(content)
	}

	raw, err := v.generate(ctx, llm.Request{
		Tier:        llm.TierFast,
		System:      validationSystemPrompt,
		Prompt:      validationPrompt(content),
		MaxTokens:   250,
		Temperature: 0.2,
	})
	if err != nil {
		logrus.Warnf("Validation model call failed, using local rules: %v", err)
		return LocalValidation(content)
	}

	return parseValidation(raw)
}

// LocalValidation is the rule-based verdict. Spam always counts as meaningless.
func LocalValidation(content string) models.ValidationResult {
	isSpam := heuristics.IsSpamOrOffensive(content)
	isMeaningless := heuristics.IsMeaninglessText(content) || isSpam

	reason := ReasonMeaningful
	switch {
	case isSpam:
		reason = ReasonSpam
	case isMeaningless:
		reason = ReasonMeaningless
	}

	return models.ValidationResult{
		IsMeaningless: isMeaningless,
		IsSpam:        isSpam,
		Reason:        reason,
	}
}

// parseValidation reads the model verdict; when no JSON can be extracted the raw
// text is scanned for verdict keywords instead.
func parseValidation(raw string) models.ValidationResult {
	var fields map[string]interface{}
	if err := llm.ExtractJSON(raw, &fields); err == nil {
		isSpam := truthy(fields["isSpam"])
		return models.ValidationResult{
			IsMeaningless: truthy(fields["isMeaningless"]) || isSpam,
			IsSpam:        isSpam,
			Reason:        stringValue(fields["reason"]),
		}
	}

	logrus.Debug("Validation reply had no JSON, scanning text for a verdict")

	lower := strings.ToLower(raw)
	isSpam := containsAny(lower, "spam", "irrelevant", "offensive", "inappropriate")
	isMeaningless := containsAny(lower, "meaningless", "gibberish", "nonsense") || isSpam

	reason := truncate(raw, reasonPrefixLength)
	if strings.TrimSpace(reason) == "" {
		reason = ReasonUnknown
	}

	return models.ValidationResult{
		IsMeaningless: isMeaningless,
		IsSpam:        isSpam,
		Reason:        reason,
	}
}
