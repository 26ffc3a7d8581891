package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fshasan/feedback-pulse/internal/models"
)

const validationSystemPrompt = "You are a feedback validation assistant. Analyze text and determine if it has meaningful content, is spam, or offensive. " +
	"Always respond with valid JSON only. Be strict about spam and offensive content: classify as spam if irrelevant, promotional, or off-topic. " +
	"Classify as offensive if it contains hate speech, harassment, or inappropriate language."

const analysisSystemPrompt = "You are an expert product feedback analyst. Always respond with valid JSON only. Analyze feedback contextually and accurately."

const explanationSystemPrompt = "You are a product feedback analyst. Provide clear, concise explanations for feedback analysis metrics."

func validationPrompt(content string) string {
	return fmt.Sprintf(`Analyze this feedback text and determine if it's:
1. Meaningful feedback (valid product feedback)
2. Meaningless/gibberish (repetitive patterns, nonsense)
3. Spam (irrelevant content, promotional material, off-topic)
4. Offensive (inappropriate language, hate speech, harassment)

Feedback: %q

Respond with JSON only:
{
  "isMeaningless": true/false,
  "isSpam": true/false,
  "reason": "brief explanation why"
}

Examples:
- Meaningless: "dasdasdasd", "asdfasdfasdf", repetitive patterns
- Spam: promotional content, irrelevant topics, advertising
- Offensive: hate speech, harassment, inappropriate language
- Valid: actual product feedback, feature requests, bug reports`, content)
}

func analysisPrompt(content, source string, metadata map[string]interface{}) string {
	meta := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			meta = string(b)
		}
	}

	return fmt.Sprintf(`Analyze the following product feedback.

Feedback Content: %q
Source: %s
Metadata: %s

Respond with a JSON object:
{
  "sentiment": "positive" | "negative" | "neutral" (based on actual context, not just keywords),
  "sentimentScore": number between -3 and 3,
  "themes": ["relevant", "themes"] (e.g. Performance, API, Pricing, Security, Documentation, Features, Bugs, Reliability),
  "valueScore": number between 0 and 10 (how valuable this feedback is for the product team),
  "urgencyScore": number between 0 and 10 (0 = not urgent, 10 = critical),
  "isUrgent": boolean,
  "isSpam": boolean,
  "reasoning": "brief explanation of your analysis"
}

Consider context, not just keywords. Urgency should reflect whether this blocks users or needs immediate attention.
Respond with ONLY valid JSON, no other text.`, content, source, meta)
}

func explanationPrompt(item models.FeedbackItem, analysis models.Analysis) string {
	return fmt.Sprintf(`Analyze this feedback and provide clear explanations for each metric:

Feedback: %q
Source: %s
Sentiment: %s (score: %d)
Value Score: %s/10
Urgency Score: %s/10
Themes: %s

Provide a JSON response with explanations:
{
  "sentiment": "why this sentiment was assigned",
  "valueScore": "how the value score was reached",
  "urgencyScore": "why the urgency score fits",
  "themes": "why these themes were identified",
  "summary": "overall summary of the feedback"
}`,
		item.Content, item.Source, analysis.Sentiment, analysis.SentimentScore,
		formatScore(analysis.ValueScore), formatScore(analysis.UrgencyScore),
		strings.Join(analysis.Themes, ", "))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
