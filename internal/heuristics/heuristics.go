// Package heuristics holds the keyword and pattern rules used to classify feedback
// text when no remote model is available. Every function is pure and total.
package heuristics

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fshasan/feedback-pulse/internal/models"
)

// SentimentResult is the outcome of the keyword sentiment pass
type SentimentResult struct {
	Label    string
	Score    int
	IsUrgent bool
}

var (
	positiveWords = []string{
		"great", "excellent", "amazing", "love", "thank", "awesome",
		"fantastic", "perfect", "helpful", "saved", "game changer",
	}
	negativeWords = []string{
		"bug", "error", "issue", "problem", "frustrating", "broken", "down",
		"slow", "fail", "urgent", "blocker", "blocking", "steep",
	}
	urgentWords = []string{
		"urgent", "critical", "blocking", "down", "broken", "asap", "immediately", "production",
	}
)

type themeRule struct {
	name     string
	keywords []string
}

// Order matters: it is the order themes are reported in.
var themeRules = []themeRule{
	{"Performance", []string{"slow", "latency", "speed", "performance", "loading", "response time", "fast"}},
	{"API", []string{"api", "endpoint", "rate limit", "request", "rest", "graphql"}},
	{"Pricing", []string{"price", "cost", "billing", "afford", "expensive", "pricing"}},
	{"Security", []string{"ssl", "certificate", "ddos", "attack", "security", "saml", "sso"}},
	{"Documentation", []string{"documentation", "docs", "guide", "tutorial", "example"}},
	{"Features", []string{"feature", "request", "missing", "add", "support", "integration"}},
	{"Bugs", []string{"bug", "error", "issue", "broken", "leak", "crash"}},
	{"Reliability", []string{"downtime", "outage", "fail", "down", "unavailable"}},
}

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)buy now|click here|limited time|act now|special offer`),
	regexp.MustCompile(`(?i)free money|make money|get rich|work from home`),
	regexp.MustCompile(`(?i)viagra|cialis|pharmacy|pills|medication`),
	regexp.MustCompile(`(?i)casino|poker|betting|lottery|jackpot`),
	regexp.MustCompile(`(?i)bitcoin|crypto|investment|trading|forex`),
	regexp.MustCompile(`(?i)http://|https://|www\.`),
	regexp.MustCompile(`(?i)click|link|website|visit|promo`),
}

var offensiveWords = []string{
	"fuck", "shit", "damn", "bitch", "asshole", "bastard",
	"idiot", "stupid", "dumb", "retard", "moron",
}

// IsMeaninglessText reports whether text looks like gibberish: a repeated run of
// the same 2+ character unit, one word dominating the text, or a long text built
// from a handful of distinct characters.
func IsMeaninglessText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if hasRepeatedUnit([]rune(trimmed)) {
		return true
	}

	words := strings.Fields(strings.ToLower(trimmed))
	counts := make(map[string]int, len(words))
	maxCount := 0
	for _, word := range words {
		counts[word]++
		if counts[word] > maxCount {
			maxCount = counts[word]
		}
	}
	if len(words) > 3 && maxCount*2 > len(words) {
		return true
	}

	distinct := make(map[rune]struct{})
	for _, r := range strings.ToLower(trimmed) {
		if unicode.IsSpace(r) {
			continue
		}
		distinct[r] = struct{}{}
	}
	return len(distinct) < 5 && utf8.RuneCountInString(trimmed) > 20
}

// Longest unit hasRepeatedUnit looks for. Keeps the scan linear in the text length.
const maxUnitLength = 64

// hasRepeatedUnit reports whether some unit of two to maxUnitLength characters occurs
// at least three times back to back. A unit never spans a line break.
func hasRepeatedUnit(runes []rune) bool {
	n := len(runes)
	for size := 2; size <= maxUnitLength && size*3 <= n; size++ {
		run := 0
		for j := 0; j+size < n; j++ {
			if runes[j] == runes[j+size] && !isLineBreak(runes[j]) {
				run++
				if run >= 2*size {
					return true
				}
			} else {
				run = 0
			}
		}
	}
	return false
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

// IsSpamOrOffensive reports whether text is promotional, a scam, a bare link, shouty
// or offensive. Callers consult it before any other classification.
func IsSpamOrOffensive(text string) bool {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, pattern := range spamPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}

	length := utf8.RuneCountInString(trimmed)
	if length > 20 {
		upper := 0
		for _, r := range trimmed {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if upper*2 > length {
			return true
		}
	}

	for _, word := range offensiveWords {
		if strings.Contains(lower, word) {
			return true
		}
	}

	return false
}

// AnalyzeSentiment scores text against the positive and negative vocabularies.
// Matching is substring containment, so "bugs" counts as "bug".
func AnalyzeSentiment(text string) SentimentResult {
	lower := strings.ToLower(text)

	score := 0
	for _, word := range positiveWords {
		if strings.Contains(lower, word) {
			score++
		}
	}
	for _, word := range negativeWords {
		if strings.Contains(lower, word) {
			score--
		}
	}

	isUrgent := containsAny(lower, urgentWords)

	switch {
	case score > 1:
		return SentimentResult{Label: models.SentimentPositive, Score: min(score, 3), IsUrgent: isUrgent}
	case score < -1:
		return SentimentResult{Label: models.SentimentNegative, Score: max(score, -3), IsUrgent: isUrgent}
	default:
		return SentimentResult{Label: models.SentimentNeutral, Score: 0, IsUrgent: isUrgent}
	}
}

// ExtractThemes returns every theme whose keywords appear in text, or "General".
func ExtractThemes(text string) []string {
	lower := strings.ToLower(text)

	var themes []string
	for _, rule := range themeRules {
		if containsAny(lower, rule.keywords) {
			themes = append(themes, rule.name)
		}
	}

	if len(themes) == 0 {
		return []string{models.ThemeGeneral}
	}
	return themes
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
