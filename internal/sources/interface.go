package sources

import (
	"context"
	"time"

	"github.com/fshasan/feedback-pulse/internal/models"
)

// Source interface defines the contract for all feedback sources
type Source interface {
	GetName() string
	Fetch(ctx context.Context, since time.Duration) ([]models.FeedbackItem, error)
	IsEnabled() bool
}

const (
	userAgent    = "feedback-pulse/1.0"
	titleMaxLen  = 80
	requestLimit = 100
)

func deduplicate(items []models.FeedbackItem) []models.FeedbackItem {
	seen := make(map[string]bool)
	var unique []models.FeedbackItem

	for _, item := range items {
		if !seen[item.ID] {
			seen[item.ID] = true
			unique = append(unique, item)
		}
	}

	return unique
}

// titleFromText uses the first line of a body as its title
func titleFromText(text string) string {
	line := text
	for i, r := range text {
		if r == '\n' {
			line = text[:i]
			break
		}
	}

	runes := []rune(line)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen-3]) + "..."
	}
	return line
}
