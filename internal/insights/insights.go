// Package insights aggregates analyzed feedback into a triage report.
package insights

import (
	"errors"
	"math"
	"sort"

	"github.com/fshasan/feedback-pulse/internal/models"
)

// ErrEmptyBatch is returned when there is nothing to aggregate
var ErrEmptyBatch = errors.New("no feedback to aggregate")

const (
	// HighUrgencyThreshold is the urgency at or above which an item counts as high urgency
	HighUrgencyThreshold = 7.0
	// TopIssueMinValue is the minimum value score of a negative item to be a top issue
	TopIssueMinValue = 5.0
	maxTopIssues     = 5
)

// Aggregate builds the insights report for a batch. Top issues are the negative
// items with value of at least 5, highest value first, ties kept in input order.
func Aggregate(items []models.AnalyzedFeedback) (*models.InsightsReport, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}

	report := &models.InsightsReport{
		Total:    len(items),
		BySource: make(map[string]int),
		BySentiment: map[string]int{
			models.SentimentPositive: 0,
			models.SentimentNegative: 0,
			models.SentimentNeutral:  0,
		},
		ByTheme:   make(map[string]int),
		TopIssues: []models.TopIssue{},
	}

	var totalValue float64
	var candidates []models.AnalyzedFeedback

	for _, item := range items {
		report.BySource[item.Source]++
		report.BySentiment[item.Analysis.Sentiment]++
		for _, theme := range item.Analysis.Themes {
			report.ByTheme[theme]++
		}

		totalValue += item.Analysis.ValueScore

		if item.Analysis.UrgencyScore >= HighUrgencyThreshold {
			report.HighUrgencyCount++
		}

		if item.Analysis.Sentiment == models.SentimentNegative && item.Analysis.ValueScore >= TopIssueMinValue {
			candidates = append(candidates, item)
		}
	}

	report.AverageValueScore = math.Round(totalValue/float64(len(items))*10) / 10

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Analysis.ValueScore > candidates[j].Analysis.ValueScore
	})
	if len(candidates) > maxTopIssues {
		candidates = candidates[:maxTopIssues]
	}

	for _, item := range candidates {
		report.TopIssues = append(report.TopIssues, models.TopIssue{
			ID:           item.ID,
			Title:        item.Title,
			Source:       item.Source,
			ValueScore:   item.Analysis.ValueScore,
			UrgencyScore: item.Analysis.UrgencyScore,
			Themes:       item.Analysis.Themes,
		})
	}

	return report, nil
}

// Urgent returns the items at or above threshold urgency, most urgent first
func Urgent(items []models.AnalyzedFeedback, threshold float64) []models.TopIssue {
	var urgent []models.AnalyzedFeedback
	for _, item := range items {
		if !item.Analysis.IsSpam && item.Analysis.UrgencyScore >= threshold {
			urgent = append(urgent, item)
		}
	}

	sort.SliceStable(urgent, func(i, j int) bool {
		return urgent[i].Analysis.UrgencyScore > urgent[j].Analysis.UrgencyScore
	})

	issues := make([]models.TopIssue, 0, len(urgent))
	for _, item := range urgent {
		issues = append(issues, models.TopIssue{
			ID:           item.ID,
			Title:        item.Title,
			Source:       item.Source,
			ValueScore:   item.Analysis.ValueScore,
			UrgencyScore: item.Analysis.UrgencyScore,
			Themes:       item.Analysis.Themes,
		})
	}
	return issues
}
