// Package storage keeps analyzed feedback records and answers the list queries
// behind the feedback API.
package storage

import (
	"context"
	"strings"

	"github.com/fshasan/feedback-pulse/internal/models"
)

// Repository defines the contract for feedback persistence
type Repository interface {
	// Save stores a record, replacing any record with the same ID
	Save(ctx context.Context, record models.AnalyzedFeedback) error
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, query Query) (*Page, error)
	// All returns every record, newest first
	All(ctx context.Context) ([]models.AnalyzedFeedback, error)
	BySource(ctx context.Context, source string) ([]models.AnalyzedFeedback, error)
	Close() error
}

// Sort keys accepted by List
const (
	SortTimestamp    = "timestamp"
	SortValueScore   = "value_score"
	SortUrgencyScore = "urgency_score"
	SortSentiment    = "sentiment"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	filterAll    = "all"
)

// Query selects one page of records. Zero values mean "no filter" / defaults.
type Query struct {
	Page      int
	Limit     int
	Source    string
	Sentiment string
	Search    string
	SortBy    string
	Ascending bool
}

// Normalize applies defaults and bounds; "all" filters are cleared.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Source == filterAll {
		q.Source = ""
	}
	if q.Sentiment == filterAll {
		q.Sentiment = ""
	}
	q.Search = strings.TrimSpace(q.Search)

	switch q.SortBy {
	case SortTimestamp, SortValueScore, SortUrgencyScore, SortSentiment:
	default:
		q.SortBy = SortTimestamp
	}
	return q
}

func (q Query) offset() int {
	return (q.Page - 1) * q.Limit
}

// Pagination describes where a page sits in the full result set
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"totalCount"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Page is one page of records
type Page struct {
	Data       []models.AnalyzedFeedback `json:"data"`
	Pagination Pagination                `json:"pagination"`
}

func newPage(data []models.AnalyzedFeedback, q Query, total int) *Page {
	if data == nil {
		data = []models.AnalyzedFeedback{}
	}
	return &Page{
		Data: data,
		Pagination: Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			TotalCount: total,
			TotalPages: (total + q.Limit - 1) / q.Limit,
			HasNext:    q.Page*q.Limit < total,
			HasPrev:    q.Page > 1,
		},
	}
}
