package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fshasan/feedback-pulse/internal/models"
)

// MemoryRepository keeps records in process memory, newest first.
// Records are lost on restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []models.AnalyzedFeedback
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Save(_ context.Context, record models.AnalyzedFeedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].ID == record.ID {
			r.records = append(r.records[:i], r.records[i+1:]...)
			break
		}
	}

	r.records = append([]models.AnalyzedFeedback{record}, r.records...)
	return nil
}

func (r *MemoryRepository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.records {
		if r.records[i].ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) List(_ context.Context, query Query) (*Page, error) {
	q := query.Normalize()

	r.mu.RLock()
	var matched []models.AnalyzedFeedback
	for _, record := range r.records {
		if matches(record, q) {
			matched = append(matched, record)
		}
	}
	r.mu.RUnlock()

	sortRecords(matched, q.SortBy, q.Ascending)

	total := len(matched)
	start := min(q.offset(), total)
	end := min(start+q.Limit, total)

	return newPage(matched[start:end], q, total), nil
}

func (r *MemoryRepository) All(_ context.Context) ([]models.AnalyzedFeedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AnalyzedFeedback, len(r.records))
	copy(out, r.records)
	return out, nil
}

func (r *MemoryRepository) BySource(_ context.Context, source string) ([]models.AnalyzedFeedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.AnalyzedFeedback{}
	for _, record := range r.records {
		if record.Source == source {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

func matches(record models.AnalyzedFeedback, q Query) bool {
	if q.Source != "" && record.Source != q.Source {
		return false
	}
	if q.Sentiment != "" && record.Analysis.Sentiment != q.Sentiment {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(record.Title), needle) &&
			!strings.Contains(strings.ToLower(record.Content), needle) {
			return false
		}
	}
	return true
}

// sortRecords is stable, so equal keys keep their newest-first order.
func sortRecords(records []models.AnalyzedFeedback, sortBy string, ascending bool) {
	less := func(a, b models.AnalyzedFeedback) bool {
		switch sortBy {
		case SortValueScore:
			return a.Analysis.ValueScore < b.Analysis.ValueScore
		case SortUrgencyScore:
			return a.Analysis.UrgencyScore < b.Analysis.UrgencyScore
		case SortSentiment:
			return a.Analysis.Sentiment < b.Analysis.Sentiment
		default:
			return a.Timestamp.Before(b.Timestamp)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if ascending {
			return less(records[i], records[j])
		}
		return less(records[j], records[i])
	})
}
