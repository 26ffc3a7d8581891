// Package cache memoizes successful remote analyses and remembers which source
// items have already been ingested.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fshasan/feedback-pulse/internal/models"
)

// AnalysisCache stores analyses keyed by Key
type AnalysisCache interface {
	GetAnalysis(ctx context.Context, key string) (*models.Analysis, bool, error)
	SetAnalysis(ctx context.Context, key string, analysis models.Analysis) error
}

// SeenSet records item IDs per source so repeated fetches don't produce duplicates
type SeenSet interface {
	IsSeen(ctx context.Context, source, id string) (bool, error)
	MarkSeen(ctx context.Context, source, id string) error
}

// Key derives a stable cache key from everything the analysis depends on.
// Map keys are sorted by encoding/json, so equal metadata yields equal keys.
func Key(item models.FeedbackItem) string {
	h := sha256.New()
	h.Write([]byte(item.Source))
	h.Write([]byte{0})
	h.Write([]byte(item.Content))
	h.Write([]byte{0})
	if len(item.Metadata) > 0 {
		if meta, err := json.Marshal(item.Metadata); err == nil {
			h.Write(meta)
		}
	}
	return "analysis:" + hex.EncodeToString(h.Sum(nil))
}
