// Package analysis holds the three model-backed strategies: validation, analysis
// and explanation. Each one degrades to the local heuristics when the remote
// service is unavailable or misbehaves.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/llm"
)

// ErrExplanationUnavailable is returned when both model tiers fail to explain an analysis
var ErrExplanationUnavailable = errors.New("explanation unavailable")

// remote runs requests against the text generation client with a per-call timeout
type remote struct {
	client  llm.TextGenerationClient
	timeout time.Duration
}

func (r remote) available() bool {
	return r.client != nil
}

func (r remote) generate(ctx context.Context, req llm.Request) (string, error) {
	if r.client == nil {
		return "", llm.ErrUnavailable
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.client.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s %s model: %w", r.client.Name(), req.Tier, err)
	}
	return text, nil
}

// generateTiered tries the primary tier and, on a call failure, the fast tier once.
func (r remote) generateTiered(ctx context.Context, req llm.Request) (string, error) {
	req.Tier = llm.TierPrimary
	text, err := r.generate(ctx, req)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, llm.ErrUnavailable) {
		return "", err
	}

	logrus.Warnf("Primary model failed, retrying with fast model: %v", err)
	req.Tier = llm.TierFast
	return r.generate(ctx, req)
}

func truthy(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(strings.TrimSpace(b), "true")
	case float64:
		return b != 0
	default:
		return false
	}
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case []interface{}:
		parts := make([]string, 0, len(s))
		for _, entry := range s {
			if part := stringValue(entry); part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
