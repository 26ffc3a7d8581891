package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fshasan/feedback-pulse/internal/analysis"
	"github.com/fshasan/feedback-pulse/internal/archive"
	"github.com/fshasan/feedback-pulse/internal/config"
	"github.com/fshasan/feedback-pulse/internal/fixtures"
	"github.com/fshasan/feedback-pulse/internal/llm"
	"github.com/fshasan/feedback-pulse/internal/models"
	"github.com/fshasan/feedback-pulse/internal/storage"
)

// fakeOps stores records straight into the repository
type fakeOps struct {
	mock.Mock
	repo     storage.Repository
	analyzer *analysis.Analyzer
}

func (f *fakeOps) Ingest(ctx context.Context, item models.FeedbackItem, a *models.Analysis) (*models.AnalyzedFeedback, error) {
	record := models.AnalyzedFeedback{FeedbackItem: item}
	if a != nil {
		record.Analysis = a.Normalize()
	} else {
		record.Analysis = f.analyzer.AnalyzeItem(ctx, item)
	}
	if err := f.repo.Save(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (f *fakeOps) RunIngestion(ctx context.Context) error {
	args := f.Called(ctx)
	return args.Error(0)
}

func (f *fakeOps) RunReport(ctx context.Context) error {
	args := f.Called(ctx)
	return args.Error(0)
}

func (f *fakeOps) GetMetrics() string {
	return `{"total_ingested":0}`
}

func (f *fakeOps) Snapshots(ctx context.Context) ([]string, error) {
	args := f.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (f *fakeOps) Snapshot(ctx context.Context, name string) ([]byte, error) {
	args := f.Called(ctx, name)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// failingClient always errors, exercising the remote failure paths
type failingClient struct{}

func (failingClient) Generate(context.Context, llm.Request) (string, error) {
	return "", errors.New("model offline")
}

func (failingClient) Name() string { return "failing" }

type testEnv struct {
	router http.Handler
	repo   *storage.MemoryRepository
	ops    *fakeOps
}

func newTestEnv(t *testing.T, client llm.TextGenerationClient) *testEnv {
	t.Helper()
	repo := storage.NewMemoryRepository()
	analyzer := analysis.NewAnalyzer(client, nil, time.Second)
	ops := &fakeOps{repo: repo, analyzer: analyzer}

	cfg := &config.Config{Port: "8080", AllowedOrigins: []string{"*"}}
	server := NewServer(cfg, repo, analysis.NewValidator(client, time.Second), analyzer,
		analysis.NewExplainer(client, time.Second), ops)

	return &testEnv{router: server.Router(), repo: repo, ops: ops}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	_, err := fixtures.Seed(context.Background(), e.repo, time.Now())
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestSaveFeedback(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/feedback/save", map[string]interface{}{
		"source":  "support",
		"title":   "Checkout broken",
		"content": "The checkout page is broken and blocking sales",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp saveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.ID)

	all, err := env.repo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, resp.ID, all[0].ID)
	assert.Equal(t, "Anonymous", all[0].Author)
	assert.False(t, all[0].Timestamp.IsZero())
	assert.Equal(t, float64(8), all[0].Analysis.UrgencyScore)
}

func TestSaveFeedback_KeepsSuppliedAnalysis(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/feedback/save", map[string]interface{}{
		"id":       "SPAM-1",
		"source":   "email",
		"content":  "click here for free money",
		"author":   "bot",
		"analysis": models.SpamAnalysis(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	all, err := env.repo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "SPAM-1", all[0].ID)
	assert.True(t, all[0].Analysis.IsSpam)
}

func TestSaveFeedback_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "Missing content", body: map[string]string{"source": "email"}},
		{name: "Not an object", body: []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/feedback/save", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListFeedback(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t)

	tests := []struct {
		name       string
		query      string
		wantCount  int
		wantTotal  int
		wantPages  int
		wantNext   bool
		checkFirst func(t *testing.T, first models.AnalyzedFeedback)
	}{
		{name: "Defaults", query: "", wantCount: 10, wantTotal: 16, wantPages: 2, wantNext: true},
		{name: "Second page", query: "?page=2", wantCount: 6, wantTotal: 16, wantPages: 2},
		{name: "Limit capped", query: "?limit=500", wantCount: 16, wantTotal: 16, wantPages: 1},
		{name: "Source filter", query: "?source=github", wantCount: 3, wantTotal: 3, wantPages: 1},
		{name: "All means no filter", query: "?source=all&sentiment=all&limit=100", wantCount: 16, wantTotal: 16, wantPages: 1},
		{name: "Case-insensitive search", query: "?search=DDOS", wantCount: 1, wantTotal: 1, wantPages: 1},
		{
			name: "Sort by urgency descending", query: "?sortBy=urgency_score&limit=1",
			wantCount: 1, wantTotal: 16, wantPages: 16, wantNext: true,
			checkFirst: func(t *testing.T, first models.AnalyzedFeedback) {
				assert.Equal(t, float64(8), first.Analysis.UrgencyScore)
			},
		},
		{
			name: "Newest first by default", query: "?limit=1",
			wantCount: 1, wantTotal: 16, wantPages: 16, wantNext: true,
			checkFirst: func(t *testing.T, first models.AnalyzedFeedback) {
				assert.Equal(t, "DC-002", first.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/feedback"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var page storage.Page
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
			assert.Len(t, page.Data, tt.wantCount)
			assert.Equal(t, tt.wantTotal, page.Pagination.TotalCount)
			assert.Equal(t, tt.wantPages, page.Pagination.TotalPages)
			assert.Equal(t, tt.wantNext, page.Pagination.HasNext)
			if tt.checkFirst != nil {
				require.NotEmpty(t, page.Data)
				tt.checkFirst(t, page.Data[0])
			}
		})
	}
}

func TestFeedbackBySource(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t)

	rec := env.do(t, http.MethodGet, "/api/feedback/source/twitter", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []models.AnalyzedFeedback
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 3)

	rec = env.do(t, http.MethodGet, "/api/feedback/source/nowhere", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestInsights(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/insights", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.seed(t)
	rec = env.do(t, http.MethodGet, "/api/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.InsightsReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 16, report.Total)
	assert.Equal(t, 3, report.BySource["support"])
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name            string
		content         string
		wantSpam        bool
		wantMeaningless bool
	}{
		{name: "Meaningful", content: "The export button does nothing on Safari", wantSpam: false, wantMeaningless: false},
		{name: "Spam", content: "BUY NOW limited time offer", wantSpam: true, wantMeaningless: true},
		{name: "Gibberish", content: "asdasdasdasd", wantSpam: false, wantMeaningless: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/ai/validate", map[string]string{"content": tt.content})
			require.Equal(t, http.StatusOK, rec.Code)

			var result models.ValidationResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.Equal(t, tt.wantSpam, result.IsSpam)
			assert.Equal(t, tt.wantMeaningless, result.IsMeaningless)
		})
	}
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/ai/analyze", map[string]interface{}{
		"content":  "Love the new dashboard, it is amazing",
		"source":   "twitter",
		"metadata": map[string]int{"likes": 100},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.SentimentPositive, result.Sentiment)
	assert.Equal(t, float64(2), result.UrgencyScore)

	rec = env.do(t, http.MethodPost, "/api/ai/analyze", map[string]string{"content": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExplain(t *testing.T) {
	body := map[string]interface{}{
		"feedback": models.FeedbackItem{Source: "github", Content: "Memory leak"},
		"analysis": models.Analysis{Sentiment: "negative", ValueScore: 7, UrgencyScore: 8, Themes: []string{"Bugs"}},
	}

	t.Run("Templates without a model", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(t, http.MethodPost, "/api/ai/explain", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var explanation models.Explanation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &explanation))
		assert.Equal(t, "Negative feedback from github.", explanation.Summary)
	})

	t.Run("Model failure is a server error", func(t *testing.T) {
		env := newTestEnv(t, failingClient{})
		rec := env.do(t, http.MethodPost, "/api/ai/explain", body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "error")
	})
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodOptions, "/api/feedback/save", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	handler := corsMiddleware([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		origin   string
		expected string
	}{
		{name: "Allowed origin echoed", origin: "https://app.example.com", expected: "https://app.example.com"},
		{name: "Other origin omitted", origin: "https://evil.example.com", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/feedback", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expected, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestTrigger(t *testing.T) {
	env := newTestEnv(t, nil)
	done := make(chan struct{})
	env.ops.On("RunReport", mock.Anything).Return(nil).Run(func(mock.Arguments) { close(done) })

	rec := env.do(t, http.MethodPost, "/trigger?job=report", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("report was not triggered")
	}

	rec = env.do(t, http.MethodPost, "/trigger?job=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_ingested":0}`, rec.Body.String())
}

func TestReports(t *testing.T) {
	env := newTestEnv(t, nil)
	latest := "insights-2026-03-02-09-00-00.json"

	env.ops.On("Snapshots", mock.Anything).Return([]string{latest, "insights-2026-03-01-09-00-00.json"}, nil).Once()
	env.ops.On("Snapshot", mock.Anything, latest).Return([]byte(`{"period":"daily"}`), nil).Once()
	env.ops.On("Snapshot", mock.Anything, "insights-missing.json").
		Return(nil, fmt.Errorf("%w: insights-missing.json", archive.ErrNotFound)).Once()
	env.ops.On("Snapshot", mock.Anything, "insights-broken.json").Return(nil, errors.New("disk failure")).Once()

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{name: "List", target: "/api/reports", status: http.StatusOK, body: `{"reports":["insights-2026-03-02-09-00-00.json","insights-2026-03-01-09-00-00.json"]}`},
		{name: "Existing report", target: "/api/reports/" + latest, status: http.StatusOK, body: `{"period":"daily"}`},
		{name: "Missing report", target: "/api/reports/insights-missing.json", status: http.StatusNotFound, body: `{"error":"report not found"}`},
		{name: "Read failure", target: "/api/reports/insights-broken.json", status: http.StatusInternalServerError, body: `{"error":"failed to read report"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
	env.ops.AssertExpectations(t)
}
