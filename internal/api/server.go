// Package api exposes feedback storage, insights and the analysis strategies over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/analysis"
	"github.com/fshasan/feedback-pulse/internal/config"
	"github.com/fshasan/feedback-pulse/internal/models"
	"github.com/fshasan/feedback-pulse/internal/storage"
)

const maxBodyBytes = 1 << 20

// Operations is the ingestion and reporting surface the API drives
type Operations interface {
	Ingest(ctx context.Context, item models.FeedbackItem, analysis *models.Analysis) (*models.AnalyzedFeedback, error)
	RunIngestion(ctx context.Context) error
	RunReport(ctx context.Context) error
	GetMetrics() string
	Snapshots(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, name string) ([]byte, error)
}

// Server holds the handler dependencies
type Server struct {
	config    *config.Config
	repo      storage.Repository
	validator *analysis.Validator
	analyzer  *analysis.Analyzer
	explainer *analysis.Explainer
	ops       Operations
}

// NewServer creates the API server
func NewServer(cfg *config.Config, repo storage.Repository, validator *analysis.Validator,
	analyzer *analysis.Analyzer, explainer *analysis.Explainer, ops Operations) *Server {
	return &Server{
		config:    cfg,
		repo:      repo,
		validator: validator,
		analyzer:  analyzer,
		explainer: explainer,
		ops:       ops,
	}
}

// Router builds the HTTP routes
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, corsMiddleware(s.config.AllowedOrigins))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/feedback/save", s.saveFeedbackHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/feedback", s.listFeedbackHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/feedback/source/{source}", s.feedbackBySourceHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/insights", s.insightsHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/ai/validate", s.validateHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/ai/analyze", s.analyzeHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/ai/explain", s.explainHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/reports", s.listReportsHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/reports/{name}", s.getReportHandler).Methods(http.MethodGet, http.MethodOptions)

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)

	// Metrics endpoint
	router.HandleFunc("/metrics", s.metricsHandler).Methods(http.MethodGet)

	// Manual trigger endpoint
	router.HandleFunc("/trigger", s.triggerHandler).Methods(http.MethodPost)

	return router
}

// NewHTTPServer wraps the router with the server timeouts
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:    ":" + s.config.Port,
		Handler: s.Router(),
		// Remote analysis can take a while on the slower tier
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.ops.GetMetrics()))
}

func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	job := r.URL.Query().Get("job")
	if job == "" {
		job = "ingest"
	}

	var run func(context.Context) error
	switch job {
	case "ingest":
		run = s.ops.RunIngestion
	case "report":
		run = s.ops.RunReport
	default:
		writeError(w, http.StatusBadRequest, "job must be 'ingest' or 'report'")
		return
	}

	go func() {
		if err := run(context.Background()); err != nil {
			logrus.Errorf("Manual %s trigger failed: %v", job, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": job + " triggered successfully"})
}
