package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/analysis"
	"github.com/fshasan/feedback-pulse/internal/archive"
	"github.com/fshasan/feedback-pulse/internal/insights"
	"github.com/fshasan/feedback-pulse/internal/models"
	"github.com/fshasan/feedback-pulse/internal/storage"
)

const anonymousAuthor = "Anonymous"

type saveRequest struct {
	models.FeedbackItem
	Analysis *models.Analysis `json:"analysis,omitempty"`
}

type saveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

type contentRequest struct {
	Content  string                 `json:"content"`
	Source   string                 `json:"source"`
	Metadata map[string]interface{} `json:"metadata"`
}

type explainRequest struct {
	Feedback models.FeedbackItem `json:"feedback"`
	Analysis models.Analysis     `json:"analysis"`
}

func (s *Server) saveFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item := req.FeedbackItem
	if strings.TrimSpace(item.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if strings.TrimSpace(item.Author) == "" {
		item.Author = anonymousAuthor
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}
	if item.Metadata == nil {
		item.Metadata = map[string]interface{}{}
	}

	record, err := s.ops.Ingest(r.Context(), item, req.Analysis)
	if err != nil {
		logrus.Errorf("Failed to save feedback %s: %v", item.ID, err)
		writeJSON(w, http.StatusInternalServerError, saveResponse{
			Success: false,
			Message: "Failed to save feedback: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, saveResponse{
		Success: true,
		Message: "Feedback saved",
		ID:      record.ID,
	})
}

func (s *Server) listFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	query := parseQuery(r)

	page, err := s.repo.List(r.Context(), query)
	if err != nil {
		logrus.Errorf("Failed to list feedback: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list feedback")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func parseQuery(r *http.Request) storage.Query {
	values := r.URL.Query()
	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))

	return storage.Query{
		Page:      page,
		Limit:     limit,
		Source:    values.Get("source"),
		Sentiment: values.Get("sentiment"),
		Search:    values.Get("search"),
		SortBy:    values.Get("sortBy"),
		Ascending: strings.EqualFold(values.Get("sortOrder"), "asc"),
	}.Normalize()
}

func (s *Server) feedbackBySourceHandler(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]

	records, err := s.repo.BySource(r.Context(), source)
	if err != nil {
		logrus.Errorf("Failed to load feedback for %s: %v", source, err)
		writeError(w, http.StatusInternalServerError, "failed to load feedback")
		return
	}
	if records == nil {
		records = []models.AnalyzedFeedback{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) insightsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := s.repo.All(r.Context())
	if err != nil {
		logrus.Errorf("Failed to load feedback: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load feedback")
		return
	}

	report, err := insights.Aggregate(records)
	if errors.Is(err, insights.ErrEmptyBatch) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	names, err := s.ops.Snapshots(r.Context())
	if err != nil {
		logrus.Errorf("Failed to list archived reports: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": names})
}

func (s *Server) getReportHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	data, err := s.ops.Snapshot(r.Context(), name)
	if errors.Is(err, archive.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to read archived report %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "failed to read report")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) validateHandler(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	writeJSON(w, http.StatusOK, s.validator.Validate(r.Context(), req.Content))
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	writeJSON(w, http.StatusOK, s.analyzer.Analyze(r.Context(), req.Content, req.Source, req.Metadata))
}

func (s *Server) explainHandler(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	explanation, err := s.explainer.Explain(r.Context(), req.Feedback, req.Analysis)
	if err != nil {
		if !errors.Is(err, analysis.ErrExplanationUnavailable) {
			logrus.Errorf("Explanation failed: %v", err)
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, explanation)
}
