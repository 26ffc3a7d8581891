// Package triage pulls feedback from the configured sources, analyzes and stores it,
// raises alerts for urgent items and produces the periodic insights report.
package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/archive"
	"github.com/fshasan/feedback-pulse/internal/cache"
	"github.com/fshasan/feedback-pulse/internal/config"
	"github.com/fshasan/feedback-pulse/internal/insights"
	"github.com/fshasan/feedback-pulse/internal/models"
	"github.com/fshasan/feedback-pulse/internal/notifications"
	"github.com/fshasan/feedback-pulse/internal/sources"
	"github.com/fshasan/feedback-pulse/internal/storage"
)

const (
	maxUrgentInReport = 10
	runTimeout        = 30 * time.Minute
)

// FeedbackAnalyzer produces an analysis for a single item; it never fails
type FeedbackAnalyzer interface {
	AnalyzeItem(ctx context.Context, item models.FeedbackItem) models.Analysis
}

// Service coordinates ingestion, alerting and reporting
type Service struct {
	config        *config.Config
	repo          storage.Repository
	analyzer      FeedbackAnalyzer
	seen          cache.SeenSet
	notifications notifications.NotificationInterface
	archive       archive.Store
	sources       []sources.Source
	metrics       *Metrics
	mu            sync.RWMutex
}

// Metrics holds ingestion and reporting metrics
type Metrics struct {
	TotalIngested      int            `json:"total_ingested"`
	LastRunIngested    int            `json:"last_run_ingested"`
	LastRun            time.Time      `json:"last_run"`
	LastRunDuration    string         `json:"last_run_duration"`
	LastReport         time.Time      `json:"last_report"`
	AlertsSent         int            `json:"alerts_sent"`
	SourceMetrics      map[string]int `json:"source_metrics"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	ErrorCount         int            `json:"error_count"`
}

// NewService creates a new triage service. seen and store may be nil.
func NewService(cfg *config.Config, repo storage.Repository, analyzer FeedbackAnalyzer, seen cache.SeenSet,
	notificationService notifications.NotificationInterface, store archive.Store) *Service {
	service := &Service{
		config:        cfg,
		repo:          repo,
		analyzer:      analyzer,
		seen:          seen,
		notifications: notificationService,
		archive:       store,
		metrics: &Metrics{
			SourceMetrics:      make(map[string]int),
			SentimentBreakdown: make(map[string]int),
		},
	}

	service.initializeSources()

	return service
}

func (s *Service) initializeSources() {
	s.sources = []sources.Source{
		sources.NewTwitterSource(s.config.TwitterBearerToken, s.config.TwitterQuery),
		sources.NewGitHubSource(s.config.GitHubToken, s.config.GitHubRepos),
		sources.NewForumSource(s.config.ForumTags),
	}
}

// RunIngestion fetches new feedback from every enabled source, analyzes and stores it
func (s *Service) RunIngestion(ctx context.Context) error {
	start := time.Now()
	logrus.Info("Starting ingestion run")

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	window := s.searchWindow()

	var wg sync.WaitGroup
	itemsChan := make(chan []models.FeedbackItem, len(s.sources))
	errorsChan := make(chan error, len(s.sources))

	for _, source := range s.sources {
		if !source.IsEnabled() {
			logrus.Debugf("Skipping disabled source %s", source.GetName())
			continue
		}

		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()

			logrus.Infof("Fetching feedback from %s (window: %v)", src.GetName(), window)
			items, err := src.Fetch(ctx, window)
			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.GetName(), err)
				errorsChan <- err
				return
			}

			logrus.Infof("Found %d items from %s", len(items), src.GetName())
			itemsChan <- items
		}(source)
	}

	go func() {
		wg.Wait()
		close(itemsChan)
		close(errorsChan)
	}()

	var fetched []models.FeedbackItem
	for items := range itemsChan {
		fetched = append(fetched, items...)
	}

	errorCount := 0
	for range errorsChan {
		errorCount++
	}

	var stored []models.AnalyzedFeedback
	for _, item := range fetched {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		isNew, err := s.isNew(ctx, item)
		if err != nil {
			logrus.Errorf("Failed to check whether %s was already ingested: %v", item.ID, err)
			errorCount++
			continue
		}
		if !isNew {
			continue
		}

		record, err := s.Ingest(ctx, item, nil)
		if err != nil {
			logrus.Errorf("Failed to ingest %s: %v", item.ID, err)
			errorCount++
			continue
		}
		stored = append(stored, *record)
	}

	s.updateMetrics(stored, time.Since(start), errorCount)

	logrus.Infof("Ingestion run completed in %v: %d fetched, %d new, %d errors",
		time.Since(start), len(fetched), len(stored), errorCount)
	return nil
}

// Ingest stores one item with its analysis, computing the analysis when none is supplied,
// and raises an alert when the item is urgent.
func (s *Service) Ingest(ctx context.Context, item models.FeedbackItem, analysis *models.Analysis) (*models.AnalyzedFeedback, error) {
	record := models.AnalyzedFeedback{FeedbackItem: item}
	if analysis != nil {
		record.Analysis = analysis.Normalize()
	} else {
		record.Analysis = s.analyzer.AnalyzeItem(ctx, item)
	}

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save feedback %s: %w", item.ID, err)
	}

	if s.seen != nil {
		if err := s.seen.MarkSeen(ctx, item.Source, item.ID); err != nil {
			logrus.Warnf("Failed to mark %s as seen: %v", item.ID, err)
		}
	}

	if err := s.alertIfUrgent(&record); err != nil {
		logrus.Errorf("Failed to send alert for %s: %v", item.ID, err)
	}

	return &record, nil
}

func (s *Service) isNew(ctx context.Context, item models.FeedbackItem) (bool, error) {
	if s.seen != nil {
		seen, err := s.seen.IsSeen(ctx, item.Source, item.ID)
		if err != nil {
			logrus.Warnf("Seen-set lookup failed for %s, falling back to store: %v", item.ID, err)
		} else if seen {
			return false, nil
		}
	}

	exists, err := s.repo.Exists(ctx, item.ID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// IsAlertable reports whether a record warrants an immediate alert
func (s *Service) IsAlertable(record *models.AnalyzedFeedback) bool {
	return !record.Analysis.IsSpam && record.Analysis.UrgencyScore >= s.config.AlertUrgencyThreshold
}

func (s *Service) alertIfUrgent(record *models.AnalyzedFeedback) error {
	if !s.IsAlertable(record) {
		return nil
	}

	alertType := "urgent"
	if record.Analysis.UrgencyScore >= 10 {
		alertType = "critical"
	}

	alert := &models.Alert{
		ID:        uuid.NewString(),
		Type:      alertType,
		Title:     fmt.Sprintf("Urgent feedback from %s", record.Source),
		Message:   fmt.Sprintf("%s (urgency %s/10)", record.Title, strconv.FormatFloat(record.Analysis.UrgencyScore, 'f', -1, 64)),
		Feedback:  record,
		CreatedAt: time.Now(),
	}

	logrus.WithFields(logrus.Fields{
		"id":      record.ID,
		"source":  record.Source,
		"urgency": record.Analysis.UrgencyScore,
	}).Info("Urgent feedback detected")

	if err := s.notifications.SendAlert(alert); err != nil {
		return err
	}

	s.mu.Lock()
	s.metrics.AlertsSent++
	s.mu.Unlock()

	return nil
}

// RunReport aggregates every stored record, archives the snapshot and sends the report
func (s *Service) RunReport(ctx context.Context) error {
	start := time.Now()
	logrus.Info("Starting report run")

	report, err := s.GenerateReport(ctx)
	if errors.Is(err, insights.ErrEmptyBatch) {
		logrus.Info("No feedback stored yet, skipping report")
		return nil
	}
	if err != nil {
		return err
	}

	if s.archive != nil {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}

		name := archive.SnapshotName(report.GeneratedAt)
		if err := s.archive.Store(ctx, name, data); err != nil {
			// The report is still worth sending without its archived copy
			logrus.Errorf("Failed to archive report %s: %v", name, err)
		} else {
			logrus.Infof("Archived report as %s", name)
			if removed, err := archive.Prune(ctx, s.archive, s.config.ArchiveRetention); err != nil {
				logrus.Warnf("Failed to prune archived reports: %v", err)
			} else if removed > 0 {
				logrus.Infof("Pruned %d archived reports", removed)
			}
		}
	}

	if err := s.notifications.SendReport(report); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	s.mu.Lock()
	s.metrics.LastReport = time.Now()
	s.mu.Unlock()

	logrus.Infof("Report run completed in %v", time.Since(start))
	return nil
}

// Snapshots lists archived reports, newest first. Without an archive the list is empty.
func (s *Service) Snapshots(ctx context.Context) ([]string, error) {
	if s.archive == nil {
		return []string{}, nil
	}
	names, err := archive.Snapshots(ctx, s.archive)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived reports: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Snapshot returns one archived report as stored
func (s *Service) Snapshot(ctx context.Context, name string) ([]byte, error) {
	if s.archive == nil || !strings.HasPrefix(name, archive.SnapshotPrefix) {
		return nil, fmt.Errorf("%w: %s", archive.ErrNotFound, name)
	}
	return s.archive.Retrieve(ctx, name)
}

// GenerateReport builds the insights report over every stored record
func (s *Service) GenerateReport(ctx context.Context) (*models.Report, error) {
	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}

	summary, err := insights.Aggregate(records)
	if err != nil {
		return nil, err
	}

	urgent := insights.Urgent(records, s.config.AlertUrgencyThreshold)
	if len(urgent) > maxUrgentInReport {
		urgent = urgent[:maxUrgentInReport]
	}

	return &models.Report{
		GeneratedAt: time.Now().UTC(),
		Period:      s.config.ReportSchedule,
		Insights:    summary,
		Urgent:      urgent,
	}, nil
}

// searchWindow covers the time since the last run, never less than one ingest interval
func (s *Service) searchWindow() time.Duration {
	window := s.config.IngestInterval
	if last := s.getLastRunTime(); !last.IsZero() {
		if since := time.Since(last); since > window {
			window = since
		}
	}
	return window
}

func (s *Service) updateMetrics(stored []models.AnalyzedFeedback, duration time.Duration, errorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRunIngested = len(stored)
	s.metrics.TotalIngested += len(stored)
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.ErrorCount = errorCount

	for _, record := range stored {
		s.metrics.SourceMetrics[record.Source]++
		s.metrics.SentimentBreakdown[record.Analysis.Sentiment]++
	}
}

func (s *Service) getLastRunTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics.LastRun
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
