package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/config"
)

// Runner is the work the scheduler drives
type Runner interface {
	RunIngestion(ctx context.Context) error
	RunReport(ctx context.Context) error
}

// Service handles scheduling of ingestion and reporting tasks
type Service struct {
	config *config.Config
	runner Runner
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, runner Runner) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config: cfg,
		runner: runner,
		// Overlapping runs of the same job are skipped, not queued
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ReportExpression returns the cron expression for a report schedule
func ReportExpression(schedule string) string {
	switch schedule {
	case "daily":
		// Run daily at 9 AM UTC
		return "0 0 9 * * *"
	default:
		// Run weekly on Monday at 9 AM UTC
		return "0 0 9 * * MON"
	}
}

// IngestExpression returns the cron expression for the ingestion interval
func IngestExpression(interval time.Duration) string {
	return fmt.Sprintf("@every %s", interval)
}

// Start begins the scheduled ingestion and reporting
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(ReportExpression(s.config.ReportSchedule), func() {
		logrus.Info("Starting scheduled report run")
		if err := s.runner.RunReport(s.ctx); err != nil {
			logrus.Errorf("Scheduled report run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid report schedule: %w", err)
	}

	_, err = s.cron.AddFunc(IngestExpression(s.config.IngestInterval), func() {
		logrus.Info("Starting scheduled ingestion run")
		if err := s.runner.RunIngestion(s.ctx); err != nil {
			logrus.Errorf("Scheduled ingestion run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid ingest interval: %w", err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s reports and ingestion every %v", s.config.ReportSchedule, s.config.IngestInterval)
	return nil
}

// Entries returns the number of scheduled jobs
func (s *Service) Entries() int {
	return len(s.cron.Entries())
}

// Stop stops the scheduler and cancels in-flight runs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cancel()
		logrus.Info("Scheduler stopped")
	}
}
