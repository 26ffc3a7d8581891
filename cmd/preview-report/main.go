package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/analysis"
	"github.com/fshasan/feedback-pulse/internal/archive"
	"github.com/fshasan/feedback-pulse/internal/config"
	"github.com/fshasan/feedback-pulse/internal/fixtures"
	"github.com/fshasan/feedback-pulse/internal/models"
	"github.com/fshasan/feedback-pulse/internal/storage"
	"github.com/fshasan/feedback-pulse/internal/triage"
)

const outputDir = "test_output"

// consoleNotifier prints reports and alerts to the terminal
type consoleNotifier struct{}

func (consoleNotifier) SendReport(report *models.Report) error {
	in := report.Insights

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("FEEDBACK INSIGHTS REPORT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Period:    %s\n", report.Period)
	fmt.Printf("Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("Total:     %d\n", in.Total)
	fmt.Printf("Avg value: %.1f/10\n", in.AverageValueScore)
	fmt.Printf("Urgent:    %d\n", in.HighUrgencyCount)

	fmt.Println("\nSources:")
	for _, source := range sortedKeys(in.BySource) {
		fmt.Printf("   %-10s %d\n", source+":", in.BySource[source])
	}

	fmt.Println("\nSentiment:")
	for _, sentiment := range sortedKeys(in.BySentiment) {
		fmt.Printf("   %-10s %d\n", sentiment+":", in.BySentiment[sentiment])
	}

	fmt.Println("\nTop issues:")
	for i, issue := range in.TopIssues {
		fmt.Printf("   %d. [%s] %s (value %.1f, urgency %.0f)\n", i+1, issue.Source, issue.Title, issue.ValueScore, issue.UrgencyScore)
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	return nil
}

func (consoleNotifier) SendAlert(alert *models.Alert) error {
	fmt.Printf("ALERT [%s] %s: %s\n", alert.Type, alert.Title, alert.Message)
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func main() {
	logrus.SetLevel(logrus.WarnLevel)

	fmt.Println("feedback-pulse - report preview")
	fmt.Println("===============================")

	cfg := &config.Config{
		ReportSchedule:        "weekly",
		AlertUrgencyThreshold: 8,
		IngestInterval:        time.Hour,
	}

	ctx := context.Background()
	repo := storage.NewMemoryRepository()

	reports, err := archive.NewFileStorage(outputDir)
	if err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	notifier := consoleNotifier{}
	service := triage.NewService(cfg, repo, analysis.NewAnalyzer(nil, nil, 0), nil, notifier, reports)

	// Alerts fire as each sample is ingested
	for _, item := range fixtures.Catalogue(time.Now().UTC()) {
		if _, err := service.Ingest(ctx, item, nil); err != nil {
			fmt.Printf("Error ingesting %s: %v\n", item.ID, err)
			os.Exit(1)
		}
	}

	if err := service.RunReport(ctx); err != nil {
		fmt.Printf("Error generating report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nReport archived under %s/\n", outputDir)
}
