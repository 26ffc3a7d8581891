package notifications

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/fshasan/feedback-pulse/internal/config"
	"github.com/fshasan/feedback-pulse/internal/models"
)

func sampleReport() *models.Report {
	return &models.Report{
		GeneratedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Period:      "daily",
		Insights: &models.InsightsReport{
			Total:             4,
			BySource:          map[string]int{"support": 2, "github": 2},
			BySentiment:       map[string]int{"negative": 2, "neutral": 1, "positive": 1},
			ByTheme:           map[string]int{"Performance": 2, "Bug": 1, "Feature Request": 2},
			AverageValueScore: 5.5,
			HighUrgencyCount:  1,
			TopIssues: []models.TopIssue{
				{ID: "CS-001", Title: "Dashboard down", Source: "support", ValueScore: 8, UrgencyScore: 8, Themes: []string{"Bug"}},
			},
		},
		Urgent: []models.TopIssue{
			{ID: "CS-001", Title: "Dashboard down", Source: "support", ValueScore: 8, UrgencyScore: 8},
		},
	}
}

func sampleAlert() *models.Alert {
	return &models.Alert{
		ID:      "alert-1",
		Type:    "urgent",
		Title:   "Urgent feedback from support",
		Message: "Dashboard down needs attention",
		Feedback: &models.AnalyzedFeedback{
			FeedbackItem: models.FeedbackItem{
				ID:      "CS-001",
				Source:  "support",
				Title:   "Dashboard down",
				Content: "The dashboard is down and blocking our whole team",
				Author:  "jane@example.com",
			},
			Analysis: models.Analysis{Sentiment: "negative", UrgencyScore: 8, ValueScore: 6, Themes: []string{"Bug"}},
		},
		CreatedAt: time.Now(),
	}
}

func TestService_SendReportToTeams(t *testing.T) {
	var received TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})

	require.NoError(t, service.SendReport(sampleReport()))

	assert.Equal(t, "MessageCard", received.Type)
	assert.Equal(t, "Feedback Insights - Daily", received.Title)
	assert.Contains(t, received.Text, "4 feedback items")
	require.Len(t, received.Sections, 3)
	assert.Equal(t, "Summary", received.Sections[0].ActivityTitle)
	assert.Contains(t, received.Sections[0].Facts, TeamsFact{Name: "Negative Feedback", Value: "2"})
	assert.Contains(t, received.Sections[0].Facts, TeamsFact{Name: "Average Value", Value: "5.5/10"})
	assert.Equal(t, "Feature Request (2), Performance (2), Bug (1)", received.Sections[1].ActivityText)
	assert.Contains(t, received.Sections[2].ActivityText, "Dashboard down")
}

func TestService_TeamsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad card"))
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})

	err := service.SendAlert(sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestService_SendAlertByEmail(t *testing.T) {
	service := NewService(&config.Config{NotificationEmail: "team@example.com", SMTPUsername: "bot@example.com"})

	var sent []*gomail.Message
	service.send = func(m *gomail.Message) error {
		sent = append(sent, m)
		return nil
	}

	require.NoError(t, service.SendAlert(sampleAlert()))
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"[URGENT] Urgent feedback from support"}, sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"team@example.com"}, sent[0].GetHeader("To"))
}

func TestService_EmailFailureIsReported(t *testing.T) {
	service := NewService(&config.Config{NotificationEmail: "team@example.com"})
	service.send = func(m *gomail.Message) error { return errors.New("connection refused") }

	err := service.SendReport(sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email")
}

func TestService_NoChannelsConfigured(t *testing.T) {
	service := NewService(&config.Config{})

	assert.NoError(t, service.SendReport(sampleReport()))
	assert.NoError(t, service.SendAlert(sampleAlert()))
}

func TestService_RejectsEmptyPayloads(t *testing.T) {
	service := NewService(&config.Config{})

	assert.Error(t, service.SendReport(&models.Report{Period: "daily"}))
	assert.Error(t, service.SendAlert(&models.Alert{Title: "empty"}))
}

func TestReportBodies(t *testing.T) {
	report := sampleReport()

	html, err := renderReportHTML(report)
	require.NoError(t, err)
	assert.Contains(t, html, "Daily report generated on March 2, 2026")
	assert.Contains(t, html, "<strong>Negative:</strong> 2")
	assert.Contains(t, html, "Dashboard down")

	text := buildReportText(report)
	assert.Contains(t, text, "Total Feedback: 4")
	assert.Contains(t, text, "1. Dashboard down")
	assert.Contains(t, text, "URGENT FEEDBACK")
}

func TestTopThemes(t *testing.T) {
	tests := []struct {
		name     string
		byTheme  map[string]int
		n        int
		expected []string
	}{
		{"empty", map[string]int{}, 3, []string{}},
		{"ties alphabetical", map[string]int{"b": 1, "a": 1}, 3, []string{"a (1)", "b (1)"}},
		{"limited", map[string]int{"a": 3, "b": 2, "c": 1}, 2, []string{"a (3)", "b (2)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, topThemes(tt.byTheme, tt.n))
		})
	}
}
