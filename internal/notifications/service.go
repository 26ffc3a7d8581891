package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/fshasan/feedback-pulse/internal/config"
	"github.com/fshasan/feedback-pulse/internal/models"
)

// Service handles sending notifications via various channels
type Service struct {
	config *config.Config
	client *resty.Client
	send   func(m *gomail.Message) error
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

const (
	colorReport = "0078D4"
	colorAlert  = "D13438"
	maxThemes   = 5
)

var sentimentOrder = []string{models.SentimentNegative, models.SentimentNeutral, models.SentimentPositive}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		return d.DialAndSend(m)
	}
	return s
}

// SendReport sends an insights report via configured notification channels
func (s *Service) SendReport(report *models.Report) error {
	if report == nil || report.Insights == nil {
		return fmt.Errorf("report has no insights")
	}

	return s.dispatch("report",
		func() error { return s.postToTeams(s.buildTeamsReport(report)) },
		func() error { return s.sendReportEmail(report) },
	)
}

// SendAlert sends an urgent feedback alert via configured notification channels
func (s *Service) SendAlert(alert *models.Alert) error {
	if alert == nil || alert.Feedback == nil {
		return fmt.Errorf("alert has no feedback")
	}

	return s.dispatch("alert",
		func() error { return s.postToTeams(s.buildTeamsAlert(alert)) },
		func() error { return s.sendAlertEmail(alert) },
	)
}

func (s *Service) dispatch(kind string, teams, email func() error) error {
	var errors []string
	sent := false

	if s.config.TeamsWebhookURL != "" {
		if err := teams(); err != nil {
			logrus.Errorf("Failed to send Teams %s: %v", kind, err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Successfully sent %s to Teams", kind)
			sent = true
		}
	}

	if s.config.NotificationEmail != "" {
		if err := email(); err != nil {
			logrus.Errorf("Failed to send email %s: %v", kind, err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Successfully sent %s via email", kind)
			sent = true
		}
	}

	if !sent && len(errors) == 0 {
		logrus.Debugf("No notification channel configured, %s not sent", kind)
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) postToTeams(message *TeamsMessage) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsReport(report *models.Report) *TeamsMessage {
	in := report.Insights
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: colorReport,
		Title:      fmt.Sprintf("Feedback Insights - %s", titleCase(report.Period)),
		Text:       fmt.Sprintf("Analyzed %d feedback items, %d need urgent attention", in.Total, in.HighUrgencyCount),
	}

	facts := []TeamsFact{
		{Name: "Total Feedback", Value: strconv.Itoa(in.Total)},
		{Name: "Average Value", Value: formatScore(in.AverageValueScore) + "/10"},
		{Name: "High Urgency", Value: strconv.Itoa(in.HighUrgencyCount)},
		{Name: "Generated", Value: report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
	}
	for _, sentiment := range sentimentOrder {
		facts = append(facts, TeamsFact{
			Name:  fmt.Sprintf("%s Feedback", titleCase(sentiment)),
			Value: strconv.Itoa(in.BySentiment[sentiment]),
		})
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if themes := topThemes(in.ByTheme, maxThemes); len(themes) > 0 {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Themes",
			ActivityText:  strings.Join(themes, ", "),
			Markdown:      true,
		})
	}

	if len(in.TopIssues) > 0 {
		var lines []string
		for _, issue := range in.TopIssues {
			lines = append(lines, fmt.Sprintf("**%s** - %s (value %s, urgency %s)",
				issue.Title, issue.Source, formatScore(issue.ValueScore), formatScore(issue.UrgencyScore)))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Issues",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) buildTeamsAlert(alert *models.Alert) *TeamsMessage {
	fb := alert.Feedback
	return &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: colorAlert,
		Title:      alert.Title,
		Text:       alert.Message,
		Sections: []TeamsSection{
			{
				ActivityTitle:    fb.Title,
				ActivitySubtitle: fmt.Sprintf("%s by %s", fb.Source, fb.Author),
				ActivityText:     truncate(fb.Content, 500),
				Facts: []TeamsFact{
					{Name: "Urgency", Value: formatScore(fb.Analysis.UrgencyScore) + "/10"},
					{Name: "Value", Value: formatScore(fb.Analysis.ValueScore) + "/10"},
					{Name: "Sentiment", Value: fb.Analysis.Sentiment},
					{Name: "Themes", Value: strings.Join(fb.Analysis.Themes, ", ")},
				},
				Markdown: true,
			},
		},
	}
}

func (s *Service) sendReportEmail(report *models.Report) error {
	subject := fmt.Sprintf("Feedback Insights - %s (%d items, %d urgent)",
		titleCase(report.Period), report.Insights.Total, report.Insights.HighUrgencyCount)

	htmlBody, err := renderReportHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	return s.sendEmail(subject, buildReportText(report), htmlBody)
}

func (s *Service) sendAlertEmail(alert *models.Alert) error {
	fb := alert.Feedback

	var text strings.Builder
	text.WriteString(alert.Message + "\n\n")
	text.WriteString(fmt.Sprintf("Title: %s\n", fb.Title))
	text.WriteString(fmt.Sprintf("Source: %s | Author: %s | Received: %s\n",
		fb.Source, fb.Author, fb.Timestamp.UTC().Format("Jan 2, 2006 15:04 UTC")))
	text.WriteString(fmt.Sprintf("Urgency: %s/10 | Value: %s/10 | Sentiment: %s\n",
		formatScore(fb.Analysis.UrgencyScore), formatScore(fb.Analysis.ValueScore), fb.Analysis.Sentiment))
	text.WriteString(fmt.Sprintf("Themes: %s\n\n", strings.Join(fb.Analysis.Themes, ", ")))
	text.WriteString(fb.Content + "\n")

	return s.sendEmail(fmt.Sprintf("[%s] %s", strings.ToUpper(alert.Type), alert.Title), text.String(), "")
}

func (s *Service) sendEmail(subject, textBody, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	if htmlBody != "" {
		m.AddAlternative("text/html", htmlBody)
	}

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"title": titleCase,
	"score": formatScore,
	"join":  strings.Join,
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Feedback Insights</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .issue { border-left: 4px solid #d13438; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .issue-title { font-weight: bold; margin-bottom: 5px; }
        .issue-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Feedback Insights</h1>
        <p>{{title .Period}} report generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Total Feedback:</strong> {{.Insights.Total}}</p>
        <p><strong>Average Value:</strong> {{score .Insights.AverageValueScore}}/10</p>
        <p><strong>High Urgency:</strong> {{.Insights.HighUrgencyCount}}</p>
        {{range $sentiment, $count := .Insights.BySentiment}}
            <p><strong>{{title $sentiment}}:</strong> {{$count}}</p>
        {{end}}
    </div>

    {{if .Insights.TopIssues}}
    <h2>Top Issues</h2>
    {{range .Insights.TopIssues}}
        <div class="issue">
            <div class="issue-title">{{.Title}}</div>
            <div class="issue-meta">{{.Source}} | value {{score .ValueScore}} | urgency {{score .UrgencyScore}} | {{join .Themes ", "}}</div>
        </div>
    {{end}}
    {{end}}

    {{if .Urgent}}
    <h2>Urgent Feedback</h2>
    {{range .Urgent}}
        <div class="issue">
            <div class="issue-title">{{.Title}}</div>
            <div class="issue-meta">{{.Source}} | urgency {{score .UrgencyScore}}</div>
        </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by feedback-pulse.</small></p>
</body>
</html>
`))

func renderReportHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildReportText(report *models.Report) string {
	in := report.Insights
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Feedback Insights - %s\n", titleCase(report.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Total Feedback: %d\n", in.Total))
	text.WriteString(fmt.Sprintf("Average Value: %s/10\n", formatScore(in.AverageValueScore)))
	text.WriteString(fmt.Sprintf("High Urgency: %d\n", in.HighUrgencyCount))
	for _, sentiment := range sentimentOrder {
		text.WriteString(fmt.Sprintf("%s: %d\n", titleCase(sentiment), in.BySentiment[sentiment]))
	}

	if themes := topThemes(in.ByTheme, maxThemes); len(themes) > 0 {
		text.WriteString(fmt.Sprintf("Top Themes: %s\n", strings.Join(themes, ", ")))
	}

	if len(in.TopIssues) > 0 {
		text.WriteString("\nTOP ISSUES\n")
		text.WriteString("==========\n")
		for i, issue := range in.TopIssues {
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, issue.Title))
			text.WriteString(fmt.Sprintf("   Source: %s | Value: %s | Urgency: %s | Themes: %s\n",
				issue.Source, formatScore(issue.ValueScore), formatScore(issue.UrgencyScore), strings.Join(issue.Themes, ", ")))
		}
	}

	if len(report.Urgent) > 0 {
		text.WriteString("\nURGENT FEEDBACK\n")
		text.WriteString("===============\n")
		for i, issue := range report.Urgent {
			text.WriteString(fmt.Sprintf("%d. %s (%s, urgency %s)\n", i+1, issue.Title, issue.Source, formatScore(issue.UrgencyScore)))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by feedback-pulse.\n")

	return text.String()
}

// topThemes returns up to n theme names, most frequent first, ties alphabetical
func topThemes(byTheme map[string]int, n int) []string {
	themes := make([]string, 0, len(byTheme))
	for theme := range byTheme {
		themes = append(themes, theme)
	}
	sort.Slice(themes, func(i, j int) bool {
		if byTheme[themes[i]] != byTheme[themes[j]] {
			return byTheme[themes[i]] > byTheme[themes[j]]
		}
		return themes[i] < themes[j]
	})
	if len(themes) > n {
		themes = themes[:n]
	}

	out := make([]string, len(themes))
	for i, theme := range themes {
		out[i] = fmt.Sprintf("%s (%d)", theme, byTheme[theme])
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
