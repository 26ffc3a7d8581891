package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultWorkersBaseURL = "https://api.cloudflare.com/client/v4"

// WorkersClient calls a hosted inference endpoint of the shape
// POST {base}/accounts/{account}/ai/run/{model}. The reply payload may be a bare
// string, an object with a response or text field, or something else entirely.
type WorkersClient struct {
	client    *resty.Client
	accountID string
	models    Models
}

var _ TextGenerationClient = (*WorkersClient)(nil)

type workersMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type workersRequest struct {
	Messages    []workersMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
}

func NewWorkersClient(apiToken, accountID, baseURL string, models Models) *WorkersClient {
	if baseURL == "" {
		baseURL = defaultWorkersBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetAuthToken(apiToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(60 * time.Second)

	return &WorkersClient{
		client:    client,
		accountID: accountID,
		models:    models,
	}
}

func (c *WorkersClient) Name() string {
	return ProviderWorkers
}

func (c *WorkersClient) Generate(ctx context.Context, req Request) (string, error) {
	model := c.models.forTier(req.Tier)

	body := workersRequest{
		Messages: []workersMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/accounts/%s/ai/run/%s", c.accountID, model))
	if err != nil {
		return "", fmt.Errorf("workers API request failed (%s): %w", model, err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("workers API error (%s): status %d: %s", model, resp.StatusCode(), resp.String())
	}

	raw := resp.Body()
	if gjson.ValidBytes(raw) && gjson.GetBytes(raw, "success").Type == gjson.False {
		return "", fmt.Errorf("workers API error (%s): %s", model, gjson.GetBytes(raw, "errors").Raw)
	}

	text := PayloadText(raw)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from workers API (%s)", model)
	}
	return text, nil
}

var payloadTextPaths = []string{
	"result.response",
	"result.text",
	"response",
	"text",
	"result",
}

// PayloadText normalizes a reply payload to plain text: a bare JSON string, the
// first string-valued response/text field, or else the serialized payload.
// Non-JSON payloads are returned unchanged.
func PayloadText(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return string(raw)
	}

	root := gjson.ParseBytes(raw)
	if root.Type == gjson.String {
		return root.String()
	}

	for _, path := range payloadTextPaths {
		if v := root.Get(path); v.Type == gjson.String {
			return v.String()
		}
	}

	if v := root.Get("result"); v.IsObject() {
		return v.Raw
	}
	return root.Raw
}
