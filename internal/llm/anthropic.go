package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient talks to the Anthropic messages API
type AnthropicClient struct {
	client *anthropic.Client
	models Models
}

var _ TextGenerationClient = (*AnthropicClient)(nil)

func NewAnthropicClient(apiKey, baseURL string, models Models) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		client: &client,
		models: models,
	}
}

func (c *AnthropicClient) Name() string {
	return ProviderAnthropic
}

func (c *AnthropicClient) Generate(ctx context.Context, req Request) (string, error) {
	model := c.models.forTier(req.Tier)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error (%s): %w", model, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no response from anthropic (%s)", model)
	}

	return strings.TrimSpace(sb.String()), nil
}
