package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
type OpenAIClient struct {
	client *openai.Client
	models Models
}

var _ TextGenerationClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client; baseURL may be empty for the public API.
func NewOpenAIClient(apiKey, baseURL string, models Models) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{
		client: &client,
		models: models,
	}
}

func (c *OpenAIClient) Name() string {
	return ProviderOpenAI
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	model := c.models.forTier(req.Tier)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai API error (%s): %w", model, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai (%s)", model)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
