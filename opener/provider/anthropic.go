package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

type AnthropicGenerator struct {
	client anthropic.Client
	model  string
	retry  RetryPolicy
}

func NewAnthropic(cfg Config) *AnthropicGenerator {
	cfg = cfg.withDefaults()
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &AnthropicGenerator{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
		retry:  cfg.Retry,
	}
}

func (g *AnthropicGenerator) Model() string { return g.model }

func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string, params opener.GenerationParams) (string, error) {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   params.MaxTokens,
		Temperature: anthropic.Float(params.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	msg, err := callWithRetry(ctx, g.retry, func(ctx context.Context) (*anthropic.Message, error) {
		return g.client.Messages.New(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("AnthropicGenerator.Generate: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
