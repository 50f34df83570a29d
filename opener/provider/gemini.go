package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

type GeminiGenerator struct {
	client *genai.Client
	model  string
	retry  RetryPolicy
}

func NewGemini(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	cfg = cfg.withDefaults()
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("NewGemini: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model, retry: cfg.Retry}, nil
}

func (g *GeminiGenerator) Model() string { return g.model }

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, params opener.GenerationParams) (string, error) {
	conf := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(params.Temperature)),
		MaxOutputTokens: int32(params.MaxTokens),
	}
	resp, err := callWithRetry(ctx, g.retry, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), conf)
	})
	if err != nil {
		return "", fmt.Errorf("GeminiGenerator.Generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
