package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

// OpenAIGenerator talks to the Responses API. SDK-level retries are disabled;
// RetryPolicy handles them.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	retry  RetryPolicy
}

func NewOpenAI(cfg Config) *OpenAIGenerator {
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
	client := openai.NewClient(opts...)
	return &OpenAIGenerator{client: &client, model: cfg.Model, retry: cfg.Retry}
}

func (g *OpenAIGenerator) Model() string { return g.model }

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, params opener.GenerationParams) (string, error) {
	req := responses.ResponseNewParams{
		Model:           g.model,
		MaxOutputTokens: openai.Int(params.MaxTokens),
		Temperature:     openai.Float(params.Temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	resp, err := callWithRetry(ctx, g.retry, func(ctx context.Context) (*responses.Response, error) {
		return g.client.Responses.New(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("OpenAIGenerator.Generate: %w", err)
	}
	return strings.TrimSpace(resp.OutputText()), nil
}

// StructuredRequest is a strict JSON-schema call with arbitrary input items,
// used for image analysis.
type StructuredRequest struct {
	Instructions string
	Input        []responses.ResponseInputItemUnionParam
	SchemaName   string
	Description  string
	Schema       map[string]any
	MaxTokens    int64
}

// GenerateStructured returns the raw JSON text of the model reply.
func (g *OpenAIGenerator) GenerateStructured(ctx context.Context, sr StructuredRequest) (string, error) {
	if len(sr.Input) == 0 {
		return "", errors.New("OpenAIGenerator.GenerateStructured: input is empty")
	}
	if sr.SchemaName == "" || sr.Schema == nil {
		return "", errors.New("OpenAIGenerator.GenerateStructured: schema is required")
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:   sr.SchemaName,
			Schema: sr.Schema,
			Strict: openai.Bool(true),
			Type:   "json_schema",
		},
	}
	if sr.Description != "" {
		format.OfJSONSchema.Description = openai.String(sr.Description)
	}

	req := responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: sr.Input},
		Text:  responses.ResponseTextConfigParam{Format: format},
	}
	if sr.MaxTokens > 0 {
		req.MaxOutputTokens = openai.Int(sr.MaxTokens)
	}
	if sr.Instructions != "" {
		req.Instructions = openai.String(sr.Instructions)
	}

	resp, err := callWithRetry(ctx, g.retry, func(ctx context.Context) (*responses.Response, error) {
		return g.client.Responses.New(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("OpenAIGenerator.GenerateStructured: %w", err)
	}
	return resp.OutputText(), nil
}
