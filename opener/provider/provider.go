// Package provider adapts hosted text-generation APIs to opener.TextGenerator.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

type Name string

const (
	OpenAI    Name = "openai"
	Anthropic Name = "anthropic"
	Gemini    Name = "gemini"
)

var ErrUnknownProvider = errors.New("provider: unknown provider")

// Config selects and configures one backend. Empty Model falls back to
// DefaultModel. A zero Retry uses DefaultRetryPolicy.
type Config struct {
	Name       Name
	APIKey     string
	Model      string
	BaseURL    string
	Retry      RetryPolicy
	HTTPClient *http.Client
}

func ParseName(s string) (Name, error) {
	switch n := Name(strings.ToLower(strings.TrimSpace(s))); n {
	case OpenAI, Anthropic, Gemini:
		return n, nil
	case "":
		return OpenAI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

func DefaultModel(n Name) string {
	switch n {
	case Anthropic:
		return "claude-3-5-haiku-latest"
	case Gemini:
		return "gemini-2.0-flash"
	default:
		return "gpt-4o-mini"
	}
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel(c.Name)
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = DefaultRetryPolicy()
	}
	return c
}

func (c Config) Validate() error {
	if _, err := ParseName(string(c.Name)); err != nil {
		return err
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("provider %s: api key is required", c.Name)
	}
	return nil
}

// New builds the generator named by cfg.Name.
func New(ctx context.Context, cfg Config) (opener.TextGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("provider.New: %w", err)
	}
	cfg = cfg.withDefaults()
	switch cfg.Name {
	case Anthropic:
		return NewAnthropic(cfg), nil
	case Gemini:
		g, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("provider.New: %w", err)
		}
		return g, nil
	default:
		return NewOpenAI(cfg), nil
	}
}
