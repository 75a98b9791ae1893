package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var ErrNoAPIKey = errors.New("openrouter: api key is empty")

type LLMBuilder interface {
	New(ctx context.Context) (model.ToolCallingChatModel, error)
}

var _ LLMBuilder = (*Config)(nil)

// ReasoningBlacklist lists models whose reasoning traces must be excluded;
// spoken replies cannot carry them.
var ReasoningBlacklist = map[string]bool{
	"x-ai/grok-4.1-fast": true,
}

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken *int          `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"600"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c *Config) key() string     { return strings.TrimSpace(c.APIKey) }
func (c *Config) baseURL() string { return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/") }

// chatModelConfig maps the env config onto the eino-ext OpenAI adapter.
func (c *Config) chatModelConfig() *openaimodel.ChatModelConfig {
	name := strings.TrimSpace(c.Model)
	temperature := c.Temperature

	conf := &openaimodel.ChatModelConfig{
		BaseURL:     c.baseURL(),
		APIKey:      c.key(),
		Model:       name,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: &temperature,
		Timeout:     c.Timeout,
	}
	if ReasoningBlacklist[name] {
		conf.ExtraFields = map[string]any{
			"reasoning": map[string]any{"exclude": true, "effort": "none"},
		}
	}
	return conf
}

func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	if c.key() == "" {
		return nil, ErrNoAPIKey
	}
	m, err := openaimodel.NewChatModel(ctx, c.chatModelConfig())
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model %q: %w", c.Model, err)
	}
	return m, nil
}

// headers are the attribution headers OpenRouter reads for app rankings.
func (c *Config) headers() map[string]string {
	h := map[string]string{}
	if c.SiteURL != "" {
		h["HTTP-Referer"] = c.SiteURL
	}
	if c.SiteName != "" {
		h["X-Title"] = c.SiteName
	}
	return h
}

// NewClient returns an openai-go client pointed at OpenRouter, or nil when
// no key is configured.
func NewClient(cfg Config) *openaisdk.Client {
	if cfg.key() == "" {
		return nil
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.key())}
	if u := cfg.baseURL(); u != "" {
		opts = append(opts, option.WithBaseURL(u))
	}
	for k, v := range cfg.headers() {
		opts = append(opts, option.WithHeader(k, v))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

// Ping lists models to confirm the key and base URL are usable.
func Ping(ctx context.Context, cfg Config) (int, error) {
	client := NewClient(cfg)
	if client == nil {
		return 0, ErrNoAPIKey
	}
	page, err := client.Models.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("openrouter: list models: %w", err)
	}
	return len(page.Data), nil
}
