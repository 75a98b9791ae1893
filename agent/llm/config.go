package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Voice-Agents/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"google/gemini-2.5-flash"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"600"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true" default:"Chative Voice Agents"`

	// ModelOverrides maps agent type to model, e.g. "gamemaster:anthropic/claude-3.5-haiku,fraud:openai/gpt-4o-mini".
	ModelOverrides map[string]string `envconfig:"MODEL_OVERRIDES" split_words:"true"`
	// TemperatureOverrides maps agent type to temperature.
	TemperatureOverrides map[string]float32 `envconfig:"TEMPERATURE_OVERRIDES" split_words:"true"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	for agent := range c.ModelOverrides {
		if _, err := contractx.ParseAgentType(agent); err != nil {
			return fmt.Errorf("%w: model override: %v", contractx.ErrValidation, err)
		}
	}
	return nil
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	if v := strings.TrimSpace(c.ModelOverrides[string(agentType)]); v != "" {
		modelName = v
	}
	temp := c.Temperature
	if v, ok := c.TemperatureOverrides[string(agentType)]; ok && v >= 0 {
		temp = v
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// Provider hands out one chat model per agent type, built on first use.
type Provider struct {
	cfg   Config
	build func(ctx context.Context, cfg openrouterx.Config) (einomodel.ToolCallingChatModel, error)

	mu     sync.Mutex
	models map[contractx.AgentType]einomodel.ToolCallingChatModel
}

func NewProvider(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Provider{
		cfg: cfg,
		build: func(ctx context.Context, c openrouterx.Config) (einomodel.ToolCallingChatModel, error) {
			return c.New(ctx)
		},
		models: make(map[contractx.AgentType]einomodel.ToolCallingChatModel),
	}, nil
}

func (p *Provider) ChatModel(ctx context.Context, agentType contractx.AgentType) (einomodel.ToolCallingChatModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.models[agentType]; ok {
		return m, nil
	}
	orCfg := p.cfg.OpenRouterFor(agentType)
	m, err := p.build(ctx, orCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create model for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
	}
	p.models[agentType] = m
	return m, nil
}
