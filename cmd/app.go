package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/llm"
	nodex "github.com/tanpawarit/Chative-Voice-Agents/agent/nodes/orchestrator"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/broadcast"
	configx "github.com/tanpawarit/Chative-Voice-Agents/pkg/config"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

type AppConfig struct {
	DataDir             string        `envconfig:"DATA_DIR" split_words:"true" default:"data"`
	ReferenceDir        string        `envconfig:"REFERENCE_DIR" split_words:"true"`
	HTTPAddr            string        `envconfig:"HTTP_ADDR" split_words:"true" default:":8080"`
	APIToken            string        `envconfig:"API_TOKEN" split_words:"true"`
	SessionTTL          time.Duration `envconfig:"SESSION_TTL" split_words:"true" default:"2h"`
	SweepInterval       time.Duration `envconfig:"SWEEP_INTERVAL" split_words:"true" default:"1m"`
	RedisURL            string        `envconfig:"REDIS_URL" split_words:"true"`
	EventsChannelPrefix string        `envconfig:"EVENTS_CHANNEL_PREFIX" split_words:"true" default:"voiceagents:events:"`
}

// app is everything a command needs, built from the environment.
type app struct {
	conf     *AppConfig
	llmConf  *llm.Config
	registry *agents.Registry
	voices   map[contractx.AgentType]promptx.VoiceProfile
	hub      *broadcast.Hub
	svc      *orchestrator.Orchestrator

	closers []func() error
}

func loadApp(ctx context.Context) (*app, error) {
	conf, err := configx.New[AppConfig]("APP")
	if err != nil {
		return nil, err
	}
	llmConf, err := configx.New[llm.Config]("OPENROUTER")
	if err != nil {
		return nil, err
	}
	return newApp(ctx, conf, llmConf)
}

func newApp(ctx context.Context, conf *AppConfig, llmConf *llm.Config) (*app, error) {
	a := &app{conf: conf, llmConf: llmConf, hub: broadcast.NewHub()}

	cat, err := catalog.Load(conf.ReferenceDir)
	if err != nil {
		return nil, err
	}

	publishers := broadcast.Fanout{a.hub}
	if url := strings.TrimSpace(conf.RedisURL); url != "" {
		redisPub, err := broadcast.NewRedisPublisher(broadcast.RedisConfig{URL: url, ChannelPrefix: conf.EventsChannelPrefix})
		if err != nil {
			return nil, err
		}
		if err := redisPub.Ping(ctx); err != nil {
			redisPub.Close()
			return nil, err
		}
		a.closers = append(a.closers, redisPub.Close)
		publishers = append(publishers, redisPub)
		log.Info().Str("channel_prefix", conf.EventsChannelPrefix).Msg("publishing events to redis")
	}

	a.registry, err = agents.NewRegistry(agents.Deps{
		Catalog:   cat,
		Files:     flatfile.New(conf.DataDir),
		Publisher: publishers,
	})
	if err != nil {
		return nil, a.closeWith(err)
	}
	a.voices, err = promptx.LoadVoiceProfiles()
	if err != nil {
		return nil, a.closeWith(err)
	}

	// A nil ModelSource must stay a nil interface.
	var models nodex.ModelSource
	if llmConf.Enabled() {
		provider, err := llm.NewProvider(*llmConf)
		if err != nil {
			return nil, a.closeWith(err)
		}
		models = provider
	} else {
		log.Warn().Msg("OPENROUTER_API_KEY is not set; text turns are disabled, tool calls still work")
	}

	a.svc, err = orchestrator.New(
		statex.NewMemoryStore(statex.WithTTL(conf.SessionTTL)),
		a.registry,
		models,
		publishers,
		orchestrator.Config{Voices: a.voices},
	)
	if err != nil {
		return nil, a.closeWith(err)
	}
	return a, nil
}

func (a *app) closeWith(cause error) error {
	return errors.Join(cause, a.Close())
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
