// Package broadcast fans session events out to live listeners: in-process
// WebSocket subscribers and, optionally, a Redis channel.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

const defaultBuffer = 32

// Hub delivers events to per-session subscribers. Slow subscribers drop
// events instead of blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan contractx.Event]struct{}
	buffer int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan contractx.Event]struct{}), buffer: defaultBuffer}
}

// Subscribe returns a channel of events for sessionID and a cancel func that
// closes it.
func (h *Hub) Subscribe(sessionID string) (<-chan contractx.Event, func()) {
	ch := make(chan contractx.Event, h.buffer)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan contractx.Event]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[sessionID], ch)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) Publish(_ context.Context, ev contractx.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("broadcast: %d subscriber(s) of session=%s are full", dropped, ev.SessionID)
	}
	return nil
}

func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

type RedisConfig struct {
	URL           string `envconfig:"URL" split_words:"true"`
	ChannelPrefix string `envconfig:"CHANNEL_PREFIX" split_words:"true" default:"voiceagents:events:"`
}

// RedisPublisher publishes every event as JSON on prefix+agent.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("broadcast: parse redis url: %w", err)
	}
	return &RedisPublisher{client: redis.NewClient(opts), prefix: cfg.ChannelPrefix}, nil
}

func (p *RedisPublisher) Channel(agent contractx.AgentType) string {
	return p.prefix + string(agent)
}

func (p *RedisPublisher) Publish(ctx context.Context, ev contractx.Event) error {
	payload, err := sonic.MarshalString(ev)
	if err != nil {
		return fmt.Errorf("broadcast: marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(ev.Agent), payload).Err(); err != nil {
		return fmt.Errorf("broadcast: redis publish: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []contractx.Publisher

func (f Fanout) Publish(ctx context.Context, ev contractx.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes ev and logs any failure. Publishing never fails the caller.
func Emit(ctx context.Context, pub contractx.Publisher, ev contractx.Event) {
	if pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("session_id", ev.SessionID).Str("kind", ev.Kind).Msg("event publish panicked")
		}
	}()
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("session_id", ev.SessionID).Str("kind", ev.Kind).Msg("event publish failed")
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, contractx.Event) error { return nil }
