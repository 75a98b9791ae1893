package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	nodex "github.com/tanpawarit/Chative-Voice-Agents/agent/nodes/orchestrator"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/broadcast"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
	ErrToolLoop       = nodex.ErrToolLoop
	ErrNoModel        = errors.New("no chat model configured")
)

const defaultMaxToolRounds = 5

// AgentSource resolves an agent by type.
type AgentSource interface {
	Get(agentType contractx.AgentType) (contractx.Agent, error)
}

type Config struct {
	// Voices supplies the spoken greeting per agent.
	Voices        map[contractx.AgentType]promptx.VoiceProfile
	MaxToolRounds int
	Now           func() time.Time
}

// Orchestrator owns the live sessions and routes tool calls and text
// turns to their conversations.
type Orchestrator struct {
	store     statex.Store
	agents    AgentSource
	models    nodex.ModelSource
	publisher contractx.Publisher

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	voices    map[contractx.AgentType]promptx.VoiceProfile
	maxRounds int
	now       func() time.Time
}

// New builds the orchestrator. models may be nil, in which case only tool
// calls are served and HandleMessage fails with ErrNoModel.
func New(
	store statex.Store,
	agents AgentSource,
	models nodex.ModelSource,
	publisher contractx.Publisher,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}
	if publisher == nil {
		publisher = broadcast.Nop{}
	}

	o := &Orchestrator{
		store:     store,
		agents:    agents,
		models:    models,
		publisher: publisher,
		voices:    cfg.Voices,
		maxRounds: cfg.MaxToolRounds,
		now:       cfg.Now,
	}
	if o.maxRounds <= 0 {
		o.maxRounds = defaultMaxToolRounds
	}
	if o.now == nil {
		o.now = time.Now
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Started is returned when a session opens.
type Started struct {
	SessionID    string              `json:"session_id"`
	Agent        contractx.AgentType `json:"agent"`
	Instructions string              `json:"instructions"`
	Greeting     string              `json:"greeting,omitempty"`
	State        any                 `json:"state"`
}

func (o *Orchestrator) StartSession(ctx context.Context, agentType contractx.AgentType) (Started, error) {
	agent, err := o.agents.Get(agentType)
	if err != nil {
		return Started{}, err
	}

	conv, err := agent.NewConversation(ctx, uuid.NewString())
	if err != nil {
		return Started{}, fmt.Errorf("start agent=%s: %w", agentType, err)
	}
	sess := statex.NewSession(conv, o.now())
	if err := o.store.Save(ctx, sess); err != nil {
		return Started{}, err
	}

	log.Info().Str("session_id", sess.ID).Str("agent", string(agentType)).Msg("session started")
	o.emit(ctx, sess, contractx.EventSessionStarted)

	return Started{
		SessionID:    sess.ID,
		Agent:        agentType,
		Instructions: conv.Instructions(),
		Greeting:     o.voices[agentType].Greeting,
		State:        conv.Snapshot(),
	}, nil
}

func (o *Orchestrator) session(ctx context.Context, sessionID string) (*statex.Session, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, ErrInvalidSession
	}
	sess, err := o.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, statex.ErrStateNotFound) {
			return nil, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, id)
		}
		return nil, err
	}
	return sess, nil
}

// Session returns the current view of a live session.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (statex.View, error) {
	sess, err := o.session(ctx, sessionID)
	if err != nil {
		return statex.View{}, err
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.View(), nil
}

// Tools describes the tools of a live session.
func (o *Orchestrator) Tools(ctx context.Context, sessionID string) ([]toolx.Descriptor, error) {
	sess, err := o.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	set, err := toolx.NewSet(ctx, sess.Agent, sess.Conversation.Tools())
	if err != nil {
		return nil, err
	}
	return set.Descriptors()
}

// CallTool runs one tool with raw JSON arguments, the way the voice
// pipeline invokes it.
func (o *Orchestrator) CallTool(ctx context.Context, sessionID, tool, args string) (contractx.ToolResult, error) {
	sess, err := o.session(ctx, sessionID)
	if err != nil {
		return contractx.ToolResult{Tool: tool}, err
	}
	sess.Lock()
	defer sess.Unlock()

	set, err := toolx.NewSet(ctx, sess.Agent, sess.Conversation.Tools())
	if err != nil {
		return contractx.ToolResult{Tool: tool}, err
	}
	res, callErr := set.Call(ctx, tool, args)

	sess.Touch(o.now())
	if err := o.store.Save(ctx, sess); err != nil {
		return res, err
	}
	return res, callErr
}

// HandleMessage runs one text turn through the agent's chat model.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (nodex.GraphOutput, error) {
	if o.models == nil {
		return nodex.GraphOutput{}, fmt.Errorf("%w: %w", contractx.ErrModelInvoke, ErrNoModel)
	}
	sess, err := o.session(ctx, sessionID)
	if err != nil {
		return nodex.GraphOutput{}, err
	}
	sess.Lock()
	defer sess.Unlock()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sess.ID,
		Text:      text,
	})
	if err != nil {
		return nodex.GraphOutput{}, err
	}
	return out, nil
}

// Reply is HandleMessage reduced to the spoken text.
func (o *Orchestrator) Reply(ctx context.Context, sessionID string, text string) (string, error) {
	out, err := o.HandleMessage(ctx, sessionID, text)
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) (statex.View, error) {
	sess, err := o.session(ctx, sessionID)
	if err != nil {
		return statex.View{}, err
	}
	sess.Lock()
	defer sess.Unlock()

	view := sess.View()
	if err := o.store.Delete(ctx, sess.ID); err != nil {
		return statex.View{}, err
	}
	log.Info().Str("session_id", sess.ID).Str("agent", string(sess.Agent)).Int("turns", view.Turns).Msg("session ended")
	o.emit(ctx, sess, contractx.EventSessionEnded)
	return view, nil
}

type sweeper interface {
	Sweep() []*statex.Session
	Len() int
}

// SweepExpired drops idle sessions when the store supports expiry and
// returns how many were dropped.
func (o *Orchestrator) SweepExpired(ctx context.Context) int {
	s, ok := o.store.(sweeper)
	if !ok {
		return 0
	}
	dropped := s.Sweep()
	for _, sess := range dropped {
		log.Info().Str("session_id", sess.ID).Str("agent", string(sess.Agent)).Msg("session expired")
		o.emit(ctx, sess, contractx.EventSessionEnded)
	}
	if len(dropped) > 0 {
		log.Info().Int("expired", len(dropped)).Int("live", s.Len()).Msg("session sweep")
	}
	return len(dropped)
}

func (o *Orchestrator) emit(ctx context.Context, sess *statex.Session, kind string) {
	broadcast.Emit(ctx, o.publisher, contractx.Event{
		SessionID: sess.ID,
		Agent:     sess.Agent,
		Kind:      kind,
		Payload:   sess.Conversation.Snapshot(),
		At:        o.now().UTC(),
	})
}
