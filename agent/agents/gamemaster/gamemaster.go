package gamemaster

import (
	"context"
	"fmt"
	"strings"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	kit "github.com/tanpawarit/Chative-Voice-Agents/agent/agents/agentkit"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
)

// Prompt closes every narrated reply.
const Prompt = "What do you do next?"

type Config struct {
	Prompts   promptx.PromptSet
	Publisher contractx.Publisher
	Now       func() time.Time
}

type Agent struct {
	cfg          Config
	instructions string
}

func New(cfg Config) *Agent {
	cfg.Now = kit.Clock(cfg.Now)
	return &Agent{
		cfg:          cfg,
		instructions: cfg.Prompts.Render(contractx.AgentTypeGameMaster, nil),
	}
}

func (a *Agent) Type() contractx.AgentType { return contractx.AgentTypeGameMaster }

func (a *Agent) Description() string {
	return "Game master narrating an interactive fantasy adventure."
}

func (a *Agent) NewConversation(_ context.Context, sessionID string) (contractx.Conversation, error) {
	c := &Conversation{
		agent:     a,
		sessionID: sessionID,
		chapter:   1,
		events: kit.Emitter{
			Publisher: a.cfg.Publisher,
			SessionID: sessionID,
			Agent:     contractx.AgentTypeGameMaster,
			Now:       a.cfg.Now,
		},
	}
	c.tools = []einotool.InvokableTool{
		toolx.New("restart_story", "Start a new chapter from a fresh opening scene.", nil, c.RestartStory),
		toolx.New("story_status", "Report the current chapter and turn.", nil, c.StoryStatus),
	}
	return c, nil
}

type Conversation struct {
	agent     *Agent
	sessionID string
	events    kit.Emitter
	tools     []einotool.InvokableTool

	chapter int
	turns   int
}

var _ contractx.ReplyShaper = (*Conversation)(nil)

func (c *Conversation) SessionID() string               { return c.sessionID }
func (c *Conversation) AgentType() contractx.AgentType  { return contractx.AgentTypeGameMaster }
func (c *Conversation) Instructions() string            { return c.agent.instructions }
func (c *Conversation) Tools() []einotool.InvokableTool { return c.tools }

type Snapshot struct {
	Chapter int `json:"chapter"`
	Turns   int `json:"turns"`
}

func (c *Conversation) Snapshot() any {
	return Snapshot{Chapter: c.chapter, Turns: c.turns}
}

func (c *Conversation) RestartStory(ctx context.Context, _ struct{}) (string, error) {
	c.chapter++
	c.turns = 0
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return fmt.Sprintf("The story restarts. Chapter %d begins with a fresh opening scene.", c.chapter), nil
}

func (c *Conversation) StoryStatus(_ context.Context, _ struct{}) (string, error) {
	return fmt.Sprintf("We are in chapter %d, %d turns in.", c.chapter, c.turns), nil
}

// ShapeReply counts the turn and makes the reply end with Prompt exactly once.
func (c *Conversation) ShapeReply(reply string) string {
	c.turns++

	body := strings.TrimSpace(reply)
	for {
		lower := strings.ToLower(body)
		if !strings.HasSuffix(lower, strings.ToLower(Prompt)) {
			break
		}
		body = strings.TrimSpace(body[:len(body)-len(Prompt)])
	}
	if body == "" {
		return Prompt
	}
	return body + " " + Prompt
}
