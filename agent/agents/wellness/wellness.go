package wellness

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	kit "github.com/tanpawarit/Chative-Voice-Agents/agent/agents/agentkit"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

const LogFile = "wellness/wellness_log.json"

const maxGoals = 3

var checkinSchema = statex.NewSchema(
	statex.Slot{Name: "mood", Label: "mood", Required: true},
	statex.Slot{Name: "energy", Label: "energy", Required: true},
	statex.Slot{Name: "stress", Label: "stress", Required: true},
	statex.Slot{Name: "goals", Label: "goals", Kind: statex.KindList, Required: true, MaxItems: maxGoals},
)

// Entry is one completed check-in.
type Entry struct {
	Timestamp string   `json:"timestamp"`
	Mood      string   `json:"mood"`
	Energy    string   `json:"energy"`
	Stress    string   `json:"stress"`
	Goals     []string `json:"goals"`
	Summary   string   `json:"summary"`
}

type Config struct {
	Files     *flatfile.Store
	Prompts   promptx.PromptSet
	Publisher contractx.Publisher
	Now       func() time.Time
}

type Agent struct {
	cfg Config
	mu  sync.Mutex
}

func New(cfg Config) *Agent {
	cfg.Now = kit.Clock(cfg.Now)
	return &Agent{cfg: cfg}
}

func (a *Agent) Type() contractx.AgentType { return contractx.AgentTypeWellness }

func (a *Agent) Description() string {
	return "Daily wellness companion that records mood, energy, stress and goals."
}

func (a *Agent) NewConversation(_ context.Context, sessionID string) (contractx.Conversation, error) {
	c := &Conversation{
		agent:     a,
		sessionID: sessionID,
		checkin:   checkinSchema.NewRecord(),
		events: kit.Emitter{
			Publisher: a.cfg.Publisher,
			SessionID: sessionID,
			Agent:     contractx.AgentTypeWellness,
			Now:       a.cfg.Now,
		},
	}
	c.tools = []einotool.InvokableTool{
		toolx.New("set_mood", "Record how the user feels today.",
			map[string]*schema.ParameterInfo{"mood": toolx.String("Mood in the user's words", true)},
			c.SetMood),
		toolx.New("set_energy", "Record the user's energy level.",
			map[string]*schema.ParameterInfo{"energy": toolx.String("Energy level in the user's words", true)},
			c.SetEnergy),
		toolx.New("set_stress", "Record what is stressing the user, or that nothing is.",
			map[string]*schema.ParameterInfo{"stress": toolx.String("Stress source", true)},
			c.SetStress),
		toolx.New("set_goals", "Record one to three goals for today.",
			map[string]*schema.ParameterInfo{"goals": toolx.StringList("Goals for today", nil, true)},
			c.SetGoals),
		toolx.New("complete_checkin", "Save the check-in once everything is covered.", nil,
			c.CompleteCheckin),
		toolx.New("read_past", "Read the most recent previous check-in.", nil,
			c.ReadPast),
	}
	return c, nil
}

type Conversation struct {
	agent     *Agent
	sessionID string
	checkin   *statex.Record
	events    kit.Emitter
	tools     []einotool.InvokableTool
}

func (c *Conversation) SessionID() string              { return c.sessionID }
func (c *Conversation) AgentType() contractx.AgentType { return contractx.AgentTypeWellness }
func (c *Conversation) Instructions() string {
	return c.agent.cfg.Prompts.Render(contractx.AgentTypeWellness, nil)
}
func (c *Conversation) Tools() []einotool.InvokableTool { return c.tools }

func (c *Conversation) Snapshot() any {
	return map[string]any{
		"checkin":  c.checkin.Values(),
		"missing":  c.checkin.Missing(),
		"complete": c.checkin.IsComplete(),
	}
}

type MoodArgs struct {
	Mood string `json:"mood"`
}

type EnergyArgs struct {
	Energy string `json:"energy"`
}

type StressArgs struct {
	Stress string `json:"stress"`
}

type GoalsArgs struct {
	Goals []string `json:"goals"`
}

func (c *Conversation) setText(ctx context.Context, slot, value, ack string) (string, error) {
	if _, err := c.checkin.Set(slot, value); err != nil {
		return "", err
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return ack, nil
}

func (c *Conversation) SetMood(ctx context.Context, in MoodArgs) (string, error) {
	return c.setText(ctx, "mood", in.Mood, "Thanks for sharing how you're feeling.")
}

func (c *Conversation) SetEnergy(ctx context.Context, in EnergyArgs) (string, error) {
	return c.setText(ctx, "energy", in.Energy, "Got it, I've noted your energy.")
}

func (c *Conversation) SetStress(ctx context.Context, in StressArgs) (string, error) {
	return c.setText(ctx, "stress", in.Stress, "Thanks, I've noted what's on your mind.")
}

func (c *Conversation) SetGoals(ctx context.Context, in GoalsArgs) (string, error) {
	goals, err := c.checkin.SetList("goals", in.Goals)
	if err != nil {
		return "", err
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	if len(goals) == 0 {
		return "What's one small thing you'd like to get done today?", nil
	}
	return fmt.Sprintf("Great, your goals are %s.", kit.JoinAnd(goals)), nil
}

// Summary follows the fixed check-in template.
func (c *Conversation) Summary() string {
	return fmt.Sprintf("Today you are feeling %s, energy is %s, stress from %s, and your goals are %s.",
		c.checkin.Text("mood"),
		c.checkin.Text("energy"),
		c.checkin.Text("stress"),
		strings.Join(c.checkin.List("goals"), ", "),
	)
}

func (c *Conversation) CompleteCheckin(ctx context.Context, _ struct{}) (string, error) {
	f := statex.Finalizer[Entry]{
		Missing: c.checkin.Missing,
		Build: func(at time.Time) (Entry, string, error) {
			summary := c.Summary()
			return Entry{
				Timestamp: kit.Timestamp(at),
				Mood:      c.checkin.Text("mood"),
				Energy:    c.checkin.Text("energy"),
				Stress:    c.checkin.Text("stress"),
				Goals:     c.checkin.List("goals"),
				Summary:   summary,
			}, summary, nil
		},
		Persist: c.agent.persist,
		Now:     c.agent.cfg.Now,
	}

	out, err := f.Finalize(ctx)
	if err != nil {
		return "", err
	}
	if !out.Complete() {
		return fmt.Sprintf("We still haven't covered everything. I still need your %s.", kit.JoinAnd(out.Missing)), nil
	}
	c.events.Emit(ctx, contractx.EventFinalized, out.Entry)
	return out.Summary + " I've saved today's check-in.", nil
}

func (a *Agent) persist(_ context.Context, e Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := flatfile.Append(a.cfg.Files, LogFile, e)
	return err
}

func (c *Conversation) ReadPast(_ context.Context, _ struct{}) (string, error) {
	last, res := flatfile.Last[Entry](c.agent.cfg.Files, LogFile)
	switch res.Status {
	case flatfile.StatusCorrupt:
		log.Error().Err(res.Err).Str("session_id", c.sessionID).Msg("wellness history unreadable")
		return "I couldn't read our past check-ins, so let's treat today as a fresh start.", nil
	case flatfile.StatusMissing, flatfile.StatusEmpty:
		return "This seems like our first check-in together.", nil
	}
	if len(res.Value) == 0 {
		return "This seems like our first check-in together.", nil
	}
	return fmt.Sprintf("Last time you said your mood was %s and your energy was %s. How does today compare?",
		last.Mood, last.Energy), nil
}
