package sdr

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	kit "github.com/tanpawarit/Chative-Voice-Agents/agent/agents/agentkit"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

const (
	LeadsFile      = "leads/leads.json"
	LatestLeadFile = "leads/latest_lead.json"
)

var Timelines = []string{"now", "soon", "later"}

const notSpecified = "not specified"

var leadSchema = statex.NewSchema(
	statex.Slot{Name: "name", Label: "name", Required: true},
	statex.Slot{Name: "company", Label: "company", Required: true},
	statex.Slot{Name: "email", Label: "email", Required: true},
	statex.Slot{Name: "role", Label: "role", Required: true},
	statex.Slot{Name: "use_case", Label: "use case", Required: true},
	statex.Slot{Name: "team_size", Label: "team size"},
	statex.Slot{Name: "timeline", Label: "timeline", Options: Timelines},
)

type Lead struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	UseCase  string `json:"use_case"`
	TeamSize string `json:"team_size"`
	Timeline string `json:"timeline"`
	Notes    string `json:"notes"`
}

// Entry is one persisted lead.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Summary   string `json:"summary"`
	Lead      Lead   `json:"lead"`
}

type Config struct {
	Catalog   *catalog.Catalog
	Files     *flatfile.Store
	Prompts   promptx.PromptSet
	Publisher contractx.Publisher
	Now       func() time.Time
}

type Agent struct {
	cfg          Config
	instructions string
	persistMu    sync.Mutex
}

func New(cfg Config) *Agent {
	cfg.Now = kit.Clock(cfg.Now)
	return &Agent{
		cfg:          cfg,
		instructions: cfg.Prompts.Render(contractx.AgentTypeSDR, nil),
	}
}

func (a *Agent) Type() contractx.AgentType { return contractx.AgentTypeSDR }

func (a *Agent) Description() string {
	return "Sales rep that answers product FAQs and qualifies the caller as a lead."
}

func (a *Agent) NewConversation(_ context.Context, sessionID string) (contractx.Conversation, error) {
	c := &Conversation{
		agent:     a,
		sessionID: sessionID,
		lead:      leadSchema.NewRecord(),
		events: kit.Emitter{
			Publisher: a.cfg.Publisher,
			SessionID: sessionID,
			Agent:     contractx.AgentTypeSDR,
			Now:       a.cfg.Now,
		},
	}
	c.tools = c.buildTools()
	return c, nil
}

type Conversation struct {
	agent     *Agent
	sessionID string
	lead      *statex.Record
	events    kit.Emitter
	tools     []einotool.InvokableTool
}

func (c *Conversation) SessionID() string               { return c.sessionID }
func (c *Conversation) AgentType() contractx.AgentType  { return contractx.AgentTypeSDR }
func (c *Conversation) Instructions() string            { return c.agent.instructions }
func (c *Conversation) Tools() []einotool.InvokableTool { return c.tools }

func (c *Conversation) Snapshot() any {
	return map[string]any{
		"lead":     c.lead.Values(),
		"missing":  c.lead.Missing(),
		"complete": c.lead.IsComplete(),
	}
}

type QuestionArgs struct {
	Question string `json:"question"`
}

// FieldArgs carries the single value of a lead setter.
type FieldArgs struct {
	Value string `json:"value"`
}

func (c *Conversation) buildTools() []einotool.InvokableTool {
	field := func(desc string) map[string]*schema.ParameterInfo {
		return map[string]*schema.ParameterInfo{"value": toolx.String(desc, true)}
	}
	return []einotool.InvokableTool{
		toolx.New("faq_lookup", "Answer a question about the product, company or pricing from the FAQ.",
			map[string]*schema.ParameterInfo{"question": toolx.String("The caller's question", true)},
			c.FAQLookup),
		toolx.New("set_name", "Record the lead's full name.", field("Full name"), c.setter("name")),
		toolx.New("set_company", "Record the lead's company.", field("Company or startup name"), c.setter("company")),
		toolx.New("set_email", "Record the lead's work email.", field("Work email address"), c.SetEmail),
		toolx.New("set_role", "Record the lead's role.", field("Role or designation"), c.setter("role")),
		toolx.New("set_use_case", "Record what the lead wants to use the product for.", field("Use case"), c.setter("use_case")),
		toolx.New("set_team_size", "Record the approximate team size.", field("Team size or user count"), c.setter("team_size")),
		toolx.New("set_timeline", "Record when the lead wants to start.",
			map[string]*schema.ParameterInfo{"value": toolx.Enum("Timeline", Timelines, true)},
			c.setter("timeline")),
		toolx.New("finalize_lead", "Save the lead once the caller is done.", nil, c.FinalizeLead),
	}
}

func (c *Conversation) FAQLookup(_ context.Context, in QuestionArgs) (string, error) {
	entry, ok := c.agent.cfg.Catalog.FindFAQ(in.Question)
	if !ok {
		return "", contractx.Reply(contractx.ErrNotFound,
			"I couldn't find that in our FAQ. I can only share what our documentation covers, but I'm happy to explain at a high level.")
	}
	return entry.Answer, nil
}

func (c *Conversation) set(ctx context.Context, slot, value string) (string, error) {
	v, err := c.lead.Set(slot, value)
	if err != nil {
		return "", err
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return v, nil
}

func (c *Conversation) setter(slot string) toolx.Handler[FieldArgs] {
	return func(ctx context.Context, in FieldArgs) (string, error) {
		v, err := c.set(ctx, slot, in.Value)
		if err != nil {
			return "", err
		}
		s, _ := leadSchema.Slot(slot)
		return fmt.Sprintf("Noted your %s: %s.", s.Label, v), nil
	}
}

func (c *Conversation) SetEmail(ctx context.Context, in FieldArgs) (string, error) {
	email := strings.TrimSpace(in.Value)
	if email != "" && !strings.Contains(email, "@") {
		return "", contractx.Reply(contractx.ErrValidation, "%q doesn't look like an email address. Could you spell it out for me?", email)
	}
	if _, err := c.set(ctx, "email", email); err != nil {
		return "", err
	}
	return "Great, I've noted your email. I'll only use it to follow up.", nil
}

func orNotSpecified(v string) string {
	if v == "" {
		return notSpecified
	}
	return v
}

func (c *Conversation) Summary() string {
	return fmt.Sprintf("%s from %s works as %s. They want to use the product for: %s. Team size: %s. Timeline: %s.",
		c.lead.Text("name"),
		c.lead.Text("company"),
		c.lead.Text("role"),
		c.lead.Text("use_case"),
		orNotSpecified(c.lead.Text("team_size")),
		orNotSpecified(c.lead.Text("timeline")),
	)
}

func (c *Conversation) FinalizeLead(ctx context.Context, _ struct{}) (string, error) {
	out, err := statex.Finalizer[Entry]{
		Missing: c.lead.Missing,
		Build: func(at time.Time) (Entry, string, error) {
			summary := c.Summary()
			return Entry{
				Timestamp: kit.Timestamp(at),
				Summary:   summary,
				Lead: Lead{
					Name:     c.lead.Text("name"),
					Company:  c.lead.Text("company"),
					Email:    c.lead.Text("email"),
					Role:     c.lead.Text("role"),
					UseCase:  c.lead.Text("use_case"),
					TeamSize: c.lead.Text("team_size"),
					Timeline: c.lead.Text("timeline"),
					Notes:    summary,
				},
			}, summary, nil
		},
		Persist: c.agent.persist,
		Now:     c.agent.cfg.Now,
	}.Finalize(ctx)
	if err != nil {
		return "", err
	}
	if !out.Complete() {
		return fmt.Sprintf("Thanks! I'm just missing a few details: %s. If you can share those I'll complete your profile.",
			strings.Join(out.Missing, ", ")), nil
	}
	c.events.Emit(ctx, contractx.EventFinalized, out.Entry)
	return "Here's a short summary. " + out.Summary + " Thank you for your time, and reach out if you have any other questions.", nil
}

func (a *Agent) persist(_ context.Context, entry Entry) error {
	a.persistMu.Lock()
	defer a.persistMu.Unlock()

	if _, err := flatfile.Append(a.cfg.Files, LeadsFile, entry); err != nil {
		return err
	}
	return a.cfg.Files.WriteLatest(LatestLeadFile, entry)
}
