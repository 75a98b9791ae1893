package tutor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	kit "github.com/tanpawarit/Chative-Voice-Agents/agent/agents/agentkit"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

const ProgressFile = "tutor/tutor_progress.json"

const (
	ModeLearn     = "learn"
	ModeQuiz      = "quiz"
	ModeTeachBack = "teach_back"
)

var Modes = []string{ModeLearn, ModeQuiz, ModeTeachBack}

// Progress counts how often each mode ran for one concept.
type Progress struct {
	Learn       int    `json:"learn"`
	Quiz        int    `json:"quiz"`
	TeachBack   int    `json:"teach_back"`
	LastUpdated string `json:"last_updated"`
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
	schema       *statex.Schema
	instructions string
}

func New(cfg Config) *Agent {
	cfg.Now = kit.Clock(cfg.Now)

	titles := make([]string, 0, len(cfg.Catalog.Concepts))
	for _, c := range cfg.Catalog.Concepts {
		titles = append(titles, fmt.Sprintf("%s (id %s)", c.Title, c.ID))
	}

	return &Agent{
		cfg: cfg,
		schema: statex.NewSchema(
			statex.Slot{Name: "mode", Label: "mode", Required: true, Options: Modes},
			statex.Slot{Name: "concept", Label: "concept", Required: true, Options: cfg.Catalog.ConceptIDs()},
		),
		instructions: cfg.Prompts.Render(contractx.AgentTypeTutor, map[string]string{
			"concepts": strings.Join(titles, ", "),
		}),
	}
}

func (a *Agent) Type() contractx.AgentType { return contractx.AgentTypeTutor }

func (a *Agent) Description() string {
	return "Active-recall coding tutor with learn, quiz and teach-back modes."
}

func (a *Agent) NewConversation(_ context.Context, sessionID string) (contractx.Conversation, error) {
	c := &Conversation{
		agent:     a,
		sessionID: sessionID,
		state:     a.schema.NewRecord(),
		events: kit.Emitter{
			Publisher: a.cfg.Publisher,
			SessionID: sessionID,
			Agent:     contractx.AgentTypeTutor,
			Now:       a.cfg.Now,
		},
	}
	if _, err := c.state.Set("mode", ModeLearn); err != nil {
		return nil, err
	}

	ids := a.cfg.Catalog.ConceptIDs()
	c.tools = []einotool.InvokableTool{
		toolx.New("set_mode", "Switch the learning mode.",
			map[string]*schema.ParameterInfo{"mode": toolx.Enum("Learning mode", Modes, true)},
			c.SetMode),
		toolx.New("set_concept", "Choose the concept to study.",
			map[string]*schema.ParameterInfo{"concept_id": toolx.Enum("Concept id", ids, true)},
			c.SetConcept),
		toolx.New("learn_concept", "Explain the current concept.", nil, c.LearnConcept),
		toolx.New("quiz_concept", "Ask the quiz question for the current concept.", nil, c.QuizConcept),
		toolx.New("teach_back_prompt", "Ask the learner to explain the current concept back.", nil, c.TeachBackPrompt),
		toolx.New("list_concepts", "List the concepts that can be studied.", nil, c.ListConcepts),
		toolx.New("get_progress", "Report how often each concept was practiced.", nil, c.GetProgress),
	}
	return c, nil
}

type Conversation struct {
	agent     *Agent
	sessionID string
	state     *statex.Record
	events    kit.Emitter
	tools     []einotool.InvokableTool
}

func (c *Conversation) SessionID() string               { return c.sessionID }
func (c *Conversation) AgentType() contractx.AgentType  { return contractx.AgentTypeTutor }
func (c *Conversation) Instructions() string            { return c.agent.instructions }
func (c *Conversation) Tools() []einotool.InvokableTool { return c.tools }

func (c *Conversation) Snapshot() any {
	return c.state.Values()
}

func (c *Conversation) Mode() string {
	return c.state.Text("mode")
}

type ModeArgs struct {
	Mode string `json:"mode"`
}

type ConceptArgs struct {
	ConceptID string `json:"concept_id"`
}

func (c *Conversation) SetMode(ctx context.Context, in ModeArgs) (string, error) {
	mode, err := c.state.Set("mode", in.Mode)
	if err != nil {
		return "", err
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	switch mode {
	case ModeLearn:
		return "Switched to learn mode. I'll explain concepts step by step.", nil
	case ModeQuiz:
		return "Switched to quiz mode. I'll ask you questions to test your understanding.", nil
	default:
		return "Switched to teach-back mode. You'll explain concepts to me and I'll give feedback.", nil
	}
}

func (c *Conversation) SetConcept(ctx context.Context, in ConceptArgs) (string, error) {
	id := strings.ToLower(strings.TrimSpace(in.ConceptID))
	concept, ok := c.agent.cfg.Catalog.Concept(id)
	if !ok {
		return "", contractx.Reply(contractx.ErrNotFound, "I don't know the concept %q. Available ones are: %s.",
			in.ConceptID, strings.Join(c.agent.cfg.Catalog.ConceptIDs(), ", "))
	}
	if _, err := c.state.Set("concept", concept.ID); err != nil {
		return "", err
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return fmt.Sprintf("Great, we'll work on %s.", concept.Title), nil
}

// current resolves the active concept, defaulting to the first one.
func (c *Conversation) current() (catalog.Concept, bool) {
	if id := c.state.Text("concept"); id != "" {
		return c.agent.cfg.Catalog.Concept(id)
	}
	if len(c.agent.cfg.Catalog.Concepts) == 0 {
		return catalog.Concept{}, false
	}
	first := c.agent.cfg.Catalog.Concepts[0]
	if _, err := c.state.Set("concept", first.ID); err != nil {
		return catalog.Concept{}, false
	}
	return first, true
}

func (c *Conversation) practice(ctx context.Context, mode string) (catalog.Concept, bool, error) {
	concept, ok := c.current()
	if !ok {
		return catalog.Concept{}, false, nil
	}
	if _, err := c.state.Set("mode", mode); err != nil {
		return catalog.Concept{}, false, err
	}
	if err := c.agent.bump(concept.ID, mode); err != nil {
		return catalog.Concept{}, false, err
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return concept, true, nil
}

func (c *Conversation) LearnConcept(ctx context.Context, _ struct{}) (string, error) {
	concept, ok, err := c.practice(ctx, ModeLearn)
	if err != nil {
		return "", err
	}
	if !ok {
		return "I don't have any concepts loaded yet.", nil
	}
	return fmt.Sprintf("Let's learn %s. %s When you're ready, say quiz me, or let me teach it back.",
		concept.Title, concept.Summary), nil
}

func (c *Conversation) QuizConcept(ctx context.Context, _ struct{}) (string, error) {
	concept, ok, err := c.practice(ctx, ModeQuiz)
	if err != nil {
		return "", err
	}
	if !ok {
		return "First choose a concept to quiz on.", nil
	}
	return fmt.Sprintf("Quiz time for %s. Question: %s Answer in your own words, and then I'll react to it.",
		concept.Title, concept.SampleQuestion), nil
}

func (c *Conversation) TeachBackPrompt(ctx context.Context, _ struct{}) (string, error) {
	concept, ok, err := c.practice(ctx, ModeTeachBack)
	if err != nil {
		return "", err
	}
	if !ok {
		return "Pick a concept first, then we'll do a teach-back round.", nil
	}
	return fmt.Sprintf("Teach-back round on %s. Without reading anything, explain it to me in your own words. "+
		"Try to cover what it is, why it's useful, and one simple example.", concept.Title), nil
}

func (c *Conversation) ListConcepts(_ context.Context, _ struct{}) (string, error) {
	concepts := c.agent.cfg.Catalog.Concepts
	if len(concepts) == 0 {
		return "No tutor content is configured yet.", nil
	}
	parts := make([]string, 0, len(concepts))
	for _, concept := range concepts {
		parts = append(parts, fmt.Sprintf("%s (id %s)", concept.Title, concept.ID))
	}
	return "You can study " + kit.JoinAnd(parts) + ".", nil
}

func (c *Conversation) GetProgress(_ context.Context, _ struct{}) (string, error) {
	res := flatfile.Read[map[string]Progress](c.agent.cfg.Files, ProgressFile)
	switch res.Status {
	case flatfile.StatusCorrupt:
		log.Error().Err(res.Err).Str("session_id", c.sessionID).Msg("tutor progress unreadable")
		return "I couldn't read your progress right now, but we can keep practicing.", nil
	case flatfile.StatusMissing, flatfile.StatusEmpty:
		return "You haven't practiced anything yet.", nil
	}

	ids := make([]string, 0, len(res.Value))
	for id := range res.Value {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		p := res.Value[id]
		parts = append(parts, fmt.Sprintf("%s: learned %d, quizzed %d, taught back %d", id, p.Learn, p.Quiz, p.TeachBack))
	}
	return "Your progress so far. " + strings.Join(parts, "; ") + ".", nil
}

func (a *Agent) bump(conceptID, mode string) error {
	return flatfile.Update(a.cfg.Files, ProgressFile, func(all *map[string]Progress, _ flatfile.Status) error {
		if *all == nil {
			*all = make(map[string]Progress)
		}
		p := (*all)[conceptID]
		switch mode {
		case ModeLearn:
			p.Learn++
		case ModeQuiz:
			p.Quiz++
		case ModeTeachBack:
			p.TeachBack++
		}
		p.LastUpdated = kit.Timestamp(a.cfg.Now())
		(*all)[conceptID] = p
		return nil
	})
}
