// Package agents wires every voice agent behind one registry.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/coffee"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/fraud"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/gamemaster"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/grocery"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/sdr"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/tutor"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/wellness"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

// Deps are shared by every agent.
type Deps struct {
	Catalog   *catalog.Catalog
	Files     *flatfile.Store
	Prompts   promptx.PromptSet
	Publisher contractx.Publisher
	Now       func() time.Time
}

type Registry struct {
	agents map[contractx.AgentType]contractx.Agent
	order  []contractx.AgentType
}

func NewRegistry(d Deps) (*Registry, error) {
	if d.Catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", contractx.ErrValidation)
	}
	if d.Files == nil {
		return nil, fmt.Errorf("%w: flat file store is required", contractx.ErrValidation)
	}
	if d.Prompts == nil {
		prompts, err := promptx.LoadPromptSet()
		if err != nil {
			return nil, err
		}
		d.Prompts = prompts
	}

	r := &Registry{agents: make(map[contractx.AgentType]contractx.Agent, len(contractx.AllAgentTypes))}
	r.Register(wellness.New(wellness.Config{Files: d.Files, Prompts: d.Prompts, Publisher: d.Publisher, Now: d.Now}))
	r.Register(coffee.New(coffee.Config{Files: d.Files, Prompts: d.Prompts, Publisher: d.Publisher, Now: d.Now}))
	r.Register(tutor.New(tutor.Config{Catalog: d.Catalog, Files: d.Files, Prompts: d.Prompts, Publisher: d.Publisher, Now: d.Now}))
	r.Register(sdr.New(sdr.Config{Catalog: d.Catalog, Files: d.Files, Prompts: d.Prompts, Publisher: d.Publisher, Now: d.Now}))
	r.Register(fraud.New(fraud.Config{Catalog: d.Catalog, Files: d.Files, Prompts: d.Prompts, Publisher: d.Publisher, Now: d.Now}))
	r.Register(grocery.New(grocery.Config{Catalog: d.Catalog, Files: d.Files, Prompts: d.Prompts, Publisher: d.Publisher, Now: d.Now}))
	r.Register(gamemaster.New(gamemaster.Config{Prompts: d.Prompts, Publisher: d.Publisher, Now: d.Now}))
	return r, nil
}

// Register adds or replaces an agent. Later registrations keep the
// original listing position.
func (r *Registry) Register(a contractx.Agent) {
	if _, ok := r.agents[a.Type()]; !ok {
		r.order = append(r.order, a.Type())
	}
	r.agents[a.Type()] = a
}

func (r *Registry) Get(agentType contractx.AgentType) (contractx.Agent, error) {
	a, ok := r.agents[agentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownAgent, agentType)
	}
	return a, nil
}

func (r *Registry) List() []contractx.Agent {
	out := make([]contractx.Agent, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.agents[t])
	}
	return out
}

// Tools describes the tool surface of an agent without starting a real session.
func (r *Registry) Tools(ctx context.Context, agentType contractx.AgentType) ([]toolx.Descriptor, error) {
	a, err := r.Get(agentType)
	if err != nil {
		return nil, err
	}
	conv, err := a.NewConversation(ctx, "describe-"+string(agentType))
	if err != nil {
		return nil, err
	}
	set, err := toolx.NewSet(ctx, agentType, conv.Tools())
	if err != nil {
		return nil, err
	}
	return set.Descriptors()
}
