package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/tanpawarit/Chative-Voice-Agents/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r, err := NewRegistry(Deps{Catalog: catalog.MustLoad(), Files: flatfile.New(t.TempDir())})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

func TestRegistryListsEveryAgent(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	list := r.List()
	if len(list) != len(contractx.AllAgentTypes) {
		t.Fatalf("List() len = %d, want %d", len(list), len(contractx.AllAgentTypes))
	}
	for i, a := range list {
		if a.Type() != contractx.AllAgentTypes[i] {
			t.Fatalf("List()[%d] = %s, want %s", i, a.Type(), contractx.AllAgentTypes[i])
		}
		if a.Description() == "" {
			t.Fatalf("agent=%s has no description", a.Type())
		}
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	if _, err := r.Get("barber"); !errors.Is(err, contractx.ErrUnknownAgent) {
		t.Fatalf("Get() error = %v, want ErrUnknownAgent", err)
	}
}

func TestRegistryToolsHaveUniqueNames(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	for _, agentType := range contractx.AllAgentTypes {
		descs, err := r.Tools(context.Background(), agentType)
		if err != nil {
			t.Fatalf("Tools(%s) error = %v", agentType, err)
		}
		if len(descs) == 0 {
			t.Fatalf("Tools(%s) is empty", agentType)
		}
		for _, d := range descs {
			if d.Parameters == nil || d.Parameters.Type != "object" {
				t.Fatalf("agent=%s tool=%s parameters = %+v", agentType, d.Name, d.Parameters)
			}
		}
	}
}

func TestNewRegistryRequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := NewRegistry(Deps{Catalog: catalog.MustLoad()}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("NewRegistry() error = %v, want ErrValidation", err)
	}
}
