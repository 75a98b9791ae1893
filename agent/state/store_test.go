package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

type stubConversation struct {
	id string
}

func (s stubConversation) SessionID() string              { return s.id }
func (s stubConversation) AgentType() contractx.AgentType { return contractx.AgentTypeCoffee }
func (s stubConversation) Instructions() string           { return "" }
func (s stubConversation) Tools() []tool.InvokableTool    { return nil }
func (s stubConversation) Snapshot() any                  { return map[string]string{"id": s.id} }

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	sess := NewSession(stubConversation{id: "s-1"}, time.Now())

	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != sess {
		t.Fatal("Load() returned a different session")
	}
	if got.View().Agent != contractx.AgentTypeCoffee {
		t.Fatalf("View().Agent = %q", got.View().Agent)
	}

	if err := store.Delete(context.Background(), "s-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(context.Background(), "s-1"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestMemoryStoreInvalidSession(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Load(context.Background(), "  "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Load() error = %v, want ErrInvalidSession", err)
	}
	if err := store.Save(context.Background(), nil); !errors.Is(err, ErrNilSession) {
		t.Fatalf("Save() error = %v, want ErrNilSession", err)
	}
}

func TestMemoryStoreSweepExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := NewMemoryStore(WithTTL(time.Minute), WithClock(clock))

	if err := store.Save(context.Background(), NewSession(stubConversation{id: "old"}, now)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := store.Save(context.Background(), NewSession(stubConversation{id: "fresh"}, now)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := store.Load(context.Background(), "old"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load(old) error = %v, want ErrStateNotFound", err)
	}

	dropped := store.Sweep()
	if len(dropped) != 1 || dropped[0].ID != "old" {
		t.Fatalf("Sweep() dropped %d sessions", len(dropped))
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}
}
