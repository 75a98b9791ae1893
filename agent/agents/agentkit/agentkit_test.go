package agentkit

import (
	"context"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

type recorder struct {
	events []contractx.Event
}

func (r *recorder) Publish(_ context.Context, ev contractx.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func TestTitle(t *testing.T) {
	t.Parallel()

	if got := Title("cold brew"); got != "Cold Brew" {
		t.Fatalf("Title() = %q", got)
	}
}

func TestJoinAnd(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"":           nil,
		"a":          {"a"},
		"a and b":    {"a", "b"},
		"a, b and c": {"a", "b", "c"},
	}
	for want, in := range cases {
		if got := JoinAnd(in); got != want {
			t.Fatalf("JoinAnd(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestEmitterStampsEvent(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC)
	rec := &recorder{}
	e := Emitter{Publisher: rec, SessionID: "s-1", Agent: contractx.AgentTypeCoffee, Now: func() time.Time { return fixed }}
	e.Emit(context.Background(), contractx.EventStateUpdated, map[string]string{"size": "small"})

	if len(rec.events) != 1 {
		t.Fatalf("published %d events", len(rec.events))
	}
	ev := rec.events[0]
	if ev.SessionID != "s-1" || ev.Agent != contractx.AgentTypeCoffee || !ev.At.Equal(fixed) {
		t.Fatalf("event = %+v", ev)
	}
}

func TestTimestampIsUTC(t *testing.T) {
	t.Parallel()

	local := time.Date(2025, 11, 22, 10, 15, 0, 0, time.FixedZone("ICT", 7*60*60))
	if got := Timestamp(local); got != "2025-11-22T03:15:00Z" {
		t.Fatalf("Timestamp() = %q, want 2025-11-22T03:15:00Z", got)
	}
}
