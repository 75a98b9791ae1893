package sdr

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tanpawarit/Chative-Voice-Agents/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

func newTestConversation(t *testing.T) (*Conversation, *flatfile.Store) {
	t.Helper()

	files := flatfile.New(t.TempDir())
	agent := New(Config{
		Catalog: catalog.MustLoad(),
		Files:   files,
		Prompts: promptx.MustLoadPromptSet(),
		Now:     func() time.Time { return time.Date(2025, 11, 24, 9, 30, 0, 0, time.UTC) },
	})
	conv, err := agent.NewConversation(context.Background(), "sess-sdr")
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	return conv.(*Conversation), files
}

func fill(t *testing.T, c *Conversation, fields map[string]string) {
	t.Helper()
	for slot, value := range fields {
		var err error
		if slot == "email" {
			_, err = c.SetEmail(context.Background(), FieldArgs{Value: value})
		} else {
			_, err = c.setter(slot)(context.Background(), FieldArgs{Value: value})
		}
		if err != nil {
			t.Fatalf("set %s error = %v", slot, err)
		}
	}
}

func TestFAQLookup(t *testing.T) {
	t.Parallel()

	c, _ := newTestConversation(t)
	answer, err := c.FAQLookup(context.Background(), QuestionArgs{Question: "how much does it cost"})
	if err != nil {
		t.Fatalf("FAQLookup() error = %v", err)
	}
	if !strings.Contains(answer, "free tier") {
		t.Fatalf("answer = %q", answer)
	}

	_, err = c.FAQLookup(context.Background(), QuestionArgs{Question: "zebra"})
	if !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("FAQLookup() error = %v, want ErrNotFound", err)
	}
}

func TestFinalizeLeadMissingOrder(t *testing.T) {
	t.Parallel()

	c, files := newTestConversation(t)
	fill(t, c, map[string]string{"name": "Asha"})

	reply, err := c.FinalizeLead(context.Background(), struct{}{})
	if err != nil {
		t.Fatalf("FinalizeLead() error = %v", err)
	}
	if !strings.Contains(reply, "company, email, role, use case.") {
		t.Fatalf("reply = %q", reply)
	}
	if res := flatfile.Read[[]Entry](files, LeadsFile); res.Status != flatfile.StatusMissing {
		t.Fatalf("leads status = %s, want missing", res.Status)
	}
}

func TestFinalizeLeadPersists(t *testing.T) {
	t.Parallel()

	c, files := newTestConversation(t)
	fill(t, c, map[string]string{
		"name":     "Asha",
		"company":  "Acme",
		"email":    "asha@acme.io",
		"role":     "CTO",
		"use_case": "hosting our APIs",
	})

	if _, err := c.FinalizeLead(context.Background(), struct{}{}); err != nil {
		t.Fatalf("FinalizeLead() error = %v", err)
	}

	want := "Asha from Acme works as CTO. They want to use the product for: hosting our APIs. Team size: not specified. Timeline: not specified."
	latest := flatfile.Read[Entry](files, LatestLeadFile)
	if !latest.Found() {
		t.Fatalf("latest status = %s", latest.Status)
	}
	if latest.Value.Summary != want {
		t.Fatalf("summary = %q, want %q", latest.Value.Summary, want)
	}
	if latest.Value.Timestamp != "2025-11-24T09:30:00Z" {
		t.Fatalf("timestamp = %q", latest.Value.Timestamp)
	}
	if latest.Value.Lead.Notes != want {
		t.Fatalf("notes = %q", latest.Value.Lead.Notes)
	}
	if n := len(flatfile.Read[[]Entry](files, LeadsFile).Value); n != 1 {
		t.Fatalf("leads = %d, want 1", n)
	}
}

func TestFinalizeLeadTwiceDuplicatesEntry(t *testing.T) {
	t.Parallel()

	c, files := newTestConversation(t)
	fill(t, c, map[string]string{
		"name":     "Asha",
		"company":  "Acme",
		"email":    "asha@acme.io",
		"role":     "CTO",
		"use_case": "hosting our APIs",
	})

	for i := 0; i < 2; i++ {
		if _, err := c.FinalizeLead(context.Background(), struct{}{}); err != nil {
			t.Fatalf("FinalizeLead() error = %v", err)
		}
	}
	if n := len(flatfile.Read[[]Entry](files, LeadsFile).Value); n != 2 {
		t.Fatalf("leads = %d, want 2", n)
	}
}

func TestTimelineRestricted(t *testing.T) {
	t.Parallel()

	c, _ := newTestConversation(t)
	_, err := c.setter("timeline")(context.Background(), FieldArgs{Value: "next decade"})
	var slotErr *statex.SlotError
	if !errors.As(err, &slotErr) {
		t.Fatalf("set timeline error = %v, want SlotError", err)
	}
	if _, err := c.setter("timeline")(context.Background(), FieldArgs{Value: "Soon"}); err != nil {
		t.Fatalf("set timeline error = %v", err)
	}
	if !strings.Contains(c.Summary(), "Timeline: soon.") {
		t.Fatalf("Summary() = %q", c.Summary())
	}
}

func TestSetEmailRejectsGarbage(t *testing.T) {
	t.Parallel()

	c, _ := newTestConversation(t)
	_, err := c.SetEmail(context.Background(), FieldArgs{Value: "not-an-email"})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("SetEmail() error = %v, want ErrValidation", err)
	}
}
