// Package agentkit holds helpers shared by the agent packages.
package agentkit

import (
	"context"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/broadcast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title upper-cases the first letter of every word.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}

// JoinAnd renders "a", "a and b", "a, b and c".
func JoinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

// Timestamp is the persisted entry time format, RFC 3339 in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func Clock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

// Emitter publishes events for one conversation.
type Emitter struct {
	Publisher contractx.Publisher
	SessionID string
	Agent     contractx.AgentType
	Now       func() time.Time
}

func (e Emitter) Emit(ctx context.Context, kind string, payload any) {
	broadcast.Emit(ctx, e.Publisher, contractx.Event{
		SessionID: e.SessionID,
		Agent:     e.Agent,
		Kind:      kind,
		Payload:   payload,
		At:        Clock(e.Now)().UTC(),
	})
}
