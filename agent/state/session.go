package state

import (
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

// Session binds one live Conversation to its transport-level bookkeeping.
// Callers hold Lock for the duration of a tool call or model turn.
type Session struct {
	ID        string
	Agent     contractx.AgentType
	StartedAt time.Time
	UpdatedAt time.Time

	Conversation contractx.Conversation
	History      []*schema.Message

	sync.Mutex
}

func NewSession(conv contractx.Conversation, now time.Time) *Session {
	return &Session{
		ID:           conv.SessionID(),
		Agent:        conv.AgentType(),
		StartedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
		Conversation: conv,
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// View is a serializable description of a session.
type View struct {
	SessionID string              `json:"session_id"`
	Agent     contractx.AgentType `json:"agent"`
	StartedAt time.Time           `json:"started_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	Turns     int                 `json:"turns"`
	State     any                 `json:"state"`
}

func (s *Session) View() View {
	return View{
		SessionID: s.ID,
		Agent:     s.Agent,
		StartedAt: s.StartedAt,
		UpdatedAt: s.UpdatedAt,
		Turns:     len(s.History),
		State:     s.Conversation.Snapshot(),
	}
}
