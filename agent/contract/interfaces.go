package contract

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
)

// Agent builds one session-scoped Conversation per caller.
type Agent interface {
	Type() AgentType
	Description() string
	NewConversation(ctx context.Context, sessionID string) (Conversation, error)
}

// Conversation owns the state of exactly one caller. Tool calls for a
// conversation arrive one at a time.
type Conversation interface {
	SessionID() string
	AgentType() AgentType
	Instructions() string
	Tools() []tool.InvokableTool
	Snapshot() any
}

// ReplyShaper rewrites the model's outgoing reply before it is spoken.
type ReplyShaper interface {
	ShapeReply(reply string) string
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
