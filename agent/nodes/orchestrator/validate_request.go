package orchestratornode

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
)

// MaxMessageRunes bounds a single user utterance.
const MaxMessageRunes = 4000

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrInvalidSession = errors.New("session id is empty")
	ErrToolLoop       = errors.New("model kept calling tools")
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply       string
	ToolResults []contractx.ToolResult
	View        statex.View
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session *statex.Session
	Model   einomodel.ToolCallingChatModel

	// Turn holds the messages produced this turn; they join the session
	// history only once the turn succeeds.
	Turn        []*schema.Message
	Reply       string
	ToolResults []contractx.ToolResult
}

// ValidateRequest trims the session id and folds the utterance onto one
// line. Speech transcripts often carry stray breaks and double spaces.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	id := strings.TrimSpace(in.SessionID)
	if id == "" {
		return nil, ErrInvalidSession
	}

	utterance := strings.Join(strings.Fields(in.Text), " ")
	switch n := utf8.RuneCountInString(utterance); {
	case n == 0:
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidMessage)
	case n > MaxMessageRunes:
		return nil, fmt.Errorf("%w: %d characters exceeds %d", ErrInvalidMessage, n, MaxMessageRunes)
	}

	return &GraphState{SessionID: id, Text: utterance, Now: nowFn().UTC()}, nil
}
