package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
)

// RunTurn lets the model answer the user, executing its tool calls against
// the conversation until it replies with plain content.
func RunTurn(ctx context.Context, in *GraphState, maxRounds int) (*GraphState, error) {
	if in == nil || in.Session == nil || in.Model == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}
	conv := in.Session.Conversation

	set, err := toolx.NewSet(ctx, conv.AgentType(), conv.Tools())
	if err != nil {
		return nil, err
	}
	toolModel, err := in.Model.WithTools(set.Infos())
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for agent=%s: %v", contractx.ErrModelInvoke, conv.AgentType(), err)
	}

	in.Turn = []*schema.Message{schema.UserMessage(in.Text)}
	for round := 0; round < maxRounds; round++ {
		msgs := make([]*schema.Message, 0, 1+len(in.Session.History)+len(in.Turn))
		msgs = append(msgs, schema.SystemMessage(conv.Instructions()))
		msgs = append(msgs, in.Session.History...)
		msgs = append(msgs, in.Turn...)

		msg, err := toolModel.Generate(ctx, msgs)
		if err != nil {
			return nil, fmt.Errorf("%w: agent=%s: %v", contractx.ErrModelInvoke, conv.AgentType(), err)
		}
		if msg == nil {
			return nil, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
		}
		in.Turn = append(in.Turn, msg)

		if len(msg.ToolCalls) == 0 {
			in.Reply = strings.TrimSpace(msg.Content)
			return in, nil
		}

		for _, call := range msg.ToolCalls {
			res, err := set.Call(ctx, call.Function.Name, call.Function.Arguments)
			in.ToolResults = append(in.ToolResults, res)

			content := res.Result
			if err != nil {
				content = "error: " + res.Error
			}
			log.Debug().
				Str("session_id", in.SessionID).
				Str("agent", string(conv.AgentType())).
				Str("tool", res.Tool).
				Bool("failed", err != nil).
				Msg("tool call executed")
			in.Turn = append(in.Turn, schema.ToolMessage(content, call.ID))
		}
	}
	return nil, fmt.Errorf("%w: agent=%s rounds=%d", ErrToolLoop, conv.AgentType(), maxRounds)
}
