package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
)

// ShapeReply lets conversations that implement contract.ReplyShaper
// rewrite the outgoing reply.
func ShapeReply(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if shaper, ok := in.Session.Conversation.(contractx.ReplyShaper); ok {
		in.Reply = strings.TrimSpace(shaper.ShapeReply(in.Reply))
	}
	if in.Reply == "" {
		return nil, fmt.Errorf("%w: model returned empty reply", contractx.ErrSchemaViolation)
	}
	if n := len(in.Turn); n > 0 && in.Turn[n-1] != nil {
		last := *in.Turn[n-1]
		last.Content = in.Reply
		in.Turn[n-1] = &last
	}
	return in, nil
}

func SaveSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.History = append(in.Session.History, in.Turn...)
	in.Session.Touch(in.Now)
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, err
	}
	return in, nil
}

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: model returned empty reply", contractx.ErrSchemaViolation)
	}
	return GraphOutput{Reply: reply, ToolResults: in.ToolResults, View: in.Session.View()}, nil
}
