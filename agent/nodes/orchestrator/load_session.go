package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
)

// ModelSource hands out the chat model configured for an agent.
type ModelSource interface {
	ChatModel(ctx context.Context, agentType contractx.AgentType) (einomodel.ToolCallingChatModel, error)
}

func LoadSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	models ModelSource,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := store.Load(ctx, in.SessionID)
	if err != nil {
		if errors.Is(err, statex.ErrStateNotFound) {
			return nil, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, in.SessionID)
		}
		return nil, err
	}
	in.Session = sess

	m, err := models.ChatModel(ctx, sess.Agent)
	if err != nil {
		return nil, err
	}
	in.Model = m
	return in, nil
}
