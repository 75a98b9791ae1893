package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/Chative-Voice-Agents/agent/nodes/orchestrator"
)

const (
	nodeValidate = "validate_request"
	nodeFinalize = "finalize_reply"
)

type turnStage struct {
	name string
	run  func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error)
}

// turnStages are the state-to-state steps of one conversational turn, in
// execution order. They sit between request validation and reply finalization.
func (o *Orchestrator) turnStages() []turnStage {
	return []turnStage{
		{"load_session", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadSession(ctx, in, o.store, o.models)
		}},
		{"run_turn", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RunTurn(ctx, in, o.maxRounds)
		}},
		{"shape_reply", func(_ context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ShapeReply(in)
		}},
		{"save_session", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveSession(ctx, in, o.store)
		}},
	}
}

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	validate := compose.InvokableLambda(func(_ context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
		return nodex.ValidateRequest(in, o.now)
	})
	if err := graph.AddLambdaNode(nodeValidate, validate); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidate, err)
	}

	order := []string{compose.START, nodeValidate}
	for _, stage := range o.turnStages() {
		if err := graph.AddLambdaNode(stage.name, compose.InvokableLambda(stage.run)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", stage.name, err)
		}
		order = append(order, stage.name)
	}

	finalize := compose.InvokableLambda(func(_ context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
		return nodex.FinalizeReply(in)
	})
	if err := graph.AddLambdaNode(nodeFinalize, finalize); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinalize, err)
	}
	order = append(order, nodeFinalize, compose.END)

	for i := 1; i < len(order); i++ {
		if err := graph.AddEdge(order[i-1], order[i]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", order[i-1], order[i], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("voiceagents.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
