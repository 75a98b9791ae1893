package api

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	mcpServerName    = "voice-agents"
	mcpServerVersion = "1.0.0"
	stateResourceURI = "session://state"
)

// NewMCPServer exposes the tools of one live session. The session must
// already exist; every tool call is routed to it.
func NewMCPServer(ctx context.Context, svc Service, sessionID string) (*server.MCPServer, error) {
	view, err := svc.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tools, err := mcpTools(ctx, svc, view.SessionID)
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer(
		mcpServerName,
		mcpServerVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions(fmt.Sprintf("Tools of the %s voice agent, session %s.", view.Agent, view.SessionID)),
		server.WithRecovery(),
	)
	s.AddTools(tools...)
	s.AddResource(
		mcp.NewResource(
			stateResourceURI,
			"Session State",
			mcp.WithResourceDescription("Current conversation state as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceState(svc, view.SessionID),
	)
	return s, nil
}

func mcpTools(ctx context.Context, svc Service, sessionID string) ([]server.ServerTool, error) {
	descs, err := svc.Tools(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]server.ServerTool, 0, len(descs))
	for _, d := range descs {
		schema, err := sonic.Marshal(d.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for tool=%s: %w", d.Name, err)
		}
		out = append(out, server.ServerTool{
			Tool:    mcp.NewToolWithRawSchema(d.Name, d.Description, schema),
			Handler: mcpCallTool(svc, sessionID, d.Name),
		})
	}
	return out, nil
}

func mcpCallTool(svc Service, sessionID, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := "{}"
		if raw := req.GetArguments(); len(raw) > 0 {
			b, err := sonic.Marshal(raw)
			if err != nil {
				return mcpError(fmt.Sprintf("failed to marshal arguments: %v", err)), nil
			}
			args = string(b)
		}

		res, err := svc.CallTool(ctx, sessionID, name, args)
		switch {
		case res.Error != "":
			return mcpError(res.Error), nil
		case err != nil:
			return mcpError(err.Error()), nil
		}
		return mcpText(res.Result), nil
	}
}

func mcpResourceState(svc Service, sessionID string) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		view, err := svc.Session(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		b, err := sonic.Marshal(view)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal session: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
