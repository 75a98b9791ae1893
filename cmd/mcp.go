package cmd

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/api"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve one agent session's tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("agent")
		agentType, err := contractx.ParseAgentType(raw)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		started, err := a.svc.StartSession(ctx, agentType)
		if err != nil {
			return err
		}
		defer a.svc.EndSession(context.WithoutCancel(ctx), started.SessionID)

		s, err := api.NewMCPServer(ctx, a.svc, started.SessionID)
		if err != nil {
			return err
		}
		log.Info().Str("session_id", started.SessionID).Str("agent", string(agentType)).Msg("serving mcp on stdio")
		return server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	mcpCmd.Flags().String("agent", string(contractx.AgentTypeCoffee), "agent whose tools are served")
}
