package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to one agent over stdin, as text instead of voice",
	Long: `Talk to one agent over stdin.

Plain lines go through the chat model. Lines of the form
  /tool <name> <json args>
call a tool directly, and /quit ends the session.

Examples:
  voiceagents chat --agent coffee
  voiceagents chat --agent fraud --env .env.demo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("agent")
		agentType, err := contractx.ParseAgentType(raw)
		if err != nil {
			return err
		}

		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return chatLoop(cmd.Context(), a.svc, agentType, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().String("agent", string(contractx.AgentTypeWellness), "agent to talk to")
}

func chatLoop(ctx context.Context, svc *orchestrator.Orchestrator, agentType contractx.AgentType, in io.Reader, out io.Writer) error {
	started, err := svc.StartSession(ctx, agentType)
	if err != nil {
		return err
	}
	defer svc.EndSession(context.WithoutCancel(ctx), started.SessionID)

	if started.Greeting != "" {
		fmt.Fprintf(out, "%s> %s\n", agentType, started.Greeting)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/tool "):
			name, args, _ := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "/tool ")), " ")
			res, err := svc.CallTool(ctx, started.SessionID, name, strings.TrimSpace(args))
			if res.Error != "" {
				fmt.Fprintf(out, "%s! %s\n", name, res.Error)
				continue
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s> %s\n", name, res.Result)
		default:
			reply, err := svc.Reply(ctx, started.SessionID, line)
			if errors.Is(err, orchestrator.ErrNoModel) {
				fmt.Fprintln(out, "! no chat model configured, set OPENROUTER_API_KEY or use /tool")
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error().Err(err).Str("session_id", started.SessionID).Msg("chat turn failed")
				fmt.Fprintf(out, "! the agent couldn't answer that (%v), try again or use /tool\n", err)
				continue
			}
			fmt.Fprintf(out, "%s> %s\n", agentType, reply)
		}
	}
	return scanner.Err()
}
