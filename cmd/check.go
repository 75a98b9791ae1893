package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/llm"
	configx "github.com/tanpawarit/Chative-Voice-Agents/pkg/config"
	openrouterx "github.com/tanpawarit/Chative-Voice-Agents/pkg/openrouter"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the OpenRouter credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		llmConf, err := configx.New[llm.Config]("OPENROUTER")
		if err != nil {
			return err
		}
		if err := llmConf.Validate(); err != nil {
			return err
		}
		orConf := llmConf.OpenRouterFor(contractx.AgentTypeWellness)
		n, err := openrouterx.Ping(cmd.Context(), orConf)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "openrouter ok: %d models available, default model %s\n", n, orConf.Model)
		return nil
	},
}
