// Package cmd holds the voiceagents command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/Chative-Voice-Agents/pkg/config"
	logx "github.com/tanpawarit/Chative-Voice-Agents/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "voiceagents",
	Short:         "Voice-driven task assistants behind a tool-calling API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configx.SetEnvFile(envFile)
		logConf, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		// Logs go to stderr; stdout belongs to command output and the MCP transport.
		logx.Init(*logConf)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load instead of .env.local/.env")
	rootCmd.AddCommand(serveCmd, chatCmd, mcpCmd, agentsCmd, checkCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
