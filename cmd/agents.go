package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the available agents and their voice profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "AGENT\tVOICE\tMODEL\tDESCRIPTION")
		for _, ag := range a.registry.List() {
			voice := a.voices[ag.Type()]
			model := a.llmConf.OpenRouterFor(ag.Type()).Model
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ag.Type(), voice.TTS.Voice, model, ag.Description())
		}
		return w.Flush()
	},
}
