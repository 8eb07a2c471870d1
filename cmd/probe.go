package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/swing-coach/pkg/anthropic"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run an inference self-test against the configured model",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := anthropic.NewClient(cfg.Anthropic.Key)
		result := client.TestConnection(cmd.Context(), cfg.Anthropic.Model, cfg.Anthropic.ProbeMaxTokens)

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "probe: marshal result")
		}
		fmt.Println(string(out))

		if !result.Success {
			return eris.New("inference self-test failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
