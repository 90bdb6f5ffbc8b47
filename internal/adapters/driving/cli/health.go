package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the stores and model providers",
	Long: `Pings the document store, vector store, embedding provider and LLM.
Exits non-zero when any of them is unreachable.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if healthService == nil {
		return errors.New("health service not configured")
	}

	report := healthService.Check(commandContext(cmd))

	if healthJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
	} else {
		for _, c := range report.Components {
			status := "ok"
			if !c.Healthy {
				status = "FAIL"
			}
			cmd.Printf("  %-14s %-4s %s\n", c.Name, status, c.Detail)
		}
		cmd.Printf("\nDocuments indexed: %d\n", report.DocumentCount)
	}

	if !report.Healthy() {
		return errors.New("one or more components are unhealthy")
	}
	return nil
}
