package commands

import (
	"github.com/spf13/cobra"

	"github.com/jfellner/k3seed/cmd/k3seed/handlers"
)

// Doctor returns the command that runs read-only diagnostics.
func Doctor() *cobra.Command {
	var configPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check bootstrap preconditions without changing anything",
		Long: `Check every bootstrap precondition without mutating the system.

Reports configuration completeness, execution identity, network
reachability, tool presence, key material state, and backup bucket
accessibility.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), configPath, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")

	return cmd
}
