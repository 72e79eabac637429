package commands

import (
	"github.com/spf13/cobra"

	"github.com/jfellner/k3seed/cmd/k3seed/handlers"
)

// Init returns the command that interactively creates a configuration
// file.
func Init() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		Long: `Walk through the non-secret bootstrap inputs and write them to a
configuration file. Credentials stay in the environment and are never
written to disk.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Init(output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "k3seed.yaml", "Where to write the configuration file")

	return cmd
}
