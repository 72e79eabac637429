// Package commands defines the CLI command structure and flag bindings.
//
// Cobra command definitions here stay thin: argument parsing and flag
// binding only, with execution delegated to the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the k3seed CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "k3seed",
		Short: "Bootstrap a GitOps-managed k3s cluster",
	}

	cmd.AddCommand(Bootstrap())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Init())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
