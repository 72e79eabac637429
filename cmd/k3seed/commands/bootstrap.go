package commands

import (
	"github.com/spf13/cobra"

	"github.com/jfellner/k3seed/cmd/k3seed/handlers"
)

// Bootstrap returns the command that runs the full bootstrap pipeline.
//
// The pipeline is resumable: every stage probes live system state before
// acting, so re-running after a failure only performs the remaining work.
//
// Optional flags:
//
//	--config, -c:   Path to configuration YAML (environment overrides it)
//	--repo, -r:     Path to the GitOps repository checkout (default: .)
//	--restore-key:  Prompt for an existing age private key to restore
func Bootstrap() *cobra.Command {
	var configPath, repoRoot string
	var restoreKey bool

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Run the full bootstrap pipeline",
		Long: `Run the nine-stage bootstrap pipeline.

Validates configuration, personalizes the repository, writes system
configuration, installs k3s, waits for readiness, installs sops/age/flux,
establishes key material, encrypts secrets, and hands off to Flux.

Every stage is idempotent; re-run the command after fixing a failure and
completed stages are skipped.

Examples:
  # Bootstrap with configuration from the environment
  k3seed bootstrap

  # Bootstrap restoring a previously backed-up age key
  k3seed bootstrap --restore-key`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Bootstrap(cmd.Context(), configPath, repoRoot, restoreKey)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&repoRoot, "repo", "r", ".", "Path to the GitOps repository checkout")
	cmd.Flags().BoolVar(&restoreKey, "restore-key", false, "Prompt for an age private key to restore")

	return cmd
}
