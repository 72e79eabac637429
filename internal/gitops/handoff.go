// Package gitops performs the final, irreversible handoff to the
// continuous reconciler.
//
// It provisions the minimal in-cluster prerequisites — the flux-system
// namespace and a secret carrying the age private key so Flux can decrypt
// secret documents — then registers the cluster against the repository via
// a one-shot flux bootstrap. Everything declared under the cluster path
// belongs to the reconciler afterwards.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"

	"github.com/jfellner/k3seed/internal/config"
	"github.com/jfellner/k3seed/internal/k8s"
)

const (
	// Namespace is where the reconciler runs and finds its decryption key.
	Namespace = "flux-system"

	// DecryptionSecretName is the secret Flux's kustomize-controller
	// reads age identities from.
	DecryptionSecretName = "sops-age"

	// decryptionSecretKey is the data key Flux expects.
	decryptionSecretKey = "age.agekey"

	// ClusterPathPrefix is the repository path that scopes this cluster's
	// desired state.
	ClusterPathPrefix = "clusters"
)

// Handoff runs the registration.
type Handoff struct {
	Client *k8s.Client

	// RunCommand is swappable for tests. env entries are appended to the
	// process environment.
	RunCommand func(ctx context.Context, env []string, name string, args ...string) error
}

// New returns a Handoff with production defaults.
func New(client *k8s.Client) *Handoff {
	return &Handoff{
		Client: client,
		RunCommand: func(ctx context.Context, env []string, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Env = append(os.Environ(), env...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		},
	}
}

// Run provisions the in-cluster prerequisites and registers the cluster.
// privateKey is the age key file content; it goes into the decryption
// secret and nowhere else.
func (h *Handoff) Run(ctx context.Context, cfg *config.Config, privateKey []byte) error {
	if err := h.Client.EnsureNamespace(ctx, Namespace); err != nil {
		return err
	}
	if err := h.Client.ApplySecret(ctx, Namespace, DecryptionSecretName, map[string][]byte{
		decryptionSecretKey: privateKey,
	}); err != nil {
		return err
	}

	clusterPath := path.Join(ClusterPathPrefix, cfg.NodeName)
	// The token travels via environment only; it must never show up in a
	// process listing.
	env := []string{"GITHUB_TOKEN=" + cfg.GitHubToken}
	args := []string{
		"bootstrap", "github",
		"--owner", cfg.GitHubOwner,
		"--repository", cfg.GitHubRepository,
		"--path", clusterPath,
		"--personal",
	}
	if err := h.RunCommand(ctx, env, "flux", args...); err != nil {
		return fmt.Errorf("flux bootstrap failed: %w", err)
	}
	return nil
}
