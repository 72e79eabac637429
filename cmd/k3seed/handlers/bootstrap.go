// Package handlers implements the execution logic behind the CLI
// commands.
package handlers

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/jfellner/k3seed/internal/config"
	"github.com/jfellner/k3seed/internal/gitops"
	"github.com/jfellner/k3seed/internal/k8s"
	"github.com/jfellner/k3seed/internal/keymat"
	"github.com/jfellner/k3seed/internal/personalize"
	"github.com/jfellner/k3seed/internal/pipeline"
	"github.com/jfellner/k3seed/internal/preflight"
	"github.com/jfellner/k3seed/internal/runtime"
	"github.com/jfellner/k3seed/internal/secrets"
	"github.com/jfellner/k3seed/internal/sysconfig"
	"github.com/jfellner/k3seed/internal/toolinstall"
)

// Personalization sentinel: while this string is still in the repository
// README the tree has not been personalized yet.
const (
	sentinelFile   = "README.md"
	sentinelString = "example.com"
)

// kubeconfigPath is where the readiness wait and handoff find cluster
// credentials. Variable so tests can redirect it.
var kubeconfigPath = k8s.DefaultKubeconfigPath

// Bootstrap runs the full nine-stage pipeline.
func Bootstrap(ctx context.Context, configPath, repoRoot string, promptRestoreKey bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if promptRestoreKey && cfg.AgeKeyRestore == "" {
		restored, err := readRestoreKey()
		if err != nil {
			return err
		}
		cfg.AgeKeyRestore = restored
	}

	// The temp dir is the only shared mutable resource of the run: it
	// stages downloads, configuration documents, and key material before
	// their elevated installs. It is removed on every exit path,
	// including signal delivery: the signal cancels ctx, the pipeline
	// unwinds, and the deferred remove runs.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tempDir, err := os.MkdirTemp("", "k3seed-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	return pipeline.Run(ctx, buildStages(cfg, repoRoot, tempDir))
}

// buildStages assembles the pipeline. Split out so tests can inspect the
// stage list without running it.
func buildStages(cfg *config.Config, repoRoot, tempDir string) []pipeline.Stage {
	installer := toolinstall.NewInstaller(tempDir)
	rt := runtime.NewInstaller(tempDir, installer)
	writer := sysconfig.NewWriter(tempDir)
	keys := keymat.NewManager(tempDir)

	return []pipeline.Stage{
		{
			Name: "validate configuration",
			Run: func(ctx context.Context) error {
				if err := cfg.Validate(); err != nil {
					return err
				}
				if err := preflight.CheckNotRoot(); err != nil {
					return err
				}
				return preflight.CheckConnectivity(ctx, nil, cfg.ProbeURL)
			},
		},
		{
			Name: "personalize repository",
			Run: func(context.Context) error {
				changed, err := personalize.Personalize(repoRoot, sentinelFile, sentinelString, personalizationRules(cfg))
				if err != nil {
					return err
				}
				if changed > 0 {
					log.Printf("Personalized %d files", changed)
				}
				return nil
			},
		},
		{
			Name: "write system configuration",
			Run: func(ctx context.Context) error {
				k3sDoc, err := sysconfig.K3sConfig(cfg.NodeName, cfg.Domain)
				if err != nil {
					return err
				}
				if _, err := writer.WriteIfAbsent(ctx, sysconfig.K3sConfigPath, k3sDoc); err != nil {
					return err
				}
				registriesDoc, err := sysconfig.RegistriesConfig()
				if err != nil {
					return err
				}
				_, err = writer.WriteIfAbsent(ctx, sysconfig.RegistriesPath, registriesDoc)
				return err
			},
		},
		{
			Name: "write pod security admission configuration",
			Run: func(ctx context.Context) error {
				psaDoc, err := sysconfig.PSAConfig(sysconfig.ExemptNamespaces)
				if err != nil {
					return err
				}
				_, err = writer.WriteIfAbsent(ctx, sysconfig.PSAConfigPath, psaDoc)
				return err
			},
		},
		{
			Name: "install cluster runtime",
			Probe: func(context.Context) (pipeline.State, error) {
				return rt.Probe()
			},
			Run: func(ctx context.Context) error {
				return rt.Install(ctx, cfg.NodeName)
			},
		},
		{
			Name: "wait for node readiness",
			Run: func(ctx context.Context) error {
				client, err := k8s.NewClient(kubeconfigPath)
				if err != nil {
					return err
				}
				return client.WaitForNodeReady(ctx, cfg.NodeName, k8s.DefaultReadyTimeout)
			},
		},
		{
			Name: "install crypto and gitops tools",
			Run: func(ctx context.Context) error {
				tools := append(toolinstall.CryptoTools(), toolinstall.GitOpsTools()...)
				for _, tool := range tools {
					if err := installer.EnsureInstalled(ctx, tool); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Name: "establish key material and encrypt secrets",
			Run: func(ctx context.Context) error {
				recipient, err := keys.Ensure(ctx, cfg.AgeKeyRestore)
				if err != nil {
					return err
				}
				identity, err := keys.Identity()
				if err != nil {
					return err
				}
				enc, err := secrets.New(recipient, identity)
				if err != nil {
					return err
				}
				return encryptSecrets(enc, cfg, repoRoot)
			},
		},
		{
			Name: "hand off to reconciler",
			Run: func(ctx context.Context) error {
				client, err := k8s.NewClient(kubeconfigPath)
				if err != nil {
					return err
				}
				privateKey, err := os.ReadFile(keys.Path)
				if err != nil {
					return fmt.Errorf("failed to read key material: %w", err)
				}
				return gitops.New(client).Run(ctx, cfg, privateKey)
			},
		},
	}
}

// personalizationRules builds the ordered substitution set. The email rule
// runs first so the broader domain rule cannot mangle the address.
func personalizationRules(cfg *config.Config) []personalize.Rule {
	return []personalize.Rule{
		{Pattern: "admin@example.com", Replacement: cfg.ACMEEmail},
		{Pattern: "example.com", Replacement: cfg.Domain},
		{Pattern: "node-placeholder", Replacement: cfg.NodeName},
	}
}

// encryptSecrets provisions every secret document the GitOps tree needs.
func encryptSecrets(enc *secrets.Encryptor, cfg *config.Config, repoRoot string) error {
	secretsDir := filepath.Join(repoRoot, "clusters", cfg.NodeName, "secrets")

	documents := []struct {
		name     string
		generate func() ([]byte, error)
	}{
		{
			name: "cloudflare-api-token.yaml.age",
			generate: func() ([]byte, error) {
				return marshalSecretValues(map[string]string{"api-token": cfg.CloudflareAPIToken})
			},
		},
		{
			name: "backup-credentials.yaml.age",
			generate: func() ([]byte, error) {
				return marshalSecretValues(map[string]string{
					"endpoint":   cfg.S3Endpoint,
					"bucket":     cfg.S3Bucket,
					"access-key": cfg.S3AccessKey,
					"secret-key": cfg.S3SecretKey,
				})
			},
		},
		{
			// nil generator: a fresh random credential on first provision.
			name:     "admin-password.age",
			generate: nil,
		},
	}

	for _, doc := range documents {
		wrote, err := enc.EnsureEncrypted(doc.generate, filepath.Join(secretsDir, doc.name))
		if err != nil {
			return err
		}
		if wrote {
			log.Printf("Encrypted %s", doc.name)
		}
	}
	return nil
}

func marshalSecretValues(values map[string]string) ([]byte, error) {
	out, err := yaml.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal secret values: %w", err)
	}
	return out, nil
}

// readRestoreKey prompts for an age private key without echo. Interactive
// only; non-interactive callers must use the environment.
func readRestoreKey() (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", fmt.Errorf("--restore-key needs an interactive terminal; set K3SEED_AGE_KEY instead")
	}
	fmt.Fprint(os.Stderr, "Paste age private key file content, end with EOF (Ctrl-D): ")
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read restore key: %w", err)
	}
	return string(key), nil
}
