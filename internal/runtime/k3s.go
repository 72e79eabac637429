// Package runtime installs the k3s cluster runtime.
//
// The install must run after the system configuration documents are in
// place, because k3s reads them at its own startup.
package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jfellner/k3seed/internal/pipeline"
)

// InstallScriptURL is the upstream k3s installer location.
const InstallScriptURL = "https://get.k3s.io"

// Downloader fetches a URL into a local file. Satisfied by
// toolinstall.Installer's download mechanics via the Fetch adapter in the
// bootstrap handler.
type Downloader interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Installer fetches and runs the k3s install script.
type Installer struct {
	TempDir    string
	Downloader Downloader

	// LookPath and RunCommand are swappable for tests.
	LookPath   func(name string) (string, error)
	RunCommand func(ctx context.Context, env []string, name string, args ...string) error
}

// NewInstaller returns an Installer with production defaults.
func NewInstaller(tempDir string, downloader Downloader) *Installer {
	return &Installer{
		TempDir:    tempDir,
		Downloader: downloader,
		LookPath:   exec.LookPath,
		RunCommand: func(ctx context.Context, env []string, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Env = append(os.Environ(), env...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		},
	}
}

// Probe reports whether the k3s binary is already installed.
func (i *Installer) Probe() (pipeline.State, error) {
	if _, err := i.LookPath("k3s"); err == nil {
		return pipeline.Present, nil
	}
	return pipeline.Absent, nil
}

// Install fetches the install script into the run's temp dir and executes
// it. The script itself escalates via sudo for the steps that need it; the
// node name is pinned so the readiness wait knows what to poll for.
func (i *Installer) Install(ctx context.Context, nodeName string) error {
	script := filepath.Join(i.TempDir, "k3s-install.sh")
	if err := i.Downloader.Fetch(ctx, InstallScriptURL, script); err != nil {
		return err
	}
	if err := os.Chmod(script, 0o700); err != nil {
		return fmt.Errorf("failed to mark install script executable: %w", err)
	}

	env := []string{
		"K3S_NODE_NAME=" + nodeName,
		// Config documents are already on disk; the script must not
		// second-guess them.
		"INSTALL_K3S_SKIP_SELINUX_RPM=true",
	}
	if err := i.RunCommand(ctx, env, "sh", script); err != nil {
		return fmt.Errorf("k3s install script failed: %w", err)
	}
	return nil
}
