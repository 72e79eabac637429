// Package toolinstall ensures the external command-line tools the bootstrap
// depends on are present, fetching and installing release artifacts when
// they are not.
//
// Installation only ever happens after a failed presence check, so a
// machine that already carries the tools performs zero downloads on
// re-runs.
package toolinstall

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/jfellner/k3seed/internal/errdefs"
	"github.com/jfellner/k3seed/internal/pipeline"
)

// Kind selects the install shape of a release artifact.
type Kind int

const (
	// KindArchive is a tar.gz archive yielding one or more binaries.
	KindArchive Kind = iota
	// KindBinary is a single executable file installed with an explicit
	// permission mode.
	KindBinary
)

// Tool describes one external command and how to obtain it.
type Tool struct {
	// Name is the binary name looked up in PATH for the presence check.
	Name string

	// Version pins the release to download.
	Version string

	// URL is the release artifact location.
	URL string

	Kind Kind

	// Binaries lists the archive member names to install (KindArchive).
	Binaries []string

	// Mode is the permission applied on install (KindBinary).
	Mode os.FileMode
}

// Installer downloads release artifacts into the run's temporary directory
// and installs them into the system binary location under elevated
// privilege.
type Installer struct {
	// TempDir is the process-scoped scratch space for downloads.
	// Plaintext artifacts never land anywhere else.
	TempDir string

	// BinDir is the system-wide install target.
	BinDir string

	Client *http.Client

	// LookPath and RunCommand are swappable for tests.
	LookPath   func(name string) (string, error)
	RunCommand func(ctx context.Context, name string, args ...string) error
}

// NewInstaller returns an Installer with production defaults.
func NewInstaller(tempDir string) *Installer {
	return &Installer{
		TempDir:  tempDir,
		BinDir:   "/usr/local/bin",
		Client:   &http.Client{Timeout: 2 * time.Minute},
		LookPath: exec.LookPath,
		RunCommand: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		},
	}
}

// Probe reports whether the tool is already present in PATH.
func (i *Installer) Probe(tool Tool) (pipeline.State, error) {
	if _, err := i.LookPath(tool.Name); err == nil {
		return pipeline.Present, nil
	}
	return pipeline.Absent, nil
}

// EnsureInstalled installs the tool unless the presence check succeeds.
func (i *Installer) EnsureInstalled(ctx context.Context, tool Tool) error {
	state, err := i.Probe(tool)
	if err != nil {
		return err
	}
	if state == pipeline.Present {
		return nil
	}
	return i.install(ctx, tool)
}

func (i *Installer) install(ctx context.Context, tool Tool) error {
	artifact := filepath.Join(i.TempDir, filepath.Base(tool.URL))
	if err := i.download(ctx, tool.URL, artifact); err != nil {
		return err
	}

	switch tool.Kind {
	case KindArchive:
		extractDir := filepath.Join(i.TempDir, tool.Name)
		if err := os.MkdirAll(extractDir, 0o750); err != nil {
			return &errdefs.InstallError{Tool: tool.Name, Err: err}
		}
		if err := extractTarGz(artifact, extractDir, tool.Binaries); err != nil {
			return &errdefs.InstallError{Tool: tool.Name, Err: err}
		}
		for _, bin := range tool.Binaries {
			src := filepath.Join(extractDir, bin)
			dst := filepath.Join(i.BinDir, filepath.Base(bin))
			if err := i.RunCommand(ctx, "sudo", "install", "-m", "0755", src, dst); err != nil {
				return &errdefs.InstallError{Tool: tool.Name, Err: err}
			}
		}
	case KindBinary:
		mode := tool.Mode
		if mode == 0 {
			mode = 0o755
		}
		dst := filepath.Join(i.BinDir, tool.Name)
		if err := i.RunCommand(ctx, "sudo", "install", "-m", fmt.Sprintf("%04o", mode), artifact, dst); err != nil {
			return &errdefs.InstallError{Tool: tool.Name, Err: err}
		}
	default:
		return &errdefs.InstallError{Tool: tool.Name, Err: fmt.Errorf("unknown install kind %d", tool.Kind)}
	}
	return nil
}
