// Package sysconfig materializes the fixed-path configuration documents the
// cluster runtime reads at its own startup.
//
// The target paths live under /etc and the process runs unprivileged, so
// every write stages the document in the run's temp dir and installs it
// with elevation, mirroring how external tools are installed. Idempotency
// is existence-based only: an existing file is never rewritten, even if the
// generated content has since changed. Picking up template changes requires
// deleting the file and re-running.
package sysconfig

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	// Parent directories must stay traversable for the unprivileged
	// process: the kubeconfig k3s writes next to these documents is read
	// directly during the readiness wait.
	dirMode  = "0755"
	fileMode = "0600"
)

// Writer installs configuration documents at fixed system paths.
type Writer struct {
	// TempDir is the staging area for document content before the
	// privileged install step.
	TempDir string

	// RunCommand executes the elevated install steps; swappable for tests.
	RunCommand func(ctx context.Context, name string, args ...string) error
}

// NewWriter returns a Writer with production defaults.
func NewWriter(tempDir string) *Writer {
	return &Writer{
		TempDir: tempDir,
		RunCommand: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		},
	}
}

// WriteIfAbsent installs content at path unless the file already exists.
// Parent directories are created as needed. Returns true when the file was
// written.
func (w *Writer) WriteIfAbsent(ctx context.Context, path string, content []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	stage := filepath.Join(w.TempDir, filepath.Base(path))
	if err := os.WriteFile(stage, content, 0o600); err != nil {
		return false, fmt.Errorf("failed to stage %s: %w", path, err)
	}
	defer os.Remove(stage)

	if err := w.RunCommand(ctx, "sudo", "install", "-d", "-m", dirMode, filepath.Dir(path)); err != nil {
		return false, fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}
	if err := w.RunCommand(ctx, "sudo", "install", "-m", fileMode, stage, path); err != nil {
		return false, fmt.Errorf("failed to install %s: %w", path, err)
	}
	return true, nil
}
