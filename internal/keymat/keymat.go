// Package keymat manages the long-lived age keypair that all encrypted
// secrets are addressed to.
//
// The private key lives at a single fixed path with owner-only permission
// and is treated as permanent once created: restored, reused, or generated,
// never rotated. The key path lives under /etc while the process runs
// unprivileged, so writes stage the content in the run's temp dir and
// install it with elevation; ownership goes to the invoking user so the
// encryption and handoff steps can read the key without further elevation.
// The public half is extracted from the key file's marker line and is the
// sole encryption recipient for the rest of the run.
package keymat

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"filippo.io/age"

	"github.com/jfellner/k3seed/internal/errdefs"
)

// DefaultKeyPath is the fixed location of the private key.
const DefaultKeyPath = "/etc/k3seed/age.key"

const publicKeyMarker = "# public key: "

const (
	keyFileMode = "0600"
	keyDirMode  = "0755"
)

// Manager owns the key file at Path.
type Manager struct {
	Path string

	// TempDir stages key content before the privileged install step.
	TempDir string

	// Owner is the identity that must be able to read the key without
	// elevation: the invoking user.
	Owner string

	// RunCommand executes the elevated install steps; swappable for tests.
	RunCommand func(ctx context.Context, name string, args ...string) error
}

// NewManager returns a Manager for the fixed key path with production
// defaults.
func NewManager(tempDir string) *Manager {
	owner := strconv.Itoa(os.Getuid())
	if u, err := user.Current(); err == nil {
		owner = u.Username
	}
	return &Manager{
		Path:    DefaultKeyPath,
		TempDir: tempDir,
		Owner:   owner,
		RunCommand: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		},
	}
}

// Ensure establishes the private key file and returns the recipient public
// key. Entry paths in strict priority order:
//
//  1. restoreKey non-empty: written verbatim to the key path with its
//     permission fixed, regardless of any pre-existing file.
//  2. key file exists: reused as-is.
//  3. otherwise: a fresh keypair is generated and persisted.
//
// The restore key content is never logged.
func (m *Manager) Ensure(ctx context.Context, restoreKey string) (string, error) {
	switch {
	case restoreKey != "":
		if err := m.installKeyFile(ctx, []byte(restoreKey)); err != nil {
			return "", fmt.Errorf("failed to restore key material: %w", err)
		}
		log.Printf("Restored key material to %s", m.Path)

	case m.exists():
		// Reuse. Ownership and permission are still enforced in case the
		// file was copied into place by hand.
		if err := m.RunCommand(ctx, "sudo", "chown", m.Owner, m.Path); err != nil {
			return "", fmt.Errorf("failed to fix key ownership: %w", err)
		}
		if err := m.RunCommand(ctx, "sudo", "chmod", keyFileMode, m.Path); err != nil {
			return "", fmt.Errorf("failed to fix key permission: %w", err)
		}

	default:
		identity, err := age.GenerateX25519Identity()
		if err != nil {
			return "", fmt.Errorf("failed to generate keypair: %w", err)
		}
		content := fmt.Sprintf("# created: %s\n%s%s\n%s\n",
			time.Now().Format(time.RFC3339),
			publicKeyMarker, identity.Recipient().String(),
			identity.String())
		if err := m.installKeyFile(ctx, []byte(content)); err != nil {
			return "", fmt.Errorf("failed to persist generated key: %w", err)
		}
		log.Printf("WARNING: generated new key material at %s; losing this file makes all encrypted secrets permanently unrecoverable — back it up now", m.Path)
	}

	return m.PublicKey()
}

// PublicKey extracts the recipient public key from the key file's marker
// line.
func (m *Manager) PublicKey() (string, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if rest, ok := strings.CutPrefix(line, publicKeyMarker); ok {
			key := strings.TrimSpace(rest)
			if _, err := age.ParseX25519Recipient(key); err != nil {
				return "", fmt.Errorf("invalid public key in %s: %w", m.Path, err)
			}
			return key, nil
		}
	}
	return "", &errdefs.KeyExtractionError{Path: m.Path}
}

// Identity parses the private key for local decryption use. The returned
// identity never leaves the process.
func (m *Manager) Identity() (age.Identity, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "AGE-SECRET-KEY-") {
			identity, err := age.ParseX25519Identity(line)
			if err != nil {
				return nil, fmt.Errorf("failed to parse private key: %w", err)
			}
			return identity, nil
		}
	}
	return nil, &errdefs.KeyExtractionError{Path: m.Path}
}

func (m *Manager) exists() bool {
	_, err := os.Stat(m.Path)
	return err == nil
}

// installKeyFile stages content in the temp dir and installs it at the key
// path under elevation, owned by the invoking user with owner-only
// permission.
func (m *Manager) installKeyFile(ctx context.Context, content []byte) error {
	stage := filepath.Join(m.TempDir, "age.key")
	if err := os.WriteFile(stage, content, 0o600); err != nil {
		return fmt.Errorf("failed to stage key file: %w", err)
	}
	defer os.Remove(stage)

	if err := m.RunCommand(ctx, "sudo", "install", "-d", "-m", keyDirMode, filepath.Dir(m.Path)); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := m.RunCommand(ctx, "sudo", "install", "-m", keyFileMode, "-o", m.Owner, stage, m.Path); err != nil {
		return fmt.Errorf("failed to install key file: %w", err)
	}
	return nil
}
