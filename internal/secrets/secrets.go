// Package secrets produces encrypted secret documents for storage in the
// version-controlled tree.
//
// Plaintext is held in process memory only and never written to disk.
// Idempotency is decided by decryptability, not file existence: a
// destination that decrypts with the local key material is left untouched,
// while a missing or undecryptable destination is regenerated
// unconditionally. This makes re-runs self-healing for corruption, at the
// cost of overwriting a hand-edited destination that fails to decrypt for
// any reason — including a temporarily unavailable key.
package secrets

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// Encryptor writes age-armored documents addressed to a single recipient.
type Encryptor struct {
	// Recipient is the sole public key secrets are encrypted to.
	Recipient *age.X25519Recipient

	// Identity decrypts existing documents for the idempotency probe.
	Identity age.Identity
}

// New builds an Encryptor for the given recipient public key.
func New(recipientKey string, identity age.Identity) (*Encryptor, error) {
	recipient, err := age.ParseX25519Recipient(recipientKey)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient key: %w", err)
	}
	return &Encryptor{Recipient: recipient, Identity: identity}, nil
}

// EnsureEncrypted guarantees destPath holds a document that decrypts with
// the local identity. Returns true when the destination was (re)generated.
//
// generate supplies the plaintext; pass nil to provision a freshly
// generated random credential.
func (e *Encryptor) EnsureEncrypted(generate func() ([]byte, error), destPath string) (bool, error) {
	if e.Decryptable(destPath) {
		return false, nil
	}

	if _, err := os.Stat(destPath); err == nil {
		log.Printf("WARNING: %s exists but does not decrypt with local key material; regenerating", destPath)
	}

	if generate == nil {
		generate = func() ([]byte, error) { return GenerateCredential(32) }
	}
	// Plaintext never touches disk; it lives in process memory until it
	// has been encrypted.
	plaintext, err := generate()
	if err != nil {
		return false, fmt.Errorf("failed to materialize plaintext: %w", err)
	}

	ciphertext, err := e.encrypt(plaintext)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return false, fmt.Errorf("failed to create destination directory: %w", err)
	}
	// Atomic replace: write next to the destination, then rename.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".k3seed-*")
	if err != nil {
		return false, fmt.Errorf("failed to stage destination: %w", err)
	}
	if _, err := tmp.Write(ciphertext); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return false, fmt.Errorf("failed to write destination: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return false, err
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		os.Remove(tmp.Name())
		return false, fmt.Errorf("failed to replace %s: %w", destPath, err)
	}
	return true, nil
}

// Decryptable reports whether the document at path decrypts with the local
// identity. Any failure — missing file, corrupt armor, wrong recipient —
// counts as not decryptable.
func (e *Encryptor) Decryptable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	r, err := age.Decrypt(armor.NewReader(f), e.Identity)
	if err != nil {
		return false
	}
	_, err = io.Copy(io.Discard, r)
	return err == nil
}

func (e *Encryptor) encrypt(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, e.Recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to start encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize encryption: %w", err)
	}
	if err := aw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize armor: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateCredential returns a URL-safe random credential built from n
// bytes of entropy.
func GenerateCredential(n int) ([]byte, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to read entropy: %w", err)
	}
	return []byte(base64.RawURLEncoding.EncodeToString(raw)), nil
}
