package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	enc, err := New(identity.Recipient().String(), identity)
	require.NoError(t, err)
	return enc
}

func TestEnsureEncrypted_CreatesMissingDocument(t *testing.T) {
	enc := testEncryptor(t)
	dest := filepath.Join(t.TempDir(), "cluster", "secrets", "admin.yaml.age")

	wrote, err := enc.EnsureEncrypted(func() ([]byte, error) {
		return []byte("password: hunter2\n"), nil
	}, dest)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.True(t, enc.Decryptable(dest))
}

func TestEnsureEncrypted_DecryptableIsLeftByteIdentical(t *testing.T) {
	enc := testEncryptor(t)
	dest := filepath.Join(t.TempDir(), "secret.age")

	_, err := enc.EnsureEncrypted(func() ([]byte, error) { return []byte("v1"), nil }, dest)
	require.NoError(t, err)
	before, err := os.ReadFile(dest)
	require.NoError(t, err)

	wrote, err := enc.EnsureEncrypted(func() ([]byte, error) { return []byte("v2"), nil }, dest)
	require.NoError(t, err)
	assert.False(t, wrote, "decryptable secret is considered provisioned, even if stale")

	after, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEnsureEncrypted_UndecryptableIsRegenerated(t *testing.T) {
	enc := testEncryptor(t)
	dest := filepath.Join(t.TempDir(), "secret.age")
	require.NoError(t, os.WriteFile(dest, []byte("hand-edited garbage"), 0o600))

	wrote, err := enc.EnsureEncrypted(func() ([]byte, error) { return []byte("fresh"), nil }, dest)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.True(t, enc.Decryptable(dest))
}

func TestEnsureEncrypted_WrongRecipientIsRegenerated(t *testing.T) {
	other := testEncryptor(t)
	dest := filepath.Join(t.TempDir(), "secret.age")
	_, err := other.EnsureEncrypted(func() ([]byte, error) { return []byte("theirs"), nil }, dest)
	require.NoError(t, err)

	enc := testEncryptor(t)
	assert.False(t, enc.Decryptable(dest), "document for another key must probe as invalid")

	wrote, err := enc.EnsureEncrypted(nil, dest)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.True(t, enc.Decryptable(dest))
}

func TestEnsureEncrypted_NilGeneratorProducesRandomCredential(t *testing.T) {
	enc := testEncryptor(t)
	a := filepath.Join(t.TempDir(), "a.age")
	b := filepath.Join(t.TempDir(), "b.age")

	_, err := enc.EnsureEncrypted(nil, a)
	require.NoError(t, err)
	_, err = enc.EnsureEncrypted(nil, b)
	require.NoError(t, err)

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}

func TestNew_InvalidRecipient(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	_, err = New("age1invalid", identity)
	require.Error(t, err)
}

func TestEnsureEncrypted_LeavesNoPlaintextArtifacts(t *testing.T) {
	enc := testEncryptor(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "secret.age")

	_, err := enc.EnsureEncrypted(func() ([]byte, error) { return []byte("sensitive"), nil }, dest)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the encrypted destination may remain on disk")
	assert.Equal(t, "secret.age", entries[0].Name())
}

func TestGenerateCredential(t *testing.T) {
	a, err := GenerateCredential(32)
	require.NoError(t, err)
	b, err := GenerateCredential(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 40, "32 bytes of entropy encode to 43 characters")
}
