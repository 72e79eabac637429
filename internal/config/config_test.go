package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every configuration variable for the duration of a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range RequiredNames() {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	t.Setenv("K3SEED_PROBE_URL", "")
	require.NoError(t, os.Unsetenv("K3SEED_PROBE_URL"))
	t.Setenv("K3SEED_AGE_KEY", "")
	require.NoError(t, os.Unsetenv("K3SEED_AGE_KEY"))
}

func fullEnv(t *testing.T) {
	t.Helper()
	clearEnv(t)
	t.Setenv("DOMAIN", "example.org")
	t.Setenv("ACME_EMAIL", "ops@example.org")
	t.Setenv("NODE_NAME", "node1")
	t.Setenv("GITHUB_OWNER", "jfellner")
	t.Setenv("GITHUB_REPOSITORY", "homelab")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("S3_ENDPOINT", "https://s3.example.org")
	t.Setenv("S3_BUCKET", "backups")
	t.Setenv("S3_ACCESS_KEY", "AKIA")
	t.Setenv("S3_SECRET_KEY", "secret")
	t.Setenv("CLOUDFLARE_API_TOKEN", "cf_test")
}

func TestLoad_FromEnvironment(t *testing.T) {
	fullEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "example.org", cfg.Domain)
	assert.Equal(t, "node1", cfg.NodeName)
	assert.Equal(t, "https://get.k3s.io", cfg.ProbeURL, "probe URL defaults to the k3s install endpoint")
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverriddenByEnvironment(t *testing.T) {
	fullEnv(t)

	path := filepath.Join(t.TempDir(), "k3seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domain: file.example.com\ns3_bucket: file-bucket\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "example.org", cfg.Domain, "environment wins over file")
	assert.Equal(t, "backups", cfg.S3Bucket)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_ReportsAllMissingNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOMAIN", "example.org")
	t.Setenv("NODE_NAME", "node1")

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACME_EMAIL")
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
	assert.Contains(t, err.Error(), "CLOUDFLARE_API_TOKEN")
	assert.NotContains(t, err.Error(), "DOMAIN,", "present names must not be reported")
}

func TestValidate_AllPresent(t *testing.T) {
	fullEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestGet_UnknownName(t *testing.T) {
	cfg := &Config{}
	assert.Empty(t, cfg.Get("NOT_A_NAME"))
}
