package personalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sentinel = "example.com"

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func TestPersonalize_AppliesAllRules(t *testing.T) {
	root := writeTree(t, map[string]string{
		"cluster/ingress.yaml":  "host: app.example.com\n",
		"cluster/issuer.yaml":   "email: admin@example.com\n",
		"README.md":             "Replace example.com with your domain.\n",
		"cluster/binary.dat":    "example.com should stay\n",
		"flux-system/kust.yaml": "domain: example.com\n",
	})

	rules := []Rule{
		{Pattern: "admin@example.com", Replacement: "ops@example.org"},
		{Pattern: "example.com", Replacement: "example.org"},
	}

	changed, err := Personalize(root, "flux-system/kust.yaml", sentinel, rules)
	require.NoError(t, err)
	assert.Equal(t, 4, changed)

	got, err := os.ReadFile(filepath.Join(root, "cluster/issuer.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "email: ops@example.org\n", string(got), "rules apply in order")

	got, err = os.ReadFile(filepath.Join(root, "cluster/binary.dat"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "example.com", "non-matching extensions are untouched")
}

func TestPersonalize_NoSentinelIsNoOp(t *testing.T) {
	root := writeTree(t, map[string]string{
		"cluster/ingress.yaml":  "host: app.example.com\n",
		"flux-system/kust.yaml": "domain: example.org\n", // already personalized
	})

	changed, err := Personalize(root, "flux-system/kust.yaml", sentinel, []Rule{
		{Pattern: "example.com", Replacement: "example.org"},
	})
	require.NoError(t, err)
	assert.Zero(t, changed, "zero sentinel occurrences must perform no file writes")

	got, err := os.ReadFile(filepath.Join(root, "cluster/ingress.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "host: app.example.com\n", string(got))
}

func TestPersonalize_MissingSentinelFile(t *testing.T) {
	root := writeTree(t, map[string]string{"a.yaml": "example.com\n"})

	changed, err := Personalize(root, "missing.yaml", sentinel, []Rule{
		{Pattern: "example.com", Replacement: "example.org"},
	})
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestPersonalize_SecondRunIsNoOp(t *testing.T) {
	root := writeTree(t, map[string]string{
		"flux-system/kust.yaml": "domain: example.com\n",
	})
	rules := []Rule{{Pattern: "example.com", Replacement: "example.org"}}

	changed, err := Personalize(root, "flux-system/kust.yaml", sentinel, rules)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	changed, err = Personalize(root, "flux-system/kust.yaml", sentinel, rules)
	require.NoError(t, err)
	assert.Zero(t, changed, "personalization runs at most once per repository state")
}
