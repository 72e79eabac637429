package sysconfig

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

// fakeElevation performs the install steps directly so the resulting files
// can be inspected, while recording every command for assertions.
func fakeElevation(t *testing.T) (func(ctx context.Context, name string, args ...string) error, *[][]string) {
	t.Helper()
	var calls [][]string
	run := func(_ context.Context, name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		require.Equal(t, "sudo", name)
		require.Equal(t, "install", args[0])
		if args[1] == "-d" {
			return os.MkdirAll(args[len(args)-1], 0o755)
		}
		// install -m MODE src dst
		mode, err := strconv.ParseUint(args[2], 8, 32)
		require.NoError(t, err)
		data, err := os.ReadFile(args[3])
		if err != nil {
			return err
		}
		return os.WriteFile(args[4], data, os.FileMode(mode))
	}
	return run, &calls
}

func testWriter(t *testing.T) (*Writer, *[][]string) {
	t.Helper()
	w := NewWriter(t.TempDir())
	run, calls := fakeElevation(t)
	w.RunCommand = run
	return w, calls
}

func TestWriteIfAbsent_CreatesWithParents(t *testing.T) {
	w, _ := testWriter(t)
	path := filepath.Join(t.TempDir(), "etc", "rancher", "k3s", "config.yaml")

	wrote, err := w.WriteIfAbsent(context.Background(), path, []byte("node-name: node1\n"))
	require.NoError(t, err)
	assert.True(t, wrote)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteIfAbsent_AllWritesGoThroughElevation(t *testing.T) {
	// Record-only command runner: nothing is installed. The target must
	// stay absent, proving the writer never touches it directly — the
	// process runs unprivileged and the target lives under /etc.
	w := NewWriter(t.TempDir())
	var calls [][]string
	w.RunCommand = func(_ context.Context, name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	wrote, err := w.WriteIfAbsent(context.Background(), path, []byte("a: b\n"))
	require.NoError(t, err)
	assert.True(t, wrote)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "target must only be written by the elevated command")

	require.Len(t, calls, 2)
	assert.Equal(t, []string{"sudo", "install", "-d", "-m", "0755", filepath.Dir(path)}, calls[0])
	assert.Equal(t, "sudo", calls[1][0])
	assert.Equal(t, path, calls[1][len(calls[1])-1])
}

func TestWriteIfAbsent_RemovesStagedCopy(t *testing.T) {
	w, _ := testWriter(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := w.WriteIfAbsent(context.Background(), path, []byte("a: b\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(w.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged document must not outlive the write")
}

func TestWriteIfAbsent_SkipsExistingEvenIfContentDiffers(t *testing.T) {
	w, calls := testWriter(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("original\n"), 0o600))

	wrote, err := w.WriteIfAbsent(context.Background(), path, []byte("changed\n"))
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Empty(t, *calls, "skip must not run any command")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(got), "existing file must stay byte-identical")
}

func TestWriteIfAbsent_RepeatedRunsIdentical(t *testing.T) {
	w, _ := testWriter(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content, err := K3sConfig("node1", "example.org")
	require.NoError(t, err)

	wrote, err := w.WriteIfAbsent(context.Background(), path, content)
	require.NoError(t, err)
	assert.True(t, wrote)

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	wrote, err = w.WriteIfAbsent(context.Background(), path, content)
	require.NoError(t, err)
	assert.False(t, wrote)

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestK3sConfig(t *testing.T) {
	out, err := K3sConfig("node1", "example.org")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))

	assert.Equal(t, "node1", doc["node-name"])
	assert.ElementsMatch(t, []any{"traefik", "servicelb"}, doc["disable"])
	assert.Contains(t, doc["tls-san"], "example.org")
	assert.Equal(t, "0644", doc["write-kubeconfig-mode"])
}

func TestPSAConfig_ExemptNamespaces(t *testing.T) {
	out, err := PSAConfig(ExemptNamespaces)
	require.NoError(t, err)

	var doc psaAdmissionConfiguration
	require.NoError(t, k8syaml.Unmarshal(out, &doc))

	assert.Equal(t, "apiserver.config.k8s.io/v1", doc.APIVersion)
	assert.Equal(t, "AdmissionConfiguration", doc.Kind)
	require.Len(t, doc.Plugins, 1)
	assert.Equal(t, "PodSecurity", doc.Plugins[0].Name)
	assert.Equal(t, "baseline", doc.Plugins[0].Configuration.Defaults.Enforce)
	assert.Equal(t, ExemptNamespaces, doc.Plugins[0].Configuration.Exemptions.Namespaces)
}

func TestRegistriesConfig(t *testing.T) {
	out, err := RegistriesConfig()
	require.NoError(t, err)

	var doc registriesConfig
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Contains(t, doc.Mirrors, "*")
}
