package runtime

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfellner/k3seed/internal/pipeline"
)

type fakeDownloader struct {
	content []byte
	err     error
	fetched []string
}

func (f *fakeDownloader) Fetch(_ context.Context, url, dest string) error {
	f.fetched = append(f.fetched, url)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, f.content, 0o600)
}

func TestProbe(t *testing.T) {
	ins := NewInstaller(t.TempDir(), &fakeDownloader{})

	ins.LookPath = func(string) (string, error) { return "/usr/local/bin/k3s", nil }
	state, err := ins.Probe()
	require.NoError(t, err)
	assert.Equal(t, pipeline.Present, state)

	ins.LookPath = func(string) (string, error) { return "", errors.New("not found") }
	state, err = ins.Probe()
	require.NoError(t, err)
	assert.Equal(t, pipeline.Absent, state)
}

func TestInstall_RunsScriptWithNodeName(t *testing.T) {
	dl := &fakeDownloader{content: []byte("#!/bin/sh\n")}
	ins := NewInstaller(t.TempDir(), dl)

	var gotEnv []string
	var gotName string
	ins.RunCommand = func(_ context.Context, env []string, name string, _ ...string) error {
		gotEnv = env
		gotName = name
		return nil
	}

	require.NoError(t, ins.Install(context.Background(), "node1"))
	assert.Equal(t, []string{InstallScriptURL}, dl.fetched)
	assert.Equal(t, "sh", gotName)
	assert.Contains(t, gotEnv, "K3S_NODE_NAME=node1")
}

func TestInstall_DownloadFailure(t *testing.T) {
	dl := &fakeDownloader{err: errors.New("network down")}
	ins := NewInstaller(t.TempDir(), dl)
	ins.RunCommand = func(context.Context, []string, string, ...string) error {
		t.Fatal("script must not run after a failed download")
		return nil
	}

	err := ins.Install(context.Background(), "node1")
	require.Error(t, err)
}

func TestInstall_ScriptFailure(t *testing.T) {
	dl := &fakeDownloader{content: []byte("#!/bin/sh\nexit 1\n")}
	ins := NewInstaller(t.TempDir(), dl)
	ins.RunCommand = func(context.Context, []string, string, ...string) error {
		return errors.New("exit status 1")
	}

	err := ins.Install(context.Background(), "node1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "install script failed")
}
