package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cliconfig "github.com/llmdeploy/llmdeploy/internal/cli/config"
)

func seedCache(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	base := filepath.Join(root, "models--org--tiny")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "refs"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "snapshots", "abc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "refs", "main"), []byte("abc"), 0o644))
	return root
}

func TestBuildCommand(t *testing.T) {
	cache := seedCache(t)
	cfg := &cliconfig.Config{Image: "tgi.sif"}

	argv, err := buildCommand(cfg, cache, "org/tiny", "GPTQ", 4096)
	require.NoError(t, err)
	assert.Equal(t, "singularity", argv[0])
	assert.Contains(t, argv, "--max-total-tokens=4096")
	assert.Contains(t, argv, "--quantization=GPTQ")
}

func TestBuildCommandUnknownModel(t *testing.T) {
	_, err := buildCommand(&cliconfig.Config{Image: "tgi.sif"}, t.TempDir(), "org/absent", "", 0)
	require.Error(t, err)
}

func TestQuantValue(t *testing.T) {
	assert.Equal(t, "", quantValue(0))
	assert.Equal(t, "bitsandbytes", quantValue(1))
	assert.Equal(t, "GPTQ", quantValue(2))
}

func TestLauncherChoiceValidation(t *testing.T) {
	l := newLauncher(&cliconfig.Config{}, t.TempDir(), []string{"org/tiny"})
	l.ctxInput.SetValue("not-a-number")
	_, err := l.choice()
	require.Error(t, err)

	l.ctxInput.SetValue("2048")
	choice, err := l.choice()
	require.NoError(t, err)
	assert.Equal(t, "org/tiny", choice.modelName)
	assert.Equal(t, 2048, choice.contextLength)
}
