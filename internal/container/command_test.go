package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandSingularity(t *testing.T) {
	cmd, err := Command(Options{
		Runtime:       RuntimeSingularity,
		Image:         "text-generation-inference_latest.sif",
		WeightDir:     "/scratch/models/snap",
		Quantization:  "bitsandbytes",
		ContextLength: 4096,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"singularity", "run", "--nv",
		"--mount", "type=bind,src=/scratch/models/snap,dst=/data",
		"--env", "HF_HOME=/data",
		"--env", "HF_HUB_OFFLINE=1",
		"text-generation-inference_latest.sif",
		"--max-total-tokens=4096",
		"--quantization=bitsandbytes",
	}, cmd)
}

func TestCommandDocker(t *testing.T) {
	cmd, err := Command(Options{
		Runtime:   RuntimeDocker,
		Image:     "ghcr.io/huggingface/text-generation-inference:latest",
		WeightDir: "/models/snap",
		ExtraArgs: []string{"--num-shard=2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "docker", cmd[0])
	assert.Contains(t, cmd, "-v")
	assert.Contains(t, cmd, "/models/snap:/data")
	// Defaults and pass-through args.
	assert.Contains(t, cmd, "--max-total-tokens=2048")
	assert.Equal(t, "--num-shard=2", cmd[len(cmd)-1])
	assert.NotContains(t, cmd, "--quantization=")
}

func TestCommandUnknownRuntime(t *testing.T) {
	_, err := Command(Options{Runtime: "podman", Image: "img", WeightDir: "/w"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported container runtime")
}

func TestCommandValidation(t *testing.T) {
	_, err := Command(Options{Runtime: RuntimeDocker, WeightDir: "/w"})
	require.Error(t, err)
	_, err = Command(Options{Runtime: RuntimeDocker, Image: "img"})
	require.Error(t, err)
}
