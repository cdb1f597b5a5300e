// Package container builds the command line that starts the inference server
// inside a container runtime on the compute node.
package container

import (
	"fmt"
	"strconv"
)

// Runtime selects the container engine available on the cluster.
type Runtime string

const (
	RuntimeDocker      Runtime = "docker"
	RuntimeSingularity Runtime = "singularity"
)

// Options describe one inference server invocation.
type Options struct {
	Runtime   Runtime
	Image     string // docker image reference or singularity .sif path
	WeightDir string // resolved snapshot directory, mounted at /data
	// Quantization is passed through when set; the server default applies
	// otherwise.
	Quantization  string
	ContextLength int
	ExtraArgs     []string
}

// Command assembles the full argv handed to the submission script.
func Command(opts Options) ([]string, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("container image is required")
	}
	if opts.WeightDir == "" {
		return nil, fmt.Errorf("weight directory is required")
	}
	if opts.ContextLength <= 0 {
		opts.ContextLength = 2048
	}

	var cmd []string
	switch opts.Runtime {
	case RuntimeDocker:
		cmd = []string{
			"docker", "run", "--rm",
			"--gpus", "all",
			"--shm-size", "1g",
			"-v", opts.WeightDir + ":/data",
			opts.Image,
		}
	case RuntimeSingularity:
		cmd = []string{
			"singularity", "run", "--nv",
			"--mount", "type=bind,src=" + opts.WeightDir + ",dst=/data",
			"--env", "HF_HOME=/data",
			"--env", "HF_HUB_OFFLINE=1",
			opts.Image,
		}
	default:
		return nil, fmt.Errorf("unsupported container runtime %q", opts.Runtime)
	}

	cmd = append(cmd, "--max-total-tokens="+strconv.Itoa(opts.ContextLength))
	if opts.Quantization != "" {
		cmd = append(cmd, "--quantization="+opts.Quantization)
	}
	cmd = append(cmd, opts.ExtraArgs...)
	return cmd, nil
}
