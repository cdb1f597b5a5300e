package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llmdeploy/llmdeploy/internal/container"
	"github.com/llmdeploy/llmdeploy/internal/model"
	"github.com/llmdeploy/llmdeploy/internal/session"
	"github.com/llmdeploy/llmdeploy/internal/shell"
	"github.com/llmdeploy/llmdeploy/internal/slurm"
)

type deployFlags struct {
	modelName string
	weightDir string
	revision  string
	snapshot  string
	modelDir  string

	image         string
	runtime       string
	quantization  string
	contextLength int

	email      string
	remotePort int
	partition  string
	gres       string
	timeLimit  string
	memory     string
	loginHost  string
}

// loggerFeedback routes wait-protocol feedback to the process logger.
type loggerFeedback struct {
	logger *logrus.Logger
}

func (f loggerFeedback) Info(msg string)  { f.logger.Info(msg) }
func (f loggerFeedback) Error(msg string) { f.logger.Error(msg) }

func newDeployCmd(root *rootOptions) *cobra.Command {
	flags := &deployFlags{}
	cmd := &cobra.Command{
		Use:   "deploy [-- extra server args]",
		Short: "Submit an inference server job, tunnel to it and monitor it",
		Long: `Deploy submits a batch job running the inference server container,
waits for the scheduler to start it, forwards a local port to the compute
node and keeps monitoring the job. The job, the tunnel and the on-disk
session record are torn down on every exit path, including Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildSessionOptions(root, flags, args)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client := slurm.NewClient(shell.New(root.logger), root.logger)
			sess := session.New(client, loggerFeedback{root.logger}, root.logger, opts)
			if code := sess.Run(ctx); code != session.ExitOK {
				os.Exit(code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.modelName, "model", "", "model reference to deploy, e.g. meta-llama/Llama-2-7b-hf")
	cmd.Flags().StringVar(&flags.weightDir, "weight-dir", "", "explicit weight directory (skips cache resolution)")
	cmd.Flags().StringVar(&flags.revision, "revision", "main", "model revision to resolve in the cache")
	cmd.Flags().StringVar(&flags.snapshot, "snapshot", "", "exact snapshot hash (overrides --revision)")
	cmd.Flags().StringVar(&flags.modelDir, "model-dir", "", "model cache directory (overrides config)")
	cmd.Flags().StringVar(&flags.image, "image", "", "inference server container image or .sif path (overrides config)")
	cmd.Flags().StringVar(&flags.runtime, "runtime", "", "container runtime: docker|singularity (overrides config)")
	cmd.Flags().StringVar(&flags.quantization, "quantization", "", "quantization scheme passed to the server")
	cmd.Flags().IntVar(&flags.contextLength, "context-length", 2048, "maximum context length in tokens")
	cmd.Flags().StringVar(&flags.email, "notify-email", "", "email address for scheduler notifications (overrides config)")
	cmd.Flags().IntVar(&flags.remotePort, "remote-port", 0, "port the server listens on inside the job (default 8000)")
	cmd.Flags().StringVar(&flags.partition, "partition", "", "scheduler partition (overrides config)")
	cmd.Flags().StringVar(&flags.gres, "gres", "", "generic resource request, e.g. gpu:1 (overrides config)")
	cmd.Flags().StringVar(&flags.timeLimit, "time-limit", "", "job time limit (overrides config)")
	cmd.Flags().StringVar(&flags.memory, "memory", "", "job memory request (overrides config)")
	cmd.Flags().StringVar(&flags.loginHost, "login-host", "", "cluster login host shown in remote-access instructions (overrides config)")
	return cmd
}

func buildSessionOptions(root *rootOptions, flags *deployFlags, extraArgs []string) (session.Options, error) {
	cfg := root.config

	weightDir := flags.weightDir
	if weightDir == "" {
		modelDir := firstNonEmpty(flags.modelDir, cfg.ModelDir)
		resolved, err := model.Resolve(modelDir, model.ResolveOptions{
			Name:     flags.modelName,
			Revision: flags.revision,
			Snapshot: flags.snapshot,
		})
		if err != nil {
			return session.Options{}, err
		}
		weightDir = resolved
	}

	runtime := firstNonEmpty(flags.runtime, cfg.Runtime, string(container.RuntimeSingularity))
	argv, err := container.Command(container.Options{
		Runtime:       container.Runtime(runtime),
		Image:         firstNonEmpty(flags.image, cfg.Image),
		WeightDir:     weightDir,
		Quantization:  flags.quantization,
		ContextLength: flags.contextLength,
		ExtraArgs:     extraArgs,
	})
	if err != nil {
		return session.Options{}, err
	}

	remotePort := flags.remotePort
	if remotePort == 0 {
		remotePort = cfg.RemotePort
	}
	return session.Options{
		Script: slurm.ScriptOptions{
			Command:   argv,
			Email:     firstNonEmpty(flags.email, cfg.NotifyEmail),
			Partition: firstNonEmpty(flags.partition, cfg.Partition),
			Gres:      firstNonEmpty(flags.gres, cfg.Gres),
			TimeLimit: firstNonEmpty(flags.timeLimit, cfg.TimeLimit),
			Memory:    firstNonEmpty(flags.memory, cfg.Memory),
		},
		RemotePort: remotePort,
		LoginHost:  firstNonEmpty(flags.loginHost, cfg.LoginHost),
		LogPath:    root.logPath,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
