package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cliconfig "github.com/llmdeploy/llmdeploy/internal/cli/config"
	"github.com/llmdeploy/llmdeploy/internal/logging"
)

type rootOptions struct {
	configPath string
	config     *cliconfig.Config
	logger     *logrus.Logger
	logPath    string
}

// prepare loads the config file and sets up the process-wide logger with its
// timestamped log file. Called once per invocation from the root command.
func (r *rootOptions) prepare() error {
	cfg, err := cliconfig.Load(r.configPath)
	if err != nil {
		return err
	}
	r.config = cfg

	logger, logPath, err := logging.Setup(cliconfig.DefaultLogDir())
	if err != nil {
		// Console-only logging still works; carry on.
		logger.Warnf("log file unavailable: %v", err)
	}
	r.logger = logger
	r.logPath = logPath
	return nil
}

func main() {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "llmdeploy",
		Short: "Deploy containerized LLM inference servers onto a SLURM cluster",
	}
	defaultConfig := os.Getenv("LLMDEPLOY_CONFIG")
	if defaultConfig == "" {
		defaultConfig = cliconfig.DefaultConfigPath()
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "path to llmdeploy config file (default $HOME/.llmdeploy/config)")
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return opts.prepare()
	}

	rootCmd.AddCommand(newDeployCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newModelsCmd(opts))
	rootCmd.AddCommand(newDownloadCmd(opts))
	rootCmd.AddCommand(newDiagnoseCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
